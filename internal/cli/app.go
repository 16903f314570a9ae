package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/petcare/internal/database"
	"github.com/mesh-intelligence/petcare/internal/localstore"
	"github.com/mesh-intelligence/petcare/internal/logger"
	"github.com/mesh-intelligence/petcare/internal/remote"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

func (a *app) newLogger() (*logger.Logger, error) {
	mode := strings.ToLower(a.cfg.Log.Mode)
	if (mode == "" || mode == "off") && a.cfg.Log.File == "" {
		return logger.Nop(), nil
	}
	return logger.NewWithOptions(logger.Options{
		Mode:      mode,
		File:      a.cfg.Log.File,
		MaxSizeMB: a.cfg.Log.MaxSizeMB,
	})
}

// open builds the database for the loaded configuration. The caller must
// Close it.
func (a *app) open(ctx context.Context) (*database.Database, *logger.Logger, error) {
	log, err := a.newLogger()
	if err != nil {
		return nil, nil, sysError(fmt.Errorf("logger: %w", err))
	}
	store, err := localstore.Open(ctx, a.cfg, log)
	if err != nil {
		return nil, nil, sysError(err)
	}
	rem, err := remote.Open(ctx, a.cfg.Remote, log)
	if err != nil {
		store.Close()
		return nil, nil, sysError(err)
	}
	db, err := database.New(a.cfg, store, rem, database.WithLogger(log))
	if err != nil {
		store.Close()
		return nil, nil, userError(err)
	}
	return db, log, nil
}

// withDatabase opens and initializes the database, runs fn and closes the
// database again.
func (a *app) withDatabase(cmd *cobra.Command, fn func(ctx context.Context, db *database.Database) error) error {
	ctx := commandContext(cmd)
	db, log, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()
	defer db.Close()

	if _, err := db.Initialize(ctx); err != nil {
		return sysError(err)
	}
	return fn(ctx, db)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// parseKind resolves a kind or collection name argument.
func parseKind(arg string) (types.Kind, error) {
	k, err := types.ParseKind(arg)
	if err != nil {
		return "", userError(fmt.Errorf("%w (valid: %s)", err, validKinds()))
	}
	return k, nil
}

func validKinds() string {
	names := make([]string, len(types.StandardKinds))
	for i, k := range types.StandardKinds {
		names[i] = k.Collection()
	}
	return strings.Join(names, ", ")
}

// emit writes v as indented JSON in --json mode and calls human otherwise.
func (a *app) emit(w io.Writer, v any, human func(io.Writer)) error {
	if a.jsonMode || human == nil {
		return writeJSON(w, v)
	}
	human(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// label returns the human name of an entity.
func label(e types.Entity) string {
	switch v := e.(type) {
	case *types.Pet:
		return fmt.Sprintf("%s (%s)", v.Name, v.Type)
	case *types.Task:
		state := "open"
		if v.Completed {
			state = "done"
		}
		return fmt.Sprintf("%s [%s, due %s]", v.Title, state, v.DueDate.Format("2006-01-02"))
	case *types.Meal:
		return fmt.Sprintf("%s %g%s", v.Name, v.Amount, v.Unit)
	case *types.Medication:
		return fmt.Sprintf("%s %s", v.Name, v.Dosage)
	case *types.HealthRecord:
		return fmt.Sprintf("%s (%s, %s)", v.Title, v.RecordType, v.Date.Format("2006-01-02"))
	case *types.ActivitySession:
		return fmt.Sprintf("%s %dmin", v.ActivityType, v.DurationMinutes)
	case *types.User:
		return fmt.Sprintf("%s <%s>", v.Name, v.Email)
	default:
		return e.GetID()
	}
}

// decodeEntity builds an entity of kind k from user-supplied JSON, accepting
// loose forms such as date-only strings.
func decodeEntity(k types.Kind, data string) (types.Entity, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	e, err := types.New(k)
	if err != nil {
		return nil, userError(err)
	}
	types.CoerceFields(e, fields)
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, sysError(err)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, userError(fmt.Errorf("%w: %s: %v", types.ErrValidation, k, err))
	}
	return e, nil
}

func decodeObject(data string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, userError(fmt.Errorf("invalid JSON: %w", err))
	}
	if fields == nil {
		return nil, userError(fmt.Errorf("invalid JSON: expected an object"))
	}
	return fields, nil
}
