package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/petcare/internal/database"
	"github.com/mesh-intelligence/petcare/internal/entity"
)

func newSyncCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local records to the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				return a.emitResults(cmd.OutOrStdout(), db.SyncAllData(ctx, owner))
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only records of this user id")
	return cmd
}

func newLoadCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Merge remote records into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				return a.emitResults(cmd.OutOrStdout(), db.LoadAllData(ctx, owner))
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "only records of this user id")
	return cmd
}

func (a *app) emitResults(w io.Writer, results []entity.SyncResult) error {
	return a.emit(w, results, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KIND\tSYNCED\tERRORS")
		for _, r := range results {
			fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Kind, r.Synced, r.Errors)
		}
		tw.Flush()
	})
}

func newResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Discard local records and restore the demo data",
		Long:  "Clear the local store and seed the demo data again. The remote store is not touched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				if err := db.ResetDatabase(ctx); err != nil {
					return sysError(err)
				}
				return a.emit(cmd.OutOrStdout(), map[string]bool{"reset": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Local data reset")
				})
			})
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending local data migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			db, log, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer log.Sync()
			defer db.Close()

			rep := db.Migrate(ctx)
			if err := a.emit(cmd.OutOrStdout(), rep, func(w io.Writer) {
				if len(rep.Applied) == 0 && rep.Err == nil {
					fmt.Fprintf(w, "schema version %d is up to date\n", rep.To)
					return
				}
				fmt.Fprintf(w, "schema version %d -> %d, applied %v\n", rep.From, rep.To, rep.Applied)
			}); err != nil {
				return err
			}
			if rep.Err != nil {
				return sysError(rep.Err)
			}
			return nil
		},
	}
}

// status is the output of the status command.
type status struct {
	Backend       string          `json:"backend"`
	DataDir       string          `json:"data_dir"`
	Remote        string          `json:"remote"`
	SyncEnabled   bool            `json:"sync_enabled"`
	SchemaVersion int             `json:"schema_version"`
	LatestVersion int             `json:"latest_version"`
	Capabilities  map[string]bool `json:"capabilities"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show storage configuration and remote collection availability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDatabase(cmd, func(ctx context.Context, db *database.Database) error {
				current, latest, err := db.SchemaVersion(ctx)
				if err != nil {
					return sysError(err)
				}
				st := status{
					Backend:       a.cfg.Backend,
					DataDir:       a.cfg.DataDir,
					Remote:        a.cfg.Remote.Driver,
					SyncEnabled:   a.cfg.Sync.Enabled,
					SchemaVersion: current,
					LatestVersion: latest,
					Capabilities:  db.Capabilities(),
				}
				return a.emit(cmd.OutOrStdout(), st, func(w io.Writer) {
					printStatus(w, st)
				})
			})
		},
	}
}

func printStatus(w io.Writer, st status) {
	remote := st.Remote
	if remote == "" {
		remote = "none"
	}
	fmt.Fprintf(w, "backend:  %s (%s)\n", st.Backend, st.DataDir)
	fmt.Fprintf(w, "remote:   %s (sync enabled: %t)\n", remote, st.SyncEnabled)
	fmt.Fprintf(w, "schema:   %d of %d\n", st.SchemaVersion, st.LatestVersion)

	names := make([]string, 0, len(st.Capabilities))
	for name := range st.Capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "missing"
		if st.Capabilities[name] {
			state = "available"
		}
		fmt.Fprintf(w, "  %-20s %s\n", name, state)
	}
}
