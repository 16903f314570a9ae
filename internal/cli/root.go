// Package cli implements the petcare command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/petcare/internal/paths"
	"github.com/mesh-intelligence/petcare/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the release version, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/petcare/internal/cli.Version=...".
var Version = "0.1.0-dev"

// app holds global flag values and the configuration loaded for the
// running command.
type app struct {
	configDir string
	dataDir   string
	jsonMode  bool

	cfg types.Config
}

// NewRootCmd creates the top-level "petcare" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "petcare",
		Short: "Offline-first pet care records",
		Long: "petcare keeps pets, care tasks, meals, medications, health records\n" +
			"and activity sessions in a local store and synchronizes them with an\n" +
			"optional remote database.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newUpdateCmd(a))
	root.AddCommand(newDeleteCmd(a))
	root.AddCommand(newCountCmd(a))
	root.AddCommand(newSyncCmd(a))
	root.AddCommand(newLoadCmd(a))
	root.AddCommand(newResetCmd(a))
	root.AddCommand(newMigrateCmd(a))
	root.AddCommand(newStatusCmd(a))
	root.AddCommand(newDueCmd(a))
	root.AddCommand(newCompleteCmd(a))
	root.AddCommand(newPetCmd(a))
	root.AddCommand(newFindUserCmd(a))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "petcare:", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Flag and argument errors from cobra.
	return exitUserError
}

func (a *app) loadConfig() error {
	configDir, err := paths.ResolveConfigDir(a.configDir)
	if err != nil {
		return sysError(err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	cfg, err := decodeConfig(v)
	if err != nil {
		return userError(err)
	}
	dataDir, err := paths.ResolveDataDir(a.dataDir, cfg.DataDir)
	if err != nil {
		return sysError(err)
	}
	cfg.DataDir = dataDir
	if err := cfg.Validate(); err != nil {
		return userError(fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err))
	}
	a.cfg = cfg.WithDefaults()
	return nil
}

// exitError carries the process exit code for err.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// classify maps domain errors caused by the caller's input to exit code 1
// and everything else to exit code 2.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrDuplicateID),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrUnknownKind),
		errors.Is(err, types.ErrInvalidID):
		return userError(err)
	default:
		return sysError(err)
	}
}
