// Package cli implements the typegraph command-line interface.
//
// Commands print human-readable output by default and the raw entities with
// --json. The exit code is 0 on success, 1 when the request was rejected
// (validation, conflict, scope, blocked pair, not found, invariant guard)
// and 2 when the tool itself failed.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/paths"
	"github.com/mesh-intelligence/typegraph/pkg/sqlite"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state of one invocation.
type app struct {
	flags rootFlags
	out   io.Writer

	// cfg is the configuration of the last attached store.
	cfg types.Config
}

// NewRootCmd creates the top-level "typegraph" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "typegraph",
		Short: "Administer object types, objects and the relations between them",
		Long: "typegraph stores administrator-defined object types with typed fields,\n" +
			"objects with stable human-readable identifiers, and a rule-checked\n" +
			"graph of relations between objects.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.out = cmd.OutOrStdout()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: enclosing "+paths.ConfigDirName+" or platform dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: "+paths.DataDirName+")")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newConfigCmd(),
		a.newTypeCmd(),
		a.newFieldCmd(),
		a.newTemplateCmd(),
		a.newObjectCmd(),
		a.newRelationCmd(),
		a.newRelationTypeCmd(),
		a.newRuleCmd(),
		a.newMaintainCmd(),
		a.newExportCmd(),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	switch types.Classify(err) {
	case "":
		return exitSuccess
	case types.ClassInternal:
		return exitSysError
	default:
		return exitUserError
	}
}

// usageError marks err as a caller mistake so it exits with exitUserError.
func usageError(err error) error {
	if err == nil {
		return nil
	}
	return types.InCategory(err, types.ErrValidation)
}

// exactArgs is cobra.ExactArgs with the error marked as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.ExactArgs(n)(cmd, args))
	}
}

// rangeArgs is cobra.RangeArgs with the error marked as a usage error.
func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usageError(cobra.RangeArgs(lo, hi)(cmd, args))
	}
}

// withStore loads the configuration, attaches a backend and runs fn. The
// backend is detached when fn returns.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, store types.Store) error) error {
	cfg, _, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	a.cfg = cfg
	store := sqlite.NewBackend(sqlite.WithLogger(logger))
	if err := store.Attach(cfg); err != nil {
		return errors.Wrap(err, "attach store")
	}
	defer store.Detach()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, store); err != nil {
		logger.Debug("command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
		return err
	}
	return nil
}

// stdout returns the writer commands print to.
func (a *app) stdout() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
