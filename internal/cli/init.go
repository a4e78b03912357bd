package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/paths"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize typegraph storage",
		Long: "Create the configuration directory with a default config.yaml, then\n" +
			"create the data directory and apply the schema. Running init again is safe.",
		Args: exactArgs(0),
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, _ []string) error {
	if a.flags.configDir == "" && os.Getenv(paths.EnvConfigDir) == "" {
		if _, ok, err := paths.FindProjectRoot(); err == nil && !ok {
			// Outside any project, init starts one in the working directory.
			a.flags.configDir = paths.ConfigDirName
		}
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return errors.Wrap(err, "resolve config dir")
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	a.flags.configDir = configDir
	wrote, err := writeConfigIfMissing(configDir)
	if err != nil {
		return err
	}

	var relTypes int
	err = a.withStore(cmd, func(ctx context.Context, store types.Store) error {
		rts, err := store.Rules().ListRelationTypes(ctx)
		relTypes = len(rts)
		return err
	})
	if err != nil {
		return err
	}
	dataDir := a.cfg.DataDir

	result := map[string]any{
		"config_dir":     configDir,
		"data_dir":       dataDir,
		"config_written": wrote,
		"relation_types": relTypes,
	}
	return a.emit(result, func() error {
		return a.printf("Initialized typegraph in %s (data: %s)", configDir, dataDir)
	})
}
