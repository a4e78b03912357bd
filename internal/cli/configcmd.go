package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/typegraph/errors"
)

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(a.newConfigShowCmd(), a.newConfigPathCmd())
	return cmd
}

func (a *app) newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after defaults, flags and environment are applied",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			return a.emit(cfg, func() error {
				out, err := yaml.Marshal(cfg)
				if err != nil {
					return errors.Wrap(err, "marshal YAML")
				}
				_, err = a.stdout().Write(out)
				return err
			})
		},
	}
}

func (a *app) newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file and data directory in use",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, configDir, err := a.loadConfig()
			if err != nil {
				return err
			}
			file := filepath.Join(configDir, configFileExt)
			return a.emit(map[string]string{"config_file": file, "data_dir": cfg.DataDir}, func() error {
				return a.printf("config: %s\ndata:   %s", file, cfg.DataDir)
			})
		},
	}
}
