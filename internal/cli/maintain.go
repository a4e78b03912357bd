package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run every reconciliation pass once",
		Long: "Give every type exactly one namn field, create rows for force-presence\n" +
			"fields, rewrite identifiers into canonical form and complete the rule matrix.\n" +
			"Safe to re-run.",
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				report, err := store.Maintain(ctx)
				if err != nil {
					return err
				}
				return a.emit(report, func() error {
					if err := a.table([]string{"PASS", "CHANGES"}, [][]string{
						{"name fields", itoa(report.NameFieldsFixed)},
						{"forced rows", itoa(report.ForcedRowsCreated)},
						{"identifiers", itoa(report.IdentifiersUpdated)},
						{"rules", itoa(report.RulesCreated)},
					}); err != nil {
						return err
					}
					for _, r := range report.Reallocations {
						if err := a.printf("reallocated %s -> %s (%s)", r.From, r.To, r.ObjectID); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every table to <dir> as JSONL",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if err := store.Export(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]any{"dir": args[0], "tables": types.StandardTableNames}, func() error {
					return a.printf("Exported %d tables to %s", len(types.StandardTableNames), args[0])
				})
			})
		},
	}
}
