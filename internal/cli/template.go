package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Manage shared field templates",
	}
	cmd.AddCommand(
		a.newTemplateCreateCmd(),
		a.newTemplateUpdateCmd(),
		a.newTemplateListCmd(),
		a.newTemplateDeleteCmd(),
		a.newTemplateApplyCmd(),
		a.newTemplatePropagateCmd(),
		a.newTemplateDivergencesCmd(),
	)
	return cmd
}

func (a *app) newTemplateCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <json>",
		Short: "Create a field template",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := types.FieldTemplate{IsActive: true}
			if err := parseJSON(args[0], "template", &in); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				t, err := store.Types().CreateFieldTemplate(ctx, &in)
				if err != nil {
					return err
				}
				return a.emit(t, func() error {
					return a.printf("Created template %s: %s", t.TemplateName, t.ID)
				})
			})
		},
	}
}

func (a *app) newTemplateUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <json>",
		Short: "Replace a field template's definition",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				current, err := store.Types().GetFieldTemplate(ctx, args[0])
				if err != nil {
					return err
				}
				// Keys missing from the JSON keep their current value.
				in := *current
				if err := parseJSON(args[1], "template", &in); err != nil {
					return err
				}
				t, err := store.Types().UpdateFieldTemplate(ctx, args[0], &in)
				if err != nil {
					return err
				}
				return a.emit(t, func() error {
					return a.printf("Updated template %s", t.TemplateName)
				})
			})
		},
	}
}

func (a *app) newTemplateListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List field templates",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				list, err := store.Types().ListFieldTemplates(ctx, all)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, t := range list {
						rows = append(rows, []string{t.ID, t.TemplateName, t.FieldName, t.FieldType, yesNo(t.IsActive)})
					}
					return a.table([]string{"ID", "TEMPLATE", "FIELD", "TYPE", "ACTIVE"}, rows)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include inactive templates")
	return cmd
}

func (a *app) newTemplateDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a field template; linked fields are kept and unlinked",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if err := store.Types().DeleteFieldTemplate(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": args[0]}, func() error {
					return a.printf("Deleted template %s", args[0])
				})
			})
		},
	}
}

func (a *app) newTemplateApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <type> <template-id>",
		Short: "Add a field linked to a template to an object type",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				f, err := store.Types().AddFieldFromTemplate(ctx, ot.ID, args[1])
				if err != nil {
					return err
				}
				return a.emit(f, func() error {
					return a.printf("Added field %s to %s: %s", f.FieldName, ot.Name, f.ID)
				})
			})
		},
	}
}

func (a *app) newTemplatePropagateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "propagate <id>",
		Short: "Copy a template's definition onto every linked field",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				n, err := store.Types().PropagateTemplate(ctx, args[0])
				if err != nil {
					return err
				}
				return a.emit(map[string]int{"fields_updated": n}, func() error {
					return a.printf("Updated %d linked fields", n)
				})
			})
		},
	}
}

func (a *app) newTemplateDivergencesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "divergences",
		Short: "List linked fields whose lock setting differs from their template",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				list, err := store.Types().TemplateDivergences(ctx)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, d := range list {
						rows = append(rows, []string{d.TemplateName, d.FieldID, d.ObjectTypeID, yesNo(d.TemplateLock), yesNo(d.FieldLocked)})
					}
					return a.table([]string{"TEMPLATE", "FIELD", "TYPE", "TEMPLATE LOCK", "FIELD LOCK"}, rows)
				})
			})
		},
	}
}
