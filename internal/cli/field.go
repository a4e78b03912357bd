package cli

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Manage the fields of object types",
	}
	cmd.AddCommand(
		a.newFieldAddCmd(),
		a.newFieldUpdateCmd(),
		a.newFieldListCmd(),
		a.newFieldDeleteCmd(),
		a.newFieldOverrideCmd(),
	)
	return cmd
}

func (a *app) newFieldAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <type> <json>",
		Short: "Add a field to an object type",
		Long:  `Add a field from a JSON definition, e.g. '{"field_name":"längd","field_type":"number","is_required":true}'.`,
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f types.ObjectField
			if err := parseJSON(args[1], "field", &f); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				out, err := store.Types().AddField(ctx, ot.ID, &f)
				if err != nil {
					return err
				}
				return a.emit(out, func() error {
					return a.printf("Added field %s to %s: %s", out.FieldName, ot.Name, out.ID)
				})
			})
		},
	}
}

func (a *app) newFieldUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <field-id> <json-patch>",
		Short: "Update a field definition",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.ObjectFieldPatch
			if err := parseJSON(args[1], "field patch", &patch); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				f, err := store.Types().UpdateField(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return a.emit(f, func() error {
					return a.printf("Updated field %s", f.FieldName)
				})
			})
		},
	}
}

func (a *app) newFieldListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <type>",
		Short: "List the fields of an object type in display order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				fields, err := store.Types().ListFields(ctx, ot.ID)
				if err != nil {
					return err
				}
				return a.emit(fields, func() error {
					return a.table(fieldHeader, fieldRows(fields))
				})
			})
		},
	}
}

func (a *app) newFieldDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <field-id>",
		Short: "Delete a field that holds no values",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if err := store.Types().DeleteField(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": args[0]}, func() error {
					return a.printf("Deleted field %s", args[0])
				})
			})
		},
	}
}

func (a *app) newFieldOverrideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Manage per-object required overrides",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <object> <field-id> <true|false|clear>",
		Short: "Override whether a field is required for one object",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var required *bool
			if args[2] != "clear" {
				v, err := strconv.ParseBool(args[2])
				if err != nil {
					return usageError(errors.Wrapf(err, "override value %q", args[2]))
				}
				required = &v
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				if err := store.Types().SetRequiredOverride(ctx, o.ID, args[1], required); err != nil {
					return err
				}
				return a.emit(map[string]any{"object_id": o.ID, "field_id": args[1], "is_required_override": required}, func() error {
					return a.printf("Override for %s on %s: %s", args[1], o.BaseID, args[2])
				})
			})
		},
	}, &cobra.Command{
		Use:   "list <object>",
		Short: "List the required overrides of an object",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				list, err := store.Types().ListOverrides(ctx, o.ID)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, ov := range list {
						v := "clear"
						if ov.IsRequired != nil {
							v = strconv.FormatBool(*ov.IsRequired)
						}
						rows = append(rows, []string{ov.FieldID, v})
					}
					return a.table([]string{"FIELD", "REQUIRED"}, rows)
				})
			})
		},
	})
	return cmd
}
