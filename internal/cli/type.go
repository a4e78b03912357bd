package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Manage object types",
	}
	cmd.AddCommand(a.newTypeCreateCmd(), a.newTypeListCmd(), a.newTypeGetCmd(), a.newTypeUpdateCmd(), a.newTypeDeleteCmd())
	return cmd
}

func (a *app) newTypeCreateCmd() *cobra.Command {
	var in types.ObjectType
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an object type with its namn field",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := store.Types().CreateObjectType(ctx, &in)
				if err != nil {
					return err
				}
				return a.emit(ot, func() error {
					return a.printf("Created object type %s (prefix %s): %s", ot.Name, typePrefix(ot), ot.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&in.IDPrefix, "prefix", "", "identifier prefix (default: derived from the name)")
	cmd.Flags().StringVar(&in.Color, "color", "", "display color from the palette")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().BoolVar(&in.IsSystem, "system", false, "protect the type from deletion")
	return cmd
}

func (a *app) newTypeListCmd() *cobra.Command {
	var withFields bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List object types",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				list, err := store.Types().ListObjectTypes(ctx, withFields)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, ot := range list {
						rows = append(rows, []string{ot.ID, ot.Name, typePrefix(ot), ot.Color, yesNo(ot.IsSystem)})
					}
					return a.table([]string{"ID", "NAME", "PREFIX", "COLOR", "SYSTEM"}, rows)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&withFields, "fields", false, "include field definitions")
	return cmd
}

func (a *app) newTypeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|name>",
		Short: "Show an object type and its fields",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				return a.emit(ot, func() error {
					if err := a.printf("%s (%s, prefix %s)", ot.Name, ot.ID, typePrefix(ot)); err != nil {
						return err
					}
					return a.table(fieldHeader, fieldRows(ot.Fields))
				})
			})
		},
	}
}

func (a *app) newTypeUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id|name> <json-patch>",
		Short: "Update an object type",
		Long:  `Apply a JSON patch, e.g. '{"name":"Byggdel","color":"#4caf50"}'. Omitted keys are left alone.`,
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.ObjectTypePatch
			if err := parseJSON(args[1], "object type patch", &patch); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				if ot, err = store.Types().UpdateObjectType(ctx, ot.ID, patch); err != nil {
					return err
				}
				return a.emit(ot, func() error {
					return a.printf("Updated object type %s", ot.Name)
				})
			})
		},
	}
}

func (a *app) newTypeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|name>",
		Short: "Delete an object type that owns no objects",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				if err := store.Types().DeleteObjectType(ctx, ot.ID); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": ot.ID}, func() error {
					return a.printf("Deleted object type %s", ot.Name)
				})
			})
		},
	}
}

func typePrefix(ot *types.ObjectType) string {
	if ot.IDPrefix != "" {
		return ot.IDPrefix
	}
	return "-"
}

var fieldHeader = []string{"ID", "FIELD", "TYPE", "REQUIRED", "LOCKED", "ORDER"}

func fieldRows(fields []*types.ObjectField) [][]string {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{
			f.ID, f.FieldName, f.FieldType, yesNo(f.IsRequired), yesNo(f.LockRequiredSetting),
			fmt.Sprint(f.DisplayOrder),
		})
	}
	return rows
}
