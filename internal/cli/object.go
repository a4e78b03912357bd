package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newObjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object",
		Short: "Manage objects",
	}
	cmd.AddCommand(
		a.newObjectCreateCmd(),
		a.newObjectGetCmd(),
		a.newObjectListCmd(),
		a.newObjectUpdateCmd(),
		a.newObjectDeleteCmd(),
		a.newObjectDuplicateCmd(),
	)
	return cmd
}

func (a *app) newObjectCreateCmd() *cobra.Command {
	var status, createdBy string
	cmd := &cobra.Command{
		Use:   "create <type> [json-data]",
		Short: "Create an object; its identifier is allocated from the type's prefix",
		Long:  `Create an object from field values keyed by field name, e.g. '{"namn":"Yttervägg","längd":2.5}'.`,
		Args:  rangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := map[string]any{}
			if len(args) == 2 {
				if err := parseJSON(args[1], "object data", &values); err != nil {
					return err
				}
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				ot, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				o, err := store.Objects().CreateObject(ctx, types.CreateObjectInput{
					ObjectTypeID: ot.ID,
					Values:       values,
					Status:       status,
					CreatedBy:    createdBy,
				})
				if err != nil {
					return err
				}
				return a.emit(o, func() error {
					return a.printf("Created %s %s: %s", ot.Name, o.FullID, o.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "object status")
	cmd.Flags().StringVar(&createdBy, "created-by", "", "author recorded on the object")
	return cmd
}

func (a *app) newObjectGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|base-id>",
		Short: "Show an object with its data",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				return a.emit(o, func() error {
					if err := a.printf("%s %s (%s, %s)", o.ObjectTypeName, o.FullID, o.ID, o.Status); err != nil {
						return err
					}
					rows := make([][]string, 0, len(o.Data))
					for _, k := range slices.Sorted(maps.Keys(o.Data)) {
						rows = append(rows, []string{k, fmt.Sprint(o.Data[k])})
					}
					return a.table([]string{"FIELD", "VALUE"}, rows)
				})
			})
		},
	}
}

func (a *app) newObjectListCmd() *cobra.Command {
	var (
		typeRef string
		filter  types.ObjectFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List objects in creation order",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if typeRef != "" {
					ot, err := resolveType(ctx, store, typeRef)
					if err != nil {
						return err
					}
					filter.ObjectTypeID = ot.ID
				}
				list, err := store.Objects().ListObjects(ctx, filter)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, o := range list {
						rows = append(rows, []string{o.ID, o.FullID, o.ObjectTypeName, objectName(o), o.Status})
					}
					return a.table([]string{"ID", "FULL ID", "TYPE", "NAMN", "STATUS"}, rows)
				})
			})
		},
	}
	cmd.Flags().StringVar(&typeRef, "type", "", "only objects of this type (id or name)")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only objects with this status")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of objects")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "number of objects to skip")
	return cmd
}

func (a *app) newObjectUpdateCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "update <id|base-id> <json-data>",
		Short: "Replace an object's data",
		Long:  "Replace an object's data. Fields missing from the JSON are cleared; required fields must be present.",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := types.UpdateObjectInput{}
			if err := parseJSON(args[1], "object data", &in.Values); err != nil {
				return err
			}
			if cmd.Flags().Changed("status") {
				in.Status = &status
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				if o, err = store.Objects().UpdateObject(ctx, o.ID, in); err != nil {
					return err
				}
				return a.emit(o, func() error {
					return a.printf("Updated %s", o.FullID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	return cmd
}

func (a *app) newObjectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|base-id>",
		Short: "Delete an object with its values and relations",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				if err := store.Objects().DeleteObject(ctx, o.ID); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": o.ID}, func() error {
					return a.printf("Deleted %s", o.FullID)
				})
			})
		},
	}
}

func (a *app) newObjectDuplicateCmd() *cobra.Command {
	var (
		overrides, relations string
		in                   types.DuplicateInput
	)
	cmd := &cobra.Command{
		Use:   "duplicate <id|base-id>",
		Short: "Copy an object under a fresh identifier",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if overrides != "" {
				if err := parseJSON(overrides, "overrides", &in.Overrides); err != nil {
					return err
				}
			}
			if relations != "" {
				if err := parseJSON(relations, "relations", &in.Relations); err != nil {
					return err
				}
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				res, err := store.Objects().DuplicateObject(ctx, o.ID, in)
				if err != nil {
					return err
				}
				return a.emit(res, func() error {
					if err := a.printf("Duplicated %s as %s with %d relations", o.FullID, res.Object.FullID, len(res.Relations)); err != nil {
						return err
					}
					if len(res.RelationErrors) == 0 {
						return nil
					}
					return a.table([]string{"INDEX", "TARGET", "CLASS", "ERROR"}, batchErrorRows(res.RelationErrors))
				})
			})
		},
	}
	cmd.Flags().StringVar(&overrides, "overrides", "", "JSON object of field values replacing the copied ones")
	cmd.Flags().BoolVar(&in.CopyRelations, "copy-relations", false, "copy the source's outgoing relations")
	cmd.Flags().StringVar(&relations, "relations", "", "JSON array of extra relations from the copy")
	cmd.Flags().StringVar(&in.CreatedBy, "created-by", "", "author recorded on the copy")
	return cmd
}

// objectName returns the namn value of o, or "" when it has none.
func objectName(o *types.Object) string {
	if v, ok := o.Data[types.NameFieldName]; ok && v != nil {
		return fmt.Sprint(v)
	}
	return ""
}
