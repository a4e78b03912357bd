package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newRelationTypeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relation-type",
		Aliases: []string{"reltype"},
		Short:   "Manage relation types",
	}
	cmd.AddCommand(
		a.newRelationTypeCreateCmd(),
		a.newRelationTypeListCmd(),
		a.newRelationTypeUpdateCmd(),
		a.newRelationTypeDeleteCmd(),
		a.newRelationTypeSeedCmd(),
	)
	return cmd
}

func (a *app) newRelationTypeCreateCmd() *cobra.Command {
	var (
		in                   types.RelationType
		sourceRef, targetRef string
	)
	cmd := &cobra.Command{
		Use:   "create <key>",
		Short: "Register a relation type",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Key = args[0]
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if sourceRef != "" {
					ot, err := resolveType(ctx, store, sourceRef)
					if err != nil {
						return err
					}
					in.SourceObjectTypeID = ot.ID
				}
				if targetRef != "" {
					ot, err := resolveType(ctx, store, targetRef)
					if err != nil {
						return err
					}
					in.TargetObjectTypeID = ot.ID
				}
				rt, err := store.Rules().CreateRelationType(ctx, &in)
				if err != nil {
					return err
				}
				return a.emit(rt, func() error {
					return a.printf("Registered relation type %s (%s)", rt.Key, rt.Cardinality)
				})
			})
		},
	}
	cmd.Flags().StringVar(&in.DisplayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&sourceRef, "source", "", "restrict sources to this object type")
	cmd.Flags().StringVar(&targetRef, "target", "", "restrict targets to this object type")
	cmd.Flags().StringVar(&in.Cardinality, "cardinality", "", "one_to_one, one_to_many, many_to_one or many_to_many")
	cmd.Flags().BoolVar(&in.IsDirected, "directed", true, "the relation has a direction")
	cmd.Flags().BoolVar(&in.IsComposition, "composition", false, "the source is composed of its targets")
	return cmd
}

func (a *app) newRelationTypeListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List relation types in registration order",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				list, err := store.Rules().ListRelationTypes(ctx)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, rt := range list {
						rows = append(rows, []string{rt.Key, rt.DisplayName, rt.Cardinality, yesNo(rt.IsDirected),
							orAny(rt.SourceObjectTypeID), orAny(rt.TargetObjectTypeID)})
					}
					return a.table([]string{"KEY", "NAME", "CARDINALITY", "DIRECTED", "SOURCE", "TARGET"}, rows)
				})
			})
		},
	}
}

func (a *app) newRelationTypeUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <key> <json-patch>",
		Short: "Update a relation type; the key cannot change",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.RelationTypePatch
			if err := parseJSON(args[1], "relation type patch", &patch); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				rt, err := store.Rules().UpdateRelationType(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return a.emit(rt, func() error {
					return a.printf("Updated relation type %s", rt.Key)
				})
			})
		},
	}
}

func (a *app) newRelationTypeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a relation type no rule or relation uses",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if err := store.Rules().DeleteRelationType(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": args[0]}, func() error {
					return a.printf("Deleted relation type %s", args[0])
				})
			})
		},
	}
}

func (a *app) newRelationTypeSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Register the canonical relation types that are missing",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				n, err := store.Rules().SeedRelationTypes(ctx)
				if err != nil {
					return err
				}
				return a.emit(map[string]int{"added": n}, func() error {
					return a.printf("Added %d relation types", n)
				})
			})
		},
	}
}

func orAny(id string) string {
	if id == "" {
		return "any"
	}
	return id
}
