package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newRelationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relation",
		Short: "Manage relations between objects",
	}
	cmd.AddCommand(
		a.newRelationCreateCmd(),
		a.newRelationBatchCmd(),
		a.newRelationListCmd(),
		a.newRelationUpdateCmd(),
		a.newRelationDeleteCmd(),
		a.newRelationInferCmd(),
	)
	return cmd
}

func (a *app) newRelationCreateCmd() *cobra.Command {
	var (
		in       types.RelationInput
		metadata string
	)
	cmd := &cobra.Command{
		Use:   "create <source> <target>",
		Short: "Relate two objects",
		Long: "Relate two objects, given by id or base identifier. Without --type, or with\n" +
			"the auto keyword, the relation type is inferred from the pair.",
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if metadata != "" {
				if err := parseJSON(metadata, "metadata", &in.Metadata); err != nil {
					return err
				}
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				source, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				target, err := resolveObject(ctx, store, args[1])
				if err != nil {
					return err
				}
				in.TargetObjectID = target.ID
				rel, err := store.Relations().CreateRelation(ctx, source.ID, in)
				if err != nil {
					return err
				}
				return a.emit(rel, func() error {
					return a.printf("%s %s %s: %s", source.FullID, rel.RelationType, target.FullID, rel.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&in.RelationType, "type", "", "relation type key (default: inferred)")
	cmd.Flags().StringVar(&in.Description, "description", "", "description")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON object stored with the relation")
	return cmd
}

func (a *app) newRelationBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <source> <json-array>",
		Short: "Create several relations from one source",
		Long: `Create relations from a JSON array, e.g. '[{"target_object_id":"...","relation_type":"applies_to"}]'.
Entries that fail are reported; the others are created.`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in []types.RelationInput
			if err := parseJSON(args[1], "relations", &in); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				source, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				// Targets may be given by base identifier; unknown ones are
				// left for the batch to report.
				for i := range in {
					if t, err := resolveObject(ctx, store, in[i].TargetObjectID); err == nil {
						in[i].TargetObjectID = t.ID
					}
				}
				res, err := store.Relations().CreateRelationsBatch(ctx, source.ID, in)
				if err != nil {
					return err
				}
				return a.emit(res, func() error {
					if err := a.printf("Created %d of %d relations", len(res.Created), len(in)); err != nil {
						return err
					}
					if len(res.Errors) == 0 {
						return nil
					}
					return a.table([]string{"INDEX", "TARGET", "CLASS", "ERROR"}, batchErrorRows(res.Errors))
				})
			})
		},
	}
}

func (a *app) newRelationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <object>",
		Short: "List the relations of an object in both directions",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				o, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				list, err := store.Relations().ListRelations(ctx, o.ID)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					rows := make([][]string, 0, len(list))
					for _, r := range list {
						other := r.TargetObjectID
						if r.Direction == types.DirectionIncoming {
							other = r.SourceObjectID
						}
						rows = append(rows, []string{r.ID, r.Direction, r.RelationType, other, r.Description})
					}
					return a.table([]string{"ID", "DIRECTION", "TYPE", "OTHER", "DESCRIPTION"}, rows)
				})
			})
		},
	}
}

func (a *app) newRelationUpdateCmd() *cobra.Command {
	var description, metadata string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a relation's description or metadata",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.RelationPatch
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("metadata") {
				patch.Metadata = map[string]any{}
				if err := parseJSON(metadata, "metadata", &patch.Metadata); err != nil {
					return err
				}
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				rel, err := store.Relations().UpdateRelation(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return a.emit(rel, func() error {
					return a.printf("Updated relation %s", rel.ID)
				})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON object replacing the metadata; {} clears it")
	return cmd
}

func (a *app) newRelationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a relation",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if err := store.Relations().DeleteRelation(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": args[0]}, func() error {
					return a.printf("Deleted relation %s", args[0])
				})
			})
		},
	}
}

func (a *app) newRelationInferCmd() *cobra.Command {
	var fallback string
	cmd := &cobra.Command{
		Use:   "infer <source> <target>",
		Short: "Show the relation type that would be inferred for a pair",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				source, err := resolveObject(ctx, store, args[0])
				if err != nil {
					return err
				}
				target, err := resolveObject(ctx, store, args[1])
				if err != nil {
					return err
				}
				key, err := store.Rules().Infer(ctx, source.ID, target.ID, fallback)
				if err != nil {
					return err
				}
				return a.emit(map[string]string{"relation_type": key}, func() error {
					return a.printf("%s", key)
				})
			})
		},
	}
	cmd.Flags().StringVar(&fallback, "fallback", "", "key to use when nothing matches (default: relations.default_type)")
	return cmd
}
