package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

func (a *app) newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage the relation rules between pairs of object types",
	}
	cmd.AddCommand(
		a.newRuleSetCmd(),
		a.newRuleUpdateCmd(),
		a.newRuleListCmd(),
		a.newRuleDeleteCmd(),
		a.newRuleResolveCmd(),
		a.newRuleCheckCmd(),
		a.newRuleMatrixCmd(),
	)
	return cmd
}

func (a *app) newRuleSetCmd() *cobra.Command {
	var blocked bool
	cmd := &cobra.Command{
		Use:   "set <source-type> <target-type> <relation-type>",
		Short: "Set the rule for an ordered pair of object types",
		Long: "Set the rule for an ordered pair of object types. An allowed rule also\n" +
			"blocks the reverse pair, so relations between the two types have one direction.",
		Args: exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				source, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				target, err := resolveType(ctx, store, args[1])
				if err != nil {
					return err
				}
				rule, err := store.Rules().UpsertRule(ctx, types.RelationTypeRule{
					SourceObjectTypeID: source.ID,
					TargetObjectTypeID: target.ID,
					RelationType:       args[2],
					IsAllowed:          !blocked,
				})
				if err != nil {
					return err
				}
				return a.emit(rule, func() error {
					verb := "allows"
					if !rule.IsAllowed {
						verb = "blocks"
					}
					return a.printf("%s -> %s %s %s", source.Name, target.Name, verb, rule.RelationType)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&blocked, "blocked", false, "block relations for the pair instead of allowing them")
	return cmd
}

func (a *app) newRuleUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <json-patch>",
		Short: "Update a rule",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch types.RelationTypeRulePatch
			if err := parseJSON(args[1], "rule patch", &patch); err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				rule, err := store.Rules().UpdateRule(ctx, args[0], patch)
				if err != nil {
					return err
				}
				return a.emit(rule, func() error {
					return a.printf("Updated rule %s", rule.ID)
				})
			})
		},
	}
}

var ruleHeader = []string{"ID", "SOURCE", "TARGET", "RELATION TYPE", "ALLOWED"}

func ruleRow(r *types.RelationTypeRule, names map[string]string) []string {
	return []string{r.ID, names[r.SourceObjectTypeID], names[r.TargetObjectTypeID], r.RelationType, yesNo(r.IsAllowed)}
}

// typeNames maps object type ids to names for display.
func typeNames(ctx context.Context, store types.Store) (map[string]string, error) {
	list, err := store.Types().ListObjectTypes(ctx, false)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(list))
	for _, ot := range list {
		names[ot.ID] = ot.Name
	}
	return names, nil
}

func (a *app) newRuleListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all rules",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				list, err := store.Rules().ListRules(ctx)
				if err != nil {
					return err
				}
				return a.emit(list, func() error {
					names, err := typeNames(ctx, store)
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(list))
					for _, r := range list {
						rows = append(rows, ruleRow(r, names))
					}
					return a.table(ruleHeader, rows)
				})
			})
		},
	}
}

func (a *app) newRuleDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a rule",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				if err := store.Rules().DeleteRule(ctx, args[0]); err != nil {
					return err
				}
				return a.emit(map[string]string{"deleted": args[0]}, func() error {
					return a.printf("Deleted rule %s", args[0])
				})
			})
		},
	}
}

func (a *app) newRuleResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <source-type> <target-type>",
		Short: "Show the rule for an ordered pair of object types",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				source, err := resolveType(ctx, store, args[0])
				if err != nil {
					return err
				}
				target, err := resolveType(ctx, store, args[1])
				if err != nil {
					return err
				}
				rule, err := store.Rules().ResolvePairRule(ctx, source.ID, target.ID)
				if err != nil {
					return err
				}
				return a.emit(rule, func() error {
					if rule == nil {
						return a.printf("No rule for %s -> %s", source.Name, target.Name)
					}
					names := map[string]string{source.ID: source.Name, target.ID: target.Name}
					return a.table(ruleHeader, [][]string{ruleRow(rule, names)})
				})
			})
		},
	}
}

func (a *app) newRuleCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <relation-type> <source> <target>",
		Short: "Check a relation type's scope against two objects",
		Args:  exactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				source, err := resolveObject(ctx, store, args[1])
				if err != nil {
					return err
				}
				target, err := resolveObject(ctx, store, args[2])
				if err != nil {
					return err
				}
				if err := store.Rules().ValidateScope(ctx, args[0], source.ID, target.ID); err != nil {
					return err
				}
				return a.emit(map[string]bool{"valid": true}, func() error {
					return a.printf("%s is valid from %s to %s", args[0], source.FullID, target.FullID)
				})
			})
		},
	}
}

func (a *app) newRuleMatrixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Give every ordered pair of object types a rule",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(ctx context.Context, store types.Store) error {
				n, err := store.Rules().EnsureCompleteMatrix(ctx)
				if err != nil {
					return err
				}
				return a.emit(map[string]int{"rules_created": n}, func() error {
					return a.printf("Created %d default rules", n)
				})
			})
		},
	}
}
