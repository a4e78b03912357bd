package sqlite

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// builtInRelationType describes a relation type registered by
// SeedRelationTypes.
type builtInRelationType struct {
	key         string
	displayName string
	description string
	cardinality string
	directed    bool
	composition bool
}

// builtInRelationTypes are the canonical relation types. None is scoped;
// the rule matrix decides which pairs use them.
var builtInRelationTypes = []builtInRelationType{
	{
		key:         types.DefaultRelationType,
		displayName: "Använder",
		description: "Source uses the target object",
		cardinality: types.CardinalityManyToMany,
		directed:    true,
	},
	{
		key:         "references_object",
		displayName: "Refererar till",
		description: "Source refers to the target object",
		cardinality: types.CardinalityManyToMany,
		directed:    true,
	},
	{
		key:         "applies_to",
		displayName: "Gäller för",
		description: "Source applies to the target object",
		cardinality: types.CardinalityManyToMany,
		directed:    true,
	},
	{
		key:         "connects_to",
		displayName: "Ansluter till",
		description: "Objects are connected to each other",
		cardinality: types.CardinalityManyToMany,
	},
	{
		key:         "contains",
		displayName: "Innehåller",
		description: "Source is composed of the target objects",
		cardinality: types.CardinalityOneToMany,
		directed:    true,
		composition: true,
	},
}

// SeedRelationTypes registers every built-in relation type whose key is
// missing. Existing keys are left untouched, so seeding is idempotent.
func (e *ruleEngine) SeedRelationTypes(ctx context.Context) (int, error) {
	added := 0
	err := e.backend.withTx(ctx, func(tx *sql.Tx) error {
		for _, bt := range builtInRelationTypes {
			inserted, err := insertRelationType(ctx, tx, &types.RelationType{
				Key:           bt.key,
				DisplayName:   bt.displayName,
				Description:   bt.description,
				Cardinality:   bt.cardinality,
				IsDirected:    bt.directed,
				IsComposition: bt.composition,
			}, true)
			if err != nil {
				return err
			}
			if inserted {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}
