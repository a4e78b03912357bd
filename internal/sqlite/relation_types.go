package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// ruleEngine implements types.RuleEngine. Relation types live in this file,
// pair rules and inference in relation_rules.go.
type ruleEngine struct {
	backend *Backend
}

var _ types.RuleEngine = (*ruleEngine)(nil)

const relationTypeColumns = `id, key, display_name, description, source_object_type_id, target_object_type_id,
	cardinality, is_directed, is_composition, inverse_relation_type_id, created_at, updated_at`

func hydrateRelationType(row scanner) (*types.RelationType, error) {
	var (
		rt                            types.RelationType
		displayName, description      sql.NullString
		sourceID, targetID, inverseID sql.NullString
		isDirected, isComposition     bool
		createdAt, updatedAt          string
	)
	err := row.Scan(&rt.ID, &rt.Key, &displayName, &description, &sourceID, &targetID,
		&rt.Cardinality, &isDirected, &isComposition, &inverseID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rt.DisplayName = displayName.String
	rt.Description = description.String
	rt.SourceObjectTypeID = sourceID.String
	rt.TargetObjectTypeID = targetID.String
	rt.IsDirected = isDirected
	rt.IsComposition = isComposition
	rt.InverseRelationTypeID = inverseID.String
	rt.CreatedAt = parseTime(createdAt)
	rt.UpdatedAt = parseTime(updatedAt)
	return &rt, nil
}

func relationKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func loadRelationType(ctx context.Context, q dbtx, key string) (*types.RelationType, error) {
	row := q.QueryRowContext(ctx, "SELECT "+relationTypeColumns+" FROM relation_types WHERE key = ?", relationKey(key))
	rt, err := hydrateRelationType(row)
	if err != nil {
		return nil, notFound(err, types.ErrRelationTypeNotFound, key)
	}
	return rt, nil
}

// validateRelationType normalizes key and cardinality and checks that the
// referenced types exist.
func validateRelationType(ctx context.Context, q dbtx, rt *types.RelationType) error {
	rt.Key = relationKey(rt.Key)
	if !types.ValidRelationKey(rt.Key) {
		return errors.Wrapf(types.ErrInvalidRelationKey, "key %q", rt.Key)
	}
	c, ok := types.NormalizeCardinality(rt.Cardinality)
	if !ok {
		return errors.Wrapf(types.ErrInvalidCardinality, "cardinality %q", rt.Cardinality)
	}
	rt.Cardinality = c
	for _, id := range []string{rt.SourceObjectTypeID, rt.TargetObjectTypeID} {
		if id == "" {
			continue
		}
		if _, err := loadObjectType(ctx, q, id); err != nil {
			return err
		}
	}
	if rt.InverseRelationTypeID != "" {
		var exists int
		err := q.QueryRowContext(ctx, "SELECT 1 FROM relation_types WHERE id = ?", rt.InverseRelationTypeID).Scan(&exists)
		if err != nil {
			return notFound(err, types.ErrRelationTypeNotFound, rt.InverseRelationTypeID)
		}
	}
	return nil
}

func insertRelationType(ctx context.Context, q dbtx, rt *types.RelationType, ignoreExisting bool) (bool, error) {
	ts := formatTime(nowUTC())
	verb := "INSERT"
	if ignoreExisting {
		verb = "INSERT OR IGNORE"
	}
	res, err := q.ExecContext(ctx,
		verb+" INTO relation_types ("+relationTypeColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generateUUID(), rt.Key, nullString(rt.DisplayName), nullString(rt.Description),
		nullString(rt.SourceObjectTypeID), nullString(rt.TargetObjectTypeID), rt.Cardinality,
		boolInt(rt.IsDirected), boolInt(rt.IsComposition), nullString(rt.InverseRelationTypeID), ts, ts,
	)
	if isUniqueViolation(err, "") {
		return false, errors.Wrapf(types.ErrDuplicateRelationKey, "key %q", rt.Key)
	}
	if err != nil {
		return false, errors.Wrap(err, "inserting relation type")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CreateRelationType registers a relation type. Keys are lower-case.
func (e *ruleEngine) CreateRelationType(ctx context.Context, in *types.RelationType) (*types.RelationType, error) {
	if in == nil {
		return nil, types.ErrInvalidRelationKey
	}
	rt := *in
	var out *types.RelationType
	err := e.backend.withTx(ctx, func(tx *sql.Tx) error {
		if err := validateRelationType(ctx, tx, &rt); err != nil {
			return err
		}
		if _, err := insertRelationType(ctx, tx, &rt, false); err != nil {
			return err
		}
		var err error
		out, err = loadRelationType(ctx, tx, rt.Key)
		return err
	})
	return out, err
}

// UpdateRelationType applies patch. An empty constraint clears it; the key
// cannot change.
func (e *ruleEngine) UpdateRelationType(ctx context.Context, key string, patch types.RelationTypePatch) (*types.RelationType, error) {
	var out *types.RelationType
	err := e.backend.withTx(ctx, func(tx *sql.Tx) error {
		rt, err := loadRelationType(ctx, tx, key)
		if err != nil {
			return err
		}
		if patch.DisplayName != nil {
			rt.DisplayName = *patch.DisplayName
		}
		if patch.Description != nil {
			rt.Description = *patch.Description
		}
		if patch.SourceObjectTypeID != nil {
			rt.SourceObjectTypeID = *patch.SourceObjectTypeID
		}
		if patch.TargetObjectTypeID != nil {
			rt.TargetObjectTypeID = *patch.TargetObjectTypeID
		}
		if patch.Cardinality != nil {
			rt.Cardinality = *patch.Cardinality
		}
		if patch.IsDirected != nil {
			rt.IsDirected = *patch.IsDirected
		}
		if patch.IsComposition != nil {
			rt.IsComposition = *patch.IsComposition
		}
		if patch.InverseRelationTypeID != nil {
			rt.InverseRelationTypeID = *patch.InverseRelationTypeID
		}
		if err := validateRelationType(ctx, tx, rt); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE relation_types SET display_name = ?, description = ?, source_object_type_id = ?,
			 target_object_type_id = ?, cardinality = ?, is_directed = ?, is_composition = ?,
			 inverse_relation_type_id = ?, updated_at = ? WHERE id = ?`,
			nullString(rt.DisplayName), nullString(rt.Description), nullString(rt.SourceObjectTypeID),
			nullString(rt.TargetObjectTypeID), rt.Cardinality, boolInt(rt.IsDirected), boolInt(rt.IsComposition),
			nullString(rt.InverseRelationTypeID), formatTime(nowUTC()), rt.ID,
		)
		if err != nil {
			return errors.Wrap(err, "updating relation type")
		}
		out, err = loadRelationType(ctx, tx, rt.Key)
		return err
	})
	return out, err
}

// GetRelationType returns the relation type with the given key.
func (e *ruleEngine) GetRelationType(ctx context.Context, key string) (*types.RelationType, error) {
	db, err := e.backend.conn()
	if err != nil {
		return nil, err
	}
	return loadRelationType(ctx, db, key)
}

// ListRelationTypes returns every relation type in registration order.
func (e *ruleEngine) ListRelationTypes(ctx context.Context) ([]*types.RelationType, error) {
	db, err := e.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+relationTypeColumns+" FROM relation_types ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrap(err, "listing relation types")
	}
	defer rows.Close()

	var out []*types.RelationType
	for rows.Next() {
		rt, err := hydrateRelationType(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning relation type")
		}
		out = append(out, rt)
	}
	return out, errors.Wrap(rows.Err(), "listing relation types")
}

// DeleteRelationType removes a relation type no rule or relation uses.
func (e *ruleEngine) DeleteRelationType(ctx context.Context, key string) error {
	return e.backend.withTx(ctx, func(tx *sql.Tx) error {
		rt, err := loadRelationType(ctx, tx, key)
		if err != nil {
			return err
		}
		var rules, relations int
		if err := tx.QueryRowContext(ctx,
			`SELECT (SELECT COUNT(*) FROM relation_type_rules WHERE relation_type = ?),
			        (SELECT COUNT(*) FROM object_relations WHERE relation_type = ?)`,
			rt.Key, rt.Key,
		).Scan(&rules, &relations); err != nil {
			return errors.Wrap(err, "counting relation type usage")
		}
		if rules+relations > 0 {
			return errors.WithDetailf(errors.Wrapf(types.ErrRelationTypeInUse, "key %q", rt.Key),
				"%d rules, %d relations", rules, relations)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM relation_types WHERE id = ?", rt.ID); err != nil {
			return errors.Wrap(err, "deleting relation type")
		}
		return nil
	})
}

// relationTypeKnown reports whether key is registered.
func relationTypeKnown(ctx context.Context, q dbtx, key string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM relation_types WHERE key = ?", relationKey(key)).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "looking up relation type")
	}
	return n > 0, nil
}
