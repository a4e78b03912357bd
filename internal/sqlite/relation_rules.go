package sqlite

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/rules"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

const ruleColumns = `id, source_object_type_id, target_object_type_id, relation_type, is_allowed, created_at, updated_at`

func hydrateRule(row scanner) (*types.RelationTypeRule, error) {
	var (
		r                    types.RelationTypeRule
		allowed              bool
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.SourceObjectTypeID, &r.TargetObjectTypeID, &r.RelationType,
		&allowed, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.IsAllowed = allowed
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func loadRule(ctx context.Context, q dbtx, id string) (*types.RelationTypeRule, error) {
	row := q.QueryRowContext(ctx, "SELECT "+ruleColumns+" FROM relation_type_rules WHERE id = ?", id)
	r, err := hydrateRule(row)
	if err != nil {
		return nil, notFound(err, types.ErrRuleNotFound, id)
	}
	return r, nil
}

// pairRule returns the rule for the ordered pair, or nil when none exists.
func pairRule(ctx context.Context, q dbtx, sourceTypeID, targetTypeID string) (*types.RelationTypeRule, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM relation_type_rules WHERE source_object_type_id = ? AND target_object_type_id = ?",
		sourceTypeID, targetTypeID,
	)
	r, err := hydrateRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading pair rule")
	}
	return r, nil
}

// acceptedRelationKey normalizes key and checks it is registered. The
// configured default is accepted even when unregistered, since matrix
// backfill writes it regardless of seeding.
func (e *ruleEngine) acceptedRelationKey(ctx context.Context, q dbtx, key string) (string, error) {
	key = relationKey(key)
	known, err := relationTypeKnown(ctx, q, key)
	if err != nil {
		return "", err
	}
	if !known && key != e.backend.Config().DefaultRelationType() {
		return "", errors.Wrapf(types.ErrUnknownRelationType, "key %q", key)
	}
	return key, nil
}

func (e *ruleEngine) validateRule(ctx context.Context, q dbtx, r *types.RelationTypeRule) error {
	if r.SourceObjectTypeID == r.TargetObjectTypeID {
		return errors.Wrapf(types.ErrSamePairTypes, "type %s", r.SourceObjectTypeID)
	}
	for _, id := range []string{r.SourceObjectTypeID, r.TargetObjectTypeID} {
		if _, err := loadObjectType(ctx, q, id); err != nil {
			return err
		}
	}
	key, err := e.acceptedRelationKey(ctx, q, r.RelationType)
	if err != nil {
		return err
	}
	r.RelationType = key
	return nil
}

// writeRule inserts or replaces the rule for r's ordered pair.
func writeRule(ctx context.Context, q dbtx, r types.RelationTypeRule, ts string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO relation_type_rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_object_type_id, target_object_type_id) DO UPDATE SET
		 relation_type = excluded.relation_type, is_allowed = excluded.is_allowed, updated_at = excluded.updated_at`,
		generateUUID(), r.SourceObjectTypeID, r.TargetObjectTypeID, r.RelationType, boolInt(r.IsAllowed), ts, ts,
	)
	return errors.Wrap(err, "writing rule")
}

// syncReverse blocks the reverse of an allowed pair so that a relation
// between two types has a single direction.
func syncReverse(ctx context.Context, q dbtx, sourceTypeID, targetTypeID, relationType string) error {
	return writeRule(ctx, q, types.RelationTypeRule{
		SourceObjectTypeID: targetTypeID,
		TargetObjectTypeID: sourceTypeID,
		RelationType:       relationType,
		IsAllowed:          false,
	}, formatTime(nowUTC()))
}

// UpsertRule writes the rule for its ordered pair. An allowed rule blocks
// the reverse pair in the same transaction.
func (e *ruleEngine) UpsertRule(ctx context.Context, rule types.RelationTypeRule) (*types.RelationTypeRule, error) {
	var out *types.RelationTypeRule
	err := e.backend.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.validateRule(ctx, tx, &rule); err != nil {
			return err
		}
		if err := writeRule(ctx, tx, rule, formatTime(nowUTC())); err != nil {
			return err
		}
		if rule.IsAllowed {
			if err := syncReverse(ctx, tx, rule.SourceObjectTypeID, rule.TargetObjectTypeID, rule.RelationType); err != nil {
				return err
			}
		}
		var err error
		out, err = pairRule(ctx, tx, rule.SourceObjectTypeID, rule.TargetObjectTypeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.backend.log.Debugw("rule written",
		"source_type", out.SourceObjectTypeID, "target_type", out.TargetObjectTypeID,
		"relation_type", out.RelationType, "allowed", out.IsAllowed)
	return out, nil
}

// UpdateRule changes an existing rule. Moving it onto a pair that already
// has a rule fails with ErrRuleExists.
func (e *ruleEngine) UpdateRule(ctx context.Context, id string, patch types.RelationTypeRulePatch) (*types.RelationTypeRule, error) {
	var out *types.RelationTypeRule
	err := e.backend.withTx(ctx, func(tx *sql.Tx) error {
		r, err := loadRule(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.SourceObjectTypeID != nil {
			r.SourceObjectTypeID = *patch.SourceObjectTypeID
		}
		if patch.TargetObjectTypeID != nil {
			r.TargetObjectTypeID = *patch.TargetObjectTypeID
		}
		if patch.RelationType != nil {
			r.RelationType = *patch.RelationType
		}
		if patch.IsAllowed != nil {
			r.IsAllowed = *patch.IsAllowed
		}
		if err := e.validateRule(ctx, tx, r); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE relation_type_rules SET source_object_type_id = ?, target_object_type_id = ?,
			 relation_type = ?, is_allowed = ?, updated_at = ? WHERE id = ?`,
			r.SourceObjectTypeID, r.TargetObjectTypeID, r.RelationType, boolInt(r.IsAllowed),
			formatTime(nowUTC()), r.ID,
		)
		if isUniqueViolation(err, "") {
			return errors.Wrapf(types.ErrRuleExists, "pair %s -> %s", r.SourceObjectTypeID, r.TargetObjectTypeID)
		}
		if err != nil {
			return errors.Wrap(err, "updating rule")
		}
		if r.IsAllowed {
			if err := syncReverse(ctx, tx, r.SourceObjectTypeID, r.TargetObjectTypeID, r.RelationType); err != nil {
				return err
			}
		}
		out, err = loadRule(ctx, tx, r.ID)
		return err
	})
	return out, err
}

// GetRule returns the rule with the given id.
func (e *ruleEngine) GetRule(ctx context.Context, id string) (*types.RelationTypeRule, error) {
	db, err := e.backend.conn()
	if err != nil {
		return nil, err
	}
	return loadRule(ctx, db, id)
}

// DeleteRule removes a rule. The reverse pair keeps whatever it holds.
func (e *ruleEngine) DeleteRule(ctx context.Context, id string) error {
	db, err := e.backend.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM relation_type_rules WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting rule")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(types.ErrRuleNotFound, "id %s", id)
	}
	return nil
}

// ListRules returns every rule in registration order.
func (e *ruleEngine) ListRules(ctx context.Context) ([]*types.RelationTypeRule, error) {
	db, err := e.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, "SELECT "+ruleColumns+" FROM relation_type_rules ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrap(err, "listing rules")
	}
	defer rows.Close()

	var out []*types.RelationTypeRule
	for rows.Next() {
		r, err := hydrateRule(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning rule")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "listing rules")
}

// ResolvePairRule returns the rule for the ordered pair, or nil.
func (e *ruleEngine) ResolvePairRule(ctx context.Context, sourceTypeID, targetTypeID string) (*types.RelationTypeRule, error) {
	db, err := e.backend.conn()
	if err != nil {
		return nil, err
	}
	return pairRule(ctx, db, sourceTypeID, targetTypeID)
}

// SyncReverse blocks the reverse of the given pair.
func (e *ruleEngine) SyncReverse(ctx context.Context, sourceTypeID, targetTypeID, relationType string) error {
	return e.backend.withTx(ctx, func(tx *sql.Tx) error {
		if sourceTypeID == targetTypeID {
			return errors.Wrapf(types.ErrSamePairTypes, "type %s", sourceTypeID)
		}
		key, err := e.acceptedRelationKey(ctx, tx, relationType)
		if err != nil {
			return err
		}
		return syncReverse(ctx, tx, sourceTypeID, targetTypeID, key)
	})
}

// EnsureCompleteMatrix gives every ordered pair of distinct object types a
// rule. Missing pairs get an allowed rule of the default relation type;
// existing rules are never changed.
func (e *ruleEngine) EnsureCompleteMatrix(ctx context.Context) (int, error) {
	defaultKey := e.backend.Config().DefaultRelationType()
	created := 0
	err := e.backend.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT s.id, t.id FROM object_types s
			 JOIN object_types t ON t.id <> s.id
			 LEFT JOIN relation_type_rules r
			   ON r.source_object_type_id = s.id AND r.target_object_type_id = t.id
			 WHERE r.id IS NULL
			 ORDER BY s.rowid, t.rowid`,
		)
		if err != nil {
			return errors.Wrap(err, "finding missing pairs")
		}
		type pair struct{ source, target string }
		var missing []pair
		for rows.Next() {
			var p pair
			if err := rows.Scan(&p.source, &p.target); err != nil {
				rows.Close()
				return errors.Wrap(err, "scanning pair")
			}
			missing = append(missing, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return errors.Wrap(err, "finding missing pairs")
		}

		ts := formatTime(nowUTC())
		for _, p := range missing {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO relation_type_rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, 1, ?, ?)
				 ON CONFLICT (source_object_type_id, target_object_type_id) DO NOTHING`,
				generateUUID(), p.source, p.target, defaultKey, ts, ts,
			)
			if err != nil {
				return errors.Wrap(err, "inserting default rule")
			}
			if n, _ := res.RowsAffected(); n > 0 {
				created++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

// objectEndpoint resolves the object type of an object.
func objectEndpoint(ctx context.Context, q dbtx, objectID string) (rules.Endpoint, error) {
	var ep rules.Endpoint
	err := q.QueryRowContext(ctx,
		`SELECT t.id, t.name FROM objects o JOIN object_types t ON t.id = o.object_type_id WHERE o.id = ?`,
		objectID,
	).Scan(&ep.TypeID, &ep.TypeName)
	if err != nil {
		return ep, notFound(err, types.ErrObjectNotFound, objectID)
	}
	return ep, nil
}

const candidateSelect = `SELECT rt.key, rt.source_object_type_id, s.name, rt.target_object_type_id, t.name
	FROM relation_types rt
	LEFT JOIN object_types s ON s.id = rt.source_object_type_id
	LEFT JOIN object_types t ON t.id = rt.target_object_type_id`

func hydrateCandidate(row scanner) (rules.Candidate, error) {
	var (
		c                    rules.Candidate
		sourceID, sourceName sql.NullString
		targetID, targetName sql.NullString
	)
	if err := row.Scan(&c.Key, &sourceID, &sourceName, &targetID, &targetName); err != nil {
		return c, err
	}
	if sourceID.Valid {
		c.Source = &rules.Endpoint{TypeID: sourceID.String, TypeName: sourceName.String}
	}
	if targetID.Valid {
		c.Target = &rules.Endpoint{TypeID: targetID.String, TypeName: targetName.String}
	}
	return c, nil
}

// relationCandidates returns every relation type with resolved constraints
// in registration order.
func relationCandidates(ctx context.Context, q dbtx) ([]rules.Candidate, error) {
	rows, err := q.QueryContext(ctx, candidateSelect+" ORDER BY rt.rowid")
	if err != nil {
		return nil, errors.Wrap(err, "loading relation types")
	}
	defer rows.Close()

	var out []rules.Candidate
	for rows.Next() {
		c, err := hydrateCandidate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning relation type")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "loading relation types")
}

// checkScope validates that key's constraints accept the endpoints. An
// unregistered key passes only when it is the default relation type.
func (e *ruleEngine) checkScope(ctx context.Context, q dbtx, key string, source, target rules.Endpoint) error {
	key = relationKey(key)
	c, err := hydrateCandidate(q.QueryRowContext(ctx, candidateSelect+" WHERE rt.key = ?", key))
	if errors.Is(err, sql.ErrNoRows) {
		if key == e.backend.Config().DefaultRelationType() {
			return nil
		}
		return errors.Wrapf(types.ErrUnknownRelationType, "key %q", key)
	}
	if err != nil {
		return errors.Wrap(err, "loading relation type")
	}
	return rules.CheckScope(c, source, target)
}

// ValidateScope checks relationType's source and target constraints against
// the two objects' types.
func (e *ruleEngine) ValidateScope(ctx context.Context, relationType, sourceObjectID, targetObjectID string) error {
	db, err := e.backend.conn()
	if err != nil {
		return err
	}
	source, err := objectEndpoint(ctx, db, sourceObjectID)
	if err != nil {
		return err
	}
	target, err := objectEndpoint(ctx, db, targetObjectID)
	if err != nil {
		return err
	}
	return e.checkScope(ctx, db, relationType, source, target)
}

// infer picks the relation type for a pair of endpoints. An allowed pair
// rule decides outright; otherwise the most specific matching relation type
// wins, then fallback.
func (e *ruleEngine) infer(ctx context.Context, q dbtx, source, target rules.Endpoint, fallback string) (string, error) {
	if fallback == "" {
		fallback = e.backend.Config().DefaultRelationType()
	}
	rule, err := pairRule(ctx, q, source.TypeID, target.TypeID)
	if err != nil {
		return "", err
	}
	if rule != nil && rule.IsAllowed {
		return rule.RelationType, nil
	}
	cands, err := relationCandidates(ctx, q)
	if err != nil {
		return "", err
	}
	return rules.Best(cands, source, target, fallback), nil
}

// Infer returns the relation type to use between two objects when the
// caller did not name one.
func (e *ruleEngine) Infer(ctx context.Context, sourceObjectID, targetObjectID, fallback string) (string, error) {
	db, err := e.backend.conn()
	if err != nil {
		return "", err
	}
	source, err := objectEndpoint(ctx, db, sourceObjectID)
	if err != nil {
		return "", err
	}
	target, err := objectEndpoint(ctx, db, targetObjectID)
	if err != nil {
		return "", err
	}
	return e.infer(ctx, db, source, target, fallback)
}
