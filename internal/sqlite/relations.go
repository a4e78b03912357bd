package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/ident"
	"github.com/mesh-intelligence/typegraph/internal/rules"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// relationGraph implements types.RelationGraph.
type relationGraph struct {
	backend *Backend
}

var _ types.RelationGraph = (*relationGraph)(nil)

const relationColumns = `id, source_object_id, target_object_id, relation_type, description, metadata, created_at, updated_at`

func hydrateRelation(row scanner) (*types.ObjectRelation, error) {
	var (
		r                     types.ObjectRelation
		description, metadata sql.NullString
		createdAt, updatedAt  string
	)
	if err := row.Scan(&r.ID, &r.SourceObjectID, &r.TargetObjectID, &r.RelationType,
		&description, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	r.Description = description.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
			return nil, errors.Wrapf(err, "decoding metadata of relation %s", r.ID)
		}
	}
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func encodeMetadata(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, types.InCategory(errors.Wrap(err, "encoding metadata"), types.ErrValidation)
	}
	return string(data), nil
}

func loadRelation(ctx context.Context, q dbtx, id string) (*types.ObjectRelation, error) {
	row := q.QueryRowContext(ctx, "SELECT "+relationColumns+" FROM object_relations WHERE id = ?", id)
	r, err := hydrateRelation(row)
	if err != nil {
		return nil, notFound(err, types.ErrRelationNotFound, id)
	}
	return r, nil
}

// linkEnd is an object taking part in a relation.
type linkEnd struct {
	objectID string
	fullID   string
	rules.Endpoint
}

func loadLinkEnd(ctx context.Context, q dbtx, objectID string) (linkEnd, error) {
	e := linkEnd{objectID: objectID}
	err := q.QueryRowContext(ctx,
		`SELECT o.full_id, t.id, t.name FROM objects o JOIN object_types t ON t.id = o.object_type_id WHERE o.id = ?`,
		objectID,
	).Scan(&e.fullID, &e.TypeID, &e.TypeName)
	if err != nil {
		return e, notFound(err, types.ErrObjectNotFound, objectID)
	}
	return e, nil
}

// linkedFullIDs maps the normalized full identifier of every object related
// to objectID, in either direction, to the relation that links it.
func linkedFullIDs(ctx context.Context, q dbtx, objectID string) (map[string]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT r.id, o.full_id FROM object_relations r
		 JOIN objects o ON o.id = CASE WHEN r.source_object_id = ? THEN r.target_object_id ELSE r.source_object_id END
		 WHERE r.source_object_id = ? OR r.target_object_id = ?`,
		objectID, objectID, objectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading linked identifiers")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var relID, fullID string
		if err := rows.Scan(&relID, &fullID); err != nil {
			return nil, errors.Wrap(err, "scanning linked identifier")
		}
		out[ident.NormalizeFull(fullID)] = relID
	}
	return out, errors.Wrap(rows.Err(), "loading linked identifiers")
}

// resolveLink runs every check a new relation must pass and returns the
// relation type to store. The checks run in a fixed order: self relation,
// blocked pair, inference, registration, pair rule agreement, scope and
// finally the duplicate full identifier check against linked.
func (g *relationGraph) resolveLink(ctx context.Context, q dbtx, source linkEnd, in types.RelationInput, linked map[string]string) (string, linkEnd, error) {
	if in.TargetObjectID == source.objectID {
		return "", linkEnd{}, errors.Wrapf(types.ErrSelfRelation, "object %s", source.objectID)
	}
	target, err := loadLinkEnd(ctx, q, in.TargetObjectID)
	if err != nil {
		return "", target, err
	}

	rule, err := pairRule(ctx, q, source.TypeID, target.TypeID)
	if err != nil {
		return "", target, err
	}
	if rule != nil && !rule.IsAllowed {
		return "", target, &types.BlockedRelationError{SourceType: source.TypeName, TargetType: target.TypeName}
	}

	engine := g.backend.ruleEngine
	cfg := g.backend.Config()
	key := relationKey(in.RelationType)
	if key == "" || key == relationKey(cfg.AutoKeyword()) {
		if key, err = engine.infer(ctx, q, source.Endpoint, target.Endpoint, cfg.DefaultRelationType()); err != nil {
			return "", target, err
		}
	}
	known, err := relationTypeKnown(ctx, q, key)
	if err != nil {
		return "", target, err
	}
	if !known && key != cfg.DefaultRelationType() {
		return "", target, errors.Wrapf(types.ErrUnknownRelationType, "key %q", key)
	}
	if rule != nil && rule.RelationType != key {
		return "", target, &types.ScopeViolationError{
			RelationType: key,
			Endpoint:     "pair",
			Expected:     rule.RelationType,
			Actual:       key,
		}
	}
	if err := engine.checkScope(ctx, q, key, source.Endpoint, target.Endpoint); err != nil {
		return "", target, err
	}

	full := ident.NormalizeFull(target.fullID)
	if relID, ok := linked[full]; ok {
		return "", target, &types.DuplicateLinkError{FullID: full, RelationID: relID}
	}
	return key, target, nil
}

func insertRelation(ctx context.Context, q dbtx, sourceID, targetID, key string, in types.RelationInput) (*types.ObjectRelation, error) {
	metadata, err := encodeMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}
	id := generateUUID()
	ts := formatTime(nowUTC())
	if _, err := q.ExecContext(ctx,
		"INSERT INTO object_relations ("+relationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		id, sourceID, targetID, key, nullString(in.Description), metadata, ts, ts,
	); err != nil {
		return nil, errors.Wrap(err, "inserting relation")
	}
	r, err := loadRelation(ctx, q, id)
	if err != nil {
		return nil, err
	}
	r.Direction = types.DirectionOutgoing
	return r, nil
}

// CreateRelation links sourceObjectID to in.TargetObjectID. An empty
// relation type, or the auto keyword, is inferred from the pair.
func (g *relationGraph) CreateRelation(ctx context.Context, sourceObjectID string, in types.RelationInput) (*types.ObjectRelation, error) {
	var out *types.ObjectRelation
	err := g.backend.withTx(ctx, func(tx *sql.Tx) error {
		source, err := loadLinkEnd(ctx, tx, sourceObjectID)
		if err != nil {
			return err
		}
		linked, err := linkedFullIDs(ctx, tx, sourceObjectID)
		if err != nil {
			return err
		}
		key, target, err := g.resolveLink(ctx, tx, source, in, linked)
		if err != nil {
			return err
		}
		out, err = insertRelation(ctx, tx, source.objectID, target.objectID, key, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	g.backend.log.Debugw("relation created", "id", out.ID, "source", out.SourceObjectID,
		"target", out.TargetObjectID, "relation_type", out.RelationType)
	return out, nil
}

// CreateRelationsBatch creates every entry of in that passes
// CreateRelation's checks, in one transaction. Rejected entries are
// reported per index; a later entry pointing at an identifier already
// linked earlier in the batch is a duplicate. Infrastructure failures abort
// the whole batch.
func (g *relationGraph) CreateRelationsBatch(ctx context.Context, sourceObjectID string, in []types.RelationInput) (*types.BatchResult, error) {
	result := &types.BatchResult{Created: []*types.ObjectRelation{}}
	err := g.backend.withTx(ctx, func(tx *sql.Tx) error {
		source, err := loadLinkEnd(ctx, tx, sourceObjectID)
		if err != nil {
			return err
		}
		linked, err := linkedFullIDs(ctx, tx, sourceObjectID)
		if err != nil {
			return err
		}
		for i, entry := range in {
			key, target, err := g.resolveLink(ctx, tx, source, entry, linked)
			if err != nil {
				class := types.Classify(err)
				if class == types.ClassInternal {
					return errors.Wrapf(err, "batch entry %d", i)
				}
				result.Errors = append(result.Errors, types.BatchError{
					Index:          i,
					TargetObjectID: entry.TargetObjectID,
					Class:          class,
					Message:        err.Error(),
					Err:            err,
				})
				continue
			}
			rel, err := insertRelation(ctx, tx, source.objectID, target.objectID, key, entry)
			if err != nil {
				return errors.Wrapf(err, "batch entry %d", i)
			}
			linked[ident.NormalizeFull(target.fullID)] = ""
			result.Created = append(result.Created, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.Errors) > 0 {
		g.backend.log.Infow("relation batch partially applied", "source", sourceObjectID,
			"created", len(result.Created), "rejected", len(result.Errors))
	}
	return result, nil
}

// GetRelation returns the relation with the given id.
func (g *relationGraph) GetRelation(ctx context.Context, id string) (*types.ObjectRelation, error) {
	db, err := g.backend.conn()
	if err != nil {
		return nil, err
	}
	return loadRelation(ctx, db, id)
}

// ListRelations returns every relation touching objectID in registration
// order, each tagged outgoing or incoming relative to objectID.
func (g *relationGraph) ListRelations(ctx context.Context, objectID string) ([]*types.ObjectRelation, error) {
	db, err := g.backend.conn()
	if err != nil {
		return nil, err
	}
	var exists int
	if err := db.QueryRowContext(ctx, "SELECT 1 FROM objects WHERE id = ?", objectID).Scan(&exists); err != nil {
		return nil, notFound(err, types.ErrObjectNotFound, objectID)
	}
	rows, err := db.QueryContext(ctx,
		"SELECT "+relationColumns+` FROM object_relations
		 WHERE source_object_id = ? OR target_object_id = ? ORDER BY rowid`,
		objectID, objectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing relations")
	}
	defer rows.Close()

	out := []*types.ObjectRelation{}
	for rows.Next() {
		r, err := hydrateRelation(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning relation")
		}
		r.Direction = types.DirectionIncoming
		if r.SourceObjectID == objectID {
			r.Direction = types.DirectionOutgoing
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "listing relations")
}

// UpdateRelation changes a relation's description or metadata. A non-nil
// Metadata replaces the stored map; an empty one clears it.
func (g *relationGraph) UpdateRelation(ctx context.Context, id string, patch types.RelationPatch) (*types.ObjectRelation, error) {
	var out *types.ObjectRelation
	err := g.backend.withTx(ctx, func(tx *sql.Tx) error {
		r, err := loadRelation(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Description != nil {
			r.Description = *patch.Description
		}
		if patch.Metadata != nil {
			r.Metadata = patch.Metadata
		}
		metadata, err := encodeMetadata(r.Metadata)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE object_relations SET description = ?, metadata = ?, updated_at = ? WHERE id = ?",
			nullString(r.Description), metadata, formatTime(nowUTC()), id,
		); err != nil {
			return errors.Wrap(err, "updating relation")
		}
		out, err = loadRelation(ctx, tx, id)
		return err
	})
	return out, err
}

// DeleteRelation removes one relation.
func (g *relationGraph) DeleteRelation(ctx context.Context, id string) error {
	db, err := g.backend.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM object_relations WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting relation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.Wrapf(types.ErrRelationNotFound, "id %s", id)
	}
	return nil
}
