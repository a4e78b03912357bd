package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/fields"
	"github.com/mesh-intelligence/typegraph/internal/ident"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Compile-time interface check: entityStore must implement EntityStore.
var _ types.EntityStore = (*entityStore)(nil)

// entityStore implements types.EntityStore over the objects and object_data
// tables.
type entityStore struct {
	backend *Backend
}

const objectSelect = `SELECT o.id, o.object_type_id, t.name, o.base_id, o.version, o.full_id, o.status,
	o.created_by, o.created_at, o.updated_at
	FROM objects o JOIN object_types t ON t.id = o.object_type_id`

func hydrateObject(row scanner) (*types.Object, error) {
	var (
		o                    types.Object
		createdBy            sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&o.ID, &o.ObjectTypeID, &o.ObjectTypeName, &o.BaseID, &o.Version, &o.FullID,
		&o.Status, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	o.CreatedBy = createdBy.String
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return &o, nil
}

// loadObject returns the object with its data.
func loadObject(ctx context.Context, q dbtx, id string) (*types.Object, error) {
	o, err := hydrateObject(q.QueryRowContext(ctx, objectSelect+" WHERE o.id = ?", id))
	if err != nil {
		return nil, notFound(err, types.ErrObjectNotFound, id)
	}
	stored, err := readValues(ctx, q, id)
	if err != nil {
		return nil, err
	}
	o.Data = dataMap(stored)
	return o, nil
}

// CreateObject validates the payload against the type's fields, allocates
// the next base identifier for the type's prefix and stores the object.
func (s *entityStore) CreateObject(ctx context.Context, in types.CreateObjectInput) (*types.Object, error) {
	return s.create(ctx, in, nil)
}

// create stores a new object. overrides are copied onto the new object and
// take part in its validation.
func (s *entityStore) create(ctx context.Context, in types.CreateObjectInput, overrides []*types.ObjectFieldOverride) (*types.Object, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	t, err := loadObjectType(ctx, db, in.ObjectTypeID)
	if err != nil {
		return nil, err
	}
	prefix := ident.Prefix(t.Name, t.IDPrefix)
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = types.DefaultStatus
	}
	required := make(map[string]bool, len(overrides))
	for _, o := range overrides {
		if o.IsRequired != nil {
			required[o.FieldID] = *o.IsRequired
		}
	}

	obj, err := withAllocation(ctx, s.backend, prefix, func() (*types.Object, error) {
		var out *types.Object
		err := s.backend.withTx(ctx, func(tx *sql.Tx) error {
			defs, err := loadFields(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			values, err := fields.ValidateObject(t.Name, defs, in.Values, required)
			if err != nil {
				return err
			}
			id, err := allocateBaseID(ctx, tx, prefix)
			if err != nil {
				return err
			}

			objectID, ts := generateUUID(), nowUTC()
			_, err = tx.ExecContext(ctx,
				`INSERT INTO objects (id, object_type_id, base_id, version, full_id, status, created_by, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				objectID, t.ID, id.Base, id.Version, id.Full, status, nullString(in.CreatedBy),
				formatTime(ts), formatTime(ts),
			)
			if err != nil {
				return errors.Wrap(err, "inserting object")
			}
			if err := writeValues(ctx, tx, objectID, defs, values, ts); err != nil {
				return err
			}
			for _, o := range overrides {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO object_field_overrides (id, object_id, field_id, is_required_override, created_at, updated_at)
					 VALUES (?, ?, ?, ?, ?, ?)`,
					generateUUID(), objectID, o.FieldID, overrideArg(o.IsRequired), formatTime(ts), formatTime(ts),
				)
				if err != nil {
					return errors.Wrap(err, "copying override")
				}
			}
			out, err = loadObject(ctx, tx, objectID)
			return err
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}
	s.backend.log.Infow("object created", "base_id", obj.BaseID, "type", t.Name, "id", obj.ID)
	return obj, nil
}

func overrideArg(v *bool) any {
	if v == nil {
		return nil
	}
	return boolInt(*v)
}

// GetObject returns one object with its data.
func (s *entityStore) GetObject(ctx context.Context, id string) (*types.Object, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	return loadObject(ctx, db, id)
}

// GetObjectByBaseID looks an object up by base identifier in any spelling
// that normalizes to the stored one.
func (s *entityStore) GetObjectByBaseID(ctx context.Context, baseID string) (*types.Object, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	key, ok := ident.NormalizeBase(baseID)
	if !ok {
		key = strings.ToUpper(strings.TrimSpace(baseID))
	}
	var id string
	if err := db.QueryRowContext(ctx, "SELECT id FROM objects WHERE base_id = ?", key).Scan(&id); err != nil {
		return nil, notFound(err, types.ErrObjectNotFound, baseID)
	}
	return loadObject(ctx, db, id)
}

// ListObjects returns objects matching filter in registration order.
func (s *entityStore) ListObjects(ctx context.Context, filter types.ObjectFilter) ([]*types.Object, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	var (
		where []string
		args  []any
	)
	if filter.ObjectTypeID != "" {
		where = append(where, "o.object_type_id = ?")
		args = append(args, filter.ObjectTypeID)
	}
	if filter.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, filter.Status)
	}
	query := objectSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.rowid"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	} else if filter.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	var out []*types.Object
	for rows.Next() {
		o, err := hydrateObject(rows)
		if err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "scanning object")
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "listing objects")
	}
	rows.Close()

	for _, o := range out {
		stored, err := readValues(ctx, db, o.ID)
		if err != nil {
			return nil, err
		}
		o.Data = dataMap(stored)
	}
	return out, nil
}

// UpdateObject replaces the object's values. Fields missing from in.Values
// are treated as empty. Per-object overrides apply to validation.
func (s *entityStore) UpdateObject(ctx context.Context, id string, in types.UpdateObjectInput) (*types.Object, error) {
	var out *types.Object
	err := s.backend.withTx(ctx, func(tx *sql.Tx) error {
		o, err := hydrateObject(tx.QueryRowContext(ctx, objectSelect+" WHERE o.id = ?", id))
		if err != nil {
			return notFound(err, types.ErrObjectNotFound, id)
		}
		defs, err := loadFields(ctx, tx, o.ObjectTypeID)
		if err != nil {
			return err
		}
		overrides, err := overridesFor(ctx, tx, id)
		if err != nil {
			return err
		}
		values, err := fields.ValidateObject(o.ObjectTypeName, defs, in.Values, overrides)
		if err != nil {
			return err
		}

		ts := nowUTC()
		if err := writeValues(ctx, tx, id, defs, values, ts); err != nil {
			return err
		}
		status := o.Status
		if in.Status != nil {
			status = strings.TrimSpace(*in.Status)
			if status == "" {
				status = types.DefaultStatus
			}
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE objects SET status = ?, updated_at = ? WHERE id = ?", status, formatTime(ts), id,
		); err != nil {
			return errors.Wrap(err, "updating object")
		}
		out, err = loadObject(ctx, tx, id)
		return err
	})
	return out, err
}

// DeleteObject removes the object with its data, overrides and relations.
func (s *entityStore) DeleteObject(ctx context.Context, id string) error {
	err := s.backend.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM objects WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting object")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(types.ErrObjectNotFound, "id %s", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.backend.lookups.Delete("type-name:" + id)
	return nil
}

// DuplicateObject copies the source's values, with in.Overrides replacing
// values by field name, into a new object with fresh identifiers. The
// source's required overrides are copied too. Relations are copied or added
// under the usual relation rules; a rejected relation is reported in the
// result and does not undo the copy.
func (s *entityStore) DuplicateObject(ctx context.Context, sourceID string, in types.DuplicateInput) (*types.DuplicateResult, error) {
	db, err := s.backend.conn()
	if err != nil {
		return nil, err
	}
	src, err := loadObject(ctx, db, sourceID)
	if err != nil {
		return nil, err
	}
	values := make(map[string]any, len(src.Data)+len(in.Overrides))
	for k, v := range src.Data {
		if v != nil {
			values[k] = v
		}
	}
	for k, v := range in.Overrides {
		key := types.NormalizeFieldName(k)
		for existing := range values {
			if types.NormalizeFieldName(existing) == key {
				delete(values, existing)
			}
		}
		values[k] = v
	}
	overrides, err := s.backend.typeRegistry.ListOverrides(ctx, sourceID)
	if err != nil {
		return nil, err
	}

	obj, err := s.create(ctx, types.CreateObjectInput{
		ObjectTypeID: src.ObjectTypeID,
		Values:       values,
		CreatedBy:    in.CreatedBy,
	}, overrides)
	if err != nil {
		return nil, err
	}

	var inputs []types.RelationInput
	if in.CopyRelations {
		rels, err := s.backend.relationGraph.ListRelations(ctx, sourceID)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if rel.Direction != types.DirectionOutgoing {
				continue
			}
			inputs = append(inputs, types.RelationInput{
				TargetObjectID: rel.TargetObjectID,
				RelationType:   rel.RelationType,
				Description:    rel.Description,
				Metadata:       rel.Metadata,
			})
		}
	}
	inputs = append(inputs, in.Relations...)

	result := &types.DuplicateResult{Object: obj, Relations: []*types.ObjectRelation{}}
	if len(inputs) == 0 {
		return result, nil
	}
	batch, err := s.backend.relationGraph.CreateRelationsBatch(ctx, obj.ID, inputs)
	if err != nil {
		return nil, errors.Wrapf(err, "relations of duplicate %s", obj.FullID)
	}
	result.Relations = batch.Created
	result.RelationErrors = batch.Errors
	return result, nil
}

// NormalizeIdentifiers rewrites every stored identifier into canonical
// form in one transaction. Colliding base identifiers are bumped to the next
// free number of their prefix; each bump is logged and reported.
func (s *entityStore) NormalizeIdentifiers(ctx context.Context) (*types.NormalizeReport, error) {
	report := &types.NormalizeReport{}
	err := s.backend.withTx(ctx, func(tx *sql.Tx) error {
		records, err := identifierRecords(ctx, tx)
		if err != nil {
			return err
		}
		results, reallocs := ident.NormalizeBatch(records)

		var changed []ident.Result
		for _, r := range results {
			if r.Changed {
				changed = append(changed, r)
			}
		}
		if len(changed) == 0 {
			return nil
		}

		// Park changed rows on placeholder ids first so that swapped
		// identifiers never collide on the unique base_id.
		for _, r := range changed {
			if _, err := tx.ExecContext(ctx,
				"UPDATE objects SET base_id = ? WHERE id = ?", "~"+r.ObjectID, r.ObjectID,
			); err != nil {
				return errors.Wrap(err, "parking identifier")
			}
		}
		ts := formatTime(nowUTC())
		for _, r := range changed {
			if _, err := tx.ExecContext(ctx,
				"UPDATE objects SET base_id = ?, version = ?, full_id = ?, updated_at = ? WHERE id = ?",
				r.Base, r.Version, r.Full, ts, r.ObjectID,
			); err != nil {
				return errors.Wrap(err, "writing identifier")
			}
		}

		for _, ra := range reallocs {
			s.backend.log.Warnw("identifier reallocated", "object_id", ra.ObjectID, "from", ra.From, "to", ra.To)
		}
		report.Updated = len(changed)
		report.Reallocations = reallocs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func identifierRecords(ctx context.Context, q dbtx) ([]ident.Record, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT o.id, o.base_id, o.version, o.full_id, t.name, t.id_prefix
		 FROM objects o JOIN object_types t ON t.id = o.object_type_id ORDER BY o.rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "reading identifiers")
	}
	defer rows.Close()

	var out []ident.Record
	for rows.Next() {
		var (
			r        ident.Record
			typeName string
			prefix   sql.NullString
		)
		if err := rows.Scan(&r.ObjectID, &r.BaseID, &r.Version, &r.FullID, &typeName, &prefix); err != nil {
			return nil, errors.Wrap(err, "scanning identifier")
		}
		r.FallbackPrefix = ident.Prefix(typeName, prefix.String)
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "reading identifiers")
}
