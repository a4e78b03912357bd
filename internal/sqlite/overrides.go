package sqlite

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// SetRequiredOverride sets the object's is_required override for one field,
// or clears it when required is nil. Locked fields cannot be overridden.
func (r *typeRegistry) SetRequiredOverride(ctx context.Context, objectID, fieldID string, required *bool) error {
	return r.backend.withTx(ctx, func(tx *sql.Tx) error {
		var typeID string
		err := tx.QueryRowContext(ctx, "SELECT object_type_id FROM objects WHERE id = ?", objectID).Scan(&typeID)
		if err != nil {
			return notFound(err, types.ErrObjectNotFound, objectID)
		}
		f, err := loadField(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if f.ObjectTypeID != typeID {
			return errors.WithDetailf(errors.Wrapf(types.ErrFieldNotFound, "id %s", fieldID),
				"field belongs to another object type than object %s", objectID)
		}
		if required == nil {
			_, err := tx.ExecContext(ctx,
				"DELETE FROM object_field_overrides WHERE object_id = ? AND field_id = ?", objectID, fieldID)
			return errors.Wrap(err, "clearing override")
		}
		if f.LockRequiredSetting || (f.IsNameField() && !*required) {
			return errors.Wrapf(types.ErrRequiredLocked, "field %s", f.FieldName)
		}

		ts := formatTime(nowUTC())
		_, err = tx.ExecContext(ctx,
			`INSERT INTO object_field_overrides (id, object_id, field_id, is_required_override, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT (object_id, field_id) DO UPDATE SET
			 is_required_override = excluded.is_required_override, updated_at = excluded.updated_at`,
			generateUUID(), objectID, fieldID, boolInt(*required), ts, ts,
		)
		return errors.Wrap(err, "writing override")
	})
}

// ListOverrides returns the object's overrides in registration order.
func (r *typeRegistry) ListOverrides(ctx context.Context, objectID string) ([]*types.ObjectFieldOverride, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, object_id, field_id, is_required_override, created_at, updated_at
		 FROM object_field_overrides WHERE object_id = ? ORDER BY rowid`,
		objectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing overrides")
	}
	defer rows.Close()

	var out []*types.ObjectFieldOverride
	for rows.Next() {
		var (
			o                    types.ObjectFieldOverride
			required             sql.NullBool
			createdAt, updatedAt string
		)
		if err := rows.Scan(&o.ID, &o.ObjectID, &o.FieldID, &required, &createdAt, &updatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning override")
		}
		if required.Valid {
			v := required.Bool
			o.IsRequired = &v
		}
		o.CreatedAt = parseTime(createdAt)
		o.UpdatedAt = parseTime(updatedAt)
		out = append(out, &o)
	}
	return out, errors.Wrap(rows.Err(), "listing overrides")
}

// overridesFor returns the object's non-null overrides keyed by field ID.
func overridesFor(ctx context.Context, q dbtx, objectID string) (map[string]bool, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT field_id, is_required_override FROM object_field_overrides
		 WHERE object_id = ? AND is_required_override IS NOT NULL`,
		objectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "loading overrides")
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var fieldID string
		var required bool
		if err := rows.Scan(&fieldID, &required); err != nil {
			return nil, errors.Wrap(err, "scanning override")
		}
		out[fieldID] = required
	}
	return out, errors.Wrap(rows.Err(), "loading overrides")
}
