package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/fields"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// writeValues stores the object's complete value set. Each field gets one
// row whose slots are all rewritten, so a value never survives in the slot
// of a previous type. Empty values delete the row, except for force-presence
// fields, which keep an all-null row.
func writeValues(ctx context.Context, q dbtx, objectID string, defs []*types.ObjectField, values map[string]fields.Value, ts time.Time) error {
	for _, f := range defs {
		v := values[f.ID]
		if v.IsEmpty() && !f.ForcePresence {
			if _, err := q.ExecContext(ctx,
				"DELETE FROM object_data WHERE object_id = ? AND field_id = ?", objectID, f.ID,
			); err != nil {
				return errors.Wrapf(err, "clearing %s", f.FieldName)
			}
			continue
		}
		args := append([]any{objectID, f.ID}, v.Columns()...)
		args = append(args, formatTime(ts))
		_, err := q.ExecContext(ctx,
			`INSERT INTO object_data (object_id, field_id, value_text, value_number, value_date, value_boolean, value_json, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (object_id, field_id) DO UPDATE SET
			 value_text = excluded.value_text, value_number = excluded.value_number,
			 value_date = excluded.value_date, value_boolean = excluded.value_boolean,
			 value_json = excluded.value_json, updated_at = excluded.updated_at`,
			args...,
		)
		if err != nil {
			return errors.Wrapf(err, "writing %s", f.FieldName)
		}
	}
	return nil
}

type storedValue struct {
	fieldID   string
	fieldName string
	value     fields.Value
}

// readValues returns the object's stored rows in field display order.
func readValues(ctx context.Context, q dbtx, objectID string) ([]storedValue, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT f.id, f.field_name, d.value_text, d.value_number, d.value_date, d.value_boolean, d.value_json
		 FROM object_data d JOIN object_fields f ON f.id = d.field_id
		 WHERE d.object_id = ? ORDER BY f.display_order, f.rowid`,
		objectID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "reading object data")
	}
	defer rows.Close()

	var out []storedValue
	for rows.Next() {
		var (
			sv                  storedValue
			text, date, rawJSON sql.NullString
			number              sql.NullFloat64
			boolean             sql.NullBool
		)
		if err := rows.Scan(&sv.fieldID, &sv.fieldName, &text, &number, &date, &boolean, &rawJSON); err != nil {
			return nil, errors.Wrap(err, "scanning object data")
		}
		if text.Valid {
			sv.value.Text = &text.String
		}
		if number.Valid {
			sv.value.Number = &number.Float64
		}
		if date.Valid {
			sv.value.Date = &date.String
		}
		if boolean.Valid {
			sv.value.Boolean = &boolean.Bool
		}
		if rawJSON.Valid {
			sv.value.JSON = &rawJSON.String
		}
		out = append(out, sv)
	}
	return out, errors.Wrap(rows.Err(), "reading object data")
}

// dataMap renders stored values keyed by field name. Placeholder rows
// appear with a nil value.
func dataMap(stored []storedValue) map[string]any {
	out := make(map[string]any, len(stored))
	for _, sv := range stored {
		out[sv.fieldName] = sv.value.Interface()
	}
	return out
}
