package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/fields"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

const fieldColumns = `id, object_type_id, field_name, display_name, display_name_translations, field_type,
	field_options, is_required, lock_required_setting, force_presence_on_all_objects, is_table_visible,
	help_text, help_text_translations, display_order, template_id, created_at, updated_at`

func hydrateField(row scanner) (*types.ObjectField, error) {
	var (
		f                                 types.ObjectField
		displayName, displayTr, options   sql.NullString
		helpText, helpTr, templateID      sql.NullString
		createdAt, updatedAt              string
		required, locked, forced, visible bool
	)
	err := row.Scan(&f.ID, &f.ObjectTypeID, &f.FieldName, &displayName, &displayTr, &f.FieldType,
		&options, &required, &locked, &forced, &visible,
		&helpText, &helpTr, &f.DisplayOrder, &templateID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	f.DisplayName = displayName.String
	f.DisplayNameTranslations = decodeTranslations(displayTr)
	if options.Valid && options.String != "" {
		f.FieldOptions = json.RawMessage(options.String)
	}
	f.IsRequired = required
	f.LockRequiredSetting = locked
	f.ForcePresence = forced
	f.IsTableVisible = visible
	f.HelpText = helpText.String
	f.HelpTextTranslations = decodeTranslations(helpTr)
	f.TemplateID = templateID.String
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func decodeTranslations(s sql.NullString) map[string]string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil
	}
	return m
}

func encodeTranslations(m map[string]string) any {
	if len(m) == 0 {
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	return string(data)
}

func encodeOptions(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func loadField(ctx context.Context, q dbtx, id string) (*types.ObjectField, error) {
	row := q.QueryRowContext(ctx, "SELECT "+fieldColumns+" FROM object_fields WHERE id = ?", id)
	f, err := hydrateField(row)
	if err != nil {
		return nil, notFound(err, types.ErrFieldNotFound, id)
	}
	return f, nil
}

// loadFields returns a type's fields ordered by display_order, then
// registration.
func loadFields(ctx context.Context, q dbtx, typeID string) ([]*types.ObjectField, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+fieldColumns+" FROM object_fields WHERE object_type_id = ? ORDER BY display_order, rowid",
		typeID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "listing fields")
	}
	defer rows.Close()

	var out []*types.ObjectField
	for rows.Next() {
		f, err := hydrateField(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning field")
		}
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "listing fields")
}

// validateFieldDefinition checks name, type and options and normalizes them
// in place.
func validateFieldDefinition(f *types.ObjectField) error {
	f.FieldName = strings.TrimSpace(f.FieldName)
	if f.FieldName == "" || types.NormalizeFieldName(f.FieldName) == "" {
		return errors.Wrap(types.ErrInvalidName, "field name")
	}
	if f.FieldType == "" {
		f.FieldType = types.FieldTypeText
	}
	if !types.IsValidFieldType(f.FieldType) {
		return errors.Wrapf(types.ErrInvalidFieldType, "field type %q", f.FieldType)
	}
	if len(f.FieldOptions) > 0 {
		if _, err := fields.ParseOptions(f.FieldOptions); err != nil {
			return errors.Wrapf(err, "field %s", f.FieldName)
		}
	}
	return nil
}

// insertField stores f on the type. A zero display order places the field
// after the existing ones. Name collisions within the type are conflicts.
func insertField(ctx context.Context, q dbtx, typeID string, f *types.ObjectField, ts time.Time) (*types.ObjectField, error) {
	out := *f
	if err := validateFieldDefinition(&out); err != nil {
		return nil, err
	}
	if out.IsNameField() {
		out.FieldName = types.NameFieldName
		out.FieldType = types.FieldTypeText
		out.IsRequired = true
		out.IsTableVisible = true
	}
	out.ID = generateUUID()
	out.ObjectTypeID = typeID
	out.CreatedAt, out.UpdatedAt = ts, ts

	if out.DisplayOrder == 0 && !out.IsNameField() {
		var maxOrder sql.NullInt64
		if err := q.QueryRowContext(ctx,
			"SELECT MAX(display_order) FROM object_fields WHERE object_type_id = ?", typeID,
		).Scan(&maxOrder); err != nil {
			return nil, errors.Wrap(err, "reading display order")
		}
		if maxOrder.Valid {
			out.DisplayOrder = int(maxOrder.Int64) + 1
		}
	}

	_, err := q.ExecContext(ctx,
		"INSERT INTO object_fields ("+fieldColumns+`, name_key)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, typeID, out.FieldName, nullString(out.DisplayName), encodeTranslations(out.DisplayNameTranslations),
		out.FieldType, encodeOptions(out.FieldOptions), boolInt(out.IsRequired), boolInt(out.LockRequiredSetting),
		boolInt(out.ForcePresence), boolInt(out.IsTableVisible), nullString(out.HelpText),
		encodeTranslations(out.HelpTextTranslations), out.DisplayOrder, nullString(out.TemplateID),
		formatTime(ts), formatTime(ts), types.NormalizeFieldName(out.FieldName),
	)
	if isUniqueViolation(err, "") {
		return nil, errors.Wrapf(types.ErrDuplicateFieldName, "field %q", out.FieldName)
	}
	if err != nil {
		return nil, errors.Wrap(err, "inserting field")
	}
	if out.ForcePresence {
		if _, err := backfillForced(ctx, q, out.ID, ts); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// backfillForced creates an empty data row for every object of the field's
// type that lacks one.
func backfillForced(ctx context.Context, q dbtx, fieldID string, ts time.Time) (int, error) {
	res, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO object_data (object_id, field_id, updated_at)
		 SELECT o.id, f.id, ? FROM objects o JOIN object_fields f ON f.object_type_id = o.object_type_id
		 WHERE f.id = ?`,
		formatTime(ts), fieldID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "backfilling forced field")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// liveDataCount counts data rows of the field that hold a value. Empty
// placeholder rows are not counted.
func liveDataCount(ctx context.Context, q dbtx, fieldID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM object_data WHERE field_id = ? AND (value_text IS NOT NULL
		 OR value_number IS NOT NULL OR value_date IS NOT NULL OR value_boolean IS NOT NULL
		 OR value_json IS NOT NULL)`,
		fieldID,
	).Scan(&n)
	return n, errors.Wrap(err, "counting field data")
}

// dataRowCount counts every data row of the field, empty or not.
func dataRowCount(ctx context.Context, q dbtx, fieldID string) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM object_data WHERE field_id = ?", fieldID).Scan(&n)
	return n, errors.Wrap(err, "counting field data")
}

// AddField adds a field to the type. A force-presence field gets an empty
// row on every existing object of the type.
func (r *typeRegistry) AddField(ctx context.Context, typeID string, f *types.ObjectField) (*types.ObjectField, error) {
	if f == nil {
		return nil, errors.Wrap(types.ErrInvalidName, "field name")
	}
	var out *types.ObjectField
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := loadObjectType(ctx, tx, typeID); err != nil {
			return err
		}
		var err error
		out, err = insertField(ctx, tx, typeID, f, nowUTC())
		return err
	})
	return out, err
}

// UpdateField applies patch. The namn field keeps its name, type, required
// and visible settings; is_required cannot be cleared while locked.
func (r *typeRegistry) UpdateField(ctx context.Context, fieldID string, patch types.ObjectFieldPatch) (*types.ObjectField, error) {
	var out *types.ObjectField
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		f, err := loadField(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if err := checkFieldPatch(f, patch); err != nil {
			return err
		}
		oldType, isName := f.FieldType, f.IsNameField()
		applyFieldPatch(f, patch)
		if isName {
			f.FieldName = types.NameFieldName
		}
		if err := validateFieldDefinition(f); err != nil {
			return err
		}
		if fields.SlotFor(oldType) != fields.SlotFor(f.FieldType) {
			n, err := liveDataCount(ctx, tx, f.ID)
			if err != nil {
				return err
			}
			if n > 0 {
				return errors.WithDetailf(errors.Wrapf(types.ErrFieldHasData, "retyping %s to %s", f.FieldName, f.FieldType),
					"%d stored values", n)
			}
		}

		ts := nowUTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE object_fields SET field_name = ?, name_key = ?, display_name = ?, display_name_translations = ?,
			 field_type = ?, field_options = ?, is_required = ?, lock_required_setting = ?,
			 force_presence_on_all_objects = ?, is_table_visible = ?, help_text = ?, help_text_translations = ?,
			 display_order = ?, updated_at = ? WHERE id = ?`,
			f.FieldName, types.NormalizeFieldName(f.FieldName), nullString(f.DisplayName),
			encodeTranslations(f.DisplayNameTranslations), f.FieldType, encodeOptions(f.FieldOptions),
			boolInt(f.IsRequired), boolInt(f.LockRequiredSetting), boolInt(f.ForcePresence),
			boolInt(f.IsTableVisible), nullString(f.HelpText), encodeTranslations(f.HelpTextTranslations),
			f.DisplayOrder, formatTime(ts), f.ID,
		)
		if isUniqueViolation(err, "") {
			return errors.Wrapf(types.ErrDuplicateFieldName, "field %q", f.FieldName)
		}
		if err != nil {
			return errors.Wrap(err, "updating field")
		}
		if f.ForcePresence {
			if _, err := backfillForced(ctx, tx, f.ID, ts); err != nil {
				return err
			}
		}
		out, err = loadField(ctx, tx, f.ID)
		return err
	})
	return out, err
}

func checkFieldPatch(f *types.ObjectField, patch types.ObjectFieldPatch) error {
	if f.IsNameField() {
		switch {
		case patch.FieldName != nil && types.NormalizeFieldName(*patch.FieldName) != types.NameFieldName:
			return errors.Wrap(types.ErrNameFieldProtected, "rename")
		case patch.FieldType != nil && *patch.FieldType != types.FieldTypeText:
			return errors.Wrap(types.ErrNameFieldProtected, "retype")
		case patch.IsRequired != nil && !*patch.IsRequired:
			return errors.Wrap(types.ErrNameFieldProtected, "make optional")
		case patch.IsTableVisible != nil && !*patch.IsTableVisible:
			return errors.Wrap(types.ErrNameFieldProtected, "hide")
		}
	}
	locked := f.LockRequiredSetting
	if patch.LockRequiredSetting != nil {
		locked = *patch.LockRequiredSetting
	}
	if locked && patch.IsRequired != nil && !*patch.IsRequired {
		return errors.Wrapf(types.ErrRequiredLocked, "field %s", f.FieldName)
	}
	return nil
}

func applyFieldPatch(f *types.ObjectField, p types.ObjectFieldPatch) {
	if p.FieldName != nil {
		f.FieldName = *p.FieldName
	}
	if p.DisplayName != nil {
		f.DisplayName = *p.DisplayName
	}
	if p.DisplayNameTranslations != nil {
		f.DisplayNameTranslations = p.DisplayNameTranslations
	}
	if p.FieldType != nil {
		f.FieldType = *p.FieldType
	}
	if p.FieldOptions != nil {
		f.FieldOptions = p.FieldOptions
	}
	if p.IsRequired != nil {
		f.IsRequired = *p.IsRequired
	}
	if p.LockRequiredSetting != nil {
		f.LockRequiredSetting = *p.LockRequiredSetting
	}
	if p.ForcePresence != nil {
		f.ForcePresence = *p.ForcePresence
	}
	if p.IsTableVisible != nil {
		f.IsTableVisible = *p.IsTableVisible
	}
	if p.HelpText != nil {
		f.HelpText = *p.HelpText
	}
	if p.HelpTextTranslations != nil {
		f.HelpTextTranslations = p.HelpTextTranslations
	}
	if p.DisplayOrder != nil {
		f.DisplayOrder = *p.DisplayOrder
	}
}

// GetField returns one field.
func (r *typeRegistry) GetField(ctx context.Context, fieldID string) (*types.ObjectField, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	return loadField(ctx, db, fieldID)
}

// ListFields returns the type's fields in display order.
func (r *typeRegistry) ListFields(ctx context.Context, typeID string) ([]*types.ObjectField, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	if _, err := loadObjectType(ctx, db, typeID); err != nil {
		return nil, err
	}
	return loadFields(ctx, db, typeID)
}

// DeleteField removes a field no data row references, placeholder rows
// included. The namn field cannot be deleted.
func (r *typeRegistry) DeleteField(ctx context.Context, fieldID string) error {
	return r.backend.withTx(ctx, func(tx *sql.Tx) error {
		f, err := loadField(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if f.IsNameField() {
			return errors.Wrap(types.ErrNameFieldProtected, "delete")
		}
		n, err := dataRowCount(ctx, tx, fieldID)
		if err != nil {
			return err
		}
		if n > 0 {
			return errors.WithDetailf(errors.Wrapf(types.ErrFieldHasData, "field %s", f.FieldName),
				"%d data rows", n)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM object_fields WHERE id = ?", fieldID); err != nil {
			return errors.Wrap(err, "deleting field")
		}
		return nil
	})
}

// EnsureForcedPresence creates the missing empty rows of every
// force-presence field and returns how many it created.
func (r *typeRegistry) EnsureForcedPresence(ctx context.Context) (int, error) {
	var created int
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO object_data (object_id, field_id, updated_at)
			 SELECT o.id, f.id, ? FROM objects o JOIN object_fields f ON f.object_type_id = o.object_type_id
			 WHERE f.force_presence_on_all_objects = 1`,
			formatTime(nowUTC()),
		)
		if err != nil {
			return errors.Wrap(err, "creating forced rows")
		}
		n, _ := res.RowsAffected()
		created = int(n)
		return nil
	})
	return created, err
}
