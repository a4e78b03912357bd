package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/fields"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

const templateColumns = `id, template_name, field_name, display_name, display_name_translations, field_type,
	field_options, is_required, lock_required_setting, force_presence_on_all_objects, is_table_visible,
	help_text, help_text_translations, is_active, created_at, updated_at`

func hydrateTemplate(row scanner) (*types.FieldTemplate, error) {
	var (
		t                                         types.FieldTemplate
		displayName, displayTr, options           sql.NullString
		helpText, helpTr                          sql.NullString
		createdAt, updatedAt                      string
		required, locked, forced, visible, active bool
	)
	err := row.Scan(&t.ID, &t.TemplateName, &t.FieldName, &displayName, &displayTr, &t.FieldType,
		&options, &required, &locked, &forced, &visible, &helpText, &helpTr, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.DisplayName = displayName.String
	t.DisplayNameTranslations = decodeTranslations(displayTr)
	if options.Valid && options.String != "" {
		t.FieldOptions = json.RawMessage(options.String)
	}
	t.IsRequired, t.LockRequiredSetting, t.ForcePresence = required, locked, forced
	t.IsTableVisible, t.IsActive = visible, active
	t.HelpText = helpText.String
	t.HelpTextTranslations = decodeTranslations(helpTr)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func loadTemplate(ctx context.Context, q dbtx, id string) (*types.FieldTemplate, error) {
	row := q.QueryRowContext(ctx, "SELECT "+templateColumns+" FROM field_templates WHERE id = ?", id)
	t, err := hydrateTemplate(row)
	if err != nil {
		return nil, notFound(err, types.ErrTemplateNotFound, id)
	}
	return t, nil
}

func validateTemplate(t *types.FieldTemplate) error {
	t.FieldName = strings.TrimSpace(t.FieldName)
	t.TemplateName = strings.TrimSpace(t.TemplateName)
	if t.TemplateName == "" {
		t.TemplateName = t.FieldName
	}
	if t.TemplateName == "" {
		return errors.Wrap(types.ErrInvalidName, "template name")
	}
	f := templateField(t)
	if err := validateFieldDefinition(f); err != nil {
		return err
	}
	t.FieldType = f.FieldType
	return nil
}

// templateField returns the field definition a template describes.
func templateField(t *types.FieldTemplate) *types.ObjectField {
	return &types.ObjectField{
		FieldName:               t.FieldName,
		DisplayName:             t.DisplayName,
		DisplayNameTranslations: t.DisplayNameTranslations,
		FieldType:               t.FieldType,
		FieldOptions:            t.FieldOptions,
		IsRequired:              t.IsRequired,
		LockRequiredSetting:     t.LockRequiredSetting,
		ForcePresence:           t.ForcePresence,
		IsTableVisible:          t.IsTableVisible,
		HelpText:                t.HelpText,
		HelpTextTranslations:    t.HelpTextTranslations,
		TemplateID:              t.ID,
	}
}

// CreateFieldTemplate stores a new template. An empty template name defaults
// to the field name.
func (r *typeRegistry) CreateFieldTemplate(ctx context.Context, in *types.FieldTemplate) (*types.FieldTemplate, error) {
	if in == nil {
		return nil, errors.Wrap(types.ErrInvalidName, "template name")
	}
	t := *in
	if err := validateTemplate(&t); err != nil {
		return nil, err
	}
	var out *types.FieldTemplate
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		ts := formatTime(nowUTC())
		t.ID = generateUUID()
		_, err := tx.ExecContext(ctx,
			"INSERT INTO field_templates ("+templateColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.TemplateName, t.FieldName, nullString(t.DisplayName), encodeTranslations(t.DisplayNameTranslations),
			t.FieldType, encodeOptions(t.FieldOptions), boolInt(t.IsRequired), boolInt(t.LockRequiredSetting),
			boolInt(t.ForcePresence), boolInt(t.IsTableVisible), nullString(t.HelpText),
			encodeTranslations(t.HelpTextTranslations), boolInt(t.IsActive), ts, ts,
		)
		if isUniqueViolation(err, "") {
			return errors.Wrapf(types.ErrDuplicateTemplateName, "template %q", t.TemplateName)
		}
		if err != nil {
			return errors.Wrap(err, "inserting field template")
		}
		out, err = loadTemplate(ctx, tx, t.ID)
		return err
	})
	return out, err
}

// UpdateFieldTemplate replaces the template's definition. Linked fields keep
// their own definition until PropagateTemplate runs.
func (r *typeRegistry) UpdateFieldTemplate(ctx context.Context, id string, in *types.FieldTemplate) (*types.FieldTemplate, error) {
	if in == nil {
		return nil, errors.Wrap(types.ErrInvalidName, "template name")
	}
	t := *in
	t.ID = id
	if err := validateTemplate(&t); err != nil {
		return nil, err
	}
	var out *types.FieldTemplate
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := loadTemplate(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE field_templates SET template_name = ?, field_name = ?, display_name = ?,
			 display_name_translations = ?, field_type = ?, field_options = ?, is_required = ?,
			 lock_required_setting = ?, force_presence_on_all_objects = ?, is_table_visible = ?,
			 help_text = ?, help_text_translations = ?, is_active = ?, updated_at = ? WHERE id = ?`,
			t.TemplateName, t.FieldName, nullString(t.DisplayName), encodeTranslations(t.DisplayNameTranslations),
			t.FieldType, encodeOptions(t.FieldOptions), boolInt(t.IsRequired), boolInt(t.LockRequiredSetting),
			boolInt(t.ForcePresence), boolInt(t.IsTableVisible), nullString(t.HelpText),
			encodeTranslations(t.HelpTextTranslations), boolInt(t.IsActive), formatTime(nowUTC()), id,
		)
		if isUniqueViolation(err, "") {
			return errors.Wrapf(types.ErrDuplicateTemplateName, "template %q", t.TemplateName)
		}
		if err != nil {
			return errors.Wrap(err, "updating field template")
		}
		out, err = loadTemplate(ctx, tx, id)
		return err
	})
	return out, err
}

// GetFieldTemplate returns one template.
func (r *typeRegistry) GetFieldTemplate(ctx context.Context, id string) (*types.FieldTemplate, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	return loadTemplate(ctx, db, id)
}

// ListFieldTemplates returns templates in registration order. Inactive
// templates are skipped unless includeInactive is set.
func (r *typeRegistry) ListFieldTemplates(ctx context.Context, includeInactive bool) ([]*types.FieldTemplate, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	query := "SELECT " + templateColumns + " FROM field_templates"
	if !includeInactive {
		query += " WHERE is_active = 1"
	}
	rows, err := db.QueryContext(ctx, query+" ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrap(err, "listing field templates")
	}
	defer rows.Close()

	var out []*types.FieldTemplate
	for rows.Next() {
		t, err := hydrateTemplate(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning field template")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "listing field templates")
}

// DeleteFieldTemplate removes the template. Linked fields stay and lose
// their link.
func (r *typeRegistry) DeleteFieldTemplate(ctx context.Context, id string) error {
	return r.backend.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM field_templates WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting field template")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Wrapf(types.ErrTemplateNotFound, "id %s", id)
		}
		return nil
	})
}

// AddFieldFromTemplate adds a field linked to an active template.
func (r *typeRegistry) AddFieldFromTemplate(ctx context.Context, typeID, templateID string) (*types.ObjectField, error) {
	var out *types.ObjectField
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := loadObjectType(ctx, tx, typeID); err != nil {
			return err
		}
		t, err := loadTemplate(ctx, tx, templateID)
		if err != nil {
			return err
		}
		if !t.IsActive {
			return errors.Wrapf(types.ErrTemplateInactive, "template %q", t.TemplateName)
		}
		out, err = insertField(ctx, tx, typeID, templateField(t), nowUTC())
		return err
	})
	return out, err
}

// PropagateTemplate copies the template definition onto every linked field
// and returns how many fields changed. A linked namn field keeps its
// protected attributes; fields whose stored values would end up in another
// slot are skipped.
func (r *typeRegistry) PropagateTemplate(ctx context.Context, templateID string) (int, error) {
	changed := 0
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		t, err := loadTemplate(ctx, tx, templateID)
		if err != nil {
			return err
		}
		linked, err := linkedFields(ctx, tx, templateID)
		if err != nil {
			return err
		}
		ts := nowUTC()
		for _, f := range linked {
			next := templateField(t)
			next.ID, next.ObjectTypeID, next.DisplayOrder = f.ID, f.ObjectTypeID, f.DisplayOrder
			if f.IsNameField() {
				next.FieldName, next.FieldType = types.NameFieldName, types.FieldTypeText
				next.IsRequired, next.IsTableVisible = true, true
			}
			if fields.SlotFor(f.FieldType) != fields.SlotFor(next.FieldType) {
				n, err := liveDataCount(ctx, tx, f.ID)
				if err != nil {
					return err
				}
				if n > 0 {
					r.backend.log.Warnw("template not propagated to field with data",
						"template", t.TemplateName, "field_id", f.ID, "values", n)
					continue
				}
			}
			_, err := tx.ExecContext(ctx,
				`UPDATE object_fields SET field_name = ?, name_key = ?, display_name = ?,
				 display_name_translations = ?, field_type = ?, field_options = ?, is_required = ?,
				 lock_required_setting = ?, force_presence_on_all_objects = ?, is_table_visible = ?,
				 help_text = ?, help_text_translations = ?, updated_at = ? WHERE id = ?`,
				next.FieldName, types.NormalizeFieldName(next.FieldName), nullString(next.DisplayName),
				encodeTranslations(next.DisplayNameTranslations), next.FieldType, encodeOptions(next.FieldOptions),
				boolInt(next.IsRequired), boolInt(next.LockRequiredSetting), boolInt(next.ForcePresence),
				boolInt(next.IsTableVisible), nullString(next.HelpText), encodeTranslations(next.HelpTextTranslations),
				formatTime(ts), f.ID,
			)
			if isUniqueViolation(err, "") {
				r.backend.log.Warnw("template not propagated: field name taken",
					"template", t.TemplateName, "field_id", f.ID, "field_name", next.FieldName)
				continue
			}
			if err != nil {
				return errors.Wrap(err, "propagating template")
			}
			if next.ForcePresence {
				if _, err := backfillForced(ctx, tx, f.ID, ts); err != nil {
					return err
				}
			}
			changed++
		}
		return nil
	})
	return changed, err
}

func linkedFields(ctx context.Context, q dbtx, templateID string) ([]*types.ObjectField, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+fieldColumns+" FROM object_fields WHERE template_id = ? ORDER BY rowid", templateID)
	if err != nil {
		return nil, errors.Wrap(err, "listing linked fields")
	}
	defer rows.Close()

	var out []*types.ObjectField
	for rows.Next() {
		f, err := hydrateField(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning linked field")
		}
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "listing linked fields")
}

// TemplateDivergences lists linked fields whose lock_required_setting
// disagrees with their template. The field-level setting is the one
// enforced; each divergence is logged as a warning.
func (r *typeRegistry) TemplateDivergences(ctx context.Context) ([]types.TemplateDivergence, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT t.id, t.template_name, f.id, f.object_type_id, f.lock_required_setting, t.lock_required_setting
		 FROM object_fields f JOIN field_templates t ON t.id = f.template_id
		 WHERE f.lock_required_setting <> t.lock_required_setting ORDER BY f.rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "listing template divergences")
	}
	defer rows.Close()

	var out []types.TemplateDivergence
	for rows.Next() {
		var d types.TemplateDivergence
		if err := rows.Scan(&d.TemplateID, &d.TemplateName, &d.FieldID, &d.ObjectTypeID, &d.FieldLocked, &d.TemplateLock); err != nil {
			return nil, errors.Wrap(err, "scanning template divergence")
		}
		r.backend.log.Warnw("field lock diverges from template",
			"template", d.TemplateName, "field_id", d.FieldID,
			"field_locked", d.FieldLocked, "template_locked", d.TemplateLock)
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "listing template divergences")
}
