package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/internal/ident"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// Compile-time interface check: typeRegistry must implement TypeRegistry.
var _ types.TypeRegistry = (*typeRegistry)(nil)

// typeRegistry implements types.TypeRegistry: object types, their fields,
// field templates and per-object required overrides.
type typeRegistry struct {
	backend *Backend
}

const objectTypeColumns = "id, name, id_prefix, color, description, is_system, created_at, updated_at"

func hydrateObjectType(row scanner) (*types.ObjectType, error) {
	var (
		t                          types.ObjectType
		prefix, color, description sql.NullString
		isSystem                   bool
		createdAt, updatedAt       string
	)
	if err := row.Scan(&t.ID, &t.Name, &prefix, &color, &description, &isSystem, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.IDPrefix = prefix.String
	t.Color = color.String
	t.Description = description.String
	t.IsSystem = isSystem
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func loadObjectType(ctx context.Context, q dbtx, id string) (*types.ObjectType, error) {
	row := q.QueryRowContext(ctx, "SELECT "+objectTypeColumns+" FROM object_types WHERE id = ?", id)
	t, err := hydrateObjectType(row)
	if err != nil {
		return nil, notFound(err, types.ErrObjectTypeNotFound, id)
	}
	return t, nil
}

// checkTypeName rejects a name that collides case-insensitively with another
// type than exceptID.
func checkTypeName(ctx context.Context, q dbtx, name, exceptID string) error {
	var existingID, existing string
	err := q.QueryRowContext(ctx,
		"SELECT id, name FROM object_types WHERE name_key = ?", types.TypeNameKey(name),
	).Scan(&existingID, &existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "checking type name")
	}
	if existingID == exceptID {
		return nil
	}
	return errors.WithDetailf(errors.Wrapf(types.ErrDuplicateTypeName, "name %q", name), "existing type: %s", existing)
}

// validateTypeAttributes normalizes color and prefix in place.
func validateTypeAttributes(t *types.ObjectType) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return types.ErrInvalidName
	}
	if t.Color != "" {
		c, ok := types.CanonicalColor(t.Color)
		if !ok {
			return errors.WithDetailf(errors.Wrapf(types.ErrInvalidColor, "color %q", t.Color),
				"allowed: %s", strings.Join(types.ColorPalette, ", "))
		}
		t.Color = c
	}
	if strings.TrimSpace(t.IDPrefix) != "" {
		p, ok := ident.NormalizePrefix(t.IDPrefix)
		if !ok {
			return errors.Wrapf(types.ErrInvalidPrefix, "prefix %q", t.IDPrefix)
		}
		t.IDPrefix = p
	} else {
		t.IDPrefix = ""
	}
	return nil
}

// CreateObjectType stores a new type and provisions its namn field in the
// same transaction. Connection types additionally get their Del A and Del B
// fields.
func (r *typeRegistry) CreateObjectType(ctx context.Context, in *types.ObjectType) (*types.ObjectType, error) {
	if in == nil {
		return nil, types.ErrInvalidName
	}
	t := *in
	if err := validateTypeAttributes(&t); err != nil {
		return nil, err
	}

	var out *types.ObjectType
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		if err := checkTypeName(ctx, tx, t.Name, ""); err != nil {
			return err
		}
		ts := nowUTC()
		t.ID = generateUUID()
		_, err := tx.ExecContext(ctx,
			"INSERT INTO object_types ("+objectTypeColumns+", name_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.Name, nullString(t.IDPrefix), nullString(t.Color), nullString(t.Description),
			boolInt(t.IsSystem), formatTime(ts), formatTime(ts), types.TypeNameKey(t.Name),
		)
		if isUniqueViolation(err, "") {
			return errors.Wrapf(types.ErrDuplicateTypeName, "name %q", t.Name)
		}
		if err != nil {
			return errors.Wrap(err, "inserting object type")
		}

		for _, f := range provisionedFields(t.Name) {
			if _, err := insertField(ctx, tx, t.ID, f, ts); err != nil {
				return errors.Wrapf(err, "provisioning field %s", f.FieldName)
			}
		}

		out, err = loadObjectType(ctx, tx, t.ID)
		if err != nil {
			return err
		}
		out.Fields, err = loadFields(ctx, tx, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.backend.lookups.Flush()
	r.backend.log.Infow("object type created", "type", out.Name, "id", out.ID)
	return out, nil
}

// provisionedFields returns the fields every new type of this name owns.
func provisionedFields(typeName string) []*types.ObjectField {
	out := []*types.ObjectField{nameFieldDefinition()}
	if types.IsConnectionType(typeName) {
		out = append(out,
			&types.ObjectField{
				FieldName: "del_a", DisplayName: "Del A", FieldType: types.FieldTypeText,
				IsRequired: true, IsTableVisible: true, DisplayOrder: 1,
			},
			&types.ObjectField{
				FieldName: "del_b", DisplayName: "Del B", FieldType: types.FieldTypeText,
				IsRequired: true, IsTableVisible: true, DisplayOrder: 2,
			},
		)
	}
	return out
}

func nameFieldDefinition() *types.ObjectField {
	return &types.ObjectField{
		FieldName:      types.NameFieldName,
		DisplayName:    "Namn",
		FieldType:      types.FieldTypeText,
		IsRequired:     true,
		IsTableVisible: true,
	}
}

// UpdateObjectType applies patch to the type. An empty color or prefix
// clears it.
func (r *typeRegistry) UpdateObjectType(ctx context.Context, id string, patch types.ObjectTypePatch) (*types.ObjectType, error) {
	var out *types.ObjectType
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		t, err := loadObjectType(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.IDPrefix != nil {
			t.IDPrefix = *patch.IDPrefix
		}
		if patch.Color != nil {
			t.Color = *patch.Color
		}
		if patch.Description != nil {
			t.Description = *patch.Description
		}
		if patch.IsSystem != nil {
			t.IsSystem = *patch.IsSystem
		}
		if err := validateTypeAttributes(t); err != nil {
			return err
		}
		if err := checkTypeName(ctx, tx, t.Name, t.ID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE object_types SET name = ?, name_key = ?, id_prefix = ?, color = ?, description = ?,
			 is_system = ?, updated_at = ? WHERE id = ?`,
			t.Name, types.TypeNameKey(t.Name), nullString(t.IDPrefix), nullString(t.Color),
			nullString(t.Description), boolInt(t.IsSystem), formatTime(nowUTC()), t.ID,
		)
		if isUniqueViolation(err, "") {
			return errors.Wrapf(types.ErrDuplicateTypeName, "name %q", t.Name)
		}
		if err != nil {
			return errors.Wrap(err, "updating object type")
		}
		out, err = loadObjectType(ctx, tx, id)
		if err != nil {
			return err
		}
		out.Fields, err = loadFields(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.backend.lookups.Flush()
	return out, nil
}

// GetObjectType returns the type with its fields.
func (r *typeRegistry) GetObjectType(ctx context.Context, id string) (*types.ObjectType, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	t, err := loadObjectType(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if t.Fields, err = loadFields(ctx, db, id); err != nil {
		return nil, err
	}
	return t, nil
}

// GetObjectTypeByName looks a type up by case-insensitive name.
func (r *typeRegistry) GetObjectTypeByName(ctx context.Context, name string) (*types.ObjectType, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	row := db.QueryRowContext(ctx,
		"SELECT "+objectTypeColumns+" FROM object_types WHERE name_key = ?", types.TypeNameKey(name))
	t, err := hydrateObjectType(row)
	if err != nil {
		return nil, notFound(err, types.ErrObjectTypeNotFound, name)
	}
	if t.Fields, err = loadFields(ctx, db, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// ListObjectTypes returns every type in registration order.
func (r *typeRegistry) ListObjectTypes(ctx context.Context, includeFields bool) ([]*types.ObjectType, error) {
	db, err := r.backend.conn()
	if err != nil {
		return nil, err
	}
	list, err := listObjectTypes(ctx, db)
	if err != nil {
		return nil, err
	}
	if includeFields {
		for _, t := range list {
			if t.Fields, err = loadFields(ctx, db, t.ID); err != nil {
				return nil, err
			}
		}
	}
	return list, nil
}

func listObjectTypes(ctx context.Context, q dbtx) ([]*types.ObjectType, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+objectTypeColumns+" FROM object_types ORDER BY rowid")
	if err != nil {
		return nil, errors.Wrap(err, "listing object types")
	}
	defer rows.Close()

	var out []*types.ObjectType
	for rows.Next() {
		t, err := hydrateObjectType(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning object type")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "listing object types")
}

// DeleteObjectType removes a type together with its fields and pair rules.
// System types and types that own objects are protected.
func (r *typeRegistry) DeleteObjectType(ctx context.Context, id string) error {
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		t, err := loadObjectType(ctx, tx, id)
		if err != nil {
			return err
		}
		if t.IsSystem {
			return errors.Wrapf(types.ErrSystemType, "type %q", t.Name)
		}
		var count int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM objects WHERE object_type_id = ?", id,
		).Scan(&count); err != nil {
			return errors.Wrap(err, "counting objects")
		}
		if count > 0 {
			return errors.WithDetailf(errors.Wrapf(types.ErrTypeHasObjects, "type %q", t.Name),
				"%d objects remain", count)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM object_types WHERE id = ?", id); err != nil {
			return errors.Wrap(err, "deleting object type")
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.backend.lookups.Flush()
	return nil
}

// ObjectTypeNameForObject returns the name of the object's type. Results are
// cached until the next type write.
func (r *typeRegistry) ObjectTypeNameForObject(ctx context.Context, objectID string) (string, error) {
	key := "type-name:" + objectID
	if v, ok := r.backend.lookups.Get(key); ok {
		if name, ok := v.(string); ok {
			return name, nil
		}
	}
	db, err := r.backend.conn()
	if err != nil {
		return "", err
	}
	var name string
	err = db.QueryRowContext(ctx,
		`SELECT t.name FROM objects o JOIN object_types t ON t.id = o.object_type_id WHERE o.id = ?`,
		objectID,
	).Scan(&name)
	if err != nil {
		return "", notFound(err, types.ErrObjectNotFound, objectID)
	}
	r.backend.lookups.SetDefault(key, name)
	return name, nil
}

// CanOwnAttachments reports whether the object belongs to the configured
// file object type.
func (r *typeRegistry) CanOwnAttachments(ctx context.Context, objectID string) (bool, error) {
	name, err := r.ObjectTypeNameForObject(ctx, objectID)
	if err != nil {
		return false, err
	}
	want := r.backend.Config().FileObjectType()
	return types.NormalizeTypeName(name) == types.NormalizeTypeName(want), nil
}

// EnsureNameFields gives every type exactly one namn field. A type without
// one has a field named "name" renamed in place, or gets a new field. An
// existing namn field with drifted attributes is restored. It returns the
// number of types changed.
func (r *typeRegistry) EnsureNameFields(ctx context.Context) (int, error) {
	changed := 0
	err := r.backend.withTx(ctx, func(tx *sql.Tx) error {
		list, err := listObjectTypes(ctx, tx)
		if err != nil {
			return err
		}
		ts := nowUTC()
		for _, t := range list {
			fieldList, err := loadFields(ctx, tx, t.ID)
			if err != nil {
				return err
			}
			fixed, err := ensureNameField(ctx, tx, t.ID, fieldList, ts)
			if err != nil {
				return errors.Wrapf(err, "type %q", t.Name)
			}
			if fixed {
				r.backend.log.Infow("name field repaired", "type", t.Name)
				changed++
			}
		}
		return nil
	})
	return changed, err
}

// renameCandidates are normalized field names that are renamed to namn when a
// type lacks one.
var renameCandidates = []string{"name", "navn"}

func ensureNameField(ctx context.Context, tx *sql.Tx, typeID string, fieldList []*types.ObjectField, ts time.Time) (bool, error) {
	var target *types.ObjectField
	for _, f := range fieldList {
		if f.IsNameField() {
			target = f
			break
		}
	}
	if target == nil {
		for _, cand := range renameCandidates {
			for _, f := range fieldList {
				if types.NormalizeFieldName(f.FieldName) == cand {
					target = f
					break
				}
			}
			if target != nil {
				break
			}
		}
	}
	if target == nil {
		_, err := insertField(ctx, tx, typeID, nameFieldDefinition(), ts)
		return err == nil, err
	}

	if target.FieldName == types.NameFieldName && target.FieldType == types.FieldTypeText &&
		target.IsRequired && target.IsTableVisible {
		return false, nil
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE object_fields SET field_name = ?, name_key = ?, field_type = ?, is_required = 1,
		 is_table_visible = 1, updated_at = ? WHERE id = ?`,
		types.NameFieldName, types.NameFieldName, types.FieldTypeText, formatTime(ts), target.ID,
	)
	if err != nil {
		return false, errors.Wrap(err, "repairing name field")
	}
	return true, nil
}
