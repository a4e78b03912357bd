package types

import (
	"encoding/json"
	"strings"
	"time"
)

// NameFieldName is the normalized name of the field every object type owns.
const NameFieldName = "namn"

// Field types determine which value slot an ObjectData row uses.
const (
	FieldTypeText     = "text"
	FieldTypeTextarea = "textarea"
	FieldTypeNumber   = "number"
	FieldTypeDate     = "date"
	FieldTypeBoolean  = "boolean"
	FieldTypeSelect   = "select"
	FieldTypeRichtext = "richtext"
	FieldTypeFile     = "file"
)

// validFieldTypes is the set of recognized field types.
var validFieldTypes = map[string]bool{
	FieldTypeText:     true,
	FieldTypeTextarea: true,
	FieldTypeNumber:   true,
	FieldTypeDate:     true,
	FieldTypeBoolean:  true,
	FieldTypeSelect:   true,
	FieldTypeRichtext: true,
	FieldTypeFile:     true,
}

// IsValidFieldType reports whether ft is a recognized field type.
func IsValidFieldType(ft string) bool {
	return validFieldTypes[ft]
}

// ColorPalette is the closed set of display colors an object type may use.
var ColorPalette = []string{
	"#0EA5E9", "#14B8A6", "#22C55E", "#84CC16", "#EAB308",
	"#F97316", "#EF4444", "#EC4899", "#8B5CF6", "#6366F1",
	"#06B6D4", "#64748B", "#3498db", "#2ecc71", "#e74c3c",
	"#f39c12", "#9b59b6", "#1abc9c", "#34495e", "#95a5a6",
}

// CanonicalColor matches c against the palette case-insensitively and
// returns the palette spelling.
func CanonicalColor(c string) (string, bool) {
	c = strings.TrimSpace(c)
	for _, p := range ColorPalette {
		if strings.EqualFold(p, c) {
			return p, true
		}
	}
	return "", false
}

// ObjectType is an administrator-defined kind of object.
type ObjectType struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	IDPrefix    string         `json:"id_prefix,omitempty"`
	Color       string         `json:"color,omitempty"`
	Description string         `json:"description,omitempty"`
	IsSystem    bool           `json:"is_system"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Fields      []*ObjectField `json:"fields,omitempty"`
}

// ObjectTypePatch lists the fields UpdateObjectType changes. Nil leaves the
// stored value alone; an empty string clears optional values.
type ObjectTypePatch struct {
	Name        *string `json:"name,omitempty"`
	IDPrefix    *string `json:"id_prefix,omitempty"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty"`
	IsSystem    *bool   `json:"is_system,omitempty"`
}

// ObjectField defines one attribute of an object type.
type ObjectField struct {
	ID                      string            `json:"id"`
	ObjectTypeID            string            `json:"object_type_id"`
	FieldName               string            `json:"field_name"`
	DisplayName             string            `json:"display_name,omitempty"`
	DisplayNameTranslations map[string]string `json:"display_name_translations,omitempty"`
	FieldType               string            `json:"field_type"`
	FieldOptions            json.RawMessage   `json:"field_options,omitempty"`
	IsRequired              bool              `json:"is_required"`
	LockRequiredSetting     bool              `json:"lock_required_setting"`
	ForcePresence           bool              `json:"force_presence_on_all_objects"`
	IsTableVisible          bool              `json:"is_table_visible"`
	HelpText                string            `json:"help_text,omitempty"`
	HelpTextTranslations    map[string]string `json:"help_text_translations,omitempty"`
	DisplayOrder            int               `json:"display_order"`
	TemplateID              string            `json:"template_id,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// IsNameField reports whether f is the mandatory namn field.
func (f *ObjectField) IsNameField() bool {
	return NormalizeFieldName(f.FieldName) == NameFieldName
}

// ObjectFieldPatch lists the fields UpdateField changes. Nil leaves the
// stored value alone.
type ObjectFieldPatch struct {
	FieldName               *string           `json:"field_name,omitempty"`
	DisplayName             *string           `json:"display_name,omitempty"`
	DisplayNameTranslations map[string]string `json:"display_name_translations,omitempty"`
	FieldType               *string           `json:"field_type,omitempty"`
	FieldOptions            json.RawMessage   `json:"field_options,omitempty"`
	IsRequired              *bool             `json:"is_required,omitempty"`
	LockRequiredSetting     *bool             `json:"lock_required_setting,omitempty"`
	ForcePresence           *bool             `json:"force_presence_on_all_objects,omitempty"`
	IsTableVisible          *bool             `json:"is_table_visible,omitempty"`
	HelpText                *string           `json:"help_text,omitempty"`
	HelpTextTranslations    map[string]string `json:"help_text_translations,omitempty"`
	DisplayOrder            *int              `json:"display_order,omitempty"`
}

// FieldTemplate is a canonical field definition shared across object types.
// Linked fields take their definition from the template when it is
// propagated.
type FieldTemplate struct {
	ID                      string            `json:"id"`
	TemplateName            string            `json:"template_name"`
	FieldName               string            `json:"field_name"`
	DisplayName             string            `json:"display_name,omitempty"`
	DisplayNameTranslations map[string]string `json:"display_name_translations,omitempty"`
	FieldType               string            `json:"field_type"`
	FieldOptions            json.RawMessage   `json:"field_options,omitempty"`
	IsRequired              bool              `json:"is_required"`
	LockRequiredSetting     bool              `json:"lock_required_setting"`
	ForcePresence           bool              `json:"force_presence_on_all_objects"`
	IsTableVisible          bool              `json:"is_table_visible"`
	HelpText                string            `json:"help_text,omitempty"`
	HelpTextTranslations    map[string]string `json:"help_text_translations,omitempty"`
	IsActive                bool              `json:"is_active"`
	CreatedAt               time.Time         `json:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at"`
}

// TemplateDivergence reports a linked field whose lock setting disagrees
// with its template. The field-level setting is the one enforced.
type TemplateDivergence struct {
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
	FieldID      string `json:"field_id"`
	ObjectTypeID string `json:"object_type_id"`
	FieldLocked  bool   `json:"field_locked"`
	TemplateLock bool   `json:"template_locked"`
}

// ObjectFieldOverride is a per-object override of a field's is_required.
type ObjectFieldOverride struct {
	ID         string    `json:"id"`
	ObjectID   string    `json:"object_id"`
	FieldID    string    `json:"field_id"`
	IsRequired *bool     `json:"is_required_override"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
