package types

import "time"

// DefaultStatus is the lifecycle label given to new objects.
const DefaultStatus = "In work"

// Common lifecycle labels. Status is free text; these are conventions.
const (
	StatusInWork   = "In work"
	StatusReleased = "Released"
	StatusObsolete = "Obsolete"
	StatusCanceled = "Canceled"
)

// Object is an instance of an object type. Data holds the stored values
// keyed by field name: numbers as float64, dates as YYYY-MM-DD strings,
// booleans as bool, file values as decoded JSON and everything else as
// string.
type Object struct {
	ID             string         `json:"id"`
	ObjectTypeID   string         `json:"object_type_id"`
	ObjectTypeName string         `json:"object_type_name,omitempty"`
	BaseID         string         `json:"base_id"`
	Version        string         `json:"version"`
	FullID         string         `json:"full_id"`
	Status         string         `json:"status"`
	CreatedBy      string         `json:"created_by,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Data           map[string]any `json:"data"`
}

// CreateObjectInput is the payload for EntityStore.CreateObject.
type CreateObjectInput struct {
	ObjectTypeID string         `json:"object_type_id"`
	Values       map[string]any `json:"data"`
	Status       string         `json:"status,omitempty"`
	CreatedBy    string         `json:"created_by,omitempty"`
}

// UpdateObjectInput is the payload for EntityStore.UpdateObject. Values is
// the complete new data set: a field missing from Values is treated as
// empty.
type UpdateObjectInput struct {
	Values map[string]any `json:"data"`
	Status *string        `json:"status,omitempty"`
}

// ObjectFilter narrows ListObjects. Zero values match everything; Limit 0
// means no limit.
type ObjectFilter struct {
	ObjectTypeID string `json:"object_type_id,omitempty"`
	Status       string `json:"status,omitempty"`
	Limit        int    `json:"limit,omitempty"`
	Offset       int    `json:"offset,omitempty"`
}

// DuplicateInput configures EntityStore.DuplicateObject. Overrides replace
// copied values by field name. CopyRelations copies the source's outgoing
// relations; Relations adds further outgoing relations from the copy.
type DuplicateInput struct {
	Overrides     map[string]any  `json:"overrides,omitempty"`
	CopyRelations bool            `json:"copy_relations,omitempty"`
	Relations     []RelationInput `json:"relations,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
}

// DuplicateResult is the outcome of DuplicateObject. Relation failures do
// not undo the copy; they are reported in RelationErrors.
type DuplicateResult struct {
	Object         *Object           `json:"object"`
	Relations      []*ObjectRelation `json:"relations"`
	RelationErrors []BatchError      `json:"relation_errors,omitempty"`
}

// Reallocation records an identifier that normalization had to bump because
// its canonical form was already taken.
type Reallocation struct {
	ObjectID string `json:"object_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// NormalizeReport summarizes an identifier normalization pass.
type NormalizeReport struct {
	Updated       int            `json:"updated"`
	Reallocations []Reallocation `json:"reallocations,omitempty"`
}
