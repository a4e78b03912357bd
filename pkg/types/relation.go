package types

import (
	"strings"
	"time"
)

// Relation cardinalities.
const (
	CardinalityOneToOne   = "one_to_one"
	CardinalityOneToMany  = "one_to_many"
	CardinalityManyToOne  = "many_to_one"
	CardinalityManyToMany = "many_to_many"
)

// cardinalityAliases maps accepted spellings to canonical cardinalities.
var cardinalityAliases = map[string]string{
	CardinalityOneToOne:   CardinalityOneToOne,
	CardinalityOneToMany:  CardinalityOneToMany,
	CardinalityManyToOne:  CardinalityManyToOne,
	CardinalityManyToMany: CardinalityManyToMany,
	"1to1":                CardinalityOneToOne,
	"1ton":                CardinalityOneToMany,
	"nto1":                CardinalityManyToOne,
	"m2m":                 CardinalityManyToMany,
	"ntom":                CardinalityManyToMany,
}

// NormalizeCardinality returns the canonical cardinality for c. Empty input
// defaults to many_to_many.
func NormalizeCardinality(c string) (string, bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return CardinalityManyToMany, true
	}
	v, ok := cardinalityAliases[c]
	return v, ok
}

// Relation directions relative to the object a listing was made for.
const (
	DirectionOutgoing = "outgoing"
	DirectionIncoming = "incoming"
)

// RelationType describes a kind of relation. Source and target constraints
// are optional; an empty constraint accepts any object type.
type RelationType struct {
	ID                    string    `json:"id"`
	Key                   string    `json:"key"`
	DisplayName           string    `json:"display_name,omitempty"`
	Description           string    `json:"description,omitempty"`
	SourceObjectTypeID    string    `json:"source_object_type_id,omitempty"`
	TargetObjectTypeID    string    `json:"target_object_type_id,omitempty"`
	Cardinality           string    `json:"cardinality"`
	IsDirected            bool      `json:"is_directed"`
	IsComposition         bool      `json:"is_composition"`
	InverseRelationTypeID string    `json:"inverse_relation_type_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// RelationTypePatch lists the fields UpdateRelationType changes. The key is
// immutable.
type RelationTypePatch struct {
	DisplayName           *string `json:"display_name,omitempty"`
	Description           *string `json:"description,omitempty"`
	SourceObjectTypeID    *string `json:"source_object_type_id,omitempty"`
	TargetObjectTypeID    *string `json:"target_object_type_id,omitempty"`
	Cardinality           *string `json:"cardinality,omitempty"`
	IsDirected            *bool   `json:"is_directed,omitempty"`
	IsComposition         *bool   `json:"is_composition,omitempty"`
	InverseRelationTypeID *string `json:"inverse_relation_type_id,omitempty"`
}

// RelationTypeRule is the authoritative decision for one ordered pair of
// object types.
type RelationTypeRule struct {
	ID                 string    `json:"id"`
	SourceObjectTypeID string    `json:"source_object_type_id"`
	TargetObjectTypeID string    `json:"target_object_type_id"`
	RelationType       string    `json:"relation_type"`
	IsAllowed          bool      `json:"is_allowed"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// RelationTypeRulePatch lists the fields UpdateRule changes.
type RelationTypeRulePatch struct {
	SourceObjectTypeID *string `json:"source_object_type_id,omitempty"`
	TargetObjectTypeID *string `json:"target_object_type_id,omitempty"`
	RelationType       *string `json:"relation_type,omitempty"`
	IsAllowed          *bool   `json:"is_allowed,omitempty"`
}

// ObjectRelation is an edge between two objects.
type ObjectRelation struct {
	ID             string         `json:"id"`
	SourceObjectID string         `json:"source_object_id"`
	TargetObjectID string         `json:"target_object_id"`
	RelationType   string         `json:"relation_type"`
	Description    string         `json:"description,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Direction      string         `json:"direction,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RelationInput describes one relation leaving a known source. An empty
// RelationType, or the configured auto keyword, requests inference.
type RelationInput struct {
	TargetObjectID string         `json:"target_object_id"`
	RelationType   string         `json:"relation_type,omitempty"`
	Description    string         `json:"description,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// RelationPatch lists the fields UpdateRelation changes.
type RelationPatch struct {
	Description *string        `json:"description,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// BatchError is the failure of one entry of a batch.
type BatchError struct {
	Index          int    `json:"index"`
	TargetObjectID string `json:"target_object_id"`
	Class          string `json:"class"`
	Message        string `json:"message"`
	Err            error  `json:"-"`
}

// BatchResult is the outcome of CreateRelationsBatch. Created holds the
// committed relations; Errors holds one entry per rejected input.
type BatchResult struct {
	Created []*ObjectRelation `json:"created"`
	Errors  []BatchError      `json:"errors,omitempty"`
}
