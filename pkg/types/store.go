package types

import "context"

// Store is the backend-agnostic entry point. Callers attach to a backend,
// use its components, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist and applies pending schema
	// migrations. Returns ErrAlreadyAttached if called while attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, component operations return ErrStoreDetached.
	Detach() error

	Types() TypeRegistry
	Objects() EntityStore
	Rules() RuleEngine
	Relations() RelationGraph

	// Maintain runs every reconciliation pass once. Safe to re-run.
	Maintain(ctx context.Context) (*MaintenanceReport, error)

	// Export writes one JSONL file per logical table into dir.
	Export(ctx context.Context, dir string) error
}

// MaintenanceReport counts what one Maintain run changed.
type MaintenanceReport struct {
	NameFieldsFixed    int            `json:"name_fields_fixed"`
	ForcedRowsCreated  int            `json:"forced_rows_created"`
	IdentifiersUpdated int            `json:"identifiers_updated"`
	Reallocations      []Reallocation `json:"reallocations,omitempty"`
	RulesCreated       int            `json:"rules_created"`
}

// TypeRegistry stores object types, their fields, field templates and
// per-object required overrides.
type TypeRegistry interface {
	// CreateObjectType stores a new type together with its namn field.
	CreateObjectType(ctx context.Context, t *ObjectType) (*ObjectType, error)
	UpdateObjectType(ctx context.Context, id string, patch ObjectTypePatch) (*ObjectType, error)
	GetObjectType(ctx context.Context, id string) (*ObjectType, error)
	GetObjectTypeByName(ctx context.Context, name string) (*ObjectType, error)
	ListObjectTypes(ctx context.Context, includeFields bool) ([]*ObjectType, error)
	// DeleteObjectType fails with an invariant guard for system types and
	// for types that still own objects.
	DeleteObjectType(ctx context.Context, id string) error

	// ObjectTypeNameForObject returns the type name of an object.
	ObjectTypeNameForObject(ctx context.Context, objectID string) (string, error)
	// CanOwnAttachments reports whether an object belongs to the designated
	// file object type.
	CanOwnAttachments(ctx context.Context, objectID string) (bool, error)

	AddField(ctx context.Context, objectTypeID string, f *ObjectField) (*ObjectField, error)
	UpdateField(ctx context.Context, fieldID string, patch ObjectFieldPatch) (*ObjectField, error)
	GetField(ctx context.Context, fieldID string) (*ObjectField, error)
	ListFields(ctx context.Context, objectTypeID string) ([]*ObjectField, error)
	DeleteField(ctx context.Context, fieldID string) error

	CreateFieldTemplate(ctx context.Context, t *FieldTemplate) (*FieldTemplate, error)
	UpdateFieldTemplate(ctx context.Context, id string, t *FieldTemplate) (*FieldTemplate, error)
	GetFieldTemplate(ctx context.Context, id string) (*FieldTemplate, error)
	ListFieldTemplates(ctx context.Context, includeInactive bool) ([]*FieldTemplate, error)
	DeleteFieldTemplate(ctx context.Context, id string) error
	AddFieldFromTemplate(ctx context.Context, objectTypeID, templateID string) (*ObjectField, error)
	// PropagateTemplate copies a template's definition onto every linked
	// field and returns the number of fields changed.
	PropagateTemplate(ctx context.Context, templateID string) (int, error)
	TemplateDivergences(ctx context.Context) ([]TemplateDivergence, error)

	// SetRequiredOverride sets or, with nil, clears an object's is_required
	// override for one field.
	SetRequiredOverride(ctx context.Context, objectID, fieldID string, required *bool) error
	ListOverrides(ctx context.Context, objectID string) ([]*ObjectFieldOverride, error)

	// EnsureNameFields gives every type exactly one namn field.
	EnsureNameFields(ctx context.Context) (int, error)
	// EnsureForcedPresence creates missing rows for force-presence fields.
	EnsureForcedPresence(ctx context.Context) (int, error)
}

// EntityStore stores objects and their typed values.
type EntityStore interface {
	CreateObject(ctx context.Context, in CreateObjectInput) (*Object, error)
	GetObject(ctx context.Context, id string) (*Object, error)
	GetObjectByBaseID(ctx context.Context, baseID string) (*Object, error)
	ListObjects(ctx context.Context, filter ObjectFilter) ([]*Object, error)
	UpdateObject(ctx context.Context, id string, in UpdateObjectInput) (*Object, error)
	DeleteObject(ctx context.Context, id string) error
	DuplicateObject(ctx context.Context, sourceID string, in DuplicateInput) (*DuplicateResult, error)
	// NormalizeIdentifiers rewrites every stored identifier into canonical
	// form.
	NormalizeIdentifiers(ctx context.Context) (*NormalizeReport, error)
}

// RuleEngine stores relation types and pair rules and decides which
// relation type is legal between two objects.
type RuleEngine interface {
	CreateRelationType(ctx context.Context, rt *RelationType) (*RelationType, error)
	UpdateRelationType(ctx context.Context, key string, patch RelationTypePatch) (*RelationType, error)
	GetRelationType(ctx context.Context, key string) (*RelationType, error)
	ListRelationTypes(ctx context.Context) ([]*RelationType, error)
	DeleteRelationType(ctx context.Context, key string) error
	// SeedRelationTypes registers the canonical relation types that are
	// missing and returns how many it added.
	SeedRelationTypes(ctx context.Context) (int, error)

	// UpsertRule writes the rule for its ordered pair and, when allowed,
	// blocks the reverse pair.
	UpsertRule(ctx context.Context, rule RelationTypeRule) (*RelationTypeRule, error)
	UpdateRule(ctx context.Context, id string, patch RelationTypeRulePatch) (*RelationTypeRule, error)
	GetRule(ctx context.Context, id string) (*RelationTypeRule, error)
	DeleteRule(ctx context.Context, id string) error
	ListRules(ctx context.Context) ([]*RelationTypeRule, error)

	// ResolvePairRule returns the rule for the ordered pair, or nil.
	ResolvePairRule(ctx context.Context, sourceTypeID, targetTypeID string) (*RelationTypeRule, error)
	ValidateScope(ctx context.Context, relationType, sourceObjectID, targetObjectID string) error
	Infer(ctx context.Context, sourceObjectID, targetObjectID, fallback string) (string, error)
	// EnsureCompleteMatrix inserts a default rule for every ordered pair of
	// distinct types lacking one and returns the number inserted.
	EnsureCompleteMatrix(ctx context.Context) (int, error)
	SyncReverse(ctx context.Context, sourceTypeID, targetTypeID, relationType string) error
}

// RelationGraph stores relations between objects.
type RelationGraph interface {
	CreateRelation(ctx context.Context, sourceObjectID string, in RelationInput) (*ObjectRelation, error)
	// CreateRelationsBatch applies CreateRelation's rules per entry and
	// commits the entries that pass.
	CreateRelationsBatch(ctx context.Context, sourceObjectID string, in []RelationInput) (*BatchResult, error)
	GetRelation(ctx context.Context, id string) (*ObjectRelation, error)
	ListRelations(ctx context.Context, objectID string) ([]*ObjectRelation, error)
	UpdateRelation(ctx context.Context, id string, patch RelationPatch) (*ObjectRelation, error)
	DeleteRelation(ctx context.Context, id string) error
}
