package types

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/typegraph/errors"
)

// Error categories. Every error returned by a component matches exactly one
// of these through errors.Is, from the standard library or from this
// module's errors package; callers map categories to status codes.
var (
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrScopeViolation  = errors.New("relation type scope violation")
	ErrBlockedRelation = errors.New("relation blocked by pair rule")
	ErrNotFound        = errors.New("entity not found")
	ErrInvariantGuard  = errors.New("invariant guard")
)

// categorized places an error in a category. Is reports the category and
// Unwrap exposes the cause, so both the standard library and cockroachdb
// errors.Is see the category and the specific error.
type categorized struct {
	cause    error
	category error
}

func (e *categorized) Error() string { return e.cause.Error() }

func (e *categorized) Unwrap() error { return e.cause }

func (e *categorized) Is(target error) bool { return target == e.category }

// InCategory returns err placed in category, one of the Err* category
// sentinels above. A nil err stays nil.
func InCategory(err, category error) error {
	if err == nil {
		return nil
	}
	return &categorized{cause: err, category: category}
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Validation errors.
var (
	ErrInvalidName         = InCategory(errors.New("name must not be empty"), ErrValidation)
	ErrInvalidColor        = InCategory(errors.New("color is not in the palette"), ErrValidation)
	ErrInvalidPrefix       = InCategory(errors.New("id prefix may only contain A-Z, 0-9 and _"), ErrValidation)
	ErrInvalidFieldType    = InCategory(errors.New("unknown field type"), ErrValidation)
	ErrInvalidFieldOptions = InCategory(errors.New("invalid field options"), ErrValidation)
	ErrInvalidCardinality  = InCategory(errors.New("unknown cardinality"), ErrValidation)
	ErrInvalidRelationKey  = InCategory(errors.New("invalid relation type key"), ErrValidation)
	ErrUnknownRelationType = InCategory(errors.New("relation type is not registered"), ErrValidation)
	ErrSelfRelation        = InCategory(errors.New("an object cannot relate to itself"), ErrValidation)
	ErrSamePairTypes       = InCategory(errors.New("a pair rule needs two distinct object types"), ErrValidation)
	ErrTemplateInactive    = InCategory(errors.New("field template is inactive"), ErrValidation)
)

// Conflict errors.
var (
	ErrDuplicateTypeName     = InCategory(errors.New("object type name already exists"), ErrConflict)
	ErrDuplicateFieldName    = InCategory(errors.New("field name already exists on the object type"), ErrConflict)
	ErrDuplicateTemplateName = InCategory(errors.New("field template name already exists"), ErrConflict)
	ErrDuplicateRelationKey  = InCategory(errors.New("relation type key already exists"), ErrConflict)
	ErrDuplicateLink         = InCategory(errors.New("target is already linked by full identifier"), ErrConflict)
	ErrRuleExists            = InCategory(errors.New("a rule already exists for the type pair"), ErrConflict)
	ErrIdentifierExhausted   = InCategory(errors.New("could not allocate a unique identifier"), ErrConflict)
)

// Not found errors.
var (
	ErrObjectTypeNotFound   = InCategory(errors.New("object type not found"), ErrNotFound)
	ErrFieldNotFound        = InCategory(errors.New("object field not found"), ErrNotFound)
	ErrTemplateNotFound     = InCategory(errors.New("field template not found"), ErrNotFound)
	ErrObjectNotFound       = InCategory(errors.New("object not found"), ErrNotFound)
	ErrRelationNotFound     = InCategory(errors.New("relation not found"), ErrNotFound)
	ErrRelationTypeNotFound = InCategory(errors.New("relation type not found"), ErrNotFound)
	ErrRuleNotFound         = InCategory(errors.New("relation type rule not found"), ErrNotFound)
)

// Invariant guard errors.
var (
	ErrNameFieldProtected = InCategory(errors.New("the namn field cannot be renamed, retyped, made optional or deleted"), ErrInvariantGuard)
	ErrRequiredLocked     = InCategory(errors.New("is_required is locked for this field"), ErrInvariantGuard)
	ErrSystemType         = InCategory(errors.New("system object types cannot be deleted"), ErrInvariantGuard)
	ErrTypeHasObjects     = InCategory(errors.New("object type still owns objects"), ErrInvariantGuard)
	ErrFieldHasData       = InCategory(errors.New("field still has stored values"), ErrInvariantGuard)
	ErrRelationTypeInUse  = InCategory(errors.New("relation type is referenced by rules or relations"), ErrInvariantGuard)
)

// Violation is one failed check on one field.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one payload.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

// NewValidationError builds a ValidationError, or returns nil when there is
// nothing to report.
func NewValidationError(violations []Violation) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is reports the validation category.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ScopeViolationError reports a relation type whose source or target
// constraint does not match the endpoint's object type. For Endpoint
// "pair", Expected is the relation type the pair rule requires.
type ScopeViolationError struct {
	RelationType string `json:"relation_type"`
	Endpoint     string `json:"endpoint"` // "source", "target" or "pair"
	Expected     string `json:"expected"`
	Actual       string `json:"actual"`
}

func (e *ScopeViolationError) Error() string {
	if e.Endpoint == "pair" {
		return fmt.Sprintf("relation type %q does not match the pair rule: expected %q",
			e.RelationType, e.Expected)
	}
	return fmt.Sprintf("invalid %s type %q for relation type %q: expected %q",
		e.Endpoint, e.Actual, e.RelationType, e.Expected)
}

// Is reports the scope violation category.
func (e *ScopeViolationError) Is(target error) bool {
	return target == ErrScopeViolation
}

// BlockedRelationError reports an ordered type pair whose rule disallows
// linking.
type BlockedRelationError struct {
	SourceType string `json:"source_type"`
	TargetType string `json:"target_type"`
}

func (e *BlockedRelationError) Error() string {
	return fmt.Sprintf("relations from %q to %q are not allowed", e.SourceType, e.TargetType)
}

// Is reports the blocked relation category.
func (e *BlockedRelationError) Is(target error) bool {
	return target == ErrBlockedRelation
}

// DuplicateLinkError reports that the source already relates to an object
// sharing the target's full identifier.
type DuplicateLinkError struct {
	FullID     string `json:"full_id"`
	RelationID string `json:"relation_id,omitempty"`
}

func (e *DuplicateLinkError) Error() string {
	if e.RelationID == "" {
		return fmt.Sprintf("object %s is already linked in this batch", e.FullID)
	}
	return fmt.Sprintf("object %s is already linked by relation %s", e.FullID, e.RelationID)
}

// Is reports both the duplicate link sentinel and the conflict category.
func (e *DuplicateLinkError) Is(target error) bool {
	return target == ErrDuplicateLink || target == ErrConflict
}

// Error classes returned by Classify.
const (
	ClassValidation      = "validation"
	ClassConflict        = "conflict"
	ClassScopeViolation  = "scope_violation"
	ClassBlockedRelation = "blocked_relation"
	ClassNotFound        = "not_found"
	ClassInvariantGuard  = "invariant_guard"
	ClassInternal        = "internal"
)

// Classify maps an error to its category name. Errors outside the taxonomy
// are internal.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrConflict):
		return ClassConflict
	case errors.Is(err, ErrScopeViolation):
		return ClassScopeViolation
	case errors.Is(err, ErrBlockedRelation):
		return ClassBlockedRelation
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrInvariantGuard):
		return ClassInvariantGuard
	default:
		return ClassInternal
	}
}
