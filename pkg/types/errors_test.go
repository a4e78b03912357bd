package types

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/errors"
)

func TestSentinelCategories(t *testing.T) {
	tests := []struct {
		err   error
		class string
	}{
		{ErrInvalidColor, ClassValidation},
		{ErrSelfRelation, ClassValidation},
		{ErrDuplicateTypeName, ClassConflict},
		{ErrRuleExists, ClassConflict},
		{ErrObjectNotFound, ClassNotFound},
		{ErrNameFieldProtected, ClassInvariantGuard},
		{ErrFieldHasData, ClassInvariantGuard},
		{errors.Wrap(ErrTypeHasObjects, "delete type"), ClassInvariantGuard},
		{errors.New("disk full"), ClassInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, Classify(tt.err), tt.err.Error())
	}
	assert.Equal(t, "", Classify(nil))
}

func TestStructuredErrors(t *testing.T) {
	verr := NewValidationError([]Violation{
		{Field: "namn", Message: "is required"},
		{Field: "längd", Message: "must be a number"},
	})
	require.Error(t, verr)
	assert.True(t, errors.Is(verr, ErrValidation))
	assert.Contains(t, verr.Error(), "namn: is required")
	assert.Contains(t, verr.Error(), "längd: must be a number")

	var ve *ValidationError
	require.True(t, errors.As(errors.Wrap(verr, "create object"), &ve))
	assert.Len(t, ve.Violations, 2)

	assert.NoError(t, NewValidationError(nil))

	scope := &ScopeViolationError{RelationType: "contains", Endpoint: "source", Expected: "Byggdel", Actual: "Produkt"}
	assert.True(t, errors.Is(scope, ErrScopeViolation))
	assert.False(t, errors.Is(scope, ErrBlockedRelation))
	assert.Contains(t, scope.Error(), `expected "Byggdel"`)

	blocked := &BlockedRelationError{SourceType: "Produkt", TargetType: "Byggdel"}
	assert.Equal(t, ClassBlockedRelation, Classify(blocked))

	dup := &DuplicateLinkError{FullID: "BYG-1.v1", RelationID: "r1"}
	assert.True(t, errors.Is(dup, ErrDuplicateLink))
	assert.Equal(t, ClassConflict, Classify(dup))
}

func TestCategories_StandardLibraryIs(t *testing.T) {
	tests := []struct {
		err      error
		category error
	}{
		{errors.Wrapf(ErrDuplicateTypeName, "name %q", "Rum"), ErrConflict},
		{errors.Wrap(ErrNameFieldProtected, "delete"), ErrInvariantGuard},
		{errors.Wrapf(ErrInvalidColor, "color %q", "#000"), ErrValidation},
		{errors.WithDetailf(errors.Wrap(ErrObjectNotFound, "get"), "id %s", "x"), ErrNotFound},
		{errors.Wrapf(ErrLogLevelUnknown, "level %q", "loud"), ErrValidation},
		{InCategory(errors.New("bad flag"), ErrValidation), ErrValidation},
	}
	for _, tt := range tests {
		assert.True(t, stderrors.Is(tt.err, tt.category), tt.err.Error())
		assert.ErrorIs(t, tt.err, tt.category)
		assert.True(t, errors.Is(tt.err, tt.category), tt.err.Error())
		assert.False(t, stderrors.Is(tt.err, ErrBlockedRelation), tt.err.Error())
	}

	wrapped := errors.Wrap(ErrDuplicateFieldName, "add field")
	assert.True(t, stderrors.Is(wrapped, ErrDuplicateFieldName))
	assert.False(t, stderrors.Is(wrapped, ErrDuplicateTypeName))
	assert.Equal(t, "field name already exists on the object type", ErrDuplicateFieldName.Error())
	assert.NoError(t, InCategory(nil, ErrConflict))
}
