package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestMark(t *testing.T) {
	category := New("conflict")
	specific := Mark(New("duplicate name"), category)

	assert.Equal(t, "duplicate name", specific.Error())
	assert.True(t, Is(specific, category))
	assert.True(t, Is(Wrap(specific, "create type"), category))
	assert.False(t, Is(category, specific))
}

func TestWithDetailf(t *testing.T) {
	err := WithDetailf(New("conflict"), "existing type %q", "Byggdel")
	require.Error(t, err)
	assert.Equal(t, "conflict", err.Error())
	assert.Contains(t, FlattenDetails(err), "Byggdel")
}

func TestHints(t *testing.T) {
	err := WithHint(New("blocked"), "edit the pair rule")
	assert.Equal(t, []string{"edit the pair rule"}, GetAllHints(err))
}
