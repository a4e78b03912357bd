package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/typegraph/errors"
	"github.com/mesh-intelligence/typegraph/pkg/types"
)

var (
	byggdel = Endpoint{TypeID: "t-byg", TypeName: "Byggdel"}
	produkt = Endpoint{TypeID: "t-prod", TypeName: "Produkt"}
	krav    = Endpoint{TypeID: "t-krav", TypeName: "Kravställning"}
	rum     = Endpoint{TypeID: "t-rum", TypeName: "Rum"}
)

func TestMatches(t *testing.T) {
	assert.True(t, Matches(nil, produkt))
	assert.True(t, Matches(&byggdel, byggdel))
	// Different type rows, same concept.
	assert.True(t, Matches(&Endpoint{TypeID: "other", TypeName: "BuildingPart"}, byggdel))
	assert.False(t, Matches(&byggdel, produkt))
}

func TestCheckScope(t *testing.T) {
	c := Candidate{Key: "has_build_up_line", Source: &byggdel}
	require.NoError(t, CheckScope(c, byggdel, produkt))

	err := CheckScope(c, produkt, byggdel)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrScopeViolation))

	var sv *types.ScopeViolationError
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, "source", sv.Endpoint)
	assert.Equal(t, "Byggdel", sv.Expected)
	assert.Equal(t, "Produkt", sv.Actual)

	err = CheckScope(Candidate{Key: "uses_product", Target: &produkt}, byggdel, rum)
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, "target", sv.Endpoint)
}

func TestScore(t *testing.T) {
	s, ok := Score(Candidate{Key: "any"}, byggdel, produkt)
	assert.True(t, ok)
	assert.Equal(t, 0, s)

	s, ok = Score(Candidate{Key: "both", Source: &byggdel, Target: &produkt}, byggdel, produkt)
	assert.True(t, ok)
	assert.Equal(t, 3, s)

	s, ok = Score(Candidate{Key: "src", Source: &byggdel}, byggdel, produkt)
	assert.True(t, ok)
	assert.Equal(t, 2, s)

	_, ok = Score(Candidate{Key: "tgt", Target: &krav}, byggdel, produkt)
	assert.False(t, ok)
}

func TestBest(t *testing.T) {
	cands := []Candidate{
		{Key: "uses_object"},
		{Key: "references_object"},
		{Key: "has_requirement", Target: &krav},
		{Key: "requirement_applies", Source: &krav},
		{Key: "uses_product", Target: &produkt},
	}

	// Source constraint outranks target constraint.
	assert.Equal(t, "requirement_applies", Best(cands, krav, byggdel, "fallback"))
	assert.Equal(t, "has_requirement", Best(cands, byggdel, krav, "fallback"))
	// Ties go to the earliest registered.
	assert.Equal(t, "uses_object", Best(cands, byggdel, rum, "fallback"))
	// Nothing matches.
	assert.Equal(t, "fallback", Best(cands[2:3], byggdel, rum, "fallback"))
	assert.Equal(t, "fallback", Best(nil, byggdel, rum, "fallback"))
}
