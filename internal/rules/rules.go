// Package rules decides relation type legality for pairs of object types.
// It holds the pure scope check and the inference scoring; the storage
// backend feeds it relation types in registration order.
package rules

import "github.com/mesh-intelligence/typegraph/pkg/types"

// Endpoint identifies the object type on one side of a relation.
type Endpoint struct {
	TypeID   string
	TypeName string
}

// Candidate is a relation type with its resolved endpoint constraints. A nil
// constraint accepts any object type.
type Candidate struct {
	Key    string
	Source *Endpoint
	Target *Endpoint
}

// Matches reports whether actual satisfies constraint. Types match by id or,
// failing that, by name through the alias table.
func Matches(constraint *Endpoint, actual Endpoint) bool {
	if constraint == nil {
		return true
	}
	if constraint.TypeID != "" && constraint.TypeID == actual.TypeID {
		return true
	}
	return types.TypeNamesMatch(constraint.TypeName, actual.TypeName)
}

// CheckScope returns a *types.ScopeViolationError naming the first endpoint
// whose type violates c's constraints, or nil.
func CheckScope(c Candidate, source, target Endpoint) error {
	if !Matches(c.Source, source) {
		return &types.ScopeViolationError{
			RelationType: c.Key,
			Endpoint:     "source",
			Expected:     c.Source.TypeName,
			Actual:       source.TypeName,
		}
	}
	if !Matches(c.Target, target) {
		return &types.ScopeViolationError{
			RelationType: c.Key,
			Endpoint:     "target",
			Expected:     c.Target.TypeName,
			Actual:       target.TypeName,
		}
	}
	return nil
}

// Score rates how specifically c fits the pair: 2 for a satisfied source
// constraint plus 1 for a satisfied target constraint. ok is false when a
// constraint is not satisfied.
func Score(c Candidate, source, target Endpoint) (score int, ok bool) {
	if !Matches(c.Source, source) || !Matches(c.Target, target) {
		return 0, false
	}
	if c.Source != nil {
		score += 2
	}
	if c.Target != nil {
		score++
	}
	return score, true
}

// Best returns the key of the highest scoring candidate. Ties go to the
// earliest candidate; with no match it returns fallback.
func Best(cands []Candidate, source, target Endpoint, fallback string) string {
	best, bestScore := "", -1
	for _, c := range cands {
		s, ok := Score(c, source, target)
		if ok && s > bestScore {
			best, bestScore = c.Key, s
		}
	}
	if best == "" {
		return fallback
	}
	return best
}
