package ident

import "github.com/mesh-intelligence/typegraph/pkg/types"

// Record is one stored identifier as read from the objects table.
type Record struct {
	ObjectID       string
	BaseID         string
	Version        string
	FullID         string
	FallbackPrefix string
}

// Result is the canonical identifier computed for one Record.
type Result struct {
	ObjectID string
	Identifier
	Changed bool
}

// NormalizeBatch computes canonical identifiers for a set of records so that
// every base identifier is unique. Records whose stored base is already
// canonical keep it; the rest take their canonical form, or the next free
// number for their prefix when that form is taken. Bumps are returned as
// reallocations. Results are in input order.
//
// Applying the results and normalizing again yields no changes.
func NormalizeBatch(records []Record) ([]Result, []types.Reallocation) {
	type candidate struct {
		prefix string
		base   string
	}

	cands := make([]candidate, len(records))
	highest := make(map[string]int)
	for i, r := range records {
		p, n, ok := ParseBase(r.BaseID)
		if !ok {
			p, n, ok = ParseBase(r.FullID)
		}
		if !ok {
			p, n = fallbackPrefix(r.FallbackPrefix), 1
		}
		cands[i] = candidate{prefix: p, base: FormatBase(p, n)}
		if n > highest[p] {
			highest[p] = n
		}
	}

	used := make(map[string]bool, len(records))
	reserved := make([]bool, len(records))
	for i, r := range records {
		if r.BaseID == cands[i].base && !used[r.BaseID] {
			used[r.BaseID] = true
			reserved[i] = true
		}
	}

	results := make([]Result, len(records))
	var reallocs []types.Reallocation
	for i, r := range records {
		base := cands[i].base
		if !reserved[i] {
			if used[base] {
				p := cands[i].prefix
				next := highest[p] + 1
				for used[FormatBase(p, next)] {
					next++
				}
				highest[p] = next
				bumped := FormatBase(p, next)
				reallocs = append(reallocs, types.Reallocation{ObjectID: r.ObjectID, From: r.BaseID, To: bumped})
				base = bumped
			}
			used[base] = true
		}

		version := NormalizeVersion(r.Version)
		id := Identifier{Base: base, Version: version, Full: ComposeFull(base, version)}
		results[i] = Result{
			ObjectID:   r.ObjectID,
			Identifier: id,
			Changed:    id.Base != r.BaseID || id.Version != r.Version || id.Full != r.FullID,
		}
	}
	return results, reallocs
}

func fallbackPrefix(p string) string {
	if n, ok := NormalizePrefix(p); ok {
		return n
	}
	return DefaultPrefix
}
