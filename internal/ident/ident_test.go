package ident

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPrefix(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		explicit string
		want     string
	}{
		{"explicit wins", "Byggdel", "dok", "DOK"},
		{"known byggdel", "Byggdel", "", "BYG"},
		{"known produkt", "Produkt", "", "PROD"},
		{"known kravställning", "Kravställning", "", "KRAV"},
		{"known anslutning", "Anslutning", "", "ANS"},
		{"known ritningsobjekt", "Ritningsobjekt", "", "RIT"},
		{"known egenskap", "Egenskap", "", "EG"},
		{"known anvisning", "Anvisning", "", "ANV"},
		{"first three letters", "Rum", "", "RUM"},
		{"skips non ascii", "Öppning", "", "PPN"},
		{"short name", "Ab", "", "AB"},
		{"nothing usable", "ÅÄÖ", "", "OBJ"},
		{"invalid explicit ignored", "Rum", "a-b", "RUM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Prefix(tt.typeName, tt.explicit))
		})
	}
}

func TestParseBase(t *testing.T) {
	tests := []struct {
		in     string
		prefix string
		n      int
		ok     bool
	}{
		{"BYG-1", "BYG", 1, true},
		{"byg-001", "BYG", 1, true},
		{"BYG-001.001", "BYG", 1, true},
		{"PROD-42.v3", "PROD", 42, true},
		{" KRAV-7 ", "KRAV", 7, true},
		{"BYG-0", "", 0, false},
		{"BYG", "", 0, false},
		{"", "", 0, false},
		{"BYG-1a", "", 0, false},
	}
	for _, tt := range tests {
		p, n, ok := ParseBase(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.prefix, p, tt.in)
		assert.Equal(t, tt.n, n, tt.in)
	}
}

func TestNormalizeVersion(t *testing.T) {
	for in, want := range map[string]string{
		"":    "v1",
		"v1":  "v1",
		"v01": "v1",
		"V2":  "v2",
		"3":   "v3",
		"v0":  "v1",
		"rev": "v1",
	} {
		assert.Equal(t, want, NormalizeVersion(in), in)
	}
}

func TestNormalizeFull(t *testing.T) {
	assert.Equal(t, "BYG-1.v1", NormalizeFull("byg-001.v01"))
	assert.Equal(t, "BYG-1.v1", NormalizeFull("BYG-1"))
	assert.Equal(t, "BYG-12.v2", NormalizeFull("BYG-12.2"))
	assert.Equal(t, "LEGACY", NormalizeFull(" legacy "))
}

func TestNext(t *testing.T) {
	assert.Equal(t, 4, Next([]string{"BYG-1", "BYG-3"}, "BYG"))
	assert.Equal(t, 1, Next(nil, "BYG"))
	assert.Equal(t, 6, Next([]string{"byg-005", "PROD-9", "junk"}, "BYG"))
}

func TestNew(t *testing.T) {
	id := New("BYG", 4)
	assert.Equal(t, Identifier{Base: "BYG-4", Version: "v1", Full: "BYG-4.v1"}, id)
	assert.True(t, IsCanonical(id))
	assert.False(t, IsCanonical(Identifier{Base: "BYG-004", Version: "v1", Full: "BYG-004.v1"}))
}

func TestNormalizeBatch(t *testing.T) {
	records := []Record{
		{ObjectID: "a", BaseID: "BYG-001", Version: "v01", FullID: "BYG-001.v01", FallbackPrefix: "BYG"},
		{ObjectID: "b", BaseID: "BYG-1", Version: "v1", FullID: "BYG-1.v1", FallbackPrefix: "BYG"},
		{ObjectID: "c", BaseID: "BYG-003.002", Version: "", FullID: "", FallbackPrefix: "BYG"},
		{ObjectID: "d", BaseID: "garbage", Version: "v2", FullID: "", FallbackPrefix: "PROD"},
		{ObjectID: "e", BaseID: "", Version: "", FullID: "", FallbackPrefix: "PROD"},
	}

	results, reallocs := NormalizeBatch(records)
	require.Len(t, results, 5)

	// b is already canonical and keeps BYG-1; a collides and is bumped.
	assert.Equal(t, "BYG-1", results[1].Base)
	assert.False(t, results[1].Changed)
	assert.Equal(t, "BYG-4", results[0].Base)
	assert.Equal(t, "BYG-4.v1", results[0].Full)
	assert.Equal(t, "BYG-3", results[2].Base)
	assert.Equal(t, "PROD-1", results[3].Base)
	assert.Equal(t, "PROD-1.v2", results[3].Full)
	assert.Equal(t, "PROD-2", results[4].Base)

	require.Len(t, reallocs, 2)
	assert.Equal(t, "a", reallocs[0].ObjectID)
	assert.Equal(t, "BYG-001", reallocs[0].From)
	assert.Equal(t, "BYG-4", reallocs[0].To)
	assert.Equal(t, "e", reallocs[1].ObjectID)
}

func TestNormalizeBatch_CanonicalInputIsNoop(t *testing.T) {
	records := []Record{
		{ObjectID: "a", BaseID: "BYG-1", Version: "v1", FullID: "BYG-1.v1"},
		{ObjectID: "b", BaseID: "BYG-3", Version: "v2", FullID: "BYG-3.v2"},
	}
	results, reallocs := NormalizeBatch(records)
	assert.Empty(t, reallocs)
	for _, r := range results {
		assert.False(t, r.Changed, r.ObjectID)
	}
}

var canonicalBase = regexp.MustCompile(`^[A-Z0-9_]+-[1-9][0-9]*$`)

// TestProperty_NormalizeBatchIdempotent checks that normalizing the output
// of a normalization changes nothing, and that every base is canonical and
// unique.
func TestProperty_NormalizeBatchIdempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		records := make([]Record, n)
		for i := range records {
			prefix := rapid.SampledFrom([]string{"BYG", "byg", "PROD", "KRAV"}).Draw(rt, "prefix")
			num := rapid.IntRange(0, 12).Draw(rt, "num")
			pad := rapid.IntRange(0, 3).Draw(rt, "pad")
			base := rapid.SampledFrom([]string{
				prefix + "-" + zeroPad(num, pad),
				prefix + "-" + zeroPad(num, pad) + ".00" + zeroPad(num, 0),
				"",
				"not an id",
			}).Draw(rt, "base")
			records[i] = Record{
				ObjectID:       zeroPad(i, 0),
				BaseID:         base,
				Version:        rapid.SampledFrom([]string{"", "v1", "v01", "2", "V3"}).Draw(rt, "version"),
				FallbackPrefix: rapid.SampledFrom([]string{"BYG", "OBJ", ""}).Draw(rt, "fallback"),
			}
		}

		first, _ := NormalizeBatch(records)
		seen := make(map[string]bool)
		again := make([]Record, len(first))
		for i, r := range first {
			if !canonicalBase.MatchString(r.Base) {
				rt.Fatalf("non-canonical base %q", r.Base)
			}
			if seen[r.Base] {
				rt.Fatalf("duplicate base %q", r.Base)
			}
			seen[r.Base] = true
			again[i] = Record{ObjectID: r.ObjectID, BaseID: r.Base, Version: r.Version, FullID: r.Full, FallbackPrefix: records[i].FallbackPrefix}
		}

		second, reallocs := NormalizeBatch(again)
		if len(reallocs) != 0 {
			rt.Fatalf("second pass reallocated %v", reallocs)
		}
		for i := range second {
			if second[i].Changed || second[i].Identifier != first[i].Identifier {
				rt.Fatalf("second pass changed %q: %v -> %v", second[i].ObjectID, first[i].Identifier, second[i].Identifier)
			}
		}
	})
}

func zeroPad(n, width int) string {
	return strings.Repeat("0", width) + strconv.Itoa(n)
}
