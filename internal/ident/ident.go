// Package ident formats, parses and normalizes object identifiers.
//
// A base identifier has the form PREFIX-N with N a positive integer written
// without zero padding. A version has the form vM with M >= 1. The full
// identifier is BASE.VERSION. Everything here is pure; allocation against
// stored identifiers lives in the storage backend.
package ident

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/typegraph/pkg/types"
)

// DefaultPrefix is used when no prefix can be derived from a type name.
const DefaultPrefix = "OBJ"

// knownPrefixes maps normalized type names to their established prefixes.
var knownPrefixes = map[string]string{
	"byggdel":        "BYG",
	"produkt":        "PROD",
	"kravställning":  "KRAV",
	"kravstallning":  "KRAV",
	"anslutning":     "ANS",
	"ritningsobjekt": "RIT",
	"egenskap":       "EG",
	"anvisning":      "ANV",
	"filobjekt":      "FIL",
}

var (
	basePattern    = regexp.MustCompile(`^([A-Za-z0-9_]+)-(\d+)$`)
	prefixPattern  = regexp.MustCompile(`^[A-Z0-9_]+$`)
	versionPattern = regexp.MustCompile(`^[vV]?(\d+)$`)
)

// Identifier is the canonical identifier triple of one object.
type Identifier struct {
	Base    string `json:"base_id"`
	Version string `json:"version"`
	Full    string `json:"full_id"`
}

// NormalizePrefix upper-cases p and reports whether it is a legal prefix.
func NormalizePrefix(p string) (string, bool) {
	p = strings.ToUpper(strings.TrimSpace(p))
	return p, prefixPattern.MatchString(p)
}

// Prefix resolves the identifier prefix of a type: the explicit id_prefix
// when set, else a known prefix for the name, else the first three letters
// or digits of the name, else DefaultPrefix.
func Prefix(typeName, explicit string) string {
	if p, ok := NormalizePrefix(explicit); ok {
		return p
	}
	key := types.NormalizeTypeName(typeName)
	if p, ok := knownPrefixes[key]; ok {
		return p
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(typeName) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	if b.Len() == 0 {
		return DefaultPrefix
	}
	return b.String()
}

// FormatBase returns PREFIX-N.
func FormatBase(prefix string, n int) string {
	return strings.ToUpper(prefix) + "-" + strconv.Itoa(n)
}

// ParseBase extracts the upper-cased prefix and the numeric suffix of a
// base identifier. It tolerates zero padding and a trailing ".version"
// fragment. The suffix must be a positive integer.
func ParseBase(s string) (prefix string, n int, ok bool) {
	s = strings.TrimSpace(s)
	m := basePattern.FindStringSubmatch(s)
	if m == nil {
		head, _, found := strings.Cut(s, ".")
		if !found {
			return "", 0, false
		}
		m = basePattern.FindStringSubmatch(head)
		if m == nil {
			return "", 0, false
		}
	}
	n, err := strconv.Atoi(m[2])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return strings.ToUpper(m[1]), n, true
}

// NormalizeBase returns the canonical form of s, or false when s carries no
// recoverable PREFIX-N.
func NormalizeBase(s string) (string, bool) {
	p, n, ok := ParseBase(s)
	if !ok {
		return "", false
	}
	return FormatBase(p, n), true
}

// NormalizeVersion returns vM for inputs such as "v01", "V2" or "3". Empty,
// zero and unparsable versions become v1.
func NormalizeVersion(v string) string {
	return "v" + strconv.Itoa(VersionNumber(v))
}

// VersionNumber returns the numeric part of a version, at least 1.
func VersionNumber(v string) int {
	m := versionPattern.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ComposeFull returns BASE.VERSION.
func ComposeFull(base, version string) string {
	return base + "." + version
}

// NormalizeFull returns the canonical form of a full identifier for
// comparison. Unparsable input is trimmed and upper-cased.
func NormalizeFull(full string) string {
	full = strings.TrimSpace(full)
	head, version, _ := strings.Cut(full, ".")
	base, ok := NormalizeBase(head)
	if !ok {
		return strings.ToUpper(full)
	}
	return ComposeFull(base, NormalizeVersion(version))
}

// New returns the identifier of a freshly allocated object.
func New(prefix string, n int) Identifier {
	base := FormatBase(prefix, n)
	version := NormalizeVersion("")
	return Identifier{Base: base, Version: version, Full: ComposeFull(base, version)}
}

// Next returns max+1 over the suffixes of existing identifiers sharing
// prefix. Gaps are not reused.
func Next(existing []string, prefix string) int {
	prefix = strings.ToUpper(prefix)
	highest := 0
	for _, id := range existing {
		p, n, ok := ParseBase(id)
		if ok && p == prefix && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// IsCanonical reports whether id is already identical to its normalized
// form.
func IsCanonical(id Identifier) bool {
	base, ok := NormalizeBase(id.Base)
	if !ok || base != id.Base {
		return false
	}
	v := NormalizeVersion(id.Version)
	return v == id.Version && id.Full == ComposeFull(base, v)
}
