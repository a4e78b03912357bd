package types

import (
	"strings"
	"unicode"
)

// Concept is a canonical object type concept that several historical type
// names refer to.
type Concept string

// Known concepts.
const (
	ConceptRequirement  Concept = "Requirement"
	ConceptProduct      Concept = "Product"
	ConceptDocument     Concept = "Document"
	ConceptBuildingPart Concept = "BuildingPart"
	ConceptBuildUpLine  Concept = "BuildUpLine"
	ConceptConnection   Concept = "Connection"
)

// conceptAliases is the single alias table for object type names. Entries
// are compared after NormalizeTypeName.
var conceptAliases = map[Concept][]string{
	ConceptRequirement:  {"requirement", "kravstallning", "kravställning"},
	ConceptProduct:      {"product", "produkt"},
	ConceptDocument:     {"document", "filobjekt", "ritningsobjekt", "dokumentobjekt"},
	ConceptBuildingPart: {"buildingpart", "building part", "byggdel"},
	ConceptBuildUpLine:  {"buildupline", "build up line", "uppbyggnadsrad", "uppbyggnadslinje"},
	ConceptConnection:   {"connection", "anslutning"},
}

// aliasIndex maps a normalized alias to its concept.
var aliasIndex = func() map[string]Concept {
	idx := make(map[string]Concept)
	for c, names := range conceptAliases {
		idx[NormalizeTypeName(string(c))] = c
		for _, n := range names {
			idx[NormalizeTypeName(n)] = c
		}
	}
	return idx
}()

// connectionMarker is the substring that marks a connection type.
const connectionMarker = "anslutning"

// Endpoint field aliases of connection types, in normalized form.
var (
	ConnectionPartA = []string{"dela", "parta"}
	ConnectionPartB = []string{"delb", "partb"}
)

// normalizeKey lower-cases s and keeps only letters and digits.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeTypeName returns the identity form of an object type name used
// for alias matching.
func NormalizeTypeName(name string) string {
	return normalizeKey(name)
}

// NormalizeFieldName returns the identity form of a field name: "Del A",
// "del_a" and "DEL-A" all normalize to "dela".
func NormalizeFieldName(name string) string {
	return normalizeKey(name)
}

// TypeNameKey is the case-insensitive uniqueness key for object type names.
func TypeNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ConceptOf returns the concept a type name is an alias of.
func ConceptOf(typeName string) (Concept, bool) {
	c, ok := aliasIndex[NormalizeTypeName(typeName)]
	return c, ok
}

// TypeNamesMatch reports whether actual satisfies a constraint on expected,
// either by normalized name or by sharing a concept.
func TypeNamesMatch(expected, actual string) bool {
	e, a := NormalizeTypeName(expected), NormalizeTypeName(actual)
	if e == "" || a == "" {
		return false
	}
	if e == a {
		return true
	}
	ce, okE := aliasIndex[e]
	ca, okA := aliasIndex[a]
	return okE && okA && ce == ca
}

// IsConnectionType reports whether typeName names a connection type, whose
// namn value is computed from its two endpoint fields.
func IsConnectionType(typeName string) bool {
	n := NormalizeTypeName(typeName)
	if strings.Contains(n, connectionMarker) {
		return true
	}
	c, ok := aliasIndex[n]
	return ok && c == ConceptConnection
}

// IsConnectionPartA reports whether a field name is an alias of "Del A".
func IsConnectionPartA(fieldName string) bool {
	return containsString(ConnectionPartA, NormalizeFieldName(fieldName))
}

// IsConnectionPartB reports whether a field name is an alias of "Del B".
func IsConnectionPartB(fieldName string) bool {
	return containsString(ConnectionPartB, NormalizeFieldName(fieldName))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
