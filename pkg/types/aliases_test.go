package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFieldName(t *testing.T) {
	for _, in := range []string{"Del A", "del_a", "DEL-A", " dela "} {
		assert.Equal(t, "dela", NormalizeFieldName(in), in)
	}
	assert.Equal(t, "namn", NormalizeFieldName("Namn"))
	assert.Equal(t, "längdm", NormalizeFieldName("Längd (m)"))
}

func TestTypeNamesMatch(t *testing.T) {
	tests := []struct {
		expected, actual string
		want             bool
	}{
		{"BuildingPart", "Byggdel", true},
		{"Byggdel", "byggdel", true},
		{"Requirement", "Kravställning", true},
		{"Requirement", "kravstallning", true},
		{"Document", "Ritningsobjekt", true},
		{"Build up line", "Uppbyggnadsrad", true},
		{"Product", "Byggdel", false},
		{"Produkt", "", false},
		{"Okänd", "Okänd", true},
		{"Okänd", "Annan", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeNamesMatch(tt.expected, tt.actual), "%s vs %s", tt.expected, tt.actual)
	}
}

func TestConceptOf(t *testing.T) {
	c, ok := ConceptOf("Produkt")
	assert.True(t, ok)
	assert.Equal(t, ConceptProduct, c)

	_, ok = ConceptOf("Egenskap")
	assert.False(t, ok)
}

func TestIsConnectionType(t *testing.T) {
	assert.True(t, IsConnectionType("Anslutning"))
	assert.True(t, IsConnectionType("Vägganslutning"))
	assert.True(t, IsConnectionType("Connection"))
	assert.False(t, IsConnectionType("Byggdel"))
}

func TestConnectionParts(t *testing.T) {
	for _, n := range []string{"Del A", "del_a", "dela", "Part A"} {
		assert.True(t, IsConnectionPartA(n), n)
		assert.False(t, IsConnectionPartB(n), n)
	}
	for _, n := range []string{"Del B", "del_b", "DELB", "part_b"} {
		assert.True(t, IsConnectionPartB(n), n)
	}
}

func TestCanonicalColor(t *testing.T) {
	c, ok := CanonicalColor("#3498DB")
	assert.True(t, ok)
	assert.Equal(t, "#3498db", c)

	c, ok = CanonicalColor("#0ea5e9")
	assert.True(t, ok)
	assert.Equal(t, "#0EA5E9", c)

	_, ok = CanonicalColor("#123456")
	assert.False(t, ok)
}

func TestNormalizeCardinality(t *testing.T) {
	c, ok := NormalizeCardinality("")
	assert.True(t, ok)
	assert.Equal(t, CardinalityManyToMany, c)

	c, ok = NormalizeCardinality("1toN")
	assert.True(t, ok)
	assert.Equal(t, CardinalityOneToMany, c)

	_, ok = NormalizeCardinality("some")
	assert.False(t, ok)
}
