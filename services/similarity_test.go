package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "tarkovsky", normalizeName("  Tarkovsky "))
	assert.Equal(t, "albert camus", normalizeName("Albert Camus"))
	assert.Equal(t, "", normalizeName("   "))
}

func TestNameSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, nameSimilarity("tarkovsky", "tarkovsky"))

	// ein Tippfehler bei neun Zeichen
	assert.InDelta(t, 8.0/9.0, nameSimilarity("tarkovsky", "tarkovski"), 1e-9)

	// umgestellte Namensteile: Token-Überlappung rettet den Score
	assert.InDelta(t, 1.0, nameSimilarity("andrei tarkovsky", "tarkovsky, andrei"), 1e-9)

	// völlig verschiedene Namen bleiben deutlich unter jedem Schwellwert
	assert.Less(t, nameSimilarity("tarkovsky", "bergman"), 0.5)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein([]rune("abc"), []rune("abc")))
	assert.Equal(t, 3, levenshtein([]rune(""), []rune("abc")))
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
	// Unicode zählt in Runen, nicht Bytes
	assert.Equal(t, 1, levenshtein([]rune("קאמי"), []rune("קאמו")))
}

func TestTokenOverlap(t *testing.T) {
	assert.Equal(t, 1.0, tokenOverlap("andrei tarkovsky", "tarkovsky andrei"))
	assert.InDelta(t, 1.0/3.0, tokenOverlap("andrei tarkovsky", "andrei rublev"), 1e-9)
	assert.Equal(t, 0.0, tokenOverlap("tarkovsky", ""))
}
