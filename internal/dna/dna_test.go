package dna

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	assert.True(t, Valid("ACGTAC"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("ACG"[:2]))
	assert.False(t, Valid("ACGX"+"AC"))
	assert.False(t, Valid("ACGTA"))
}

func TestCodonEditDistanceIdentical(t *testing.T) {
	assert.Equal(t, 0, CodonEditDistance("ACGTACGTAC", "ACGTACGTAC"))
}

func TestCodonEditDistanceSubstitution(t *testing.T) {
	// one codon differs: "ACG TAC GTA" vs "ACG TAC GGG"
	assert.Equal(t, 1, CodonEditDistance("ACGTACGTA", "ACGTACGGG"))
}

func TestCodonEditDistanceInsertion(t *testing.T) {
	assert.Equal(t, 1, CodonEditDistance("ACGTAC", "ACGTACGGG"))
}

func TestAllowedDistanceAndMatches(t *testing.T) {
	reference := strings.Repeat("ACG", 100000) // 100000 codons -> allowed 1
	assert.Equal(t, 1, AllowedDistance(reference))

	sample := strings.Repeat("ACG", 99999) + "TTT"
	assert.True(t, Matches(reference, sample))
}

func TestMatchesRejectsTooManyEdits(t *testing.T) {
	reference := strings.Repeat("ACG", 99999) // 99999 codons -> allowed 0
	sample := strings.Repeat("ACG", 99998) + "TTT"
	assert.False(t, Matches(reference, sample))
}
