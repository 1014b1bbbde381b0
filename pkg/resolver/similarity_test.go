package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiceCoefficient_IdenticalStrings(t *testing.T) {
	assert.Equal(t, 1.0, diceCoefficient("bonk", "bonk"))
}

func TestDiceCoefficient_EmptyStrings(t *testing.T) {
	assert.Equal(t, 0.0, diceCoefficient("", ""))
	assert.Equal(t, 0.0, diceCoefficient("bonk", ""))
}

func TestDiceCoefficient_TooShortForBigrams(t *testing.T) {
	assert.Equal(t, 0.0, diceCoefficient("a", "ab"))
	assert.Equal(t, 0.0, diceCoefficient("ab", "c"))
}

func TestDiceCoefficient_DisjointStrings(t *testing.T) {
	assert.Equal(t, 0.0, diceCoefficient("bonk", "wif"))
}

func TestDiceCoefficient_SpacedVariant(t *testing.T) {
	// "dogwifhat" vs "dog wif hat": 6 shared bigrams over 8 + 10.
	assert.InDelta(t, 12.0/18.0, diceCoefficient("dogwifhat", "dog wif hat"), 0.0001)
}

func TestDiceCoefficient_RepeatedBigramsNotDoubleCounted(t *testing.T) {
	// "aaaa" has three "aa" bigrams, "aab" has one; overlap must be 1.
	assert.InDelta(t, 2.0/5.0, diceCoefficient("aaaa", "aab"), 0.0001)
}

func TestPhraseLike_ContainsWinsWithoutSimilarity(t *testing.T) {
	assert.True(t, phraseLike("Dogwifhat Token", "dogwifhat"))
}

func TestPhraseLike_SimilarityAboveThreshold(t *testing.T) {
	assert.True(t, phraseLike("dogwifhat", "dog wif hat"))
	assert.False(t, phraseLike("pepe", "dog wif hat"))
}
