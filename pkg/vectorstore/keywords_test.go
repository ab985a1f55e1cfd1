package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractKeywordsFiltersStopwordsAndShortTerms(t *testing.T) {
	keywords := ExtractKeywords("What is the torque for the M8 bolt on page 12?")
	assert.Equal(t, []string{"torque", "bolt", "page"}, keywords)
}

func TestExtractKeywordsDeduplicates(t *testing.T) {
	keywords := ExtractKeywords("pump housing pump seal pump")
	assert.Equal(t, []string{"pump", "housing", "seal"}, keywords)
}

func TestExtractKeywordsKeepsHyphenatedCodes(t *testing.T) {
	keywords := ExtractKeywords("see part 10-42 in the schedule")
	assert.Contains(t, keywords, "10-42")
}

func TestKeywordOverlapScore(t *testing.T) {
	terms := []string{"torque", "bolt", "housing"}

	assert.Equal(t, 0.0, keywordOverlapScore("", terms))
	assert.Equal(t, 0.0, keywordOverlapScore("valve, seal", terms))
	assert.InDelta(t, 1.0/3.0, keywordOverlapScore("bolt, valve", terms), 1e-9)
	assert.Equal(t, 1.0, keywordOverlapScore("torque, bolt, housing, extra", terms))
}

func TestKeywordOverlapScoreIsCaseInsensitive(t *testing.T) {
	score := keywordOverlapScore("Torque, BOLT", []string{"torque", "bolt"})
	assert.Equal(t, 1.0, score)
}

func TestSortScoredImagesDescending(t *testing.T) {
	scored := []ScoredImage{{Score: 0.2}, {Score: 0.9}, {Score: 0.5}}
	sortScoredImages(scored)
	assert.Equal(t, 0.9, scored[0].Score)
	assert.Equal(t, 0.5, scored[1].Score)
	assert.Equal(t, 0.2, scored[2].Score)
}
