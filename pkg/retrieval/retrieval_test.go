package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag-be/internal/entity"
	"doc-rag-be/internal/repository/contract"
)

func scoredChunk(text string, similarity float64) *contract.ScoredChunk {
	return &contract.ScoredChunk{
		Chunk:      &entity.Chunk{Text: text},
		Similarity: similarity,
	}
}

func TestIsTableQuery(t *testing.T) {
	assert.True(t, isTableQuery("show me the torque table"))
	assert.True(t, isTableQuery("what is the spec for 10-42"))
	assert.True(t, isTableQuery("Table 3 values"))
	assert.False(t, isTableQuery("summarize the introduction"))
}

func TestApplyBoostsExactCodeWins(t *testing.T) {
	prose := scoredChunk("plain prose about maintenance", 0.90)
	generic := scoredChunk("### Extracted Table 2 from Page 4\n| A | B |", 0.80)
	exact := scoredChunk("### Extracted Table 1 from Page 2\n| 10-42 | 25Nm |", 0.70)

	ranked := applyBoosts([]*contract.ScoredChunk{prose, generic, exact}, "torque for 10-42 in the table", true)
	require.Len(t, ranked, 3)

	// 0.70*1.5 = 1.05 beats 0.80*1.2 = 0.96 beats unboosted 0.90
	assert.Contains(t, ranked[0].chunk.Text, "10-42")
	assert.Contains(t, ranked[1].chunk.Text, "Table 2")
	assert.Equal(t, "plain prose about maintenance", ranked[2].chunk.Text)

	assert.InDelta(t, 0.70*exactTableBoost, ranked[0].score, 1e-9)
	assert.InDelta(t, 0.80*genericTableBoost, ranked[1].score, 1e-9)
	assert.InDelta(t, 0.90, ranked[2].score, 1e-9)
}

func TestApplyBoostsNoTableQueryLeavesProseAlone(t *testing.T) {
	prose := scoredChunk("installation overview", 0.85)
	table := scoredChunk("### Extracted Table 1 from Page 1\n| X | Y |", 0.60)

	ranked := applyBoosts([]*contract.ScoredChunk{prose, table}, "installation overview", false)
	assert.Equal(t, "installation overview", ranked[0].chunk.Text)
	assert.InDelta(t, 0.60, ranked[1].score, 1e-9, "no boost without a table query or code match")
}

func TestApplyBoostsExactCodeFiresWithoutExtractionMarker(t *testing.T) {
	// a chunk literally labeled with the referenced code outranks a generic
	// extracted table, even though it carries no extraction marker at all
	labeled := scoredChunk("Table 2-2: Results of the durability test", 0.80)
	generic := scoredChunk("### Extracted Table 5 from Page 9\n| A | B |", 0.80)

	ranked := applyBoosts([]*contract.ScoredChunk{generic, labeled}, "What does Table 2-2 show?", true)
	require.Len(t, ranked, 2)

	assert.Contains(t, ranked[0].chunk.Text, "Table 2-2")
	assert.InDelta(t, 0.80*exactTableBoost, ranked[0].score, 1e-9)
	assert.InDelta(t, 0.80*genericTableBoost, ranked[1].score, 1e-9)
	assert.False(t, ranked[0].containsTable)
}

func TestApplyBoostsExactCodeFiresWithoutTableWord(t *testing.T) {
	table := scoredChunk("### Extracted Table 1 from Page 1\n| 7-15 | 12Nm |", 0.50)

	ranked := applyBoosts([]*contract.ScoredChunk{table}, "spec for 7-15", true)
	assert.InDelta(t, 0.50*exactTableBoost, ranked[0].score, 1e-9)
	assert.True(t, ranked[0].containsTable)
}

func TestApplyBoostsPreservesOrderMonotonicity(t *testing.T) {
	chunks := []*contract.ScoredChunk{
		scoredChunk("prose one", 0.9),
		scoredChunk("prose two", 0.8),
		scoredChunk("prose three", 0.7),
	}
	ranked := applyBoosts(chunks, "anything at all", false)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].score, ranked[i].score)
	}
}

func TestBuildContextJoinsWithSeparator(t *testing.T) {
	rankedChunks := []ranked{
		{chunk: &entity.Chunk{Text: "first chunk"}},
		{chunk: &entity.Chunk{Text: "second chunk"}},
	}
	ctx := buildContext(rankedChunks, 1000)
	assert.Equal(t, "first chunk\n\n---\n\nsecond chunk", ctx)
}

func TestBuildContextTruncatesAtBudget(t *testing.T) {
	long := strings.Repeat("abcdefghij", 100)
	rankedChunks := []ranked{
		{chunk: &entity.Chunk{Text: long}},
		{chunk: &entity.Chunk{Text: long}},
	}
	ctx := buildContext(rankedChunks, 1200)
	assert.LessOrEqual(t, len(ctx), 1200)
	assert.True(t, strings.HasSuffix(ctx, "... [truncated]"))
}

func TestBuildContextEmptyInput(t *testing.T) {
	assert.Equal(t, "", buildContext(nil, 1000))
}
