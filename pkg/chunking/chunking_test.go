package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-rag-be/internal/constant"
)

func TestChunkRespectsTargetSize(t *testing.T) {
	engine := NewEngine()
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)

	chunks, err := engine.Chunk(text, constant.FileTypeText, 500, 100)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for _, c := range chunks {
		assert.LessOrEqual(t, c.CharLength, 500+100, "chunk %d too large", c.Index)
		assert.Equal(t, len(c.Text), c.CharLength)
	}
}

func TestChunkIndexesAreSequential(t *testing.T) {
	engine := NewEngine()
	text := strings.Repeat("alpha beta gamma delta. ", 300)

	chunks, err := engine.Chunk(text, constant.FileTypeText, 400, 80)
	require.NoError(t, err)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestChunkPreservesContent(t *testing.T) {
	engine := NewEngine()
	sentences := []string{
		"Section one covers installation steps.",
		"Section two covers network configuration in depth.",
		"Section three lists every supported error code.",
	}
	text := strings.Join(sentences, " ")

	chunks, err := engine.Chunk(strings.Repeat(text+" ", 50), constant.FileTypeText, 300, 60)
	require.NoError(t, err)

	joined := ""
	for _, c := range chunks {
		joined += c.Text + " "
	}
	for _, s := range sentences {
		assert.Contains(t, joined, s)
	}
}

func TestChunkNeighboursOverlap(t *testing.T) {
	engine := NewEngine()
	text := strings.Repeat("one two three four five six seven eight nine ten. ", 100)

	chunks, err := engine.Chunk(text, constant.FileTypeText, 400, 100)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		head := chunks[i].Text
		if len(head) > 40 {
			head = head[:40]
		}
		assert.Contains(t, prev+" "+chunks[i].Text, head)
		// the new chunk must begin inside the previous chunk's tail
		tail := prev[len(prev)-min(len(prev), 200):]
		firstWord := strings.SplitN(chunks[i].Text, " ", 2)[0]
		assert.Contains(t, tail, firstWord)
	}
}

func TestChunkEmptyTextFails(t *testing.T) {
	engine := NewEngine()
	_, err := engine.Chunk("   \n\t ", constant.FileTypeText, 1000, 200)
	assert.Error(t, err)
}

func TestChunkMarkdownKeepsSectionTitles(t *testing.T) {
	engine := NewEngine()
	text := "# Introduction\n" + strings.Repeat("Opening remarks about the product. ", 20) +
		"\n## Setup\n" + strings.Repeat("Run the installer and accept defaults. ", 20) +
		"\n## Troubleshooting\n" + strings.Repeat("Check the logs under /var/log first. ", 20)

	chunks, err := engine.Chunk(text, constant.FileTypeMD, 300, 60)
	require.NoError(t, err)

	titles := map[string]bool{}
	for _, c := range chunks {
		titles[c.SectionTitle] = true
	}
	assert.True(t, titles["Introduction"])
	assert.True(t, titles["Setup"])
	assert.True(t, titles["Troubleshooting"])
}

func TestWindowPiecesAlwaysProgresses(t *testing.T) {
	text := strings.Repeat("x", 10_000)
	pieces := windowPieces(text, 512)
	require.NotEmpty(t, pieces)

	total := 0
	for _, p := range pieces {
		assert.LessOrEqual(t, len(p), 512)
		total += len(p)
	}
	assert.Equal(t, len(text), total)
}

func TestWindowPiecesTinySize(t *testing.T) {
	pieces := windowPieces("abc", 0)
	assert.Equal(t, []string{"a", "b", "c"}, pieces)
}
