package chunking

import (
	"strings"

	"doc-rag-be/internal/apperror"
	"doc-rag-be/internal/constant"
)

// Chunk is one bounded fragment of a document's text, the unit of embedding
// and retrieval. Chunks are immutable once produced; reprocessing a document
// replaces the whole set.
type Chunk struct {
	Index        int
	Text         string
	CharLength   int
	SectionTitle string
}

// Engine splits extracted text by the policy ladder: header-aware splitting
// for structured types, recursive separator splitting otherwise, and a
// sliding window as the last resort inside both.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) Chunk(text, fileType string, targetSize, overlap int) ([]Chunk, error) {
	if targetSize <= 0 {
		targetSize = 1000
	}
	if overlap < 0 || overlap >= targetSize {
		overlap = targetSize / 5
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperror.Chunking("no text to chunk", nil)
	}

	if isStructured(fileType) {
		if chunks := splitBySections(trimmed, targetSize, overlap); chunks != nil {
			return chunks, nil
		}
	}

	pieces := splitRecursive(trimmed, targetSize, overlap)
	if len(pieces) == 0 {
		return nil, apperror.Chunking("splitter produced no chunks", nil)
	}

	chunks := make([]Chunk, len(pieces))
	for i, p := range pieces {
		chunks[i] = Chunk{
			Index:      i,
			Text:       p,
			CharLength: len(p),
		}
	}
	return chunks, nil
}

// isStructured reports whether the file type tends to carry section headers
// worth splitting on. Extracted PDF text carries markdown-style table and
// page headers, so it counts.
func isStructured(fileType string) bool {
	switch fileType {
	case constant.FileTypeMD, constant.FileTypePDF, constant.FileTypeDocx:
		return true
	}
	return false
}
