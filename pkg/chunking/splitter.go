package chunking

import (
	"strings"
)

// separators is the recursive split order, coarsest boundary first. The empty
// string terminates the ladder: at that point the window splitter takes over.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// splitRecursive breaks text into chunks of at most targetSize characters,
// preferring natural boundaries. Consecutive chunks share an overlap-sized
// tail so that no boundary sentence is lost to a cut.
func splitRecursive(text string, targetSize, overlap int) []string {
	pieces := splitPieces(text, separators, targetSize)
	return mergePieces(pieces, targetSize, overlap)
}

// splitPieces returns fragments of text each at most targetSize long, with
// their trailing separators kept attached so merging reproduces the source.
func splitPieces(text string, seps []string, targetSize int) []string {
	if len(text) <= targetSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if len(seps) == 0 {
		return windowPieces(text, targetSize)
	}

	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		return splitPieces(text, seps[1:], targetSize)
	}

	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > targetSize {
			pieces = append(pieces, splitPieces(part, seps[1:], targetSize)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// mergePieces packs fragments back into chunks close to targetSize. Each new
// chunk is seeded with the tail of the previous one so neighbours overlap.
func mergePieces(pieces []string, targetSize, overlap int) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+len(piece) > targetSize {
			flush()
			tail := overlapTail(current.String(), overlap)
			current.Reset()
			current.WriteString(tail)
		}
		current.WriteString(piece)
	}
	flush()
	return chunks
}

// overlapTail returns the last overlap characters of text, extended left to
// the nearest space so the carried context starts on a word boundary.
func overlapTail(text string, overlap int) string {
	if overlap <= 0 || len(text) <= overlap {
		if overlap <= 0 {
			return ""
		}
		return text
	}
	tail := text[len(text)-overlap:]
	if idx := strings.IndexByte(tail, ' '); idx >= 0 && idx < len(tail)-1 {
		tail = tail[idx+1:]
	}
	return tail
}
