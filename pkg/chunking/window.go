package chunking

// windowPieces is the last-resort splitter for text with no usable
// separators, such as minified content or a single enormous token. It cuts
// fixed windows and guarantees forward progress of at least one character,
// so pathological input can never loop the chunker.
func windowPieces(text string, size int) []string {
	if size < 1 {
		size = 1
	}
	var pieces []string
	for start := 0; start < len(text); {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		pieces = append(pieces, text[start:end])
		if end <= start {
			end = start + 1
		}
		start = end
	}
	return pieces
}
