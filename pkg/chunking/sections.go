package chunking

import (
	"regexp"
	"strings"
)

var headerPattern = regexp.MustCompile(`^(#{1,6}\s+.+|\d+(\.\d+)*\s+\S.*)$`)

type section struct {
	title string
	body  []string
}

// splitBySections partitions text at markdown-style and numbered headings
// and chunks each section independently, stamping the section title on every
// chunk. Returns nil when the text carries no headings, signalling the
// caller to fall back to plain recursive splitting.
func splitBySections(text string, targetSize, overlap int) []Chunk {
	lines := strings.Split(text, "\n")

	var sections []section
	current := section{}
	headerCount := 0
	for _, line := range lines {
		if headerPattern.MatchString(strings.TrimSpace(line)) {
			if current.title != "" || len(current.body) > 0 {
				sections = append(sections, current)
			}
			current = section{title: cleanTitle(line)}
			headerCount++
			continue
		}
		current.body = append(current.body, line)
	}
	if current.title != "" || len(current.body) > 0 {
		sections = append(sections, current)
	}

	if headerCount == 0 {
		return nil
	}

	var chunks []Chunk
	for _, sec := range sections {
		body := strings.TrimSpace(strings.Join(sec.body, "\n"))
		if body == "" {
			continue
		}
		if sec.title != "" {
			body = sec.title + "\n" + body
		}
		for _, piece := range splitRecursive(body, targetSize, overlap) {
			chunks = append(chunks, Chunk{
				Index:        len(chunks),
				Text:         piece,
				CharLength:   len(piece),
				SectionTitle: sec.title,
			})
		}
	}
	if len(chunks) == 0 {
		return nil
	}
	return chunks
}

func cleanTitle(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "# "))
}
