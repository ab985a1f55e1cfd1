package extraction

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	columnGap = regexp.MustCompile(`\t|\s{2,}`)
	cellCode  = regexp.MustCompile(`\b\d+-\d+\b`)
)

// minTableRows is the smallest run of aligned lines treated as a table.
const minTableRows = 3

// rewriteTables scans a page for runs of column-aligned lines and rewrites
// each run as a markdown table under a numbered heading. tableOffset is the
// number of tables already emitted for earlier pages so headings stay
// globally numbered. Returns the rewritten page and the number of tables
// found on it.
func rewriteTables(page string, pageNo, tableOffset int) (string, int) {
	lines := strings.Split(page, "\n")

	var out []string
	tables := 0
	i := 0
	for i < len(lines) {
		if !isTabular(lines[i]) {
			out = append(out, lines[i])
			i++
			continue
		}

		j := i
		for j < len(lines) && isTabular(lines[j]) {
			j++
		}
		run := lines[i:j]
		if len(run) < minTableRows {
			out = append(out, run...)
			i = j
			continue
		}

		tables++
		out = append(out, "", fmt.Sprintf("### Extracted Table %d from Page %d", tableOffset+tables, pageNo), "")
		out = append(out, toMarkdownTable(run)...)
		out = append(out, "")
		i = j
	}

	return strings.Join(out, "\n"), tables
}

// isTabular reports whether a line looks like a table row: at least two
// column gaps, or a part-number style cell such as "10-42" next to other
// columns.
func isTabular(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	gaps := len(columnGap.FindAllString(trimmed, -1))
	if gaps >= 2 {
		return true
	}
	return gaps >= 1 && cellCode.MatchString(trimmed)
}

// toMarkdownTable converts aligned rows into a pipe table, using the first
// row as the header. Column counts are padded to the widest row so ragged
// input still renders.
func toMarkdownTable(rows []string) []string {
	cells := make([][]string, 0, len(rows))
	width := 0
	for _, row := range rows {
		cols := columnGap.Split(strings.TrimSpace(row), -1)
		if len(cols) > width {
			width = len(cols)
		}
		cells = append(cells, cols)
	}

	var out []string
	for idx, cols := range cells {
		for len(cols) < width {
			cols = append(cols, "")
		}
		out = append(out, "| "+strings.Join(cols, " | ")+" |")
		if idx == 0 {
			sep := make([]string, width)
			for k := range sep {
				sep[k] = "---"
			}
			out = append(out, "| "+strings.Join(sep, " | ")+" |")
		}
	}
	return out
}
