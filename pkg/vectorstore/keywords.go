package vectorstore

import (
	"sort"
	"strings"
	"unicode"
)

// stopwords excluded from keyword extraction. Short and deliberately
// English-only; a missed stopword costs one noisy keyword, nothing more.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "have": true,
	"how": true, "in": true, "is": true, "it": true, "its": true, "of": true,
	"on": true, "or": true, "that": true, "the": true, "this": true, "to": true,
	"was": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "with": true,
}

const minKeywordLength = 3

// ExtractKeywords lowercases, tokenizes and de-duplicates the meaningful
// terms of a text, preserving first-seen order.
func ExtractKeywords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]bool)
	var keywords []string
	for _, field := range fields {
		if len(field) < minKeywordLength || stopwords[field] || seen[field] {
			continue
		}
		seen[field] = true
		keywords = append(keywords, field)
	}
	return keywords
}

// keywordOverlapScore is the fraction of query terms present in the image's
// stored keyword list. 0 means no overlap, 1 means every term matched.
func keywordOverlapScore(imageKeywords string, queryTerms []string) float64 {
	if len(queryTerms) == 0 || imageKeywords == "" {
		return 0
	}

	stored := make(map[string]bool)
	for _, kw := range strings.Split(strings.ToLower(imageKeywords), ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			stored[kw] = true
		}
	}
	if len(stored) == 0 {
		return 0
	}

	matched := 0
	for _, term := range queryTerms {
		if stored[term] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

func sortScoredImages(scored []ScoredImage) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
}
