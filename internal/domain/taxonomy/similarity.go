package taxonomy

import (
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Title similarity
//
// Similarity between two category titles is decided by an explicit, ordered,
// data-driven rule table; the first matching rule wins and fixes the score.
// Only when no rule matches does the normalized Levenshtein fallback apply.
// Keeping the heuristics in a table (pattern → weight) lets each rule be
// unit-tested independently and extended without touching the fallback.
// ─────────────────────────────────────────────────────────────────────────────

// SimilarityRule is one entry of the ordered heuristic table.
type SimilarityRule struct {
	// Name identifies the rule in logs and tests.
	Name string

	// Score is the fixed similarity assigned when the rule matches.
	Score float64

	// Match reports whether the rule applies to the two normalized titles.
	Match func(a, b string) bool
}

// abbreviations is the fixed table of known short forms.  Both directions are
// checked; comparison happens token-wise after expansion.
var abbreviations = map[string]string{
	"acc":  "accessories",
	"tv":   "television",
	"tvs":  "televisions",
	"elec": "electronics",
	"eq":   "equipment",
	"appl": "appliances",
	"furn": "furniture",
	"hw":   "hardware",
	"sw":   "software",
}

// DefaultSimilarityRules returns the platform's ordered rule table.  Order is
// priority: exact match is checked before pluralization, and so on down to
// the abbreviation table; anything below falls through to Levenshtein.
func DefaultSimilarityRules() []SimilarityRule {
	return []SimilarityRule{
		{
			Name:  "exact",
			Score: 1.0,
			Match: func(a, b string) bool { return a == b },
		},
		{
			Name:  "plural",
			Score: 0.95,
			Match: pluralEquivalent,
		},
		{
			Name:  "ampersand",
			Score: 0.92,
			Match: func(a, b string) bool {
				return normalizeAnd(a) == normalizeAnd(b)
			},
		},
		{
			Name:  "hyphen",
			Score: 0.90,
			Match: func(a, b string) bool {
				return normalizeHyphens(a) == normalizeHyphens(b)
			},
		},
		{
			Name:  "abbreviation",
			Score: 0.88,
			Match: func(a, b string) bool {
				return expandAbbreviations(a) == expandAbbreviations(b)
			},
		},
	}
}

// TitleSimilarity scores two category titles in [0,1].  Titles are compared
// case-insensitively; the ordered rule table is consulted first and the
// normalized Levenshtein similarity 1 - editDistance/max(len1,len2) is the
// fallback.  The name of the deciding rule is returned for observability
// ("levenshtein" for the fallback).
func TitleSimilarity(rules []SimilarityRule, titleA, titleB string) (float64, string) {
	a := strings.ToLower(strings.TrimSpace(titleA))
	b := strings.ToLower(strings.TrimSpace(titleB))
	for _, r := range rules {
		if r.Match(a, b) {
			return r.Score, r.Name
		}
	}
	return levenshteinSimilarity(a, b), "levenshtein"
}

// pluralEquivalent reports simple English pluralization equivalence between
// two lower-cased titles: trailing "s" add/remove, or the "-y"/"-ies" swap.
func pluralEquivalent(a, b string) bool {
	if a == b {
		return false
	}
	if a+"s" == b || b+"s" == a {
		return true
	}
	swapY := func(s string) (string, bool) {
		if strings.HasSuffix(s, "ies") {
			return s[:len(s)-3] + "y", true
		}
		return s, false
	}
	if ay, ok := swapY(a); ok && ay == b {
		return true
	}
	if by, ok := swapY(b); ok && by == a {
		return true
	}
	return false
}

// normalizeAnd maps "&" to the word "and" so "Home & Garden" equals
// "Home and Garden".
func normalizeAnd(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.Join(strings.Fields(s), " ")
}

// normalizeHyphens treats hyphens as spaces so "T-Shirts" equals "T Shirts".
func normalizeHyphens(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// expandAbbreviations replaces known abbreviated tokens with their long form.
func expandAbbreviations(s string) string {
	tokens := strings.Fields(s)
	for i, tok := range tokens {
		if full, ok := abbreviations[tok]; ok {
			tokens[i] = full
		}
	}
	return strings.Join(tokens, " ")
}

// levenshteinSimilarity computes 1 - editDistance/max(len1,len2) over runes.
// Two empty strings score 1.0.
func levenshteinSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(ra, rb))/float64(maxLen)
}

// levenshtein computes the edit distance with a two-row rolling table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
