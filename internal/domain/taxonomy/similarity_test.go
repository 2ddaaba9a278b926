package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleSimilarity_RuleTable(t *testing.T) {
	rules := DefaultSimilarityRules()

	tests := []struct {
		name      string
		a, b      string
		wantScore float64
		wantRule  string
	}{
		{"exact", "Shoes", "Shoes", 1.0, "exact"},
		{"exact case insensitive", "Shoes", "SHOES", 1.0, "exact"},
		{"plural s", "Accessory", "Accessories", 0.95, "plural"},
		{"plural s reversed", "Phones", "Phone", 0.95, "plural"},
		{"plural ies", "Battery", "Batteries", 0.95, "plural"},
		{"ampersand", "Home & Garden", "Home and Garden", 0.92, "ampersand"},
		{"hyphen", "T-Shirts", "T Shirts", 0.90, "hyphen"},
		{"abbreviation", "TV Stands", "Television Stands", 0.88, "abbreviation"},
		{"abbreviation acc", "Phone Acc", "Phone Accessories", 0.88, "abbreviation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, rule := TitleSimilarity(rules, tt.a, tt.b)
			assert.Equal(t, tt.wantRule, rule)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
		})
	}
}

func TestTitleSimilarity_LevenshteinFallback(t *testing.T) {
	rules := DefaultSimilarityRules()

	score, rule := TitleSimilarity(rules, "Camping", "Campng")
	assert.Equal(t, "levenshtein", rule)
	// One deletion out of seven runes.
	assert.InDelta(t, 1.0-1.0/7.0, score, 1e-9)

	score, rule = TitleSimilarity(rules, "Shoes", "Garden")
	assert.Equal(t, "levenshtein", rule)
	assert.Less(t, score, 0.5)
}

func TestTitleSimilarity_Symmetric(t *testing.T) {
	rules := DefaultSimilarityRules()
	pairs := [][2]string{
		{"Accessory", "Accessories"},
		{"Home & Garden", "Home and Garden"},
		{"Camping", "Campng"},
		{"Shoes", "Garden"},
	}
	for _, p := range pairs {
		ab, _ := TitleSimilarity(rules, p[0], p[1])
		ba, _ := TitleSimilarity(rules, p[1], p[0])
		assert.Equal(t, ab, ba, "%q vs %q", p[0], p[1])
	}
}

func TestTitleSimilarity_Bounds(t *testing.T) {
	rules := DefaultSimilarityRules()
	pairs := [][2]string{
		{"", ""},
		{"", "Anything"},
		{"a", "zzzzzzzzzz"},
		{"Electronics", "Electronics"},
	}
	for _, p := range pairs {
		score, _ := TitleSimilarity(rules, p[0], p[1])
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	}
}

func TestPluralEquivalent_NotExact(t *testing.T) {
	// Identical strings are the exact rule's business, not plural's.
	assert.False(t, pluralEquivalent("shoes", "shoes"))
	assert.False(t, pluralEquivalent("glass", "brass"))
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"flaw", "lawn", 2},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)), "%q vs %q", tt.a, tt.b)
	}
}
