package scoring

// RecommendationRule fires a human-readable action when its condition holds
// for a node's component scores and raw factors.  Rules are evaluated in
// order and are independent: several may fire for the same node.
type RecommendationRule struct {
	Name      string
	Condition func(c ComponentScores, f ScoringFactors) bool
	Text      string
}

// DefaultRecommendationRules returns the platform's ordered rule table.
func DefaultRecommendationRules() []RecommendationRule {
	return []RecommendationRule{
		{
			Name: "seo-target-top3",
			Condition: func(c ComponentScores, f ScoringFactors) bool {
				return c.SearchPotential > 70 && f.Position > 3
			},
			Text: "Improve on-page SEO and internal linking to move this category into the top 3 search positions",
		},
		{
			Name: "seo-improve-ctr",
			Condition: func(c ComponentScores, f ScoringFactors) bool {
				return c.SearchPotential > 70 && f.Impressions > 0 && f.CTR < targetCTR/2
			},
			Text: "Rewrite titles and meta descriptions to lift click-through rate toward the 5% target",
		},
		{
			Name: "cro-reduce-bounce",
			Condition: func(c ComponentScores, f ScoringFactors) bool {
				return c.ConversionPotential > 70 && f.BounceRate > 0.7
			},
			Text: "Reduce bounce rate with faster page loads and clearer above-the-fold category content",
		},
		{
			Name: "cro-conversion-funnel",
			Condition: func(c ComponentScores, f ScoringFactors) bool {
				return c.ConversionPotential > 70 && f.ConversionRate < targetConvRate
			},
			Text: "Optimize the conversion funnel on this category page to close the gap to the 3% conversion target",
		},
		{
			Name: "revenue-merchandising",
			Condition: func(c ComponentScores, f ScoringFactors) bool {
				return c.RevenueImpact > 80
			},
			Text: "Prioritize merchandising for this category; the revenue gap to target is large",
		},
		{
			Name: "content-enrich-catalog",
			Condition: func(c ComponentScores, f ScoringFactors) bool {
				return c.ContentQuality < 50
			},
			Text: "Enrich the product catalog for this category with more products, images and stock coverage",
		},
	}
}

// recommend evaluates the rule table in order and collects the text of every
// rule that fires.
func (s *Scorer) recommend(c ComponentScores, f ScoringFactors) []string {
	var out []string
	for _, r := range s.rules {
		if r.Condition(c, f) {
			out = append(out, r.Text)
		}
	}
	return out
}
