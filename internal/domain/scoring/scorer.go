package scoring

import (
	"math"
)

// Normalization targets and caps.  These fix what "full opportunity" means
// for each component so scores stay comparable across nodes and runs.
const (
	impressionCap  = 10000.0
	sessionCap     = 1000.0
	targetCTR      = 0.05
	targetConvRate = 0.03
	revenueSpan    = 10000.0
	targetDA       = 70.0

	neutralCompetition = 50.0
)

// Total-score component weights.
const (
	weightSearch      = 0.30
	weightConversion  = 0.25
	weightRevenue     = 0.25
	weightContent     = 0.10
	weightCompetition = 0.10
)

// Confidence gates.
const (
	confidenceMinImpressions  = 100
	confidenceMinSessions     = 50
	confidenceMinProductCount = 5
)

// Scorer computes opportunity scores.  It carries only the recommendation
// rule table; scoring itself is stateless.
type Scorer struct {
	rules []RecommendationRule
}

// NewScorer constructs a Scorer with the default recommendation rules.
func NewScorer() *Scorer {
	return &Scorer{rules: DefaultRecommendationRules()}
}

// Score computes the opportunity score for one node.  Pure function: no
// shared state, safe to call concurrently across nodes.
func (s *Scorer) Score(f ScoringFactors) OpportunityScore {
	c := ComponentScores{
		SearchPotential:     searchPotential(f),
		ConversionPotential: conversionPotential(f),
		RevenueImpact:       revenueImpact(f),
		ContentQuality:      contentQuality(f),
		Competition:         competition(f),
	}

	total := weightSearch*c.SearchPotential +
		weightConversion*c.ConversionPotential +
		weightRevenue*c.RevenueImpact +
		weightContent*c.ContentQuality +
		weightCompetition*c.Competition

	return OpportunityScore{
		NodeID:          f.NodeID,
		Total:           int(clamp(math.Round(total), 0, 100)),
		Components:      c,
		Type:            classify(c),
		Recommendations: s.recommend(c, f),
		Confidence:      confidence(f),
	}
}

// searchPotential blends impression volume against a 10k cap, the shortfall
// below the 5% CTR target, and the shortfall below rank position 1, weighted
// 0.4/0.3/0.3.
func searchPotential(f ScoringFactors) float64 {
	volume := clamp(float64(f.Impressions)/impressionCap, 0, 1) * 100

	ctrGap := clamp((targetCTR-f.CTR)/targetCTR, 0, 1) * 100

	// A node already at position 1 has no rank shortfall; the gap grows with
	// rank but saturates, so position 20 is not ten times position 2.
	var positionGap float64
	if f.Position > 1 {
		positionGap = (f.Position - 1) / f.Position * 100
	}

	return clamp(0.4*volume+0.3*ctrGap+0.3*positionGap, 0, 100)
}

// conversionPotential blends session volume against a 1k cap, the shortfall
// below the 3% conversion-rate target, and (1 - bounce rate) as an engagement
// proxy, weighted 0.4/0.4/0.2.
func conversionPotential(f ScoringFactors) float64 {
	volume := clamp(float64(f.Sessions)/sessionCap, 0, 1) * 100
	convGap := clamp((targetConvRate-f.ConversionRate)/targetConvRate, 0, 1) * 100
	engagement := clamp(1-f.BounceRate, 0, 1) * 100

	return clamp(0.4*volume+0.4*convGap+0.2*engagement, 0, 100)
}

// revenueImpact estimates the revenue a node would earn at target CTR and
// conversion rate with its current average order value, and normalizes the
// gap over current revenue against a $10k span.
func revenueImpact(f ScoringFactors) float64 {
	targetRevenue := float64(f.Impressions) * targetCTR * targetConvRate * f.AvgOrderValue
	gap := targetRevenue - f.Revenue
	return clamp(gap/revenueSpan, 0, 1) * 100
}

// contentQuality is the mean of four catalog-completeness indicators, each
// in [0,1], scaled to 100.
func contentQuality(f ScoringFactors) float64 {
	var depth float64
	if f.ProductCount >= 10 {
		depth = 1
	}
	var priced float64
	if f.AvgPrice > 0 {
		priced = 1
	}
	inStock := clamp(f.InStockRatio, 0, 1)
	imaged := clamp(f.HasImageRatio, 0, 1)

	return (depth + inStock + imaged + priced) / 4 * 100
}

// competition defaults to neutral without competitive data; otherwise blends
// competitor pressure with the shortfall below the domain-authority target,
// weighted 0.6/0.4.
func competition(f ScoringFactors) float64 {
	if f.Competitive == nil {
		return neutralCompetition
	}
	pressure := clamp(100-10*float64(f.Competitive.CompetitorCount), 0, 100)
	daGap := clamp((targetDA-f.Competitive.DomainAuthority)/targetDA, 0, 1) * 100
	return clamp(0.6*pressure+0.4*daGap, 0, 100)
}

// classify applies the first-match-wins label order.
func classify(c ComponentScores) OpportunityType {
	switch {
	case c.SearchPotential > 70 && c.ConversionPotential > 70:
		return TypeQuickWin
	case c.RevenueImpact > 80:
		return TypeHighValue
	case c.SearchPotential > 80:
		return TypeSEOOpportunity
	case c.ConversionPotential > 80:
		return TypeCROOpportunity
	default:
		return TypeMaintenance
	}
}

// confidence is the fraction of data-volume gates satisfied.
func confidence(f ScoringFactors) float64 {
	gates := 0
	if f.Impressions > confidenceMinImpressions {
		gates++
	}
	if f.Sessions > confidenceMinSessions {
		gates++
	}
	if f.ProductCount > confidenceMinProductCount {
		gates++
	}
	return float64(gates) / 3
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
