// Package scoring turns one node's combined search, behavioral and catalog
// factors into a bounded, explainable opportunity score.  Score is a pure
// function of its input, so callers may fan it out across nodes freely.
package scoring

import (
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// CompetitiveData is optional third-party competitive intelligence for a node.
// Absence is the normal case and falls back to a neutral competition score.
type CompetitiveData struct {
	CompetitorCount int     `json:"competitor_count"`
	DomainAuthority float64 `json:"domain_authority"`
}

// ScoringFactors is the full per-node input to Score.  Zero values are valid
// everywhere; a node with no traffic scores low with low confidence rather
// than producing an error.
type ScoringFactors struct {
	NodeID common.NodeID `json:"node_id"`

	// Search family.
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`

	// Behavioral family.
	Sessions       int64   `json:"sessions"`
	ConversionRate float64 `json:"conversion_rate"`
	BounceRate     float64 `json:"bounce_rate"`
	Revenue        float64 `json:"revenue"`
	AvgOrderValue  float64 `json:"avg_order_value"`

	// Catalog completeness indicators.
	ProductCount  int     `json:"product_count"`
	InStockRatio  float64 `json:"in_stock_ratio"`
	HasImageRatio float64 `json:"has_image_ratio"`
	AvgPrice      float64 `json:"avg_price"`

	// Competitive is nil when no competitive data source is configured.
	Competitive *CompetitiveData `json:"competitive,omitempty"`
}

// OpportunityType is the mutually exclusive classification label.
type OpportunityType string

const (
	TypeQuickWin       OpportunityType = "quick_win"
	TypeHighValue      OpportunityType = "high_value"
	TypeSEOOpportunity OpportunityType = "seo_opportunity"
	TypeCROOpportunity OpportunityType = "cro_opportunity"
	TypeMaintenance    OpportunityType = "maintenance"
)

// ComponentScores holds the five named component scores, each in [0,100].
type ComponentScores struct {
	SearchPotential     float64 `json:"search_potential"`
	ConversionPotential float64 `json:"conversion_potential"`
	RevenueImpact       float64 `json:"revenue_impact"`
	ContentQuality      float64 `json:"content_quality"`
	Competition         float64 `json:"competition"`
}

// OpportunityScore is the scorer's per-node output.
type OpportunityScore struct {
	NodeID common.NodeID `json:"node_id"`

	// Total is the weighted component sum rounded to an integer in [0,100].
	Total int `json:"total"`

	Components ComponentScores `json:"components"`
	Type       OpportunityType `json:"type"`

	// Recommendations is ordered by rule priority; multiple rules may fire.
	Recommendations []string `json:"recommendations"`

	// Confidence in [0,1] is the fraction of data-volume gates satisfied.
	// It signals volume sufficiency, not statistical certainty.
	Confidence float64 `json:"confidence"`
}
