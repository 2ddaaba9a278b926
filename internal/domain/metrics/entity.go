// Package metrics implements the per-node metric rollup: two independent
// metric families (search and behavioral) are summed bottom-up through the
// taxonomy tree and finalized into derived rates with fixed rounding, so that
// repeated runs over the same snapshot produce byte-identical output.
package metrics

import (
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// AggregatedSearch holds one node's rolled-up search-engine metrics.
//
// Invariant: Clicks and Impressions equal the node's direct record sums plus
// the aggregated sums of all descendants.  CTR and AvgPosition are derived at
// finalization only and are never summed across nodes.
type AggregatedSearch struct {
	NodeID      common.NodeID `json:"node_id"`
	Clicks      int64         `json:"clicks"`
	Impressions int64         `json:"impressions"`

	// CTR is clicks/impressions rounded to 4 decimals, 0 when there are no
	// impressions.
	CTR float64 `json:"ctr"`

	// AvgPosition is the impression-weighted mean search position rounded to
	// 1 decimal.  Contributors with zero impressions or non-positive position
	// are excluded.
	AvgPosition float64 `json:"avg_position"`
}

// AggregatedBehavioral holds one node's rolled-up on-site metrics.  Absolute
// fields obey the same sum-conservation invariant as AggregatedSearch; the
// rate fields are session-weighted means computed at finalization.
type AggregatedBehavioral struct {
	NodeID       common.NodeID `json:"node_id"`
	Revenue      float64       `json:"revenue"`
	Transactions int64         `json:"transactions"`
	Sessions     int64         `json:"sessions"`
	Users        int64         `json:"users"`
	PageViews    int64         `json:"page_views"`

	// ConversionRate is transactions/sessions rounded to 4 decimals.
	ConversionRate float64 `json:"conversion_rate"`

	// AvgOrderValue is revenue/transactions rounded to 2 decimals.
	AvgOrderValue float64 `json:"avg_order_value"`

	EngagementRate float64 `json:"engagement_rate"`
	BounceRate     float64 `json:"bounce_rate"`
}
