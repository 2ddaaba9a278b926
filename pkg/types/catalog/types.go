// Package catalog defines the input record types produced by the external
// ingestion collaborators (catalog feed, search-metrics source, behavioral-
// metrics source) and consumed by the pipeline core.  These are plain data
// carriers; the core never fetches them itself.
package catalog

import (
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// Product is one catalog item as supplied by the ingestion collaborator.
// CategoryPath is the merchant-defined taxonomy string; StandardPath is the
// optional standardized/fallback taxonomy (e.g., a Google product taxonomy
// string).  Either may use ">", "/" or "|" as segment delimiter.
type Product struct {
	ID           common.ProductID `json:"id"`
	Title        string           `json:"title"`
	CategoryPath string           `json:"category_path"`
	StandardPath string           `json:"standard_path,omitempty"`
	URL          string           `json:"url,omitempty"`
	Price        float64          `json:"price,omitempty"`
	InStock      bool             `json:"in_stock"`
	HasImage     bool             `json:"has_image"`
}

// SearchMetricRecord carries search-engine performance for one URL over the
// snapshot's date range.  Attribution to a taxonomy node happens externally:
// the aggregator receives a url→node map alongside these records.
type SearchMetricRecord struct {
	URL         string  `json:"url"`
	Clicks      int64   `json:"clicks"`
	Impressions int64   `json:"impressions"`
	CTR         float64 `json:"ctr"`
	Position    float64 `json:"position"`
}

// BehavioralMetricRecord carries on-site behavioral and revenue metrics for
// one page.  Records arrive with the taxonomy node already resolved.
type BehavioralMetricRecord struct {
	NodeID         common.NodeID `json:"node_id"`
	PagePath       string        `json:"page_path"`
	Revenue        float64       `json:"revenue"`
	Transactions   int64         `json:"transactions"`
	Sessions       int64         `json:"sessions"`
	Users          int64         `json:"users"`
	PageViews      int64         `json:"page_views"`
	ConversionRate float64       `json:"conversion_rate"`
	AvgOrderValue  float64       `json:"avg_order_value"`
	EngagementRate float64       `json:"engagement_rate"`
	BounceRate     float64       `json:"bounce_rate"`
}

// Snapshot bundles one bounded batch of pipeline input.  The pipeline is a
// synchronous batch job over exactly one Snapshot; there is no streaming.
type Snapshot struct {
	Products          []Product                      `json:"products"`
	SearchMetrics     []SearchMetricRecord           `json:"search_metrics"`
	BehavioralMetrics []BehavioralMetricRecord       `json:"behavioral_metrics"`
	URLToNode         map[string]common.NodeID       `json:"url_to_node"`
}
