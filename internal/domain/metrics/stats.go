package metrics

import (
	"sort"

	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// Attention thresholds.  A node is flagged when it has enough traffic for the
// rate to be meaningful but the rate is poor.
const (
	AttentionMinImpressions = 100
	AttentionMaxCTR         = 0.02
	AttentionMinSessions    = 100
	AttentionMaxConvRate    = 0.01
)

// SearchSummary is the whole-map view over aggregated search metrics.
type SearchSummary struct {
	Nodes            int     `json:"nodes"`
	TotalClicks      int64   `json:"total_clicks"`
	TotalImpressions int64   `json:"total_impressions"`
	OverallCTR       float64 `json:"overall_ctr"`

	// OverallPosition is the impression-weighted mean of per-node average
	// positions, 0 when no node carries a position.
	OverallPosition float64 `json:"overall_position"`
}

// BehavioralSummary is the whole-map view over aggregated behavioral metrics.
type BehavioralSummary struct {
	Nodes             int     `json:"nodes"`
	TotalRevenue      float64 `json:"total_revenue"`
	TotalSessions     int64   `json:"total_sessions"`
	TotalTransactions int64   `json:"total_transactions"`
	OverallConvRate   float64 `json:"overall_conv_rate"`
}

// SummarizeSearch computes totals and overall weighted rates over the given
// entries.  Rolled-up maps contain ancestors that already include their
// descendants, so callers wanting unduplicated totals pass root entries only.
func SummarizeSearch(m map[common.NodeID]*AggregatedSearch) SearchSummary {
	s := SearchSummary{Nodes: len(m)}
	var positions []weightedValue
	for _, agg := range m {
		s.TotalClicks += agg.Clicks
		s.TotalImpressions += agg.Impressions
		if agg.AvgPosition > 0 && agg.Impressions > 0 {
			positions = append(positions, weightedValue{
				value:  agg.AvgPosition,
				weight: float64(agg.Impressions),
			})
		}
	}
	s.OverallCTR = roundTo(safeRatio(float64(s.TotalClicks), float64(s.TotalImpressions)), 4)
	s.OverallPosition = roundTo(weightedMean(positions), 1)
	return s
}

// SummarizeBehavioral computes totals and the overall conversion rate.
func SummarizeBehavioral(m map[common.NodeID]*AggregatedBehavioral) BehavioralSummary {
	s := BehavioralSummary{Nodes: len(m)}
	for _, agg := range m {
		s.TotalRevenue += agg.Revenue
		s.TotalSessions += agg.Sessions
		s.TotalTransactions += agg.Transactions
	}
	s.TotalRevenue = roundTo(s.TotalRevenue, 2)
	s.OverallConvRate = roundTo(safeRatio(float64(s.TotalTransactions), float64(s.TotalSessions)), 4)
	return s
}

// TopByClicks returns up to n entries with the highest click totals, ties
// broken by node id for stable output.
func TopByClicks(m map[common.NodeID]*AggregatedSearch, n int) []*AggregatedSearch {
	out := make([]*AggregatedSearch, 0, len(m))
	for _, agg := range m {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Clicks != out[j].Clicks {
			return out[i].Clicks > out[j].Clicks
		}
		return out[i].NodeID < out[j].NodeID
	})
	return clip(out, n)
}

// TopByRevenue returns up to n entries with the highest revenue, ties broken
// by node id.
func TopByRevenue(m map[common.NodeID]*AggregatedBehavioral, n int) []*AggregatedBehavioral {
	out := make([]*AggregatedBehavioral, 0, len(m))
	for _, agg := range m {
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].NodeID < out[j].NodeID
	})
	return clip(out, n)
}

// NeedsSearchAttention returns nodes with meaningful impression volume but a
// poor click-through rate, sorted by impressions descending.
func NeedsSearchAttention(m map[common.NodeID]*AggregatedSearch) []*AggregatedSearch {
	var out []*AggregatedSearch
	for _, agg := range m {
		if agg.Impressions > AttentionMinImpressions && agg.CTR < AttentionMaxCTR {
			out = append(out, agg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Impressions != out[j].Impressions {
			return out[i].Impressions > out[j].Impressions
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

// NeedsConversionAttention returns nodes with meaningful session volume but a
// poor conversion rate, sorted by sessions descending.
func NeedsConversionAttention(m map[common.NodeID]*AggregatedBehavioral) []*AggregatedBehavioral {
	var out []*AggregatedBehavioral
	for _, agg := range m {
		if agg.Sessions > AttentionMinSessions && agg.ConversionRate < AttentionMaxConvRate {
			out = append(out, agg)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions != out[j].Sessions {
			return out[i].Sessions > out[j].Sessions
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}

func clip[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}
