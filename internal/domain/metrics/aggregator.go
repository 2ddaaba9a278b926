package metrics

import (
	"sort"

	"github.com/Adstedt/contentmax-sub005/internal/domain/taxonomy"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/catalog"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Aggregator
//
// Both metric families share one rollup skeleton: accumulate direct records
// per node, walk the tree deepest-first folding each node's absolute sums and
// (value, weight) rate pairs into its parent, then finalize every accumulator
// into derived rates with fixed rounding.  The deepest-first order is what
// makes a single pass sufficient: by the time a node folds into its parent,
// all of its own descendants have already folded into it.
// ─────────────────────────────────────────────────────────────────────────────

// Aggregator rolls flat metric record streams up through the taxonomy tree.
// It keeps no state between calls.
type Aggregator struct {
	log logging.Logger
}

// NewAggregator constructs an Aggregator.
func NewAggregator(log logging.Logger) *Aggregator {
	return &Aggregator{log: log.Named("metrics.aggregator")}
}

type searchAcc struct {
	clicks      int64
	impressions int64
	positions   []weightedValue
}

type behavioralAcc struct {
	revenue      float64
	transactions int64
	sessions     int64
	users        int64
	pageViews    int64
	engagement   []weightedValue
	bounce       []weightedValue
}

// AggregateSearch attributes search metric records to taxonomy nodes via the
// externally-resolved url→node map and rolls them up.  Records whose URL does
// not resolve, or resolves to a node absent from the set, are dropped and
// counted in the returned tracker.  Only nodes with at least one direct or
// descendant record appear in the result.
func (a *Aggregator) AggregateSearch(
	nodes map[common.NodeID]*taxonomy.Node,
	records []catalog.SearchMetricRecord,
	urlToNode map[string]common.NodeID,
) (map[common.NodeID]*AggregatedSearch, *MatchTracker, error) {
	if err := taxonomy.ValidateForest(nodes); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeMetricsRollupFailed,
			"search rollup refused over invalid node set")
	}

	accs := make(map[common.NodeID]*searchAcc)
	tracker := &MatchTracker{}

	for i := range records {
		rec := &records[i]
		nodeID, ok := urlToNode[rec.URL]
		if ok {
			_, ok = nodes[nodeID]
		}
		tracker.Observe(ok)
		if !ok {
			continue
		}
		acc := accs[nodeID]
		if acc == nil {
			acc = &searchAcc{}
			accs[nodeID] = acc
		}
		acc.clicks += rec.Clicks
		acc.impressions += rec.Impressions
		if rec.Position > 0 && rec.Impressions > 0 {
			acc.positions = append(acc.positions, weightedValue{
				value:  rec.Position,
				weight: float64(rec.Impressions),
			})
		}
	}

	for _, n := range nodesDeepestFirst(nodes) {
		if n.ParentID == "" {
			continue
		}
		child := accs[n.ID]
		if child == nil {
			continue
		}
		parent := accs[n.ParentID]
		if parent == nil {
			parent = &searchAcc{}
			accs[n.ParentID] = parent
		}
		parent.clicks += child.clicks
		parent.impressions += child.impressions
		parent.positions = append(parent.positions, child.positions...)
	}

	out := make(map[common.NodeID]*AggregatedSearch, len(accs))
	for id, acc := range accs {
		out[id] = &AggregatedSearch{
			NodeID:      id,
			Clicks:      acc.clicks,
			Impressions: acc.impressions,
			CTR:         roundTo(safeRatio(float64(acc.clicks), float64(acc.impressions)), 4),
			AvgPosition: roundTo(weightedMean(acc.positions), 1),
		}
	}

	a.log.Info("search metrics aggregated",
		logging.Int("records", tracker.Total),
		logging.Int("unmatched", tracker.Unmatched),
		logging.Int("nodes_with_metrics", len(out)),
	)
	return out, tracker, nil
}

// AggregateBehavioral rolls up behavioral metric records, which arrive with
// the taxonomy node already resolved.  Records referencing an unknown node id
// are dropped and counted in the tracker.
func (a *Aggregator) AggregateBehavioral(
	nodes map[common.NodeID]*taxonomy.Node,
	records []catalog.BehavioralMetricRecord,
) (map[common.NodeID]*AggregatedBehavioral, *MatchTracker, error) {
	if err := taxonomy.ValidateForest(nodes); err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeMetricsRollupFailed,
			"behavioral rollup refused over invalid node set")
	}

	accs := make(map[common.NodeID]*behavioralAcc)
	tracker := &MatchTracker{}

	for i := range records {
		rec := &records[i]
		_, ok := nodes[rec.NodeID]
		tracker.Observe(ok)
		if !ok {
			continue
		}
		acc := accs[rec.NodeID]
		if acc == nil {
			acc = &behavioralAcc{}
			accs[rec.NodeID] = acc
		}
		acc.revenue += rec.Revenue
		acc.transactions += rec.Transactions
		acc.sessions += rec.Sessions
		acc.users += rec.Users
		acc.pageViews += rec.PageViews
		if rec.Sessions > 0 {
			w := float64(rec.Sessions)
			acc.engagement = append(acc.engagement, weightedValue{value: rec.EngagementRate, weight: w})
			acc.bounce = append(acc.bounce, weightedValue{value: rec.BounceRate, weight: w})
		}
	}

	for _, n := range nodesDeepestFirst(nodes) {
		if n.ParentID == "" {
			continue
		}
		child := accs[n.ID]
		if child == nil {
			continue
		}
		parent := accs[n.ParentID]
		if parent == nil {
			parent = &behavioralAcc{}
			accs[n.ParentID] = parent
		}
		parent.revenue += child.revenue
		parent.transactions += child.transactions
		parent.sessions += child.sessions
		parent.users += child.users
		parent.pageViews += child.pageViews
		parent.engagement = append(parent.engagement, child.engagement...)
		parent.bounce = append(parent.bounce, child.bounce...)
	}

	out := make(map[common.NodeID]*AggregatedBehavioral, len(accs))
	for id, acc := range accs {
		out[id] = &AggregatedBehavioral{
			NodeID:         id,
			Revenue:        roundTo(acc.revenue, 2),
			Transactions:   acc.transactions,
			Sessions:       acc.sessions,
			Users:          acc.users,
			PageViews:      acc.pageViews,
			ConversionRate: roundTo(safeRatio(float64(acc.transactions), float64(acc.sessions)), 4),
			AvgOrderValue:  roundTo(safeRatio(acc.revenue, float64(acc.transactions)), 2),
			EngagementRate: roundTo(weightedMean(acc.engagement), 4),
			BounceRate:     roundTo(weightedMean(acc.bounce), 4),
		}
	}

	a.log.Info("behavioral metrics aggregated",
		logging.Int("records", tracker.Total),
		logging.Int("unmatched", tracker.Unmatched),
		logging.Int("nodes_with_metrics", len(out)),
	)
	return out, tracker, nil
}

// nodesDeepestFirst returns all nodes ordered by depth descending, then id.
// Depth is recomputed from the parent map with memoization rather than
// trusting the stored Depth field, so the rollup stays correct even if a
// caller hands in nodes whose depths were never refreshed after a merge.
func nodesDeepestFirst(nodes map[common.NodeID]*taxonomy.Node) []*taxonomy.Node {
	depths := make(map[common.NodeID]int, len(nodes))
	var depthOf func(id common.NodeID) int
	depthOf = func(id common.NodeID) int {
		if d, ok := depths[id]; ok {
			return d
		}
		n := nodes[id]
		d := 0
		if n.ParentID != "" {
			d = depthOf(n.ParentID) + 1
		}
		depths[id] = d
		return d
	}

	out := make([]*taxonomy.Node, 0, len(nodes))
	for id := range nodes {
		depthOf(id)
		out = append(out, nodes[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if depths[out[i].ID] != depths[out[j].ID] {
			return depths[out[i].ID] > depths[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})
	return out
}
