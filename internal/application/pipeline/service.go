// Package pipeline orchestrates one batch run over a snapshot: taxonomy
// construction, sibling deduplication, metric rollup for both families, and
// per-node opportunity scoring, followed by persistence and publication.
package pipeline

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adstedt/contentmax-sub005/internal/config"
	"github.com/Adstedt/contentmax-sub005/internal/domain/metrics"
	"github.com/Adstedt/contentmax-sub005/internal/domain/scoring"
	"github.com/Adstedt/contentmax-sub005/internal/domain/taxonomy"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/prometheus"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/catalog"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// Pipeline stage names used in results, metrics and failure events.
const (
	StageBuild     = "build"
	StageDedup     = "dedup"
	StageAggregate = "aggregate"
	StageScore     = "score"
	StagePersist   = "persist"
)

// TaxonomyStore persists one run's node forest.
type TaxonomyStore interface {
	SaveForest(ctx context.Context, runID common.RunID, nodes map[common.NodeID]*taxonomy.Node) error
}

// MetricsStore persists one run's aggregated metrics.
type MetricsStore interface {
	SaveSearch(ctx context.Context, runID common.RunID, m map[common.NodeID]*metrics.AggregatedSearch) error
	SaveBehavioral(ctx context.Context, runID common.RunID, m map[common.NodeID]*metrics.AggregatedBehavioral) error
}

// ScoreStore persists one run's opportunity scores.
type ScoreStore interface {
	SaveScores(ctx context.Context, runID common.RunID, scores []scoring.OpportunityScore) error
}

// EventSink receives run lifecycle notifications.
type EventSink interface {
	RunCompleted(ctx context.Context, res *RunResult) error
	RunFailed(ctx context.Context, runID common.RunID, stage string, cause error) error
}

// LeaderboardWriter refreshes the ranked opportunity view.
type LeaderboardWriter interface {
	Rebuild(ctx context.Context, runID common.RunID, scores []scoring.OpportunityScore) error
}

// SummaryCache stores run summaries for cheap dashboard reads.
type SummaryCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// LatestRunKey is the cache key holding the most recent run's summary.
const LatestRunKey = "runs:latest"

// Deps bundles the optional side-effect collaborators.  Any nil member is
// skipped, so the service runs fully in-memory under test.
type Deps struct {
	Taxonomy    TaxonomyStore
	Metrics     MetricsStore
	Scores      ScoreStore
	Events      EventSink
	Leaderboard LeaderboardWriter
	Cache       SummaryCache
	AppMetrics  *prometheus.AppMetrics
}

// RunSummary is the persisted/cached digest of one run.
type RunSummary struct {
	RunID              common.RunID             `json:"run_id"`
	StartedAt          time.Time                `json:"started_at"`
	FinishedAt         time.Time                `json:"finished_at"`
	StageDurations     map[string]time.Duration `json:"stage_durations"`
	Nodes              int                      `json:"nodes"`
	Products           int                      `json:"products"`
	UnassignedProducts int                      `json:"unassigned_products"`
	Merges             int                      `json:"merges"`
	MergeChains        int                      `json:"merge_chains"`
	SearchUnmatched    int                      `json:"search_unmatched"`
	BehaviorUnmatched  int                      `json:"behavior_unmatched"`
	ScoredNodes        int                      `json:"scored_nodes"`
	QuickWins          int                      `json:"quick_wins"`
}

// RunResult carries everything one run produced, for persistence, export and
// the API layer.
type RunResult struct {
	Summary RunSummary

	Nodes       map[common.NodeID]*taxonomy.Node
	MergeReport *taxonomy.MergeReport
	Search      map[common.NodeID]*metrics.AggregatedSearch
	Behavioral  map[common.NodeID]*metrics.AggregatedBehavioral

	// Scores is ordered by total descending, node id ascending.
	Scores []scoring.OpportunityScore
}

// Service is the run orchestrator.
type Service struct {
	builder     *taxonomy.Builder
	dedup       *taxonomy.Deduplicator
	aggregator  *metrics.Aggregator
	scorer      *scoring.Scorer
	deps        Deps
	parallelism int
	cacheTTL    time.Duration
	log         logging.Logger
}

// NewService wires the domain engines with the given pipeline settings.
func NewService(cfg config.PipelineConfig, deps Deps, log logging.Logger) *Service {
	parallelism := cfg.ScoreParallelism
	if parallelism <= 0 {
		parallelism = 4
	}
	cacheTTL := cfg.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &Service{
		builder:     taxonomy.NewBuilder(log),
		dedup:       taxonomy.NewDeduplicator(cfg.MergeThreshold, log),
		aggregator:  metrics.NewAggregator(log),
		scorer:      scoring.NewScorer(),
		deps:        deps,
		parallelism: parallelism,
		cacheTTL:    cacheTTL,
		log:         log.Named("pipeline"),
	}
}

// Run executes the full pipeline over one snapshot.
func (s *Service) Run(ctx context.Context, snap *catalog.Snapshot) (*RunResult, error) {
	runID := common.NewRunID()
	started := time.Now()
	durations := make(map[string]time.Duration)

	s.log.Info("pipeline run started",
		logging.String("run_id", string(runID)),
		logging.Int("products", len(snap.Products)),
		logging.Int("search_records", len(snap.SearchMetrics)),
		logging.Int("behavioral_records", len(snap.BehavioralMetrics)),
	)

	// Build.
	stageStart := time.Now()
	built, err := s.builder.Build(snap.Products)
	if err != nil {
		return nil, s.fail(ctx, runID, StageBuild, err)
	}
	durations[StageBuild] = time.Since(stageStart)

	// Dedup.  Assignments and metric attributions keyed by merged-away ids
	// follow the remap so downstream stages only ever see surviving nodes.
	stageStart = time.Now()
	nodes, report := s.dedup.Merge(built.Nodes)
	assignments := remapAssignments(built.Assignments, report)
	urlToNode := remapURLs(snap.URLToNode, report, nodes)
	behavioralRecords := remapBehavioral(snap.BehavioralMetrics, report)
	durations[StageDedup] = time.Since(stageStart)

	// Aggregate both metric families.
	stageStart = time.Now()
	search, searchTracker, err := s.aggregator.AggregateSearch(nodes, snap.SearchMetrics, urlToNode)
	if err != nil {
		return nil, s.fail(ctx, runID, StageAggregate, err)
	}
	behavioral, behavioralTracker, err := s.aggregator.AggregateBehavioral(nodes, behavioralRecords)
	if err != nil {
		return nil, s.fail(ctx, runID, StageAggregate, err)
	}
	durations[StageAggregate] = time.Since(stageStart)

	// Score.
	stageStart = time.Now()
	scores, err := s.scoreAll(ctx, nodes, assignments, snap.Products, search, behavioral)
	if err != nil {
		return nil, s.fail(ctx, runID, StageScore, err)
	}
	durations[StageScore] = time.Since(stageStart)

	res := &RunResult{
		Summary: RunSummary{
			RunID:              runID,
			StartedAt:          started,
			StageDurations:     durations,
			Nodes:              len(nodes),
			Products:           len(snap.Products),
			UnassignedProducts: len(built.Unassigned),
			Merges:             len(report.Merges),
			MergeChains:        report.Chains,
			SearchUnmatched:    searchTracker.Unmatched,
			BehaviorUnmatched:  behavioralTracker.Unmatched,
			ScoredNodes:        len(scores),
			QuickWins:          countByType(scores, scoring.TypeQuickWin),
		},
		Nodes:       nodes,
		MergeReport: report,
		Search:      search,
		Behavioral:  behavioral,
		Scores:      scores,
	}

	// Persist and publish.
	stageStart = time.Now()
	if err := s.persist(ctx, runID, res); err != nil {
		return nil, s.fail(ctx, runID, StagePersist, err)
	}
	durations[StagePersist] = time.Since(stageStart)
	res.Summary.FinishedAt = time.Now()
	s.cacheSummary(ctx, res.Summary)

	s.observe(res, report)

	if s.deps.Events != nil {
		if err := s.deps.Events.RunCompleted(ctx, res); err != nil {
			// The run itself succeeded; a lost event is logged, not fatal.
			s.log.Warn("run-completed event publish failed",
				logging.String("run_id", string(runID)), logging.Err(err))
		}
	}

	s.log.Info("pipeline run completed",
		logging.String("run_id", string(runID)),
		logging.Int("nodes", res.Summary.Nodes),
		logging.Int("merges", res.Summary.Merges),
		logging.Int("scored", res.Summary.ScoredNodes),
		logging.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

func (s *Service) fail(ctx context.Context, runID common.RunID, stage string, cause error) error {
	if s.deps.AppMetrics != nil {
		prometheus.RecordRun(s.deps.AppMetrics, false)
	}
	if s.deps.Events != nil {
		if err := s.deps.Events.RunFailed(ctx, runID, stage, cause); err != nil {
			s.log.Warn("run-failed event publish failed", logging.Err(err))
		}
	}
	s.log.Error("pipeline run failed",
		logging.String("run_id", string(runID)),
		logging.String("stage", stage),
		logging.Err(cause),
	)
	return errors.Wrap(cause, errors.ErrCodeInternal, "pipeline run failed").
		WithDetail("stage=" + stage)
}

// scoreAll fans per-node scoring out over a bounded worker group and returns
// the scores ordered by total descending, node id ascending.
func (s *Service) scoreAll(
	ctx context.Context,
	nodes map[common.NodeID]*taxonomy.Node,
	assignments map[common.NodeID]map[common.ProductID]struct{},
	products []catalog.Product,
	search map[common.NodeID]*metrics.AggregatedSearch,
	behavioral map[common.NodeID]*metrics.AggregatedBehavioral,
) ([]scoring.OpportunityScore, error) {
	catalogStats := rollupCatalogStats(nodes, assignments, products)
	ids := taxonomy.SortedIDs(nodes)

	scores := make([]scoring.OpportunityScore, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scores[i] = s.scorer.Score(buildFactors(id, nodes[id], catalogStats[id], search[id], behavioral[id]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].NodeID < scores[j].NodeID
	})
	return scores, nil
}

func (s *Service) persist(ctx context.Context, runID common.RunID, res *RunResult) error {
	if s.deps.Taxonomy != nil {
		if err := s.deps.Taxonomy.SaveForest(ctx, runID, res.Nodes); err != nil {
			return err
		}
	}
	if s.deps.Metrics != nil {
		if err := s.deps.Metrics.SaveSearch(ctx, runID, res.Search); err != nil {
			return err
		}
		if err := s.deps.Metrics.SaveBehavioral(ctx, runID, res.Behavioral); err != nil {
			return err
		}
	}
	if s.deps.Scores != nil {
		if err := s.deps.Scores.SaveScores(ctx, runID, res.Scores); err != nil {
			return err
		}
	}
	if s.deps.Leaderboard != nil {
		if err := s.deps.Leaderboard.Rebuild(ctx, runID, res.Scores); err != nil {
			return err
		}
	}
	return nil
}

// cacheSummary is best effort: a cold cache only costs the dashboard a
// database read.
func (s *Service) cacheSummary(ctx context.Context, summary RunSummary) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, "runs:"+string(summary.RunID), summary, s.cacheTTL); err != nil {
		s.log.Warn("run summary cache write failed", logging.Err(err))
	}
	if err := s.deps.Cache.Set(ctx, LatestRunKey, summary, s.cacheTTL); err != nil {
		s.log.Warn("latest-run cache write failed", logging.Err(err))
	}
}

func (s *Service) observe(res *RunResult, report *taxonomy.MergeReport) {
	m := s.deps.AppMetrics
	if m == nil {
		return
	}
	prometheus.RecordRun(m, true)
	for stage, d := range res.Summary.StageDurations {
		prometheus.RecordStage(m, stage, d)
	}

	bySource := make(map[taxonomy.SourceTag]int)
	for _, n := range res.Nodes {
		bySource[n.Source]++
	}
	for source, count := range bySource {
		m.TaxonomyNodes.WithLabelValues(string(source)).Set(float64(count))
	}
	for _, merge := range report.Merges {
		m.CategoryMergesTotal.WithLabelValues(merge.Rule).Inc()
	}
	if res.Summary.SearchUnmatched > 0 {
		m.UnmatchedRecordsTotal.WithLabelValues("search").Add(float64(res.Summary.SearchUnmatched))
	}
	if res.Summary.BehaviorUnmatched > 0 {
		m.UnmatchedRecordsTotal.WithLabelValues("behavioral").Add(float64(res.Summary.BehaviorUnmatched))
	}
	for _, score := range res.Scores {
		m.OpportunitiesTotal.WithLabelValues(string(score.Type)).Inc()
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Remapping and factor assembly
// ─────────────────────────────────────────────────────────────────────────────

// remapAssignments re-attributes product assignments keyed by merged-away node
// ids onto their surviving nodes, unioning sets when both sides had products.
func remapAssignments(
	in map[common.NodeID]map[common.ProductID]struct{},
	report *taxonomy.MergeReport,
) map[common.NodeID]map[common.ProductID]struct{} {
	out := make(map[common.NodeID]map[common.ProductID]struct{}, len(in))
	for id, set := range in {
		target := report.Resolve(id)
		dst, ok := out[target]
		if !ok {
			dst = make(map[common.ProductID]struct{}, len(set))
			out[target] = dst
		}
		for pid := range set {
			dst[pid] = struct{}{}
		}
	}
	return out
}

// remapURLs follows the merge remap and drops entries whose terminal node is
// not in the surviving set.
func remapURLs(
	in map[string]common.NodeID,
	report *taxonomy.MergeReport,
	nodes map[common.NodeID]*taxonomy.Node,
) map[string]common.NodeID {
	out := make(map[string]common.NodeID, len(in))
	for url, id := range in {
		target := report.Resolve(id)
		if _, ok := nodes[target]; ok {
			out[url] = target
		}
	}
	return out
}

func remapBehavioral(
	in []catalog.BehavioralMetricRecord,
	report *taxonomy.MergeReport,
) []catalog.BehavioralMetricRecord {
	out := make([]catalog.BehavioralMetricRecord, len(in))
	copy(out, in)
	for i := range out {
		out[i].NodeID = report.Resolve(out[i].NodeID)
	}
	return out
}

// catalogStats accumulates per-node product completeness indicators.
type catalogStats struct {
	count    int
	inStock  int
	hasImage int
	priceSum float64
}

// rollupCatalogStats computes cumulative completeness stats per node: direct
// assignments first, then a deepest-first fold into parents, mirroring how
// product counts propagate.
func rollupCatalogStats(
	nodes map[common.NodeID]*taxonomy.Node,
	assignments map[common.NodeID]map[common.ProductID]struct{},
	products []catalog.Product,
) map[common.NodeID]*catalogStats {
	byID := make(map[common.ProductID]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	stats := make(map[common.NodeID]*catalogStats)
	for nodeID, set := range assignments {
		acc := &catalogStats{}
		for pid := range set {
			p, ok := byID[pid]
			if !ok {
				continue
			}
			acc.count++
			if p.InStock {
				acc.inStock++
			}
			if p.HasImage {
				acc.hasImage++
			}
			acc.priceSum += p.Price
		}
		stats[nodeID] = acc
	}

	ordered := taxonomy.NodesByDepthAscending(nodes)
	for i := len(ordered) - 1; i >= 0; i-- {
		n := ordered[i]
		if n.ParentID == "" {
			continue
		}
		child := stats[n.ID]
		if child == nil {
			continue
		}
		parent := stats[n.ParentID]
		if parent == nil {
			parent = &catalogStats{}
			stats[n.ParentID] = parent
		}
		parent.count += child.count
		parent.inStock += child.inStock
		parent.hasImage += child.hasImage
		parent.priceSum += child.priceSum
	}
	return stats
}

func buildFactors(
	id common.NodeID,
	node *taxonomy.Node,
	cat *catalogStats,
	search *metrics.AggregatedSearch,
	behavioral *metrics.AggregatedBehavioral,
) scoring.ScoringFactors {
	f := scoring.ScoringFactors{
		NodeID:       id,
		ProductCount: node.ProductCount,
	}
	if cat != nil && cat.count > 0 {
		f.InStockRatio = float64(cat.inStock) / float64(cat.count)
		f.HasImageRatio = float64(cat.hasImage) / float64(cat.count)
		f.AvgPrice = cat.priceSum / float64(cat.count)
	}
	if search != nil {
		f.Impressions = search.Impressions
		f.Clicks = search.Clicks
		f.CTR = search.CTR
		f.Position = search.AvgPosition
	}
	if behavioral != nil {
		f.Sessions = behavioral.Sessions
		f.ConversionRate = behavioral.ConversionRate
		f.BounceRate = behavioral.BounceRate
		f.Revenue = behavioral.Revenue
		f.AvgOrderValue = behavioral.AvgOrderValue
	}
	return f
}

func countByType(scores []scoring.OpportunityScore, typ scoring.OpportunityType) int {
	n := 0
	for i := range scores {
		if scores[i].Type == typ {
			n++
		}
	}
	return n
}
