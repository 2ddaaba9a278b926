package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adstedt/contentmax-sub005/internal/application/pipeline"
	"github.com/Adstedt/contentmax-sub005/internal/domain/metrics"
	"github.com/Adstedt/contentmax-sub005/internal/domain/taxonomy"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// RunTrigger requests a pipeline run without waiting for it.
type RunTrigger interface {
	TriggerRun(ctx context.Context, triggeredBy string) (common.RunID, error)
}

// SummaryReader reads cached run summaries.
type SummaryReader interface {
	Get(ctx context.Context, key string, dest interface{}) error
}

// MetricsReader reads one run's persisted aggregated metrics.
type MetricsReader interface {
	GetSearch(ctx context.Context, runID common.RunID) (map[common.NodeID]*metrics.AggregatedSearch, error)
	GetBehavioral(ctx context.Context, runID common.RunID) (map[common.NodeID]*metrics.AggregatedBehavioral, error)
}

// RunHandler serves run triggering, summaries and metric statistics.
type RunHandler struct {
	trigger   RunTrigger
	summaries SummaryReader
	metrics   MetricsReader
	taxonomy  TaxonomyReader
	log       logging.Logger
}

func NewRunHandler(trigger RunTrigger, summaries SummaryReader, metricsReader MetricsReader, taxonomyReader TaxonomyReader, log logging.Logger) *RunHandler {
	return &RunHandler{
		trigger:   trigger,
		summaries: summaries,
		metrics:   metricsReader,
		taxonomy:  taxonomyReader,
		log:       log.Named("handlers.runs"),
	}
}

type triggerRequest struct {
	TriggeredBy string `json:"triggered_by"`
}

// Trigger requests an asynchronous run and answers 202 with the request id.
func (h *RunHandler) Trigger(c *gin.Context) {
	if h.trigger == nil {
		respondError(c, errors.New(errors.ErrCodeServiceUnavailable, "run triggering is not configured"))
		return
	}

	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "malformed request body"))
		return
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = "api"
	}

	runID, err := h.trigger.TriggerRun(c.Request.Context(), req.TriggeredBy)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID, "status": "requested"})
}

// Latest answers the most recent run's cached summary.
func (h *RunHandler) Latest(c *gin.Context) {
	var summary pipeline.RunSummary
	if err := h.summaries.Get(c.Request.Context(), pipeline.LatestRunKey, &summary); err != nil {
		if errors.IsNotFound(err) {
			respondError(c, errors.New(errors.ErrCodeNotFound, "no completed run yet"))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Summary answers one run's cached summary.
func (h *RunHandler) Summary(c *gin.Context) {
	runID := c.Param("runID")

	var summary pipeline.RunSummary
	if err := h.summaries.Get(c.Request.Context(), "runs:"+runID, &summary); err != nil {
		if errors.IsNotFound(err) {
			respondError(c, errors.New(errors.ErrCodeNotFound, "run summary not found").
				WithDetail("run="+runID))
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// MetricsSummary answers cross-node statistics for one run's metrics.
func (h *RunHandler) MetricsSummary(c *gin.Context) {
	runID := common.RunID(c.Param("runID"))
	ctx := c.Request.Context()

	search, err := h.metrics.GetSearch(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}
	behavioral, err := h.metrics.GetBehavioral(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(search) == 0 && len(behavioral) == 0 {
		respondError(c, errors.New(errors.ErrCodeNotFound, "no metrics recorded for run").
			WithDetail("run="+string(runID)))
		return
	}

	// Persisted maps are rolled up, so ancestors already contain their
	// descendants.  Totals are computed over root entries only to avoid
	// counting the same record at every level.
	forest, err := h.taxonomy.GetForest(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":     runID,
		"search":     metrics.SummarizeSearch(rootEntries(forest, search)),
		"behavioral": metrics.SummarizeBehavioral(rootEntries(forest, behavioral)),
	})
}

// rootEntries filters a rolled-up metric map down to entries on root nodes.
func rootEntries[M any](forest map[common.NodeID]*taxonomy.Node, m map[common.NodeID]M) map[common.NodeID]M {
	out := make(map[common.NodeID]M)
	for id, v := range m {
		if n, ok := forest[id]; ok && n.IsRoot() {
			out[id] = v
		}
	}
	return out
}
