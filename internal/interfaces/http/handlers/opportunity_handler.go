package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Adstedt/contentmax-sub005/internal/domain/scoring"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// ScoreReader reads one run's persisted opportunity scores.
type ScoreReader interface {
	ListTop(ctx context.Context, runID common.RunID, n int) ([]scoring.OpportunityScore, error)
	GetByType(ctx context.Context, runID common.RunID, typ scoring.OpportunityType) ([]scoring.OpportunityScore, error)
}

// maxOpportunityLimit caps the limit query parameter.
const maxOpportunityLimit = 500

var validTypes = map[scoring.OpportunityType]bool{
	scoring.TypeQuickWin:       true,
	scoring.TypeHighValue:      true,
	scoring.TypeSEOOpportunity: true,
	scoring.TypeCROOpportunity: true,
	scoring.TypeMaintenance:    true,
}

// OpportunityHandler serves ranked opportunity lists.
type OpportunityHandler struct {
	reader       ScoreReader
	defaultLimit int
	log          logging.Logger
}

func NewOpportunityHandler(reader ScoreReader, defaultLimit int, log logging.Logger) *OpportunityHandler {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &OpportunityHandler{
		reader:       reader,
		defaultLimit: defaultLimit,
		log:          log.Named("handlers.opportunities"),
	}
}

// List answers the run's top opportunities.  `limit` bounds the result;
// `type` filters to one classification instead.
func (h *OpportunityHandler) List(c *gin.Context) {
	runID := common.RunID(c.Param("runID"))
	ctx := c.Request.Context()

	if raw, ok := c.GetQuery("type"); ok {
		typ := scoring.OpportunityType(raw)
		if !validTypes[typ] {
			respondError(c, errors.New(errors.ErrCodeBadRequest, "unknown opportunity type").
				WithDetail("type="+raw))
			return
		}
		scores, err := h.reader.GetByType(ctx, runID, typ)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"run_id":        runID,
			"type":          typ,
			"count":         len(scores),
			"opportunities": scores,
		})
		return
	}

	limit := h.defaultLimit
	if raw, ok := c.GetQuery("limit"); ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxOpportunityLimit {
			respondError(c, errors.New(errors.ErrCodeBadRequest, "limit must be a positive integer").
				WithDetail("limit="+raw))
			return
		}
		limit = parsed
	}

	scores, err := h.reader.ListTop(ctx, runID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":        runID,
		"count":         len(scores),
		"opportunities": scores,
	})
}

// QuickWins answers the quick-win subset, the dashboard's default view.
func (h *OpportunityHandler) QuickWins(c *gin.Context) {
	runID := common.RunID(c.Param("runID"))

	scores, err := h.reader.GetByType(c.Request.Context(), runID, scoring.TypeQuickWin)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":        runID,
		"count":         len(scores),
		"opportunities": scores,
	})
}
