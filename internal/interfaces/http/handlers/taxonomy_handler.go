package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adstedt/contentmax-sub005/internal/domain/taxonomy"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/pkg/errors"
	"github.com/Adstedt/contentmax-sub005/pkg/types/common"
)

// TaxonomyReader reads one run's persisted node forest.
type TaxonomyReader interface {
	GetForest(ctx context.Context, runID common.RunID) (map[common.NodeID]*taxonomy.Node, error)
	GetNode(ctx context.Context, runID common.RunID, id common.NodeID) (*taxonomy.Node, error)
}

// TaxonomyHandler serves the taxonomy tree endpoints.
type TaxonomyHandler struct {
	reader TaxonomyReader
	log    logging.Logger
}

func NewTaxonomyHandler(reader TaxonomyReader, log logging.Logger) *TaxonomyHandler {
	return &TaxonomyHandler{reader: reader, log: log.Named("handlers.taxonomy")}
}

// Forest answers the full node set ordered by depth, then id.
func (h *TaxonomyHandler) Forest(c *gin.Context) {
	runID := common.RunID(c.Param("runID"))

	nodes, err := h.reader.GetForest(c.Request.Context(), runID)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(nodes) == 0 {
		respondError(c, errors.New(errors.ErrCodeNotFound, "no taxonomy recorded for run").
			WithDetail("run="+string(runID)))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"count":  len(nodes),
		"nodes":  taxonomy.NodesByDepthAscending(nodes),
	})
}

// Subtree answers one node and all of its descendants.
func (h *TaxonomyHandler) Subtree(c *gin.Context) {
	runID := common.RunID(c.Param("runID"))
	nodeID := common.NodeID(c.Param("nodeID"))
	ctx := c.Request.Context()

	root, err := h.reader.GetNode(ctx, runID, nodeID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Descendants need the full forest; a node endpoint alone cannot walk
	// children without a parent index.
	forest, err := h.reader.GetForest(ctx, runID)
	if err != nil {
		respondError(c, err)
		return
	}

	descendants := collectSubtree(forest, root.ID)
	c.JSON(http.StatusOK, gin.H{
		"run_id": runID,
		"root":   root,
		"count":  len(descendants),
		"nodes":  descendants,
	})
}

// collectSubtree returns the root and every descendant, breadth-first with
// children in id order.
func collectSubtree(nodes map[common.NodeID]*taxonomy.Node, rootID common.NodeID) []*taxonomy.Node {
	var out []*taxonomy.Node
	queue := []common.NodeID{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := nodes[id]
		if !ok {
			continue
		}
		out = append(out, n)
		queue = append(queue, taxonomy.Children(nodes, id)...)
	}
	return out
}
