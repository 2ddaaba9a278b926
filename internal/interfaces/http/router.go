// Package http wires the gin route tree and the HTTP server around the
// pipeline's read and trigger surfaces.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/prometheus"
	"github.com/Adstedt/contentmax-sub005/internal/interfaces/http/handlers"
	"github.com/Adstedt/contentmax-sub005/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies of the
// full route tree.  Nil handlers leave their routes unregistered so partial
// deployments (no kafka, no cache) still serve what they can.
type RouterConfig struct {
	RunHandler         *handlers.RunHandler
	TaxonomyHandler    *handlers.TaxonomyHandler
	OpportunityHandler *handlers.OpportunityHandler
	HealthHandler      *handlers.HealthHandler

	// Mode selects the gin mode ("debug", "release", "test"); empty means
	// release.
	Mode string

	AllowedOrigins   []string
	Logger           logging.Logger
	AppMetrics       *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the complete route tree as one http.Handler.
func NewRouter(cfg RouterConfig) http.Handler {
	mode := cfg.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogger(cfg.Logger, cfg.AppMetrics))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsCollector.Handler()))
	}

	api := r.Group("/api/v1")
	registerRunRoutes(api, cfg.RunHandler)
	registerTaxonomyRoutes(api, cfg.TaxonomyHandler)
	registerOpportunityRoutes(api, cfg.OpportunityHandler)

	return r
}

func registerRunRoutes(r *gin.RouterGroup, h *handlers.RunHandler) {
	if h == nil {
		return
	}
	r.POST("/runs", h.Trigger)
	r.GET("/runs/latest", h.Latest)
	r.GET("/runs/:runID/summary", h.Summary)
	r.GET("/runs/:runID/metrics/summary", h.MetricsSummary)
}

func registerTaxonomyRoutes(r *gin.RouterGroup, h *handlers.TaxonomyHandler) {
	if h == nil {
		return
	}
	r.GET("/runs/:runID/taxonomy", h.Forest)
	r.GET("/runs/:runID/taxonomy/:nodeID", h.Subtree)
}

func registerOpportunityRoutes(r *gin.RouterGroup, h *handlers.OpportunityHandler) {
	if h == nil {
		return
	}
	r.GET("/runs/:runID/opportunities", h.List)
	r.GET("/runs/:runID/opportunities/quick-wins", h.QuickWins)
}
