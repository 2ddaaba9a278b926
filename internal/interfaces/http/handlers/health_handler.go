package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Adstedt/contentmax-sub005/internal/infrastructure/monitoring/logging"
)

// HealthChecker is anything with a pingable dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheckerFunc adapts a plain function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

const readinessTimeout = 5 * time.Second

// HealthHandler serves liveness and readiness probes.  Liveness always
// succeeds while the process runs; readiness pings every named dependency.
type HealthHandler struct {
	checks map[string]HealthChecker
	log    logging.Logger
}

func NewHealthHandler(checks map[string]HealthChecker, log logging.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, log: log.Named("health")}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			healthy = false
			results[name] = err.Error()
			h.log.Warn("readiness check failed",
				logging.String("dependency", name), logging.Err(err))
		} else {
			results[name] = "ok"
		}
	}

	status := http.StatusOK
	overall := "ready"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "dependencies": results})
}
