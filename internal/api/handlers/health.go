package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuschat/chat-service/internal/core/cache"
	"github.com/campuschat/chat-service/internal/core/docdb"
)

// HealthHandler reports process liveness and dependency reachability.
type HealthHandler struct {
	cache cache.Cache
	docDB docdb.Client
}

// NewHealthHandler creates a new HealthHandler. Either dependency may be
// nil when not configured.
func NewHealthHandler(cacheClient cache.Cache, docDBClient docdb.Client) *HealthHandler {
	return &HealthHandler{
		cache: cacheClient,
		docDB: docDBClient,
	}
}

// Healthz handles GET /healthz.
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	deps := gin.H{}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			deps["cache"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			deps["cache"] = "ok"
		}
	}
	if h.docDB != nil {
		if err := h.docDB.Ping(ctx); err != nil {
			deps["history"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			deps["history"] = "ok"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "dependencies": deps})
}
