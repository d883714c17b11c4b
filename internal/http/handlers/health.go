package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// StoreHealth reports reachability per storage tier ("ok" or an error).
type StoreHealth interface {
	Health(ctx context.Context) map[string]string
}

type HealthHandler struct {
	stores     StoreHealth
	floorTiers []string
}

// NewHealthHandler reports unhealthy when any of floorTiers is not "ok".
func NewHealthHandler(stores StoreHealth, floorTiers ...string) *HealthHandler {
	return &HealthHandler{stores: stores, floorTiers: floorTiers}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /healthcheck/stores
func (h *HealthHandler) Stores(c *gin.Context) {
	if h.stores == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	tiers := h.stores.Health(ctx)
	status := http.StatusOK
	for _, name := range h.floorTiers {
		if tiers[name] != "ok" {
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, gin.H{"success": status == http.StatusOK, "data": tiers})
}
