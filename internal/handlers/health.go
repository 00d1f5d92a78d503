package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"stock-forecast-app/internal/services"
)

const (
	serviceName = "stock-forecast-app"
	version     = "1.0.0"
)

type HealthHandler struct {
	startTime  time.Time
	marketData *services.MarketDataService
	renders    *services.RenderStore
}

func NewHealthHandler(marketData *services.MarketDataService, renders *services.RenderStore) *HealthHandler {
	return &HealthHandler{
		startTime:  time.Now(),
		marketData: marketData,
		renders:    renders,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": serviceName,
		"version": version,
		"uptime":  time.Since(h.startTime).String(),
		"time":    time.Now(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	stats := h.marketData.Stats()

	status, code := "ready", fiber.StatusOK
	providers := "ok"
	if len(stats.Sources) == 0 {
		status, code, providers = "not ready", fiber.StatusServiceUnavailable, "none configured"
	}

	historyStore := "disabled"
	if stats.Persistent {
		historyStore = "firestore"
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"api":           "ok",
			"providers":     providers,
			"history_store": historyStore,
		},
		"sources":      stats.Sources,
		"ticker_cache": stats,
		"renders":      h.renders.Len(),
	})
}
