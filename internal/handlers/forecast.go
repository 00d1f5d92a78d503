package handlers

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
	"stock-forecast-app/internal/services"
	"stock-forecast-app/internal/views"
)

// A render pass downloads up to two full histories and fits two models.
const renderTimeout = 2 * time.Minute

type ForecastHandler struct {
	orchestrator *services.ForecastOrchestrator
	log          *logrus.Entry
}

func NewForecastHandler(orchestrator *services.ForecastOrchestrator, logger *logrus.Logger) *ForecastHandler {
	return &ForecastHandler{
		orchestrator: orchestrator,
		log:          logging.Component(logger, "handlers"),
	}
}

// Index handles GET /
func (h *ForecastHandler) Index(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), renderTimeout)
	defer cancel()

	sel, err := parseSelection(c)
	if err != nil {
		return h.renderPage(c, fiber.StatusBadRequest, views.ErrorPageData(models.DefaultSelection(), err))
	}

	vm, err := h.orchestrator.Render(ctx, sel)
	if errors.Is(err, models.ErrInvalidSelection) {
		return h.renderPage(c, fiber.StatusBadRequest, views.ErrorPageData(models.DefaultSelection(), err))
	}
	if err != nil {
		return err
	}

	return h.renderPage(c, fiber.StatusOK, views.NewPageData(vm))
}

// Chart handles GET /charts/:render/:instrument/:kind
func (h *ForecastHandler) Chart(c *fiber.Ctx) error {
	vm, found := h.orchestrator.Lookup(c.Params("render"))
	if !found {
		return fiber.NewError(fiber.StatusNotFound, "render pass is no longer available")
	}

	view, ok := vm.Instrument(models.InstrumentKind(c.Params("instrument")))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown instrument")
	}

	kind := c.Params("kind")
	if !views.IsChartKind(kind) {
		return fiber.NewError(fiber.StatusNotFound, "unknown chart")
	}

	var buf bytes.Buffer
	if err := views.RenderChart(&buf, view, kind, vm.Selection.Years); err != nil {
		if errors.Is(err, views.ErrChartUnavailable) {
			msg := err.Error()
			if view.Failed() {
				msg = view.Error
			}
			return fiber.NewError(fiber.StatusNotFound, msg)
		}
		return err
	}

	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

// GetForecast handles GET /v1/forecast
func (h *ForecastHandler) GetForecast(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), renderTimeout)
	defer cancel()

	sel, err := parseSelection(c)
	if err != nil {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Invalid query",
			Message: err.Error(),
			Code:    400,
		})
	}

	vm, err := h.orchestrator.Render(ctx, sel)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSelection) {
			return c.Status(400).JSON(models.ErrorResponse{
				Error:   "Invalid selection",
				Message: err.Error(),
				Code:    400,
			})
		}
		return c.Status(500).JSON(models.ErrorResponse{
			Error:   "Failed to generate forecast",
			Message: err.Error(),
			Code:    500,
		})
	}

	return c.JSON(vm)
}

// GetTickerData handles GET /v1/tickers/:symbol
func (h *ForecastHandler) GetTickerData(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), renderTimeout)
	defer cancel()

	symbol := c.Params("symbol")
	if symbol == "" {
		return c.Status(400).JSON(models.ErrorResponse{
			Error: "Symbol is required",
			Code:  400,
		})
	}

	data, err := h.orchestrator.GetTickerData(ctx, symbol)
	if err != nil {
		if errors.Is(err, models.ErrInvalidSelection) {
			return c.Status(400).JSON(models.ErrorResponse{
				Error:   "Unknown ticker",
				Message: err.Error(),
				Code:    400,
			})
		}
		return c.Status(404).JSON(models.ErrorResponse{
			Error:   "Ticker not found",
			Message: err.Error(),
			Code:    404,
		})
	}

	return c.JSON(data)
}

// RefreshCache handles POST /v1/admin/refresh. With ?symbol= only that ticker is
// refreshed.
func (h *ForecastHandler) RefreshCache(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()

	var err error
	if symbol := c.Query("symbol"); symbol != "" {
		err = h.orchestrator.RefreshTicker(ctx, symbol)
	} else {
		err = h.orchestrator.RefreshCache(ctx)
	}
	if errors.Is(err, models.ErrInvalidSelection) {
		return c.Status(400).JSON(models.ErrorResponse{
			Error:   "Unknown ticker",
			Message: err.Error(),
			Code:    400,
		})
	}
	if err != nil {
		return c.Status(500).JSON(models.ErrorResponse{
			Error:   "Failed to refresh cache",
			Message: err.Error(),
			Code:    500,
		})
	}

	return c.JSON(fiber.Map{
		"message": "Cache refreshed successfully",
		"time":    time.Now(),
	})
}

func (h *ForecastHandler) renderPage(c *fiber.Ctx, status int, data views.PageData) error {
	var buf bytes.Buffer
	if err := views.RenderPage(&buf, data); err != nil {
		h.log.WithError(err).Error("Page render failed")
		return err
	}
	c.Type("html", "utf-8")
	return c.Status(status).Send(buf.Bytes())
}

// parseSelection reads crypto, stock and years from the query string. Missing
// values fall back to the widget defaults.
func parseSelection(c *fiber.Ctx) (models.Selection, error) {
	var sel models.Selection
	if err := c.QueryParser(&sel); err != nil {
		return models.Selection{}, models.NewInvalidSelectionError("query", string(c.Request().URI().QueryString()))
	}
	return sel.WithDefaults(), nil
}

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, models.ErrInvalidSelection):
		code = fiber.StatusBadRequest
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Message: err.Error(),
		Code:    code,
	})
}
