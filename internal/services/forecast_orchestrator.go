package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
)

// SeriesLoader loads the session history of a ticker.
type SeriesLoader interface {
	Load(ctx context.Context, ticker string) (*models.PriceSeries, error)
	Invalidate(ticker string)
	Reset()
}

// Forecaster turns a price series into a forecast.
type Forecaster interface {
	Forecast(ctx context.Context, series *models.PriceSeries, horizonDays int) (*models.ForecastResult, Decomposer, error)
	Forget(symbol string)
	Reset()
}

// ForecastOrchestrator runs one render pass: validate the selection, then load and
// forecast the stock and the crypto ticker.
type ForecastOrchestrator struct {
	marketData SeriesLoader
	forecaster Forecaster
	renders    *RenderStore
	log        *logrus.Entry
}

// NewForecastOrchestrator builds an orchestrator. renders may be nil when nobody
// needs to look passes up again.
func NewForecastOrchestrator(marketData SeriesLoader, forecaster Forecaster, renders *RenderStore, logger *logrus.Logger) *ForecastOrchestrator {
	return &ForecastOrchestrator{
		marketData: marketData,
		forecaster: forecaster,
		renders:    renders,
		log:        logging.Component(logger, "orchestrator"),
	}
}

// Render runs the pipeline for sel. An invalid selection fails the whole pass; any
// other failure is recorded on its instrument and the other instrument still runs.
func (o *ForecastOrchestrator) Render(ctx context.Context, sel models.Selection) (*models.ViewModel, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	vm := &models.ViewModel{
		RenderID:    uuid.NewString(),
		Selection:   sel,
		HorizonDays: sel.HorizonDays(),
	}
	logger := o.log.WithFields(logrus.Fields{
		"render_id":    vm.RenderID,
		"stock":        sel.Stock,
		"crypto":       sel.Crypto,
		"horizon_days": vm.HorizonDays,
	})

	started := time.Now()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		vm.Stock = o.runPipeline(ctx, models.KindStock, sel.Stock, vm.HorizonDays)
	}()
	go func() {
		defer wg.Done()
		vm.Crypto = o.runPipeline(ctx, models.KindCrypto, sel.Crypto, vm.HorizonDays)
	}()
	wg.Wait()
	vm.RenderedAt = time.Now()

	if o.renders != nil {
		o.renders.Put(vm)
	}

	entry := logger.WithField("elapsed", time.Since(started).String())
	for _, view := range []*models.InstrumentView{&vm.Stock, &vm.Crypto} {
		if view.Failed() {
			entry = entry.WithField(string(view.Kind)+"_error", view.Error)
		}
	}
	entry.Info("Render pass complete")

	return vm, nil
}

func (o *ForecastOrchestrator) runPipeline(ctx context.Context, kind models.InstrumentKind, symbol string, horizonDays int) models.InstrumentView {
	view := models.InstrumentView{Kind: kind, Symbol: symbol}

	series, err := o.marketData.Load(ctx, symbol)
	if err != nil {
		view.Fail(err)
		return view
	}
	view.Series = series

	result, components, err := o.forecaster.Forecast(ctx, series, horizonDays)
	if err != nil {
		view.Fail(err)
		return view
	}
	view.Forecast = result
	decomposition := components.Decompose()
	view.Decomposition = &decomposition

	return view
}

// Lookup returns a stored render pass.
func (o *ForecastOrchestrator) Lookup(renderID string) (*models.ViewModel, bool) {
	if o.renders == nil {
		return nil, false
	}
	return o.renders.Get(renderID)
}

// GetTickerData returns the session history of a catalog ticker.
func (o *ForecastOrchestrator) GetTickerData(ctx context.Context, symbol string) (*models.PriceSeries, error) {
	if !models.IsKnownTicker(symbol) {
		return nil, models.NewInvalidSelectionError("symbol", symbol)
	}
	return o.marketData.Load(ctx, symbol)
}

// RefreshCache clears the ticker cache and remembered forecast failures. The next
// render pass downloads again.
func (o *ForecastOrchestrator) RefreshCache(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.marketData.Reset()
	o.forecaster.Reset()
	o.log.Info("Caches refreshed")
	return nil
}

// RefreshTicker forgets the cached history and the remembered forecast failures
// of one catalog ticker.
func (o *ForecastOrchestrator) RefreshTicker(ctx context.Context, symbol string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !models.IsKnownTicker(symbol) {
		return models.NewInvalidSelectionError("symbol", symbol)
	}
	o.marketData.Invalidate(symbol)
	o.forecaster.Forget(symbol)
	o.log.WithField("symbol", symbol).Info("Ticker cache entry refreshed")
	return nil
}
