package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
	"stock-forecast-app/pkg/additive"
)

// Decomposer exposes the fitted components of a forecast.
type Decomposer interface {
	Decompose() models.Decomposition
}

// forecastKey identifies a fit. The series bounds are part of the key so a reloaded
// ticker is fitted again.
type forecastKey struct {
	symbol  string
	horizon int
	bars    int
	last    int64
}

// ForecastService fits the additive model to closing prices. Fits are not cached;
// failures are, so a series that cannot be fitted is reported once per session.
type ForecastService struct {
	opts     additive.Options
	failures *Cache[forecastKey, error]
	log      *logrus.Entry
}

func NewForecastService(logger *logrus.Logger) *ForecastService {
	return NewForecastServiceWithOptions(additive.DefaultOptions(), logger)
}

func NewForecastServiceWithOptions(opts additive.Options, logger *logrus.Logger) *ForecastService {
	return &ForecastService{
		opts:     opts,
		failures: NewCache[forecastKey, error](0),
		log:      logging.Component(logger, "forecast"),
	}
}

// Forecast predicts the closing price of series for every day from its first date
// through its last date plus horizonDays.
func (s *ForecastService) Forecast(ctx context.Context, series *models.PriceSeries, horizonDays int) (*models.ForecastResult, Decomposer, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if series == nil {
		return nil, nil, models.NewForecastFailedError("", "no price series", nil)
	}
	if horizonDays <= 0 {
		return nil, nil, models.NewForecastFailedError(series.Symbol, "horizon must be positive", nil)
	}

	key := forecastKey{series.Symbol, horizonDays, series.Len(), series.LastDate().Unix()}
	if err, found := s.failures.Get(key); found {
		return nil, nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"symbol":       series.Symbol,
		"horizon_days": horizonDays,
		"bars":         series.Len(),
	})

	started := time.Now()
	result, components, err := s.fit(series, horizonDays)
	if err != nil {
		s.failures.Set(key, err)
		logger.WithError(err).Warn("Forecast failed")
		return nil, nil, err
	}

	logger.WithFields(logrus.Fields{
		"points":  len(result.Points),
		"elapsed": time.Since(started).String(),
	}).Info("Forecast generated")
	return result, components, nil
}

// Reset forgets remembered failures.
func (s *ForecastService) Reset() {
	s.failures.Clear()
}

// Forget drops the remembered failures of one ticker.
func (s *ForecastService) Forget(symbol string) {
	n := s.failures.DeleteFunc(func(k forecastKey) bool { return k.symbol == symbol })
	if n > 0 {
		s.log.WithFields(logrus.Fields{"symbol": symbol, "failures": n}).Debug("Forecast failures forgotten")
	}
}

func (s *ForecastService) fit(series *models.PriceSeries, horizonDays int) (*models.ForecastResult, *fittedComponents, error) {
	points := make([]additive.Point, 0, series.Len())
	actuals := make(map[int64]float64, series.Len())
	for _, bar := range series.Bars {
		y := bar.Close.InexactFloat64()
		points = append(points, additive.Point{T: bar.Date, Y: y})
		actuals[bar.Date.Unix()] = y
	}
	if len(points) < 2 {
		return nil, nil, models.NewForecastFailedError(series.Symbol, "at least two observations are required", nil)
	}

	model := additive.New(s.opts)
	if err := model.Fit(points); err != nil {
		return nil, nil, models.NewForecastFailedError(series.Symbol, fitFailureReason(err), err)
	}

	preds, err := model.Predict(model.FutureDates(horizonDays))
	if err != nil {
		return nil, nil, models.NewForecastFailedError(series.Symbol, "prediction failed", err)
	}

	result := &models.ForecastResult{
		Symbol:      series.Symbol,
		HorizonDays: horizonDays,
		Points:      make([]models.ForecastPoint, len(preds)),
		GeneratedAt: time.Now(),
	}
	components := &fittedComponents{
		dates:  make([]time.Time, len(preds)),
		trend:  make([]float64, len(preds)),
		weekly: model.WeeklyProfile(),
		yearly: model.YearlyProfile(),
	}

	for i, p := range preds {
		point := models.ForecastPoint{
			Date:      p.T,
			Predicted: p.Yhat,
			Lower:     p.Lower,
			Upper:     p.Upper,
			Trend:     p.Trend,
			Seasonal:  p.Seasonal(),
			Weekly:    p.Weekly,
			Yearly:    p.Yearly,
		}
		if y, ok := actuals[p.T.Unix()]; ok {
			y := y
			point.Actual = &y
		}
		result.Points[i] = point
		components.dates[i] = p.T
		components.trend[i] = p.Trend
	}

	return result, components, nil
}

func fitFailureReason(err error) string {
	switch {
	case errors.Is(err, additive.ErrInsufficientData):
		return "at least two observations are required"
	case errors.Is(err, additive.ErrConstantSeries):
		return "all closing prices are identical"
	default:
		return "model fit failed"
	}
}

// fittedComponents is the Decomposer returned with a forecast.
type fittedComponents struct {
	dates  []time.Time
	trend  []float64
	weekly []float64
	yearly []float64
}

// Decompose returns copies, so callers may keep or modify them.
func (c *fittedComponents) Decompose() models.Decomposition {
	return models.Decomposition{
		Dates:  append([]time.Time(nil), c.dates...),
		Trend:  append([]float64(nil), c.trend...),
		Weekly: append([]float64(nil), c.weekly...),
		Yearly: append([]float64(nil), c.yearly...),
	}
}
