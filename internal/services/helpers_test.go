package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"stock-forecast-app/internal/config"
	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
)

var (
	historyStart = time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC)
	sessionDate  = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
)

func testConfig() *config.Config {
	return &config.Config{
		Port:          "8080",
		Environment:   "test",
		LogLevel:      "error",
		HistoryStart:  historyStart,
		SessionDate:   sessionDate,
		FetchTimeout:  time.Second,
		RenderHistory: 4,
	}
}

// fakeFetcher serves canned series and counts calls per symbol.
type fakeFetcher struct {
	name   string
	delay  time.Duration
	series map[string]*models.PriceSeries
	err    error

	mu    sync.Mutex
	calls map[string]int
}

func newFakeFetcher(name string, series ...*models.PriceSeries) *fakeFetcher {
	f := &fakeFetcher{
		name:   name,
		series: make(map[string]*models.PriceSeries),
		calls:  make(map[string]int),
	}
	for _, s := range series {
		f.series[s.Symbol] = s
	}
	return f
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) GetHistory(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	f.mu.Lock()
	f.calls[symbol]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("no data found, symbol %s may be delisted", symbol)
	}
	return s, nil
}

func (f *fakeFetcher) Calls(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

// tradingSeries builds n weekday closes ending on sessionDate.
func tradingSeries(symbol string, n int, price func(i int) float64) *models.PriceSeries {
	bars := make([]models.PriceBar, 0, n)
	for d := sessionDate; len(bars) < n; d = d.AddDate(0, 0, -1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, models.PriceBar{Date: d})
	}
	// built newest first
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	for i := range bars {
		p := decimal.NewFromFloat(price(i))
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = p, p, p, p
		bars[i].Volume = int64(1000 + i)
	}
	return &models.PriceSeries{
		Symbol: symbol,
		Source: "fake",
		Start:  historyStart,
		End:    sessionDate,
		Bars:   bars,
	}
}

// dailySeries builds n calendar-day closes ending on sessionDate, as crypto trades.
func dailySeries(symbol string, n int, price func(i int) float64) *models.PriceSeries {
	bars := make([]models.PriceBar, n)
	first := sessionDate.AddDate(0, 0, -(n - 1))
	for i := range bars {
		p := decimal.NewFromFloat(price(i))
		bars[i] = models.PriceBar{
			Date: first.AddDate(0, 0, i), Open: p, High: p, Low: p, Close: p, Volume: int64(i),
		}
	}
	return &models.PriceSeries{
		Symbol: symbol,
		Source: "fake",
		Start:  historyStart,
		End:    sessionDate,
		Bars:   bars,
	}
}

func rising(i int) float64 {
	return 100 + 0.3*float64(i) + float64(i%5)
}

func newTestMarketData(sources ...HistoryFetcher) *MarketDataService {
	return NewMarketDataServiceWithSources(testConfig(), logging.Discard(), sources...)
}
