package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"stock-forecast-app/internal/config"
	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
	"stock-forecast-app/pkg/alphavantage"
	"stock-forecast-app/pkg/yahoo"
)

// HistoryFetcher is a daily price history provider.
type HistoryFetcher interface {
	Name() string
	GetHistory(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error)
}

// MarketDataStats reports how the ticker cache is being used.
type MarketDataStats struct {
	CacheStats
	Loads      int64    `json:"loads"`
	Restored   int64    `json:"restored"`
	Persistent bool     `json:"persistent"`
	Sources    []string `json:"sources"`
}

// loadOutcome is what the ticker cache stores: a series or the error that
// prevented loading it.
type loadOutcome struct {
	series *models.PriceSeries
	err    error
}

// MarketDataService loads price histories over the session date range. Each ticker is
// fetched at most once per session; failures are cached alongside successes.
type MarketDataService struct {
	start    time.Time
	end      time.Time
	sources  []HistoryFetcher
	timeout  time.Duration
	cache    *Cache[string, loadOutcome]
	store    HistoryStore
	group    singleflight.Group
	loads    atomic.Int64
	restored atomic.Int64
	log      *logrus.Entry
}

// NewMarketDataService wires Yahoo and, when a key is configured, Alpha Vantage.
func NewMarketDataService(cfg *config.Config, logger *logrus.Logger) *MarketDataService {
	sources := []HistoryFetcher{yahoo.NewClient(cfg.FetchTimeout)}
	if av := alphavantage.NewClient(cfg.AlphaVantageKey, cfg.FetchTimeout); av.Configured() {
		sources = append(sources, av)
	}
	return NewMarketDataServiceWithSources(cfg, logger, sources...)
}

func NewMarketDataServiceWithSources(cfg *config.Config, logger *logrus.Logger, sources ...HistoryFetcher) *MarketDataService {
	return &MarketDataService{
		start:   cfg.HistoryStart,
		end:     cfg.SessionDate,
		sources: sources,
		timeout: cfg.FetchTimeout,
		cache:   NewCache[string, loadOutcome](0),
		log:     logging.Component(logger, "market_data"),
	}
}

// WithStore adds a persistent second level behind the session cache.
func (s *MarketDataService) WithStore(store HistoryStore) *MarketDataService {
	s.store = store
	return s
}

// Load returns the session history of ticker.
func (s *MarketDataService) Load(ctx context.Context, ticker string) (*models.PriceSeries, error) {
	return s.LoadRange(ctx, ticker, s.start, s.end)
}

// LoadRange returns the daily history of ticker between start and end. Only the
// session range is cached; the cache is keyed by ticker alone.
//
// Concurrent callers share one load. The shared load is detached from every
// caller's context and bounded by the fetch timeout, so a caller that gives up
// only stops waiting.
func (s *MarketDataService) LoadRange(ctx context.Context, ticker string, start, end time.Time) (*models.PriceSeries, error) {
	if !start.Equal(s.start) || !end.Equal(s.end) {
		return s.fetch(ctx, ticker, start, end)
	}

	if out, found := s.cache.Get(ticker); found {
		return out.series, out.err
	}
	if err := ctx.Err(); err != nil {
		return nil, models.NewDataUnavailableError(ticker, err)
	}

	ch := s.group.DoChan(ticker, func() (interface{}, error) {
		if out, found := s.cache.Peek(ticker); found {
			return out, nil
		}

		loadCtx, cancel := s.sharedContext(ctx)
		defer cancel()

		if series, found := s.restore(loadCtx, ticker, start, end); found {
			out := loadOutcome{series: series}
			s.cache.Set(ticker, out)
			return out, nil
		}

		series, err := s.fetch(loadCtx, ticker, start, end)
		if err == nil {
			s.persist(loadCtx, start, end, series)
		}
		out := loadOutcome{series: series, err: err}
		s.cache.Set(ticker, out)
		return out, nil
	})

	select {
	case res := <-ch:
		out := res.Val.(loadOutcome)
		return out.series, out.err
	case <-ctx.Done():
		return nil, models.NewDataUnavailableError(ticker, ctx.Err())
	}
}

// sharedContext keeps the values of ctx but none of its cancellation.
func (s *MarketDataService) sharedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.timeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, s.timeout)
}

// restore reads a history stored by an earlier process. Store errors are logged
// and treated as a miss.
func (s *MarketDataService) restore(ctx context.Context, ticker string, start, end time.Time) (*models.PriceSeries, bool) {
	if s.store == nil {
		return nil, false
	}
	series, found, err := s.store.Get(ctx, ticker, start, end)
	if err != nil {
		s.log.WithField("symbol", ticker).WithError(err).Warn("History store read failed")
		return nil, false
	}
	if !found || series.Len() == 0 {
		return nil, false
	}
	s.restored.Add(1)
	s.log.WithFields(logrus.Fields{"symbol": ticker, "bars": series.Len()}).Info("Restored price history")
	return series, true
}

func (s *MarketDataService) persist(ctx context.Context, start, end time.Time, series *models.PriceSeries) {
	if s.store == nil {
		return
	}
	if err := s.store.Put(ctx, start, end, series); err != nil {
		s.log.WithField("symbol", series.Symbol).WithError(err).Warn("History store write failed")
	}
}

// fetch asks every provider concurrently and returns the first success.
func (s *MarketDataService) fetch(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	s.loads.Add(1)
	logger := s.log.WithField("symbol", symbol)

	if len(s.sources) == 0 {
		return nil, models.NewDataUnavailableError(symbol, errors.New("no providers configured"))
	}

	type result struct {
		source string
		series *models.PriceSeries
		err    error
	}

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	resultCh := make(chan result, len(s.sources))
	for _, src := range s.sources {
		go func(src HistoryFetcher) {
			series, err := src.GetHistory(fetchCtx, symbol, start, end)
			resultCh <- result{src.Name(), series, err}
		}(src)
	}

	// Fan-in: first successful result wins, the rest are cancelled
	var errs []error
	for range s.sources {
		select {
		case res := <-resultCh:
			if res.err == nil {
				logger.WithFields(logrus.Fields{
					"source": res.source,
					"bars":   res.series.Len(),
					"first":  res.series.FirstDate().Format("2006-01-02"),
					"last":   res.series.LastDate().Format("2006-01-02"),
				}).Info("Loaded price history")
				return res.series, nil
			}
			logger.WithField("source", res.source).WithError(res.err).Warn("Provider failed")
			errs = append(errs, fmt.Errorf("%s: %w", res.source, res.err))

		case <-ctx.Done():
			return nil, models.NewDataUnavailableError(symbol, ctx.Err())
		}
	}

	return nil, models.NewDataUnavailableError(symbol, errors.Join(errs...))
}

// Invalidate forgets the cached outcome for ticker.
func (s *MarketDataService) Invalidate(ticker string) {
	s.cache.Delete(ticker)
}

// Reset forgets every cached outcome. Failed tickers are retried on their next
// load; stored histories stay in the history store.
func (s *MarketDataService) Reset() {
	s.cache.Clear()
	s.log.Info("Ticker cache cleared")
}

func (s *MarketDataService) Stats() MarketDataStats {
	names := make([]string, len(s.sources))
	for i, src := range s.sources {
		names[i] = src.Name()
	}
	return MarketDataStats{
		CacheStats: s.cache.Stats(),
		Loads:      s.loads.Load(),
		Restored:   s.restored.Load(),
		Persistent: s.store != nil,
		Sources:    names,
	}
}
