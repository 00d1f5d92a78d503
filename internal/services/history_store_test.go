package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-forecast-app/internal/models"
)

// memoryStore is an in-process HistoryStore.
type memoryStore struct {
	mu     sync.Mutex
	docs   map[string]*models.PriceSeries
	getErr error
	putErr error
	puts   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{docs: make(map[string]*models.PriceSeries)}
}

func (m *memoryStore) Get(_ context.Context, symbol string, start, end time.Time) (*models.PriceSeries, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	s, ok := m.docs[historyDocID(symbol, start, end)]
	return s, ok, nil
}

func (m *memoryStore) Put(_ context.Context, start, end time.Time, series *models.PriceSeries) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.docs[historyDocID(series.Symbol, start, end)] = series
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestLoad_PersistsDownloadsToStore(t *testing.T) {
	store := newMemoryStore()
	fetcher := newFakeFetcher("yahoo", tradingSeries("AAPL", 40, rising))
	svc := newTestMarketData(fetcher).WithStore(store)

	series, err := svc.Load(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, store.puts)

	// a new process on the same session day restores instead of downloading
	restarted := newTestMarketData(fetcher).WithStore(store)
	restored, err := restarted.Load(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Same(t, series, restored)
	assert.Equal(t, 1, fetcher.Calls("AAPL"))
	assert.Equal(t, int64(1), restarted.Stats().Restored)
	assert.Zero(t, restarted.Stats().Loads)
}

func TestLoad_FailuresAreNotPersisted(t *testing.T) {
	store := newMemoryStore()
	svc := newTestMarketData(newFakeFetcher("yahoo")).WithStore(store)

	_, err := svc.Load(context.Background(), "FB")
	require.Error(t, err)
	assert.Zero(t, store.puts)
}

func TestLoad_StoreErrorsFallBackToProviders(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("deadline exceeded")
	store.putErr = errors.New("permission denied")
	fetcher := newFakeFetcher("yahoo", dailySeries("ETH-USD", 20, rising))
	svc := newTestMarketData(fetcher).WithStore(store)

	series, err := svc.Load(context.Background(), "ETH-USD")
	require.NoError(t, err)
	assert.Equal(t, 20, series.Len())
	assert.Equal(t, 1, fetcher.Calls("ETH-USD"))
	assert.Equal(t, 1, store.puts)
}

func TestOpenHistoryStore_DisabledWithoutProject(t *testing.T) {
	store, err := OpenHistoryStore(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.False(t, newTestMarketData().Stats().Persistent)
}

func TestHistoryDocID(t *testing.T) {
	assert.Equal(t, "BTC-USD_2008-01-01_2024-06-28", historyDocID("BTC-USD", historyStart, sessionDate))
}

func TestHistoryDoc_KeepsDecimalPrecision(t *testing.T) {
	in := dailySeries("DOGE-USD", 3, func(i int) float64 { return 0.1 })
	in.Bars[1].Close = decimal.RequireFromString("0.061234567890123")
	in.LoadedAt = time.Date(2024, 6, 28, 9, 30, 0, 0, time.UTC)

	out, err := newHistoryDoc(in).series()
	require.NoError(t, err)
	assert.Equal(t, "0.061234567890123", out.Bars[1].Close.String())
	assert.Equal(t, in.Bars[2].Date, out.Bars[2].Date)
	assert.Equal(t, in.Bars[0].Volume, out.Bars[0].Volume)
	assert.Equal(t, in.Symbol, out.Symbol)
	assert.Equal(t, in.LoadedAt, out.LoadedAt)
}

func TestHistoryDoc_RejectsCorruptPrices(t *testing.T) {
	doc := newHistoryDoc(dailySeries("BTC-USD", 2, rising))
	doc.Bars[1].Close = "n/a"

	_, err := doc.series()
	assert.Error(t, err)
}
