package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"stock-forecast-app/internal/config"
	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/models"
)

const historyCollection = "price_histories"

// HistoryStore persists downloaded price histories so a restart within the same
// session day does not download them again.
type HistoryStore interface {
	Get(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, bool, error)
	Put(ctx context.Context, start, end time.Time, series *models.PriceSeries) error
	Close() error
}

// OpenHistoryStore returns the Firestore store when a project is configured, and
// nil otherwise.
func OpenHistoryStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (HistoryStore, error) {
	if cfg.FirestoreProject == "" {
		return nil, nil
	}
	store, err := NewFirestoreHistoryStore(ctx, cfg.FirestoreProject, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// FirestoreHistoryStore keeps one document per ticker and date range.
type FirestoreHistoryStore struct {
	client *firestore.Client
	log    *logrus.Entry
}

// NewFirestoreHistoryStore connects to the given project using ambient credentials.
func NewFirestoreHistoryStore(ctx context.Context, projectID string, logger *logrus.Logger) (*FirestoreHistoryStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return &FirestoreHistoryStore{
		client: client,
		log:    logging.Component(logger, "history_store").WithField("project", projectID),
	}, nil
}

func (s *FirestoreHistoryStore) Get(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, bool, error) {
	snap, err := s.client.Collection(historyCollection).Doc(historyDocID(symbol, start, end)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s history: %w", symbol, err)
	}

	var doc historyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, fmt.Errorf("decode %s history: %w", symbol, err)
	}
	series, err := doc.series()
	if err != nil {
		return nil, false, fmt.Errorf("decode %s history: %w", symbol, err)
	}
	return series, true, nil
}

func (s *FirestoreHistoryStore) Put(ctx context.Context, start, end time.Time, series *models.PriceSeries) error {
	id := historyDocID(series.Symbol, start, end)
	if _, err := s.client.Collection(historyCollection).Doc(id).Set(ctx, newHistoryDoc(series)); err != nil {
		return fmt.Errorf("store %s history: %w", series.Symbol, err)
	}
	s.log.WithFields(logrus.Fields{"symbol": series.Symbol, "bars": series.Len()}).Debug("Stored price history")
	return nil
}

func (s *FirestoreHistoryStore) Close() error {
	return s.client.Close()
}

// historyDocID names a document after the ticker and the range it covers.
func historyDocID(symbol string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s", symbol, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

// Prices are stored as strings so no precision is lost.
type barDoc struct {
	Date   time.Time `firestore:"date"`
	Open   string    `firestore:"open"`
	High   string    `firestore:"high"`
	Low    string    `firestore:"low"`
	Close  string    `firestore:"close"`
	Volume int64     `firestore:"volume"`
}

type historyDoc struct {
	Symbol   string    `firestore:"symbol"`
	Source   string    `firestore:"source"`
	Start    time.Time `firestore:"start"`
	End      time.Time `firestore:"end"`
	LoadedAt time.Time `firestore:"loadedAt"`
	Bars     []barDoc  `firestore:"bars"`
}

func newHistoryDoc(series *models.PriceSeries) historyDoc {
	doc := historyDoc{
		Symbol:   series.Symbol,
		Source:   series.Source,
		Start:    series.Start,
		End:      series.End,
		LoadedAt: series.LoadedAt,
		Bars:     make([]barDoc, len(series.Bars)),
	}
	for i, b := range series.Bars {
		doc.Bars[i] = barDoc{
			Date:   b.Date,
			Open:   b.Open.String(),
			High:   b.High.String(),
			Low:    b.Low.String(),
			Close:  b.Close.String(),
			Volume: b.Volume,
		}
	}
	return doc
}

func (d historyDoc) series() (*models.PriceSeries, error) {
	bars := make([]models.PriceBar, len(d.Bars))
	for i, b := range d.Bars {
		var prices [4]decimal.Decimal
		for j, raw := range [4]string{b.Open, b.High, b.Low, b.Close} {
			p, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("bar %s: %w", b.Date.Format("2006-01-02"), err)
			}
			prices[j] = p
		}
		bars[i] = models.PriceBar{
			Date:   b.Date.UTC(),
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
			Volume: b.Volume,
		}
	}
	return &models.PriceSeries{
		Symbol:   d.Symbol,
		Source:   d.Source,
		Start:    d.Start.UTC(),
		End:      d.End.UTC(),
		LoadedAt: d.LoadedAt.UTC(),
		Bars:     bars,
	}, nil
}
