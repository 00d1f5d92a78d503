package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceBar is one daily OHLC record.
type PriceBar struct {
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// PriceSeries is the historical series of a single ticker, ordered by date ascending.
type PriceSeries struct {
	Symbol   string     `json:"symbol"`
	Source   string     `json:"source"` // "yahoo" or "alphavantage"
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Bars     []PriceBar `json:"bars"`
	LoadedAt time.Time  `json:"loadedAt"`
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// FirstDate returns the earliest bar date, or the zero time for an empty series.
func (s *PriceSeries) FirstDate() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Bars[0].Date
}

// LastDate returns the latest bar date, or the zero time for an empty series.
func (s *PriceSeries) LastDate() time.Time {
	if s.Len() == 0 {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// ForecastPoint is one day of a forecast. Actual is set on days with an observed close.
type ForecastPoint struct {
	Date      time.Time `json:"ds"`
	Predicted float64   `json:"yhat"`
	Lower     float64   `json:"yhat_lower"`
	Upper     float64   `json:"yhat_upper"`
	Trend     float64   `json:"trend"`
	Seasonal  float64   `json:"additive_terms"`
	Weekly    float64   `json:"weekly"`
	Yearly    float64   `json:"yearly"`
	Actual    *float64  `json:"y,omitempty"`
}

// ForecastResult covers every calendar day from the first observed date through
// the last observed date plus HorizonDays.
type ForecastResult struct {
	Symbol      string          `json:"symbol"`
	HorizonDays int             `json:"horizonDays"`
	Points      []ForecastPoint `json:"points"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

// Dates returns the forecast dates in order.
func (r *ForecastResult) Dates() []time.Time {
	dates := make([]time.Time, len(r.Points))
	for i, p := range r.Points {
		dates[i] = p.Date
	}
	return dates
}

// Decomposition holds the fitted components of a forecast. Weekly is indexed by
// time.Weekday and Yearly by day of year minus one; either is nil when that
// seasonality was not fitted.
type Decomposition struct {
	Dates  []time.Time `json:"dates"`
	Trend  []float64   `json:"trend"`
	Weekly []float64   `json:"weekly,omitempty"`
	Yearly []float64   `json:"yearly,omitempty"`
}

// Selection is the state of the selection widgets for one render pass.
type Selection struct {
	Crypto string `json:"crypto" query:"crypto"`
	Stock  string `json:"stock" query:"stock"`
	Years  int    `json:"years" query:"years"`
}

// HorizonDays converts the selected number of years into forecast days.
func (s Selection) HorizonDays() int {
	return s.Years * DaysPerYear
}

// InstrumentKind tells the stock and crypto pipelines apart.
type InstrumentKind string

const (
	KindStock  InstrumentKind = "stock"
	KindCrypto InstrumentKind = "crypto"
)

// InstrumentView is the outcome of one instrument's pipeline. Err is set when the
// pipeline stopped early; the fields after the failing step are nil.
type InstrumentView struct {
	Kind          InstrumentKind  `json:"kind"`
	Symbol        string          `json:"symbol"`
	Series        *PriceSeries    `json:"series,omitempty"`
	Forecast      *ForecastResult `json:"forecast,omitempty"`
	Decomposition *Decomposition  `json:"decomposition,omitempty"`
	Err           error           `json:"-"`
	Error         string          `json:"error,omitempty"`
}

// Failed reports whether the pipeline stopped with an error.
func (v *InstrumentView) Failed() bool {
	return v.Err != nil
}

// Fail records err as the reason the pipeline stopped.
func (v *InstrumentView) Fail(err error) {
	v.Err = err
	v.Error = err.Error()
}

// ViewModel is everything the presentation layer needs for one render pass.
type ViewModel struct {
	RenderID    string         `json:"renderId"`
	Selection   Selection      `json:"selection"`
	HorizonDays int            `json:"horizonDays"`
	Stock       InstrumentView `json:"stock"`
	Crypto      InstrumentView `json:"crypto"`
	RenderedAt  time.Time      `json:"renderedAt"`
}

// Instrument returns the view for the given kind.
func (vm *ViewModel) Instrument(kind InstrumentKind) (*InstrumentView, bool) {
	switch kind {
	case KindStock:
		return &vm.Stock, true
	case KindCrypto:
		return &vm.Crypto, true
	default:
		return nil, false
	}
}

// ErrorResponse represents API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
