package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stock-forecast-app/internal/models"
)

const baseURL = "https://www.alphavantage.co/query"

type Client struct {
	BaseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the provider in series metadata and logs.
func (c *Client) Name() string { return "alphavantage" }

// Configured reports whether an API key was supplied.
func (c *Client) Configured() bool { return c.apiKey != "" }

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type DailySeriesResponse struct {
	MetaData struct {
		Symbol        string `json:"2. Symbol"`
		LastRefreshed string `json:"3. Last Refreshed"`
	} `json:"Meta Data"`
	TimeSeries   map[string]dailyBar `json:"Time Series (Daily)"`
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
}

// GetHistory downloads the full daily series for symbol and keeps the bars between
// start and end, inclusive.
func (c *Client) GetHistory(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("alpha vantage not configured")
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", symbol)
	q.Set("outputsize", "full")
	q.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alpha vantage returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var seriesResp DailySeriesResponse
	if err := json.Unmarshal(body, &seriesResp); err != nil {
		return nil, err
	}

	switch {
	case seriesResp.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage error: %s", seriesResp.ErrorMessage)
	case seriesResp.Note != "":
		return nil, fmt.Errorf("alpha vantage throttled: %s", seriesResp.Note)
	case seriesResp.Information != "":
		return nil, fmt.Errorf("alpha vantage: %s", seriesResp.Information)
	case len(seriesResp.TimeSeries) == 0:
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	bars := make([]models.PriceBar, 0, len(seriesResp.TimeSeries))
	for day, raw := range seriesResp.TimeSeries {
		bar, err := parseBar(day, raw)
		if err != nil {
			return nil, fmt.Errorf("parse bar %s: %w", day, err)
		}
		bars = append(bars, bar)
	}

	bars = models.ClipBars(models.NormalizeBars(bars), start, end)
	if len(bars) == 0 {
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	return &models.PriceSeries{
		Symbol:   symbol,
		Source:   c.Name(),
		Start:    start,
		End:      end,
		Bars:     bars,
		LoadedAt: time.Now(),
	}, nil
}

func parseBar(day string, raw dailyBar) (models.PriceBar, error) {
	date, err := time.Parse("2006-01-02", day)
	if err != nil {
		return models.PriceBar{}, err
	}
	open, err := decimal.NewFromString(raw.Open)
	if err != nil {
		return models.PriceBar{}, err
	}
	high, err := decimal.NewFromString(raw.High)
	if err != nil {
		return models.PriceBar{}, err
	}
	low, err := decimal.NewFromString(raw.Low)
	if err != nil {
		return models.PriceBar{}, err
	}
	closePrice, err := decimal.NewFromString(raw.Close)
	if err != nil {
		return models.PriceBar{}, err
	}
	volume, _ := strconv.ParseInt(raw.Volume, 10, 64)

	return models.PriceBar{
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
