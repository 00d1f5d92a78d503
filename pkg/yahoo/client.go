package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"stock-forecast-app/internal/models"
)

const baseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

type Client struct {
	BaseURL    string
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name identifies the provider in series metadata and logs.
func (c *Client) Name() string { return "yahoo" }

type YahooResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// chartError is decoded on its own because Yahoo sends it with non-200 statuses.
type chartError struct {
	Chart struct {
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetHistory downloads daily bars for symbol between start and end, inclusive.
func (c *Client) GetHistory(ctx context.Context, symbol string, start, end time.Time) (*models.PriceSeries, error) {
	q := url.Values{}
	q.Set("period1", fmt.Sprintf("%d", start.Unix()))
	// period2 is exclusive on Yahoo's side.
	q.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))
	q.Set("interval", "1d")
	q.Set("events", "history")
	u := fmt.Sprintf("%s/%s?%s", c.BaseURL, url.PathEscape(symbol), q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var apiErr chartError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", apiErr.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo finance returned status %d", resp.StatusCode)
	}

	var yahooResp YahooResponse
	if err := json.Unmarshal(body, &yahooResp); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if len(yahooResp.Chart.Result) == 0 || len(yahooResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no data returned for symbol %s", symbol)
	}

	result := yahooResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]models.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		closePrice := at(quote.Close, i)
		if closePrice == nil {
			continue // holidays and halted sessions come back as nulls
		}
		cl := decimal.NewFromFloat(*closePrice)
		bars = append(bars, models.PriceBar{
			Date:   time.Unix(ts+result.Meta.GMTOffset, 0).UTC(),
			Open:   orDefault(at(quote.Open, i), cl),
			High:   orDefault(at(quote.High, i), cl),
			Low:    orDefault(at(quote.Low, i), cl),
			Close:  cl,
			Volume: volumeAt(quote.Volume, i),
		})
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

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func orDefault(v *float64, def decimal.Decimal) decimal.Decimal {
	if v == nil {
		return def
	}
	return decimal.NewFromFloat(*v)
}

func volumeAt(values []*int64, i int) int64 {
	if i >= len(values) || values[i] == nil {
		return 0
	}
	return *values[i]
}
