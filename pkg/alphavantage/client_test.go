package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dailyPayload = `{
	"Meta Data": {"2. Symbol": "MSFT", "3. Last Refreshed": "2024-01-05"},
	"Time Series (Daily)": {
		"2024-01-05": {"1. open": "368.97", "2. high": "372.06", "3. low": "366.50", "4. close": "367.75", "5. volume": "20987003"},
		"2024-01-03": {"1. open": "369.01", "2. high": "373.26", "3. low": "368.51", "4. close": "370.60", "5. volume": "23083465"},
		"2024-01-04": {"1. open": "370.67", "2. high": "373.10", "3. low": "367.17", "4. close": "367.94", "5. volume": "20901501"},
		"2023-12-29": {"1. open": "376.00", "2. high": "377.16", "3. low": "373.48", "4. close": "376.04", "5. volume": "18730176"}
	}
}`

func newTestClient(t *testing.T, key string, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(key, 5*time.Second)
	c.BaseURL = srv.URL
	return c
}

func TestGetHistory_ParsesDailySeries(t *testing.T) {
	var function, outputSize string
	c := newTestClient(t, "demo", func(w http.ResponseWriter, r *http.Request) {
		function = r.URL.Query().Get("function")
		outputSize = r.URL.Query().Get("outputsize")
		_, _ = w.Write([]byte(dailyPayload))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	series, err := c.GetHistory(context.Background(), "MSFT", start, end)
	require.NoError(t, err)

	assert.Equal(t, "TIME_SERIES_DAILY", function)
	assert.Equal(t, "full", outputSize)
	assert.Equal(t, "alphavantage", series.Source)

	// 2023-12-29 is before start
	require.Len(t, series.Bars, 3)
	assert.Equal(t, 3, series.Bars[0].Date.Day())
	assert.Equal(t, 5, series.Bars[2].Date.Day())
	assert.Equal(t, "370.6", series.Bars[0].Close.String())
	assert.Equal(t, int64(23083465), series.Bars[0].Volume)
}

func TestGetHistory_NotConfigured(t *testing.T) {
	c := NewClient("", time.Second)
	assert.False(t, c.Configured())

	_, err := c.GetHistory(context.Background(), "MSFT", time.Now().AddDate(-1, 0, 0), time.Now())
	assert.Error(t, err)
}

func TestGetHistory_APIErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid symbol", `{"Error Message": "Invalid API call."}`},
		{"rate limited", `{"Note": "Thank you for using Alpha Vantage!"}`},
		{"information", `{"Information": "premium endpoint"}`},
		{"empty series", `{"Meta Data": {}, "Time Series (Daily)": {}}`},
		{"bad number", `{"Time Series (Daily)": {"2024-01-05": {"1. open": "x", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "demo", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.GetHistory(context.Background(), "ZZZZ", time.Now().AddDate(-30, 0, 0), time.Now())
			assert.Error(t, err)
		})
	}
}
