package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("HISTORY_START", "")
	t.Setenv("FETCH_TIMEOUT_SECONDS", "")
	t.Setenv("RENDER_HISTORY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Date(2008, 1, 1, 0, 0, 0, 0, time.UTC), cfg.HistoryStart)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 8, cfg.RenderHistory)
	assert.Equal(t, 0, cfg.SessionDate.Hour())
	assert.Equal(t, time.UTC, cfg.SessionDate.Location())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HISTORY_START", "2015-06-01")
	t.Setenv("ALPHA_VANTAGE_KEY", "demo")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "demo", cfg.AlphaVantageKey)
	assert.Equal(t, 2015, cfg.HistoryStart.Year())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad date", "HISTORY_START", "01/01/2008"},
		{"future start", "HISTORY_START", "2999-01-01"},
		{"bad timeout", "FETCH_TIMEOUT_SECONDS", "soon"},
		{"zero timeout", "FETCH_TIMEOUT_SECONDS", "0"},
		{"zero history", "RENDER_HISTORY", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
