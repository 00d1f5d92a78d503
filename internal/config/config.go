package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	AlphaVantageKey string
	// FirestoreProject enables the persistent history store when set.
	FirestoreProject string
	HistoryStart     time.Time
	SessionDate      time.Time
	FetchTimeout     time.Duration
	RenderHistory    int
}

// Load reads an optional .env file and then the process environment.
// SessionDate is fixed here, once, so the history range is constant for the session.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	start, err := time.Parse(dateLayout, getEnv("HISTORY_START", "2008-01-01"))
	if err != nil {
		return nil, fmt.Errorf("HISTORY_START: %w", err)
	}
	timeout, err := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "30"))
	if err != nil {
		return nil, fmt.Errorf("FETCH_TIMEOUT_SECONDS: %w", err)
	}
	history, err := strconv.Atoi(getEnv("RENDER_HISTORY", "8"))
	if err != nil {
		return nil, fmt.Errorf("RENDER_HISTORY: %w", err)
	}

	now := time.Now().UTC()
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "production"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		AlphaVantageKey:  getEnv("ALPHA_VANTAGE_KEY", ""),
		FirestoreProject: getEnv("FIRESTORE_PROJECT_ID", ""),
		HistoryStart:     start,
		SessionDate:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		FetchTimeout:     time.Duration(timeout) * time.Second,
		RenderHistory:    history,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if !c.HistoryStart.Before(c.SessionDate) {
		return fmt.Errorf("HISTORY_START %s must be before %s",
			c.HistoryStart.Format(dateLayout), c.SessionDate.Format(dateLayout))
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.RenderHistory < 1 {
		return fmt.Errorf("RENDER_HISTORY must be at least 1")
	}
	return nil
}

// IsDevelopment reports whether the app runs in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
