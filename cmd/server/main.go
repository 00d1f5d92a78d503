package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"stock-forecast-app/internal/config"
	"stock-forecast-app/internal/handlers"
	"stock-forecast-app/internal/logging"
	"stock-forecast-app/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.Environment)

	// Initialize services
	marketDataService := services.NewMarketDataService(cfg, log)
	store, err := services.OpenHistoryStore(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Warn("History store unavailable, downloads will not persist")
	}
	if store != nil {
		defer store.Close()
		marketDataService.WithStore(store)
	}
	forecastService := services.NewForecastService(log)
	renderStore := services.NewRenderStore(cfg.RenderHistory)
	forecastOrchestrator := services.NewForecastOrchestrator(marketDataService, forecastService, renderStore, log)

	// Initialize handlers
	forecastHandler := handlers.NewForecastHandler(forecastOrchestrator, log)
	healthHandler := handlers.NewHealthHandler(marketDataService, renderStore)

	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "Stock-Forecast",
		AppName:       "Stock Forecast App",
		ReadTimeout:   time.Second * 10,
		// a cold render downloads two full histories
		WriteTimeout: time.Minute * 3,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: handlers.CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: log.Writer(),
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	}))

	handlers.SetupRoutes(app, forecastHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	go listen(app, ":"+cfg.Port, log, quit)

	log.WithFields(logrus.Fields{
		"port":          cfg.Port,
		"environment":   cfg.Environment,
		"history_start": cfg.HistoryStart.Format("2006-01-02"),
		"session_date":  cfg.SessionDate.Format("2006-01-02"),
		"sources":       marketDataService.Stats().Sources,
	}).Info("Stock Forecast App started")

	// Wait for interrupt signal or listener failure
	<-quit

	log.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server shutdown complete")
}

// listen serves until the app shuts down. A listener failure is reported on quit
// so main still runs its deferred cleanup.
func listen(app *fiber.App, addr string, log *logrus.Logger, quit chan<- os.Signal) {
	if err := app.Listen(addr); err != nil {
		log.WithError(err).WithField("addr", addr).Error("Failed to start server")
		select {
		case quit <- syscall.SIGTERM:
		default:
		}
	}
}
