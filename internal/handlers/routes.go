package handlers

import "github.com/gofiber/fiber/v2"

// SetupRoutes mounts the page, chart frames, API and health endpoints.
func SetupRoutes(app *fiber.App, forecast *ForecastHandler, health *HealthHandler) {
	app.Get("/", forecast.Index)
	app.Get("/charts/:render/:instrument/:kind", forecast.Chart)

	app.Get("/health", health.Health)
	app.Get("/health/ready", health.Ready)

	// API v1 routes
	v1 := app.Group("/v1")
	v1.Get("/forecast", forecast.GetForecast)
	v1.Get("/tickers/:symbol", forecast.GetTickerData)
	v1.Post("/admin/refresh", forecast.RefreshCache)
}
