package http

import (
	"context"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"weather-forecast/config"
	"weather-forecast/internal/services/forecast"
	"weather-forecast/pkg/observe"
)

const swaggerDocPath = "docs/swagger.json"

type ForecastLoader interface {
	LoadForecast(ctx context.Context, query string) *forecast.Task
	Current() forecast.State
}

type routes struct {
	loader       ForecastLoader
	present      presenter
	defaultQuery string
	l            *observe.Logger
}

func NewRouter(
	app *fiber.App,
	loader ForecastLoader,
	cnf *config.Config,
	l *observe.Logger,
) {
	r := &routes{
		loader: loader,
		present: presenter{
			appName: cnf.App.Name,
			units:   cnf.Units(),
		},
		defaultQuery: cnf.OpenWeather.DefaultQuery,
		l:            l,
	}

	// Swagger documentation
	app.Get("/swagger/doc.json", func(c *fiber.Ctx) error {
		swaggerData, err := os.ReadFile(swaggerDocPath)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "Failed to read Swagger documentation"})
		}

		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(swaggerData)
	})

	app.Get("/swagger/*", swagger.New(swagger.Config{
		URL:         "/swagger/doc.json",
		DeepLinking: true,
	}))

	// API routes
	app.Get("/forecast", r.handleGetForecast)
	app.Post("/forecast/load", r.handleLoadForecast)
	app.Get("/forecast/map", r.handleGetMap)
	app.Get("/forecast/periods/:index", r.handleGetPeriod)
}
