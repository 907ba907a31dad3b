package repositories

import (
	"context"

	"weather-forecast/config"
	"weather-forecast/internal/models"
	"weather-forecast/pkg/observe"
)

type ForecastSource interface {
	Name() string
	FetchForecast(ctx context.Context, query string, units models.Units) (*models.FiveDayForecast, error)
}

// InitForecastSource builds the OpenWeather repository and wraps it in a rate limiter
// when the configuration asks for one.
func InitForecastSource(cfg *config.Config, l *observe.Logger) (ForecastSource, error) {
	repo, err := NewOpenWeatherRepository(
		cfg.OpenWeather.BaseURL,
		cfg.OpenWeather.APIKey,
		cfg.OpenWeatherTimeout(),
		l,
	)
	if err != nil {
		return nil, err
	}

	if cfg.OpenWeather.RateLimit.RPS <= 0 {
		return repo, nil
	}

	return NewRateLimitedForecastSource(repo, cfg.OpenWeather.RateLimit.RPS, cfg.OpenWeather.RateLimit.Burst), nil
}
