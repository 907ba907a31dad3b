package repositories

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"weather-forecast/internal/models"
)

// RateLimitedForecastSource keeps a ForecastSource under the provider's request quota.
type RateLimitedForecastSource struct {
	source  ForecastSource
	limiter *rate.Limiter
	name    string
}

// NewRateLimitedForecastSource allows rps requests per second (fractional values are fine)
// with bursts of up to burst requests.
func NewRateLimitedForecastSource(source ForecastSource, rps float64, burst int) *RateLimitedForecastSource {
	return &RateLimitedForecastSource{
		source:  source,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    fmt.Sprintf("%s [rate limited]", source.Name()),
	}
}

func (r *RateLimitedForecastSource) FetchForecast(
	ctx context.Context,
	query string,
	units models.Units,
) (*models.FiveDayForecast, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &models.NetworkError{Message: "rate limit wait canceled: " + err.Error()}
	}

	return r.source.FetchForecast(ctx, query, units)
}

func (r *RateLimitedForecastSource) Name() string {
	return r.name
}

var (
	_ ForecastSource = (*RateLimitedForecastSource)(nil)
	_ ForecastSource = (*OpenWeatherRepository)(nil)
)
