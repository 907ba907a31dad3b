package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weather-forecast/config"
	"weather-forecast/internal/models"
)

type countingSource struct {
	calls int
}

func (c *countingSource) Name() string { return "counting" }

func (c *countingSource) FetchForecast(context.Context, string, models.Units) (*models.FiveDayForecast, error) {
	c.calls++
	return &models.FiveDayForecast{City: models.ForecastCity{Name: "Corvallis"}}, nil
}

func TestRateLimitedForecastSource_Name(t *testing.T) {
	limited := NewRateLimitedForecastSource(&countingSource{}, 1, 1)
	assert.Equal(t, "counting [rate limited]", limited.Name())
}

func TestRateLimitedForecastSource_ForwardsWithinBurst(t *testing.T) {
	source := &countingSource{}
	limited := NewRateLimitedForecastSource(source, 1, 3)

	for i := 0; i < 3; i++ {
		forecast, err := limited.FetchForecast(context.Background(), "Corvallis,OR,US", models.UnitsImperial)
		require.NoError(t, err)
		assert.Equal(t, "Corvallis", forecast.City.Name)
	}
	assert.Equal(t, 3, source.calls)
}

func TestRateLimitedForecastSource_WaitCanceled(t *testing.T) {
	source := &countingSource{}
	// one token per minute, already spent by the first call
	limited := NewRateLimitedForecastSource(source, 1.0/60, 1)

	_, err := limited.FetchForecast(context.Background(), "Corvallis,OR,US", models.UnitsImperial)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = limited.FetchForecast(ctx, "Corvallis,OR,US", models.UnitsImperial)
	var netErr *models.NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.Contains(t, netErr.Message, "rate limit wait canceled")
	assert.Zero(t, netErr.StatusCode)
	assert.Equal(t, 1, source.calls)
}

func TestInitForecastSource(t *testing.T) {
	cfg := config.Default()
	cfg.OpenWeather.APIKey = "test-key"

	source, err := InitForecastSource(&cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "openweather [rate limited]", source.Name())

	cfg.OpenWeather.RateLimit.RPS = 0
	source, err = InitForecastSource(&cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenWeatherRepository{}, source)

	cfg.OpenWeather.APIKey = ""
	_, err = InitForecastSource(&cfg, nil)
	assert.Error(t, err)
}
