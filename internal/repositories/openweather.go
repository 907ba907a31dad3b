package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"weather-forecast/internal/models"
	"weather-forecast/pkg/observe"
)

const (
	OpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	forecastEndpoint   = "/forecast"
	defaultTimeout     = 30 * time.Second
	userAgent          = "weather-forecast/1.0"
)

// OpenWeatherRepository fetches the 5 day / 3 hour forecast. Every call is a single attempt.
type OpenWeatherRepository struct {
	client *resty.Client
	apiKey string
	l      *observe.Logger
}

// NewOpenWeatherRepository rejects an empty API key. An empty baseURL means OpenWeatherBaseURL
// and a non-positive timeout means defaultTimeout.
func NewOpenWeatherRepository(
	baseURL, apiKey string,
	timeout time.Duration,
	l *observe.Logger,
) (*OpenWeatherRepository, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = OpenWeatherBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if l == nil {
		l = observe.NewNopLogger()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout).
		SetRetryCount(0)

	// the request URL carries the API key, so only the query and outcome are logged
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		l.Info("making openweather API request", map[string]any{
			"query": req.QueryParam.Get("q"),
			"units": req.QueryParam.Get("units"),
		})
		return nil
	})

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		l.Info("received openweather API response", map[string]any{
			"status":   resp.StatusCode(),
			"duration": resp.Time().String(),
			"bytes":    len(resp.Body()),
		})
		return nil
	})

	return &OpenWeatherRepository{
		client: client,
		apiKey: apiKey,
		l:      l,
	}, nil
}

func (o *OpenWeatherRepository) Name() string {
	return "openweather"
}

// FetchForecast requests GET {base}/forecast?q=&units=&appid=. Transport failures and non-2xx
// statuses are *models.NetworkError; bodies that do not normalize are *models.MalformedResponseError.
func (o *OpenWeatherRepository) FetchForecast(
	ctx context.Context,
	query string,
	units models.Units,
) (*models.FiveDayForecast, error) {
	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"units": string(units),
			"appid": o.apiKey,
		}).
		Get(forecastEndpoint)
	if err != nil {
		return nil, &models.NetworkError{Message: transportMessage(err)}
	}

	if !resp.IsSuccess() {
		return nil, &models.NetworkError{
			Message:    providerMessage(resp),
			StatusCode: resp.StatusCode(),
		}
	}

	forecast, err := ParseForecast(resp.Body())
	if err != nil {
		o.l.Warning("openweather response did not normalize", map[string]any{
			"query": query,
			"error": err.Error(),
		})
		return nil, err
	}

	o.l.Debug("normalized openweather forecast", map[string]any{
		"city":    forecast.City.Name,
		"periods": len(forecast.Periods),
	})

	return forecast, nil
}

type openWeatherErrorBody struct {
	Message string `json:"message"`
}

// providerMessage prefers the provider's own explanation, e.g. "city not found".
func providerMessage(resp *resty.Response) string {
	var body openWeatherErrorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return body.Message
	}
	return resp.Status()
}

// transportMessage strips the request URL, which would otherwise leak the API key.
func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}
