package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"weather-forecast/internal/models"
)

const iconURLTemplate = "https://openweathermap.org/img/wn/%s@4x.png"

// OpenWeatherForecastResponse is the subset of the 5 day / 3 hour forecast payload we consume.
// Every field is a pointer so a missing key can be told apart from a zero value. Slices are
// nil only when the key is missing or null.
type OpenWeatherForecastResponse struct {
	List []OpenWeatherListItem `json:"list"`
	City *OpenWeatherCity      `json:"city"`
}

type OpenWeatherListItem struct {
	Dt      *int64                 `json:"dt"`
	Pop     *float64               `json:"pop"`
	Main    *OpenWeatherMain       `json:"main"`
	Clouds  *OpenWeatherClouds     `json:"clouds"`
	Wind    *OpenWeatherWind       `json:"wind"`
	Weather []OpenWeatherCondition `json:"weather"`
}

type OpenWeatherMain struct {
	TempMin *float64 `json:"temp_min"`
	TempMax *float64 `json:"temp_max"`
}

type OpenWeatherClouds struct {
	All *int `json:"all"`
}

type OpenWeatherWind struct {
	Speed *float64 `json:"speed"`
	Deg   *int     `json:"deg"`
}

type OpenWeatherCondition struct {
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

type OpenWeatherCity struct {
	Name     *string           `json:"name"`
	Coord    *OpenWeatherCoord `json:"coord"`
	Timezone *int              `json:"timezone"`
}

type OpenWeatherCoord struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// ParseForecast decodes and normalizes a raw forecast body. Syntax errors, wrongly typed
// fields and missing fields all come back as *models.MalformedResponseError.
func ParseForecast(body []byte) (*models.FiveDayForecast, error) {
	var raw OpenWeatherForecastResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, malformed("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return nil, malformed("invalid JSON: %v", err)
	}

	return NormalizeForecast(raw)
}

// NormalizeForecast maps the raw payload onto the domain model, one period per list entry,
// in provider order. An empty list is not an error here; a nil one is.
func NormalizeForecast(raw OpenWeatherForecastResponse) (*models.FiveDayForecast, error) {
	if raw.List == nil {
		return nil, malformed("list is missing")
	}

	city, err := normalizeCity(raw.City)
	if err != nil {
		return nil, err
	}

	periods := make([]models.ForecastPeriod, 0, len(raw.List))
	for i, item := range raw.List {
		period, err := normalizePeriod(item)
		if err != nil {
			var m *models.MalformedResponseError
			if errors.As(err, &m) {
				return nil, malformed("list[%d].%s", i, m.Reason)
			}
			return nil, err
		}
		periods = append(periods, period)
	}

	return &models.FiveDayForecast{
		Periods: periods,
		City:    city,
	}, nil
}

func normalizeCity(raw *OpenWeatherCity) (models.ForecastCity, error) {
	switch {
	case raw == nil:
		return models.ForecastCity{}, malformed("city is missing")
	case raw.Name == nil:
		return models.ForecastCity{}, malformed("city.name is missing")
	case raw.Coord == nil || raw.Coord.Lat == nil || raw.Coord.Lon == nil:
		return models.ForecastCity{}, malformed("city.coord is missing")
	case raw.Timezone == nil:
		return models.ForecastCity{}, malformed("city.timezone is missing")
	}

	return models.ForecastCity{
		Name:        *raw.Name,
		Lat:         *raw.Coord.Lat,
		Lon:         *raw.Coord.Lon,
		TZOffsetSec: *raw.Timezone,
	}, nil
}

func normalizePeriod(item OpenWeatherListItem) (models.ForecastPeriod, error) {
	switch {
	case item.Dt == nil:
		return models.ForecastPeriod{}, malformed("dt is missing")
	case item.Pop == nil:
		return models.ForecastPeriod{}, malformed("pop is missing")
	case item.Main == nil || item.Main.TempMax == nil || item.Main.TempMin == nil:
		return models.ForecastPeriod{}, malformed("main is missing")
	case item.Clouds == nil || item.Clouds.All == nil:
		return models.ForecastPeriod{}, malformed("clouds is missing")
	case item.Wind == nil || item.Wind.Speed == nil || item.Wind.Deg == nil:
		return models.ForecastPeriod{}, malformed("wind is missing")
	case len(item.Weather) == 0:
		return models.ForecastPeriod{}, malformed("weather is missing")
	case item.Weather[0].Description == nil || item.Weather[0].Icon == nil:
		return models.ForecastPeriod{}, malformed("weather[0] is incomplete")
	}

	return models.ForecastPeriod{
		Epoch:       *item.Dt,
		HighTemp:    truncate(*item.Main.TempMax),
		LowTemp:     truncate(*item.Main.TempMin),
		Pop:         truncate(*item.Pop * 100),
		CloudCover:  *item.Clouds.All,
		WindSpeed:   truncate(*item.Wind.Speed),
		WindDirDeg:  *item.Wind.Deg,
		Description: *item.Weather[0].Description,
		IconURL:     IconURL(*item.Weather[0].Icon),
	}, nil
}

// IconURL expands a provider icon code, e.g. "10d".
func IconURL(code string) string {
	return fmt.Sprintf(iconURLTemplate, code)
}

// truncate drops the fraction toward zero: 72.9 is 72, -3.9 is -3.
func truncate(v float64) int {
	return int(math.Trunc(v))
}

func malformed(format string, args ...any) error {
	return &models.MalformedResponseError{Reason: fmt.Sprintf(format, args...)}
}
