package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"weather-forecast/internal/models"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error" example:"no forecast loaded"`
}

const errNoForecast = "no forecast loaded"

// GetForecast godoc
// @Summary Get current forecast
// @Description Returns the loader status together with the latest forecast, if any
// @Tags Forecast
// @Produce json
// @Success 200 {object} ForecastResponse "Current loader state"
// @Router /forecast [get]
func (r *routes) handleGetForecast(c *fiber.Ctx) error {
	return c.JSON(r.present.forecast(r.loader.Current()))
}

// LoadForecast godoc
// @Summary Start a forecast load
// @Description Starts fetching the forecast for a location. The status switches to loading immediately.
// @Tags Forecast
// @Produce json
// @Param q query string false "Location query, e.g. City,Region,CountryCode (default: configured query)" example(Corvallis,OR,US)
// @Success 202 {object} LoadResponse "Load started"
// @Router /forecast/load [post]
// @Example {curl} Example usage:
//
//	curl -X POST "http://localhost:8080/forecast/load?q=Bend,OR,US"
func (r *routes) handleLoadForecast(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		query = r.defaultQuery
	}

	task := r.loader.LoadForecast(c.UserContext(), query)

	r.l.Debug("forecast load requested", map[string]any{
		"load_id": task.LoadID,
		"query":   query,
	})

	return c.Status(fiber.StatusAccepted).JSON(LoadResponse{
		LoadID:     task.LoadID,
		Generation: task.Generation,
		Status:     models.StatusLoading,
		Query:      query,
	})
}

// GetForecastPeriod godoc
// @Summary Get one forecast period
// @Description Detail view of a period with local date and time, share text and map link
// @Tags Forecast
// @Produce json
// @Param index path integer true "Period index, starting at 0" minimum(0) example(0)
// @Success 200 {object} PeriodDetailResponse "Period detail"
// @Failure 400 {object} ErrorResponse "Bad request - invalid index"
// @Failure 404 {object} ErrorResponse "No period at that index"
// @Failure 409 {object} ErrorResponse "No forecast loaded"
// @Router /forecast/periods/{index} [get]
func (r *routes) handleGetPeriod(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Invalid period index format",
		})
	}

	f := r.loader.Current().Forecast
	if f == nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: errNoForecast})
	}

	period, ok := f.Period(index)
	if !ok {
		msg := "Forecast has no periods"
		if len(f.Periods) > 0 {
			msg = "Period index must be between 0 and " + strconv.Itoa(len(f.Periods)-1)
		}
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: msg})
	}

	return c.JSON(r.present.detail(index, period, f.City))
}

// GetForecastMap godoc
// @Summary Get a map link for the forecast city
// @Tags Forecast
// @Produce json
// @Success 200 {object} MapResponse "Map link"
// @Failure 409 {object} ErrorResponse "No forecast loaded"
// @Router /forecast/map [get]
func (r *routes) handleGetMap(c *fiber.Ctx) error {
	f := r.loader.Current().Forecast
	if f == nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: errNoForecast})
	}

	return c.JSON(MapResponse{
		City:   r.present.city(f.City),
		MapURL: mapURL(f.City),
	})
}
