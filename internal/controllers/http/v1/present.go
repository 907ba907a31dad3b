package http

import (
	"fmt"
	"strconv"
	"time"

	"weather-forecast/internal/models"
	"weather-forecast/internal/services/forecast"
	"weather-forecast/pkg/tzoffset"
)

const (
	dateLayout     = "Jan 2, 2006"
	timeLayout     = "3:04 PM"
	dateTimeLayout = dateLayout + " " + timeLayout
	mapZoom        = 11
)

// ForecastResponse is the list view of the loader's current state
type ForecastResponse struct {
	Status    models.LoadStatus `json:"status" example:"success"`
	Error     string            `json:"error,omitempty" example:"network error (status 404): city not found"`
	Query     string            `json:"query,omitempty" example:"Corvallis,OR,US"`
	LoadID    string            `json:"load_id,omitempty" example:"1f0c6a0e-8a55-4c1b-9c1e-2b4f7f0b6f51"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	City      *CityResponse     `json:"city,omitempty"`
	Periods   []PeriodResponse  `json:"periods"`
}

// CityResponse represents the forecast location
type CityResponse struct {
	Name        string  `json:"name" example:"Corvallis"`
	Lat         float64 `json:"lat" example:"44.5646"`
	Lon         float64 `json:"lon" example:"-123.262"`
	TZOffsetSec int     `json:"tz_offset_sec" example:"-25200"`
	Zone        string  `json:"zone" example:"UTC-07:00"`
}

// PeriodResponse represents one 3-hour forecast period in local time
type PeriodResponse struct {
	Index       int    `json:"index" example:"0"`
	Epoch       int64  `json:"epoch" example:"1753455600"`
	LocalDate   string `json:"local_date" example:"Jul 25, 2025"`
	LocalTime   string `json:"local_time" example:"8:00 AM"`
	HighTemp    int    `json:"high_temp" example:"72"`
	LowTemp     int    `json:"low_temp" example:"61"`
	TempUnit    string `json:"temp_unit" example:"F"`
	Pop         int    `json:"pop" example:"37"`
	CloudCover  int    `json:"cloud_cover" example:"75"`
	WindSpeed   int    `json:"wind_speed" example:"8"`
	SpeedUnit   string `json:"speed_unit" example:"MPH"`
	WindDirDeg  int    `json:"wind_dir_deg" example:"225"`
	Description string `json:"description" example:"light rain"`
	IconURL     string `json:"icon_url" example:"https://openweathermap.org/img/wn/10d@4x.png"`
}

// PeriodDetailResponse is the detail view of one period
type PeriodDetailResponse struct {
	City          CityResponse   `json:"city"`
	Period        PeriodResponse `json:"period"`
	LocalDateTime string         `json:"local_date_time" example:"Jul 25, 2025 8:00 AM UTC-07:00"`
	ShareText     string         `json:"share_text"`
	MapURL        string         `json:"map_url" example:"geo:44.5646,-123.262?z=11"`
}

// MapResponse is a map link for the current forecast city
type MapResponse struct {
	City   CityResponse `json:"city"`
	MapURL string       `json:"map_url" example:"geo:44.5646,-123.262?z=11"`
}

// LoadResponse acknowledges a load that has been started
type LoadResponse struct {
	LoadID     string            `json:"load_id" example:"1f0c6a0e-8a55-4c1b-9c1e-2b4f7f0b6f51"`
	Generation uint64            `json:"generation" example:"3"`
	Status     models.LoadStatus `json:"status" example:"loading"`
	Query      string            `json:"query" example:"Corvallis,OR,US"`
}

type presenter struct {
	appName string
	units   models.Units
}

func (p presenter) forecast(state forecast.State) ForecastResponse {
	resp := ForecastResponse{
		Status:  state.Status,
		Query:   state.Query,
		LoadID:  state.LoadID,
		Periods: []PeriodResponse{},
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}
	if !state.UpdatedAt.IsZero() {
		updated := state.UpdatedAt.UTC()
		resp.UpdatedAt = &updated
	}
	if state.Forecast == nil {
		return resp
	}

	city := p.city(state.Forecast.City)
	resp.City = &city
	for i, period := range state.Forecast.Periods {
		resp.Periods = append(resp.Periods, p.period(i, period, state.Forecast.City.TZOffsetSec))
	}

	return resp
}

func (p presenter) city(c models.ForecastCity) CityResponse {
	return CityResponse{
		Name:        c.Name,
		Lat:         c.Lat,
		Lon:         c.Lon,
		TZOffsetSec: c.TZOffsetSec,
		Zone:        tzoffset.Label(c.TZOffsetSec),
	}
}

func (p presenter) period(index int, period models.ForecastPeriod, tzOffsetSec int) PeriodResponse {
	local := tzoffset.Resolve(period.Epoch, tzOffsetSec)

	return PeriodResponse{
		Index:       index,
		Epoch:       period.Epoch,
		LocalDate:   local.Format(dateLayout),
		LocalTime:   local.Format(timeLayout),
		HighTemp:    period.HighTemp,
		LowTemp:     period.LowTemp,
		TempUnit:    p.units.TempUnit(),
		Pop:         period.Pop,
		CloudCover:  period.CloudCover,
		WindSpeed:   period.WindSpeed,
		SpeedUnit:   p.units.SpeedUnit(),
		WindDirDeg:  period.WindDirDeg,
		Description: period.Description,
		IconURL:     period.IconURL,
	}
}

func (p presenter) detail(index int, period models.ForecastPeriod, c models.ForecastCity) PeriodDetailResponse {
	localDateTime := localDateTime(period.Epoch, c.TZOffsetSec)

	return PeriodDetailResponse{
		City:          p.city(c),
		Period:        p.period(index, period, c.TZOffsetSec),
		LocalDateTime: localDateTime,
		ShareText:     p.shareText(period, c, localDateTime),
		MapURL:        mapURL(c),
	}
}

func (p presenter) shareText(period models.ForecastPeriod, c models.ForecastCity, localDateTime string) string {
	return fmt.Sprintf(
		"%s forecast for %s at %s: high %d°%s, low %d°%s, %d%% chance of precipitation, %s",
		p.appName,
		c.Name,
		localDateTime,
		period.HighTemp, p.units.TempUnit(),
		period.LowTemp, p.units.TempUnit(),
		period.Pop,
		period.Description,
	)
}

func localDateTime(epoch int64, tzOffsetSec int) string {
	return tzoffset.Resolve(epoch, tzOffsetSec).Format(dateTimeLayout) + " " + tzoffset.Label(tzOffsetSec)
}

func mapURL(c models.ForecastCity) string {
	return fmt.Sprintf("geo:%s,%s?z=%d", coordinate(c.Lat), coordinate(c.Lon), mapZoom)
}

// coordinate never uses exponent notation, which geo URIs do not allow.
func coordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
