package models

import "fmt"

// ForecastCity is the location a forecast was issued for.
type ForecastCity struct {
	Name        string  `json:"name" example:"Corvallis"`
	Lat         float64 `json:"lat" example:"44.5646"`
	Lon         float64 `json:"lon" example:"-123.262"`
	TZOffsetSec int     `json:"tz_offset_sec" example:"-25200"`
}

// ForecastPeriod is one 3-hour forecast slot.
type ForecastPeriod struct {
	Epoch       int64  `json:"epoch" example:"1753455600"`
	HighTemp    int    `json:"high_temp" example:"72"`
	LowTemp     int    `json:"low_temp" example:"58"`
	Pop         int    `json:"pop" example:"37"`
	CloudCover  int    `json:"cloud_cover" example:"40"`
	WindSpeed   int    `json:"wind_speed" example:"8"`
	WindDirDeg  int    `json:"wind_dir_deg" example:"270"`
	Description string `json:"description" example:"light rain"`
	IconURL     string `json:"icon_url" example:"https://openweathermap.org/img/wn/10d@4x.png"`
}

// FiveDayForecast is one normalized provider response. Periods keep provider order, which is
// chronological.
type FiveDayForecast struct {
	Periods []ForecastPeriod `json:"periods"`
	City    ForecastCity     `json:"city"`
}

// Period returns the period at index, or false when the index is out of range.
func (f *FiveDayForecast) Period(index int) (ForecastPeriod, bool) {
	if f == nil || index < 0 || index >= len(f.Periods) {
		return ForecastPeriod{}, false
	}
	return f.Periods[index], true
}

func (c ForecastCity) String() string {
	return fmt.Sprintf("%s (lat: %.4f lon: %.4f tz: %d)", c.Name, c.Lat, c.Lon, c.TZOffsetSec)
}
