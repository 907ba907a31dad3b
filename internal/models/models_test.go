package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnits(t *testing.T) {
	u, err := ParseUnits("Imperial")
	require.NoError(t, err)
	assert.Equal(t, UnitsImperial, u)

	u, err = ParseUnits(" metric ")
	require.NoError(t, err)
	assert.Equal(t, UnitsMetric, u)

	_, err = ParseUnits("kelvin")
	assert.Error(t, err)
}

func TestUnitsLabels(t *testing.T) {
	assert.Equal(t, "F", UnitsImperial.TempUnit())
	assert.Equal(t, "MPH", UnitsImperial.SpeedUnit())
	assert.Equal(t, "C", UnitsMetric.TempUnit())
	assert.Equal(t, "m/s", UnitsMetric.SpeedUnit())
	assert.Equal(t, "K", UnitsStandard.TempUnit())
}

func TestLoadStatus_Terminal(t *testing.T) {
	assert.False(t, StatusIdle.Terminal())
	assert.False(t, StatusLoading.Terminal())
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusError.Terminal())
}

func TestFiveDayForecast_Period(t *testing.T) {
	f := &FiveDayForecast{Periods: []ForecastPeriod{{Epoch: 1}, {Epoch: 2}}}

	p, ok := f.Period(1)
	assert.True(t, ok)
	assert.Equal(t, int64(2), p.Epoch)

	_, ok = f.Period(2)
	assert.False(t, ok)

	_, ok = f.Period(-1)
	assert.False(t, ok)

	var missing *FiveDayForecast
	_, ok = missing.Period(0)
	assert.False(t, ok)
}

func TestForecastCity_String(t *testing.T) {
	c := ForecastCity{Name: "Corvallis", Lat: 44.5646, Lon: -123.262, TZOffsetSec: -25200}
	assert.Equal(t, "Corvallis (lat: 44.5646 lon: -123.2620 tz: -25200)", c.String())
}

func TestErrors(t *testing.T) {
	err := fmt.Errorf("fetch: %w", &NetworkError{Message: "401 Unauthorized", StatusCode: 401})

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, 401, netErr.StatusCode)
	assert.Equal(t, "network error (status 401): 401 Unauthorized", netErr.Error())

	assert.Equal(t, "network error: dial tcp: timeout", (&NetworkError{Message: "dial tcp: timeout"}).Error())
	assert.Equal(t, "malformed response: list[0].weather is empty", (&MalformedResponseError{Reason: "list[0].weather is empty"}).Error())
}
