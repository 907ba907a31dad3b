package models

import (
	"fmt"
	"strings"
)

// LoadStatus is the state of a forecast loader.
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusSuccess LoadStatus = "success"
	StatusError   LoadStatus = "error"
)

// Terminal reports whether the status ends a single load.
func (s LoadStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// Units selects the unit system the provider answers in.
type Units string

const (
	UnitsStandard Units = "standard"
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// ParseUnits accepts the provider tokens case-insensitively.
func ParseUnits(s string) (Units, error) {
	switch u := Units(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitsStandard, UnitsMetric, UnitsImperial:
		return u, nil
	default:
		return "", fmt.Errorf("unknown units %q: expected standard, metric or imperial", s)
	}
}

// TempUnit is the label temperatures are displayed with.
func (u Units) TempUnit() string {
	switch u {
	case UnitsImperial:
		return "F"
	case UnitsMetric:
		return "C"
	default:
		return "K"
	}
}

// SpeedUnit is the label wind speeds are displayed with.
func (u Units) SpeedUnit() string {
	if u == UnitsImperial {
		return "MPH"
	}
	return "m/s"
}
