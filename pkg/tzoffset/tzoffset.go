// Package tzoffset turns the raw UTC offsets reported by OpenWeather into local wall-clock time.
//
// The provider only sends a signed offset in seconds for a city, never a zone identifier, so
// no tz database lookup is involved: the instant is shifted by the offset and carried in a
// fixed zone named after the canonical UTC±HH:MM form of that offset.
package tzoffset

import (
	"fmt"
	"time"
)

const labelFormat = "UTC%s%02d:%02d"

// Resolve returns the wall-clock time a resident at tzOffsetSec would observe at epochSec.
// The result never depends on the host's local zone.
func Resolve(epochSec int64, tzOffsetSec int) time.Time {
	return time.Unix(epochSec, 0).In(Zone(tzOffsetSec))
}

// Zone builds the fixed zone for an offset. Seconds below a whole minute are dropped, the
// same as a UTC±HH:MM offset would drop them.
func Zone(tzOffsetSec int) *time.Location {
	hours, minutes := split(tzOffsetSec)
	offset := hours*3600 + minutes*60
	if tzOffsetSec < 0 {
		offset = hours*3600 - minutes*60
	}
	return time.FixedZone(Label(tzOffsetSec), offset)
}

// Label formats an offset as UTC±HH:MM. The sign belongs to the hour component only; the
// minutes are always taken from the absolute offset.
func Label(tzOffsetSec int) string {
	hours, minutes := split(tzOffsetSec)

	sign := "+"
	if tzOffsetSec < 0 {
		sign = "-"
		hours = -hours
	}

	return fmt.Sprintf(labelFormat, sign, hours, minutes)
}

func split(tzOffsetSec int) (hours, minutes int) {
	hours = tzOffsetSec / 3600
	minutes = (abs(tzOffsetSec) % 3600) / 60
	return hours, minutes
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
