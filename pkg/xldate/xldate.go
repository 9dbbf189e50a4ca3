// Package xldate converts spreadsheet serial day numbers to times.
//
// Serial numbers count days from 1899-12-30. Using that base instead of
// 1900-01-01 absorbs the fictitious 1900-02-29 of the 1900 date system for
// every serial from 61 onward.
package xldate

import (
	"errors"
	"math"
	"time"
)

// Epoch is day zero of the 1900 date system.
var Epoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

const microsPerDay = 86400 * 1e6

var (
	// ErrNotFinite is returned for NaN or infinite serials.
	ErrNotFinite = errors.New("xldate: serial is not a finite number")
	// ErrOutOfRange is returned when the result falls outside years 1..9999.
	ErrOutOfRange = errors.New("xldate: serial out of range")
)

var (
	minTime = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	maxTime = time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC)
)

// FromSerial converts a serial day number to a UTC time. The fractional part is
// the time of day, rounded to the microsecond.
func FromSerial(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return time.Time{}, ErrNotFinite
	}
	// Anything this large is far past year 9999 and would overflow below.
	if math.Abs(serial) > 4e6 {
		return time.Time{}, ErrOutOfRange
	}

	micros := int64(math.Round(serial * microsPerDay))
	days := micros / microsPerDay
	rem := micros % microsPerDay
	if rem < 0 {
		rem += microsPerDay
		days--
	}

	t := Epoch.AddDate(0, 0, int(days)).Add(time.Duration(rem) * time.Microsecond)
	if t.Before(minTime) || t.After(maxTime) {
		return time.Time{}, ErrOutOfRange
	}
	return t, nil
}
