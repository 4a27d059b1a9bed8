// Package schedule converts user-local wall-clock times into absolute UTC
// instants for storage.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimezone indicates the timezone is not a recognized IANA
	// zone identifier.
	ErrInvalidTimezone = errors.New("invalid timezone")
	// ErrInvalidDateTime indicates the date or time is malformed or names a
	// calendar value that does not exist.
	ErrInvalidDateTime = errors.New("invalid date or time")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Normalize interprets the (localDate, localTime) pair as wall-clock time in
// the given IANA timezone and returns the UTC instant it denotes. localDate
// uses the form "2006-01-02" and localTime "15:04". Nonexistent calendar
// values such as "2025-06-31" are rejected with ErrInvalidDateTime.
//
// Daylight-saving gaps and ambiguities resolve to whatever the zone
// conversion yields; no extra disambiguation is applied.
func Normalize(localDate, localTime, timezone string) (time.Time, error) {
	// LoadLocation accepts "" and "Local", neither of which is a concrete
	// IANA zone a schedule should depend on.
	if timezone == "" || timezone == "Local" {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, timezone)
	}

	d, err := time.Parse(dateLayout, localDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidDateTime, localDate)
	}
	clock, err := time.Parse(timeLayout, localTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidDateTime, localTime)
	}

	local := time.Date(
		d.Year(), d.Month(), d.Day(),
		clock.Hour(), clock.Minute(), 0, 0,
		loc,
	)

	return local.UTC(), nil
}
