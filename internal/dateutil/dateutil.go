// Package dateutil resolves user supplied timezones and dates.
package dateutil

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA database for hosts without zoneinfo
)

// InvalidTimezoneError is returned when a timezone name is not a known IANA
// zone.
type InvalidTimezoneError struct {
	Name string
	Err  error
}

func (e *InvalidTimezoneError) Error() string {
	return fmt.Sprintf("invalid timezone %q", e.Name)
}

func (e *InvalidTimezoneError) Unwrap() error { return e.Err }

// LoadTimezone resolves an IANA timezone name. Empty names and "Local" are
// rejected: the server's own zone is meaningless to a browser client.
func LoadTimezone(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "Local" {
		return nil, &InvalidTimezoneError{Name: name}
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, &InvalidTimezoneError{Name: name, Err: err}
	}
	return loc, nil
}

// fullCalendarLayouts are the date formats FullCalendar sends as range
// boundaries, depending on its version and the view.
var fullCalendarLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
}

// ParseFullCalendarDate parses a range boundary. Values with an explicit
// offset are honoured; the others are interpreted in loc.
func ParseFullCalendarDate(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	for _, layout := range fullCalendarLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", v)
}
