package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "davcal/internal/log"
)

// ErrNoEvent is returned when a calendar object carries no VEVENT.
var ErrNoEvent = errors.New("ics: calendar object has no VEVENT")

// ParsedEvent is the normalized representation of a single VEVENT.
type ParsedEvent struct {
	UID string
	Seq int

	Summary     string
	Description string
	Location    string
	Class       string
	Transp      string

	Start   time.Time
	End     time.Time
	AllDay  bool
	StartTZ string
	EndTZ   string

	RawRRule   string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID (if present) in event's own timezone
	IsOverride bool       // true if this VEVENT is an override for a recurring instance
}

// Event groups every VEVENT of a calendar object sharing one UID: the master
// definition and the overrides for single occurrences.
type Event struct {
	UID       string
	Master    ParsedEvent
	Overrides []ParsedEvent
}

// ParseObject parses the iCalendar text of a single CalDAV calendar object.
//
// Components with a UID other than the first one found are ignored, as a
// CalDAV object resource holds exactly one event.
func ParseObject(body []byte) (*Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("ics: empty calendar object")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse calendar: %w", err)
	}

	var (
		ev        Event
		hasMaster bool
		found     bool
	)
	zones := vtimezoneLocations(cal)
	for _, comp := range cal.Events() {
		pe, perr := parseVEvent(comp, zones)
		if perr != nil {
			appLog.Warn("ics vevent skipped", "err", perr)
			continue
		}
		if !found {
			ev.UID = pe.UID
			found = true
		}
		if pe.UID != ev.UID {
			appLog.Debug("ics vevent with foreign UID ignored", "uid", pe.UID, "object_uid", ev.UID)
			continue
		}
		if pe.IsOverride {
			ev.Overrides = append(ev.Overrides, pe)
			continue
		}
		if !hasMaster {
			ev.Master = pe
			hasMaster = true
		}
	}

	if !found {
		return nil, ErrNoEvent
	}
	if !hasMaster {
		// Orphan overrides only: the first one stands in for the master.
		ev.Master = ev.Overrides[0]
		ev.Master.IsOverride = false
		ev.Overrides = ev.Overrides[1:]
	}

	return &ev, nil
}

func parseVEvent(ve *ical.VEvent, zones map[string]*time.Location) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if seqProp := ve.GetProperty(ical.ComponentPropertySequence); seqProp != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(seqProp.Value)); err == nil {
			out.Seq = n
		}
	}

	out.Summary = propValue(ve, ical.ComponentPropertySummary)
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)
	out.Class = propValue(ve, ical.ComponentPropertyClass)
	out.Transp = propValue(ve, ical.ComponentPropertyTransp)

	dtStartProp := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStartProp == nil || dtStartProp.Value == "" {
		return out, fmt.Errorf("event %s: missing DTSTART", out.UID)
	}

	// VALUE=DATE or no 'T' in the value -> all-day
	if strings.EqualFold(firstParam(dtStartProp, "VALUE"), "DATE") || !strings.Contains(dtStartProp.Value, "T") {
		out.AllDay = true
	}
	out.StartTZ = firstParam(dtStartProp, "TZID")

	if out.AllDay {
		start, err := parseDate(dtStartProp.Value)
		if err != nil {
			return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
		}
		out.Start = start
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			start, err = parseZonedFallback(dtStartProp, zones)
		}
		if err != nil {
			return out, fmt.Errorf("event %s: DTSTART: %w", out.UID, err)
		}
		out.Start = start
	}

	end, err := parseEnd(ve, out, zones)
	if err != nil {
		return out, fmt.Errorf("event %s: %w", out.UID, err)
	}
	out.End = end
	if dtEndProp := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEndProp != nil {
		out.EndTZ = firstParam(dtEndProp, "TZID")
	}

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	// EXDATE can appear multiple times, each with a comma separated list.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		loc := locationFor(firstParam(p, "TZID"), out.Start.Location())
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part, loc); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if ridProp := ve.GetProperty("RECURRENCE-ID"); ridProp != nil {
		loc := locationFor(firstParam(ridProp, "TZID"), out.Start.Location())
		if t, err := parseICSTime(ridProp.Value, loc); err == nil {
			out.Recurrence = &t
			out.IsOverride = true
		}
	}

	return out, nil
}

// parseEnd resolves DTEND, falling back to DURATION and then to the
// RFC 5545 defaults (one day for all-day events, zero length otherwise).
func parseEnd(ve *ical.VEvent, ev ParsedEvent, zones map[string]*time.Location) (time.Time, error) {
	if dtEndProp := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEndProp != nil && dtEndProp.Value != "" {
		if ev.AllDay {
			end, err := parseDate(dtEndProp.Value)
			if err != nil {
				return time.Time{}, fmt.Errorf("DTEND: %w", err)
			}
			return end, nil
		}
		end, err := ve.GetEndAt()
		if err != nil {
			end, err = parseZonedFallback(dtEndProp, zones)
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("DTEND: %w", err)
		}
		return end, nil
	}

	if durProp := ve.GetProperty("DURATION"); durProp != nil && durProp.Value != "" {
		d, err := parseDuration(durProp.Value)
		if err != nil {
			return time.Time{}, fmt.Errorf("DURATION: %w", err)
		}
		return ev.Start.Add(d), nil
	}

	if ev.AllDay {
		return ev.Start.AddDate(0, 0, 1), nil
	}
	return ev.Start, nil
}

// vtimezoneLocations maps the TZIDs of in-object VTIMEZONEs to a fixed zone
// at their STANDARD offset. Only TZIDs unknown to the zone database end up
// being looked up here (Outlook names such as "W. Europe Standard Time").
func vtimezoneLocations(cal *ical.Calendar) map[string]*time.Location {
	zones := make(map[string]*time.Location)
	for _, tz := range cal.Timezones() {
		tzidProp := tz.GetProperty(ical.ComponentPropertyTzid)
		if tzidProp == nil || tzidProp.Value == "" {
			continue
		}
		for _, sub := range tz.SubComponents() {
			std, ok := sub.(*ical.Standard)
			if !ok {
				continue
			}
			offProp := std.GetProperty(ical.ComponentProperty(ical.PropertyTzoffsetto))
			if offProp == nil {
				continue
			}
			offset, err := parseUTCOffset(offProp.Value)
			if err != nil {
				appLog.Debug("ics vtimezone offset ignored", "tzid", tzidProp.Value, "err", err)
				continue
			}
			zones[tzidProp.Value] = time.FixedZone(tzidProp.Value, offset)
			break
		}
	}
	return zones
}

// parseZonedFallback parses a DATE-TIME whose TZID the zone database
// rejected, using the object's VTIMEZONE offset or UTC.
func parseZonedFallback(p *ical.IANAProperty, zones map[string]*time.Location) (time.Time, error) {
	tzid := firstParam(p, "TZID")
	loc, ok := zones[tzid]
	if !ok {
		loc = time.UTC
	}
	appLog.Warn("ics unknown TZID, using fallback zone", "tzid", tzid, "zone", loc.String())
	return parseICSTime(p.Value, loc)
}

// parseUTCOffset parses a utc-offset value such as "+0100" or "-023000"
// into seconds east of UTC.
func parseUTCOffset(v string) (int, error) {
	v = strings.TrimSpace(v)
	if len(v) != 5 && len(v) != 7 {
		return 0, fmt.Errorf("invalid utc-offset %q", v)
	}
	sign := 1
	switch v[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, fmt.Errorf("invalid utc-offset %q", v)
	}
	fields := []string{v[1:3], v[3:5]}
	if len(v) == 7 {
		fields = append(fields, v[5:7])
	}
	secs := 0
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return 0, fmt.Errorf("invalid utc-offset %q: %w", v, err)
		}
		secs += n * []int{3600, 60, 1}[i]
	}
	return sign * secs, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

func firstParam(p *ical.IANAProperty, name string) string {
	if p == nil || p.ICalParameters == nil {
		return ""
	}
	if vs, ok := p.ICalParameters[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func locationFor(tzid string, fallback *time.Location) *time.Location {
	if tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			return loc
		}
	}
	if fallback == nil {
		return time.UTC
	}
	return fallback
}

// parseDate parses a DATE value. All-day dates are floating, so they are
// anchored to UTC and must never be converted to another zone.
func parseDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) > 8 {
		v = v[:8]
	}
	return time.ParseInLocation("20060102", v, time.UTC)
}

// parseICSTime parses a DATE or DATE-TIME value used by EXDATE and
// RECURRENCE-ID. Floating values are interpreted in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	return parseDate(v)
}

// parseDuration parses an RFC 5545 dur-value such as "PT1H30M", "P1D" or
// "-P2W".
func parseDuration(v string) (time.Duration, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 3 {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	s = s[1:]

	var (
		total  time.Duration
		inTime bool
		num    strings.Builder
	)
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num.WriteRune(r)
			continue
		case r == 'T':
			inTime = true
			continue
		}
		if num.Len() == 0 {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", v, err)
		}
		num.Reset()

		var unit time.Duration
		switch {
		case r == 'W' && !inTime:
			unit = 7 * 24 * time.Hour
		case r == 'D' && !inTime:
			unit = 24 * time.Hour
		case r == 'H' && inTime:
			unit = time.Hour
		case r == 'M' && inTime:
			unit = time.Minute
		case r == 'S' && inTime:
			unit = time.Second
		default:
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		step := time.Duration(n) * unit
		if step/unit != time.Duration(n) || total+step < total {
			return 0, fmt.Errorf("duration %q overflows", v)
		}
		total += step
	}
	if num.Len() > 0 {
		return 0, fmt.Errorf("invalid duration %q", v)
	}

	if neg {
		total = -total
	}
	return total, nil
}
