package ics

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// calendarText joins lines with CRLF as mandated by RFC 5545.
func calendarText(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//davcal//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func TestParseObjectSingleEvent(t *testing.T) {
	body := calendarText(
		"BEGIN:VEVENT",
		"UID:meeting-1",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240105T100000Z",
		"DTEND:20240105T113000Z",
		"SUMMARY:Planning",
		"LOCATION:Room 2",
		"DESCRIPTION:Quarterly planning",
		"CLASS:PRIVATE",
		"TRANSP:OPAQUE",
		"SEQUENCE:3",
		"END:VEVENT",
	)

	ev, err := ParseObject(body)
	require.NoError(t, err)

	assert.Equal(t, "meeting-1", ev.UID)
	assert.Empty(t, ev.Overrides)
	assert.Equal(t, "Planning", ev.Master.Summary)
	assert.Equal(t, "Room 2", ev.Master.Location)
	assert.Equal(t, "Quarterly planning", ev.Master.Description)
	assert.Equal(t, "PRIVATE", ev.Master.Class)
	assert.Equal(t, "OPAQUE", ev.Master.Transp)
	assert.Equal(t, 3, ev.Master.Seq)
	assert.False(t, ev.Master.AllDay)
	assert.True(t, ev.Master.Start.Equal(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)))
	assert.True(t, ev.Master.End.Equal(time.Date(2024, 1, 5, 11, 30, 0, 0, time.UTC)))
}

func TestParseObjectAllDayWithoutEnd(t *testing.T) {
	body := calendarText(
		"BEGIN:VEVENT",
		"UID:holiday",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;VALUE=DATE:20240501",
		"SUMMARY:Labour day",
		"END:VEVENT",
	)

	ev, err := ParseObject(body)
	require.NoError(t, err)

	assert.True(t, ev.Master.AllDay)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ev.Master.Start)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), ev.Master.End)
}

func TestParseObjectTZIDAndDuration(t *testing.T) {
	body := calendarText(
		"BEGIN:VEVENT",
		"UID:tz-event",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;TZID=Europe/Madrid:20240301T090000",
		"DURATION:PT45M",
		"END:VEVENT",
	)

	ev, err := ParseObject(body)
	require.NoError(t, err)

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Madrid", ev.Master.StartTZ)
	assert.True(t, ev.Master.Start.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, madrid)))
	assert.Equal(t, 45*time.Minute, ev.Master.End.Sub(ev.Master.Start))
}

func TestParseObjectWindowsTZID(t *testing.T) {
	body := calendarText(
		"BEGIN:VTIMEZONE",
		"TZID:W. Europe Standard Time",
		"BEGIN:STANDARD",
		"DTSTART:16010101T030000",
		"TZOFFSETFROM:+0200",
		"TZOFFSETTO:+0100",
		"RRULE:FREQ=YEARLY;BYDAY=-1SU;BYMONTH=10",
		"END:STANDARD",
		"BEGIN:DAYLIGHT",
		"DTSTART:16010101T020000",
		"TZOFFSETFROM:+0100",
		"TZOFFSETTO:+0200",
		"RRULE:FREQ=YEARLY;BYDAY=-1SU;BYMONTH=3",
		"END:DAYLIGHT",
		"END:VTIMEZONE",
		"BEGIN:VEVENT",
		"UID:win",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;TZID=W. Europe Standard Time:20240105T100000",
		"DTEND;TZID=W. Europe Standard Time:20240105T110000",
		"SUMMARY:Exchange meeting",
		"END:VEVENT",
	)

	ev, err := ParseObject(body)
	require.NoError(t, err)

	assert.Equal(t, "win", ev.UID)
	assert.Equal(t, "W. Europe Standard Time", ev.Master.StartTZ)
	assert.True(t, ev.Master.Start.Equal(time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)))
	assert.True(t, ev.Master.End.Equal(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)))
}

func TestParseObjectUnknownTZIDWithoutVTimezone(t *testing.T) {
	body := calendarText(
		"BEGIN:VEVENT",
		"UID:nozone",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;TZID=Custom Zone:20240105T100000",
		"END:VEVENT",
	)

	ev, err := ParseObject(body)
	require.NoError(t, err)
	assert.True(t, ev.Master.Start.Equal(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)))
}

func TestParseUTCOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "+0100", want: 3600},
		{in: "-0530", want: -(5*3600 + 30*60)},
		{in: "+013015", want: 3600 + 30*60 + 15},
		{in: "0100", wantErr: true},
		{in: "+1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseUTCOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObjectGroupsOverrides(t *testing.T) {
	body := calendarText(
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTAMP:20240101T000000Z",
		"DTSTART:20240101T090000Z",
		"DTEND:20240101T100000Z",
		"RRULE:FREQ=WEEKLY;COUNT=4",
		"EXDATE:20240115T090000Z",
		"SUMMARY:Standup",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:weekly",
		"DTSTAMP:20240101T000000Z",
		"RECURRENCE-ID:20240108T090000Z",
		"DTSTART:20240108T110000Z",
		"DTEND:20240108T120000Z",
		"SUMMARY:Standup (moved)",
		"END:VEVENT",
	)

	ev, err := ParseObject(body)
	require.NoError(t, err)

	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", ev.Master.RawRRule)
	require.Len(t, ev.Master.ExDates, 1)
	assert.True(t, ev.Master.ExDates[0].Equal(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)))
	require.Len(t, ev.Overrides, 1)
	assert.True(t, ev.Overrides[0].IsOverride)
	assert.True(t, ev.Overrides[0].Recurrence.Equal(time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)))
}

func TestParseObjectErrors(t *testing.T) {
	_, err := ParseObject(nil)
	assert.Error(t, err)

	_, err = ParseObject(calendarText(
		"BEGIN:VTODO",
		"UID:todo",
		"DTSTAMP:20240101T000000Z",
		"END:VTODO",
	))
	assert.ErrorIs(t, err, ErrNoEvent)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "PT1H30M", want: 90 * time.Minute},
		{in: "P1D", want: 24 * time.Hour},
		{in: "P1DT12H", want: 36 * time.Hour},
		{in: "-P2W", want: -14 * 24 * time.Hour},
		{in: "PT15S", want: 15 * time.Second},
		{in: "1H", wantErr: true},
		{in: "P1H", wantErr: true},
		{in: "PT", wantErr: true},
		{in: "P5", wantErr: true},
		{in: "PT99999999999999999999H", wantErr: true},
		{in: "P999999999W", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
