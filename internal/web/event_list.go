package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"davcal/internal/caldav"
	"davcal/internal/dateutil"
	"davcal/internal/fullcalendar"
	appLog "davcal/internal/log"
	"davcal/internal/transform"
)

// listEvents returns every event instance of a calendar within a range.
//
// GET /api/events?calendar=...&start=2024-01-01&end=2024-02-01&timezone=Europe/Madrid
type listEvents struct {
	client CalDAVClient
}

func (a *listEvents) validateInput(in url.Values) bool {
	return requireFields(in, "calendar", "start", "end", "timezone")
}

func (a *listEvents) execute(ctx context.Context, in url.Values, hdr http.Header) (any, error) {
	cal := caldav.NewCalendar(in.Get("calendar"), nil)
	loc, err := dateutil.LoadTimezone(in.Get("timezone"))
	if err != nil {
		return nil, err
	}
	start, err := dateutil.ParseFullCalendarDate(in.Get("start"), loc)
	if err != nil {
		return nil, &inputError{err: err}
	}
	end, err := dateutil.ParseFullCalendarDate(in.Get("end"), loc)
	if err != nil {
		return nil, &inputError{err: err}
	}
	if !end.After(start) {
		return nil, &inputError{err: errors.New("end must be after start")}
	}

	fetchStart := time.Now()
	objs, err := a.client.FetchObjectsInRange(ctx, cal, start, end)
	fetchTime := time.Since(fetchStart)
	if err != nil {
		return nil, err
	}

	parseStart := time.Now()
	events := buildFullCalendarEvents(cal, objs, start, end)
	parseTime := time.Since(parseStart)

	addPerformanceHeaders(hdr, fetchTime, parseTime)

	return transform.Collection(transform.NewManager(transform.PlainSerializer{}), events, fullcalendar.NewTransformer(loc)), nil
}

// buildFullCalendarEvents expands every object within [start, end). Objects
// that cannot be parsed or expanded are logged and skipped.
func buildFullCalendarEvents(cal *caldav.Calendar, objs []*caldav.CalendarObject, start, end time.Time) []*fullcalendar.Event {
	out := make([]*fullcalendar.Event, 0, len(objs))
	for _, obj := range objs {
		ev, err := obj.Event()
		if err != nil {
			appLog.Error("calendar object skipped", err, "href", obj.URL)
			continue
		}
		instances, err := ev.Expand(start, end)
		if err != nil {
			appLog.Error("calendar object skipped", err, "href", obj.URL, "uid", ev.UID)
			continue
		}
		out = append(out, fullcalendar.GenerateFrom(obj, cal, instances)...)
	}
	return out
}
