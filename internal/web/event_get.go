package web

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"davcal/internal/caldav"
	"davcal/internal/dateutil"
	"davcal/internal/fullcalendar"
	"davcal/internal/model"
	"davcal/internal/transform"
)

// getEvent returns a single event by UID, as its master instance.
//
// GET /api/event?calendar=/calendars/alice/work/&uid=...&timezone=Europe/Madrid
type getEvent struct {
	client CalDAVClient
}

func (a *getEvent) validateInput(in url.Values) bool {
	return requireFields(in, "calendar", "uid", "timezone")
}

func (a *getEvent) execute(ctx context.Context, in url.Values, hdr http.Header) (any, error) {
	cal := caldav.NewCalendar(in.Get("calendar"), nil)
	loc, err := dateutil.LoadTimezone(in.Get("timezone"))
	if err != nil {
		return nil, err
	}
	uid := in.Get("uid")

	fetchStart := time.Now()
	obj, err := a.client.FetchObjectByUID(ctx, cal, uid)
	fetchTime := time.Since(fetchStart)
	if err != nil {
		return nil, err
	}

	parseStart := time.Now()
	ev, err := buildFullCalendarEvent(cal, obj)
	parseTime := time.Since(parseStart)
	if err != nil {
		return nil, err
	}

	addPerformanceHeaders(hdr, fetchTime, parseTime)

	return transform.Item(transform.NewManager(transform.PlainSerializer{}), ev, fullcalendar.NewTransformer(loc)), nil
}

// buildFullCalendarEvent uses only the master instance; recurrences are not
// expanded here.
func buildFullCalendarEvent(cal *caldav.Calendar, obj *caldav.CalendarObject) (*fullcalendar.Event, error) {
	master, err := obj.Event()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", obj.URL, err)
	}
	events := fullcalendar.GenerateFrom(obj, cal, []model.Instance{master.BaseInstance()})
	return events[0], nil
}
