package caldav

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	dav "github.com/emersion/go-webdav/caldav"

	"davcal/internal/config"
	appLog "davcal/internal/log"
)

// ErrNotFound is returned when the requested calendar object does not exist.
var ErrNotFound = errors.New("caldav: object not found")

// davClient is the subset of the go-webdav CalDAV client used here.
type davClient interface {
	FindCurrentUserPrincipal(ctx context.Context) (string, error)
	FindCalendarHomeSet(ctx context.Context, principal string) (string, error)
	FindCalendars(ctx context.Context, calendarHomeSet string) ([]dav.Calendar, error)
	QueryCalendar(ctx context.Context, calendar string, query *dav.CalendarQuery) ([]dav.CalendarObject, error)
}

// Client talks to the configured CalDAV server.
type Client struct {
	dav     davClient
	baseURL string
}

// NewClient builds a client for cfg.BaseURL, authenticating with HTTP Basic
// Auth when a username is configured.
func NewClient(cfg config.CalDAVConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("caldav: base URL is empty")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	var hc webdav.HTTPClient = &http.Client{Timeout: timeout}
	if cfg.Username != "" {
		hc = webdav.HTTPClientWithBasicAuth(hc, cfg.Username, cfg.Password)
	}

	c, err := dav.NewClient(hc, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("caldav: new client: %w", err)
	}
	return newClientWith(c, cfg.BaseURL), nil
}

func newClientWith(d davClient, baseURL string) *Client {
	return &Client{dav: d, baseURL: baseURL}
}

// FetchObjectByUID runs a calendar-query on cal matching the VEVENT UID.
// It returns an error wrapping ErrNotFound when nothing matches.
func (c *Client) FetchObjectByUID(ctx context.Context, cal *Calendar, uid string) (*CalendarObject, error) {
	query := &dav.CalendarQuery{
		CompRequest: fullCompRequest(),
		CompFilter: dav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []dav.CompFilter{{
				Name: ical.CompEvent,
				Props: []dav.PropFilter{{
					Name:      ical.PropUID,
					TextMatch: &dav.TextMatch{Text: uid},
				}},
			}},
		},
	}

	appLog.Debug("caldav fetch by uid", "calendar", redactURL(cal.URL), "uid", uid)

	objs, err := c.dav.QueryCalendar(ctx, cal.URL, query)
	if err != nil {
		return nil, fmt.Errorf("caldav: query %s for uid %q: %w", redactURL(cal.URL), uid, err)
	}
	if len(objs) == 0 {
		return nil, fmt.Errorf("uid %q in %s: %w", uid, redactURL(cal.URL), ErrNotFound)
	}

	// text-match is a substring match; only the exact UID identifies the object.
	for i := range objs {
		if objectUID(&objs[i]) == uid {
			return toCalendarObject(&objs[i])
		}
	}
	return nil, fmt.Errorf("uid %q in %s (%d partial matches): %w", uid, redactURL(cal.URL), len(objs), ErrNotFound)
}

// FetchObjectsInRange returns every event object in cal overlapping
// [start, end).
func (c *Client) FetchObjectsInRange(ctx context.Context, cal *Calendar, start, end time.Time) ([]*CalendarObject, error) {
	query := &dav.CalendarQuery{
		CompRequest: fullCompRequest(),
		CompFilter: dav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []dav.CompFilter{{
				Name:  ical.CompEvent,
				Start: start.UTC(),
				End:   end.UTC(),
			}},
		},
	}

	objs, err := c.dav.QueryCalendar(ctx, cal.URL, query)
	if err != nil {
		return nil, fmt.Errorf("caldav: query %s: %w", redactURL(cal.URL), err)
	}

	out := make([]*CalendarObject, 0, len(objs))
	for i := range objs {
		obj, err := toCalendarObject(&objs[i])
		if err != nil {
			appLog.Error("caldav object skipped", err, "path", objs[i].Path)
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

// FetchCalendars discovers the calendars of the authenticated principal:
// current-user-principal, then calendar-home-set, then the collections.
func (c *Client) FetchCalendars(ctx context.Context) ([]*Calendar, error) {
	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("caldav: find principal on %s: %w", redactURL(c.baseURL), err)
	}
	home, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("caldav: find calendar home set for %s: %w", principal, err)
	}
	cals, err := c.dav.FindCalendars(ctx, home)
	if err != nil {
		return nil, fmt.Errorf("caldav: list calendars in %s: %w", home, err)
	}

	out := make([]*Calendar, 0, len(cals))
	for _, dc := range cals {
		props := map[string]string{DisplayName: dc.Name}
		if dc.Description != "" {
			props[Description] = dc.Description
		}
		out = append(out, NewCalendar(dc.Path, props))
	}

	appLog.Info("caldav calendars discovered", "principal", principal, "count", len(out))
	return out, nil
}

func fullCompRequest() dav.CalendarCompRequest {
	return dav.CalendarCompRequest{
		Name:     ical.CompCalendar,
		AllProps: true,
		AllComps: true,
	}
}

func objectUID(o *dav.CalendarObject) string {
	if o.Data == nil {
		return ""
	}
	for _, ev := range o.Data.Events() {
		if uid, err := ev.Props.Text(ical.PropUID); err == nil && uid != "" {
			return uid
		}
	}
	return ""
}

// toCalendarObject re-encodes the decoded calendar so the object keeps its
// raw iCalendar text.
func toCalendarObject(o *dav.CalendarObject) (*CalendarObject, error) {
	if o.Data == nil {
		return nil, fmt.Errorf("caldav: object %s has no calendar data", o.Path)
	}
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(o.Data); err != nil {
		return nil, fmt.Errorf("caldav: encode object %s: %w", o.Path, err)
	}
	return &CalendarObject{
		URL:  o.Path,
		ETag: o.ETag,
		Data: buf.Bytes(),
	}, nil
}

// redactURL hides everything after the host of a URL for logging purposes.
// Paths without a scheme are returned untouched.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return u
	}
	rest := u[i+3:]
	j := strings.IndexByte(rest, '/')
	if j == -1 {
		return u
	}
	return u[:i+3+j] + redactedSuffix
}
