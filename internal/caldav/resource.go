package caldav

import (
	"sync"

	"davcal/internal/ics"
)

// Well-known namespaced calendar properties.
const (
	DisplayName = "{DAV:}displayname"
	Color       = "{http://apple.com/ns/ical/}calendar-color"
	Description = "{urn:ietf:params:xml:ns:caldav}calendar-description"
)

// Calendar is a calendar collection on the CalDAV server, addressed by its
// URL, with a set of namespaced properties.
type Calendar struct {
	URL   string
	props map[string]string
}

// NewCalendar creates a calendar resource. props may be nil.
func NewCalendar(url string, props map[string]string) *Calendar {
	c := &Calendar{URL: url, props: make(map[string]string, len(props))}
	for k, v := range props {
		c.props[k] = v
	}
	return c
}

// Property returns the value of a property, or "" when unset.
func (c *Calendar) Property(name string) string {
	return c.props[name]
}

func (c *Calendar) SetProperty(name, value string) {
	if c.props == nil {
		c.props = make(map[string]string)
	}
	c.props[name] = value
}

// Properties returns a copy of every property of the calendar.
func (c *Calendar) Properties() map[string]string {
	out := make(map[string]string, len(c.props))
	for k, v := range c.props {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy, so cached calendars can be decorated per request.
func (c *Calendar) Clone() *Calendar {
	return NewCalendar(c.URL, c.props)
}

// CalendarObject is a single calendar object resource (one .ics file) as
// returned by the server.
type CalendarObject struct {
	URL  string
	ETag string
	Data []byte

	once  sync.Once
	event *ics.Event
	err   error
}

// Event parses the object data into its master event and overrides. The
// result is computed once.
func (o *CalendarObject) Event() (*ics.Event, error) {
	o.once.Do(func() {
		o.event, o.err = ics.ParseObject(o.Data)
	})
	return o.event, o.err
}
