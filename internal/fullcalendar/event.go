// Package fullcalendar builds the event view model consumed by the
// FullCalendar widget in the browser.
package fullcalendar

import (
	"time"

	"davcal/internal/caldav"
	"davcal/internal/model"
)

// Event is one occurrence of a calendar event, flattened for FullCalendar.
type Event struct {
	ID          string
	UID         string
	CalendarURL string
	Href        string
	ETag        string

	Title       string
	Description string
	Location    string
	Class       string
	Transp      string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule        string
	Recurrent    bool
	RecurrenceID *time.Time

	Color    string
	Editable bool
}

// GenerateFrom returns one Event per instance, in the same order.
func GenerateFrom(obj *caldav.CalendarObject, cal *caldav.Calendar, instances []model.Instance) []*Event {
	out := make([]*Event, 0, len(instances))
	for _, inst := range instances {
		out = append(out, newEvent(obj, cal, inst))
	}
	return out
}

func newEvent(obj *caldav.CalendarObject, cal *caldav.Calendar, inst model.Instance) *Event {
	ev := &Event{
		ID:           inst.UID,
		UID:          inst.UID,
		CalendarURL:  cal.URL,
		Href:         obj.URL,
		ETag:         obj.ETag,
		Title:        inst.Summary,
		Description:  inst.Description,
		Location:     inst.Location,
		Class:        inst.Class,
		Transp:       inst.Transp,
		Start:        inst.Start,
		End:          inst.End,
		AllDay:       inst.AllDay,
		RRule:        inst.RRule,
		Recurrent:    inst.Recurrent,
		RecurrenceID: inst.RecurrenceID,
		Color:        cal.Property(caldav.Color),
		Editable:     true,
	}
	// Every occurrence of a recurring event needs its own id.
	if inst.Recurrent {
		ev.ID = inst.UID + "@" + inst.InstanceKey
	}
	return ev
}
