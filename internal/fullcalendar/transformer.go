package fullcalendar

import (
	"time"
)

const allDayLayout = "2006-01-02"

// Transformer renders events in the user's timezone.
type Transformer struct {
	loc *time.Location
}

func NewTransformer(loc *time.Location) *Transformer {
	if loc == nil {
		loc = time.UTC
	}
	return &Transformer{loc: loc}
}

// Transform returns the FullCalendar field set of e. All-day boundaries are
// plain dates and are never shifted to another zone.
func (t *Transformer) Transform(e *Event) map[string]any {
	out := map[string]any{
		"id":          e.ID,
		"uid":         e.UID,
		"calendar":    e.CalendarURL,
		"href":        e.Href,
		"etag":        e.ETag,
		"title":       e.Title,
		"start":       t.formatTime(e.Start, e.AllDay),
		"end":         t.formatTime(e.End, e.AllDay),
		"allDay":      e.AllDay,
		"timezone":    t.loc.String(),
		"editable":    e.Editable,
		"isRecurrent": e.Recurrent,
	}

	optional := map[string]string{
		"location":    e.Location,
		"description": e.Description,
		"rrule":       e.RRule,
		"color":       e.Color,
		"class":       e.Class,
		"transp":      e.Transp,
	}
	for k, v := range optional {
		if v != "" {
			out[k] = v
		}
	}
	if e.RecurrenceID != nil {
		out["recurrenceId"] = e.RecurrenceID.UTC().Format(time.RFC3339)
	}

	return out
}

func (t *Transformer) formatTime(v time.Time, allDay bool) string {
	if allDay {
		return v.Format(allDayLayout)
	}
	return v.In(t.loc).Format(time.RFC3339)
}
