package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "davcal/internal/log"
	"davcal/internal/model"
)

// MaxInstancesPerEvent is a safety cap to avoid infinite or extremely
// large expansions.
const MaxInstancesPerEvent = 5000

// BaseInstance returns the master instance of the event, without any
// recurrence expansion.
func (e *Event) BaseInstance() model.Instance {
	return makeInstance(e.Master, e.Master.Start, e.Master.End, e.Master)
}

// Expand returns every instance of the event overlapping
// [rangeStart, rangeEnd]. It handles:
//
//   - Single non-recurring events
//   - RRULE-based recurrence
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides
//   - All-day semantics
func (e *Event) Expand(rangeStart, rangeEnd time.Time) ([]model.Instance, error) {
	if rangeEnd.Before(rangeStart) {
		return nil, errors.New("expand: range end is before range start")
	}

	if e.Master.RawRRule == "" {
		return e.expandSingle(rangeStart, rangeEnd), nil
	}
	return e.expandRecurring(rangeStart, rangeEnd)
}

func (e *Event) expandSingle(rangeStart, rangeEnd time.Time) []model.Instance {
	ev := e.Master
	if o, ok := findOverrideForStart(e.Overrides, ev.Start); ok {
		ev = o
	}
	if !timeRangesOverlap(ev.Start, ev.End, rangeStart, rangeEnd) {
		return nil
	}
	return []model.Instance{makeInstance(ev, ev.Start, ev.End, e.Master)}
}

func (e *Event) expandRecurring(rangeStart, rangeEnd time.Time) ([]model.Instance, error) {
	master := e.Master

	r, err := rrule.StrToRRule(master.RawRRule)
	if err != nil {
		return nil, fmt.Errorf("expand: event %s: parse RRULE %q: %w", e.UID, master.RawRRule, err)
	}
	r.DTStart(master.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range master.ExDates {
		set.ExDate(ex.In(master.Start.Location()))
	}

	dur := master.End.Sub(master.Start)
	if master.AllDay && dur <= 0 {
		dur = 24 * time.Hour
	}

	// Occurrences starting before the range may still end inside it.
	loc := master.Start.Location()
	occStarts := set.Between(rangeStart.Add(-dur).In(loc), rangeEnd.In(loc), true)

	if len(occStarts) > MaxInstancesPerEvent {
		appLog.Warn("expand: truncated instances due to cap", "uid", e.UID, "cap", MaxInstancesPerEvent)
		occStarts = occStarts[:MaxInstancesPerEvent]
	}

	out := make([]model.Instance, 0, len(occStarts))
	for _, occStart := range occStarts {
		occEnd := occStart.Add(dur)
		ev := master

		if o, ok := findOverrideForStart(e.Overrides, occStart); ok {
			ev = o
			occStart, occEnd = o.Start, o.End
		}
		if !timeRangesOverlap(occStart, occEnd, rangeStart, rangeEnd) {
			continue
		}
		out = append(out, makeInstance(ev, occStart, occEnd, master))
	}

	return out, nil
}

// findOverrideForStart finds an override whose RECURRENCE-ID matches the
// given occurrence start.
func findOverrideForStart(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// makeInstance builds a model.Instance from a (possibly overridden) event and
// a concrete start/end. Recurrence data always comes from the master.
func makeInstance(ev ParsedEvent, start, end time.Time, master ParsedEvent) model.Instance {
	inst := model.Instance{
		UID:          master.UID,
		InstanceKey:  start.UTC().Format("20060102T150405Z"),
		Summary:      ev.Summary,
		Description:  ev.Description,
		Location:     ev.Location,
		Class:        ev.Class,
		Transp:       ev.Transp,
		AllDay:       ev.AllDay,
		Start:        start,
		End:          end,
		RRule:        master.RawRRule,
		Recurrent:    master.RawRRule != "",
		RecurrenceID: ev.Recurrence,
	}
	return inst
}

// timeRangesOverlap treats [aStart, aEnd) as half-open, except for zero
// length events which overlap when they fall inside [bStart, bEnd].
func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(aStart) {
		return !aStart.Before(bStart) && !aStart.After(bEnd)
	}
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
