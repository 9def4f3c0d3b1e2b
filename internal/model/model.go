package model

import "time"

// Instance represents a single concrete occurrence of an event. For
// non-recurring events there is exactly one, the master instance.
type Instance struct {
	UID string // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from its start time.
	InstanceKey string

	Summary     string
	Description string
	Location    string
	Class       string // CLASS (PUBLIC, PRIVATE, CONFIDENTIAL)
	Transp      string // TRANSP (OPAQUE, TRANSPARENT)

	AllDay bool

	// Start / End keep the event's own timezone; conversion to the
	// user's timezone happens when serializing.
	Start time.Time
	End   time.Time

	// RRule is the raw recurrence rule of the master event, if any.
	RRule     string
	Recurrent bool

	// RecurrenceID is set when the instance comes from an overridden
	// occurrence (a VEVENT carrying RECURRENCE-ID).
	RecurrenceID *time.Time
}
