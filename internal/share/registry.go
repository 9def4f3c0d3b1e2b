package share

import (
	"github.com/google/uuid"

	"davcal/internal/caldav"
	"davcal/internal/config"
	appLog "davcal/internal/log"
)

// Registry holds the shares known to the application, indexed by calendar
// URL.
type Registry struct {
	byCalendar map[string][]*Share
}

// NewRegistry builds a registry from configuration. Legacy property names
// are migrated on load, and shares without an ID get a random one.
func NewRegistry(cfgs []config.ShareConfig) *Registry {
	r := &Registry{byCalendar: make(map[string][]*Share)}
	for _, c := range cfgs {
		props := make(map[string]string, len(c.Properties))
		for k, v := range c.Properties {
			props[k] = v
		}

		s := NewWithProperties(props)
		s.ID = c.ID
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.Owner = c.Owner
		s.Calendar = c.Calendar
		s.With = c.With
		s.Writable = c.Writable
		s.ReplaceOldProperties()

		r.Add(s)
	}
	appLog.Info("shares loaded", "count", len(cfgs))
	return r
}

func (r *Registry) Add(s *Share) {
	r.byCalendar[s.Calendar] = append(r.byCalendar[s.Calendar], s)
}

// ForCalendar returns the shares of the calendar at url, in load order.
func (r *Registry) ForCalendar(url string) []*Share {
	if r == nil {
		return nil
	}
	return r.byCalendar[url]
}

// Apply overlays the custom properties of every share of cal onto it and
// reports whether the calendar is shared, and writable by the user.
func (r *Registry) Apply(cal *caldav.Calendar) (shared, writable bool) {
	shares := r.ForCalendar(cal.URL)
	for _, s := range shares {
		s.ApplyCustomPropertiesTo(cal)
		writable = writable || s.Writable
	}
	return len(shares) > 0, writable
}
