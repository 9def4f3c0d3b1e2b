// Package share models calendars shared with the current user and the custom
// properties (display name, color, ...) that apply to the shared copy.
package share

import (
	"github.com/samber/mo"

	"davcal/internal/caldav"
)

// legacyProperties lists old plain property names and the namespaced
// property that replaces each of them, in migration order.
var legacyProperties = []struct {
	legacy     string
	namespaced string
}{
	{legacy: "displayname", namespaced: caldav.DisplayName},
	{legacy: "color", namespaced: caldav.Color},
}

// Share is a calendar shared with a principal, with custom properties that
// override the calendar's own ones.
type Share struct {
	ID       string
	Owner    string
	Calendar string // calendar URL
	With     string // principal the calendar is shared with
	Writable bool

	// options may be nil; every read treats nil as empty.
	options map[string]string
}

// New returns a share with no custom properties.
func New() *Share {
	return &Share{options: map[string]string{}}
}

// NewWithProperties returns a share backed by props. A nil map leaves the
// share uninitialized until the first SetProperty.
func NewWithProperties(props map[string]string) *Share {
	return &Share{options: props}
}

// Properties returns the custom properties. The result is never nil.
func (s *Share) Properties() map[string]string {
	if s.options == nil {
		return map[string]string{}
	}
	return s.options
}

// Property returns the value of a custom property, if set.
func (s *Share) Property(name string) mo.Option[string] {
	v, ok := s.options[name]
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(v)
}

func (s *Share) SetProperty(name, value string) {
	if s.options == nil {
		s.options = make(map[string]string)
	}
	s.options[name] = value
}

// ReplaceOldProperties moves legacy plain properties to their namespaced
// names. An existing namespaced value wins; the legacy key is always
// removed.
func (s *Share) ReplaceOldProperties() {
	for _, p := range legacyProperties {
		v, ok := s.options[p.legacy]
		if !ok {
			continue
		}
		if _, exists := s.options[p.namespaced]; !exists {
			s.options[p.namespaced] = v
		}
		delete(s.options, p.legacy)
	}
}

// ApplyCustomPropertiesTo overwrites the properties of cal with the custom
// properties of the share.
func (s *Share) ApplyCustomPropertiesTo(cal *caldav.Calendar) {
	for k, v := range s.options {
		cal.SetProperty(k, v)
	}
}
