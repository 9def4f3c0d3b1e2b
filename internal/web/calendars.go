package web

import (
	"context"
	"net/http"
	"time"

	"davcal/internal/caldav"
	appLog "davcal/internal/log"
	"davcal/internal/transform"
)

// calendarsCacheTTL bounds staleness when the scheduled refresh is not
// running or keeps failing.
const calendarsCacheTTL = 30 * time.Minute

// calendarsCache holds the discovered calendar list and its timestamp.
type calendarsCache struct {
	calendars []*caldav.Calendar
	updatedAt time.Time
}

// calendarView is a calendar decorated with its share state for the user.
type calendarView struct {
	cal      *caldav.Calendar
	shared   bool
	writable bool
}

var calendarTransformer = transform.TransformerFunc[calendarView](func(v calendarView) map[string]any {
	return map[string]any{
		"url":         v.cal.URL,
		"displayname": v.cal.Property(caldav.DisplayName),
		"color":       v.cal.Property(caldav.Color),
		"description": v.cal.Property(caldav.Description),
		"shared":      v.shared,
		"writable":    v.writable,
	}
})

// RefreshCalendars rediscovers the calendar list and replaces the cache.
// On failure the previous list is kept.
func (s *Server) RefreshCalendars(ctx context.Context) error {
	cals, err := s.client.FetchCalendars(ctx)
	if err != nil {
		return err
	}

	s.calendarsMu.Lock()
	s.calendarsCache = &calendarsCache{calendars: cals, updatedAt: time.Now()}
	s.calendarsMu.Unlock()

	appLog.Debug("calendar list refreshed", "count", len(cals))
	return nil
}

func (s *Server) cachedCalendars(ctx context.Context) ([]*caldav.Calendar, error) {
	s.calendarsMu.RLock()
	cc := s.calendarsCache
	s.calendarsMu.RUnlock()
	if cc != nil && time.Since(cc.updatedAt) < calendarsCacheTTL {
		return cc.calendars, nil
	}

	if err := s.RefreshCalendars(ctx); err != nil {
		return nil, err
	}

	s.calendarsMu.RLock()
	defer s.calendarsMu.RUnlock()
	return s.calendarsCache.calendars, nil
}

// handleCalendars lists the user's calendars with share customizations
// applied.
//
// GET /api/calendars
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	cals, err := s.cachedCalendars(r.Context())
	if err != nil {
		writeActionError(w, r, err)
		return
	}

	views := make([]calendarView, 0, len(cals))
	for _, c := range cals {
		// Cached calendars are shared between requests; decorate a copy.
		v := calendarView{cal: c.Clone()}
		v.shared, v.writable = s.shares.Apply(v.cal)
		if !v.shared {
			v.writable = true
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, transform.Collection(transform.NewManager(transform.PlainSerializer{}), views, calendarTransformer))
}
