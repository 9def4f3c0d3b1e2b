package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"davcal/internal/caldav"
	"davcal/internal/dateutil"
	appLog "davcal/internal/log"
)

// action is a JSON controller: input is validated first, and only valid
// input reaches execute. Headers added to hdr are sent with a successful
// response.
type action interface {
	validateInput(in url.Values) bool
	execute(ctx context.Context, in url.Values, hdr http.Header) (any, error)
}

// inputError marks errors caused by malformed request parameters.
type inputError struct {
	err error
}

func (e *inputError) Error() string { return e.err.Error() }
func (e *inputError) Unwrap() error { return e.err }

func (s *Server) serveAction(a action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		in := r.URL.Query()
		if !a.validateInput(in) {
			writeError(w, http.StatusBadRequest, "invalid input")
			return
		}

		hdr := make(http.Header)
		body, err := a.execute(r.Context(), in, hdr)
		if err != nil {
			writeActionError(w, r, err)
			return
		}

		for k, vs := range hdr {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// writeActionError maps controller errors to HTTP responses.
func writeActionError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		tzErr  *dateutil.InvalidTimezoneError
		badReq *inputError
	)
	switch {
	case errors.As(err, &tzErr):
		writeError(w, http.StatusBadRequest, tzErr.Error())
	case errors.As(err, &badReq):
		writeError(w, http.StatusBadRequest, badReq.Error())
	case errors.Is(err, caldav.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		appLog.Error("request failed", err, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// requireFields reports whether every field is present and non-empty.
func requireFields(in url.Values, fields ...string) bool {
	for _, name := range fields {
		if in.Get(name) == "" {
			return false
		}
	}
	return true
}

// addPerformanceHeaders reports fetch and parse durations in seconds.
func addPerformanceHeaders(hdr http.Header, fetch, parse time.Duration) {
	hdr.Set("X-Fetch-Time", fmt.Sprintf("%.4f", fetch.Seconds()))
	hdr.Set("X-Parse-Time", fmt.Sprintf("%.4f", parse.Seconds()))
}
