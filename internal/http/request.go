package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"thuchi/internal/core"
)

// headerUserID carries the authenticated user identity, set by the gateway
// that terminates auth in front of this service.
const headerUserID = "X-User-ID"

// requireUser rejects requests without an identity header before they reach
// the handler.
func (s *Server) requireUser(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing "+headerUserID+" header")
			return
		}
		next(w, r, userID)
	}
}

// parsePeriod extracts year and month query parameters, defaulting to the
// current month. A malformed or out-of-range value is an error rather than
// a silent fallback.
func parsePeriod(query url.Values) (core.Period, error) {
	now := time.Now()
	period := core.Period{
		Month: int(now.Month()),
		Year:  now.Year(),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, errInvalidParam{name: "year", value: v}
		}
		period.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, errInvalidParam{name: "month", value: v}
		}
		period.Month = m
	}

	if err := period.Validate(); err != nil {
		return core.Period{}, err
	}
	return period, nil
}

type errInvalidParam struct {
	name  string
	value string
}

func (e errInvalidParam) Error() string {
	return "invalid " + e.name + " parameter: " + e.value
}

// sanitizeInput removes control characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
