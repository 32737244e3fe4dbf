// FILE: session.go
// Package main – Exchange session clock.
//
// Strategies think in session time-of-day. Live drivers convert wall-clock
// instants into that frame using the exchange calendar (scmhub/calendar,
// keyed by MIC, xnys by default), and refuse to trade on holidays/weekends.
// If the calendar cannot be loaded we fall back to Mon–Fri in New York time.

package main

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/scmhub/calendar"
)

type SessionCalendar struct {
	cal      *calendar.Calendar
	loc      *time.Location
	fallback bool
}

func newSessionCalendar(mic string, log zerolog.Logger) *SessionCalendar {
	if mic == "" {
		mic = "xnys"
	}
	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != "xnys" {
		log.Warn().Str("mic", mic).Msg("calendar not found; using xnys")
		cal = calendar.GetCalendar("xnys")
	}
	if cal == nil {
		log.Warn().Str("mic", mic).Msg("calendar unavailable; falling back to Mon-Fri America/New_York")
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			loc = time.UTC
		}
		return &SessionCalendar{loc: loc, fallback: true}
	}
	loc := cal.Loc
	if loc == nil {
		loc = time.UTC
	}
	return &SessionCalendar{cal: cal, loc: loc}
}

// Location is the exchange time zone.
func (s *SessionCalendar) Location() *time.Location { return s.loc }

// IsTradingDay reports whether the exchange trades on t's local date.
func (s *SessionCalendar) IsTradingDay(t time.Time) bool {
	t = t.In(s.loc)
	if s.fallback {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	}
	return s.cal.IsBusinessDay(t)
}

// IsOpen reports whether the regular session is open at t.
func (s *SessionCalendar) IsOpen(t time.Time) bool {
	if s.fallback {
		if !s.IsTradingDay(t) {
			return false
		}
		tod := s.TimeOfDay(t)
		return tod >= At(9, 30, 0) && tod < At(16, 0, 0)
	}
	return s.cal.IsOpen(t.In(s.loc))
}

// TimeOfDay converts a wall-clock instant into exchange session time.
func (s *SessionCalendar) TimeOfDay(t time.Time) TimeOfDay {
	t = t.In(s.loc)
	// wall-clock fields, not elapsed time, so DST switch days still line up
	return At(t.Hour(), t.Minute(), t.Second()) + TimeOfDay(t.Nanosecond())
}

// SessionDate is the exchange-local date of t at midnight.
func (s *SessionCalendar) SessionDate(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}
