package main

import (
	"testing"
	"time"
)

func TestSessionCalendarTradingDays(t *testing.T) {
	cal := newSessionCalendar("xnys", testLogger())
	ny := cal.Location()
	cases := []struct {
		day  time.Time
		want bool
	}{
		{time.Date(2024, 3, 8, 12, 0, 0, 0, ny), true},  // Friday
		{time.Date(2024, 3, 9, 12, 0, 0, 0, ny), false}, // Saturday
		{time.Date(2024, 3, 10, 12, 0, 0, 0, ny), false},
		{time.Date(2024, 7, 4, 12, 0, 0, 0, ny), false}, // Independence Day
	}
	for _, c := range cases {
		if got := cal.IsTradingDay(c.day); got != c.want {
			t.Fatalf("%s trading = %v, want %v", c.day.Format("2006-01-02 Mon"), got, c.want)
		}
	}
}

func TestSessionCalendarTimeOfDayAcrossDST(t *testing.T) {
	cal := newSessionCalendar("xnys", testLogger())
	// 09:30 New York is 14:30 UTC in winter and 13:30 UTC after the switch
	winter := time.Date(2024, 3, 8, 14, 30, 0, 0, time.UTC)
	summer := time.Date(2024, 3, 11, 13, 30, 0, 0, time.UTC)
	if got := cal.TimeOfDay(winter); got != At(9, 30, 0) {
		t.Fatalf("winter = %s", got)
	}
	if got := cal.TimeOfDay(summer); got != At(9, 30, 0) {
		t.Fatalf("summer = %s", got)
	}
	if d := cal.SessionDate(summer); d.Day() != 11 || d.Hour() != 0 {
		t.Fatalf("session date = %s", d)
	}
}

func TestSessionCalendarUnknownMICUsesNYSE(t *testing.T) {
	cal := newSessionCalendar("nope", testLogger())
	if cal.fallback {
		t.Fatalf("unknown mic should fall back to xnys, not weekdays")
	}
	if cal.Location().String() != "America/New_York" {
		t.Fatalf("location = %s", cal.Location())
	}
}

func TestSessionCalendarWeekdayFallback(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("no tzdata")
	}
	cal := &SessionCalendar{loc: loc, fallback: true}
	mon := time.Date(2024, 7, 1, 10, 0, 0, 0, loc)
	if !cal.IsTradingDay(mon) || !cal.IsOpen(mon) {
		t.Fatalf("monday 10:00 should be open")
	}
	if cal.IsOpen(time.Date(2024, 7, 1, 16, 0, 0, 0, loc)) {
		t.Fatalf("16:00 is after the close")
	}
	if cal.IsTradingDay(time.Date(2024, 7, 6, 10, 0, 0, 0, loc)) {
		t.Fatalf("saturday is not a trading day")
	}
}
