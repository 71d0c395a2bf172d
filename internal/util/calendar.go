package util

import (
	"fmt"
	"time"
	_ "time/tzdata" // embed zone data so America/New_York resolves everywhere
)

// Exchange is the time zone all session times are expressed in.
var Exchange = mustLoad("America/New_York")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("loading location %s: %v", name, err))
	}
	return loc
}

// Date truncates t to midnight UTC of its calendar date.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsTradingDay reports whether the calendar date of t is a weekday.
// Exchange holidays are not modelled.
func IsTradingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// TradingDays returns every weekday in [start, end] inclusive as UTC
// midnight dates in ascending order. It returns nil when end precedes start.
func TradingDays(start, end time.Time) []time.Time {
	from, to := Date(start), Date(end)
	if to.Before(from) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// SessionTime returns the exchange-local instant at hh:mm on the calendar
// date of day.
func SessionTime(day time.Time, hh, mm int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, hh, mm, 0, 0, Exchange)
}

// ParseClock parses an "HH:MM" string into minutes after midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parsing clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockMinutes returns minutes after exchange-local midnight for t.
func ClockMinutes(t time.Time) int {
	lt := t.In(Exchange)
	return lt.Hour()*60 + lt.Minute()
}
