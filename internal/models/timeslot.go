package models

import (
	"fmt"
	"time"
)

// Times of day are stored as "HH:MM" strings and dates as "YYYY-MM-DD",
// matching the persisted schema. Internally slots are minutes since midnight
// and every interval is half-open: [start, end).

const (
	ClockLayout = "15:04"
	DateLayout  = "2006-01-02"
)

// Weekday is the three-letter day abbreviation stored in the availability table.
type Weekday string

const (
	Mon Weekday = "Mon"
	Tue Weekday = "Tue"
	Wed Weekday = "Wed"
	Thu Weekday = "Thu"
	Fri Weekday = "Fri"
	Sat Weekday = "Sat"
	Sun Weekday = "Sun"
)

// Valid reports whether the weekday is one of the seven known abbreviations.
func (w Weekday) Valid() bool {
	switch w {
	case Mon, Tue, Wed, Thu, Fri, Sat, Sun:
		return true
	}
	return false
}

// WeekdayOf derives the stored weekday abbreviation from a calendar date.
func WeekdayOf(t time.Time) Weekday {
	return Weekday(t.Weekday().String()[:3])
}

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate converts a "YYYY-MM-DD" string to a UTC date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Adjacent intervals sharing an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && s2 < e1
}
