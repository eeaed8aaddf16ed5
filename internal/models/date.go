package models

import "time"

// DateLayout is the calendar date format used for due dates, plan dates and
// daily stats keys. Values compare correctly as strings.
const DateLayout = "2006-01-02"

// FormatDate renders the UTC calendar date of t.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
