package util

import "time"

const dayLayout = "2006-01-02"

// ParseDay parses the YYYY-MM-DD form provider APIs report dates in.
func ParseDay(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// FormatDay renders a date in the YYYY-MM-DD form provider APIs expect.
func FormatDay(t time.Time) string {
	return t.Format(dayLayout)
}

// DayWindow returns formatted from/to bounds covering the last days before now.
func DayWindow(now time.Time, days int) (string, string) {
	return FormatDay(now.AddDate(0, 0, -days)), FormatDay(now)
}
