// Package dates provides day-granularity date arithmetic and the single
// normalization boundary for the date formats that reach the service:
// ISO dates from the booking form, RFC 3339 timestamps from calendar
// sources, and the legacy DD/MM/YYYY / DD/MM/YY tariff formats.
package dates

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by Parse, tried in order.
var layouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"02/01/06",
}

// Truncate drops the time-of-day component, keeping the calendar day in UTC.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day n days after d.
func AddDays(d time.Time, n int) time.Time {
	return Truncate(d).AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b.
// Negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// Parse normalizes a date string into a calendar day. It accepts
// YYYY-MM-DD, RFC 3339 timestamps (truncated to the day), and the legacy
// DD/MM/YYYY and DD/MM/YY tariff formats. Anything else is rejected.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Truncate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %q", s)
}

// FormatISO renders a day as YYYY-MM-DD.
func FormatISO(d time.Time) string {
	return d.Format("2006-01-02")
}

// FormatLegacy renders a day as DD/MM/YYYY, the on-disk tariff format.
func FormatLegacy(d time.Time) string {
	return d.Format("02/01/2006")
}
