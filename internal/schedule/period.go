// Package schedule implements period resolution and due/completed policy for
// recurring treatments. Every caller (dashboard, reports, reminder job) goes
// through this package so periodic semantics cannot drift between surfaces.
package schedule

import (
	"time"

	"github.com/regimen-health/regimen/internal/store"
)

// DateLayout is the calendar-date form completions carry. Dates in this form
// compare correctly as plain strings, which the completion index relies on.
const DateLayout = "2006-01-02"

// Midnight truncates t to local midnight
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// FormatDate renders t as a YYYY-MM-DD calendar date
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar date at local midnight
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// PeriodStart returns the inclusive lower bound of the obligation period
// containing ref:
//
//	daily   → ref itself
//	weekly  → most recent Sunday on or before ref (weeks start Sunday)
//	monthly → first day of ref's month
//
// An unrecognized frequency resolves to ref; consumers treat such treatments
// as always due, never period-gated.
func PeriodStart(frequency string, ref time.Time) time.Time {
	day := Midnight(ref)
	switch frequency {
	case store.FrequencyDaily:
		return day
	case store.FrequencyWeekly:
		return day.AddDate(0, 0, -int(day.Weekday()))
	case store.FrequencyMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

// PeriodStartDate is PeriodStart rendered as a calendar-date string
func PeriodStartDate(frequency string, ref time.Time) string {
	return FormatDate(PeriodStart(frequency, ref))
}

// LookbackStart returns the first day of ref's month, the lower bound used
// when fetching completions for index building. It always covers the current
// monthly and daily periods; a week that spans a month boundary can have its
// first days fall before this bound, in which case those days' completions are
// not visible to the index.
func LookbackStart(ref time.Time) string {
	return PeriodStartDate(store.FrequencyMonthly, ref)
}
