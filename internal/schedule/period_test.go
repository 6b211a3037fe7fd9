package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regimen-health/regimen/internal/store"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestPeriodStart_Daily(t *testing.T) {
	ref := time.Date(2025, time.March, 12, 14, 30, 0, 0, time.Local)

	start := PeriodStart(store.FrequencyDaily, ref)

	assert.Equal(t, date(2025, time.March, 12), start, "daily period is the reference day at midnight")
}

func TestPeriodStart_Weekly(t *testing.T) {
	tests := []struct {
		name string
		ref  time.Time
		want time.Time
	}{
		{"midweek", date(2025, time.March, 12), date(2025, time.March, 9)},   // Wednesday → previous Sunday
		{"sunday itself", date(2025, time.March, 9), date(2025, time.March, 9)},
		{"saturday", date(2025, time.March, 15), date(2025, time.March, 9)},
		{"week spans month boundary", date(2025, time.May, 1), date(2025, time.April, 27)},
		{"week spans year boundary", date(2025, time.January, 3), date(2024, time.December, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PeriodStart(store.FrequencyWeekly, tt.ref))
		})
	}
}

func TestPeriodStart_Monthly(t *testing.T) {
	assert.Equal(t, date(2025, time.March, 1), PeriodStart(store.FrequencyMonthly, date(2025, time.March, 31)))
	assert.Equal(t, date(2025, time.February, 1), PeriodStart(store.FrequencyMonthly, date(2025, time.February, 1)))
}

func TestPeriodStart_UnknownFrequency(t *testing.T) {
	ref := date(2025, time.March, 12)

	// Unknown frequencies resolve to the reference day; due policy treats them
	// as always due.
	assert.Equal(t, ref, PeriodStart("biweekly", ref))
}

func TestPeriodStart_TruncatesTimeOfDay(t *testing.T) {
	ref := time.Date(2025, time.March, 12, 23, 59, 59, 0, time.Local)

	for _, freq := range []string{store.FrequencyDaily, store.FrequencyWeekly, store.FrequencyMonthly} {
		start := PeriodStart(freq, ref)
		assert.Equal(t, 0, start.Hour(), "frequency %s", freq)
		assert.Equal(t, 0, start.Minute(), "frequency %s", freq)
	}
}

func TestFormatParseDate_RoundTrip(t *testing.T) {
	ref := date(2025, time.March, 9)

	parsed, err := ParseDate(FormatDate(ref))
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}

func TestLookbackStart_CoversCurrentMonth(t *testing.T) {
	assert.Equal(t, "2025-03-01", LookbackStart(date(2025, time.March, 12)))

	// A week spanning a month boundary starts before the lookback bound; the
	// first days of that week are outside the fetched window.
	weekStart := PeriodStartDate(store.FrequencyWeekly, date(2025, time.May, 1))
	assert.Less(t, weekStart, LookbackStart(date(2025, time.May, 1)))
}
