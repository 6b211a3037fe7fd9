package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/regimen-health/regimen/internal/store"
)

func treatment(id, frequency string) store.Treatment {
	return store.Treatment{ID: id, UserID: "user_1", Name: id, Type: store.TypePharmaceutical, Frequency: frequency}
}

func event(treatmentID, day string) store.CompletionEvent {
	return store.CompletionEvent{ID: "cmp_" + treatmentID + "_" + day, TreatmentID: treatmentID, UserID: "user_1", Date: day}
}

func TestIsDueForDisplay_DailyAlwaysDue(t *testing.T) {
	daily := treatment("trt_daily", store.FrequencyDaily)
	ix := NewIndex(nil)

	for _, ref := range []time.Time{
		date(2025, time.March, 9),
		date(2025, time.March, 12),
		date(2025, time.December, 31),
	} {
		assert.True(t, IsDueForDisplay(daily, ref, false, ix))
	}

	// Still due even when completed today; daily items never leave the list.
	ix = NewIndex([]store.CompletionEvent{event("trt_daily", "2025-03-12")})
	assert.True(t, IsDueForDisplay(daily, date(2025, time.March, 12), false, ix))
}

func TestIsDueForDisplay_WeeklyPeriodGating(t *testing.T) {
	weekly := treatment("trt_weekly", store.FrequencyWeekly)

	// Completed Wednesday March 12; week runs Sunday March 9 through Saturday
	// March 15.
	ix := NewIndex([]store.CompletionEvent{event("trt_weekly", "2025-03-12")})

	for d := 9; d <= 15; d++ {
		assert.False(t, IsDueForDisplay(weekly, date(2025, time.March, d), false, ix),
			"not due anywhere in the completed week (March %d)", d)
	}

	assert.True(t, IsDueForDisplay(weekly, date(2025, time.March, 16), false, ix),
		"due again the following Sunday")
}

func TestIsDueForDisplay_MonthlyBoundary(t *testing.T) {
	monthly := treatment("trt_monthly", store.FrequencyMonthly)

	// Completed on the last day of March.
	ix := NewIndex([]store.CompletionEvent{event("trt_monthly", "2025-03-31")})

	assert.False(t, IsDueForDisplay(monthly, date(2025, time.March, 31), false, ix))
	assert.True(t, IsDueForDisplay(monthly, date(2025, time.April, 1), false, ix),
		"due again on the 1st of the next month")
}

func TestIsDueForDisplay_ShowAllOverride(t *testing.T) {
	weekly := treatment("trt_weekly", store.FrequencyWeekly)
	ix := NewIndex([]store.CompletionEvent{event("trt_weekly", "2025-03-12")})

	assert.True(t, IsDueForDisplay(weekly, date(2025, time.March, 12), true, ix))
}

func TestIsDueForDisplay_UnknownFrequencyAlwaysDue(t *testing.T) {
	odd := treatment("trt_odd", "fortnightly")
	ix := NewIndex([]store.CompletionEvent{event("trt_odd", "2025-03-12")})

	assert.True(t, IsDueForDisplay(odd, date(2025, time.March, 12), false, ix))
}

func TestIsCompletedInPeriod(t *testing.T) {
	ref := date(2025, time.March, 13) // Thursday
	ix := NewIndex([]store.CompletionEvent{
		event("trt_daily", "2025-03-12"),
		event("trt_weekly", "2025-03-12"),
		event("trt_monthly", "2025-03-01"),
	})

	daily := treatment("trt_daily", store.FrequencyDaily)
	weekly := treatment("trt_weekly", store.FrequencyWeekly)
	monthly := treatment("trt_monthly", store.FrequencyMonthly)

	assert.False(t, IsCompletedInPeriod(daily, ref, ix), "daily is exact-date, yesterday does not count")
	assert.True(t, IsCompletedInPeriod(weekly, ref, ix), "weekly satisfied by Wednesday's completion")
	assert.True(t, IsCompletedInPeriod(monthly, ref, ix), "monthly satisfied by the 1st")
	assert.False(t, IsCompletedInPeriod(monthly, date(2025, time.April, 2), ix))
}

func TestIsCompletedToday_DistinctFromPeriod(t *testing.T) {
	weekly := treatment("trt_weekly", store.FrequencyWeekly)
	ix := NewIndex([]store.CompletionEvent{event("trt_weekly", "2025-03-12")})

	wednesday := date(2025, time.March, 12)
	thursday := date(2025, time.March, 13)

	assert.True(t, IsCompletedToday(weekly, wednesday, ix))
	assert.False(t, IsCompletedToday(weekly, thursday, ix))
	assert.True(t, IsCompletedInPeriod(weekly, thursday, ix),
		"done this period but not today is a distinct state")
}

func TestIndex_DuplicateEventsAreIdempotent(t *testing.T) {
	ix := NewIndex([]store.CompletionEvent{
		event("trt_weekly", "2025-03-12"),
		{ID: "cmp_dup", TreatmentID: "trt_weekly", UserID: "user_1", Date: "2025-03-12"},
	})

	assert.True(t, ix.IsCompletedOn("trt_weekly", "2025-03-12"))
	assert.True(t, ix.HasCompletionSince("trt_weekly", "2025-03-09"))
	assert.Len(t, ix.EventsSince("trt_weekly", "2025-03-09"), 2,
		"EventsSince returns every row so period-undo deletes them all")
}

func TestIndex_EmptyState(t *testing.T) {
	ix := NewIndex(nil)

	assert.False(t, ix.IsCompletedOn("trt_x", "2025-03-12"))
	assert.False(t, ix.HasCompletionSince("trt_x", "2025-03-01"))
	assert.Empty(t, ix.EventsSince("trt_x", "2025-03-01"))
}

func TestIndex_BoundaryInclusive(t *testing.T) {
	ix := NewIndex([]store.CompletionEvent{event("trt_weekly", "2025-03-09")})

	assert.True(t, ix.HasCompletionSince("trt_weekly", "2025-03-09"),
		"boundary date itself counts")
	assert.False(t, ix.HasCompletionSince("trt_weekly", "2025-03-10"))
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "Completed this week", PeriodLabel(store.FrequencyWeekly))
	assert.Equal(t, "Completed this month", PeriodLabel(store.FrequencyMonthly))
	assert.Equal(t, "Completed today", PeriodLabel(store.FrequencyDaily))
}
