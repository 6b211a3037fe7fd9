package schedule

import (
	"time"

	"github.com/regimen-health/regimen/internal/store"
)

// IsDueForDisplay reports whether a treatment belongs on the actionable list
// for the reference date. showAll is the explicit override that surfaces every
// treatment regardless of period state.
//
// Daily treatments are always due. Weekly and monthly treatments drop off the
// list once satisfied for their current period and reappear when the next
// period begins. Unknown frequencies are always due.
func IsDueForDisplay(t store.Treatment, ref time.Time, showAll bool, ix *Index) bool {
	if showAll {
		return true
	}

	switch t.Frequency {
	case store.FrequencyDaily:
		return true
	case store.FrequencyWeekly, store.FrequencyMonthly:
		return !ix.HasCompletionSince(t.ID, PeriodStartDate(t.Frequency, ref))
	default:
		return true
	}
}

// IsCompletedInPeriod reports whether the treatment is satisfied for the
// period containing ref: exact-date for daily, any completion since the
// period start for weekly/monthly.
func IsCompletedInPeriod(t store.Treatment, ref time.Time, ix *Index) bool {
	switch t.Frequency {
	case store.FrequencyDaily:
		return ix.IsCompletedOn(t.ID, FormatDate(ref))
	case store.FrequencyWeekly, store.FrequencyMonthly:
		return ix.HasCompletionSince(t.ID, PeriodStartDate(t.Frequency, ref))
	default:
		return false
	}
}

// IsCompletedToday reports whether a completion exists for exactly ref,
// regardless of frequency. Distinct from IsCompletedInPeriod: a weekly
// treatment done on Tuesday is completed-in-period on Wednesday but not
// completed "today".
func IsCompletedToday(t store.Treatment, ref time.Time, ix *Index) bool {
	return ix.IsCompletedOn(t.ID, FormatDate(ref))
}

// PeriodLabel is the display text for a treatment satisfied in its period
func PeriodLabel(frequency string) string {
	switch frequency {
	case store.FrequencyWeekly:
		return "Completed this week"
	case store.FrequencyMonthly:
		return "Completed this month"
	}
	return "Completed today"
}
