// Package adherence computes daily and overall treatment-adherence rates over
// a trailing calendar window.
package adherence

import (
	"math"
	"time"

	"github.com/regimen-health/regimen/internal/schedule"
	"github.com/regimen-health/regimen/internal/store"
)

// Adherence status buckets; boundaries are inclusive on the lower bound.
const (
	StatusExcellent        = "Excellent"
	StatusGood             = "Good"
	StatusFair             = "Fair"
	StatusNeedsImprovement = "Needs Improvement"
)

// DayStat is one day of the adherence series
type DayStat struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	Day       string `json:"day"`        // short weekday, e.g. "Wed"
	Label     string `json:"label"`      // e.g. "Mar 12"
	Completed int    `json:"completed"`  // distinct treatments completed
	Total     int    `json:"total"`      // every treatment the user owns
	Rate      int    `json:"rate"`       // rounded percentage
	Status    string `json:"status"`
}

// Summary is the aggregate over the whole window
type Summary struct {
	Days    []DayStat `json:"days"`    // oldest to newest
	Overall int       `json:"overall"` // rounded percentage over summed counts
	Status  string    `json:"status"`
	Best    *DayStat  `json:"best,omitempty"` // first day with the maximum rate
}

// Aggregate computes the adherence series for the windowDays calendar days
// ending at end (inclusive), oldest first.
//
// Every treatment the user owns counts toward each day's denominator,
// regardless of frequency; a weekly treatment contributes to all seven days
// even though it is actionable once per week. Completions referencing unknown
// treatments are ignored, and duplicate completions for one (treatment, date)
// pair count once.
func Aggregate(treatments []store.Treatment, completions []store.CompletionEvent, windowDays int, end time.Time) Summary {
	owned := make(map[string]struct{}, len(treatments))
	for _, t := range treatments {
		owned[t.ID] = struct{}{}
	}

	// date → set of treatments completed that day
	completedByDay := make(map[string]map[string]struct{})
	for _, c := range completions {
		if _, ok := owned[c.TreatmentID]; !ok {
			continue
		}
		set, ok := completedByDay[c.Date]
		if !ok {
			set = make(map[string]struct{})
			completedByDay[c.Date] = set
		}
		set[c.TreatmentID] = struct{}{}
	}

	summary := Summary{Days: make([]DayStat, 0, windowDays)}

	var sumCompleted, sumTotal int
	endDay := schedule.Midnight(end)
	for i := windowDays - 1; i >= 0; i-- {
		day := endDay.AddDate(0, 0, -i)
		dateStr := schedule.FormatDate(day)

		total := len(treatments)
		completed := len(completedByDay[dateStr])
		rate := 0
		if total > 0 {
			rate = roundedPercent(completed, total)
		}

		summary.Days = append(summary.Days, DayStat{
			Date:      dateStr,
			Day:       day.Format("Mon"),
			Label:     day.Format("Jan 2"),
			Completed: completed,
			Total:     total,
			Rate:      rate,
			Status:    Status(rate),
		})

		sumCompleted += completed
		sumTotal += total
	}

	if sumTotal > 0 {
		summary.Overall = roundedPercent(sumCompleted, sumTotal)
	}
	summary.Status = Status(summary.Overall)

	// First day with the maximum rate wins ties.
	for i := range summary.Days {
		if summary.Best == nil || summary.Days[i].Rate > summary.Best.Rate {
			summary.Best = &summary.Days[i]
		}
	}

	return summary
}

// Status buckets a rounded rate: ≥80 Excellent, ≥60 Good, ≥40 Fair, else
// Needs Improvement.
func Status(rate int) string {
	switch {
	case rate >= 80:
		return StatusExcellent
	case rate >= 60:
		return StatusGood
	case rate >= 40:
		return StatusFair
	default:
		return StatusNeedsImprovement
	}
}

func roundedPercent(part, whole int) int {
	return int(math.Round(float64(part) / float64(whole) * 100))
}
