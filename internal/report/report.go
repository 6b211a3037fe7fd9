// Package report assembles the summary-report read model: the user's
// conditions with their treatments, plus a trailing seven-day adherence block.
// Rendering is the client's job.
package report

import (
	"time"

	"github.com/regimen-health/regimen/internal/adherence"
	"github.com/regimen-health/regimen/internal/schedule"
	"github.com/regimen-health/regimen/internal/store"
)

const adherenceWindowDays = 7

// ConditionSection is one condition and the treatments linked to it
type ConditionSection struct {
	Condition  store.Condition   `json:"condition"`
	Treatments []store.Treatment `json:"treatments"`
}

// Report is the full summary read model
type Report struct {
	GeneratedAt string             `json:"generated_at"` // YYYY-MM-DD
	Conditions  []ConditionSection `json:"conditions"`
	// Unassigned holds treatments whose condition no longer exists.
	Unassigned []store.Treatment `json:"unassigned,omitempty"`
	Adherence  adherence.Summary  `json:"adherence"`
}

// Builder assembles reports from the store
type Builder struct {
	store *store.Store
}

func NewBuilder(st *store.Store) *Builder {
	return &Builder{store: st}
}

// Build assembles the report for the user as of now
func (b *Builder) Build(userID string, now time.Time) (*Report, error) {
	conditions, err := b.store.ListConditions(userID)
	if err != nil {
		return nil, err
	}

	treatments, err := b.store.ListTreatments(userID)
	if err != nil {
		return nil, err
	}

	windowStart := schedule.Midnight(now).AddDate(0, 0, -(adherenceWindowDays - 1))
	completions, err := b.store.ListCompletions(userID, schedule.FormatDate(windowStart))
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: schedule.FormatDate(now),
		Conditions:  make([]ConditionSection, 0, len(conditions)),
		Adherence:   adherence.Aggregate(treatments, completions, adherenceWindowDays, now),
	}

	byCondition := make(map[string][]store.Treatment)
	for _, t := range treatments {
		byCondition[t.ConditionID] = append(byCondition[t.ConditionID], t)
	}

	for _, c := range conditions {
		report.Conditions = append(report.Conditions, ConditionSection{
			Condition:  c,
			Treatments: byCondition[c.ID],
		})
		delete(byCondition, c.ID)
	}

	// Whatever is left points at a deleted condition.
	for _, t := range treatments {
		if _, ok := byCondition[t.ConditionID]; ok {
			report.Unassigned = append(report.Unassigned, t)
		}
	}

	return report, nil
}
