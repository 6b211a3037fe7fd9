package schedule

import (
	"github.com/regimen-health/regimen/internal/store"
)

// Index answers completion-membership queries over a snapshot of a user's
// completion events. It holds no mutation methods; after any write the caller
// re-fetches events and builds a fresh index.
//
// All checks are existence checks, so duplicate events for the same
// (treatment, date) pair are harmless.
type Index struct {
	byTreatment map[string][]store.CompletionEvent
}

// NewIndex builds an index from a snapshot of completion events. The snapshot
// should cover at least LookbackStart(ref) for the reference date being
// queried.
func NewIndex(events []store.CompletionEvent) *Index {
	ix := &Index{byTreatment: make(map[string][]store.CompletionEvent, len(events))}
	for _, e := range events {
		ix.byTreatment[e.TreatmentID] = append(ix.byTreatment[e.TreatmentID], e)
	}
	return ix
}

// IsCompletedOn reports whether an event exists for exactly the given date
func (ix *Index) IsCompletedOn(treatmentID, date string) bool {
	for _, e := range ix.byTreatment[treatmentID] {
		if e.Date == date {
			return true
		}
	}
	return false
}

// HasCompletionSince reports whether any event is dated on or after boundary
// (inclusive). Both sides are YYYY-MM-DD strings, compared lexicographically.
func (ix *Index) HasCompletionSince(treatmentID, boundary string) bool {
	for _, e := range ix.byTreatment[treatmentID] {
		if e.Date >= boundary {
			return true
		}
	}
	return false
}

// EventsSince returns every event for the treatment dated on or after
// boundary. Supports period-undo, which deletes all of them.
func (ix *Index) EventsSince(treatmentID, boundary string) []store.CompletionEvent {
	var out []store.CompletionEvent
	for _, e := range ix.byTreatment[treatmentID] {
		if e.Date >= boundary {
			out = append(out, e)
		}
	}
	return out
}
