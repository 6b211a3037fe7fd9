package store

import (
	"time"

	"gorm.io/gorm/clause"
)

// ==================== Completion Methods ====================

// ListCompletions returns a user's completion events, optionally restricted to
// dates on or after since (YYYY-MM-DD). ISO calendar dates order
// lexicographically, so the comparison happens on the string column.
func (s *Store) ListCompletions(userID, since string) ([]CompletionEvent, error) {
	query := s.db.Where("user_id = ?", userID)
	if since != "" {
		query = query.Where("date >= ?", since)
	}

	var events []CompletionEvent
	err := query.Order("date ASC").Find(&events).Error
	return events, err
}

// CompletionsOn returns the completions recorded for exactly the given date
func (s *Store) CompletionsOn(userID, date string) ([]CompletionEvent, error) {
	var events []CompletionEvent
	err := s.db.Where("user_id = ? AND date = ?", userID, date).Find(&events).Error
	return events, err
}

// RecordCompletion creates one completion event for (treatment, user, date).
// The unique index on that key makes concurrent toggles collapse to a single
// row; re-recording an existing completion is a no-op.
func (s *Store) RecordCompletion(treatmentID, userID, date string) (*CompletionEvent, error) {
	event := &CompletionEvent{
		TreatmentID: treatmentID,
		UserID:      userID,
		Date:        date,
		CompletedAt: time.Now(),
		CreatedAt:   time.Now(),
	}

	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(event).Error
	if err != nil {
		return nil, err
	}

	// On conflict the insert is skipped; return the existing row so callers
	// always see the persisted event.
	var existing CompletionEvent
	if err := s.db.Where("treatment_id = ? AND user_id = ? AND date = ?", treatmentID, userID, date).
		First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

// RemoveCompletions deletes the given completion events by id
func (s *Store) RemoveCompletions(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.Where("id IN ?", ids).Delete(&CompletionEvent{}).Error
}

// SetCompletionState makes (treatment, user, date) completed or not,
// idempotently. This is the collaborator-side answer to check-then-act races
// between tabs or devices: both orders converge on the same final state.
func (s *Store) SetCompletionState(treatmentID, userID, date string, completed bool) error {
	if completed {
		_, err := s.RecordCompletion(treatmentID, userID, date)
		return err
	}
	return s.db.Where("treatment_id = ? AND user_id = ? AND date = ?", treatmentID, userID, date).
		Delete(&CompletionEvent{}).Error
}

// RemoveCompletionsSince deletes all of a treatment's completions dated on or
// after the boundary. Used by the period-undo operation; bulk and not
// reversible in one step.
func (s *Store) RemoveCompletionsSince(treatmentID, userID, boundary string) error {
	return s.db.Where("treatment_id = ? AND user_id = ? AND date >= ?", treatmentID, userID, boundary).
		Delete(&CompletionEvent{}).Error
}

// ==================== Corpus Methods ====================

func (s *Store) AddCorpusEntry(entry *CorpusEntry) error {
	entry.CreatedAt = time.Now()
	return s.db.Create(entry).Error
}

func (s *Store) ListCorpusEntries() ([]CorpusEntry, error) {
	var entries []CorpusEntry
	err := s.db.Find(&entries).Error
	return entries, err
}

func (s *Store) UpdateCorpusEmbedding(id string, embedding []byte) error {
	return s.db.Model(&CorpusEntry{}).Where("id = ?", id).Update("embedding", embedding).Error
}
