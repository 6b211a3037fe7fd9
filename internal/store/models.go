package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Treatment frequencies. Anything else is tolerated on read (the schedule
// package treats it as always due) but rejected on write.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Treatment types.
const (
	TypePharmaceutical    = "pharmaceutical"
	TypeNonPharmaceutical = "non-pharmaceutical"
)

// Condition represents a tracked medical condition
type Condition struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	UserID      string    `gorm:"index" json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Treatment represents a tracked intervention with a recurrence frequency
type Treatment struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID string `gorm:"index" json:"user_id"`

	Name      string `json:"name"`
	Type      string `json:"type"`      // pharmaceutical, non-pharmaceutical
	Frequency string `json:"frequency"` // daily, weekly, monthly

	// Denormalized condition name is a display convenience; adherence and due
	// computations key on IDs only.
	ConditionID   string `gorm:"index" json:"condition_id"`
	ConditionName string `json:"condition_name"`

	// Rated independently of completion tracking.
	Effectiveness int    `json:"effectiveness,omitempty"` // 1-10, 0 = unrated
	Notes         string `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompletionEvent records that a treatment was performed on a calendar date.
//
// Date is a local-calendar YYYY-MM-DD string derived from the client's wall
// clock, not from an instant. Two events for the same moment can carry
// different dates when created in different timezones; the date string is the
// sole temporal key for due/adherence computations. CompletedAt is kept only
// for display.
type CompletionEvent struct {
	ID          string `gorm:"primaryKey" json:"id"`
	TreatmentID string `gorm:"index;uniqueIndex:idx_completion_key" json:"treatment_id"`
	UserID      string `gorm:"index;uniqueIndex:idx_completion_key" json:"user_id"`
	Date        string `gorm:"uniqueIndex:idx_completion_key" json:"date"`

	CompletedAt time.Time `json:"completed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserProfile holds per-user reminder preferences
type UserProfile struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	Email  string `json:"email,omitempty"`

	EnableReminders bool   `json:"enable_reminders"`
	ReminderMode    string `json:"reminder_mode"` // always, missed-only
	Timezone        string `json:"timezone,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CorpusEntry is an extracted medical text snippet used to ground suggestions
type CorpusEntry struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Source    string    `json:"source,omitempty"`
	Topic     string    `gorm:"index" json:"topic,omitempty"`
	Content   string    `gorm:"type:text" json:"content"`
	Embedding []byte    `json:"-" gorm:"type:blob"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Condition) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateID("cond")
	}
	return nil
}

func (t *Treatment) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateID("trt")
	}
	return nil
}

func (e *CompletionEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateID("cmp")
	}
	return nil
}

func (c *CorpusEntry) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateID("crp")
	}
	return nil
}

func generateID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// ValidFrequency reports whether f is one of the supported frequencies
func ValidFrequency(f string) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// ValidType reports whether t is one of the supported treatment types
func ValidType(t string) bool {
	return t == TypePharmaceutical || t == TypeNonPharmaceutical
}
