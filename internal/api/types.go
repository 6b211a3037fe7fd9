package api

import "github.com/regimen-health/regimen/internal/store"

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type conditionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type treatmentRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Frequency   string `json:"frequency"`
	ConditionID string `json:"condition_id"`
}

type ratingRequest struct {
	Effectiveness int    `json:"effectiveness"`
	Notes         string `json:"notes"`
}

type toggleRequest struct {
	TreatmentID string `json:"treatment_id"`
	Date        string `json:"date"` // YYYY-MM-DD
	Completed   bool   `json:"completed"`
}

type undoPeriodRequest struct {
	Date string `json:"date"` // reference date inside the period, defaults to today
}

type suggestionRequest struct {
	ConditionName string `json:"condition_name"`
	Description   string `json:"description"`
}

type profileRequest struct {
	Email           string `json:"email"`
	EnableReminders bool   `json:"enable_reminders"`
	ReminderMode    string `json:"reminder_mode"`
	Timezone        string `json:"timezone"`
}

type corpusRequest struct {
	Source  string `json:"source"`
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

// dashboardItem is one treatment annotated with its period state
type dashboardItem struct {
	Treatment         store.Treatment `json:"treatment"`
	Due               bool            `json:"due"`
	CompletedToday    bool            `json:"completed_today"`
	CompletedInPeriod bool            `json:"completed_in_period"`
	PeriodLabel       string          `json:"period_label,omitempty"`
}

type dashboardResponse struct {
	Date  string          `json:"date"`
	Items []dashboardItem `json:"items"`
}
