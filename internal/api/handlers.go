package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/adherence"
	apperrors "github.com/regimen-health/regimen/internal/errors"
	"github.com/regimen-health/regimen/internal/schedule"
	"github.com/regimen-health/regimen/internal/store"
)

// statusFor maps application error codes to HTTP statuses. Unknown errors are
// treated as internal.
func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrConditionNotFound.Code,
		apperrors.ErrTreatmentNotFound.Code,
		apperrors.ErrCompletionNotFound.Code,
		apperrors.ErrNotFound.Code:
		return fiber.StatusNotFound
	case apperrors.ErrInvalidFrequency.Code,
		apperrors.ErrInvalidRating.Code,
		apperrors.ErrInvalidDate.Code,
		apperrors.ErrBadRequest.Code:
		return fiber.StatusBadRequest
	case apperrors.ErrUnauthorized.Code:
		return fiber.StatusUnauthorized
	case apperrors.ErrForbidden.Code:
		return fiber.StatusForbidden
	case apperrors.ErrRateLimited.Code:
		return fiber.StatusTooManyRequests
	case apperrors.ErrProviderNotConfigured.Code,
		apperrors.ErrProviderUnavailable.Code:
		return fiber.StatusServiceUnavailable
	case apperrors.ErrSuggestionParse.Code:
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("Request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

// refDate resolves the optional date query parameter, defaulting to today in
// the server's local timezone.
func refDate(c *fiber.Ctx) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), nil
	}
	return schedule.ParseDate(raw)
}

// ==================== Conditions ====================

func (s *Server) handleListConditions(c *fiber.Ctx) error {
	conditions, err := s.store.ListConditions(userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(conditions)
}

func (s *Server) handleCreateCondition(c *fiber.Ctx) error {
	var req conditionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	cond := &store.Condition{
		UserID:      userID(c),
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreateCondition(cond); err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(cond)
}

func (s *Server) handleGetCondition(c *fiber.Ctx) error {
	cond, err := s.ownedCondition(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(cond)
}

func (s *Server) handleUpdateCondition(c *fiber.Ctx) error {
	cond, err := s.ownedCondition(c)
	if err != nil {
		return s.fail(c, err)
	}

	var req conditionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.Name != "" {
		cond.Name = req.Name
	}
	cond.Description = req.Description

	if err := s.store.UpdateCondition(cond); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(cond)
}

func (s *Server) handleDeleteCondition(c *fiber.Ctx) error {
	cond, err := s.ownedCondition(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.store.DeleteCondition(cond.ID); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) ownedCondition(c *fiber.Ctx) (*store.Condition, error) {
	cond, err := s.store.GetCondition(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if cond == nil || cond.UserID != userID(c) {
		return nil, apperrors.ErrConditionNotFound
	}
	return cond, nil
}

// ==================== Treatments ====================

func (s *Server) handleListTreatments(c *fiber.Ctx) error {
	treatments, err := s.store.ListTreatments(userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(treatments)
}

func (s *Server) handleCreateTreatment(c *fiber.Ctx) error {
	var req treatmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	t := &store.Treatment{
		UserID:      userID(c),
		Name:        req.Name,
		Type:        req.Type,
		Frequency:   req.Frequency,
		ConditionID: req.ConditionID,
	}

	// Denormalize the condition name for display.
	if req.ConditionID != "" {
		cond, err := s.store.GetCondition(req.ConditionID)
		if err != nil {
			return s.fail(c, err)
		}
		if cond == nil || cond.UserID != userID(c) {
			return s.fail(c, apperrors.ErrConditionNotFound)
		}
		t.ConditionName = cond.Name
	}

	if err := s.store.CreateTreatment(t); err != nil {
		return s.fail(c, err)
	}
	return c.Status(201).JSON(t)
}

func (s *Server) handleGetTreatment(c *fiber.Ctx) error {
	t, err := s.ownedTreatment(c)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(t)
}

func (s *Server) handleUpdateTreatment(c *fiber.Ctx) error {
	t, err := s.ownedTreatment(c)
	if err != nil {
		return s.fail(c, err)
	}

	var req treatmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Type != "" {
		t.Type = req.Type
	}
	if req.Frequency != "" {
		t.Frequency = req.Frequency
	}
	if req.ConditionID != "" && req.ConditionID != t.ConditionID {
		cond, err := s.store.GetCondition(req.ConditionID)
		if err != nil {
			return s.fail(c, err)
		}
		if cond == nil || cond.UserID != userID(c) {
			return s.fail(c, apperrors.ErrConditionNotFound)
		}
		t.ConditionID = cond.ID
		t.ConditionName = cond.Name
	}

	if err := s.store.UpdateTreatment(t); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(t)
}

func (s *Server) handleDeleteTreatment(c *fiber.Ctx) error {
	t, err := s.ownedTreatment(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.store.DeleteTreatment(t.ID); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) handleRateTreatment(c *fiber.Ctx) error {
	t, err := s.ownedTreatment(c)
	if err != nil {
		return s.fail(c, err)
	}

	var req ratingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := s.store.RateTreatment(t.ID, req.Effectiveness, req.Notes); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(204)
}

func (s *Server) ownedTreatment(c *fiber.Ctx) (*store.Treatment, error) {
	t, err := s.store.GetTreatment(c.Params("id"))
	if err != nil {
		return nil, err
	}
	if t == nil || t.UserID != userID(c) {
		return nil, apperrors.ErrTreatmentNotFound
	}
	return t, nil
}

// ==================== Completions ====================

func (s *Server) handleListCompletions(c *fiber.Ctx) error {
	since := c.Query("since")
	if since != "" {
		if _, err := schedule.ParseDate(since); err != nil {
			return s.fail(c, apperrors.ErrInvalidDate)
		}
	}

	events, err := s.store.ListCompletions(userID(c), since)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(events)
}

func (s *Server) handleToggleCompletion(c *fiber.Ctx) error {
	var req toggleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.TreatmentID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "treatment_id is required"})
	}

	date := req.Date
	if date == "" {
		date = schedule.FormatDate(time.Now())
	} else if _, err := schedule.ParseDate(date); err != nil {
		return s.fail(c, apperrors.ErrInvalidDate)
	}

	t, err := s.store.GetTreatment(req.TreatmentID)
	if err != nil {
		return s.fail(c, err)
	}
	if t == nil || t.UserID != userID(c) {
		return s.fail(c, apperrors.ErrTreatmentNotFound)
	}

	if err := s.store.SetCompletionState(t.ID, userID(c), date, req.Completed); err != nil {
		return s.fail(c, err)
	}

	kind := "unset"
	if req.Completed {
		kind = "set"
	}
	s.metrics.CompletionWrites.WithLabelValues(kind).Inc()

	return c.JSON(fiber.Map{
		"treatment_id": t.ID,
		"date":         date,
		"completed":    req.Completed,
	})
}

// handleUndoPeriod removes every completion of a treatment dated within its
// current period, so a weekly or monthly treatment becomes due again.
func (s *Server) handleUndoPeriod(c *fiber.Ctx) error {
	t, err := s.ownedTreatment(c)
	if err != nil {
		return s.fail(c, err)
	}

	var req undoPeriodRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	ref := time.Now()
	if req.Date != "" {
		ref, err = schedule.ParseDate(req.Date)
		if err != nil {
			return s.fail(c, apperrors.ErrInvalidDate)
		}
	}

	boundary := schedule.PeriodStartDate(t.Frequency, ref)
	if err := s.store.RemoveCompletionsSince(t.ID, userID(c), boundary); err != nil {
		return s.fail(c, err)
	}

	s.metrics.CompletionWrites.WithLabelValues("period_undo").Inc()

	return c.JSON(fiber.Map{
		"treatment_id": t.ID,
		"since":        boundary,
	})
}

// ==================== Read Models ====================

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	ref, err := refDate(c)
	if err != nil {
		return s.fail(c, apperrors.ErrInvalidDate)
	}
	showAll := c.QueryBool("show_all", false)
	typeFilter := c.Query("type")
	conditionFilter := c.Query("condition_id")

	uid := userID(c)
	treatments, err := s.store.ListTreatments(uid)
	if err != nil {
		return s.fail(c, err)
	}

	completions, err := s.store.ListCompletions(uid, schedule.LookbackStart(ref))
	if err != nil {
		return s.fail(c, err)
	}
	ix := schedule.NewIndex(completions)

	resp := dashboardResponse{
		Date:  schedule.FormatDate(ref),
		Items: make([]dashboardItem, 0, len(treatments)),
	}

	for _, t := range treatments {
		if typeFilter != "" && t.Type != typeFilter {
			continue
		}
		if conditionFilter != "" && t.ConditionID != conditionFilter {
			continue
		}
		if !schedule.IsDueForDisplay(t, ref, showAll, ix) {
			continue
		}

		item := dashboardItem{
			Treatment:         t,
			Due:               schedule.IsDueForDisplay(t, ref, false, ix),
			CompletedToday:    schedule.IsCompletedToday(t, ref, ix),
			CompletedInPeriod: schedule.IsCompletedInPeriod(t, ref, ix),
		}
		if item.CompletedInPeriod {
			item.PeriodLabel = schedule.PeriodLabel(t.Frequency)
		}
		resp.Items = append(resp.Items, item)
	}

	return c.JSON(resp)
}

func (s *Server) handleAnalytics(c *fiber.Ctx) error {
	ref, err := refDate(c)
	if err != nil {
		return s.fail(c, apperrors.ErrInvalidDate)
	}

	window := c.QueryInt("window", 7)
	switch window {
	case 7, 14, 30, 90:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "window must be 7, 14, 30 or 90"})
	}

	uid := userID(c)
	treatments, err := s.store.ListTreatments(uid)
	if err != nil {
		return s.fail(c, err)
	}

	windowStart := schedule.Midnight(ref).AddDate(0, 0, -(window - 1))
	completions, err := s.store.ListCompletions(uid, schedule.FormatDate(windowStart))
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(adherence.Aggregate(treatments, completions, window, ref))
}

func (s *Server) handleReport(c *fiber.Ctx) error {
	ref, err := refDate(c)
	if err != nil {
		return s.fail(c, apperrors.ErrInvalidDate)
	}

	report, err := s.reports.Build(userID(c), ref)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(report)
}

// ==================== Suggestions ====================

func (s *Server) handleSuggestions(c *fiber.Ctx) error {
	if s.suggest == nil {
		return s.fail(c, apperrors.ErrProviderNotConfigured)
	}
	if !s.suggestLimiter.Allow() {
		return s.fail(c, apperrors.ErrRateLimited)
	}

	var req suggestionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.ConditionName == "" {
		return c.Status(400).JSON(fiber.Map{"error": "condition_name is required"})
	}

	result, err := s.suggest.Suggest(c.Context(), req.ConditionName, req.Description)
	if err != nil {
		s.metrics.Suggestions.WithLabelValues("error").Inc()
		return s.fail(c, err)
	}

	outcome := "llm"
	if result.FromCache {
		outcome = "cache"
	}
	s.metrics.Suggestions.WithLabelValues(outcome).Inc()

	return c.JSON(result)
}

// ==================== Profile ====================

func (s *Server) handleGetProfile(c *fiber.Ctx) error {
	profile, err := s.store.GetProfile(userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	if profile == nil {
		profile = &store.UserProfile{UserID: userID(c)}
	}
	return c.JSON(profile)
}

func (s *Server) handleUpdateProfile(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	mode := req.ReminderMode
	if mode == "" {
		mode = "always"
	}
	if mode != "always" && mode != "missed-only" {
		return c.Status(400).JSON(fiber.Map{"error": "reminder_mode must be always or missed-only"})
	}

	profile := &store.UserProfile{
		UserID:          userID(c),
		Email:           req.Email,
		EnableReminders: req.EnableReminders,
		ReminderMode:    mode,
		Timezone:        req.Timezone,
	}
	if err := s.store.UpsertProfile(profile); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(profile)
}

// ==================== Corpus ====================

func (s *Server) handleAddCorpusEntry(c *fiber.Ctx) error {
	var req corpusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}
	if req.Content == "" {
		return c.Status(400).JSON(fiber.Map{"error": "content is required"})
	}

	entry := &store.CorpusEntry{
		Source:  req.Source,
		Topic:   req.Topic,
		Content: req.Content,
	}
	if err := s.store.AddCorpusEntry(entry); err != nil {
		return s.fail(c, err)
	}

	if s.searcher != nil && s.searcher.IsEnabled() {
		if err := s.searcher.IndexEntry(entry.ID, entry.Content); err != nil {
			s.logger.Warn("Failed to index corpus entry", zap.String("id", entry.ID), zap.Error(err))
		}
	}

	return c.Status(201).JSON(entry)
}

func (s *Server) handleReindexCorpus(c *fiber.Ctx) error {
	if s.searcher == nil || !s.searcher.IsEnabled() {
		return s.fail(c, apperrors.ErrCorpusDisabled)
	}
	if err := s.searcher.ReindexAll(); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(202)
}
