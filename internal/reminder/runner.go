// Package reminder runs the scheduled due-treatment reminder job. It derives
// "due today" through the same schedule policy the interactive API uses, so a
// user never sees a reminder disagree with their dashboard.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/config"
	"github.com/regimen-health/regimen/internal/metrics"
	"github.com/regimen-health/regimen/internal/schedule"
	"github.com/regimen-health/regimen/internal/store"
)

// Reminder modes carried on the user profile.
const (
	ModeAlways     = "always"
	ModeMissedOnly = "missed-only"
)

// Runner manages the daily reminder schedule
type Runner struct {
	config   *config.RemindersConfig
	store    *store.Store
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewRunner creates a reminder runner
func NewRunner(cfg *config.RemindersConfig, st *store.Store, notifier Notifier, m *metrics.Metrics, logger *zap.Logger) (*Runner, error) {
	loc := time.Local
	if cfg.Timezone != "" && cfg.Timezone != "Local" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid reminder timezone %q: %w", cfg.Timezone, err)
		}
	}

	return &Runner{
		config:   cfg,
		store:    st,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start registers the cron schedule and begins running
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("reminder runner already running")
	}

	_, err := r.cron.AddFunc(r.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		r.RunOnce(ctx, time.Now())
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule %q: %w", r.config.Schedule, err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("Reminder runner started", zap.String("schedule", r.config.Schedule))
	return nil
}

// Stop stops the schedule and waits for a running job to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("Reminder runner stopped")
}

// RunOnce executes one reminder pass for every opted-in user
func (r *Runner) RunOnce(ctx context.Context, now time.Time) {
	profiles, err := r.store.ListReminderProfiles()
	if err != nil {
		r.logger.Error("Failed to list reminder profiles", zap.Error(err))
		return
	}

	r.logger.Info("Running reminder pass", zap.Int("users", len(profiles)))

	for _, profile := range profiles {
		if err := r.remindUser(ctx, profile, now); err != nil {
			r.metrics.RemindersFailed.Inc()
			r.logger.Error("Reminder failed",
				zap.String("user_id", profile.UserID),
				zap.Error(err),
			)
		}
	}
}

func (r *Runner) remindUser(ctx context.Context, profile store.UserProfile, now time.Time) error {
	due, err := r.DueTreatments(profile.UserID, now)
	if err != nil {
		return err
	}

	if len(due) == 0 && profile.ReminderMode == ModeMissedOnly {
		r.logger.Debug("Skipping reminder, nothing due",
			zap.String("user_id", profile.UserID))
		return nil
	}

	if err := r.notifier.Notify(ctx, profile, due); err != nil {
		return err
	}

	r.metrics.RemindersSent.Inc()
	return nil
}

// DueTreatments returns the treatments actionable for the user on the given
// day and not yet completed that day. Period gating is the schedule package's;
// this is the exact list the dashboard shows with the show-all override off.
func (r *Runner) DueTreatments(userID string, now time.Time) ([]store.Treatment, error) {
	treatments, err := r.store.ListTreatments(userID)
	if err != nil {
		return nil, err
	}

	completions, err := r.store.ListCompletions(userID, schedule.LookbackStart(now))
	if err != nil {
		return nil, err
	}

	ix := schedule.NewIndex(completions)

	var due []store.Treatment
	for _, t := range treatments {
		if schedule.IsCompletedToday(t, now, ix) {
			continue
		}
		if schedule.IsDueForDisplay(t, now, false, ix) {
			due = append(due, t)
		}
	}
	return due, nil
}
