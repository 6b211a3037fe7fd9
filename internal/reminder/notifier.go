package reminder

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/config"
	"github.com/regimen-health/regimen/internal/store"
)

// Notifier delivers a due-treatment reminder to one user
type Notifier interface {
	Notify(ctx context.Context, profile store.UserProfile, due []store.Treatment) error
}

// LogNotifier writes reminders to the log; the default when SMTP is not
// configured
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, profile store.UserProfile, due []store.Treatment) error {
	names := make([]string, len(due))
	for i, t := range due {
		names[i] = fmt.Sprintf("%s (%s)", t.Name, t.Frequency)
	}
	n.logger.Info("Reminder",
		zap.String("user_id", profile.UserID),
		zap.Int("due_count", len(due)),
		zap.Strings("treatments", names),
	)
	return nil
}

// SMTPNotifier sends reminder email over plain SMTP
type SMTPNotifier struct {
	cfg config.SMTPConfig
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) Notify(_ context.Context, profile store.UserProfile, due []store.Treatment) error {
	if profile.Email == "" {
		return fmt.Errorf("user %s has no email", profile.UserID)
	}

	var list strings.Builder
	for _, t := range due {
		fmt.Fprintf(&list, "  - %s (%s)\n", t.Name, t.Frequency)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: Reminder: You have treatments due today\r\n\r\n"+
		"You have the following treatments due today:\n\n%s\nOpen your dashboard to mark them as complete.\r\n",
		n.cfg.From, profile.Email, list.String())

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	return smtp.SendMail(addr, auth, n.cfg.From, []string{profile.Email}, []byte(body))
}
