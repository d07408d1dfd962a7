// Package notify implements the email outbox: callers record emails in the
// same transaction as the state change they announce, and a Dispatcher
// delivers them later with retries.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/referencias-locales/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Email is a rendered message waiting to be queued.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Enqueue records emails as pending outbox rows using tx. Emails without a
// recipient are skipped.
func Enqueue(tx *gorm.DB, emails ...Email) error {
	now := time.Now()
	rows := make([]models.Notification, 0, len(emails))
	for _, e := range emails {
		if e.To == "" {
			continue
		}
		rows = append(rows, models.Notification{
			Recipient:     e.To,
			Subject:       e.Subject,
			Body:          e.Body,
			Status:        models.NotificationPending,
			NextAttemptAt: now,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("enqueue notifications: %w", err)
	}
	return nil
}

// LogSender writes emails to the log instead of sending them. Used when SMTP
// is not configured.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.Log.Info("email not sent, SMTP disabled",
		zap.String("to", to),
		zap.String("subject", subject))
	return nil
}
