package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/referencias-locales/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultBatchSize = 50
	// claimLease is how long a claimed row stays invisible to other
	// dispatchers. A row left in sending past its lease is picked up again.
	claimLease  = 5 * time.Minute
	baseBackoff = 30 * time.Second
	maxBackoff  = 1 * time.Hour
)

var dispatchable = []models.NotificationStatus{models.NotificationPending, models.NotificationSending}

type Dispatcher struct {
	db          *gorm.DB
	sender      Sender
	log         *zap.Logger
	maxAttempts int
	batchSize   int
	nowF        func() time.Time
}

func NewDispatcher(db *gorm.DB, sender Sender, log *zap.Logger, maxAttempts int) *Dispatcher {
	return &Dispatcher{
		db:          db,
		sender:      sender,
		log:         log,
		maxAttempts: maxAttempts,
		batchSize:   defaultBatchSize,
		nowF:        time.Now,
	}
}

// Result summarises one dispatch pass.
type Result struct {
	Sent    int
	Retried int
	Failed  int
}

// DispatchPending sends due notifications once. Each row is claimed (moved to
// sending) before the send, marked sent on success, and put back to pending
// with exponential backoff on failure until maxAttempts, after which it is
// marked failed.
func (d *Dispatcher) DispatchPending(ctx context.Context) (Result, error) {
	var res Result
	now := d.nowF()

	var due []models.Notification
	if err := d.db.WithContext(ctx).
		Where("status IN ? AND next_attempt_at <= ?", dispatchable, now).
		Order("next_attempt_at").
		Limit(d.batchSize).
		Find(&due).Error; err != nil {
		return res, fmt.Errorf("load due notifications: %w", err)
	}

	for i := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		n := &due[i]

		if n.Attempts >= d.maxAttempts {
			// Every claim so far ended without a recorded outcome.
			abandoned, err := d.abandon(ctx, n, now)
			if err != nil {
				return res, err
			}
			if abandoned {
				res.Failed++
			}
			continue
		}

		claimed, err := d.claim(ctx, n, now)
		if err != nil {
			return res, err
		}
		if !claimed {
			continue
		}
		n.Attempts++

		sendErr := d.sender.Send(ctx, n.Recipient, n.Subject, n.Body)
		if sendErr == nil {
			sentAt := d.nowF()
			if err := d.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).
				Updates(map[string]interface{}{
					"status":  models.NotificationSent,
					"sent_at": sentAt,
				}).Error; err != nil {
				return res, fmt.Errorf("mark notification %d sent: %w", n.ID, err)
			}
			res.Sent++
			continue
		}

		attempts := n.Attempts
		updates := map[string]interface{}{
			"status":     models.NotificationPending,
			"last_error": sendErr.Error(),
		}
		if attempts >= d.maxAttempts {
			updates["status"] = models.NotificationFailed
			res.Failed++
			d.log.Error("notification permanently failed",
				zap.Uint("notification_id", n.ID),
				zap.String("to", n.Recipient),
				zap.Int("attempts", attempts),
				zap.Error(sendErr))
		} else {
			updates["next_attempt_at"] = d.nowF().Add(Backoff(attempts))
			res.Retried++
			d.log.Warn("notification send failed, will retry",
				zap.Uint("notification_id", n.ID),
				zap.Int("attempts", attempts),
				zap.Error(sendErr))
		}
		if err := d.db.WithContext(ctx).Model(&models.Notification{}).Where("id = ?", n.ID).
			Updates(updates).Error; err != nil {
			return res, fmt.Errorf("record notification %d failure: %w", n.ID, err)
		}
	}
	return res, nil
}

// claim moves a due row to sending and counts the attempt up front, so a
// process that dies mid-send still uses up one of maxAttempts.
func (d *Dispatcher) claim(ctx context.Context, n *models.Notification, now time.Time) (bool, error) {
	tx := d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status IN ? AND attempts = ? AND next_attempt_at <= ?", n.ID, dispatchable, n.Attempts, now).
		Updates(map[string]interface{}{
			"status":          models.NotificationSending,
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": now.Add(claimLease),
		})
	if tx.Error != nil {
		return false, fmt.Errorf("claim notification %d: %w", n.ID, tx.Error)
	}
	return tx.RowsAffected == 1, nil
}

func (d *Dispatcher) abandon(ctx context.Context, n *models.Notification, now time.Time) (bool, error) {
	tx := d.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND status IN ? AND attempts = ? AND next_attempt_at <= ?", n.ID, dispatchable, n.Attempts, now).
		Updates(map[string]interface{}{
			"status":     models.NotificationFailed,
			"last_error": "send did not complete",
		})
	if tx.Error != nil {
		return false, fmt.Errorf("fail notification %d: %w", n.ID, tx.Error)
	}
	if tx.RowsAffected == 1 {
		d.log.Error("notification permanently failed",
			zap.Uint("notification_id", n.ID),
			zap.String("to", n.Recipient),
			zap.Int("attempts", n.Attempts))
		return true, nil
	}
	return false, nil
}

// Backoff returns the delay before retry number attempts (1-based).
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := baseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
