package models

import (
	"time"
)

type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSending NotificationStatus = "sending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an outbox row: an email recorded in the same transaction as
// the state change that caused it and delivered later by the dispatcher.
type Notification struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	Recipient     string             `json:"recipient" gorm:"not null"`
	Subject       string             `json:"subject" gorm:"not null"`
	Body          string             `json:"body" gorm:"type:text"`
	Status        NotificationStatus `json:"status" gorm:"not null;index:idx_notification_due,priority:1"`
	Attempts      int                `json:"attempts"`
	LastError     string             `json:"lastError"`
	NextAttemptAt time.Time          `json:"nextAttemptAt" gorm:"index:idx_notification_due,priority:2"`
	SentAt        *time.Time         `json:"sentAt"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
}
