package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusConfirmed  BookingStatus = "confirmed"
	StatusInProgress BookingStatus = "in_progress"
	StatusCompleted  BookingStatus = "completed"
	StatusCancelled  BookingStatus = "cancelled"
)

// bookingTransitions lists the states reachable from each state.
// completed and cancelled are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
	StatusCompleted:  nil,
	StatusCancelled:  nil,
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

func (s BookingStatus) Terminal() bool {
	return s.Valid() && len(bookingTransitions[s]) == 0
}

// CanTransition reports whether s may move to next. Staying in the same state
// is always allowed so callers can update notes or dates alone.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	if !next.Valid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ServiceRequest is a consumer's booking ask directed at a provider.
type ServiceRequest struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	RequesterID     uint          `json:"requesterId" gorm:"index;not null"`
	Requester       User          `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	ProviderID      uint          `json:"providerId" gorm:"index;not null"`
	Provider        Provider      `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	CategoryID      *uint         `json:"categoryId"`
	Title           string        `json:"title" gorm:"not null"`
	Description     string        `json:"description"`
	Location        string        `json:"location"`
	Notes           string        `json:"notes"`
	ScheduledDate   string        `json:"scheduledDate"` // "YYYY-MM-DD"
	ScheduledTime   string        `json:"scheduledTime"` // "HH:MM"
	ConfirmedDate   string        `json:"confirmedDate"`
	ConfirmedTime   string        `json:"confirmedTime"`
	Status          BookingStatus `json:"status" gorm:"not null;index"`
	TotalCents      *int64        `json:"totalCents"`
	PaymentIntentID *string       `json:"paymentIntentId" gorm:"uniqueIndex"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

func (r *ServiceRequest) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = StatusPending
	}
	if !r.Status.Valid() {
		return fmt.Errorf("invalid booking status %q", r.Status)
	}
	return nil
}

// IsParty reports whether userID is the requester or the user who owns the
// linked provider. Provider must be loaded.
func (r *ServiceRequest) IsParty(userID uint) bool {
	if userID == 0 {
		return false
	}
	return r.RequesterID == userID || (r.Provider.ID != 0 && r.Provider.UserID == userID)
}
