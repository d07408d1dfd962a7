package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentScheduled, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

// Appointment is the time-boxed commitment derived from a confirmed service
// request. There is at most one per service request.
type Appointment struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	ServiceRequestID uint              `json:"serviceRequestId" gorm:"uniqueIndex;not null"`
	ServiceRequest   *ServiceRequest   `json:"serviceRequest,omitempty" gorm:"foreignKey:ServiceRequestID"`
	ProviderID       uint              `json:"providerId" gorm:"index;not null"`
	Provider         Provider          `json:"provider,omitempty" gorm:"foreignKey:ProviderID"`
	RequesterID      uint              `json:"requesterId" gorm:"index;not null"`
	Requester        User              `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Date             string            `json:"date"`      // "YYYY-MM-DD"
	StartTime        string            `json:"startTime"` // "HH:MM"
	EndTime          string            `json:"endTime"`   // "HH:MM"
	Status           AppointmentStatus `json:"status" gorm:"not null;index"`
	Notes            string            `json:"notes"`
	ReminderSentAt   *time.Time        `json:"-"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.Status == "" {
		a.Status = AppointmentScheduled
	}
	return nil
}

// UpdateStatus moves a scheduled appointment to completed or cancelled.
func (a *Appointment) UpdateStatus(tx *gorm.DB, newStatus AppointmentStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("invalid appointment status %q", newStatus)
	}
	if a.Status != AppointmentScheduled {
		return fmt.Errorf("no transitions allowed from %s", a.Status)
	}
	if newStatus == AppointmentScheduled {
		return nil
	}
	a.Status = newStatus
	return tx.Model(a).Update("status", newStatus).Error
}

// StartsAt returns the appointment start in loc, or false when date or time
// cannot be parsed.
func (a *Appointment) StartsAt(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.StartTime, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
