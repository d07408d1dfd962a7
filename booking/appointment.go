package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/notify"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAppointmentExists   = errors.New("service request already has an appointment")
	ErrNotSchedulable      = errors.New("service request is not confirmed")
	ErrOutsideAvailability = errors.New("time is outside the provider's availability")
	ErrSlotTaken           = errors.New("provider already has an appointment at that time")
	ErrInvalidSchedule     = errors.New("invalid appointment date or time")
)

const defaultAppointmentLength = time.Hour

// NewAppointment schedules a confirmed service request. Empty date and start
// fall back to the confirmed, then the requested, date and time of the request.
type NewAppointment struct {
	ServiceRequestID uint
	Date             string
	StartTime        string
	EndTime          string
	Notes            string
}

// ScheduleAppointment creates the appointment for a confirmed or in-progress
// request and queues the confirmation emails in the same transaction.
func (m *Manager) ScheduleAppointment(ctx context.Context, actingUserID uint, in NewAppointment) (*models.Appointment, error) {
	var out *models.Appointment
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sr, err := m.load(tx, in.ServiceRequestID)
		if err != nil {
			return err
		}
		if err := Authorize(sr, actingUserID); err != nil {
			return err
		}
		if sr.Status != models.StatusConfirmed && sr.Status != models.StatusInProgress {
			return ErrNotSchedulable
		}

		var existing int64
		if err := tx.Model(&models.Appointment{}).
			Where("service_request_id = ?", sr.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("check existing appointment: %w", err)
		}
		if existing > 0 {
			return ErrAppointmentExists
		}

		appt, err := buildAppointment(sr, in)
		if err != nil {
			return err
		}
		if err := checkAvailability(tx, appt); err != nil {
			return err
		}

		if err := tx.Create(appt).Error; err != nil {
			// A concurrent insert loses on the unique index. The transaction
			// is unusable after that on Postgres, so no follow-up query.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAppointmentExists
			}
			return fmt.Errorf("create appointment: %w", err)
		}

		emails, err := notify.AppointmentEmails(sr.Requester.Email, sr.Provider.User.Email, notify.BookingData{
			RequesterName: sr.Requester.Name,
			ProviderName:  sr.Provider.BusinessName,
			Title:         sr.Title,
			Date:          appt.Date,
			Time:          appt.StartTime,
			EndTime:       appt.EndTime,
		})
		if err != nil {
			return fmt.Errorf("render appointment emails: %w", err)
		}
		if err := notify.Enqueue(tx, emails...); err != nil {
			return err
		}

		appt.ServiceRequest = sr
		out = appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func buildAppointment(sr *models.ServiceRequest, in NewAppointment) (*models.Appointment, error) {
	date := firstNonEmpty(in.Date, sr.ConfirmedDate, sr.ScheduledDate)
	start := firstNonEmpty(in.StartTime, sr.ConfirmedTime, sr.ScheduledTime)
	if date == "" || start == "" {
		return nil, ErrInvalidSchedule
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, ErrInvalidSchedule
	}
	startAt, err := time.Parse("15:04", start)
	if err != nil {
		return nil, ErrInvalidSchedule
	}

	end := in.EndTime
	if end == "" {
		endAt := startAt.Add(defaultAppointmentLength)
		if endAt.Day() != startAt.Day() {
			end = "23:59"
		} else {
			end = endAt.Format("15:04")
		}
	}
	endAt, err := time.Parse("15:04", end)
	if err != nil || !endAt.After(startAt) {
		return nil, ErrInvalidSchedule
	}

	return &models.Appointment{
		ServiceRequestID: sr.ID,
		ProviderID:       sr.ProviderID,
		RequesterID:      sr.RequesterID,
		Date:             date,
		StartTime:        startAt.Format("15:04"),
		EndTime:          endAt.Format("15:04"),
		Status:           models.AppointmentScheduled,
		Notes:            in.Notes,
	}, nil
}

// checkAvailability rejects appointments outside the provider's weekly
// windows (when any are configured) and overlaps with other scheduled
// appointments of the same provider.
func checkAvailability(tx *gorm.DB, appt *models.Appointment) error {
	var slots []models.Availability
	if err := tx.Where("provider_id = ?", appt.ProviderID).Find(&slots).Error; err != nil {
		return fmt.Errorf("load availability: %w", err)
	}
	if len(slots) > 0 {
		day, _ := time.Parse("2006-01-02", appt.Date)
		weekday := models.DayOfWeek(day.Weekday())
		covered := false
		for _, s := range slots {
			if s.Covers(weekday, appt.StartTime, appt.EndTime) {
				covered = true
				break
			}
		}
		if !covered {
			return ErrOutsideAvailability
		}
	}

	var overlapping int64
	if err := tx.Model(&models.Appointment{}).
		Where("provider_id = ? AND date = ? AND status = ? AND start_time < ? AND end_time > ?",
			appt.ProviderID, appt.Date, models.AppointmentScheduled, appt.EndTime, appt.StartTime).
		Count(&overlapping).Error; err != nil {
		return fmt.Errorf("check overlapping appointments: %w", err)
	}
	if overlapping > 0 {
		return ErrSlotTaken
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ListAppointments returns appointments where the user is the requester or
// owns the provider, soonest first.
func (m *Manager) ListAppointments(ctx context.Context, actingUserID uint, limit, offset int) ([]models.Appointment, int64, error) {
	q := m.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("requester_id = ? OR provider_id IN (?)", actingUserID,
			m.db.Model(&models.Provider{}).Select("id").Where("user_id = ?", actingUserID))

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}
	var out []models.Appointment
	if err := q.Preload("Provider").Preload("Requester").
		Order("date, start_time").Limit(limit).Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	return out, total, nil
}

// UpdateAppointmentStatus completes or cancels a scheduled appointment.
func (m *Manager) UpdateAppointmentStatus(ctx context.Context, appointmentID, actingUserID uint, status models.AppointmentStatus) (*models.Appointment, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	var out *models.Appointment
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var appt models.Appointment
		err := tx.Preload("Provider").First(&appt, appointmentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAppointmentNotFound
		}
		if err != nil {
			return fmt.Errorf("load appointment %d: %w", appointmentID, err)
		}
		if appt.RequesterID != actingUserID && appt.Provider.UserID != actingUserID {
			return ErrForbidden
		}
		if err := appt.UpdateStatus(tx, status); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
		}
		out = &appt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
