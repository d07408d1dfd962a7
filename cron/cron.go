package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/notify"
	"github.com/meinhoongagan/referencias-locales/setuptoken"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	reminderLead = time.Hour
	jobTimeout   = 50 * time.Second
)

// Jobs holds what the scheduled jobs need.
type Jobs struct {
	DB         *gorm.DB
	Dispatcher *notify.Dispatcher
	// Tokens is swept when the in-memory store is in use; nil otherwise.
	Tokens *setuptoken.MemoryStore
	Log    *zap.Logger
	// Location interprets appointment dates and times. Defaults to time.Local.
	Location *time.Location

	nowF func() time.Time
}

// StartCronJobs schedules outbox delivery and appointment reminders every
// minute, plus a setup-token sweep every five minutes. Stop the returned
// scheduler on shutdown.
func StartCronJobs(j *Jobs) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc("* * * * *", j.runDispatch); err != nil {
		return nil, fmt.Errorf("add dispatch job: %w", err)
	}
	if _, err := c.AddFunc("* * * * *", j.runReminders); err != nil {
		return nil, fmt.Errorf("add reminder job: %w", err)
	}
	if j.Tokens != nil {
		if _, err := c.AddFunc("*/5 * * * *", j.runSweep); err != nil {
			return nil, fmt.Errorf("add token sweep job: %w", err)
		}
	}
	c.Start()
	j.Log.Info("cron job scheduler started")
	return c, nil
}

func (j *Jobs) runDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	res, err := j.Dispatcher.DispatchPending(ctx)
	if err != nil {
		j.Log.Error("notification dispatch failed", zap.Error(err))
	}
	if res.Sent+res.Retried+res.Failed > 0 {
		j.Log.Info("notifications dispatched",
			zap.Int("sent", res.Sent),
			zap.Int("retried", res.Retried),
			zap.Int("failed", res.Failed))
	}
}

func (j *Jobs) runReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := j.SendAppointmentReminders(ctx)
	if err != nil {
		j.Log.Error("appointment reminders failed", zap.Error(err))
		return
	}
	if n > 0 {
		j.Log.Info("appointment reminders queued", zap.Int("count", n))
	}
}

func (j *Jobs) runSweep() {
	if n := j.Tokens.Sweep(); n > 0 {
		j.Log.Info("expired setup tokens removed", zap.Int("count", n))
	}
}

func (j *Jobs) now() time.Time {
	if j.nowF != nil {
		return j.nowF()
	}
	return time.Now()
}

func (j *Jobs) location() *time.Location {
	if j.Location != nil {
		return j.Location
	}
	return time.Local
}

// SendAppointmentReminders queues one reminder email per scheduled appointment
// starting within the next hour and reports how many were queued.
func (j *Jobs) SendAppointmentReminders(ctx context.Context) (int, error) {
	loc := j.location()
	now := j.now().In(loc)
	until := now.Add(reminderLead)

	dates := []string{now.Format("2006-01-02")}
	if d := until.Format("2006-01-02"); d != dates[0] {
		dates = append(dates, d)
	}

	var candidates []models.Appointment
	if err := j.DB.WithContext(ctx).
		Preload("Requester").Preload("Provider").Preload("ServiceRequest").
		Where("status = ? AND reminder_sent_at IS NULL AND date IN ?", models.AppointmentScheduled, dates).
		Find(&candidates).Error; err != nil {
		return 0, fmt.Errorf("load appointments for reminders: %w", err)
	}

	queued := 0
	for i := range candidates {
		appt := &candidates[i]
		start, ok := appt.StartsAt(loc)
		if !ok || start.Before(now) || start.After(until) {
			continue
		}
		sent, err := j.queueReminder(ctx, appt, now)
		if err != nil {
			j.Log.Error("queue reminder", zap.Uint("appointment_id", appt.ID), zap.Error(err))
			continue
		}
		if sent {
			queued++
		}
	}
	return queued, nil
}

// queueReminder marks the appointment reminded and enqueues the email in one
// transaction. It returns false when another run got there first.
func (j *Jobs) queueReminder(ctx context.Context, appt *models.Appointment, now time.Time) (bool, error) {
	title := "tu cita"
	location := ""
	if appt.ServiceRequest != nil {
		title = appt.ServiceRequest.Title
		location = appt.ServiceRequest.Location
	}
	email, err := notify.ReminderEmail(appt.Requester.Email, notify.BookingData{
		RequesterName: appt.Requester.Name,
		ProviderName:  appt.Provider.BusinessName,
		Title:         title,
		Date:          appt.Date,
		Time:          appt.StartTime,
		EndTime:       appt.EndTime,
		Location:      location,
	})
	if err != nil {
		return false, err
	}

	marked := false
	err = j.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Appointment{}).
			Where("id = ? AND reminder_sent_at IS NULL", appt.ID).
			Update("reminder_sent_at", now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		marked = true
		return notify.Enqueue(tx, email)
	})
	return marked, err
}
