package booking_test

import (
	"context"
	"errors"
	"testing"

	"github.com/meinhoongagan/referencias-locales/booking"
	"github.com/meinhoongagan/referencias-locales/db/dbtest"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db        *gorm.DB
	mgr       *booking.Manager
	requester models.User
	owner     models.User
	stranger  models.User
	provider  models.Provider
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	f := &fixture{db: db, mgr: booking.NewManager(db)}

	f.requester = models.User{Name: "Ana", Email: "ana@example.com", Password: "x"}
	f.owner = models.User{Name: "Luis", Email: "luis@example.com", Password: "x", IsProvider: true}
	f.stranger = models.User{Name: "Eva", Email: "eva@example.com", Password: "x"}
	require.NoError(t, db.Create(&f.requester).Error)
	require.NoError(t, db.Create(&f.owner).Error)
	require.NoError(t, db.Create(&f.stranger).Error)

	f.provider = models.Provider{UserID: f.owner.ID, BusinessName: "Plomería Luis", Slug: "plomeria-luis", IsActive: true}
	require.NoError(t, db.Create(&f.provider).Error)
	return f
}

func (f *fixture) request(t *testing.T, status models.BookingStatus) *models.ServiceRequest {
	t.Helper()
	sr := &models.ServiceRequest{
		RequesterID:   f.requester.ID,
		ProviderID:    f.provider.ID,
		Title:         "Fuga en la cocina",
		ScheduledDate: "2026-11-02",
		ScheduledTime: "10:00",
		Status:        status,
	}
	require.NoError(t, f.db.Create(sr).Error)
	return sr
}

func statusPtr(s models.BookingStatus) *models.BookingStatus { return &s }

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	sr, err := f.mgr.Create(ctx, f.requester.ID, booking.NewRequest{ProviderID: f.provider.ID, Title: "Revisión"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sr.Status)

	_, err = f.mgr.Create(ctx, f.owner.ID, booking.NewRequest{ProviderID: f.provider.ID, Title: "Yo mismo"})
	assert.ErrorIs(t, err, booking.ErrSelfBooking)

	_, err = f.mgr.Create(ctx, f.requester.ID, booking.NewRequest{ProviderID: 999, Title: "Nadie"})
	assert.ErrorIs(t, err, booking.ErrProviderNotFound)
}

func TestUpdateStatusForbiddenForThirdParty(t *testing.T) {
	f := setup(t)
	for _, st := range []models.BookingStatus{models.StatusPending, models.StatusConfirmed, models.StatusCompleted} {
		sr := f.request(t, st)
		// Even an invalid target status yields forbidden for outsiders.
		for _, target := range []models.BookingStatus{models.StatusConfirmed, "bogus"} {
			_, err := f.mgr.UpdateStatus(context.Background(), sr.ID, f.stranger.ID,
				booking.StatusUpdate{Status: statusPtr(target)})
			assert.ErrorIs(t, err, booking.ErrForbidden, "from %s to %s", st, target)
		}
		var reloaded models.ServiceRequest
		require.NoError(t, f.db.First(&reloaded, sr.ID).Error)
		assert.Equal(t, st, reloaded.Status)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sr := f.request(t, models.StatusPending)

	date, tm := "2026-11-03", "09:30"
	got, err := f.mgr.UpdateStatus(ctx, sr.ID, f.owner.ID, booking.StatusUpdate{
		Status:        statusPtr(models.StatusConfirmed),
		ConfirmedDate: &date,
		ConfirmedTime: &tm,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, "2026-11-03", got.ConfirmedDate)

	// Requester may move it too.
	_, err = f.mgr.UpdateStatus(ctx, sr.ID, f.requester.ID, booking.StatusUpdate{Status: statusPtr(models.StatusInProgress)})
	require.NoError(t, err)

	_, err = f.mgr.UpdateStatus(ctx, sr.ID, f.owner.ID, booking.StatusUpdate{Status: statusPtr(models.StatusPending)})
	assert.ErrorIs(t, err, booking.ErrInvalidTransition)

	_, err = f.mgr.UpdateStatus(ctx, sr.ID, f.owner.ID, booking.StatusUpdate{Status: statusPtr("archived")})
	assert.ErrorIs(t, err, booking.ErrInvalidStatus)

	_, err = f.mgr.UpdateStatus(ctx, sr.ID, f.owner.ID, booking.StatusUpdate{Status: statusPtr(models.StatusCompleted)})
	require.NoError(t, err)

	var reloaded models.ServiceRequest
	require.NoError(t, f.db.First(&reloaded, sr.ID).Error)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)
	assert.Equal(t, "09:30", reloaded.ConfirmedTime)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := setup(t)
	_, err := f.mgr.UpdateStatus(context.Background(), 4242, f.owner.ID,
		booking.StatusUpdate{Status: statusPtr(models.StatusConfirmed)})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestUpdateStatusNotesOnly(t *testing.T) {
	f := setup(t)
	sr := f.request(t, models.StatusCompleted)
	notes := "Cliente muy amable"
	got, err := f.mgr.UpdateStatus(context.Background(), sr.ID, f.owner.ID, booking.StatusUpdate{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, notes, got.Notes)
}

func TestList(t *testing.T) {
	f := setup(t)
	f.request(t, models.StatusPending)
	f.request(t, models.StatusConfirmed)

	mine, total, err := f.mgr.List(context.Background(), f.requester.ID, booking.AsRequester, "", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, mine, 2)

	incoming, total, err := f.mgr.List(context.Background(), f.owner.ID, booking.AsProvider, models.StatusConfirmed, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, incoming, 1)
	assert.Equal(t, models.StatusConfirmed, incoming[0].Status)

	none, total, err := f.mgr.List(context.Background(), f.stranger.ID, booking.AsRequester, "", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)

	_, _, err = f.mgr.List(context.Background(), f.requester.ID, booking.AsRequester, "weird", 10, 0)
	assert.ErrorIs(t, err, booking.ErrInvalidStatus)
}

func TestScheduleAppointment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pending := f.request(t, models.StatusPending)
	_, err := f.mgr.ScheduleAppointment(ctx, f.requester.ID, booking.NewAppointment{ServiceRequestID: pending.ID})
	assert.ErrorIs(t, err, booking.ErrNotSchedulable)

	sr := f.request(t, models.StatusConfirmed)
	_, err = f.mgr.ScheduleAppointment(ctx, f.stranger.ID, booking.NewAppointment{ServiceRequestID: sr.ID})
	assert.ErrorIs(t, err, booking.ErrForbidden)

	appt, err := f.mgr.ScheduleAppointment(ctx, f.requester.ID, booking.NewAppointment{ServiceRequestID: sr.ID})
	require.NoError(t, err)
	assert.Equal(t, "2026-11-02", appt.Date)
	assert.Equal(t, "10:00", appt.StartTime)
	assert.Equal(t, "11:00", appt.EndTime)
	assert.Equal(t, models.AppointmentScheduled, appt.Status)

	var queued int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&queued).Error)
	assert.EqualValues(t, 2, queued)

	_, err = f.mgr.ScheduleAppointment(ctx, f.owner.ID, booking.NewAppointment{ServiceRequestID: sr.ID, StartTime: "15:00"})
	assert.ErrorIs(t, err, booking.ErrAppointmentExists)
}

func TestScheduleAppointmentLosesRace(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sr := f.request(t, models.StatusConfirmed)

	// Another request inserts its appointment between the existence check
	// and this insert.
	raced := false
	require.NoError(t, f.db.Callback().Create().Before("gorm:create").Register("test:rival_appointment", func(tx *gorm.DB) {
		appt, ok := tx.Statement.Dest.(*models.Appointment)
		if !ok || raced {
			return
		}
		raced = true
		rival := models.Appointment{
			ServiceRequestID: appt.ServiceRequestID,
			ProviderID:       appt.ProviderID,
			RequesterID:      appt.RequesterID,
			Date:             appt.Date,
			StartTime:        "18:00",
			EndTime:          "19:00",
			Status:           models.AppointmentScheduled,
		}
		_ = tx.AddError(tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error)
	}))

	_, err := f.mgr.ScheduleAppointment(ctx, f.requester.ID, booking.NewAppointment{ServiceRequestID: sr.ID})
	assert.True(t, raced)
	assert.ErrorIs(t, err, booking.ErrAppointmentExists)
}

func TestScheduleAppointmentSlotChecks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// 2026-11-02 is a Monday.
	require.NoError(t, f.db.Create(&models.Availability{
		ProviderID: f.provider.ID, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "13:00",
	}).Error)

	first := f.request(t, models.StatusConfirmed)
	_, err := f.mgr.ScheduleAppointment(ctx, f.owner.ID, booking.NewAppointment{ServiceRequestID: first.ID})
	require.NoError(t, err)

	overlapping := f.request(t, models.StatusConfirmed)
	_, err = f.mgr.ScheduleAppointment(ctx, f.owner.ID, booking.NewAppointment{ServiceRequestID: overlapping.ID, StartTime: "10:30"})
	assert.ErrorIs(t, err, booking.ErrSlotTaken)

	_, err = f.mgr.ScheduleAppointment(ctx, f.owner.ID, booking.NewAppointment{ServiceRequestID: overlapping.ID, StartTime: "12:30"})
	assert.ErrorIs(t, err, booking.ErrOutsideAvailability)

	_, err = f.mgr.ScheduleAppointment(ctx, f.owner.ID, booking.NewAppointment{ServiceRequestID: overlapping.ID, StartTime: "25:00"})
	assert.ErrorIs(t, err, booking.ErrInvalidSchedule)

	appt, err := f.mgr.ScheduleAppointment(ctx, f.owner.ID, booking.NewAppointment{ServiceRequestID: overlapping.ID, StartTime: "11:00", EndTime: "12:00"})
	require.NoError(t, err)
	assert.Equal(t, "11:00", appt.StartTime)
}

func TestUpdateAppointmentStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	sr := f.request(t, models.StatusConfirmed)
	appt, err := f.mgr.ScheduleAppointment(ctx, f.requester.ID, booking.NewAppointment{ServiceRequestID: sr.ID})
	require.NoError(t, err)

	_, err = f.mgr.UpdateAppointmentStatus(ctx, appt.ID, f.stranger.ID, models.AppointmentCancelled)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	got, err := f.mgr.UpdateAppointmentStatus(ctx, appt.ID, f.owner.ID, models.AppointmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCompleted, got.Status)

	_, err = f.mgr.UpdateAppointmentStatus(ctx, appt.ID, f.owner.ID, models.AppointmentCancelled)
	assert.True(t, errors.Is(err, booking.ErrInvalidTransition))

	_, err = f.mgr.UpdateAppointmentStatus(ctx, 999, f.owner.ID, models.AppointmentCancelled)
	assert.ErrorIs(t, err, booking.ErrAppointmentNotFound)

	list, total, err := f.mgr.ListAppointments(ctx, f.owner.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}
