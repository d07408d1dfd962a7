package notify

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/meinhoongagan/referencias-locales/db/dbtest"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Email
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, Email{To: to, Subject: subject, Body: body})
	return nil
}

func TestEnqueue_SkipsEmptyRecipients(t *testing.T) {
	gdb := dbtest.New(t)

	err := Enqueue(gdb,
		Email{To: "ana@example.com", Subject: "hola", Body: "<p>hola</p>"},
		Email{To: "", Subject: "nadie"},
	)
	require.NoError(t, err)

	var rows []models.Notification
	require.NoError(t, gdb.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationPending, rows[0].Status)
	assert.Equal(t, "ana@example.com", rows[0].Recipient)
}

func TestDispatcher_SendsDueNotifications(t *testing.T) {
	gdb := dbtest.New(t)
	sender := &fakeSender{}
	d := NewDispatcher(gdb, sender, zap.NewNop(), 3)

	require.NoError(t, Enqueue(gdb,
		Email{To: "a@example.com", Subject: "a"},
		Email{To: "b@example.com", Subject: "b"},
	))

	res, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Len(t, sender.sent, 2)

	var rows []models.Notification
	require.NoError(t, gdb.Find(&rows).Error)
	for _, r := range rows {
		assert.Equal(t, models.NotificationSent, r.Status)
		assert.Equal(t, 1, r.Attempts)
		assert.NotNil(t, r.SentAt)
	}

	// nothing left to do
	res, err = d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestDispatcher_RetriesThenFails(t *testing.T) {
	gdb := dbtest.New(t)
	sender := &fakeSender{err: errors.New("smtp down")}
	d := NewDispatcher(gdb, sender, zap.NewNop(), 2)

	require.NoError(t, Enqueue(gdb, Email{To: "a@example.com", Subject: "a"}))
	now := time.Now()
	d.nowF = func() time.Time { return now }

	res, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	var n models.Notification
	require.NoError(t, gdb.First(&n).Error)
	assert.Equal(t, models.NotificationPending, n.Status)
	assert.Equal(t, 1, n.Attempts)
	assert.Equal(t, "smtp down", n.LastError)
	assert.True(t, n.NextAttemptAt.After(now))

	// not due yet
	res, err = d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	now = now.Add(Backoff(1) + time.Second)
	res, err = d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)

	require.NoError(t, gdb.First(&n).Error)
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.Equal(t, 2, n.Attempts)
}

func TestDispatcher_ReclaimsStaleSending(t *testing.T) {
	gdb := dbtest.New(t)
	sender := &fakeSender{}
	d := NewDispatcher(gdb, sender, zap.NewNop(), 3)
	now := time.Now()
	d.nowF = func() time.Time { return now }

	stale := models.Notification{
		Recipient:     "a@example.com",
		Subject:       "a",
		Status:        models.NotificationSending,
		NextAttemptAt: now.Add(-time.Minute),
	}
	require.NoError(t, gdb.Create(&stale).Error)
	leased := models.Notification{
		Recipient:     "b@example.com",
		Subject:       "b",
		Status:        models.NotificationSending,
		NextAttemptAt: now.Add(time.Minute),
	}
	require.NoError(t, gdb.Create(&leased).Error)

	res, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a@example.com", sender.sent[0].To)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, Backoff(1))
	assert.Equal(t, 60*time.Second, Backoff(2))
	assert.Equal(t, 120*time.Second, Backoff(3))
	assert.Equal(t, time.Hour, Backoff(20))
}

func TestTemplates_EscapeUserInput(t *testing.T) {
	emails, err := BookingPaidEmails("r@example.com", "p@example.com", BookingData{
		RequesterName: "<script>alert(1)</script>",
		ProviderName:  "Tacos Lupe",
		Title:         "Banquete",
		Amount:        "$500.00 MXN",
	})
	require.NoError(t, err)
	require.Len(t, emails, 2)
	assert.NotContains(t, emails[0].Body, "<script>")
	assert.Contains(t, emails[0].Body, "Tacos Lupe")
	assert.Equal(t, "p@example.com", emails[1].To)
}

// crashingSender ends the dispatching goroutine mid-send, leaving the row
// claimed with no outcome recorded.
type crashingSender struct{}

func (crashingSender) Send(ctx context.Context, to, subject, body string) error {
	runtime.Goexit()
	return nil
}

func TestDispatcher_UnfinishedSendsUseUpAttempts(t *testing.T) {
	gdb := dbtest.New(t)
	require.NoError(t, Enqueue(gdb, Email{To: "a@example.com", Subject: "a"}))

	d := NewDispatcher(gdb, crashingSender{}, zap.NewNop(), 2)
	now := time.Now()
	d.nowF = func() time.Time { return now }

	for i := 1; i <= 2; i++ {
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = d.DispatchPending(context.Background())
		}()
		<-done

		var n models.Notification
		require.NoError(t, gdb.First(&n).Error)
		assert.Equal(t, models.NotificationSending, n.Status)
		assert.Equal(t, i, n.Attempts)
		now = now.Add(claimLease + time.Second)
	}

	sender := &fakeSender{}
	d.sender = sender
	res, err := d.DispatchPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, sender.sent)

	var n models.Notification
	require.NoError(t, gdb.First(&n).Error)
	assert.Equal(t, models.NotificationFailed, n.Status)
	assert.Equal(t, 2, n.Attempts)
}
