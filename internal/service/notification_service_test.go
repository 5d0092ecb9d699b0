package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/jobs"
)

type notifStore struct {
	mu    sync.Mutex
	items map[string]*models.Notification
	order []string
}

func newNotifStore(notifs ...models.Notification) *notifStore {
	s := &notifStore{items: make(map[string]*models.Notification)}
	for i := range notifs {
		n := notifs[i]
		s.items[n.ID] = &n
		s.order = append(s.order, n.ID)
	}
	return s
}

func (s *notifStore) ListByAppointment(_ context.Context, appointmentID string) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, id := range s.order {
		if n := s.items[id]; n.AppointmentID == appointmentID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *notifStore) ListPending(_ context.Context, _ int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, id := range s.order {
		if n := s.items[id]; n.SentStatus == models.SentPending {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *notifStore) FindByID(_ context.Context, id string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *n
	return &copied, nil
}

func (s *notifStore) UpdateSentStatus(_ context.Context, id string, status models.SentStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok || n.SentStatus != models.SentPending {
		return false, nil
	}
	n.SentStatus = status
	return true, nil
}

func (s *notifStore) status(id string) models.SentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].SentStatus
}

type recordingSender struct {
	mu   sync.Mutex
	sent []models.Notification
	fail bool
}

func (r *recordingSender) Send(_ context.Context, notif models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return assert.AnError
	}
	r.sent = append(r.sent, notif)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func pendingNotification(id, appointmentID string) models.Notification {
	return models.Notification{
		ID:            id,
		AppointmentID: appointmentID,
		Message:       "Appointment requested for 2026-09-07 09:00-09:30",
		SentStatus:    models.SentPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestNotificationListForAppointment(t *testing.T) {
	appts := newApptStore()
	appt := &models.Appointment{StudentID: "s1", FacultyID: "f1", Date: "2026-09-07", StartTime: "09:00", EndTime: "09:30", Status: models.StatusRequested}
	require.NoError(t, appts.CreateWithNotification(context.Background(), appt, &models.Notification{Message: "m"}))

	store := newNotifStore(pendingNotification("n1", appt.ID))
	svc := NewNotificationService(store, appts, nil, nil, nil)

	notifs, err := svc.ListForAppointment(context.Background(), student, appt.ID)
	require.NoError(t, err)
	assert.Len(t, notifs, 1)

	_, err = svc.ListForAppointment(context.Background(), Actor{ID: "s2", Role: models.RoleStudent}, appt.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.ListForAppointment(context.Background(), admin, "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestNotificationMarkSent(t *testing.T) {
	store := newNotifStore(pendingNotification("n1", "a1"))
	svc := NewNotificationService(store, newApptStore(), nil, nil, nil)

	require.NoError(t, svc.MarkSent(context.Background(), "n1"))
	assert.Equal(t, models.SentOK, store.status("n1"))

	// Already sent: the guarded update matches nothing.
	err := svc.MarkFailed(context.Background(), "n1")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	err = svc.MarkSent(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestNotificationDispatcherDelivers(t *testing.T) {
	store := newNotifStore(pendingNotification("n1", "a1"), pendingNotification("n2", "a1"))
	sender := &recordingSender{}
	svc := NewNotificationService(store, newApptStore(), sender, nil, nil)

	svc.StartDispatcher(context.Background(), 10*time.Millisecond, jobs.QueueConfig{Workers: 2})
	defer svc.StopDispatcher()

	assert.Eventually(t, func() bool {
		return store.status("n1") == models.SentOK && store.status("n2") == models.SentOK
	}, 2*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, sender.count(), 2)
}

func TestNotificationDispatcherLeavesFailedPending(t *testing.T) {
	store := newNotifStore(pendingNotification("n1", "a1"))
	sender := &recordingSender{fail: true}
	svc := NewNotificationService(store, newApptStore(), sender, nil, nil)

	svc.StartDispatcher(context.Background(), 10*time.Millisecond, jobs.QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond})
	time.Sleep(100 * time.Millisecond)
	svc.StopDispatcher()

	// Delivery never succeeded, so the row stays pending for a later sweep.
	assert.Equal(t, models.SentPending, store.status("n1"))
}
