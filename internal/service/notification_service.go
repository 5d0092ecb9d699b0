package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/jobs"
)

type notificationRepository interface {
	ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error)
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	UpdateSentStatus(ctx context.Context, id string, status models.SentStatus) (bool, error)
}

type notificationAppointmentLookup interface {
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
}

// Sender delivers a notification over some external channel. The engine only
// records triggers; delivery transport lives behind this interface.
type Sender interface {
	Send(ctx context.Context, notif models.Notification) error
}

// LogSender is the default Sender. It writes the notification to the
// application log, which is delivery enough for a single-campus deployment.
type LogSender struct {
	Logger *zap.Logger
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, notif models.Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.L()
	}
	logger.Info("notification delivered",
		zap.String("notification_id", notif.ID),
		zap.String("appointment_id", notif.AppointmentID),
		zap.String("message", notif.Message),
	)
	return nil
}

// NotificationService reads the notification outbox and drives delivery
// through a background queue.
type NotificationService struct {
	repo         notificationRepository
	appointments notificationAppointmentLookup
	sender       Sender
	metrics      *BookingMetrics
	logger       *zap.Logger

	queue        *jobs.Queue
	pollInterval time.Duration
	pollDone     chan struct{}
	pollStop     context.CancelFunc
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, appointments notificationAppointmentLookup, sender Sender, metrics *BookingMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	return &NotificationService{
		repo:         repo,
		appointments: appointments,
		sender:       sender,
		metrics:      metrics,
		logger:       logger,
	}
}

// ListForAppointment returns the notification history of one appointment,
// visible only to its participants.
func (s *NotificationService) ListForAppointment(ctx context.Context, actor Actor, appointmentID string) ([]models.Notification, error) {
	appt, err := s.appointments.FindByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if !actor.admin() && actor.ID != appt.StudentID && actor.ID != appt.FacultyID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this appointment")
	}
	notifications, err := s.repo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// ListPending returns undelivered notifications. Admin only; RBAC enforced at
// the route level.
func (s *NotificationService) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	notifications, err := s.repo.ListPending(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending notifications")
	}
	return notifications, nil
}

// MarkSent records delivery of a pending notification.
func (s *NotificationService) MarkSent(ctx context.Context, id string) error {
	return s.mark(ctx, id, models.SentOK)
}

// MarkFailed records a permanent delivery failure of a pending notification.
func (s *NotificationService) MarkFailed(ctx context.Context, id string) error {
	return s.mark(ctx, id, models.SentFailed)
}

func (s *NotificationService) mark(ctx context.Context, id string, status models.SentStatus) error {
	updated, err := s.repo.UpdateSentStatus(ctx, id, status)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notification")
	}
	if !updated {
		if _, err := s.repo.FindByID(ctx, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
		}
		return appErrors.Clone(appErrors.ErrConflict, "notification is no longer pending")
	}
	if s.metrics != nil {
		switch status {
		case models.SentOK:
			s.metrics.NotificationsSent.Inc()
		case models.SentFailed:
			s.metrics.NotificationsFailed.Inc()
		}
	}
	return nil
}

// StartDispatcher launches the background delivery loop: a poller sweeps
// pending rows onto the queue and workers hand each one to the Sender.
func (s *NotificationService) StartDispatcher(ctx context.Context, pollInterval time.Duration, cfg jobs.QueueConfig) {
	if s.queue != nil {
		return
	}
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	cfg.Logger = s.logger
	s.pollInterval = pollInterval
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	s.queue.Start(ctx)

	pollCtx, cancel := context.WithCancel(ctx)
	s.pollStop = cancel
	s.pollDone = make(chan struct{})
	go s.poll(pollCtx)
}

// StopDispatcher stops the poller and drains queue workers.
func (s *NotificationService) StopDispatcher() {
	if s.queue == nil {
		return
	}
	s.pollStop()
	<-s.pollDone
	s.queue.Stop()
	s.queue = nil
}

func (s *NotificationService) poll(ctx context.Context) {
	defer close(s.pollDone)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		s.sweep(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *NotificationService) sweep(ctx context.Context) {
	pending, err := s.repo.ListPending(ctx, 0)
	if err != nil {
		s.logger.Error("failed to sweep pending notifications", zap.Error(err))
		return
	}
	for _, notif := range pending {
		job := jobs.Job{ID: notif.ID, Type: "deliver", Payload: notif}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue notification", zap.String("notification_id", notif.ID), zap.Error(err))
			return
		}
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	notif, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	if err := s.sender.Send(ctx, notif); err != nil {
		// Let the queue retry; the row stays pending so a later sweep can
		// also pick it up if the retries run out.
		return fmt.Errorf("send notification %s: %w", notif.ID, err)
	}
	updated, err := s.repo.UpdateSentStatus(ctx, notif.ID, models.SentOK)
	if err != nil {
		return fmt.Errorf("mark notification %s sent: %w", notif.ID, err)
	}
	if updated && s.metrics != nil {
		s.metrics.NotificationsSent.Inc()
	}
	return nil
}

// notificationMessage renders the outbox message for a lifecycle event.
func notificationMessage(event models.LifecycleEvent, appt *models.Appointment) string {
	slot := fmt.Sprintf("%s %s-%s", appt.Date, appt.StartTime, appt.EndTime)
	switch event {
	case models.EventCreated:
		return fmt.Sprintf("Appointment requested for %s", slot)
	case models.EventConfirmed:
		return fmt.Sprintf("Appointment confirmed for %s", slot)
	case models.EventCancelled:
		return fmt.Sprintf("Appointment on %s was cancelled", slot)
	case models.EventCompleted:
		return fmt.Sprintf("Appointment on %s was completed", slot)
	case models.EventRejected:
		return fmt.Sprintf("Appointment request for %s was declined", slot)
	default:
		return fmt.Sprintf("Appointment on %s was updated", slot)
	}
}
