package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/repository"
	appErrors "github.com/AbhishikthMudutanapalli/university-appointment-system/pkg/errors"
)

type schedulingAppointmentRepository interface {
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ListBlockingForSlot(ctx context.Context, facultyID, date string) ([]models.Appointment, error)
	CreateWithNotification(ctx context.Context, appt *models.Appointment, notif *models.Notification) error
	TransitionWithNotification(ctx context.Context, appt *models.Appointment, expected models.AppointmentStatus, notif *models.Notification) error
}

type slotIndex interface {
	IsOpen(ctx context.Context, facultyID string, day models.Weekday, start, end int) (bool, error)
}

type schedulingUserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type slotLocker interface {
	Acquire(ctx context.Context, key string, timeout time.Duration) (func(), bool)
}

// Clock supplies the current time. Injected so the completion guard and
// past-date validation are testable.
type Clock func() time.Time

// Actor identifies the authenticated caller for authorization checks.
type Actor struct {
	ID   string
	Role models.UserRole
}

func (a Actor) admin() bool { return a.Role == models.RoleAdmin }

// CreateAppointmentRequest is the booking payload. StudentID is only honoured
// for admins booking on a student's behalf.
type CreateAppointmentRequest struct {
	FacultyID string `json:"faculty_id" validate:"required"`
	StudentID string `json:"student_id"`
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
	Purpose   string `json:"purpose" validate:"required,max=500"`
}

// SchedulingService is the booking engine. Every slot mutation runs under a
// per-(faculty, date) lock so concurrent requests for the same day serialize;
// requests for different faculty members or days proceed independently.
type SchedulingService struct {
	appointments schedulingAppointmentRepository
	availability slotIndex
	users        schedulingUserLookup
	locks        slotLocker
	lockTimeout  time.Duration
	maxAdvance   int
	clock        Clock
	metrics      *BookingMetrics
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewSchedulingService constructs a SchedulingService.
func NewSchedulingService(appointments schedulingAppointmentRepository, availability slotIndex, users schedulingUserLookup, locks slotLocker, lockTimeout time.Duration, maxAdvanceDays int, clock Clock, metrics *BookingMetrics, validate *validator.Validate, logger *zap.Logger) *SchedulingService {
	if clock == nil {
		clock = time.Now
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &SchedulingService{
		appointments: appointments,
		availability: availability,
		users:        users,
		locks:        locks,
		lockTimeout:  lockTimeout,
		maxAdvance:   maxAdvanceDays,
		clock:        clock,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
	}
}

// Create books a new appointment in the requested state. The slot must fall
// inside the faculty's availability and must not overlap any requested or
// confirmed appointment for the same faculty and date.
func (s *SchedulingService) Create(ctx context.Context, actor Actor, req CreateAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	var studentID string
	switch actor.Role {
	case models.RoleStudent:
		studentID = actor.ID
	case models.RoleAdmin:
		if req.StudentID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required when booking on behalf")
		}
		studentID = req.StudentID
		if err := s.ensureRole(ctx, studentID, models.RoleStudent, "student"); err != nil {
			return nil, err
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students can book appointments")
	}

	date, start, end, err := s.parseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.ensureBookableDate(date); err != nil {
		return nil, err
	}
	if err := s.ensureRole(ctx, req.FacultyID, models.RoleFaculty, "faculty member"); err != nil {
		return nil, err
	}

	release, ok := s.locks.Acquire(ctx, slotKey(req.FacultyID, req.Date), s.lockTimeout)
	if !ok {
		s.count(func(m *BookingMetrics) { m.Busy.Inc() })
		return nil, appErrors.Clone(appErrors.ErrBusy, "")
	}
	defer release()

	open, err := s.availability.IsOpen(ctx, req.FacultyID, models.WeekdayOf(date), start, end)
	if err != nil {
		return nil, err
	}
	if !open {
		s.count(func(m *BookingMetrics) { m.Conflicts.Inc() })
		return nil, appErrors.Clone(appErrors.ErrOutsideAvailability, "")
	}
	if err := s.checkConflict(ctx, req.FacultyID, req.Date, start, end, ""); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		StudentID: studentID,
		FacultyID: req.FacultyID,
		Date:      req.Date,
		StartTime: models.FormatClock(start),
		EndTime:   models.FormatClock(end),
		Status:    models.StatusRequested,
		Purpose:   req.Purpose,
	}
	notif := &models.Notification{Message: notificationMessage(models.EventCreated, appt)}
	if err := s.appointments.CreateWithNotification(ctx, appt, notif); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
	}

	s.count(func(m *BookingMetrics) { m.Created.Inc() })
	s.logger.Info("appointment created",
		zap.String("appointment_id", appt.ID),
		zap.String("faculty_id", appt.FacultyID),
		zap.String("date", appt.Date),
	)
	return appt, nil
}

// Confirm moves a requested appointment to confirmed. Faculty owner only.
func (s *SchedulingService) Confirm(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.EventConfirmed, "")
}

// Reject declines a requested appointment, ending it in cancelled. Faculty
// owner only.
func (s *SchedulingService) Reject(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.EventRejected, "")
}

// Cancel withdraws a requested or confirmed appointment. Either party may
// cancel; the optional reason is carried into the notification message.
func (s *SchedulingService) Cancel(ctx context.Context, actor Actor, id, reason string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.EventCancelled, reason)
}

// Complete marks a confirmed appointment as completed once its end time has
// passed. Faculty owner only.
func (s *SchedulingService) Complete(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	return s.transition(ctx, actor, id, models.EventCompleted, "")
}

// Get returns a single appointment, visible only to its participants.
func (s *SchedulingService) Get(ctx context.Context, actor Actor, id string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.participant(actor, appt) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this appointment")
	}
	return appt, nil
}

// List returns appointments scoped to the caller: students and faculty see
// their own, admins see everything the filter matches.
func (s *SchedulingService) List(ctx context.Context, actor Actor, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.StudentID = actor.ID
	case models.RoleFaculty:
		filter.FacultyID = actor.ID
	case models.RoleAdmin:
	default:
		return nil, 0, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "unknown appointment status")
	}
	appointments, total, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return appointments, total, nil
}

// checkConflict scans blocking appointments for the faculty and date in
// creation order and fails on the first overlap with [start,end).
func (s *SchedulingService) checkConflict(ctx context.Context, facultyID, date string, start, end int, excludeID string) error {
	blocking, err := s.appointments.ListBlockingForSlot(ctx, facultyID, date)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to scan existing appointments")
	}
	for _, b := range blocking {
		if b.ID == excludeID {
			continue
		}
		bs, err := models.ParseClock(b.StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt appointment slot")
		}
		be, err := models.ParseClock(b.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt appointment slot")
		}
		if models.Overlaps(start, end, bs, be) {
			s.count(func(m *BookingMetrics) { m.Conflicts.Inc() })
			return appErrors.Clone(appErrors.ErrSlotConflict, fmt.Sprintf("slot overlaps appointment %s (%s-%s)", b.ID, b.StartTime, b.EndTime))
		}
	}
	return nil
}

func (s *SchedulingService) transition(ctx context.Context, actor Actor, id string, event models.LifecycleEvent, reason string) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeEvent(actor, appt, event); err != nil {
		return nil, err
	}

	next, ok := models.NextStatus(appt.Status, event)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s appointment in state %s", event, appt.Status))
	}
	if event == models.EventCompleted {
		endsAt, err := appt.EndsAt()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt appointment slot")
		}
		if s.clock().UTC().Before(endsAt) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "appointment has not ended yet")
		}
	}

	release, ok := s.locks.Acquire(ctx, slotKey(appt.FacultyID, appt.Date), s.lockTimeout)
	if !ok {
		s.count(func(m *BookingMetrics) { m.Busy.Inc() })
		return nil, appErrors.Clone(appErrors.ErrBusy, "")
	}
	defer release()

	if event == models.EventConfirmed {
		start, err := models.ParseClock(appt.StartTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt appointment slot")
		}
		end, err := models.ParseClock(appt.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "corrupt appointment slot")
		}
		if err := s.checkConflict(ctx, appt.FacultyID, appt.Date, start, end, appt.ID); err != nil {
			return nil, err
		}
	}

	expected := appt.Status
	appt.Status = next
	message := notificationMessage(event, appt)
	if reason != "" {
		message += ": " + reason
	}
	notif := &models.Notification{Message: message}
	if err := s.appointments.TransitionWithNotification(ctx, appt, expected, notif); err != nil {
		if errors.Is(err, repository.ErrStaleTransition) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "appointment was modified concurrently")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update appointment")
	}

	s.logger.Info("appointment transitioned",
		zap.String("appointment_id", appt.ID),
		zap.String("event", string(event)),
		zap.String("status", string(appt.Status)),
	)
	return appt, nil
}

func (s *SchedulingService) authorizeEvent(actor Actor, appt *models.Appointment, event models.LifecycleEvent) error {
	if actor.admin() {
		return nil
	}
	switch event {
	case models.EventConfirmed, models.EventRejected, models.EventCompleted:
		if actor.ID != appt.FacultyID {
			return appErrors.Clone(appErrors.ErrForbidden, "only the faculty member can perform this action")
		}
	case models.EventCancelled:
		if actor.ID != appt.StudentID && actor.ID != appt.FacultyID {
			return appErrors.Clone(appErrors.ErrForbidden, "only a participant can cancel")
		}
	default:
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	return nil
}

func (s *SchedulingService) participant(actor Actor, appt *models.Appointment) bool {
	return actor.admin() || actor.ID == appt.StudentID || actor.ID == appt.FacultyID
}

func (s *SchedulingService) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

func (s *SchedulingService) parseSlot(date, startTime, endTime string) (time.Time, int, int, error) {
	d, err := models.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	start, err := models.ParseClock(startTime)
	if err != nil {
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM")
	}
	end, err := models.ParseClock(endTime)
	if err != nil {
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM")
	}
	if start >= end {
		return time.Time{}, 0, 0, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return d, start, end, nil
}

func (s *SchedulingService) ensureBookableDate(date time.Time) error {
	today := s.clock().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return appErrors.Clone(appErrors.ErrValidation, "cannot book appointments in the past")
	}
	if s.maxAdvance > 0 && date.After(today.AddDate(0, 0, s.maxAdvance)) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot book more than %d days ahead", s.maxAdvance))
	}
	return nil
}

func (s *SchedulingService) ensureRole(ctx context.Context, userID string, role models.UserRole, label string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, label+" not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+label)
	}
	if user.Role != role {
		return appErrors.Clone(appErrors.ErrNotFound, "user is not a "+label)
	}
	return nil
}

func (s *SchedulingService) count(fn func(*BookingMetrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func slotKey(facultyID, date string) string {
	return facultyID + "|" + date
}
