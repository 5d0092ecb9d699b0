package models

import "time"

// AppointmentStatus is the closed set of lifecycle states. The status column
// is free text in the schema, so writes only ever go through these values.
type AppointmentStatus string

const (
	StatusRequested AppointmentStatus = "requested"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Blocking reports whether the appointment holds its slot against new bookings.
func (s AppointmentStatus) Blocking() bool {
	return s == StatusRequested || s == StatusConfirmed
}

// LifecycleEvent names a transition emitted by the scheduling engine.
type LifecycleEvent string

const (
	EventCreated   LifecycleEvent = "created"
	EventConfirmed LifecycleEvent = "confirmed"
	EventCancelled LifecycleEvent = "cancelled"
	EventCompleted LifecycleEvent = "completed"
	EventRejected  LifecycleEvent = "rejected"
)

// transitions is the lifecycle table: event -> (allowed source states, target).
var transitions = map[LifecycleEvent]struct {
	from map[AppointmentStatus]struct{}
	to   AppointmentStatus
}{
	EventConfirmed: {
		from: map[AppointmentStatus]struct{}{StatusRequested: {}},
		to:   StatusConfirmed,
	},
	EventCancelled: {
		from: map[AppointmentStatus]struct{}{StatusRequested: {}, StatusConfirmed: {}},
		to:   StatusCancelled,
	},
	EventCompleted: {
		from: map[AppointmentStatus]struct{}{StatusConfirmed: {}},
		to:   StatusCompleted,
	},
	EventRejected: {
		from: map[AppointmentStatus]struct{}{StatusRequested: {}},
		to:   StatusCancelled,
	},
}

// NextStatus resolves the target state for an event from the given state.
// ok is false when the transition is not in the lifecycle table.
func NextStatus(from AppointmentStatus, event LifecycleEvent) (AppointmentStatus, bool) {
	t, ok := transitions[event]
	if !ok {
		return "", false
	}
	if _, ok := t.from[from]; !ok {
		return "", false
	}
	return t.to, true
}

// Appointment is a single-day booking between one student and one faculty
// member. Date is "YYYY-MM-DD", times are "HH:MM" half-open.
type Appointment struct {
	ID        string            `db:"appointment_id" json:"id"`
	StudentID string            `db:"student_id" json:"student_id"`
	FacultyID string            `db:"faculty_id" json:"faculty_id"`
	Date      string            `db:"appointment_date" json:"date"`
	StartTime string            `db:"start_time" json:"start_time"`
	EndTime   string            `db:"end_time" json:"end_time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	Purpose   string            `db:"purpose" json:"purpose"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// EndsAt resolves the wall-clock end of the appointment in UTC.
func (a Appointment) EndsAt() (time.Time, error) {
	date, err := ParseDate(a.Date)
	if err != nil {
		return time.Time{}, err
	}
	end, err := ParseClock(a.EndTime)
	if err != nil {
		return time.Time{}, err
	}
	return date.Add(time.Duration(end) * time.Minute), nil
}

// AppointmentFilter captures listing criteria.
type AppointmentFilter struct {
	StudentID string
	FacultyID string
	Date      string
	Status    *AppointmentStatus
	Page      int
	PageSize  int
}
