package models

import "time"

// SentStatus is the closed set of delivery states for a notification row.
type SentStatus string

const (
	SentPending SentStatus = "pending"
	SentOK      SentStatus = "sent"
	SentFailed  SentStatus = "failed"
)

// Valid reports whether the delivery status is a known value.
func (s SentStatus) Valid() bool {
	switch s {
	case SentPending, SentOK, SentFailed:
		return true
	}
	return false
}

// Notification is the outbox row written in the same transaction as the
// appointment transition that produced it. Delivery is owned by an external
// collaborator which later marks it sent or failed.
type Notification struct {
	ID            string     `db:"notification_id" json:"id"`
	AppointmentID string     `db:"appointment_id" json:"appointment_id"`
	Message       string     `db:"message" json:"message"`
	SentStatus    SentStatus `db:"sent_status" json:"sent_status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
