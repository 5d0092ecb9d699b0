package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
)

// NotificationRepository manages the notification outbox rows.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

const notificationColumns = "notification_id, appointment_id, message, created_at, sent_status"

// ListByAppointment returns notifications for one appointment, oldest first.
func (r *NotificationRepository) ListByAppointment(ctx context.Context, appointmentID string) ([]models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE appointment_id = $1 ORDER BY created_at ASC", notificationColumns)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, appointmentID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// ListPending returns up to limit undelivered notifications, oldest first.
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE sent_status = 'pending' ORDER BY created_at ASC LIMIT %d", notificationColumns, limit)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query); err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return notifications, nil
}

// FindByID fetches a notification by ID.
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE notification_id = $1", notificationColumns)
	var notif models.Notification
	if err := r.db.GetContext(ctx, &notif, query, id); err != nil {
		return nil, err
	}
	return &notif, nil
}

// Create inserts a standalone notification row. Lifecycle notifications are
// normally written through the appointment repository transactions.
func (r *NotificationRepository) Create(ctx context.Context, notif *models.Notification) error {
	if notif.ID == "" {
		notif.ID = uuid.NewString()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}
	if notif.SentStatus == "" {
		notif.SentStatus = models.SentPending
	}
	const query = `INSERT INTO notifications (notification_id, appointment_id, message, created_at, sent_status)
		VALUES (:notification_id, :appointment_id, :message, :created_at, :sent_status)`
	if _, err := r.db.NamedExecContext(ctx, query, notif); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// UpdateSentStatus moves a pending notification to sent or failed. The guard
// on the current status keeps delivery workers from overwriting each other.
func (r *NotificationRepository) UpdateSentStatus(ctx context.Context, id string, status models.SentStatus) (bool, error) {
	const query = `UPDATE notifications SET sent_status = $2 WHERE notification_id = $1 AND sent_status = 'pending'`
	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return false, fmt.Errorf("update notification status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update notification status rows: %w", err)
	}
	return affected > 0, nil
}
