package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
)

// AppointmentRepository manages persistence for appointments and the
// notification rows written alongside their transitions.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

const appointmentColumns = "appointment_id, student_id, faculty_id, appointment_date, start_time, end_time, status, purpose, created_at, updated_at"

// List returns appointments matching filters along with total count.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.FacultyID != "" {
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)+1))
		args = append(args, filter.FacultyID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("appointment_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY appointment_date DESC, start_time DESC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appointments, total, nil
}

// FindByID fetches an appointment by ID.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE appointment_id = $1", appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListBlockingForSlot returns the requested/confirmed appointments holding
// slots for a faculty member on one date. Ordered by booking time then id so
// conflict reporting is deterministic.
func (r *AppointmentRepository) ListBlockingForSlot(ctx context.Context, facultyID, date string) ([]models.Appointment, error) {
	query := fmt.Sprintf("SELECT %s FROM appointments WHERE faculty_id = $1 AND appointment_date = $2 AND status IN ('requested', 'confirmed') ORDER BY created_at ASC, appointment_id ASC", appointmentColumns)
	var appointments []models.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, facultyID, date); err != nil {
		return nil, fmt.Errorf("list blocking appointments: %w", err)
	}
	return appointments, nil
}

// CountByStatus aggregates appointments per lifecycle state.
func (r *AppointmentRepository) CountByStatus(ctx context.Context) (map[models.AppointmentStatus]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM appointments GROUP BY status`
	rows := []struct {
		Status models.AppointmentStatus `db:"status"`
		Total  int                      `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count appointments by status: %w", err)
	}
	counts := make(map[models.AppointmentStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// CreateWithNotification inserts the appointment and its lifecycle
// notification in one transaction so neither can exist without the other.
func (r *AppointmentRepository) CreateWithNotification(ctx context.Context, appt *models.Appointment, notif *models.Notification) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	notif.AppointmentID = appt.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create appointment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertAppt = `INSERT INTO appointments (appointment_id, student_id, faculty_id, appointment_date, start_time, end_time, status, purpose, created_at, updated_at)
		VALUES (:appointment_id, :student_id, :faculty_id, :appointment_date, :start_time, :end_time, :status, :purpose, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertAppt, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	if err = insertNotificationTx(ctx, tx, notif); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create appointment: %w", err)
	}
	return nil
}

// TransitionWithNotification updates the appointment status and writes the
// lifecycle notification in one transaction. The update is guarded by the
// expected source status so a concurrent transition cannot be overwritten.
func (r *AppointmentRepository) TransitionWithNotification(ctx context.Context, appt *models.Appointment, expected models.AppointmentStatus, notif *models.Notification) error {
	appt.UpdatedAt = time.Now().UTC()
	notif.AppointmentID = appt.ID

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const update = `UPDATE appointments SET status = $1, updated_at = $2 WHERE appointment_id = $3 AND status = $4`
	var result sql.Result
	result, err = tx.ExecContext(ctx, update, appt.Status, appt.UpdatedAt, appt.ID, expected)
	if err != nil {
		return fmt.Errorf("transition appointment: %w", err)
	}
	var affected int64
	affected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition appointment rows: %w", err)
	}
	if affected == 0 {
		err = ErrStaleTransition
		return err
	}

	if err = insertNotificationTx(ctx, tx, notif); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// ErrStaleTransition reports a guarded status update that matched no row,
// meaning the appointment moved on since it was read.
var ErrStaleTransition = fmt.Errorf("appointment status changed concurrently")

func insertNotificationTx(ctx context.Context, tx *sqlx.Tx, notif *models.Notification) error {
	if notif.ID == "" {
		notif.ID = uuid.NewString()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}
	if notif.SentStatus == "" {
		notif.SentStatus = models.SentPending
	}

	const insert = `INSERT INTO notifications (notification_id, appointment_id, message, created_at, sent_status)
		VALUES (:notification_id, :appointment_id, :message, :created_at, :sent_status)`
	if _, err := tx.NamedExecContext(ctx, insert, notif); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}
