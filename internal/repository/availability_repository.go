package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
)

// AvailabilityRepository manages persistence for faculty availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs an AvailabilityRepository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

const availabilityColumns = "availability_id, faculty_id, day_of_week, start_time, end_time, is_available"

// ListByFaculty returns every window for a faculty member ordered by day and
// start time.
func (r *AvailabilityRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.AvailabilityWindow, error) {
	query := fmt.Sprintf("SELECT %s FROM availability WHERE faculty_id = $1 ORDER BY day_of_week ASC, start_time ASC", availabilityColumns)
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, facultyID); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return windows, nil
}

// ListActiveByDay returns active windows for a faculty member on one weekday.
func (r *AvailabilityRepository) ListActiveByDay(ctx context.Context, facultyID string, day models.Weekday) ([]models.AvailabilityWindow, error) {
	query := fmt.Sprintf("SELECT %s FROM availability WHERE faculty_id = $1 AND day_of_week = $2 AND is_available = TRUE ORDER BY start_time ASC", availabilityColumns)
	var windows []models.AvailabilityWindow
	if err := r.db.SelectContext(ctx, &windows, query, facultyID, day); err != nil {
		return nil, fmt.Errorf("list active availability: %w", err)
	}
	return windows, nil
}

// FindByID fetches a window by ID.
func (r *AvailabilityRepository) FindByID(ctx context.Context, id string) (*models.AvailabilityWindow, error) {
	query := fmt.Sprintf("SELECT %s FROM availability WHERE availability_id = $1", availabilityColumns)
	var window models.AvailabilityWindow
	if err := r.db.GetContext(ctx, &window, query, id); err != nil {
		return nil, err
	}
	return &window, nil
}

// Create inserts a new availability window.
func (r *AvailabilityRepository) Create(ctx context.Context, window *models.AvailabilityWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	const query = `INSERT INTO availability (availability_id, faculty_id, day_of_week, start_time, end_time, is_available)
		VALUES (:availability_id, :faculty_id, :day_of_week, :start_time, :end_time, :is_available)`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("create availability window: %w", err)
	}
	return nil
}

// Update rewrites a window's slot and active flag.
func (r *AvailabilityRepository) Update(ctx context.Context, window *models.AvailabilityWindow) error {
	const query = `UPDATE availability SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, is_available = :is_available WHERE availability_id = :availability_id`
	if _, err := r.db.NamedExecContext(ctx, query, window); err != nil {
		return fmt.Errorf("update availability window: %w", err)
	}
	return nil
}

// Delete removes a window by id.
func (r *AvailabilityRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE availability_id = $1`, id); err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	return nil
}
