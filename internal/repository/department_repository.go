package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
)

// DepartmentRepository manages persistence for departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs a DepartmentRepository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns all departments ordered by name.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT department_id, department_name, building, phone FROM departments ORDER BY department_name ASC`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByID fetches a department by ID.
func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*models.Department, error) {
	const query = `SELECT department_id, department_name, building, phone FROM departments WHERE department_id = $1`
	var dept models.Department
	if err := r.db.GetContext(ctx, &dept, query, id); err != nil {
		return nil, err
	}
	return &dept, nil
}

// ExistsByName checks name uniqueness.
func (r *DepartmentRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM departments WHERE LOWER(department_name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND department_id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check department name: %w", err)
	}
	return true, nil
}

// Create inserts a new department record.
func (r *DepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	const query = `INSERT INTO departments (department_id, department_name, building, phone)
		VALUES (:department_id, :department_name, :building, :phone)`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update modifies an existing department record.
func (r *DepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	const query = `UPDATE departments SET department_name = :department_name, building = :building, phone = :phone WHERE department_id = :department_id`
	if _, err := r.db.NamedExecContext(ctx, query, dept); err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return nil
}

// AppointmentCounts aggregates appointments per department through the
// owning faculty's affiliation.
func (r *DepartmentRepository) AppointmentCounts(ctx context.Context) ([]models.DepartmentAppointmentCount, error) {
	const query = `SELECT d.department_name AS department_name, COUNT(a.appointment_id) AS appointments
		FROM departments d
		JOIN users u ON u.department_id = d.department_id
		JOIN appointments a ON a.faculty_id = u.user_id
		GROUP BY d.department_name
		ORDER BY d.department_name ASC`
	var counts []models.DepartmentAppointmentCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("department appointment counts: %w", err)
	}
	return counts, nil
}
