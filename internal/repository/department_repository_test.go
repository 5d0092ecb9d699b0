package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDepartmentRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	rows := sqlmock.NewRows([]string{"department_id", "department_name", "building", "phone"}).
		AddRow("d1", "Computer Science", "Sloan Hall", nil).
		AddRow("d2", "Mathematics", nil, nil)
	mock.ExpectQuery("FROM departments ORDER BY department_name").
		WillReturnRows(rows)

	departments, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, departments, 2)
	assert.Equal(t, "Computer Science", departments[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM departments WHERE LOWER(department_name) = LOWER($1)")).
		WithArgs("Computer Science").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "Computer Science", "")
	require.NoError(t, err)
	assert.True(t, exists)

	// Renames skip the row being updated.
	mock.ExpectQuery(regexp.QuoteMeta("AND department_id <> $2")).
		WithArgs("Computer Science", "d1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err = repo.ExistsByName(context.Background(), "Computer Science", "d1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentRepositoryAppointmentCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewDepartmentRepository(db)

	rows := sqlmock.NewRows([]string{"department_name", "appointments"}).
		AddRow("Computer Science", 7).
		AddRow("Mathematics", 2)
	mock.ExpectQuery("JOIN appointments a ON a.faculty_id = u.user_id").
		WillReturnRows(rows)

	counts, err := repo.AppointmentCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 7, counts[0].Appointments)
	assert.NoError(t, mock.ExpectationsWereMet())
}
