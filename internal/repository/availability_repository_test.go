package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
)

func availabilityRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"availability_id", "faculty_id", "day_of_week", "start_time", "end_time", "is_available"})
}

func TestAvailabilityRepositoryListActiveByDay(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	rows := availabilityRows().
		AddRow("w1", "f1", "Mon", "09:00", "12:00", true).
		AddRow("w2", "f1", "Mon", "13:00", "15:00", true)
	mock.ExpectQuery(regexp.QuoteMeta("is_available = TRUE ORDER BY start_time ASC")).
		WithArgs("f1", string(models.Mon)).
		WillReturnRows(rows)

	windows, err := repo.ListActiveByDay(context.Background(), "f1", models.Mon)
	require.NoError(t, err)
	assert.Len(t, windows, 2)
	assert.Equal(t, "09:00", windows[0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec("INSERT INTO availability").
		WithArgs(sqlmock.AnyArg(), "f1", string(models.Wed), "09:00", "10:30", true).
		WillReturnResult(sqlmock.NewResult(1, 1))

	window := &models.AvailabilityWindow{
		FacultyID: "f1",
		DayOfWeek: models.Wed,
		StartTime: "09:00",
		EndTime:   "10:30",
		Active:    true,
	}
	require.NoError(t, repo.Create(context.Background(), window))
	assert.NotEmpty(t, window.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewAvailabilityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM availability WHERE availability_id = $1")).
		WithArgs("w1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "w1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
