package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhishikthMudutanapalli/university-appointment-system/internal/models"
)

func notificationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"notification_id", "appointment_id", "message", "created_at", "sent_status"})
}

func TestNotificationRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	rows := notificationRows().
		AddRow("n1", "a1", "appointment requested", time.Now(), "pending")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE sent_status = 'pending' ORDER BY created_at ASC LIMIT 100")).
		WillReturnRows(rows)

	notifications, err := repo.ListPending(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, notifications, 1)
	assert.Equal(t, models.SentPending, notifications[0].SentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationRepositoryUpdateSentStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewNotificationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE notifications SET sent_status = $2 WHERE notification_id = $1 AND sent_status = 'pending'")).
		WithArgs("n1", string(models.SentOK)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.UpdateSentStatus(context.Background(), "n1", models.SentOK)
	require.NoError(t, err)
	assert.True(t, updated)

	mock.ExpectExec("UPDATE notifications SET sent_status").
		WithArgs("n1", string(models.SentFailed)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err = repo.UpdateSentStatus(context.Background(), "n1", models.SentFailed)
	require.NoError(t, err)
	assert.False(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
