package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/temple-membership/internal/domain/entity"
)

func newHistoryMock(t *testing.T) (*HistoryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewHistoryRepository(db, zap.NewNop()).(*HistoryRepository), mock
}

func TestHistoryRepository_Create(t *testing.T) {
	repo, mock := newHistoryMock(t)
	record := &entity.ApplicationHistory{
		ApplicationID:  7,
		ActorID:        "secretary",
		PreviousStatus: "PENDING_SUBMISSION",
		NewStatus:      "SUBMITTED",
		ActionType:     "submit",
		ActionData:     "{}",
		Timestamp:      testTime,
	}

	mock.ExpectExec("INSERT INTO application_history").
		WithArgs(int64(7), "secretary", "PENDING_SUBMISSION", "SUBMITTED", "submit", "{}", testTime).
		WillReturnResult(sqlmock.NewResult(11, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, int64(11), record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_Create_DefaultsTimestamp(t *testing.T) {
	repo, mock := newHistoryMock(t)
	record := &entity.ApplicationHistory{ApplicationID: 7, ActionType: "create"}

	mock.ExpectExec("INSERT INTO application_history").WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	assert.False(t, record.Timestamp.IsZero())
}

func TestHistoryRepository_Create_Errors(t *testing.T) {
	repo, mock := newHistoryMock(t)

	assert.Error(t, repo.Create(context.Background(), &entity.ApplicationHistory{}))

	mock.ExpectExec("INSERT INTO application_history").WillReturnError(errors.New("database is locked"))
	err := repo.Create(context.Background(), &entity.ApplicationHistory{ApplicationID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestHistoryRepository_GetByApplicationID(t *testing.T) {
	repo, mock := newHistoryMock(t)

	rows := sqlmock.NewRows([]string{"id", "application_id", "actor_id", "previous_status", "new_status", "action_type", "action_data", "timestamp"}).
		AddRow(1, 7, "secretary", "", "PENDING_SUBMISSION", "create", "{}", testTime).
		AddRow(2, 7, "secretary", "PENDING_SUBMISSION", "SUBMITTED", "submit", "{}", testTime)
	mock.ExpectQuery("SELECT id, application_id").WithArgs(int64(7)).WillReturnRows(rows)

	trail, err := repo.GetByApplicationID(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "create", trail[0].ActionType)
	assert.Equal(t, "SUBMITTED", trail[1].NewStatus)
}

func TestHistoryRepository_GetByApplicationID_Empty(t *testing.T) {
	repo, mock := newHistoryMock(t)

	mock.ExpectQuery("SELECT id, application_id").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "actor_id", "previous_status", "new_status", "action_type", "action_data", "timestamp"}))

	trail, err := repo.GetByApplicationID(context.Background(), 99)
	require.NoError(t, err)
	assert.NotNil(t, trail)
	assert.Empty(t, trail)
}
