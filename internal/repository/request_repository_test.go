package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/models"
)

func expectLockRequest(mock sqlmock.Sqlmock, id string, rows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT object_id, status FROM requests WHERE id = $1 FOR UPDATE`)).
		WithArgs(id).
		WillReturnRows(rows)
}

func lockedRequest(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"object_id", "status"}).AddRow("obj-1", status)
}

func TestRequestRepositorySetStatusAcceptedPublishesObject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	expectLockRequest(mock, "req-1", lockedRequest("pending"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requests SET status = $1 WHERE id = $2 AND status = $3`)).
		WithArgs("accepted", "req-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE objects SET visibility = $1 WHERE id = $2`)).
		WithArgs("public", "obj-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	found, err := repo.SetStatus(context.Background(), "req-1", models.RequestStatusAccepted)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRequestRepositorySetStatusRejectedLeavesObject(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	expectLockRequest(mock, "req-1", lockedRequest("pending"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requests SET status = $1 WHERE id = $2 AND status = $3`)).
		WithArgs("rejected", "req-1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	found, err := repo.SetStatus(context.Background(), "req-1", models.RequestStatusRejected)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRequestRepositorySetStatusAlreadyResolved(t *testing.T) {
	for _, current := range []string{"accepted", "rejected"} {
		t.Run(current, func(t *testing.T) {
			db, mock, cleanup := newRepoMock(t)
			defer cleanup()
			repo := NewRequestRepository(db)

			mock.ExpectBegin()
			expectLockRequest(mock, "req-1", lockedRequest(current))
			mock.ExpectRollback()

			found, err := repo.SetStatus(context.Background(), "req-1", models.RequestStatusRejected)
			assert.ErrorIs(t, err, ErrRequestResolved)
			assert.True(t, found)
		})
	}
}

func TestRequestRepositorySetStatusPublishFailureRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	expectLockRequest(mock, "req-1", lockedRequest("pending"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requests SET status`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE objects SET visibility`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.SetStatus(context.Background(), "req-1", models.RequestStatusAccepted)
	require.Error(t, err)
}

func TestRequestRepositorySetStatusUnknownRequest(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM requests WHERE id = $1 FOR UPDATE`)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	found, err := repo.SetStatus(context.Background(), "nope", models.RequestStatusAccepted)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRequestRepositoryFindLatestNone(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM requests
WHERE user_id = $1 AND object_id = $2`)).
		WithArgs("u1", "obj-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLatest(context.Background(), "u1", "obj-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRequestRepositoryListPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE rq.status = $1`)).
		WithArgs("pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "username", "object_id", "object_name", "status", "created_at"}).
			AddRow("req-1", "u1", "alice", "obj-1", "Chair", "pending", int64(100)))

	items, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "alice", items[0].Username)
	assert.Equal(t, models.RequestStatusPending, items[0].Status)
}
