package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
)

// ErrRequestResolved is returned when a request is no longer pending.
var ErrRequestResolved = errors.New("request already resolved")

// RequestRepository persists moderation requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// FindLatest returns the most recent request of userID for objectID.
func (r *RequestRepository) FindLatest(ctx context.Context, userID, objectID string) (*models.Request, error) {
	const query = `
SELECT id, user_id, object_id, status, created_at
FROM requests
WHERE user_id = $1 AND object_id = $2
ORDER BY created_at DESC, id DESC
LIMIT 1`

	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, userID, objectID); err != nil {
		return nil, fmt.Errorf("find request: %w", err)
	}
	return &req, nil
}

// Create inserts a request.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	const query = `INSERT INTO requests (id, user_id, object_id, status, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, req.ID, req.UserID, req.ObjectID, req.Status, req.CreatedAt); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// ListPending returns every pending request joined with its user and object, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]dto.PendingRequest, error) {
	const query = `
SELECT
	rq.id,
	rq.user_id,
	COALESCE(u.username, '') AS username,
	rq.object_id,
	COALESCE(o.name, '') AS object_name,
	rq.status,
	rq.created_at
FROM requests rq
LEFT JOIN users u ON u.id = rq.user_id
LEFT JOIN objects o ON o.id = rq.object_id
WHERE rq.status = $1
ORDER BY rq.created_at ASC, rq.id ASC`

	items := make([]dto.PendingRequest, 0)
	if err := r.db.SelectContext(ctx, &items, query, models.RequestStatusPending); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return items, nil
}

// SetStatus resolves a pending request and, when it is accepted, makes its object
// public in the same transaction. It reports whether the request exists and returns
// ErrRequestResolved when the request has already left pending.
func (r *RequestRepository) SetStatus(ctx context.Context, id string, status models.RequestStatus) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin request status tx: %w", err)
	}

	var current struct {
		ObjectID string               `db:"object_id"`
		Status   models.RequestStatus `db:"status"`
	}
	err = tx.GetContext(ctx, &current, `SELECT object_id, status FROM requests WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		_ = tx.Rollback()
		return false, nil
	}
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("lock request: %w", err)
	}
	if current.Status != models.RequestStatusPending {
		_ = tx.Rollback()
		return true, ErrRequestResolved
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status = $1 WHERE id = $2 AND status = $3`, status, id, models.RequestStatusPending,
	); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("update request status: %w", err)
	}

	if status == models.RequestStatusAccepted {
		if _, err := tx.ExecContext(ctx,
			`UPDATE objects SET visibility = $1 WHERE id = $2`, models.VisibilityPublic, current.ObjectID,
		); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("publish object: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit request status tx: %w", err)
	}
	return true, nil
}
