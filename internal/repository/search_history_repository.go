package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shaderhub/shaderhub-api/internal/models"
)

// SearchHistoryRepository keeps the recent queries of each user.
type SearchHistoryRepository struct {
	db *sqlx.DB
}

// NewSearchHistoryRepository constructs the repository.
func NewSearchHistoryRepository(db *sqlx.DB) *SearchHistoryRepository {
	return &SearchHistoryRepository{db: db}
}

// List returns up to limit queries of userID, newest first.
func (r *SearchHistoryRepository) List(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error) {
	const query = `
SELECT id, user_id, query, created_at
FROM search_history
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`

	items := make([]models.SearchHistory, 0)
	if err := r.db.SelectContext(ctx, &items, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	return items, nil
}

// Add records entry and trims the user's history to the newest keep rows in one transaction.
func (r *SearchHistoryRepository) Add(ctx context.Context, entry *models.SearchHistory, keep int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin search history tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_history (id, user_id, query, created_at) VALUES ($1, $2, $3, $4)`,
		entry.ID, entry.UserID, entry.Query, entry.CreatedAt,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert search history: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM search_history
WHERE user_id = $1 AND id NOT IN (
	SELECT id FROM search_history
	WHERE user_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2
)`, entry.UserID, keep); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("trim search history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit search history tx: %w", err)
	}
	return nil
}
