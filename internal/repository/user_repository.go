package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shaderhub/shaderhub-api/internal/models"
)

// UserRepository persists users mirrored from the identity provider.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository constructs the repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. Replayed webhook deliveries for an existing id are ignored.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `INSERT INTO users (id, username) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// FindByID loads a user.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.GetContext(ctx, &user, `SELECT id, username FROM users WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// UpdateUsername renames a user and reports whether the user exists.
func (r *UserRepository) UpdateUsername(ctx context.Context, id, username string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET username = $1 WHERE id = $2`, username, id)
	if err != nil {
		return false, fmt.Errorf("update username: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update username rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats counts uploads, distinct collection tags and favourites of a user.
func (r *UserRepository) Stats(ctx context.Context, id string) (*models.ProfileStats, error) {
	const query = `
SELECT
	(SELECT COUNT(*) FROM objects WHERE user_id = $1) AS objects_uploaded,
	(SELECT COUNT(DISTINCT tag_id) FROM collections WHERE user_id = $1) AS collections,
	(SELECT COUNT(*) FROM collections c JOIN tags t ON t.id = c.tag_id
		WHERE c.user_id = $1 AND t.kind = $2) AS favourites`

	var stats models.ProfileStats
	if err := r.db.GetContext(ctx, &stats, query, id, models.TagKindFavourite); err != nil {
		return nil, fmt.Errorf("profile stats: %w", err)
	}
	return &stats, nil
}
