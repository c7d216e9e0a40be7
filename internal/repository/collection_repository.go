package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
)

// ErrTagTaken is returned when a tag name belongs to a reserved tag or to another
// user's private tag.
var ErrTagTaken = errors.New("tag name taken")

// ErrTagUnusable is returned when a collection diff names a tag that is missing,
// reserved, or private to another user.
var ErrTagUnusable = errors.New("tag not usable")

// CollectionRepository manages collection membership rows and the tags behind them.
type CollectionRepository struct {
	db *sqlx.DB
}

// NewCollectionRepository constructs the repository.
func NewCollectionRepository(db *sqlx.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// IsFavourite reports whether userID favourited objectID.
func (r *CollectionRepository) IsFavourite(ctx context.Context, userID, objectID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM collections c
	JOIN tags t ON t.id = c.tag_id
	WHERE c.object_id = $1 AND c.user_id = $2 AND t.kind = $3
)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, objectID, userID, models.TagKindFavourite); err != nil {
		return false, fmt.Errorf("check favourite: %w", err)
	}
	return exists, nil
}

// ToggleFavourite flips the favourite membership of an object for userID and returns
// the new state.
func (r *CollectionRepository) ToggleFavourite(ctx context.Context, userID, objectID string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin favourite tx: %w", err)
	}

	state, err := toggleFavourite(ctx, tx, userID, objectID)
	if err != nil {
		_ = tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit favourite tx: %w", err)
	}
	return state, nil
}

func toggleFavourite(ctx context.Context, tx *sqlx.Tx, userID, objectID string) (bool, error) {
	var tagID string
	if err := tx.GetContext(ctx, &tagID, `SELECT id FROM tags WHERE kind = $1`, models.TagKindFavourite); err != nil {
		return false, fmt.Errorf("resolve favourite tag: %w", err)
	}

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM collections WHERE object_id = $1 AND user_id = $2 AND tag_id = $3)`,
		objectID, userID, tagID,
	); err != nil {
		return false, fmt.Errorf("check favourite: %w", err)
	}

	if exists {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM collections WHERE object_id = $1 AND user_id = $2 AND tag_id = $3`,
			objectID, userID, tagID,
		); err != nil {
			return false, fmt.Errorf("remove favourite: %w", err)
		}
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (object_id, tag_id, user_id) VALUES ($1, $2, $3)`,
		objectID, tagID, userID,
	); err != nil {
		return false, fmt.Errorf("add favourite: %w", err)
	}
	return true, nil
}

// ApplyDiff adds the tags mapped to true and removes the tags mapped to false for one
// object of userID, in one transaction. Every tag must be a custom tag that is public
// or owned by userID, otherwise nothing is applied and ErrTagUnusable is returned.
func (r *CollectionRepository) ApplyDiff(ctx context.Context, userID, objectID string, diff map[string]bool) error {
	tagIDs := make([]string, 0, len(diff))
	for tagID := range diff {
		tagIDs = append(tagIDs, tagID)
	}
	sort.Strings(tagIDs)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin collection tx: %w", err)
	}

	if err := checkUsableTags(ctx, tx, userID, tagIDs); err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, tagID := range tagIDs {
		if diff[tagID] {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO collections (object_id, tag_id, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
				objectID, tagID, userID,
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM collections WHERE object_id = $1 AND tag_id = $2 AND user_id = $3`,
				objectID, tagID, userID,
			)
		}
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply collection change for tag %s: %w", tagID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit collection tx: %w", err)
	}
	return nil
}

func checkUsableTags(ctx context.Context, tx *sqlx.Tx, userID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	query, args, err := psql.Select("id", "name", "colour", "visibility", "user_id", "kind").
		From("tags").
		Where(sq.Eq{"id": tagIDs}).
		Suffix("FOR SHARE").
		ToSql()
	if err != nil {
		return fmt.Errorf("build tag lookup: %w", err)
	}

	var tags []models.Tag
	if err := tx.SelectContext(ctx, &tags, query, args...); err != nil {
		return fmt.Errorf("load diff tags: %w", err)
	}
	if len(tags) != len(tagIDs) {
		return ErrTagUnusable
	}
	for _, tag := range tags {
		if !usableTag(tag, userID) {
			return fmt.Errorf("%w: %s", ErrTagUnusable, tag.ID)
		}
	}
	return nil
}

// CreateCollection reuses the tag called name or creates it as a private tag owned by
// userID, then files objectID under it. newTagID is used only when a tag is created.
func (r *CollectionRepository) CreateCollection(ctx context.Context, userID, objectID, newTagID, name, colour string) (*models.Tag, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create collection tx: %w", err)
	}

	tag, err := upsertTag(ctx, tx, userID, newTagID, name, colour)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO collections (object_id, tag_id, user_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		objectID, tag.ID, userID,
	); err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("insert collection: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create collection tx: %w", err)
	}
	return tag, nil
}

func upsertTag(ctx context.Context, tx *sqlx.Tx, userID, newTagID, name, colour string) (*models.Tag, error) {
	var tag models.Tag
	err := tx.GetContext(ctx, &tag,
		`SELECT id, name, colour, visibility, user_id, kind FROM tags WHERE name = $1`, name)
	if err == nil {
		if !usableTag(tag, userID) {
			return nil, ErrTagTaken
		}
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find tag by name: %w", err)
	}

	tag = models.Tag{
		ID:         newTagID,
		Name:       name,
		Colour:     &colour,
		Visibility: models.VisibilityPrivate,
		UserID:     &userID,
		Kind:       models.TagKindCustom,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tags (id, name, colour, visibility, user_id, kind) VALUES ($1, $2, $3, $4, $5, $6)`,
		tag.ID, tag.Name, colour, tag.Visibility, userID, tag.Kind,
	); err != nil {
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	return &tag, nil
}

func usableTag(tag models.Tag, userID string) bool {
	if tag.Kind != models.TagKindCustom {
		return false
	}
	if tag.Visibility == models.VisibilityPublic {
		return true
	}
	return tag.UserID != nil && *tag.UserID == userID
}

// ListLibrary returns every collection row of userID joined with its tag and object.
func (r *CollectionRepository) ListLibrary(ctx context.Context, userID string) ([]dto.LibraryRow, error) {
	const query = `
SELECT
	c.tag_id,
	COALESCE(t.name, '') AS tag_name,
	c.object_id,
	COALESCE(o.name, '') AS object_name,
	COALESCE(o.user_id, '') AS uploader_id
FROM collections c
LEFT JOIN tags t ON t.id = c.tag_id
LEFT JOIN objects o ON o.id = c.object_id
WHERE c.user_id = $1
ORDER BY t.name ASC, o.created_at DESC`

	var rows []dto.LibraryRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	return rows, nil
}

// ListUserCollections returns the custom tags usable by userID with a flag telling
// whether objectID is filed under each of them.
func (r *CollectionRepository) ListUserCollections(ctx context.Context, userID, objectID string) ([]dto.UserCollection, error) {
	const query = `
SELECT
	t.id,
	t.name,
	t.colour,
	t.visibility,
	EXISTS (
		SELECT 1 FROM collections c
		WHERE c.tag_id = t.id AND c.object_id = $2 AND c.user_id = $1
	) AS in_collection
FROM tags t
WHERE t.kind = $3 AND (t.user_id = $1 OR t.visibility = 'public')
ORDER BY t.name ASC`

	collections := make([]dto.UserCollection, 0)
	if err := r.db.SelectContext(ctx, &collections, query, userID, objectID, models.TagKindCustom); err != nil {
		return nil, fmt.Errorf("list user collections: %w", err)
	}
	return collections, nil
}
