package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
)

// FeedParams selects a window of the public feed.
type FeedParams struct {
	// Limit is the number of rows fetched, callers ask for one extra row to detect more pages.
	Limit    int
	Cursor   *models.Cursor
	Backward bool
	Terms    []string
}

// NewObject carries everything written when an object is uploaded.
type NewObject struct {
	Object     models.Object
	TagIDs     []string
	Attributes []models.AttributeValue
}

// ObjectRepository persists uploaded objects and their metadata.
type ObjectRepository struct {
	db *sqlx.DB
}

// NewObjectRepository constructs the repository.
func NewObjectRepository(db *sqlx.DB) *ObjectRepository {
	return &ObjectRepository{db: db}
}

// ListFeed returns public objects beyond the cursor. Forward pages are newest first,
// backward pages oldest first.
func (r *ObjectRepository) ListFeed(ctx context.Context, params FeedParams) ([]dto.FeedItem, error) {
	query, args, err := feedQuery(params).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feed query: %w", err)
	}

	var items []dto.FeedItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return items, nil
}

func feedQuery(params FeedParams) sq.SelectBuilder {
	q := psql.Select("o.id", "o.name", "o.user_id", "o.created_at").
		From("objects o").
		Where(sq.Eq{"o.visibility": models.VisibilityPublic})

	if len(params.Terms) > 0 {
		q = q.Distinct().
			LeftJoin("object_tag_relations otr ON otr.object_id = o.id").
			LeftJoin("tags t ON t.id = otr.tag_id AND t.visibility = 'public'").
			LeftJoin("attribute_value_object_relations avor ON avor.object_id = o.id").
			LeftJoin("attribute_values av ON av.id = avor.attribute_value_id")
		match := sq.Or{}
		for _, term := range params.Terms {
			pattern := containsPattern(term)
			match = append(match,
				sq.ILike{"o.name": pattern},
				sq.ILike{"t.name": pattern},
				sq.ILike{"av.value": pattern},
			)
		}
		q = q.Where(match)
	}

	cmp := "<"
	order := "DESC"
	if params.Backward {
		cmp = ">"
		order = "ASC"
	}
	if c := params.Cursor; c != nil {
		if c.ID == "" {
			q = q.Where(sq.Expr("o.created_at "+cmp+" ?", c.CreatedAt))
		} else {
			q = q.Where(sq.Expr("(o.created_at, o.id) "+cmp+" (?, ?)", c.CreatedAt, c.ID))
		}
	}

	return q.OrderBy("o.created_at "+order, "o.id "+order).Limit(uint64(params.Limit))
}

// ListInitial returns the newest public objects.
func (r *ObjectRepository) ListInitial(ctx context.Context, limit int) ([]dto.FeedItem, error) {
	const query = `
SELECT id, name, user_id, created_at
FROM objects
WHERE visibility = 'public'
ORDER BY created_at DESC, id DESC
LIMIT $1`

	var items []dto.FeedItem
	if err := r.db.SelectContext(ctx, &items, query, limit); err != nil {
		return nil, fmt.Errorf("list initial objects: %w", err)
	}
	return items, nil
}

// FindByID loads an object row.
func (r *ObjectRepository) FindByID(ctx context.Context, id string) (*models.Object, error) {
	const query = `SELECT id, name, visibility, user_id, created_at FROM objects WHERE id = $1`

	var object models.Object
	if err := r.db.GetContext(ctx, &object, query, id); err != nil {
		return nil, fmt.Errorf("find object: %w", err)
	}
	return &object, nil
}

// ListTags returns the tags attached to an object at upload time.
func (r *ObjectRepository) ListTags(ctx context.Context, objectID string) ([]dto.TagSummary, error) {
	const query = `
SELECT t.id, t.name, t.colour, t.kind
FROM object_tag_relations otr
JOIN tags t ON t.id = otr.tag_id
WHERE otr.object_id = $1
ORDER BY t.name ASC`

	tags := make([]dto.TagSummary, 0)
	if err := r.db.SelectContext(ctx, &tags, query, objectID); err != nil {
		return nil, fmt.Errorf("list object tags: %w", err)
	}
	return tags, nil
}

// ListAttributes returns the attribute values of an object with their type names.
func (r *ObjectRepository) ListAttributes(ctx context.Context, objectID string) ([]dto.AttributeSummary, error) {
	const query = `
SELECT at.id AS type_id, at.name AS type_name, av.value
FROM attribute_value_object_relations avor
JOIN attribute_values av ON av.id = avor.attribute_value_id
JOIN attribute_types at ON at.id = av.attribute_type_id
WHERE avor.object_id = $1
ORDER BY at.name ASC`

	attributes := make([]dto.AttributeSummary, 0)
	if err := r.db.SelectContext(ctx, &attributes, query, objectID); err != nil {
		return nil, fmt.Errorf("list object attributes: %w", err)
	}
	return attributes, nil
}

// CreateWithMetadata inserts the object, its tag relations, attribute values and the
// owner's uploaded collection row in one transaction.
func (r *ObjectRepository) CreateWithMetadata(ctx context.Context, in NewObject) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upload tx: %w", err)
	}
	if err := createWithMetadata(ctx, tx, in); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upload tx: %w", err)
	}
	return nil
}

func createWithMetadata(ctx context.Context, tx *sqlx.Tx, in NewObject) error {
	o := in.Object
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO objects (id, name, visibility, user_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.Name, o.Visibility, o.UserID, o.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert object: %w", err)
	}

	for _, tagID := range in.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO object_tag_relations (tag_id, object_id) VALUES ($1, $2)`,
			tagID, o.ID,
		); err != nil {
			return fmt.Errorf("insert object tag %s: %w", tagID, err)
		}
	}

	for _, attr := range in.Attributes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attribute_values (id, value, attribute_type_id) VALUES ($1, $2, $3)`,
			attr.ID, attr.Value, attr.AttributeTypeID,
		); err != nil {
			return fmt.Errorf("insert attribute value: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attribute_value_object_relations (object_id, attribute_value_id) VALUES ($1, $2)`,
			o.ID, attr.ID,
		); err != nil {
			return fmt.Errorf("insert attribute relation: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO collections (object_id, tag_id, user_id)
SELECT $1, id, $2 FROM tags WHERE kind = $3
ON CONFLICT DO NOTHING`,
		o.ID, o.UserID, models.TagKindUploaded,
	); err != nil {
		return fmt.Errorf("insert uploaded collection: %w", err)
	}
	return nil
}

// DeleteOwned removes an object owned by userID. It reports whether a row was deleted.
func (r *ObjectRepository) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM objects WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete object: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete object rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes an object regardless of owner.
func (r *ObjectRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM objects WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// SetVisibility updates the visibility of an object owned by userID.
func (r *ObjectRepository) SetVisibility(ctx context.Context, id, userID string, visibility models.Visibility) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE objects SET visibility = $1 WHERE id = $2 AND user_id = $3`,
		visibility, id, userID,
	); err != nil {
		return fmt.Errorf("set object visibility: %w", err)
	}
	return nil
}
