package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/models"
)

// TagRepository reads the tag and attribute catalog.
type TagRepository struct {
	db *sqlx.DB
}

// NewTagRepository constructs the repository.
func NewTagRepository(db *sqlx.DB) *TagRepository {
	return &TagRepository{db: db}
}

// ListCatalog returns the custom tags visible to userID, each joined with the
// attribute types linked to it. Tags without attribute types yield one row with
// empty attribute columns.
func (r *TagRepository) ListCatalog(ctx context.Context, userID string) ([]dto.CatalogRow, error) {
	const query = `
SELECT
	t.id,
	t.name,
	t.colour,
	t.visibility,
	t.user_id,
	t.kind,
	at.id AS attribute_id,
	at.name AS attribute_name
FROM tags t
LEFT JOIN attribute_type_tag_relations r ON r.tag_id = t.id
LEFT JOIN attribute_types at ON at.id = r.attribute_type_id
WHERE t.kind = $2 AND (t.user_id = $1 OR t.visibility = 'public')
ORDER BY t.name ASC, at.name ASC`

	var rows []dto.CatalogRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, models.TagKindCustom); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return rows, nil
}
