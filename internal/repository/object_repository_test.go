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

var feedColumns = []string{"id", "name", "user_id", "created_at"}

func TestFeedQueryForwardWithCompoundCursor(t *testing.T) {
	query, args, err := feedQuery(FeedParams{
		Limit:  21,
		Cursor: &models.Cursor{CreatedAt: 100, ID: "obj-9"},
	}).ToSql()
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT o.id, o.name, o.user_id, o.created_at FROM objects o WHERE o.visibility = $1 AND (o.created_at, o.id) < ($2, $3) ORDER BY o.created_at DESC, o.id DESC LIMIT 21",
		query)
	assert.Equal(t, []interface{}{models.VisibilityPublic, int64(100), "obj-9"}, args)
}

func TestFeedQueryBackwardWithLegacyCursor(t *testing.T) {
	query, args, err := feedQuery(FeedParams{
		Limit:    6,
		Cursor:   &models.Cursor{CreatedAt: 100},
		Backward: true,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "o.created_at > $2")
	assert.Contains(t, query, "ORDER BY o.created_at ASC, o.id ASC LIMIT 6")
	assert.Equal(t, []interface{}{models.VisibilityPublic, int64(100)}, args)
}

func TestFeedQuerySearchJoinsOnlyWithTerms(t *testing.T) {
	plain, _, err := feedQuery(FeedParams{Limit: 5}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, plain, "JOIN")

	query, args, err := feedQuery(FeedParams{Limit: 5, Terms: []string{"chair", "50%"}}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, query, "SELECT DISTINCT o.id")
	assert.Contains(t, query, "LEFT JOIN tags t ON t.id = otr.tag_id AND t.visibility = 'public'")
	assert.Contains(t, query, "(o.name ILIKE $2 OR t.name ILIKE $3 OR av.value ILIKE $4 OR o.name ILIKE $5 OR t.name ILIKE $6 OR av.value ILIKE $7)")
	assert.Equal(t, "%chair%", args[1])
	assert.Equal(t, `%50\%%`, args[4])
}

func TestObjectRepositoryListFeed(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewObjectRepository(db)

	rows := sqlmock.NewRows(feedColumns).
		AddRow("b", "Lamp", "u1", int64(20)).
		AddRow("a", "Chair", "u1", int64(10))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT o.id, o.name, o.user_id, o.created_at FROM objects o WHERE o.visibility = $1")).
		WithArgs("public").
		WillReturnRows(rows)

	items, err := repo.ListFeed(context.Background(), FeedParams{Limit: 3})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, int64(10), items[1].CreatedAt)
}

func TestObjectRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewObjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, visibility, user_id, created_at FROM objects WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestObjectRepositoryCreateWithMetadata(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewObjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO objects (id, name, visibility, user_id, created_at)`)).
		WithArgs("obj-1", "Chair", "private", "u1", int64(1700000000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO object_tag_relations (tag_id, object_id)`)).
		WithArgs("tag-1", "obj-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attribute_values (id, value, attribute_type_id)`)).
		WithArgs("attr-v1", "oak", "attr-material").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO attribute_value_object_relations (object_id, attribute_value_id)`)).
		WithArgs("obj-1", "attr-v1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SELECT $1, id, $2 FROM tags WHERE kind = $3`)).
		WithArgs("obj-1", "u1", "uploaded").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.CreateWithMetadata(context.Background(), NewObject{
		Object: models.Object{ID: "obj-1", Name: "Chair", Visibility: models.VisibilityPrivate, UserID: "u1", CreatedAt: 1700000000},
		TagIDs: []string{"tag-1"},
		Attributes: []models.AttributeValue{
			{ID: "attr-v1", Value: "oak", AttributeTypeID: "attr-material"},
		},
	})
	require.NoError(t, err)
}

func TestObjectRepositoryCreateWithMetadataRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewObjectRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO objects`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO object_tag_relations`)).
		WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.CreateWithMetadata(context.Background(), NewObject{
		Object: models.Object{ID: "obj-1", Name: "Chair", Visibility: models.VisibilityPrivate, UserID: "u1"},
		TagIDs: []string{"tag-404"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert object tag tag-404")
}

func TestObjectRepositoryDeleteOwned(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewObjectRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM objects WHERE id = $1 AND user_id = $2`)).
		WithArgs("obj-1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM objects WHERE id = $1 AND user_id = $2`)).
		WithArgs("obj-1", "intruder").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteOwned(context.Background(), "obj-1", "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteOwned(context.Background(), "obj-1", "intruder")
	require.NoError(t, err)
	assert.False(t, deleted)
}
