package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/models"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/jobs"
	"github.com/shaderhub/shaderhub-api/pkg/storage"
)

type objectStoreStub struct {
	objects    map[string]*models.Object
	tags       []dto.TagSummary
	attributes []dto.AttributeSummary
	findErr    error
	deleted    []string
	visibility map[string]models.Visibility
}

func newObjectStoreStub(objects ...models.Object) *objectStoreStub {
	stub := &objectStoreStub{objects: map[string]*models.Object{}, visibility: map[string]models.Visibility{}}
	for i := range objects {
		o := objects[i]
		stub.objects[o.ID] = &o
	}
	return stub
}

func (s *objectStoreStub) FindByID(ctx context.Context, id string) (*models.Object, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	o, ok := s.objects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *o
	return &copied, nil
}

func (s *objectStoreStub) ListTags(ctx context.Context, objectID string) ([]dto.TagSummary, error) {
	return s.tags, nil
}

func (s *objectStoreStub) ListAttributes(ctx context.Context, objectID string) ([]dto.AttributeSummary, error) {
	return s.attributes, nil
}

func (s *objectStoreStub) DeleteOwned(ctx context.Context, id, userID string) (bool, error) {
	o, ok := s.objects[id]
	if !ok || o.UserID != userID {
		return false, nil
	}
	delete(s.objects, id)
	s.deleted = append(s.deleted, id)
	return true, nil
}

func (s *objectStoreStub) SetVisibility(ctx context.Context, id, userID string, visibility models.Visibility) error {
	if o, ok := s.objects[id]; ok && o.UserID == userID {
		o.Visibility = visibility
	}
	s.visibility[id] = visibility
	return nil
}

type favouriteReaderStub struct{ favourite bool }

func (f favouriteReaderStub) IsFavourite(ctx context.Context, userID, objectID string) (bool, error) {
	return f.favourite, nil
}

type archiveSourceStub struct {
	archive  string
	fetchErr error
	thumbIDs []string
}

func (a *archiveSourceStub) FetchObject(ctx context.Context, objectID string) (io.ReadCloser, error) {
	if a.fetchErr != nil {
		return nil, a.fetchErr
	}
	return io.NopCloser(strings.NewReader(a.archive)), nil
}

func (a *archiveSourceStub) Thumbnails(ctx context.Context, ids []string) (io.ReadCloser, error) {
	a.thumbIDs = ids
	return io.NopCloser(strings.NewReader("zip")), nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return q.err
}

type feedInvalidatorStub struct{ calls int }

func (f *feedInvalidatorStub) InvalidateFeed(ctx context.Context) { f.calls++ }

func newObjectServiceForTest(store *objectStoreStub, files *archiveSourceStub, queue *queueStub, feed *feedInvalidatorStub) *ObjectService {
	return NewObjectService(ObjectServiceDeps{
		Objects:      store,
		Favourites:   favouriteReaderStub{favourite: true},
		Files:        files,
		Signer:       storage.NewSignedURLSigner("download-secret", time.Minute),
		Queue:        queue,
		Feed:         feed,
		DownloadBase: "/api/v1",
	})
}

func TestObjectServiceDetailHidesPrivateObjects(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", Name: "Chair", Visibility: models.VisibilityPrivate, UserID: "owner"})
	svc := newObjectServiceForTest(store, &archiveSourceStub{}, &queueStub{}, &feedInvalidatorStub{})
	ctx := context.Background()

	_, err := svc.Detail(ctx, "obj1", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = svc.Detail(ctx, "obj1", "stranger")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	detail, err := svc.Detail(ctx, "obj1", "owner")
	require.NoError(t, err)
	assert.Equal(t, "Chair", detail.Name)
	assert.True(t, detail.Favourite)
}

func TestObjectServiceDetailPublicAnonymous(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", Name: "Lamp", Visibility: models.VisibilityPublic, UserID: "owner"})
	store.tags = []dto.TagSummary{{ID: "t1", Name: "Furniture", Kind: models.TagKindCustom}}
	svc := newObjectServiceForTest(store, &archiveSourceStub{}, &queueStub{}, &feedInvalidatorStub{})

	detail, err := svc.Detail(context.Background(), "obj1", "")
	require.NoError(t, err)
	assert.False(t, detail.Favourite)
	assert.Len(t, detail.Tags, 1)
}

func TestObjectServiceDetailRejectsUnsafeID(t *testing.T) {
	svc := newObjectServiceForTest(newObjectStoreStub(), &archiveSourceStub{}, &queueStub{}, &feedInvalidatorStub{})
	_, err := svc.Detail(context.Background(), "../etc/passwd", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestObjectServiceDeleteEnqueuesBlobRemoval(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", UserID: "owner"})
	queue := &queueStub{}
	feed := &feedInvalidatorStub{}
	svc := newObjectServiceForTest(store, &archiveSourceStub{}, queue, feed)

	require.NoError(t, svc.Delete(context.Background(), "obj1", "owner"))
	assert.Equal(t, []string{"obj1"}, store.deleted)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobDeleteObjectBlobs, queue.jobs[0].Type)
	assert.Equal(t, "obj1", queue.jobs[0].Payload)
	assert.Equal(t, 1, feed.calls)
}

func TestObjectServiceDeleteChecksOwnership(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", UserID: "owner"})
	queue := &queueStub{}
	svc := newObjectServiceForTest(store, &archiveSourceStub{}, queue, &feedInvalidatorStub{})
	ctx := context.Background()

	assert.ErrorIs(t, svc.Delete(ctx, "obj1", "stranger"), appErrors.ErrForbidden)
	assert.ErrorIs(t, svc.Delete(ctx, "missing", "owner"), appErrors.ErrNotFound)
	assert.Empty(t, queue.jobs)
}

func TestObjectServiceDeleteSurvivesQueueFailure(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", UserID: "owner"})
	svc := newObjectServiceForTest(store, &archiveSourceStub{}, &queueStub{err: errors.New("stopped")}, &feedInvalidatorStub{})

	assert.NoError(t, svc.Delete(context.Background(), "obj1", "owner"))
}

func TestObjectServiceDownloadRoundTrip(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", Visibility: models.VisibilityPublic, UserID: "owner"})
	svc := newObjectServiceForTest(store, &archiveSourceStub{archive: "zip-bytes"}, &queueStub{}, &feedInvalidatorStub{})
	ctx := context.Background()

	link, err := svc.DownloadURL(ctx, "obj1", "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link.URL, "/api/v1/objects/obj1/archive?token="))

	token := strings.TrimPrefix(link.URL, "/api/v1/objects/obj1/archive?token=")
	rc, err := svc.OpenArchive(ctx, "obj1", token)
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "zip-bytes", string(body))

	_, err = svc.OpenArchive(ctx, "obj2", token)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.OpenArchive(ctx, "obj1", "forged.token.value")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestObjectServiceOpenArchiveMissingBlob(t *testing.T) {
	store := newObjectStoreStub(models.Object{ID: "obj1", Visibility: models.VisibilityPublic, UserID: "owner"})
	svc := newObjectServiceForTest(store, &archiveSourceStub{fetchErr: filestore.ErrNotFound}, &queueStub{}, &feedInvalidatorStub{})

	link, err := svc.DownloadURL(context.Background(), "obj1", "owner")
	require.NoError(t, err)
	token := link.URL[strings.Index(link.URL, "token=")+len("token="):]
	_, err = svc.OpenArchive(context.Background(), "obj1", token)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestObjectServiceThumbnailsValidatesIDs(t *testing.T) {
	files := &archiveSourceStub{}
	svc := newObjectServiceForTest(newObjectStoreStub(), files, &queueStub{}, &feedInvalidatorStub{})
	ctx := context.Background()

	_, err := svc.Thumbnails(ctx, dto.ThumbnailsRequest{IDs: []string{"ok_1", "../x"}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = svc.Thumbnails(ctx, dto.ThumbnailsRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	rc, err := svc.Thumbnails(ctx, dto.ThumbnailsRequest{IDs: []string{"a", "b"}})
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, []string{"a", "b"}, files.thumbIDs)
}
