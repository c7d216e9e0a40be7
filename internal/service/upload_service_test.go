package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/dto"
	"github.com/shaderhub/shaderhub-api/internal/filestore"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/repository"
	appErrors "github.com/shaderhub/shaderhub-api/pkg/errors"
	"github.com/shaderhub/shaderhub-api/pkg/modelzip"
)

// uploadWorld is an in-memory stand-in for the tag catalog and object tables.
type uploadWorld struct {
	*objectStoreStub
	catalog   []dto.CatalogRow
	created   []repository.NewObject
	createErr error
	deleteErr error
	rowsGone  []string
}

func (w *uploadWorld) ListCatalog(ctx context.Context, userID string) ([]dto.CatalogRow, error) {
	return w.catalog, nil
}

func (w *uploadWorld) CreateWithMetadata(ctx context.Context, in repository.NewObject) error {
	if w.createErr != nil {
		return w.createErr
	}
	w.created = append(w.created, in)
	o := in.Object
	w.objects[o.ID] = &o
	w.tags = nil
	for _, tagID := range in.TagIDs {
		for _, row := range w.catalog {
			if row.ID == tagID {
				w.tags = append(w.tags, dto.TagSummary{ID: row.ID, Name: row.Name, Colour: row.Colour, Kind: row.Kind})
				break
			}
		}
	}
	w.attributes = []dto.AttributeSummary{}
	for _, attr := range in.Attributes {
		w.attributes = append(w.attributes, dto.AttributeSummary{TypeID: attr.AttributeTypeID, Value: attr.Value})
	}
	return nil
}

func (w *uploadWorld) Delete(ctx context.Context, id string) error {
	if w.deleteErr != nil {
		return w.deleteErr
	}
	delete(w.objects, id)
	w.rowsGone = append(w.rowsGone, id)
	return nil
}

type uploaderStub struct {
	objectIDs []string
	withThumb bool
	err       error
}

func (u *uploaderStub) UploadObject(ctx context.Context, objectID string, archive filestore.Part, thumbnail *filestore.Part) error {
	u.objectIDs = append(u.objectIDs, objectID)
	u.withThumb = thumbnail != nil
	return u.err
}

func strPtr(s string) *string { return &s }

func newUploadWorld() *uploadWorld {
	return &uploadWorld{
		objectStoreStub: newObjectStoreStub(),
		catalog: []dto.CatalogRow{
			{Tag: models.Tag{ID: "tag-1", Name: "Furniture", Visibility: models.VisibilityPublic, Kind: models.TagKindCustom}},
			{Tag: models.Tag{ID: "tag-2", Name: "Material", Visibility: models.VisibilityPublic, Kind: models.TagKindCustom}, AttributeID: strPtr("attr-1"), AttributeName: strPtr("Roughness")},
			{Tag: models.Tag{ID: "tag-2", Name: "Material", Visibility: models.VisibilityPublic, Kind: models.TagKindCustom}, AttributeID: strPtr("attr-2"), AttributeName: strPtr("Metalness")},
		},
	}
}

func newUploadService(world *uploadWorld, files *uploaderStub, queue *queueStub) *UploadService {
	svc := NewUploadService(UploadServiceDeps{
		Catalog: world,
		Objects: world,
		Files:   files,
		Queue:   queue,
		Feed:    &feedInvalidatorStub{},
		Config:  UploadConfig{MaxArchiveBytes: 1 << 20, MaxThumbnailBytes: 1 << 20},
	})
	seq := 0
	svc.newID = func() (string, error) {
		seq++
		return fmt.Sprintf("id%03d", seq), nil
	}
	return svc
}

func gltfArchive(t *testing.T) []byte {
	t.Helper()
	archive, err := modelzip.Pack([]modelzip.File{
		{Path: "chair/scene.gltf", Content: []byte(`{"asset":{"version":"2.0"}}`)},
		{Path: "chair/scene.bin", Content: []byte{0, 1, 2}},
		{Path: "chair/textures/wood.png", Content: []byte("png")},
	})
	require.NoError(t, err)
	return archive
}

func TestUploadServiceChairScenario(t *testing.T) {
	world := newUploadWorld()
	files := &uploaderStub{}
	svc := newUploadService(world, files, &queueStub{})
	ctx := context.Background()

	res, err := svc.Upload(ctx, "alice", UploadInput{
		Metadata:    dto.UploadMetadata{Name: "Chair", Metadata: map[string]map[string]string{"tag-1": {}}},
		Archive:     gltfArchive(t),
		ArchiveName: "chair.zip",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{res.ObjectID}, files.objectIDs)
	require.Len(t, world.created, 1)
	assert.Equal(t, models.VisibilityPrivate, world.created[0].Object.Visibility)

	catalog, err := svc.Catalog(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "tag-1", catalog[0].Tag.ID)
	assert.Empty(t, catalog[0].Attributes)
	assert.Len(t, catalog[1].Attributes, 2)

	objects := newObjectServiceForTest(world.objectStoreStub, &archiveSourceStub{}, &queueStub{}, &feedInvalidatorStub{})
	detail, err := objects.Detail(ctx, res.ObjectID, "alice")
	require.NoError(t, err)
	require.Len(t, detail.Tags, 1)
	assert.Equal(t, "tag-1", detail.Tags[0].ID)
	assert.Empty(t, detail.Attributes)
}

func TestUploadServiceStoresAttributeValues(t *testing.T) {
	world := newUploadWorld()
	svc := newUploadService(world, &uploaderStub{}, &queueStub{})

	_, err := svc.Upload(context.Background(), "alice", UploadInput{
		Metadata: dto.UploadMetadata{Name: "Sphere", Metadata: map[string]map[string]string{
			"tag-2": {"attr-1": "0.4", "attr-2": "  "},
		}},
		Archive:   gltfArchive(t),
		Thumbnail: []byte("\x89PNG\r\n\x1a\n0000"),
	})
	require.NoError(t, err)
	require.Len(t, world.created, 1)
	attrs := world.created[0].Attributes
	require.Len(t, attrs, 1, "blank values are skipped")
	assert.Equal(t, models.AttributeValue{ID: "id001", Value: "0.4", AttributeTypeID: "attr-1"}, attrs[0])
}

func TestUploadServiceRejectsBadInput(t *testing.T) {
	world := newUploadWorld()
	svc := newUploadService(world, &uploaderStub{}, &queueStub{})
	ctx := context.Background()
	objOnly, err := modelzip.Pack([]modelzip.File{{Path: "m.obj", Content: []byte("v 0 0 0")}})
	require.NoError(t, err)

	cases := map[string]UploadInput{
		"missing archive":   {Metadata: dto.UploadMetadata{Name: "x"}},
		"not a zip":         {Metadata: dto.UploadMetadata{Name: "x"}, Archive: []byte("plain text")},
		"no previewable":    {Metadata: dto.UploadMetadata{Name: "x"}, Archive: objOnly},
		"missing name":      {Metadata: dto.UploadMetadata{}, Archive: gltfArchive(t)},
		"unknown tag":       {Metadata: dto.UploadMetadata{Name: "x", Metadata: map[string]map[string]string{"tag-9": {}}}, Archive: gltfArchive(t)},
		"foreign attribute": {Metadata: dto.UploadMetadata{Name: "x", Metadata: map[string]map[string]string{"tag-1": {"attr-1": "1"}}}, Archive: gltfArchive(t)},
		"thumbnail not image": {
			Metadata: dto.UploadMetadata{Name: "x"}, Archive: gltfArchive(t), Thumbnail: []byte("just text"),
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Upload(ctx, "alice", in)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
		})
	}
	assert.Empty(t, world.created)
}

func TestUploadServiceCompensatesFailedForward(t *testing.T) {
	world := newUploadWorld()
	queue := &queueStub{}
	svc := newUploadService(world, &uploaderStub{err: errors.New("file tier down")}, queue)

	_, err := svc.Upload(context.Background(), "alice", UploadInput{Metadata: dto.UploadMetadata{Name: "Chair"}, Archive: gltfArchive(t)})
	assert.ErrorIs(t, err, appErrors.ErrRequestFailed)
	assert.Equal(t, []string{"id001"}, world.rowsGone)
	assert.Empty(t, world.objects)
	assert.Empty(t, queue.jobs)
}

func TestUploadServiceQueuesFailedCompensation(t *testing.T) {
	world := newUploadWorld()
	world.deleteErr = errors.New("db down")
	queue := &queueStub{}
	svc := newUploadService(world, &uploaderStub{err: errors.New("file tier down")}, queue)

	_, err := svc.Upload(context.Background(), "alice", UploadInput{Metadata: dto.UploadMetadata{Name: "Chair"}, Archive: gltfArchive(t)})
	assert.ErrorIs(t, err, appErrors.ErrRequestFailed)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobCompensateUpload, queue.jobs[0].Type)
	assert.Equal(t, "id001", queue.jobs[0].Payload)
}

func TestUploadServiceMetadataFailure(t *testing.T) {
	world := newUploadWorld()
	world.createErr = errors.New("tx aborted")
	files := &uploaderStub{}
	svc := newUploadService(world, files, &queueStub{})

	_, err := svc.Upload(context.Background(), "alice", UploadInput{Metadata: dto.UploadMetadata{Name: "Chair"}, Archive: gltfArchive(t)})
	assert.ErrorIs(t, err, appErrors.ErrRequestFailed)
	assert.Empty(t, files.objectIDs, "blobs are only forwarded after metadata commits")
}
