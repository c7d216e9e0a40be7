package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/pkg/jobs"
)

type registrarStub struct {
	handlers map[string]jobs.Handler
}

func (r *registrarStub) Register(jobType string, handler jobs.Handler) {
	if r.handlers == nil {
		r.handlers = map[string]jobs.Handler{}
	}
	r.handlers[jobType] = handler
}

type blobDeleterStub struct {
	deleted []string
	err     error
}

func (b *blobDeleterStub) DeleteObject(ctx context.Context, objectID string) error {
	b.deleted = append(b.deleted, objectID)
	return b.err
}

type rowDeleterStub struct {
	deleted []string
	err     error
}

func (r *rowDeleterStub) Delete(ctx context.Context, id string) error {
	r.deleted = append(r.deleted, id)
	return r.err
}

func TestStorageJobsDeleteBlobs(t *testing.T) {
	reg := &registrarStub{}
	blobs := &blobDeleterStub{}
	RegisterStorageJobs(reg, blobs, &rowDeleterStub{}, nil, nil)

	err := reg.handlers[JobDeleteObjectBlobs](context.Background(), newJob(JobDeleteObjectBlobs, "obj-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"obj-1"}, blobs.deleted)
}

func TestStorageJobsReturnErrorsForRetry(t *testing.T) {
	reg := &registrarStub{}
	RegisterStorageJobs(reg, &blobDeleterStub{err: errors.New("file tier down")}, &rowDeleterStub{err: errors.New("db down")}, NewMetricsService(), nil)

	assert.Error(t, reg.handlers[JobDeleteObjectBlobs](context.Background(), newJob(JobDeleteObjectBlobs, "obj-1")))
	assert.Error(t, reg.handlers[JobCompensateUpload](context.Background(), newJob(JobCompensateUpload, "obj-1")))
}

func TestStorageJobsCompensateUpload(t *testing.T) {
	reg := &registrarStub{}
	rows := &rowDeleterStub{}
	RegisterStorageJobs(reg, &blobDeleterStub{}, rows, nil, nil)

	require.NoError(t, reg.handlers[JobCompensateUpload](context.Background(), newJob(JobCompensateUpload, "obj-9")))
	assert.Equal(t, []string{"obj-9"}, rows.deleted)
}

func TestStorageJobsRejectBadPayload(t *testing.T) {
	reg := &registrarStub{}
	RegisterStorageJobs(reg, &blobDeleterStub{}, &rowDeleterStub{}, nil, nil)

	err := reg.handlers[JobDeleteObjectBlobs](context.Background(), jobs.Job{ID: "j1", Payload: 42})
	assert.Error(t, err)
}
