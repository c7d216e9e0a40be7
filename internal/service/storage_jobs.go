package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shaderhub/shaderhub-api/pkg/jobs"
)

// Background job types.
const (
	JobDeleteObjectBlobs = "storage.delete_object"
	JobCompensateUpload  = "upload.compensate"
)

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type jobRegistrar interface {
	Register(jobType string, handler jobs.Handler)
}

type blobDeleter interface {
	DeleteObject(ctx context.Context, objectID string) error
}

type objectRowDeleter interface {
	Delete(ctx context.Context, id string) error
}

// RegisterStorageJobs binds the cleanup handlers to the queue.
func RegisterStorageJobs(q jobRegistrar, blobs blobDeleter, objects objectRowDeleter, metrics *MetricsService, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	q.Register(JobDeleteObjectBlobs, func(ctx context.Context, job jobs.Job) error {
		objectID, err := objectIDPayload(job)
		if err != nil {
			return err
		}
		if err := blobs.DeleteObject(ctx, objectID); err != nil {
			metrics.RecordStorageFailure("delete")
			return err
		}
		logger.Info("object blobs deleted", zap.String("object_id", objectID))
		return nil
	})
	q.Register(JobCompensateUpload, func(ctx context.Context, job jobs.Job) error {
		objectID, err := objectIDPayload(job)
		if err != nil {
			return err
		}
		if err := objects.Delete(ctx, objectID); err != nil {
			return err
		}
		logger.Info("orphaned upload removed", zap.String("object_id", objectID))
		return nil
	})
}

func objectIDPayload(job jobs.Job) (string, error) {
	objectID, ok := job.Payload.(string)
	if !ok || objectID == "" {
		return "", fmt.Errorf("job %s: payload is not an object id", job.ID)
	}
	return objectID, nil
}

func newJob(jobType, objectID string) jobs.Job {
	return jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: objectID}
}
