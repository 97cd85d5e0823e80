package domain

import (
	"context"
	"time"
)

// JobStore defines persistence for job records.
type JobStore interface {
	Create(ctx context.Context, job *Job) error
	// Update merges the patch into the stored record. The updated timestamp is
	// provided by the caller so the durable row and the in-memory mirror agree.
	Update(ctx context.Context, localID string, patch JobPatch, now time.Time) error
	GetByID(ctx context.Context, localID string) (*Job, error)
	ListByStatus(ctx context.Context, statuses ...JobStatus) ([]Job, error)
	Delete(ctx context.Context, localID string) error
}

// ImageStore handles persistence for image binaries and metadata. Create also
// writes the companion favourite marker inside the same transaction.
type ImageStore interface {
	Create(ctx context.Context, image *Image) error
	ExistsByRemoteID(ctx context.Context, remoteImageID string) (bool, error)
	ListByJobID(ctx context.Context, jobLocalID string) ([]Image, error)
	GetByID(ctx context.Context, id string) (*Image, error)
}

// RequestStore persists the generation parameters paired 1:1 with a job.
type RequestStore interface {
	Create(ctx context.Context, req *ImageRequest) error
	GetByJobID(ctx context.Context, jobLocalID string) (*ImageRequest, error)
}

// Enqueuer persists a new job and its generation parameters atomically, so a
// job row can never exist without the parameters needed to submit it.
type Enqueuer interface {
	CreateJobWithRequest(ctx context.Context, job *Job, req *ImageRequest) error
}
