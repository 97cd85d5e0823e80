package repo

import (
	"context"

	"hordeclient/internal/domain"
	"hordeclient/internal/infra"
)

// EnqueueRepositoryPG implements domain.Enqueuer. Job and request rows are
// written in one transaction; the promotion path relies on every waiting job
// having its parameters on hand.
type EnqueueRepositoryPG struct {
	runner *infra.SQLRunner
}

// NewEnqueueRepository constructs a new enqueue repository instance.
func NewEnqueueRepository(runner *infra.SQLRunner) *EnqueueRepositoryPG {
	return &EnqueueRepositoryPG{runner: runner}
}

func (r *EnqueueRepositoryPG) CreateJobWithRequest(ctx context.Context, job *domain.Job, req *domain.ImageRequest) error {
	return r.runner.WithTx(ctx, func(tx infra.SQLExecutor) error {
		if err := NewJobRepository(tx).Create(ctx, job); err != nil {
			return err
		}
		return NewRequestRepository(tx).Create(ctx, req)
	})
}

var _ domain.Enqueuer = (*EnqueueRepositoryPG)(nil)
