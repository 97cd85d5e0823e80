package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hordeclient/internal/domain"
	"hordeclient/internal/infra"
	"hordeclient/internal/sqlinline"

	"github.com/jackc/pgx/v5"
)

// JobRepositoryPG implements domain.JobStore using PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository constructs a new job repository instance.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	errJSON, err := json.Marshal(job.Errors)
	if err != nil {
		return fmt.Errorf("marshal job errors: %w", err)
	}
	raw := job.RawStatus
	if raw == nil {
		raw = json.RawMessage(`{}`)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.LocalID, job.RemoteID, string(job.Status),
		job.ImagesRequested, job.ImagesCompleted, job.ImagesFailed,
		job.Height, job.Width,
		job.InitWaitTime, job.WaitTime, job.QueuePosition,
		errJSON, []byte(raw),
		job.CreatedAt,
	)
	return err
}

func (r *JobRepositoryPG) Update(ctx context.Context, localID string, patch domain.JobPatch, now time.Time) error {
	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	var appended []byte
	if len(patch.AppendErrors) > 0 {
		raw, err := json.Marshal(patch.AppendErrors)
		if err != nil {
			return fmt.Errorf("marshal appended errors: %w", err)
		}
		appended = raw
	}
	var rawStatus []byte
	if patch.RawStatus != nil {
		rawStatus = []byte(patch.RawStatus)
	}
	_, err := r.sql.Exec(ctx, sqlinline.QPatchJob,
		localID,
		patch.RemoteID, status,
		patch.ImagesCompleted, patch.ImagesFailed,
		patch.InitWaitTime, patch.WaitTime, patch.QueuePosition,
		appended, rawStatus,
		patch.AcknowledgedAt, patch.CompletedAt,
		now,
	)
	return err
}

func (r *JobRepositoryPG) GetByID(ctx context.Context, localID string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJobByID, localID)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func (r *JobRepositoryPG) ListByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.Job, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectJobsByStatus, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func (r *JobRepositoryPG) Delete(ctx context.Context, localID string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QDeleteJob, localID)
	return err
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job     domain.Job
		status  string
		errJSON []byte
		raw     []byte
	)
	err := row.Scan(
		&job.LocalID, &job.RemoteID, &status,
		&job.ImagesRequested, &job.ImagesCompleted, &job.ImagesFailed,
		&job.Height, &job.Width,
		&job.InitWaitTime, &job.WaitTime, &job.QueuePosition,
		&errJSON, &raw,
		&job.CreatedAt, &job.UpdatedAt, &job.AcknowledgedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if len(errJSON) > 0 {
		if err := json.Unmarshal(errJSON, &job.Errors); err != nil {
			return nil, fmt.Errorf("decode job errors: %w", err)
		}
	}
	job.RawStatus = json.RawMessage(raw)
	return &job, nil
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
