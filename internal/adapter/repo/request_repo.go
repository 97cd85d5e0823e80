package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"hordeclient/internal/domain"
	"hordeclient/internal/infra"
	"hordeclient/internal/sqlinline"
)

// RequestRepositoryPG implements domain.RequestStore using PostgreSQL. The
// generation parameters travel as a single jsonb document keyed by the job.
type RequestRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRequestRepository constructs a new request repository instance.
func NewRequestRepository(sql infra.SQLExecutor) *RequestRepositoryPG {
	return &RequestRepositoryPG{sql: sql}
}

func (r *RequestRepositoryPG) Create(ctx context.Context, req *domain.ImageRequest) error {
	params, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request params: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertImageRequest, req.JobLocalID, params, req.CreatedAt)
	return err
}

func (r *RequestRepositoryPG) GetByJobID(ctx context.Context, jobLocalID string) (*domain.ImageRequest, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectImageRequestByJob, jobLocalID)
	var (
		params []byte
		req    domain.ImageRequest
	)
	if err := row.Scan(&params, &req.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrMissingRequest
		}
		return nil, err
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("decode request params: %w", err)
	}
	req.JobLocalID = jobLocalID
	return &req, nil
}

var _ domain.RequestStore = (*RequestRepositoryPG)(nil)
