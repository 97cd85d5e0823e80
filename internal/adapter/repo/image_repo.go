package repo

import (
	"context"

	"hordeclient/internal/domain"
	"hordeclient/internal/infra"
	"hordeclient/internal/sqlinline"
)

// ImageRepositoryPG implements domain.ImageStore using PostgreSQL. Creation
// runs inside a transaction so the image row and its favourite marker land
// together or not at all.
type ImageRepositoryPG struct {
	runner *infra.SQLRunner
}

// NewImageRepository constructs a new image repository instance.
func NewImageRepository(runner *infra.SQLRunner) *ImageRepositoryPG {
	return &ImageRepositoryPG{runner: runner}
}

func (r *ImageRepositoryPG) Create(ctx context.Context, image *domain.Image) error {
	return r.runner.WithTx(ctx, func(tx infra.SQLExecutor) error {
		if _, err := tx.Exec(ctx, sqlinline.QInsertImage,
			image.ID, image.JobLocalID, image.RemoteImageID, string(image.Kind), image.Data,
			image.Seed, image.WorkerID, image.WorkerName, image.Model, image.Kudos, image.Censored,
			image.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, sqlinline.QInsertImageFavorite, image.ID, image.CreatedAt)
		return err
	})
}

func (r *ImageRepositoryPG) ExistsByRemoteID(ctx context.Context, remoteImageID string) (bool, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QImageExistsByRemoteID, remoteImageID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByJobID returns image metadata for a job; payload bytes are omitted so
// gallery listings do not drag every blob across the wire.
func (r *ImageRepositoryPG) ListByJobID(ctx context.Context, jobLocalID string) ([]domain.Image, error) {
	rows, err := r.runner.Query(ctx, sqlinline.QSelectImagesByJob, jobLocalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []domain.Image
	for rows.Next() {
		var (
			img  domain.Image
			kind string
		)
		if err := rows.Scan(
			&img.ID, &img.JobLocalID, &img.RemoteImageID, &kind,
			&img.Seed, &img.WorkerID, &img.WorkerName, &img.Model, &img.Kudos, &img.Censored,
			&img.CreatedAt,
		); err != nil {
			return nil, err
		}
		img.Kind = domain.ImageKind(kind)
		images = append(images, img)
	}
	return images, rows.Err()
}

func (r *ImageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	row := r.runner.QueryRow(ctx, sqlinline.QSelectImageByID, id)
	var (
		img  domain.Image
		kind string
	)
	err := row.Scan(
		&img.ID, &img.JobLocalID, &img.RemoteImageID, &kind, &img.Data,
		&img.Seed, &img.WorkerID, &img.WorkerName, &img.Model, &img.Kudos, &img.Censored,
		&img.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	img.Kind = domain.ImageKind(kind)
	return &img, nil
}

var _ domain.ImageStore = (*ImageRepositoryPG)(nil)
