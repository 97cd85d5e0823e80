package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"

	"hordeclient/internal/domain"
	"hordeclient/internal/horde"
)

type downloadResult struct {
	gen  horde.Generation
	data []byte
	err  error
}

// downloadAndFinalize turns a remote "finished" signal into persisted image
// rows, handling partial failure per generation. It returns the reconciled job
// record and whether at least one requested image has succeeded so far; the
// caller uses that to pick the terminal state once the remote reports done.
// An error means the attempt aborted before reconciling and should be retried
// on a later tick.
func (c *Controller) downloadAndFinalize(ctx context.Context, job domain.Job, kudos float64) (domain.Job, bool, error) {
	now := c.now()

	// The remote reports "finished" on every poll until our own state catches
	// up, so finalize attempts within the dedup window are no-op successes.
	c.mu.Lock()
	if at, ok := c.finalizedAt[job.RemoteID]; ok && now.Sub(at) < c.cfg.FinalizeDedupWindow {
		c.mu.Unlock()
		return job, job.ImagesCompleted > 0, nil
	}
	c.finalizedAt[job.RemoteID] = now
	for id, at := range c.finalizedAt {
		if now.Sub(at) >= c.cfg.FinalizeDedupWindow {
			delete(c.finalizedAt, id)
		}
	}
	c.mu.Unlock()

	status, err := c.client.Status(ctx, job.RemoteID)
	if err != nil {
		c.mu.Lock()
		delete(c.finalizedAt, job.RemoteID)
		c.mu.Unlock()
		return job, false, err
	}

	var (
		newErrors []domain.JobError
		newFailed int
		pending   []horde.Generation
	)
	for _, gen := range status.Generations {
		if gen.Censored {
			if c.markCensored(job.LocalID, gen.ID) {
				newFailed++
				newErrors = append(newErrors, censoredError(c.cfg.AllowNSFW))
			}
			continue
		}
		exists, err := c.images.ExistsByRemoteID(ctx, gen.ID)
		if err != nil {
			c.log.Error().Err(err).Str("image_id", gen.ID).Msg("controller: image existence check failed")
			continue
		}
		if exists {
			continue
		}
		pending = append(pending, gen)
	}

	results := make([]downloadResult, len(pending))
	var wg sync.WaitGroup
	for i, gen := range pending {
		wg.Add(1)
		go func(i int, gen horde.Generation) {
			defer wg.Done()
			data, err := c.fetcher.Fetch(ctx, gen.Img)
			results[i] = downloadResult{gen: gen, data: data, err: err}
		}(i, gen)
	}
	wg.Wait()

	succeeded := 0
	for _, res := range results {
		if res.err == nil {
			succeeded++
		}
	}
	kudosShare := 0.0
	if succeeded > 0 {
		kudosShare = kudos / float64(succeeded)
	}

	persisted := 0
	for _, res := range results {
		if res.err != nil {
			// One failed download leaves that image absent without affecting
			// its siblings or the job state.
			c.log.Warn().Err(res.err).Str("image_id", res.gen.ID).Msg("controller: image download failed")
			continue
		}
		img := &domain.Image{
			ID:            uuid.NewString(),
			JobLocalID:    job.LocalID,
			RemoteImageID: res.gen.ID,
			Kind:          domain.ImageKindGenerated,
			Data:          res.data,
			Seed:          res.gen.Seed,
			WorkerID:      res.gen.WorkerID,
			WorkerName:    res.gen.WorkerName,
			Model:         res.gen.Model,
			Kudos:         kudosShare,
			CreatedAt:     c.now(),
		}
		if err := c.images.Create(ctx, img); err != nil {
			c.log.Error().Err(err).Str("image_id", res.gen.ID).Msg("controller: image persist failed")
			continue
		}
		persisted++
	}

	completed := job.ImagesCompleted + persisted
	failed := job.ImagesFailed + newFailed
	patch := domain.JobPatch{
		ImagesCompleted: &completed,
		ImagesFailed:    &failed,
		AppendErrors:    newErrors,
	}
	if raw, err := json.Marshal(status); err == nil {
		patch.RawStatus = raw
	}

	updated, err := c.applyPatch(ctx, job.LocalID, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Discarded by the user while downloading; nothing left to track.
			return job, completed > 0, nil
		}
		return job, false, err
	}
	return updated, updated.ImagesCompleted > 0, nil
}

// markCensored records a censored generation ID against its job and reports
// whether it was new, so repeated finalize passes never double-count the same
// refusal. Entries live until the job's terminal transition releases them.
func (c *Controller) markCensored(jobLocalID, genID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen, ok := c.censoredSeen[jobLocalID]
	if !ok {
		seen = make(map[string]struct{})
		c.censoredSeen[jobLocalID] = seen
	}
	if _, dup := seen[genID]; dup {
		return false
	}
	seen[genID] = struct{}{}
	return true
}

func censoredError(allowNSFW bool) domain.JobError {
	if !allowNSFW {
		return domain.JobError{
			Kind:    domain.JobErrorNSFWBlock,
			Message: "image was censored by the worker because NSFW content is disabled",
		}
	}
	return domain.JobError{
		Kind:    domain.JobErrorWorkerRefusal,
		Message: "the worker refused to return this image",
	}
}
