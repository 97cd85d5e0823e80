package controller

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"hordeclient/internal/domain"
	"hordeclient/internal/horde"
)

type checkResult struct {
	job   domain.Job
	check *horde.StatusCheck
	err   error
}

// PollInFlightJobs issues one lightweight status check per in-flight job,
// concurrently, and handles each settled result independently. Requested jobs
// are included when they already carry a remote ID (a submission recovered at
// bootstrap before its first check landed); their real state is derived from
// that first check. A per-remote-ID gate keeps the aggregate request rate
// bounded when many jobs are in flight at once.
func (c *Controller) PollInFlightJobs(ctx context.Context) error {
	now := c.now()

	c.mu.Lock()
	if !c.lastPoll.IsZero() && now.Sub(c.lastPoll) < c.cfg.PollDebounce {
		c.mu.Unlock()
		return nil
	}
	if now.Before(c.backoffUntil) {
		c.mu.Unlock()
		return nil
	}
	c.lastPoll = now
	c.mu.Unlock()

	inFlight := c.index.ListByStatus(domain.JobStatusRequested, domain.JobStatusQueued, domain.JobStatusProcessing)
	if len(inFlight) == 0 {
		c.mu.Lock()
		c.lastPoll = time.Time{}
		c.mu.Unlock()
		return nil
	}

	eligible := c.gateChecks(inFlight, now)
	if len(eligible) == 0 {
		return nil
	}

	results := make([]checkResult, len(eligible))
	var wg sync.WaitGroup
	for i, job := range eligible {
		wg.Add(1)
		go func(i int, job domain.Job) {
			defer wg.Done()
			check, err := c.client.Check(ctx, job.RemoteID)
			results[i] = checkResult{job: job, check: check, err: err}
		}(i, job)
	}
	wg.Wait()

	for _, res := range results {
		if horde.IsRateLimited(res.err) {
			// Not attributed to any individual job: pause the whole loop and
			// drop the rest of this tick's results.
			c.mu.Lock()
			c.backoffUntil = c.now().Add(c.cfg.RateLimitBackoff)
			c.mu.Unlock()
			c.log.Warn().Dur("backoff", c.cfg.RateLimitBackoff).Msg("controller: rate limited by remote, pausing polling")
			break
		}
		c.handleCheckResult(ctx, res)
	}
	return nil
}

// gateChecks filters out jobs checked more recently than the gate TTL and
// marks the survivors as checked now. Stale entries are pruned in the same
// pass, so the map stays bounded by the number of live jobs.
func (c *Controller) gateChecks(jobs []domain.Job, now time.Time) []domain.Job {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, at := range c.checkedAt {
		if now.Sub(at) >= c.cfg.CheckGateTTL {
			delete(c.checkedAt, id)
		}
	}

	var eligible []domain.Job
	for _, job := range jobs {
		// No remote ID means the submission is still on the wire; there is
		// nothing to check yet.
		if job.RemoteID == "" {
			continue
		}
		if at, ok := c.checkedAt[job.RemoteID]; ok && now.Sub(at) < c.cfg.CheckGateTTL {
			continue
		}
		c.checkedAt[job.RemoteID] = now
		eligible = append(eligible, job)
	}
	return eligible
}

func (c *Controller) handleCheckResult(ctx context.Context, res checkResult) {
	job := res.job

	if res.err != nil {
		var apiErr *horde.APIError
		if errors.As(res.err, &apiErr) {
			c.failJob(ctx, job.LocalID, domain.JobError{Kind: domain.JobErrorOther, Message: apiErr.Message})
			return
		}
		// Transient transport failure; the job is unchanged and will be checked
		// again next tick.
		c.log.Warn().Err(res.err).Str("job_id", job.LocalID).Msg("controller: status check failed")
		return
	}

	check := res.check
	if check.Faulted {
		c.failJob(ctx, job.LocalID, domain.JobError{Kind: domain.JobErrorOther, Message: "remote reports the request faulted"})
		return
	}

	if check.Finished > 0 || check.Done {
		// Let the remote finish writing generation entries before asking for
		// the full status.
		c.sleep(ctx, c.cfg.FinalizeSettle)
		updated, ok, err := c.downloadAndFinalize(ctx, job, check.Kudos)
		if err != nil {
			c.log.Warn().Err(err).Str("job_id", job.LocalID).Msg("controller: finalize aborted, will retry")
			return
		}

		if check.Done {
			status := domain.JobStatusDone
			if !ok {
				status = domain.JobStatusError
			}
			now := c.now()
			patch := domain.JobPatch{Status: &status, CompletedAt: &now}
			if _, err := c.applyPatch(ctx, job.LocalID, patch); err != nil && !errors.Is(err, domain.ErrNotFound) {
				c.log.Error().Err(err).Str("job_id", job.LocalID).Msg("controller: failed to record completion")
			}
			c.log.Info().
				Str("job_id", job.LocalID).
				Str("status", string(status)).
				Int("completed", updated.ImagesCompleted).
				Int("failed", updated.ImagesFailed).
				Msg("controller: job finished")
			return
		}

		// Partially finished: counts were reconciled by finalize, refresh the
		// queue estimate without touching the status.
		c.patchProgress(ctx, job.LocalID, nil, check)
		return
	}

	status := domain.JobStatusQueued
	if check.Processing >= 1 {
		status = domain.JobStatusProcessing
	}
	c.patchProgress(ctx, job.LocalID, &status, check)
}

func (c *Controller) patchProgress(ctx context.Context, localID string, status *domain.JobStatus, check *horde.StatusCheck) {
	patch := domain.JobPatch{
		Status:        status,
		WaitTime:      &check.WaitTime,
		QueuePosition: &check.QueuePosition,
	}
	if raw, err := json.Marshal(check); err == nil {
		patch.RawStatus = raw
	}
	if _, err := c.applyPatch(ctx, localID, patch); err != nil && !errors.Is(err, domain.ErrNotFound) {
		c.log.Error().Err(err).Str("job_id", localID).Msg("controller: failed to record progress")
	}
}
