package controller

import (
	"context"
	"encoding/json"
	"errors"

	"hordeclient/internal/domain"
	"hordeclient/internal/horde"
)

// PromoteWaitingJob moves at most one waiting job into the remote system,
// respecting the concurrency ceiling. Draining a backlog is left to the fixed
// tick interval rather than batching.
func (c *Controller) PromoteWaitingJob(ctx context.Context) error {
	if inFlight := c.index.CountInFlight(); inFlight >= c.cfg.MaxConcurrentJobs {
		c.log.Debug().Int("in_flight", inFlight).Msg("controller: concurrency ceiling reached")
		return nil
	}

	job, ok := c.index.OldestWaiting()
	if !ok {
		return nil
	}

	req, err := c.requests.GetByJobID(ctx, job.LocalID)
	if err != nil {
		if errors.Is(err, domain.ErrMissingRequest) {
			// Data inconsistency: a job without its parameters can never be
			// submitted. Logged and skipped, never fatal to the loop.
			c.log.Warn().Str("job_id", job.LocalID).Msg("controller: job has no image request, skipping")
			return nil
		}
		return err
	}

	// Mark requested before the network call goes out. This is the re-entrancy
	// guard: a second promotion tick will no longer see this job as waiting.
	requested := domain.JobStatusRequested
	if _, err := c.applyPatch(ctx, job.LocalID, domain.JobPatch{Status: &requested}); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}

	ack, err := c.client.Submit(ctx, horde.BuildGenerateRequest(req))
	if err != nil {
		var apiErr *horde.APIError
		if errors.As(err, &apiErr) {
			c.log.Warn().Str("job_id", job.LocalID).Str("message", apiErr.Message).Msg("controller: submission rejected")
			c.failJob(ctx, job.LocalID, domain.JobError{Kind: domain.JobErrorOther, Message: apiErr.Message})
			return nil
		}
		// Transport failures land the job in the same terminal state; the user
		// rerolls rather than the controller re-submitting on its own.
		c.log.Warn().Err(err).Str("job_id", job.LocalID).Msg("controller: submission failed")
		c.failJob(ctx, job.LocalID, domain.JobError{Kind: domain.JobErrorOther, Message: err.Error()})
		return nil
	}

	c.log.Info().Str("job_id", job.LocalID).Str("remote_id", ack.ID).Float64("kudos", ack.Kudos).Msg("controller: job submitted")

	// Give the remote scheduler a beat to compute its initial queue estimate
	// before asking for one.
	c.sleep(ctx, c.cfg.SubmitSettle)

	patch := domain.JobPatch{RemoteID: &ack.ID}
	now := c.now()
	patch.AcknowledgedAt = &now

	status := domain.JobStatusQueued
	check, err := c.client.Check(ctx, ack.ID)
	if err != nil {
		c.log.Warn().Err(err).Str("job_id", job.LocalID).Msg("controller: initial status check failed")
	} else {
		if check.Processing >= 1 {
			status = domain.JobStatusProcessing
		}
		patch.InitWaitTime = &check.WaitTime
		patch.WaitTime = &check.WaitTime
		patch.QueuePosition = &check.QueuePosition
		if raw, err := json.Marshal(check); err == nil {
			patch.RawStatus = raw
		}
	}
	patch.Status = &status

	if _, err := c.applyPatch(ctx, job.LocalID, patch); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// failJob transitions a job to the terminal error state with one structured
// error entry appended.
func (c *Controller) failJob(ctx context.Context, localID string, jobErr domain.JobError) {
	failed := domain.JobStatusError
	now := c.now()
	patch := domain.JobPatch{
		Status:       &failed,
		AppendErrors: []domain.JobError{jobErr},
		CompletedAt:  &now,
	}
	if _, err := c.applyPatch(ctx, localID, patch); err != nil && !errors.Is(err, domain.ErrNotFound) {
		c.log.Error().Err(err).Str("job_id", localID).Msg("controller: failed to record job error")
	}
}
