// Package controller implements the pending-job engine: it drains waiting
// jobs into the remote Horde service under a concurrency ceiling, polls every
// in-flight job at a bounded rate, downloads finished images and reconciles
// durable storage, the in-memory index and subscribers after every mutation.
package controller

import (
	"context"
	"sync"
	"time"

	"hordeclient/internal/domain"
	"hordeclient/internal/horde"
	"hordeclient/internal/infra"
	"hordeclient/internal/pending"
)

// RemoteClient is the subset of the Horde API the controller drives.
type RemoteClient interface {
	Submit(ctx context.Context, payload horde.GenerateRequest) (*horde.SubmitAck, error)
	Check(ctx context.Context, remoteID string) (*horde.StatusCheck, error)
	Status(ctx context.Context, remoteID string) (*horde.StatusResult, error)
}

// ImageFetcher downloads one image binary.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Broadcaster receives a copy of every job record the controller mutates.
type Broadcaster interface {
	BroadcastJob(job domain.Job)
}

// Config carries the controller tunables. Zero values fall back to the
// defaults the remote service is known to tolerate.
type Config struct {
	MaxConcurrentJobs int
	AllowNSFW         bool

	PromoteInterval  time.Duration
	PollInterval     time.Duration
	PollDebounce     time.Duration
	CheckGateTTL     time.Duration
	RateLimitBackoff time.Duration

	SubmitSettle        time.Duration
	FinalizeSettle      time.Duration
	FinalizeDedupWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = 5
	}
	if c.PromoteInterval <= 0 {
		c.PromoteInterval = 2050 * time.Millisecond
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollDebounce <= 0 {
		c.PollDebounce = 1500 * time.Millisecond
	}
	if c.CheckGateTTL <= 0 {
		c.CheckGateTTL = 750 * time.Millisecond
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = 15 * time.Second
	}
	if c.SubmitSettle <= 0 {
		c.SubmitSettle = 300 * time.Millisecond
	}
	if c.FinalizeSettle <= 0 {
		c.FinalizeSettle = 200 * time.Millisecond
	}
	if c.FinalizeDedupWindow <= 0 {
		c.FinalizeDedupWindow = 6 * time.Second
	}
	return c
}

// Deps are the collaborators the controller drives.
type Deps struct {
	Jobs     domain.JobStore
	Requests domain.RequestStore
	Images   domain.ImageStore
	Index    *pending.Index
	Client   RemoteClient
	Fetcher  ImageFetcher
	Hub      Broadcaster
	Logger   infra.Logger
}

// Controller owns the two timer loops and all short-lived bookkeeping caches.
// The caches are instance state guarded by one mutex; nothing here is global.
type Controller struct {
	cfg      Config
	log      infra.Logger
	jobs     domain.JobStore
	requests domain.RequestStore
	images   domain.ImageStore
	index    *pending.Index
	client   RemoteClient
	fetcher  ImageFetcher
	hub      Broadcaster

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	mu           sync.Mutex
	lastPoll     time.Time
	backoffUntil time.Time
	checkedAt    map[string]time.Time
	finalizedAt  map[string]time.Time
	censoredSeen map[string]map[string]struct{}
}

func New(cfg Config, deps Deps) *Controller {
	return &Controller{
		cfg:          cfg.withDefaults(),
		log:          deps.Logger,
		jobs:         deps.Jobs,
		requests:     deps.Requests,
		images:       deps.Images,
		index:        deps.Index,
		client:       deps.Client,
		fetcher:      deps.Fetcher,
		hub:          deps.Hub,
		now:          time.Now,
		sleep:        sleepCtx,
		checkedAt:    make(map[string]time.Time),
		finalizedAt:  make(map[string]time.Time),
		censoredSeen: make(map[string]map[string]struct{}),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Bootstrap rebuilds the pending index from durable storage. Jobs stranded in
// the requested state without a remote ID never left this machine, so they are
// demoted back to waiting; everything else resumes polling from whatever state
// it was in.
func (c *Controller) Bootstrap(ctx context.Context) error {
	jobs, err := c.jobs.ListByStatus(ctx,
		domain.JobStatusWaiting,
		domain.JobStatusRequested,
		domain.JobStatusQueued,
		domain.JobStatusProcessing,
	)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.Status == domain.JobStatusRequested && job.RemoteID == "" {
			waiting := domain.JobStatusWaiting
			now := c.now()
			if err := c.jobs.Update(ctx, job.LocalID, domain.JobPatch{Status: &waiting}, now); err != nil {
				return err
			}
			job.Apply(domain.JobPatch{Status: &waiting}, now)
			c.log.Info().Str("job_id", job.LocalID).Msg("controller: demoted stranded submission to waiting")
		}
		c.index.Put(job)
	}
	c.log.Info().Int("jobs", len(jobs)).Msg("controller: pending index rebuilt")
	return nil
}

// Run drives the promotion and polling loops until ctx is cancelled. The two
// intervals are deliberately offset so the loops do not tick in lock-step.
func (c *Controller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.cfg.PromoteInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.PromoteWaitingJob(ctx); err != nil {
					c.log.Error().Err(err).Msg("controller: promotion tick failed")
				}
			}
		}
	}()

	go func() {
		defer wg.Done()
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.PollInFlightJobs(ctx); err != nil {
					c.log.Error().Err(err).Msg("controller: poll tick failed")
				}
			}
		}
	}()

	wg.Wait()
}

// applyPatch writes the patch durably first, then mirrors it into the index,
// then notifies subscribers. Readers of the index therefore never observe a
// state ahead of storage.
func (c *Controller) applyPatch(ctx context.Context, localID string, patch domain.JobPatch) (domain.Job, error) {
	now := c.now()
	if err := c.jobs.Update(ctx, localID, patch, now); err != nil {
		return domain.Job{}, err
	}
	updated, ok := c.index.Patch(localID, patch, now)
	if !ok {
		// Not indexed (e.g. deleted by the user mid-flight); storage still holds
		// the patch, nothing further to mirror.
		c.dropCensoredSeen(localID)
		return domain.Job{}, domain.ErrNotFound
	}
	if updated.Status.Terminal() {
		c.dropCensoredSeen(localID)
	}
	if c.hub != nil {
		c.hub.BroadcastJob(updated)
	}
	return updated, nil
}

// dropCensoredSeen releases the censored-generation bookkeeping for a job that
// will never be finalized again, keeping the map bounded by live jobs.
func (c *Controller) dropCensoredSeen(localID string) {
	c.mu.Lock()
	delete(c.censoredSeen, localID)
	c.mu.Unlock()
}
