package controller

import (
	"context"
	"net/http"
	"testing"
	"time"

	"hordeclient/internal/domain"
	"hordeclient/internal/horde"
)

func queuedJob(e *testEnv, localID, remoteID string) domain.Job {
	return e.addJob(domain.Job{LocalID: localID, RemoteID: remoteID, Status: domain.JobStatusQueued}, false)
}

func TestPollFinishedJobPersistsImagesAndCompletes(t *testing.T) {
	e := newTestEnv(Config{})
	job := queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Finished: 1, Done: true, Kudos: 5}, nil
	}
	e.client.statusFn = func(string) (*horde.StatusResult, error) {
		return &horde.StatusResult{
			StatusCheck: horde.StatusCheck{Finished: 1, Done: true, Kudos: 5},
			Generations: []horde.Generation{{
				ID:         "gen-1",
				Img:        "https://cdn.example/gen-1.webp",
				Seed:       "1234",
				WorkerID:   "worker-9",
				WorkerName: "fast worker",
				Model:      "stable_diffusion",
			}},
		}, nil
	}
	e.fetcher.fetchFn = func(url string) ([]byte, error) {
		if url != "https://cdn.example/gen-1.webp" {
			t.Errorf("fetched %q", url)
		}
		return []byte("webp-bytes"), nil
	}

	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}

	if len(e.images.created) != 1 {
		t.Fatalf("persisted %d images, want 1", len(e.images.created))
	}
	img := e.images.created[0]
	if img.RemoteImageID != "gen-1" || img.JobLocalID != job.LocalID {
		t.Errorf("image = %+v", img)
	}
	if img.Kudos != 5 {
		t.Errorf("image kudos = %v, want 5", img.Kudos)
	}
	if string(img.Data) != "webp-bytes" {
		t.Errorf("image data = %q", img.Data)
	}

	stored, err := e.jobs.GetByID(context.Background(), job.LocalID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != domain.JobStatusDone {
		t.Fatalf("status = %q, want done", stored.Status)
	}
	if stored.ImagesCompleted != 1 || stored.ImagesFailed != 0 {
		t.Errorf("counts = (%d, %d), want (1, 0)", stored.ImagesCompleted, stored.ImagesFailed)
	}
	if stored.CompletedAt == nil {
		t.Error("completed timestamp not set")
	}
	if _, ok := e.index.Get(job.LocalID); ok {
		t.Error("done job still present in pending index")
	}
}

func TestPollCensoredGenerationFailsJob(t *testing.T) {
	e := newTestEnv(Config{AllowNSFW: false})
	job := queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Finished: 1, Done: true}, nil
	}
	e.client.statusFn = func(string) (*horde.StatusResult, error) {
		return &horde.StatusResult{
			StatusCheck: horde.StatusCheck{Finished: 1, Done: true},
			Generations: []horde.Generation{{ID: "gen-1", Censored: true}},
		}, nil
	}

	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}

	if len(e.images.created) != 0 {
		t.Fatalf("persisted %d images for a censored generation", len(e.images.created))
	}
	stored, _ := e.jobs.GetByID(context.Background(), job.LocalID)
	if stored.Status != domain.JobStatusError {
		t.Fatalf("status = %q, want error", stored.Status)
	}
	if stored.ImagesCompleted != 0 || stored.ImagesFailed != 1 {
		t.Errorf("counts = (%d, %d), want (0, 1)", stored.ImagesCompleted, stored.ImagesFailed)
	}
	if len(stored.Errors) != 1 || stored.Errors[0].Kind != domain.JobErrorNSFWBlock {
		t.Fatalf("errors = %+v, want one nsfw_block entry", stored.Errors)
	}
}

func TestPollRateLimitPausesPollingThenResumes(t *testing.T) {
	e := newTestEnv(Config{RateLimitBackoff: 15 * time.Second})
	job := queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return nil, &horde.APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}
	}

	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	got, ok := e.index.Get(job.LocalID)
	if !ok || got.Status != domain.JobStatusQueued {
		t.Fatalf("rate-limited job changed state: present=%v status=%q", ok, got.Status)
	}

	// Inside the backoff window nothing goes out.
	e.advance(2 * time.Second)
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	_, checks, _ := e.client.calls()
	if checks != 1 {
		t.Fatalf("check called %d times during backoff, want 1", checks)
	}

	// Once the backoff expires, polling picks the job back up.
	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Waiting: 1}, nil
	}
	e.advance(14 * time.Second)
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	_, checks, _ = e.client.calls()
	if checks != 2 {
		t.Fatalf("check called %d times after backoff, want 2", checks)
	}
}

func TestPollTogglesQueuedAndProcessing(t *testing.T) {
	e := newTestEnv(Config{})
	job := queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Processing: 1, WaitTime: 9, QueuePosition: 0}, nil
	}
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	got, _ := e.index.Get(job.LocalID)
	if got.Status != domain.JobStatusProcessing {
		t.Fatalf("status = %q, want processing", got.Status)
	}
	if got.WaitTime != 9 {
		t.Errorf("wait time = %d, want 9", got.WaitTime)
	}

	// Workers can hand a request back; the job returns to queued.
	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Waiting: 1, Restarted: 1, QueuePosition: 2}, nil
	}
	e.advance(2 * time.Second)
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	got, _ = e.index.Get(job.LocalID)
	if got.Status != domain.JobStatusQueued {
		t.Fatalf("status = %q, want queued after restart", got.Status)
	}
	if got.QueuePosition != 2 {
		t.Errorf("queue position = %d, want 2", got.QueuePosition)
	}
}

func TestPollFaultedJobFails(t *testing.T) {
	e := newTestEnv(Config{})
	job := queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Faulted: true}, nil
	}
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	stored, _ := e.jobs.GetByID(context.Background(), job.LocalID)
	if stored.Status != domain.JobStatusError {
		t.Fatalf("status = %q, want error", stored.Status)
	}
}

func TestPollTransportErrorLeavesJobUntouched(t *testing.T) {
	e := newTestEnv(Config{})
	job := queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return nil, context.DeadlineExceeded
	}
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	got, ok := e.index.Get(job.LocalID)
	if !ok || got.Status != domain.JobStatusQueued {
		t.Fatalf("job after transport error: present=%v status=%q", ok, got.Status)
	}
}

func TestPollDebounceSuppressesBackToBackTicks(t *testing.T) {
	e := newTestEnv(Config{PollDebounce: 1500 * time.Millisecond})
	queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Waiting: 1}, nil
	}
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	// Same instant: debounced, no second round of checks.
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	_, checks, _ := e.client.calls()
	if checks != 1 {
		t.Fatalf("check called %d times, want 1", checks)
	}
}

func TestPollCheckGateSkipsRecentlyCheckedRemote(t *testing.T) {
	// Debounce shortened so only the per-remote gate decides here.
	e := newTestEnv(Config{CheckGateTTL: 750 * time.Millisecond, PollDebounce: time.Millisecond})
	queuedJob(e, "job-1", "remote-abc")

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Waiting: 1}, nil
	}
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}

	// Clear the debounce but keep the clock inside the gate TTL: the remote
	// was checked too recently, so no request goes out.
	e.ctrl.mu.Lock()
	e.ctrl.lastPoll = time.Time{}
	e.ctrl.mu.Unlock()
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	_, checks, _ := e.client.calls()
	if checks != 1 {
		t.Fatalf("check called %d times inside gate TTL, want 1", checks)
	}

	e.advance(time.Second)
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	_, checks, _ = e.client.calls()
	if checks != 2 {
		t.Fatalf("check called %d times after gate expiry, want 2", checks)
	}
}

func TestPollAdvancesRecoveredAcknowledgedJob(t *testing.T) {
	e := newTestEnv(Config{})
	ctx := context.Background()
	recovered := domain.Job{LocalID: "job-1", RemoteID: "remote-1", Status: domain.JobStatusRequested}
	_ = e.jobs.Create(ctx, &recovered)
	if err := e.ctrl.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	e.client.checkFn = func(remoteID string) (*horde.StatusCheck, error) {
		if remoteID != "remote-1" {
			t.Errorf("checked remote id %q", remoteID)
		}
		return &horde.StatusCheck{Waiting: 1, QueuePosition: 4, WaitTime: 20}, nil
	}
	if err := e.ctrl.PollInFlightJobs(ctx); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}

	_, checks, _ := e.client.calls()
	if checks != 1 {
		t.Fatalf("check called %d times for a recovered acknowledged job, want 1", checks)
	}
	got, ok := e.index.Get("job-1")
	if !ok {
		t.Fatal("recovered job missing from index")
	}
	if got.Status != domain.JobStatusQueued {
		t.Fatalf("status = %q, want queued after first check", got.Status)
	}
	if got.QueuePosition != 4 {
		t.Errorf("queue position = %d, want 4", got.QueuePosition)
	}
}

func TestPollFreesSlotHeldByRecoveredJob(t *testing.T) {
	e := newTestEnv(Config{MaxConcurrentJobs: 1})
	ctx := context.Background()
	recovered := domain.Job{LocalID: "acked", RemoteID: "remote-1", Status: domain.JobStatusRequested, ImagesRequested: 1}
	_ = e.jobs.Create(ctx, &recovered)
	if err := e.ctrl.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	e.addJob(domain.Job{LocalID: "waiting", Status: domain.JobStatusWaiting}, true)

	// The recovered job holds the only slot, so promotion must wait for it.
	if err := e.ctrl.PromoteWaitingJob(ctx); err != nil {
		t.Fatalf("PromoteWaitingJob: %v", err)
	}
	submits, _, _ := e.client.calls()
	if submits != 0 {
		t.Fatalf("submit called %d times with the slot occupied", submits)
	}

	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Finished: 1, Done: true}, nil
	}
	e.client.statusFn = func(string) (*horde.StatusResult, error) {
		return &horde.StatusResult{
			StatusCheck: horde.StatusCheck{Finished: 1, Done: true},
			Generations: []horde.Generation{{ID: "gen-1", Img: "https://cdn.example/gen-1.webp"}},
		}, nil
	}
	if err := e.ctrl.PollInFlightJobs(ctx); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	if _, ok := e.index.Get("acked"); ok {
		t.Fatal("finished job still holds its slot")
	}

	e.client.submitFn = func(horde.GenerateRequest) (*horde.SubmitAck, error) {
		return &horde.SubmitAck{ID: "remote-2"}, nil
	}
	if err := e.ctrl.PromoteWaitingJob(ctx); err != nil {
		t.Fatalf("PromoteWaitingJob: %v", err)
	}
	submits, _, _ = e.client.calls()
	if submits != 1 {
		t.Fatalf("submit called %d times after the slot freed, want 1", submits)
	}
}

func TestPollIdleResetsDebounce(t *testing.T) {
	e := newTestEnv(Config{})

	// First poll finds nothing in flight and must not start the debounce
	// window, so a job arriving right after is polled immediately.
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	queuedJob(e, "job-1", "remote-abc")
	e.client.checkFn = func(string) (*horde.StatusCheck, error) {
		return &horde.StatusCheck{Waiting: 1}, nil
	}
	if err := e.ctrl.PollInFlightJobs(context.Background()); err != nil {
		t.Fatalf("PollInFlightJobs: %v", err)
	}
	_, checks, _ := e.client.calls()
	if checks != 1 {
		t.Fatalf("check called %d times, want 1", checks)
	}
}
