package controller

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hordeclient/internal/domain"
	"hordeclient/internal/horde"
	"hordeclient/internal/pending"
)

type fakeJobs struct {
	mu    sync.Mutex
	jobs  map[string]*domain.Job
	order []string
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: make(map[string]*domain.Job)}
}

func (f *fakeJobs) Create(ctx context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *job
	f.jobs[job.LocalID] = &copied
	f.order = append(f.order, job.LocalID)
	return nil
}

func (f *fakeJobs) Update(ctx context.Context, localID string, patch domain.JobPatch, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[localID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Apply(patch, now)
	return nil
}

func (f *fakeJobs) GetByID(ctx context.Context, localID string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[localID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (f *fakeJobs) ListByStatus(ctx context.Context, statuses ...domain.JobStatus) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Job
	for _, id := range f.order {
		job := f.jobs[id]
		for _, s := range statuses {
			if job.Status == s {
				out = append(out, *job)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeJobs) Delete(ctx context.Context, localID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, localID)
	return nil
}

type fakeRequests struct {
	mu   sync.Mutex
	reqs map[string]*domain.ImageRequest
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{reqs: make(map[string]*domain.ImageRequest)}
}

func (f *fakeRequests) Create(ctx context.Context, req *domain.ImageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *req
	f.reqs[req.JobLocalID] = &copied
	return nil
}

func (f *fakeRequests) GetByJobID(ctx context.Context, jobLocalID string) (*domain.ImageRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.reqs[jobLocalID]
	if !ok {
		return nil, domain.ErrMissingRequest
	}
	copied := *req
	return &copied, nil
}

type fakeImages struct {
	mu       sync.Mutex
	byRemote map[string]domain.Image
	created  []domain.Image
}

func newFakeImages() *fakeImages {
	return &fakeImages{byRemote: make(map[string]domain.Image)}
}

func (f *fakeImages) Create(ctx context.Context, image *domain.Image) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byRemote[image.RemoteImageID]; ok {
		return domain.ErrDuplicateImage
	}
	f.byRemote[image.RemoteImageID] = *image
	f.created = append(f.created, *image)
	return nil
}

func (f *fakeImages) ExistsByRemoteID(ctx context.Context, remoteImageID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byRemote[remoteImageID]
	return ok, nil
}

func (f *fakeImages) ListByJobID(ctx context.Context, jobLocalID string) ([]domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Image
	for _, img := range f.created {
		if img.JobLocalID == jobLocalID {
			out = append(out, img)
		}
	}
	return out, nil
}

func (f *fakeImages) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, img := range f.created {
		if img.ID == id {
			copied := img
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeClient struct {
	mu          sync.Mutex
	submitFn    func(payload horde.GenerateRequest) (*horde.SubmitAck, error)
	checkFn     func(remoteID string) (*horde.StatusCheck, error)
	statusFn    func(remoteID string) (*horde.StatusResult, error)
	submitCalls int
	checkCalls  int
	statusCalls int
}

func (f *fakeClient) Submit(ctx context.Context, payload horde.GenerateRequest) (*horde.SubmitAck, error) {
	f.mu.Lock()
	f.submitCalls++
	fn := f.submitFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &horde.APIError{StatusCode: http.StatusInternalServerError, Message: "no submit stub"}
	}
	return fn(payload)
}

func (f *fakeClient) Check(ctx context.Context, remoteID string) (*horde.StatusCheck, error) {
	f.mu.Lock()
	f.checkCalls++
	fn := f.checkFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &horde.APIError{StatusCode: http.StatusInternalServerError, Message: "no check stub"}
	}
	return fn(remoteID)
}

func (f *fakeClient) Status(ctx context.Context, remoteID string) (*horde.StatusResult, error) {
	f.mu.Lock()
	f.statusCalls++
	fn := f.statusFn
	f.mu.Unlock()
	if fn == nil {
		return nil, &horde.APIError{StatusCode: http.StatusInternalServerError, Message: "no status stub"}
	}
	return fn(remoteID)
}

func (f *fakeClient) calls() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls, f.checkCalls, f.statusCalls
}

type fakeFetcher struct {
	mu      sync.Mutex
	fetchFn func(url string) ([]byte, error)
	calls   int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return []byte("image-bytes"), nil
	}
	return fn(url)
}

type testEnv struct {
	jobs     *fakeJobs
	requests *fakeRequests
	images   *fakeImages
	index    *pending.Index
	client   *fakeClient
	fetcher  *fakeFetcher
	ctrl     *Controller

	mu    sync.Mutex
	clock time.Time
}

func newTestEnv(cfg Config) *testEnv {
	e := &testEnv{
		jobs:     newFakeJobs(),
		requests: newFakeRequests(),
		images:   newFakeImages(),
		index:    pending.NewIndex(),
		client:   &fakeClient{},
		fetcher:  &fakeFetcher{},
		clock:    time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	e.ctrl = New(cfg, Deps{
		Jobs:     e.jobs,
		Requests: e.requests,
		Images:   e.images,
		Index:    e.index,
		Client:   e.client,
		Fetcher:  e.fetcher,
		Logger:   zerolog.Nop(),
	})
	e.ctrl.now = func() time.Time {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.clock
	}
	e.ctrl.sleep = func(context.Context, time.Duration) {}
	return e
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	e.clock = e.clock.Add(d)
	e.mu.Unlock()
}

// addJob seeds a job (and optionally its request record) into storage and the
// pending index, mimicking what the HTTP surface does on enqueue.
func (e *testEnv) addJob(job domain.Job, withRequest bool) domain.Job {
	if job.ImagesRequested == 0 {
		job.ImagesRequested = 1
	}
	if job.CreatedAt.IsZero() {
		e.mu.Lock()
		job.CreatedAt = e.clock
		job.UpdatedAt = e.clock
		e.mu.Unlock()
	}
	_ = e.jobs.Create(context.Background(), &job)
	if withRequest {
		_ = e.requests.Create(context.Background(), &domain.ImageRequest{
			JobLocalID: job.LocalID,
			Prompt:     "test prompt",
			NumImages:  job.ImagesRequested,
			Height:     512,
			Width:      512,
		})
	}
	e.index.Put(job)
	return job
}
