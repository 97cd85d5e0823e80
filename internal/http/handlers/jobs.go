package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hordeclient/internal/domain"
)

const (
	defaultSampler = "k_euler_a"
	defaultSteps   = 30
	defaultCfg     = 7.0
	defaultSize    = 512
	maxNumImages   = 20
)

type createJobRequest struct {
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt"`
	Models         []string `json:"models"`
	Sampler        string   `json:"sampler"`
	Steps          int      `json:"steps"`
	CfgScale       float64  `json:"cfg_scale"`
	Seed           string   `json:"seed"`
	NumImages      int      `json:"num_images"`
	Height         int      `json:"height"`
	Width          int      `json:"width"`
	ClipSkip       int      `json:"clip_skip"`
	Denoise        float64  `json:"denoise"`
	Karras         bool     `json:"karras"`
	HiresFix       bool     `json:"hires_fix"`
	Tiling         bool     `json:"tiling"`
	PostProcess    []string `json:"post_process"`

	Loras      []domain.LoraEntry      `json:"loras"`
	Embeddings []domain.EmbeddingEntry `json:"embeddings"`

	SourceImage      string `json:"source_image"`
	SourceMask       string `json:"source_mask"`
	SourceProcessing string `json:"source_processing"`
	ControlType      string `json:"control_type"`

	NSFW        bool     `json:"nsfw"`
	SlowWorkers bool     `json:"slow_workers"`
	Workers     []string `json:"workers"`
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateJob enqueues a new generation job in the waiting state. The controller
// picks it up on a later promotion tick.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.NumImages <= 0 {
		req.NumImages = 1
	}
	if req.NumImages > maxNumImages {
		req.NumImages = maxNumImages
	}
	if req.Height <= 0 {
		req.Height = defaultSize
	}
	if req.Width <= 0 {
		req.Width = defaultSize
	}
	if req.Sampler == "" {
		req.Sampler = defaultSampler
	}
	if req.Steps <= 0 {
		req.Steps = defaultSteps
	}
	if req.CfgScale <= 0 {
		req.CfgScale = defaultCfg
	}
	if len(req.Models) == 0 {
		req.Models = []string{"stable_diffusion"}
	}

	now := time.Now()
	job := &domain.Job{
		LocalID:         uuid.NewString(),
		Status:          domain.JobStatusWaiting,
		ImagesRequested: req.NumImages,
		Height:          req.Height,
		Width:           req.Width,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	imageReq := &domain.ImageRequest{
		JobLocalID:       job.LocalID,
		Prompt:           req.Prompt,
		NegativePrompt:   req.NegativePrompt,
		Models:           req.Models,
		Sampler:          req.Sampler,
		Steps:            req.Steps,
		CfgScale:         req.CfgScale,
		Seed:             req.Seed,
		NumImages:        req.NumImages,
		Height:           req.Height,
		Width:            req.Width,
		ClipSkip:         req.ClipSkip,
		Denoise:          req.Denoise,
		Karras:           req.Karras,
		HiresFix:         req.HiresFix,
		Tiling:           req.Tiling,
		PostProcess:      req.PostProcess,
		Loras:            req.Loras,
		Embeddings:       req.Embeddings,
		SourceImage:      req.SourceImage,
		SourceMask:       req.SourceMask,
		SourceProcessing: req.SourceProcessing,
		ControlType:      req.ControlType,
		NSFW:             req.NSFW,
		CensorNSFW:       !req.NSFW,
		SlowWorkers:      req.SlowWorkers,
		Workers:          req.Workers,
		CreatedAt:        now,
	}
	// One transaction: either the job and its parameters both land or neither.
	if err := a.Enqueue.CreateJobWithRequest(r.Context(), job, imageReq); err != nil {
		a.Log.Error().Err(err).Str("job_id", job.LocalID).Msg("handlers: enqueue job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	a.Index.Put(*job)
	a.json(w, http.StatusAccepted, jobResponse{JobID: job.LocalID, Status: string(job.Status)})
}

type jobView struct {
	JobID           string            `json:"job_id"`
	RemoteID        string            `json:"remote_id,omitempty"`
	Status          string            `json:"status"`
	ImagesRequested int               `json:"images_requested"`
	ImagesCompleted int               `json:"images_completed"`
	ImagesFailed    int               `json:"images_failed"`
	QueuePosition   int               `json:"queue_position"`
	WaitTime        int               `json:"wait_time"`
	InitWaitTime    int               `json:"init_wait_time"`
	Errors          []domain.JobError `json:"errors,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

func toJobView(job domain.Job) jobView {
	return jobView{
		JobID:           job.LocalID,
		RemoteID:        job.RemoteID,
		Status:          string(job.Status),
		ImagesRequested: job.ImagesRequested,
		ImagesCompleted: job.ImagesCompleted,
		ImagesFailed:    job.ImagesFailed,
		QueuePosition:   job.QueuePosition,
		WaitTime:        job.WaitTime,
		InitWaitTime:    job.InitWaitTime,
		Errors:          job.Errors,
		CreatedAt:       job.CreatedAt,
		UpdatedAt:       job.UpdatedAt,
		CompletedAt:     job.CompletedAt,
	}
}

// ListJobs returns jobs filtered by an optional comma-separated status list.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	statuses := []domain.JobStatus{
		domain.JobStatusWaiting, domain.JobStatusRequested, domain.JobStatusQueued,
		domain.JobStatusProcessing, domain.JobStatusDone, domain.JobStatusError,
	}
	if q := strings.TrimSpace(r.URL.Query().Get("status")); q != "" {
		statuses = statuses[:0]
		for _, part := range strings.Split(q, ",") {
			statuses = append(statuses, domain.JobStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	jobs, err := a.Jobs.ListByStatus(r.Context(), statuses...)
	if err != nil {
		a.Log.Error().Err(err).Msg("handlers: list jobs failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}
	views := make([]jobView, 0, len(jobs))
	for _, job := range jobs {
		views = append(views, toJobView(job))
	}
	a.json(w, http.StatusOK, views)
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Log.Error().Err(err).Str("job_id", jobID).Msg("handlers: get job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	a.json(w, http.StatusOK, toJobView(*job))
}

// DeleteJob discards a job regardless of its state. In-flight remote work is
// simply abandoned; the Horde has no cancel endpoint worth racing.
func (a *App) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := a.Jobs.Delete(r.Context(), jobID); err != nil {
		a.Log.Error().Err(err).Str("job_id", jobID).Msg("handlers: delete job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete job")
		return
	}
	a.Index.Remove(jobID)
	w.WriteHeader(http.StatusNoContent)
}
