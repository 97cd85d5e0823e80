package domain

import (
	"encoding/json"
	"time"
)

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusWaiting    JobStatus = "WAITING"
	JobStatusRequested  JobStatus = "REQUESTED"
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusDone       JobStatus = "DONE"
	JobStatusError      JobStatus = "ERROR"
)

// InFlight reports whether the job occupies a slot against the concurrency ceiling.
func (s JobStatus) InFlight() bool {
	return s == JobStatusRequested || s == JobStatusQueued || s == JobStatusProcessing
}

// Terminal reports whether the status is final. Terminal jobs leave the pending
// index but stay in durable storage for history display.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusError
}

// JobErrorKind classifies structured job errors.
type JobErrorKind string

const (
	JobErrorNSFWBlock     JobErrorKind = "nsfw_block"
	JobErrorWorkerRefusal JobErrorKind = "worker_refusal"
	JobErrorOther         JobErrorKind = "other"
)

// JobError is one structured entry in a job's error list.
type JobError struct {
	Kind    JobErrorKind `json:"kind"`
	Message string       `json:"message"`
}

// Job tracks one generation request through its remote lifecycle. The local ID
// is assigned at creation and stable for the job's lifetime; the remote ID is
// empty until the remote service accepts the submission. After creation jobs
// are mutated exclusively by the controller.
type Job struct {
	LocalID  string
	RemoteID string
	Status   JobStatus

	ImagesRequested int
	ImagesCompleted int
	ImagesFailed    int

	Height int
	Width  int

	InitWaitTime  int
	WaitTime      int
	QueuePosition int

	Errors    []JobError
	RawStatus json.RawMessage

	CreatedAt      time.Time
	UpdatedAt      time.Time
	AcknowledgedAt *time.Time
	CompletedAt    *time.Time
}

// JobPatch is a partial update merged into a Job. Nil fields are left untouched.
type JobPatch struct {
	RemoteID *string
	Status   *JobStatus

	ImagesCompleted *int
	ImagesFailed    *int

	InitWaitTime  *int
	WaitTime      *int
	QueuePosition *int

	AppendErrors []JobError
	RawStatus    json.RawMessage

	AcknowledgedAt *time.Time
	CompletedAt    *time.Time
}

// Apply merges the patch into the job and stamps UpdatedAt.
func (j *Job) Apply(p JobPatch, now time.Time) {
	if p.RemoteID != nil {
		j.RemoteID = *p.RemoteID
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.ImagesCompleted != nil {
		j.ImagesCompleted = *p.ImagesCompleted
	}
	if p.ImagesFailed != nil {
		j.ImagesFailed = *p.ImagesFailed
	}
	if p.InitWaitTime != nil {
		j.InitWaitTime = *p.InitWaitTime
	}
	if p.WaitTime != nil {
		j.WaitTime = *p.WaitTime
	}
	if p.QueuePosition != nil {
		j.QueuePosition = *p.QueuePosition
	}
	if len(p.AppendErrors) > 0 {
		j.Errors = append(j.Errors, p.AppendErrors...)
	}
	if p.RawStatus != nil {
		j.RawStatus = append(json.RawMessage(nil), p.RawStatus...)
	}
	if p.AcknowledgedAt != nil {
		j.AcknowledgedAt = p.AcknowledgedAt
	}
	if p.CompletedAt != nil {
		j.CompletedAt = p.CompletedAt
	}
	j.UpdatedAt = now
}
