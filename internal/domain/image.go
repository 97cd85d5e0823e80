package domain

import "time"

// ImageKind distinguishes generated output from user-supplied inputs.
type ImageKind string

const (
	ImageKindGenerated ImageKind = "generated"
	ImageKindSource    ImageKind = "source"
	ImageKindMask      ImageKind = "mask"
)

// Image is one generated (or source/mask) image binary plus its generation
// metadata. An image for a given remote image ID is created at most once.
type Image struct {
	ID            string
	JobLocalID    string
	RemoteImageID string
	Kind          ImageKind

	Data []byte

	Seed       string
	WorkerID   string
	WorkerName string
	Model      string
	Kudos      float64
	Censored   bool

	CreatedAt time.Time
}
