package domain

import "time"

// LoraEntry references a LoRA the worker should apply.
type LoraEntry struct {
	Name          string  `json:"name"`
	Model         float64 `json:"model"`
	Clip          float64 `json:"clip"`
	InjectTrigger string  `json:"inject_trigger,omitempty"`
}

// EmbeddingEntry references a textual-inversion embedding.
type EmbeddingEntry struct {
	Name     string  `json:"name"`
	Strength float64 `json:"strength"`
}

// ImageRequest holds the full generation parameters for one job, created
// together with the job and read back when the job is promoted.
type ImageRequest struct {
	JobLocalID string `json:"-"`

	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`

	Models      []string `json:"models"`
	Sampler     string   `json:"sampler"`
	Steps       int      `json:"steps"`
	CfgScale    float64  `json:"cfg_scale"`
	Seed        string   `json:"seed,omitempty"`
	NumImages   int      `json:"num_images"`
	Height      int      `json:"height"`
	Width       int      `json:"width"`
	ClipSkip    int      `json:"clip_skip,omitempty"`
	Denoise     float64  `json:"denoise,omitempty"`
	Karras      bool     `json:"karras"`
	HiresFix    bool     `json:"hires_fix"`
	Tiling      bool     `json:"tiling"`
	PostProcess []string `json:"post_process,omitempty"`

	Loras      []LoraEntry      `json:"loras,omitempty"`
	Embeddings []EmbeddingEntry `json:"embeddings,omitempty"`

	SourceImage      string `json:"source_image,omitempty"`
	SourceMask       string `json:"source_mask,omitempty"`
	SourceProcessing string `json:"source_processing,omitempty"`
	ControlType      string `json:"control_type,omitempty"`

	NSFW           bool     `json:"nsfw"`
	CensorNSFW     bool     `json:"censor_nsfw"`
	TrustedWorkers bool     `json:"trusted_workers"`
	SlowWorkers    bool     `json:"slow_workers"`
	Workers        []string `json:"workers,omitempty"`

	CreatedAt time.Time `json:"-"`
}
