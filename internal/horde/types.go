package horde

// GenerationParams is the sampling parameter block of a generate request.
type GenerationParams struct {
	SamplerName       string        `json:"sampler_name,omitempty"`
	CfgScale          float64       `json:"cfg_scale,omitempty"`
	DenoisingStrength float64       `json:"denoising_strength,omitempty"`
	Seed              string        `json:"seed,omitempty"`
	Height            int           `json:"height,omitempty"`
	Width             int           `json:"width,omitempty"`
	Steps             int           `json:"steps,omitempty"`
	N                 int           `json:"n,omitempty"`
	Karras            bool          `json:"karras,omitempty"`
	HiresFix          bool          `json:"hires_fix,omitempty"`
	Tiling            bool          `json:"tiling,omitempty"`
	ClipSkip          int           `json:"clip_skip,omitempty"`
	ControlType       string        `json:"control_type,omitempty"`
	PostProcessing    []string      `json:"post_processing,omitempty"`
	Loras             []LoraPayload `json:"loras,omitempty"`
	TIs               []TIPayload   `json:"tis,omitempty"`
}

// LoraPayload references a LoRA in the request payload.
type LoraPayload struct {
	Name          string  `json:"name"`
	Model         float64 `json:"model,omitempty"`
	Clip          float64 `json:"clip,omitempty"`
	InjectTrigger string  `json:"inject_trigger,omitempty"`
}

// TIPayload references a textual-inversion embedding in the request payload.
type TIPayload struct {
	Name     string  `json:"name"`
	Strength float64 `json:"strength,omitempty"`
}

// GenerateRequest is the full submission payload for an async generation.
type GenerateRequest struct {
	Prompt           string           `json:"prompt"`
	Params           GenerationParams `json:"params"`
	NSFW             bool             `json:"nsfw"`
	CensorNSFW       bool             `json:"censor_nsfw"`
	TrustedWorkers   bool             `json:"trusted_workers"`
	SlowWorkers      bool             `json:"slow_workers"`
	Workers          []string         `json:"workers,omitempty"`
	Models           []string         `json:"models,omitempty"`
	SourceImage      string           `json:"source_image,omitempty"`
	SourceProcessing string           `json:"source_processing,omitempty"`
	SourceMask       string           `json:"source_mask,omitempty"`
	R2               bool             `json:"r2"`
	Shared           bool             `json:"shared"`
}

// SubmitAck is the accepted-submission response.
type SubmitAck struct {
	ID      string  `json:"id"`
	Kudos   float64 `json:"kudos"`
	Message string  `json:"message,omitempty"`
}

// StatusCheck is the lightweight status response for an in-flight request.
type StatusCheck struct {
	Waiting       int     `json:"waiting"`
	Processing    int     `json:"processing"`
	Finished      int     `json:"finished"`
	Restarted     int     `json:"restarted"`
	Done          bool    `json:"done"`
	Faulted       bool    `json:"faulted"`
	WaitTime      int     `json:"wait_time"`
	QueuePosition int     `json:"queue_position"`
	Kudos         float64 `json:"kudos"`
	IsPossible    bool    `json:"is_possible"`
}

// Generation is one per-image entry of the full status response.
type Generation struct {
	ID         string `json:"id"`
	Img        string `json:"img"`
	Seed       string `json:"seed"`
	Censored   bool   `json:"censored"`
	WorkerID   string `json:"worker_id"`
	WorkerName string `json:"worker_name"`
	Model      string `json:"model"`
	State      string `json:"state"`
}

// StatusResult is the full status response including generations.
type StatusResult struct {
	StatusCheck
	Generations []Generation `json:"generations"`
}
