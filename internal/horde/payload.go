package horde

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"hordeclient/internal/domain"
)

// promptSeparator splits the positive prompt from the negative prompt in the
// wire format the workers expect.
const promptSeparator = " ### "

// BuildGenerateRequest converts a stored image request into the remote
// submission payload. Prompt text is NFC-normalized so visually identical
// prompts hash and dedupe the same way on the worker side.
func BuildGenerateRequest(req *domain.ImageRequest) GenerateRequest {
	params := GenerationParams{
		SamplerName:       req.Sampler,
		CfgScale:          req.CfgScale,
		DenoisingStrength: req.Denoise,
		Seed:              req.Seed,
		Height:            req.Height,
		Width:             req.Width,
		Steps:             req.Steps,
		N:                 req.NumImages,
		Karras:            req.Karras,
		HiresFix:          req.HiresFix,
		Tiling:            req.Tiling,
		ClipSkip:          req.ClipSkip,
		ControlType:       req.ControlType,
		PostProcessing:    req.PostProcess,
	}
	for _, lora := range req.Loras {
		params.Loras = append(params.Loras, LoraPayload{
			Name:          lora.Name,
			Model:         lora.Model,
			Clip:          lora.Clip,
			InjectTrigger: lora.InjectTrigger,
		})
	}
	for _, emb := range req.Embeddings {
		params.TIs = append(params.TIs, TIPayload{Name: emb.Name, Strength: emb.Strength})
	}

	return GenerateRequest{
		Prompt:           composePrompt(req.Prompt, req.NegativePrompt),
		Params:           params,
		NSFW:             req.NSFW,
		CensorNSFW:       req.CensorNSFW,
		TrustedWorkers:   req.TrustedWorkers,
		SlowWorkers:      req.SlowWorkers,
		Workers:          req.Workers,
		Models:           req.Models,
		SourceImage:      req.SourceImage,
		SourceMask:       req.SourceMask,
		SourceProcessing: req.SourceProcessing,
		R2:               true,
		Shared:           false,
	}
}

func composePrompt(prompt, negative string) string {
	prompt = norm.NFC.String(strings.TrimSpace(prompt))
	negative = norm.NFC.String(strings.TrimSpace(negative))
	if negative == "" {
		return prompt
	}
	return prompt + promptSeparator + negative
}
