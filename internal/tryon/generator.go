package tryon

import (
	"context"
	"errors"
	"fmt"

	"tryon/internal/infra"
	"tryon/internal/providers/genai"
)

var (
	// ErrInvalidGarmentCount reports a garment list outside the 1..2 range.
	ErrInvalidGarmentCount = errors.New("tryon: must provide 1 or 2 garment images")
	// ErrEmptyCandidates reports a model response with no candidate outputs.
	ErrEmptyCandidates = errors.New("tryon: model returned no candidates")
	// ErrNoImageInResponse reports a candidate without inline image data.
	ErrNoImageInResponse = errors.New("tryon: no image found in model response")
)

// Generator issues single virtual try-on generation calls. It never retries;
// the pipeline owns the retry policy.
type Generator struct {
	client *genai.Client
	model  string
	logger infra.Logger
}

// NewGenerator constructs a Generator bound to the given model.
func NewGenerator(client *genai.Client, model string, logger infra.Logger) *Generator {
	return &Generator{client: client, model: model, logger: logger}
}

// Generate renders one try-on candidate from a person image and 1-2 garment
// images and returns the base64-encoded result. The request parts are ordered
// garments first, then the person, then the edit instruction.
func (g *Generator) Generate(ctx context.Context, personRef string, garmentRefs []string) (string, error) {
	if len(garmentRefs) < 1 || len(garmentRefs) > 2 {
		return "", ErrInvalidGarmentCount
	}

	parts := make([]genai.Part, 0, len(garmentRefs)+2)
	for i, ref := range garmentRefs {
		payload, err := g.client.ResolveImageRef(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("resolve garment image %d: %w", i+1, err)
		}
		parts = append(parts, genai.ImagePart(payload))
	}

	personPayload, err := g.client.ResolveImageRef(ctx, personRef)
	if err != nil {
		return "", fmt.Errorf("resolve person image: %w", err)
	}
	parts = append(parts, genai.ImagePart(personPayload))
	parts = append(parts, genai.TextPart(generationInstruction(len(garmentRefs))))

	response, err := g.client.GenerateContent(ctx, g.model, genai.GenerateContentRequest{
		Contents: []genai.Content{{Parts: parts}},
		GenerationConfig: &genai.GenerationConfig{
			Temperature:     0.4,
			TopK:            32,
			TopP:            1,
			MaxOutputTokens: 4096,
		},
	})
	if err != nil {
		return "", fmt.Errorf("generate try-on image: %w", err)
	}

	if len(response.Candidates) == 0 {
		return "", ErrEmptyCandidates
	}

	for _, part := range response.Candidates[0].Content.Parts {
		if inline := part.Inline(); inline != nil {
			g.logger.Debug().Str("model", g.model).Msg("tryon: generation returned inline image")
			return inline.Data, nil
		}
	}

	return "", ErrNoImageInResponse
}
