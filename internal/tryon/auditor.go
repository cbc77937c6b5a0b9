package tryon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tryon/internal/infra"
	"tryon/internal/providers/genai"
)

var (
	// ErrBlockedResponse reports a candidate cut short by the model, typically
	// a safety filter.
	ErrBlockedResponse = errors.New("tryon: audit response blocked before completion")
	// ErrEmptyTextOutput reports an audit candidate with no text parts.
	ErrEmptyTextOutput = errors.New("tryon: audit response contained no text")
)

// auditRequiredKeys are the fields every audit verdict must carry. Extra keys
// are tolerated and ignored.
var auditRequiredKeys = []string{
	"clothing_changed",
	"matches_input_garments",
	"visual_quality_score",
	"issues",
	"summary",
}

// MalformedVerdictError reports audit output that could not be parsed as
// JSON. The raw and cleaned text are attached for diagnostics.
type MalformedVerdictError struct {
	Raw     string
	Cleaned string
	Err     error
}

func (e *MalformedVerdictError) Error() string {
	return fmt.Sprintf("tryon: audit output is not valid JSON: %v", e.Err)
}

func (e *MalformedVerdictError) Unwrap() error { return e.Err }

// MissingFieldsError reports an audit verdict missing required keys.
type MissingFieldsError struct {
	Missing []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("tryon: audit verdict missing fields: %s", strings.Join(e.Missing, ", "))
}

// Auditor submits generated results to a vision model for evaluation. The
// model's output is free-form text expected to contain JSON, so every
// validation failure is reported as a typed error the pipeline degrades on.
type Auditor struct {
	client *genai.Client
	model  string
	logger infra.Logger
}

// NewAuditor constructs an Auditor bound to the given model.
func NewAuditor(client *genai.Client, model string, logger infra.Logger) *Auditor {
	return &Auditor{client: client, model: model, logger: logger}
}

// Audit compares the original person photo against a generated result and the
// garment references, returning the model's structured verdict. garment2 may
// be empty. Never retries.
func (a *Auditor) Audit(ctx context.Context, beforeRef, afterRef, garment1, garment2 string) (*AuditVerdict, error) {
	parts := []genai.Part{genai.TextPart(auditPrompt())}

	labeled := []struct {
		label string
		ref   string
	}{
		{"model_before", beforeRef},
		{"model_after", afterRef},
		{"garment1", garment1},
	}
	if strings.TrimSpace(garment2) != "" {
		labeled = append(labeled, struct {
			label string
			ref   string
		}{"garment2", garment2})
	}

	for _, item := range labeled {
		payload, err := a.client.ResolveImageRef(ctx, item.ref)
		if err != nil {
			return nil, fmt.Errorf("resolve %s image: %w", item.label, err)
		}
		parts = append(parts, genai.TextPart(item.label), genai.ImagePart(payload))
	}

	response, err := a.client.GenerateContent(ctx, a.model, genai.GenerateContentRequest{
		Contents: []genai.Content{{Parts: parts}},
		GenerationConfig: &genai.GenerationConfig{
			Temperature:     0.2,
			TopK:            32,
			TopP:            0.9,
			MaxOutputTokens: 3048,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit try-on result: %w", err)
	}

	return parseVerdict(response)
}

// parseVerdict validates the audit response envelope in order: candidate
// presence, finish reason, text output, fence stripping, JSON shape, required
// keys.
func parseVerdict(response *genai.GenerateContentResponse) (*AuditVerdict, error) {
	if len(response.Candidates) == 0 {
		return nil, ErrEmptyCandidates
	}

	candidate := response.Candidates[0]
	if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonStop {
		return nil, fmt.Errorf("%w: finish reason %s", ErrBlockedResponse, candidate.FinishReason)
	}

	raw := candidate.TextOutput()
	if raw == "" {
		return nil, ErrEmptyTextOutput
	}

	cleaned := stripMarkdownFence(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, &MalformedVerdictError{Raw: raw, Cleaned: cleaned, Err: err}
	}

	var missing []string
	for _, key := range auditRequiredKeys {
		if _, ok := fields[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Missing: missing}
	}

	var verdict AuditVerdict
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		return nil, &MalformedVerdictError{Raw: raw, Cleaned: cleaned, Err: err}
	}
	if verdict.Issues == nil {
		verdict.Issues = []string{}
	}
	return &verdict, nil
}

// stripMarkdownFence removes one leading/trailing triple-backtick fence, which
// the model emits despite being told not to.
func stripMarkdownFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	if idx := strings.Index(cleaned, "\n"); idx > 0 {
		cleaned = cleaned[idx+1:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}
