package tryon

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"tryon/internal/domain"
	"tryon/internal/infra"
)

// DefaultMaxRetries is the attempt budget applied when a job does not carry
// its own.
const DefaultMaxRetries = 2

const (
	reasonGenerationFailed = "AI generation failed"
	reasonUploadFailed     = "Failed to upload generated result"
	reasonNoResult         = "No acceptable try-on result after retries"
)

// ImageGenerator produces one try-on candidate as a base64 payload.
type ImageGenerator interface {
	Generate(ctx context.Context, personRef string, garmentRefs []string) (string, error)
}

// ResultAuditor evaluates one generated result against the inputs.
type ResultAuditor interface {
	Audit(ctx context.Context, beforeRef, afterRef, garment1, garment2 string) (*AuditVerdict, error)
}

// ResultStore uploads and deletes candidate result images.
type ResultStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// RecordStore writes the terminal state of a try-on record.
type RecordStore interface {
	MarkSuccess(ctx context.Context, recordID string, update domain.TryOnSuccess) error
	MarkFailure(ctx context.Context, recordID, reason string, retryCount int) error
}

// Job is the unit of work handed to the pipeline. All fields are read-only
// for the job's duration.
type Job struct {
	RecordID         string
	PersonImageURL   string
	GarmentImageURLs []string
	MaxRetries       int
}

// Pipeline drives the generate, upload, audit, decide loop for one job. Each
// job runs independently; attempts within a job are strictly sequential
// because the decision to retry depends on the prior attempt's audit outcome.
type Pipeline struct {
	generator ImageGenerator
	auditor   ResultAuditor
	results   ResultStore
	records   RecordStore
	logger    infra.Logger
}

// NewPipeline wires the pipeline with its collaborators.
func NewPipeline(generator ImageGenerator, auditor ResultAuditor, results ResultStore, records RecordStore, logger infra.Logger) *Pipeline {
	return &Pipeline{
		generator: generator,
		auditor:   auditor,
		results:   results,
		records:   records,
		logger:    logger,
	}
}

// Process runs the job to its terminal state. It never returns an error and
// never panics: every failure is absorbed into a retry, a degrade, or the
// single terminal record write.
func (p *Pipeline) Process(ctx context.Context, job Job) {
	start := time.Now()
	maxRetries := job.MaxRetries
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}

	p.logger.Info().
		Str("record_id", job.RecordID).
		Int("max_retries", maxRetries).
		Msg("tryon: job started")

	var (
		resultURL     string
		resultKey     string
		verdict       *AuditVerdict
		failureReason string
		acceptedAtIdx int
	)

	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastAttempt := attempt == maxRetries
		p.logger.Info().
			Str("record_id", job.RecordID).
			Int("attempt", attempt).
			Msg("tryon: generation attempt started")

		payload, err := p.generator.Generate(ctx, job.PersonImageURL, job.GarmentImageURLs)
		if err != nil {
			p.logger.Error().Err(err).
				Str("record_id", job.RecordID).
				Int("attempt", attempt).
				Msg("tryon: generation failed")
			failureReason = reasonGenerationFailed
			continue
		}

		url, key, err := p.uploadResult(ctx, job.RecordID, payload, attempt)
		if err != nil {
			p.logger.Error().Err(err).
				Str("record_id", job.RecordID).
				Int("attempt", attempt).
				Msg("tryon: result upload failed")
			failureReason = reasonUploadFailed
			continue
		}
		resultURL, resultKey = url, key

		verdict = p.runAudit(ctx, job, resultURL)
		if verdict.Accepted() {
			p.logger.Info().
				Str("record_id", job.RecordID).
				Int("attempt", attempt).
				Float64("score", verdict.VisualQualityScore).
				Msg("tryon: audit accepted result")
			acceptedAtIdx = attempt
			break
		}

		p.logger.Warn().
			Str("record_id", job.RecordID).
			Int("attempt", attempt).
			Interface("verdict", verdict).
			Msg("tryon: audit rejected result")

		if lastAttempt {
			// Graceful degradation: a low-quality result beats discarding
			// every attempt's work.
			p.logger.Info().
				Str("record_id", job.RecordID).
				Int("attempt", attempt).
				Msg("tryon: using last attempt result")
			acceptedAtIdx = attempt
			break
		}

		p.cleanupCandidate(ctx, job.RecordID, resultKey)
		resultURL, resultKey, verdict = "", "", nil
	}

	if resultURL == "" {
		if failureReason == "" {
			failureReason = reasonNoResult
		}
		p.markFailure(ctx, job.RecordID, failureReason, maxRetries)
		return
	}

	p.markSuccess(ctx, job.RecordID, domain.TryOnSuccess{
		ResultURL:        resultURL,
		ProcessingTimeMs: int(time.Since(start).Milliseconds()),
		AuditScore:       verdictScore(verdict),
		AuditDetails:     verdictDetails(verdict),
		RetryCount:       acceptedAtIdx - 1,
	})
}

// uploadResult decodes the generated payload and stores it under an
// attempt-indexed key so successive attempts never collide.
func (p *Pipeline) uploadResult(ctx context.Context, recordID, payload string, attempt int) (string, string, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", "", fmt.Errorf("decode result payload: %w", err)
	}
	key := fmt.Sprintf("results/result_%s_attempt%d.jpg", recordID, attempt)
	url, err := p.results.Upload(ctx, key, data, "image/jpeg")
	if err != nil {
		return "", "", fmt.Errorf("upload result: %w", err)
	}
	p.logger.Info().
		Str("record_id", recordID).
		Int("attempt", attempt).
		Str("result_url", url).
		Msg("tryon: result uploaded")
	return url, key, nil
}

// runAudit returns the verdict for the uploaded result, or nil when the audit
// failed in any way. A broken audit is indistinguishable from a rejecting one
// as far as the retry decision is concerned.
func (p *Pipeline) runAudit(ctx context.Context, job Job, resultURL string) *AuditVerdict {
	garment2 := ""
	if len(job.GarmentImageURLs) > 1 {
		garment2 = job.GarmentImageURLs[1]
	}
	verdict, err := p.auditor.Audit(ctx, job.PersonImageURL, resultURL, job.GarmentImageURLs[0], garment2)
	if err != nil {
		p.logger.Error().Err(err).
			Str("record_id", job.RecordID).
			Msg("tryon: audit unavailable")
		return nil
	}
	p.logger.Info().
		Str("record_id", job.RecordID).
		Interface("verdict", verdict).
		Msg("tryon: audit complete")
	return verdict
}

// cleanupCandidate removes a rejected intermediate result. Best-effort only.
func (p *Pipeline) cleanupCandidate(ctx context.Context, recordID, key string) {
	if err := p.results.Delete(ctx, key); err != nil {
		p.logger.Warn().Err(err).
			Str("record_id", recordID).
			Str("key", key).
			Msg("tryon: candidate cleanup failed")
		return
	}
	p.logger.Debug().
		Str("record_id", recordID).
		Str("key", key).
		Msg("tryon: intermediate result deleted")
}

func (p *Pipeline) markSuccess(ctx context.Context, recordID string, update domain.TryOnSuccess) {
	if err := p.records.MarkSuccess(ctx, recordID, update); err != nil {
		p.logger.Warn().Err(err).
			Str("record_id", recordID).
			Msg("tryon: success update failed")
	}
	p.logger.Info().
		Str("record_id", recordID).
		Str("result_url", update.ResultURL).
		Int("retry_count", update.RetryCount).
		Int("processing_time_ms", update.ProcessingTimeMs).
		Msg("tryon: job completed")
}

func (p *Pipeline) markFailure(ctx context.Context, recordID, reason string, retryCount int) {
	if err := p.records.MarkFailure(ctx, recordID, reason, retryCount); err != nil {
		p.logger.Error().Err(err).
			Str("record_id", recordID).
			Msg("tryon: failure update failed")
	}
	p.logger.Warn().
		Str("record_id", recordID).
		Str("reason", reason).
		Int("retry_count", retryCount).
		Msg("tryon: job failed")
}

func verdictScore(v *AuditVerdict) *float64 {
	if v == nil {
		return nil
	}
	score := v.VisualQualityScore
	return &score
}

func verdictDetails(v *AuditVerdict) []byte {
	if v == nil {
		return nil
	}
	details, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return details
}
