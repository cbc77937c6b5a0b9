package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tryon/internal/domain"
	"tryon/internal/middleware"
	"tryon/internal/tryon"
	"tryon/internal/worker"
)

const maxUploadBytes = 32 << 20

type tryOnResponse struct {
	Success              bool     `json:"success"`
	RecordID             string   `json:"record_id"`
	Status               string   `json:"status"`
	BodyURL              string   `json:"body_url"`
	GarmentURLs          []string `json:"garment_urls"`
	Message              string   `json:"message"`
	EstimatedWaitSeconds int      `json:"estimated_wait_seconds"`
}

// TryOnSubmit accepts a multipart try-on request, stores the source images,
// creates a pending record and schedules the background pipeline. The caller
// polls TryOnStatus for the outcome.
func (a *App) TryOnSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	bodyFile, bodyHeader, err := r.FormFile("body_image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "body_image is required")
		return
	}
	defer bodyFile.Close()

	garment1File, garment1Header, err := r.FormFile("garment_image1")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "garment_image1 is required")
		return
	}
	defer garment1File.Close()

	var uploadedKeys []string
	cleanup := func() {
		for _, key := range uploadedKeys {
			if err := a.Store.Delete(context.Background(), key); err != nil {
				a.Logger.Warn().Err(err).Str("key", key).Msg("tryon: source image cleanup failed")
			}
		}
	}

	bodyURL, bodyKey, err := a.storeUpload(r.Context(), "body", bodyFile, bodyHeader)
	if err != nil {
		a.Logger.Error().Err(err).Msg("tryon: body image upload failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store images")
		return
	}
	uploadedKeys = append(uploadedKeys, bodyKey)

	garmentURLs := make([]string, 0, 2)
	garment1URL, garment1Key, err := a.storeUpload(r.Context(), "garments", garment1File, garment1Header)
	if err != nil {
		a.Logger.Error().Err(err).Msg("tryon: garment image upload failed")
		cleanup()
		a.error(w, http.StatusInternalServerError, "internal", "failed to store images")
		return
	}
	uploadedKeys = append(uploadedKeys, garment1Key)
	garmentURLs = append(garmentURLs, garment1URL)

	if garment2File, garment2Header, err := r.FormFile("garment_image2"); err == nil {
		defer garment2File.Close()
		garment2URL, garment2Key, err := a.storeUpload(r.Context(), "garments", garment2File, garment2Header)
		if err != nil {
			a.Logger.Error().Err(err).Msg("tryon: garment image upload failed")
			cleanup()
			a.error(w, http.StatusInternalServerError, "internal", "failed to store images")
			return
		}
		uploadedKeys = append(uploadedKeys, garment2Key)
		garmentURLs = append(garmentURLs, garment2URL)
	}

	record := &domain.TryOnRecord{
		ID:               uuid.NewString(),
		BodyImageURL:     bodyURL,
		GarmentImageURLs: garmentURLs,
		Status:           domain.StatusPending,
	}
	if ip := middleware.ClientIP(r); ip != "" {
		record.IPAddress = &ip
	}
	if country := middleware.CountryFromContext(r.Context()); country != "" {
		record.CountryCode = &country
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		record.UserAgent = &ua
	}

	if err := a.Records.Create(r.Context(), record); err != nil {
		a.Logger.Error().Err(err).Msg("tryon: record create failed")
		cleanup()
		a.error(w, http.StatusInternalServerError, "internal", "failed to create try-on record")
		return
	}

	job := tryon.Job{
		RecordID:         record.ID,
		PersonImageURL:   bodyURL,
		GarmentImageURLs: garmentURLs,
		MaxRetries:       a.MaxRetries,
	}
	if err := a.Pool.Submit(func(ctx context.Context) {
		a.Pipeline.Process(ctx, job)
	}); err != nil {
		a.Logger.Error().Err(err).Str("record_id", record.ID).Msg("tryon: job submission failed")
		cleanup()
		status := http.StatusInternalServerError
		if err == worker.ErrQueueFull {
			status = http.StatusServiceUnavailable
		}
		a.error(w, status, "unavailable", "unable to schedule try-on job")
		return
	}

	a.Logger.Info().
		Str("record_id", record.ID).
		Int("garment_count", len(garmentURLs)).
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Msg("tryon: background job scheduled")

	a.json(w, http.StatusAccepted, tryOnResponse{
		Success:              true,
		RecordID:             record.ID,
		Status:               string(domain.StatusPending),
		BodyURL:              bodyURL,
		GarmentURLs:          garmentURLs,
		Message:              acceptedMessage(middleware.LocaleFromContext(r.Context())),
		EstimatedWaitSeconds: 45,
	})
}

// TryOnStatus returns the current state of a try-on record for polling.
func (a *App) TryOnStatus(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "record_id")
	if recordID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "record_id required")
		return
	}

	record, err := a.Records.GetByID(r.Context(), recordID)
	if err != nil {
		if err == domain.ErrNotFound {
			a.error(w, http.StatusNotFound, "not_found", "try-on record not found")
			return
		}
		a.Logger.Error().Err(err).Str("record_id", recordID).Msg("tryon: record lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to retrieve record")
		return
	}

	view := map[string]any{
		"id":                 record.ID,
		"status":             record.Status,
		"body_image_url":     record.BodyImageURL,
		"garment_image_urls": record.GarmentImageURLs,
		"retry_count":        record.RetryCount,
		"created_at":         record.CreatedAt,
	}
	if record.ResultImageURL != nil {
		view["result_image_url"] = *record.ResultImageURL
	}
	if record.ErrorMessage != nil {
		view["error_message"] = *record.ErrorMessage
	}
	if record.AuditScore != nil {
		view["audit_score"] = *record.AuditScore
	}
	if len(record.AuditDetails) > 0 {
		view["audit_details"] = json.RawMessage(record.AuditDetails)
	}
	if record.ProcessingTimeMs != nil {
		view["processing_time_ms"] = *record.ProcessingTimeMs
	}
	if record.CompletedAt != nil {
		view["completed_at"] = *record.CompletedAt
	}

	a.json(w, http.StatusOK, map[string]any{"success": true, "record": view})
}

// storeUpload reads one multipart file and persists it under the given prefix
// with a unique name. Returns the public URL and the storage key.
func (a *App) storeUpload(ctx context.Context, prefix string, file multipart.File, header *multipart.FileHeader) (string, string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", "", fmt.Errorf("empty upload")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	key := fmt.Sprintf("%s/%s%s", prefix, uuid.NewString(), ext)

	url, err := a.Store.Upload(ctx, key, data, contentType)
	if err != nil {
		return "", "", err
	}
	return url, key, nil
}

func acceptedMessage(locale string) string {
	if locale == "id" {
		return "Permintaan try-on diterima. Hasil akan tersedia sebentar lagi."
	}
	return "Try-on request accepted. The result will be available shortly."
}
