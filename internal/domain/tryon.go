package domain

import "time"

// TryOnStatus enumerates the lifecycle states of a try-on record.
type TryOnStatus string

const (
	StatusPending TryOnStatus = "pending"
	StatusSuccess TryOnStatus = "success"
	StatusFailed  TryOnStatus = "failed"
)

// TryOnRecord is one end-to-end virtual try-on request as persisted in
// tryon_history. The record is created pending before the background job
// starts and receives exactly one terminal update.
type TryOnRecord struct {
	ID               string
	BodyImageURL     string
	GarmentImageURLs []string
	Status           TryOnStatus
	ResultImageURL   *string
	ErrorMessage     *string
	AuditScore       *float64
	AuditDetails     []byte
	RetryCount       int
	ProcessingTimeMs *int
	IPAddress        *string
	CountryCode      *string
	UserAgent        *string
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// TryOnSuccess carries the fields of a successful terminal update.
type TryOnSuccess struct {
	ResultURL        string
	ProcessingTimeMs int
	AuditScore       *float64
	AuditDetails     []byte
	RetryCount       int
}
