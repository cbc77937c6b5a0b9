package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tryon/internal/domain"
)

// TryOnRepositoryPG implements domain.TryOnRepository.
type TryOnRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewTryOnRepository creates a new try-on repository backed by PostgreSQL.
func NewTryOnRepository(pool *pgxpool.Pool) *TryOnRepositoryPG {
	return &TryOnRepositoryPG{pool: pool}
}

// Create inserts a new pending record.
func (r *TryOnRepositoryPG) Create(ctx context.Context, record *domain.TryOnRecord) error {
	query := `
INSERT INTO tryon_history (id, body_image_url, garment_image_urls, status, ip_address, country_code, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.BodyImageURL,
		record.GarmentImageURLs,
		record.Status,
		record.IPAddress,
		record.CountryCode,
		record.UserAgent,
	)
	return err
}

// MarkSuccess writes the terminal success update for a record.
func (r *TryOnRepositoryPG) MarkSuccess(ctx context.Context, recordID string, update domain.TryOnSuccess) error {
	query := `
UPDATE tryon_history
SET status = $2,
    result_image_url = $3,
    processing_time_ms = $4,
    audit_score = $5,
    audit_details = $6,
    retry_count = $7,
    completed_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query,
		recordID,
		domain.StatusSuccess,
		update.ResultURL,
		update.ProcessingTimeMs,
		update.AuditScore,
		nullableBytes(update.AuditDetails),
		update.RetryCount,
	)
	return err
}

// MarkFailure writes the terminal failure update for a record.
func (r *TryOnRepositoryPG) MarkFailure(ctx context.Context, recordID, reason string, retryCount int) error {
	query := `
UPDATE tryon_history
SET status = $2,
    error_message = $3,
    retry_count = $4,
    completed_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, recordID, domain.StatusFailed, reason, retryCount)
	return err
}

// GetByID fetches a record by its identifier.
func (r *TryOnRepositoryPG) GetByID(ctx context.Context, recordID string) (*domain.TryOnRecord, error) {
	query := `
SELECT id, body_image_url, garment_image_urls, status, result_image_url, error_message,
       audit_score, audit_details, retry_count, processing_time_ms,
       ip_address, country_code, user_agent, created_at, completed_at
FROM tryon_history
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, recordID)
	var record domain.TryOnRecord
	if err := row.Scan(
		&record.ID,
		&record.BodyImageURL,
		&record.GarmentImageURLs,
		&record.Status,
		&record.ResultImageURL,
		&record.ErrorMessage,
		&record.AuditScore,
		&record.AuditDetails,
		&record.RetryCount,
		&record.ProcessingTimeMs,
		&record.IPAddress,
		&record.CountryCode,
		&record.UserAgent,
		&record.CreatedAt,
		&record.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
