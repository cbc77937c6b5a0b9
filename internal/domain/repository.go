package domain

import "context"

// TryOnRepository defines persistence for try-on records.
type TryOnRepository interface {
	Create(ctx context.Context, record *TryOnRecord) error
	MarkSuccess(ctx context.Context, recordID string, update TryOnSuccess) error
	MarkFailure(ctx context.Context, recordID, reason string, retryCount int) error
	GetByID(ctx context.Context, recordID string) (*TryOnRecord, error)
}
