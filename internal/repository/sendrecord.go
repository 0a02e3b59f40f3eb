package repository

import (
	"context"
	"time"

	"github.com/nbeast/nbeast/internal/domain"
)

// SendRecordRepository backs the minimum inter-send interval on magic-link
// emails. Records are keyed by the normalized destination address.
type SendRecordRepository interface {
	// FindMostRecent returns the newest record for the address, or
	// (nil, nil) when none exists.
	FindMostRecent(ctx context.Context, normalizedEmail string) (*domain.SendRecord, error)
	Create(ctx context.Context, normalizedEmail string, createdAt time.Time) error
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}
