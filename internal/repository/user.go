package repository

import (
	"context"
	"time"

	"github.com/nbeast/nbeast/internal/domain"
)

// Usecases depend on interfaces, not concrete implementations, so storage can
// be swapped and tests can inject fakes.
type UserRepository interface {
	FindOrCreate(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	UpdateName(ctx context.Context, id, name string) error

	CreateMagicToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	// ClaimMagicToken atomically marks an unexpired, unused token as used and
	// returns it. A second claim of the same token fails.
	ClaimMagicToken(ctx context.Context, tokenHash string) (*domain.MagicToken, error)
	// PurgeMagicTokens deletes tokens that are expired or already used.
	PurgeMagicTokens(ctx context.Context, before time.Time) (int64, error)
}
