package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrTokenInvalid    = errors.New("token is invalid or expired")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthorized    = errors.New("unauthorized")
)

type User struct {
	ID        string
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MagicToken is a single-use sign-in token. Only the SHA-256 hash of the raw
// token is persisted.
type MagicToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// Session is a signed-in browser session backed by a database row. The ID is
// carried in a JWT cookie; everything else is looked up server-side.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// SendRecord tracks the most recent magic-link email per normalized
// destination address. It exists only to enforce a minimum inter-send
// interval.
type SendRecord struct {
	ID        string
	Email     string
	CreatedAt time.Time
}
