// Package auth implements passwordless sign-in: magic-link issue/verify,
// session lifecycle, and the declarative access-control configuration.
//
// The service is constructed explicitly and injected into handlers; there is
// no package-level instance.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/email"
	"github.com/nbeast/nbeast/internal/metrics"
	"github.com/nbeast/nbeast/internal/repository"
)

const (
	defaultTokenTTL   = 15 * time.Minute
	defaultSessionTTL = 7 * 24 * time.Hour

	// SessionCookieName carries the signed session JWT.
	SessionCookieName = "session_token"
)

// Deliverer is the subset of the email delivery action the service needs.
type Deliverer interface {
	Deliver(ctx context.Context, req email.DeliveryRequest) email.DeliveryResult
}

// SessionCache shortens session lookups; all methods are best-effort from the
// service's point of view.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Set(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, sessionID string) error
}

type Service struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	cache      SessionCache
	deliverer  Deliverer
	logger     *slog.Logger
	jwtKey     []byte
	baseURL    string
	tokenTTL   time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

func NewService(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	cache SessionCache,
	deliverer Deliverer,
	logger *slog.Logger,
	jwtKey []byte,
	baseURL string,
) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		cache:      cache,
		deliverer:  deliverer,
		logger:     logger.With("component", "auth"),
		jwtKey:     jwtKey,
		baseURL:    baseURL,
		tokenTTL:   defaultTokenTTL,
		sessionTTL: defaultSessionTTL,
		now:        time.Now,
	}
}

// MagicLinkRequest carries everything the delivery action needs beyond the
// token itself.
type MagicLinkRequest struct {
	Email string
	// DisplayName comes from an existing session, when the requester has one.
	DisplayName string
	// Locale is the one-shot locale cookie; may be nil.
	Locale email.LocaleSource
}

// RequestMagicLink finds or creates the user, generates a secure token,
// stores its hash, and hands the link to the delivery action. The returned
// result reflects the delivery outcome; the error covers everything before
// delivery.
func (s *Service) RequestMagicLink(ctx context.Context, req MagicLinkRequest) (email.DeliveryResult, error) {
	user, err := s.users.FindOrCreate(ctx, req.Email)
	if err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("error").Inc()
		return email.DeliveryResult{}, fmt.Errorf("find or create user: %w", err)
	}

	raw := make([]byte, 32)
	if _, err = io.ReadFull(rand.Reader, raw); err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("error").Inc()
		return email.DeliveryResult{}, fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)
	tokenHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))

	expiresAt := s.now().Add(s.tokenTTL)
	if err = s.users.CreateMagicToken(ctx, user.ID, tokenHash, expiresAt); err != nil {
		metrics.MagicLinkRequestsTotal.WithLabelValues("error").Inc()
		return email.DeliveryResult{}, fmt.Errorf("store magic token: %w", err)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = user.Name
	}

	result := s.deliverer.Deliver(ctx, email.DeliveryRequest{
		Email:       req.Email,
		Token:       rawToken,
		URL:         s.baseURL + "/auth/verify?token=" + rawToken,
		DisplayName: displayName,
		Locale:      req.Locale,
	})

	switch {
	case result.Success:
		metrics.MagicLinkRequestsTotal.WithLabelValues("sent").Inc()
	case result.RateLimited:
		metrics.MagicLinkRequestsTotal.WithLabelValues("rate_limited").Inc()
	default:
		metrics.MagicLinkRequestsTotal.WithLabelValues("failed").Inc()
	}
	return result, nil
}

// VerifyMagicLink hashes the raw token, atomically claims it, opens a
// session, and returns the signed session JWT for the cookie.
func (s *Service) VerifyMagicLink(ctx context.Context, rawToken string) (string, error) {
	tokenHash := fmt.Sprintf("%x", sha256.Sum256([]byte(rawToken)))

	mt, err := s.users.ClaimMagicToken(ctx, tokenHash)
	if err != nil {
		return "", domain.ErrTokenInvalid
	}

	user, err := s.users.FindByID(ctx, mt.UserID)
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	now := s.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "cache session", "error", err)
	}

	claims := jwt.MapClaims{
		"sid":   session.ID,
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   session.ExpiresAt.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// GetSession resolves the session cookie value to a live session. Cache
// first, then the database; a cache failure degrades to a database read.
func (s *Service) GetSession(ctx context.Context, cookieValue string) (*domain.Session, error) {
	sessionID, err := s.parseSessionID(cookieValue)
	if err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, sessionID)
	if err != nil {
		s.logger.WarnContext(ctx, "session cache read", "error", err)
	} else if cached != nil {
		if cached.Expired(s.now()) {
			metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
			return nil, domain.ErrSessionNotFound
		}
		metrics.SessionLookupsTotal.WithLabelValues("cache").Inc()
		return cached, nil
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
		return nil, err
	}
	if session.Expired(s.now()) {
		metrics.SessionLookupsTotal.WithLabelValues("miss").Inc()
		return nil, domain.ErrSessionNotFound
	}

	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.WarnContext(ctx, "cache session", "error", err)
	}
	metrics.SessionLookupsTotal.WithLabelValues("db").Inc()
	return session, nil
}

// SignOut deletes the session row and evicts the cache entry.
func (s *Service) SignOut(ctx context.Context, cookieValue string) error {
	sessionID, err := s.parseSessionID(cookieValue)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "evict session", "error", err)
	}
	return nil
}

func (s *Service) parseSessionID(cookieValue string) (string, error) {
	token, err := jwt.Parse(cookieValue, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return "", domain.ErrSessionNotFound
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", domain.ErrSessionNotFound
	}
	return sid, nil
}
