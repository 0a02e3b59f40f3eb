package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nbeast/nbeast/internal/auth"
	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/email"
	"github.com/nbeast/nbeast/internal/i18n"
)

// authService is the subset of the auth service the handler needs.
// Defined here (point of use) so tests can inject a fake.
type authService interface {
	RequestMagicLink(ctx context.Context, req auth.MagicLinkRequest) (email.DeliveryResult, error)
	VerifyMagicLink(ctx context.Context, rawToken string) (string, error)
	SignOut(ctx context.Context, cookieValue string) error
}

type AuthHandler struct {
	auth       authService
	providers  []auth.SocialProvider
	logger     *slog.Logger
	sessionTTL time.Duration
}

func NewAuthHandler(svc authService, providers []auth.SocialProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:       svc,
		providers:  providers,
		logger:     logger.With("component", "auth_handler"),
		sessionTTL: 7 * 24 * time.Hour,
	}
}

type magicLinkRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}

// POST /api/auth/magic-link
// Always returns 200 after validation to avoid revealing whether the email
// exists or whether a link was actually sent.
func (h *AuthHandler) RequestMagicLink(c *gin.Context) {
	var req magicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.auth.RequestMagicLink(c.Request.Context(), auth.MagicLinkRequest{
		Email:       req.Email,
		DisplayName: req.Name,
		Locale:      langCookie{c: c},
	})
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "request magic link", "error", err)
	}

	c.Status(http.StatusOK)
}

// GET /api/auth/providers
// Lists the configured social providers by name. Providers with incomplete
// credentials were already filtered out at startup.
func (h *AuthHandler) Providers(c *gin.Context) {
	names := make([]string, 0, len(h.providers))
	for _, p := range h.providers {
		names = append(names, p.Name)
	}
	c.JSON(http.StatusOK, gin.H{"providers": names})
}

// GET /auth/verify?token=<raw>
// On success sets the session cookie and sends the browser to the home page;
// the locale middleware prefixes the negotiated locale. An invalid or expired
// token lands back on the sign-in page with an error.
func (h *AuthHandler) Verify(c *gin.Context) {
	locale := i18n.Negotiate(c.GetHeader("Accept-Language"))
	signin := "/" + locale.String() + "/auth/signin"

	rawToken := c.Query("token")
	if rawToken == "" {
		c.Redirect(http.StatusFound, signin+"?error=invalid_link")
		return
	}

	jwtToken, err := h.auth.VerifyMagicLink(c.Request.Context(), rawToken)
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			c.Redirect(http.StatusFound, signin+"?error=invalid_link")
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "verify magic link", "error", err)
		c.Redirect(http.StatusFound, signin+"?error=server")
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.SessionCookieName, jwtToken, int(h.sessionTTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}

// POST /auth/signout
// Deletes the session server-side, clears the cookie, and sends the browser
// home. A missing or broken cookie still clears and redirects.
func (h *AuthHandler) SignOut(c *gin.Context) {
	if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
		if err := h.auth.SignOut(c.Request.Context(), cookie); err != nil {
			h.logger.WarnContext(c.Request.Context(), "sign out", "error", err)
		}
	}

	c.SetCookie(auth.SessionCookieName, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/")
}
