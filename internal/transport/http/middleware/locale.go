package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nbeast/nbeast/internal/auth"
	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/i18n"
	"github.com/nbeast/nbeast/internal/metrics"
)

// sessionResolver is the subset of the auth service the edge middleware
// needs. Defined here (point of use) so tests can inject a fake.
type sessionResolver interface {
	GetSession(ctx context.Context, cookieValue string) (*domain.Session, error)
}

// exemptPrefixes are never localized. They match the paths the original
// app served outside the locale segment.
var exemptPrefixes = []string{
	"/api",
	"/auth/verify",
	"/auth/signout",
	"/healthz",
	"/metrics",
	"/favicon.ico",
	"/static",
}

// Locale is the edge routing middleware. It runs once per request and takes
// at most one terminal action, with the locale-prefix check strictly first:
//
//  1. First path segment is not a supported locale: 307 redirect to the
//     negotiated locale's variant of the path ("/" becomes "/en").
//  2. Path is exactly "/{locale}/auth/signin" and the visitor already has a
//     live session: 307 redirect to the callback page.
//  3. Otherwise pass through.
//
// A session lookup failure is logged and treated as "no session".
func Locale(sessions sessionResolver, logger *slog.Logger) gin.HandlerFunc {
	log := logger.With("component", "locale_middleware")
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range exemptPrefixes {
			if path == p || strings.HasPrefix(path, p+"/") {
				c.Next()
				return
			}
		}

		first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
		locale, ok := domain.ParseLocale(first)
		if !ok {
			negotiated := i18n.Negotiate(c.GetHeader("Accept-Language"))
			target := "/" + negotiated.String() + strings.TrimRight(path, "/")
			if q := c.Request.URL.RawQuery; q != "" {
				target += "?" + q
			}
			metrics.LocaleRedirectsTotal.WithLabelValues("locale_prefix").Inc()
			c.Redirect(http.StatusTemporaryRedirect, target)
			c.Abort()
			return
		}

		if path == "/"+locale.String()+"/auth/signin" {
			if cookie, err := c.Cookie(auth.SessionCookieName); err == nil && cookie != "" {
				session, err := sessions.GetSession(c.Request.Context(), cookie)
				if err != nil {
					log.WarnContext(c.Request.Context(), "session lookup at signin", "error", err)
				} else if session != nil {
					metrics.LocaleRedirectsTotal.WithLabelValues("authenticated_signin").Inc()
					c.Redirect(http.StatusTemporaryRedirect,
						"/"+locale.String()+"/auth/callback?source=signin&redirect=/")
					c.Abort()
					return
				}
			}
		}

		c.Next()
	}
}
