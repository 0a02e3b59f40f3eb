package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nbeast/nbeast/internal/auth"
	"github.com/nbeast/nbeast/internal/domain"
)

const sessionContextKey = "session"

// RequireSession protects authenticated pages. Visitors without a live
// session are redirected to the sign-in page of the locale they are on.
func RequireSession(sessions sessionResolver, logger *slog.Logger) gin.HandlerFunc {
	log := logger.With("component", "session_middleware")
	return func(c *gin.Context) {
		locale, ok := domain.ParseLocale(c.Param("locale"))
		if !ok {
			locale = domain.DefaultLocale
		}
		signin := "/" + locale.String() + "/auth/signin"

		cookie, err := c.Cookie(auth.SessionCookieName)
		if err != nil || cookie == "" {
			c.Redirect(http.StatusTemporaryRedirect, signin)
			c.Abort()
			return
		}

		session, err := sessions.GetSession(c.Request.Context(), cookie)
		if err != nil {
			log.WarnContext(c.Request.Context(), "session lookup", "error", err)
			c.Redirect(http.StatusTemporaryRedirect, signin)
			c.Abort()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session set by RequireSession, if any.
func SessionFromContext(c *gin.Context) (*domain.Session, bool) {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil, false
	}
	s, ok := v.(*domain.Session)
	return s, ok
}
