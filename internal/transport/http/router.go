package httptransport

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/transport/http/handler"
	"github.com/nbeast/nbeast/internal/transport/http/middleware"
)

// SessionResolver resolves session cookies for the edge and page middleware.
type SessionResolver interface {
	GetSession(ctx context.Context, cookieValue string) (*domain.Session, error)
}

// NewRouter assembles the full HTTP surface: the JSON auth API, the
// locale-independent verify/signout endpoints, and the localized pages.
func NewRouter(
	logger *slog.Logger,
	sessions SessionResolver,
	authHandler *handler.AuthHandler,
	pages *handler.Pages,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	r.SetHTMLTemplate(handler.Templates())

	r.Use(middleware.Locale(sessions, logger))

	api := r.Group("/api")
	api.POST("/auth/magic-link", limiter.Middleware(), authHandler.RequestMagicLink)
	api.GET("/auth/providers", authHandler.Providers)

	r.GET("/auth/verify", authHandler.Verify)
	r.POST("/auth/signout", authHandler.SignOut)

	pagesGroup := r.Group("/:locale")
	pagesGroup.GET("", pages.Home)
	pagesGroup.GET("/auth/signin", pages.SigninForm)
	pagesGroup.POST("/auth/signin", limiter.Middleware(), pages.SigninSubmit)
	pagesGroup.POST("/auth/signin/resend", limiter.Middleware(), pages.SigninResend)
	pagesGroup.POST("/auth/signin/back", pages.SigninBack)
	pagesGroup.GET("/auth/callback", pages.Callback)
	pagesGroup.GET("/account", middleware.RequireSession(sessions, logger), pages.Account)

	return r
}
