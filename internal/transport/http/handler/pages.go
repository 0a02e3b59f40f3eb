package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nbeast/nbeast/internal/auth"
	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/email"
	"github.com/nbeast/nbeast/internal/i18n"
	"github.com/nbeast/nbeast/internal/signin"
	"github.com/nbeast/nbeast/internal/transport/http/middleware"
)

// sessionReader resolves session cookies for pages that render differently
// for signed-in visitors but do not require a session.
type sessionReader interface {
	GetSession(ctx context.Context, cookieValue string) (*domain.Session, error)
}

// Pages renders the localized HTML pages. Each page lives under a locale
// prefix; the edge middleware guarantees the prefix is a supported locale
// before these handlers run.
type Pages struct {
	flows       *signin.Store
	sessions    sessionReader
	logger      *slog.Logger
	productName string
}

func NewPages(flows *signin.Store, sessions sessionReader, logger *slog.Logger, productName string) *Pages {
	return &Pages{
		flows:       flows,
		sessions:    sessions,
		logger:      logger.With("component", "pages"),
		productName: productName,
	}
}

func localeOf(c *gin.Context) domain.Locale {
	if locale, ok := domain.ParseLocale(c.Param("locale")); ok {
		return locale
	}
	return domain.DefaultLocale
}

// currentSession resolves the session cookie, treating any failure as "not
// signed in".
func (p *Pages) currentSession(c *gin.Context) *domain.Session {
	cookie, err := c.Cookie(auth.SessionCookieName)
	if err != nil || cookie == "" {
		return nil
	}
	session, err := p.sessions.GetSession(c.Request.Context(), cookie)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) {
			p.logger.WarnContext(c.Request.Context(), "session lookup", "error", err)
		}
		return nil
	}
	return session
}

// flowFor returns the visitor's sign-in flow, creating one (and its cookie)
// on first contact.
func (p *Pages) flowFor(c *gin.Context) *signin.Flow {
	if id, err := c.Cookie(flowCookieName); err == nil && id != "" {
		if flow, ok := p.flows.Get(id); ok {
			return flow
		}
	}
	id, flow := p.flows.Create()
	c.SetCookie(flowCookieName, id, flowCookieTTL, "/", "", false, true)
	return flow
}

// GET /:locale
func (p *Pages) Home(c *gin.Context) {
	locale := localeOf(c)
	c.HTML(http.StatusOK, "home.html", gin.H{
		"Dict":        i18n.Dictionary(locale),
		"Locale":      locale,
		"Session":     p.currentSession(c),
		"ProductName": p.productName,
	})
}

// GET /:locale/auth/signin
func (p *Pages) SigninForm(c *gin.Context) {
	locale := localeOf(c)
	dict := i18n.Dictionary(locale)
	flow := p.flowFor(c)

	switch flow.State() {
	case signin.StateLinkSent, signin.StateResending:
		c.HTML(http.StatusOK, "signin_sent.html", gin.H{
			"Dict":      dict,
			"Locale":    locale,
			"Email":     flow.Email(),
			"CanResend": flow.CanResend(),
			"ResendHint": dict.Tf("auth.resendAvailableIn",
				map[string]any{"Seconds": flow.Remaining()}),
			"Error": flowErrorMessage(dict, flow.Err()),
		})
	default:
		c.HTML(http.StatusOK, "signin.html", gin.H{
			"Dict":   dict,
			"Locale": locale,
			"Error":  p.signinError(c, dict, flow),
		})
	}
}

// POST /:locale/auth/signin
// Sets the one-shot locale cookie before triggering the send, then follows
// the post/redirect/get pattern back to the form.
func (p *Pages) SigninSubmit(c *gin.Context) {
	locale := localeOf(c)
	flow := p.flowFor(c)
	addr := c.PostForm("email")

	setLangCookie(c, locale)
	ctx := email.WithLocaleSource(c.Request.Context(),
		langCookie{c: c, fallback: locale, hasFall: true})
	if err := flow.Submit(ctx, addr); err != nil && !errors.Is(err, signin.ErrInvalidEmail) {
		p.logger.WarnContext(c.Request.Context(), "sign-in submit", "error", err)
	}

	c.Redirect(http.StatusSeeOther, "/"+locale.String()+"/auth/signin")
}

// POST /:locale/auth/signin/resend
func (p *Pages) SigninResend(c *gin.Context) {
	locale := localeOf(c)
	flow := p.flowFor(c)

	setLangCookie(c, locale)
	ctx := email.WithLocaleSource(c.Request.Context(),
		langCookie{c: c, fallback: locale, hasFall: true})
	if err := flow.Resend(ctx); err != nil && !errors.Is(err, signin.ErrCooldownActive) {
		p.logger.WarnContext(c.Request.Context(), "sign-in resend", "error", err)
	}

	c.Redirect(http.StatusSeeOther, "/"+locale.String()+"/auth/signin")
}

// POST /:locale/auth/signin/back
func (p *Pages) SigninBack(c *gin.Context) {
	locale := localeOf(c)
	p.flowFor(c).BackToEdit()
	c.Redirect(http.StatusSeeOther, "/"+locale.String()+"/auth/signin")
}

// GET /:locale/auth/callback?source=&redirect=
func (p *Pages) Callback(c *gin.Context) {
	locale := localeOf(c)
	redirect := c.Query("redirect")
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/"
	}
	c.HTML(http.StatusOK, "callback.html", gin.H{
		"Dict":     i18n.Dictionary(locale),
		"Locale":   locale,
		"Redirect": redirect,
	})
}

// GET /:locale/account (behind RequireSession)
func (p *Pages) Account(c *gin.Context) {
	locale := localeOf(c)
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		c.Redirect(http.StatusTemporaryRedirect, "/"+locale.String()+"/auth/signin")
		return
	}
	c.HTML(http.StatusOK, "account.html", gin.H{
		"Dict":        i18n.Dictionary(locale),
		"Locale":      locale,
		"Session":     session,
		"MemberSince": session.CreatedAt.Format("2006-01-02"),
	})
}

// signinError maps the query error parameter or the flow's last error to a
// localized message for the idle form.
func (p *Pages) signinError(c *gin.Context, dict *i18n.Dict, flow *signin.Flow) string {
	switch c.Query("error") {
	case "invalid_link":
		return dict.T("error.invalidLink")
	case "server":
		return dict.T("error.genericError")
	}
	return flowErrorMessage(dict, flow.Err())
}

func flowErrorMessage(dict *i18n.Dict, err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, signin.ErrInvalidEmail):
		return dict.T("error.invalidEmail")
	default:
		return dict.T("error.magicLinkError")
	}
}
