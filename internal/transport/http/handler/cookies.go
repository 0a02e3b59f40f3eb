package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nbeast/nbeast/internal/domain"
)

const (
	// langCookieName is the one-shot locale cookie set right before a
	// magic-link send and consumed by the delivery action.
	langCookieName = "lang"
	langCookieTTL  = 300 // seconds

	// flowCookieName ties a browser to its server-side sign-in flow.
	flowCookieName = "flow_id"
	flowCookieTTL  = 1800 // seconds
)

// langCookie adapts the request's locale cookie to the delivery action's
// one-shot contract. Clearing expires the cookie in the response, so the
// value cannot leak into later requests.
type langCookie struct {
	c *gin.Context
	// fallback is the locale the visitor is browsing under, used when the
	// request carries no cookie (the form posts in the same request that
	// sets it).
	fallback domain.Locale
	hasFall  bool
}

func (l langCookie) Value() (domain.Locale, bool) {
	if v, err := l.c.Cookie(langCookieName); err == nil {
		if locale, ok := domain.ParseLocale(v); ok {
			return locale, true
		}
	}
	if l.hasFall {
		return l.fallback, true
	}
	return "", false
}

func (l langCookie) Clear() {
	l.c.SetCookie(langCookieName, "", -1, "/", "", false, true)
}

func setLangCookie(c *gin.Context, locale domain.Locale) {
	c.SetCookie(langCookieName, locale.String(), langCookieTTL, "/", "", false, true)
}
