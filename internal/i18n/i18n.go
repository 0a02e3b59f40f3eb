// Package i18n owns locale negotiation and the localized string bundles.
// The supported set is defined once, in internal/domain, and shared with the
// routing layer.
package i18n

import (
	"golang.org/x/text/language"

	"github.com/nbeast/nbeast/internal/domain"
)

var supportedTags = []language.Tag{
	language.English,
	language.Spanish,
}

var tagMatcher = language.NewMatcher(supportedTags)

// Supported returns the supported locales in preference order.
func Supported() []domain.Locale {
	return domain.Locales()
}

// Negotiate picks a supported locale for a weighted Accept-Language header.
// Matching is standard BCP-47 best fit (exact tag, then primary subtag, so
// es-MX resolves to es). An empty or malformed header yields the default
// locale; Negotiate never fails.
func Negotiate(acceptLanguage string) domain.Locale {
	if acceptLanguage == "" {
		return domain.DefaultLocale
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return domain.DefaultLocale
	}
	_, index, conf := tagMatcher.Match(prefs...)
	if conf == language.No {
		return domain.DefaultLocale
	}
	return domain.Locales()[index]
}
