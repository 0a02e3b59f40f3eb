package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/nbeast/nbeast/internal/domain"
)

//go:embed locales/*.json
var localeFS embed.FS

var bundle *goi18n.Bundle

func init() {
	bundle = goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, loc := range domain.Locales() {
		name := fmt.Sprintf("locales/%s.json", loc)
		if _, err := bundle.LoadMessageFileFS(localeFS, name); err != nil {
			panic("i18n: load " + name + ": " + err.Error())
		}
	}
}

// Dict is an immutable localized string bundle for one locale. Lookups use
// dotted keys ("auth.signIn"). A missing key returns the key itself, so
// rendering never fails on dictionary gaps.
type Dict struct {
	locale    domain.Locale
	localizer *goi18n.Localizer
}

// Dictionary returns the bundle for the given locale.
func Dictionary(locale domain.Locale) *Dict {
	return &Dict{
		locale:    locale,
		localizer: goi18n.NewLocalizer(bundle, locale.String()),
	}
}

// Locale returns the locale this dictionary was loaded for.
func (d *Dict) Locale() domain.Locale { return d.locale }

// T returns the localized string for a dotted key.
func (d *Dict) T(key string) string {
	msg, err := d.localizer.Localize(&goi18n.LocalizeConfig{MessageID: key})
	if err != nil || msg == "" {
		return key
	}
	return msg
}

// Tf returns the localized string for a dotted key with template data.
func (d *Dict) Tf(key string, data map[string]any) string {
	msg, err := d.localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil || msg == "" {
		return key
	}
	return msg
}
