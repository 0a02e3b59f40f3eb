package domain

// Locale is a supported UI language. The set is closed: every route-facing
// operation resolves to exactly one of these values, and nothing outside the
// set is ever written into a URL path segment.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"

	DefaultLocale = LocaleEN
)

// Locales lists the supported locales in preference order. The routing layer
// uses this to enumerate static path variants.
func Locales() []Locale {
	return []Locale{LocaleEN, LocaleES}
}

// ParseLocale reports whether s names a supported locale.
func ParseLocale(s string) (Locale, bool) {
	switch Locale(s) {
	case LocaleEN, LocaleES:
		return Locale(s), true
	}
	return "", false
}

func (l Locale) String() string { return string(l) }
