package email

import "context"

type localeSourceKey struct{}

// WithLocaleSource attaches the request's one-shot locale cookie to the
// context so that a delivery triggered deeper in the call chain can consume
// it.
func WithLocaleSource(ctx context.Context, src LocaleSource) context.Context {
	return context.WithValue(ctx, localeSourceKey{}, src)
}

// LocaleSourceFromContext returns the attached locale cookie, or nil.
func LocaleSourceFromContext(ctx context.Context) LocaleSource {
	if src, ok := ctx.Value(localeSourceKey{}).(LocaleSource); ok {
		return src
	}
	return nil
}
