package domain

import (
	"regexp"
	"strings"
)

// emailShape is a deliberately simple local@domain.tld check. Real validation
// happens when the recipient clicks the link; this only rejects obvious typos
// before any network call.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// NormalizeEmail trims whitespace and lowercases the address. Cooldowns and
// send records are keyed by this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the address matches the local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailShape.MatchString(strings.TrimSpace(email))
}
