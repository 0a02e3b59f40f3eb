package email

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/nbeast/nbeast/internal/domain"
	"github.com/nbeast/nbeast/internal/i18n"
	"github.com/nbeast/nbeast/internal/metrics"
	"github.com/nbeast/nbeast/internal/repository"
)

// minSendInterval is the minimum spacing between two magic-link emails to the
// same normalized address. It matches the client-side cooldown.
const minSendInterval = 120 * time.Second

// LocaleSource is the one-shot locale cookie set by the sign-in form right
// before it triggers a send. The delivery action consumes it exactly once.
type LocaleSource interface {
	// Value returns the preselected locale, if one was set.
	Value() (domain.Locale, bool)
	// Clear deletes the underlying cookie so it cannot leak into later
	// requests.
	Clear()
}

type DeliveryRequest struct {
	Email string
	Token string
	URL   string
	// DisplayName comes from an existing session when present; empty means
	// derive a name from the email's local part.
	DisplayName string
	// Locale is optional. Absent or unset means the default locale.
	Locale LocaleSource
}

// DeliveryResult is the structured outcome handed back to the auth layer.
// Deliver never panics and never lets a collaborator failure escape.
type DeliveryResult struct {
	Success     bool
	RateLimited bool
	Error       string
}

// Deliverer renders and sends the localized magic-link email, guarded by the
// minimum inter-send interval.
type Deliverer struct {
	records     repository.SendRecordRepository
	sender      Sender
	logger      *slog.Logger
	productName string
	minInterval time.Duration
	now         func() time.Time
}

func NewDeliverer(records repository.SendRecordRepository, sender Sender, logger *slog.Logger, productName string) *Deliverer {
	return &Deliverer{
		records:     records,
		sender:      sender,
		logger:      logger.With("component", "email_deliverer"),
		productName: productName,
		minInterval: minSendInterval,
		now:         time.Now,
	}
}

func (d *Deliverer) Deliver(ctx context.Context, req DeliveryRequest) DeliveryResult {
	locale := domain.DefaultLocale
	if req.Locale != nil {
		if v, ok := req.Locale.Value(); ok {
			locale = v
		}
		// One-shot: the cookie is gone whether or not the send succeeds.
		defer req.Locale.Clear()
	}

	normalized := domain.NormalizeEmail(req.Email)

	// Read-then-write guard. Two simultaneous requests for the same address
	// can both pass the check; that race is accepted, the interval is a
	// best-effort limit rather than a mutual-exclusion guarantee.
	last, err := d.records.FindMostRecent(ctx, normalized)
	if err != nil {
		d.logger.ErrorContext(ctx, "send record lookup", "error", err)
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		return DeliveryResult{Error: "send record lookup failed"}
	}
	now := d.now()
	if last != nil && now.Sub(last.CreatedAt) < d.minInterval {
		metrics.EmailsTotal.WithLabelValues("rate_limited").Inc()
		return DeliveryResult{RateLimited: true, Error: "magic link already sent recently"}
	}

	username := strings.TrimSpace(req.DisplayName)
	if username == "" {
		username, _, _ = strings.Cut(normalized, "@")
	}

	dict := i18n.Dictionary(locale)
	body, err := renderSignin(dict, username, req.URL, d.productName, now)
	if err != nil {
		d.logger.ErrorContext(ctx, "render magic link email", "error", err)
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		return DeliveryResult{Error: "template render failed"}
	}

	subject := dict.T("email.signInSubject") + " - " + d.productName
	if err := d.sender.Send(ctx, req.Email, subject, body); err != nil {
		d.logger.ErrorContext(ctx, "send magic link email", "error", err)
		metrics.EmailsTotal.WithLabelValues("failed").Inc()
		return DeliveryResult{Error: "email send failed"}
	}

	if err := d.records.Create(ctx, normalized, now); err != nil {
		// The email went out; a missing record only weakens the next
		// interval check.
		d.logger.WarnContext(ctx, "record magic link send", "error", err)
	}

	metrics.EmailsTotal.WithLabelValues("sent").Inc()
	return DeliveryResult{Success: true}
}
