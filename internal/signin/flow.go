// Package signin holds the magic-link request flow: the per-visitor state
// machine that gates submissions with a cooldown. It is a UX debounce layered
// in front of the server-side send guard, not a security control.
package signin

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/nbeast/nbeast/internal/domain"
)

// CooldownSeconds matches the server-side minimum inter-send interval.
const CooldownSeconds = 120

var (
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrCooldownActive = errors.New("cooldown still active")
)

type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateLinkSent
	StateResending
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateLinkSent:
		return "link_sent"
	case StateResending:
		return "resending"
	}
	return "unknown"
}

// SendFunc triggers the actual magic-link delivery.
type SendFunc func(ctx context.Context, email string) error

// Flow is one visitor's sign-in state machine. Cooldowns are keyed by the
// normalized (email, time) pair, so navigating back to edit the address never
// clears a running cooldown.
type Flow struct {
	mu        sync.Mutex
	send      SendFunc
	now       func() time.Time
	state     State
	email     string // normalized address of the active LinkSent
	display   string // address as the visitor typed it
	cooldowns map[string]time.Time
	countdown *Countdown
	lastErr   error
}

func NewFlow(send SendFunc) *Flow {
	return &Flow{
		send:      send,
		now:       time.Now,
		cooldowns: make(map[string]time.Time),
	}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Email returns the address the active link was sent to, as typed.
func (f *Flow) Email() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.display
}

// Err returns the last surfaced failure, cleared on the next transition.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Submit validates the address and triggers a send. Submitting an address
// whose cooldown is still running re-presents the LinkSent state without a
// network call.
func (f *Flow) Submit(ctx context.Context, emailAddr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !domain.ValidEmail(emailAddr) {
		f.lastErr = ErrInvalidEmail
		f.state = StateIdle
		return ErrInvalidEmail
	}

	normalized := domain.NormalizeEmail(emailAddr)
	if endsAt, ok := f.cooldowns[normalized]; ok && endsAt.After(f.now()) {
		f.enterLinkSent(normalized, emailAddr, secondsUntil(endsAt, f.now()))
		return nil
	}

	f.state = StateSubmitting
	if err := f.send(ctx, emailAddr); err != nil {
		f.state = StateIdle
		f.lastErr = err
		return err
	}

	f.cooldowns[normalized] = f.now().Add(CooldownSeconds * time.Second)
	f.enterLinkSent(normalized, emailAddr, CooldownSeconds)
	return nil
}

// BackToEdit returns the view to the email form. The cooldown keeps running;
// it belongs to the address, not to the displayed view.
func (f *Flow) BackToEdit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.countdown = nil
	f.lastErr = nil
}

// Remaining reports the seconds left on the visible countdown.
func (f *Flow) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countdown == nil {
		return 0
	}
	return f.countdown.Remaining()
}

// CanResend reports whether the resend action is available: only in LinkSent,
// and only once the countdown has reached zero.
func (f *Flow) CanResend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == StateLinkSent && f.countdown != nil && f.countdown.Done()
}

// Resend re-sends the link to the active address and re-arms a fresh
// cooldown.
func (f *Flow) Resend(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateLinkSent || f.countdown == nil || !f.countdown.Done() {
		return ErrCooldownActive
	}

	f.state = StateResending
	if err := f.send(ctx, f.display); err != nil {
		// Stay on the sent view with resend still available.
		f.state = StateLinkSent
		f.lastErr = err
		return err
	}

	f.cooldowns[f.email] = f.now().Add(CooldownSeconds * time.Second)
	f.enterLinkSent(f.email, f.display, CooldownSeconds)
	return nil
}

// Tick advances the visible countdown by one second. The flow store calls
// this once per second for every live flow.
func (f *Flow) Tick() {
	f.mu.Lock()
	c := f.countdown
	f.mu.Unlock()
	if c != nil {
		c.Tick()
	}
}

func (f *Flow) enterLinkSent(normalized, display string, seconds int) {
	f.state = StateLinkSent
	f.email = normalized
	f.display = display
	f.countdown = NewCountdown(seconds)
	f.lastErr = nil
}

func secondsUntil(t, now time.Time) int {
	return int(math.Ceil(t.Sub(now).Seconds()))
}
