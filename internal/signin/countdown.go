package signin

import "sync"

// Countdown is the visible resend timer. It only moves when Tick is called;
// the flow store's run loop ticks every live flow once per second, so the
// ticking task is owned by the store's lifecycle and stops with it.
type Countdown struct {
	mu        sync.Mutex
	remaining int
}

func NewCountdown(seconds int) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{remaining: seconds}
}

// Tick advances the countdown by one second and returns the remaining time.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Done reports whether the countdown has reached zero.
func (c *Countdown) Done() bool {
	return c.Remaining() == 0
}
