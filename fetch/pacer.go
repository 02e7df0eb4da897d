package fetch

import (
	"context"
	"time"
)

// Pacer enforces a fixed delay before each request.
type Pacer struct {
	delay time.Duration
}

// NewPacer creates a pacer. A zero or negative delay disables waiting.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Delay returns the configured delay.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Wait sleeps for the delay, returning early with the context's error if
// ctx is done first.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
