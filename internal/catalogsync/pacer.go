package catalogsync

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces consecutive outbound calls and inserts a longer pause after every
// PauseEvery calls.
type Pacer struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	pauseEvery int
	pause      time.Duration
	calls      int
}

// NewPacer builds a pacer. A non-positive spacing disables spacing, and a
// non-positive pauseEvery or pause disables the periodic pause.
func NewPacer(spacing time.Duration, pauseEvery int, pause time.Duration) *Pacer {
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	return &Pacer{
		limiter:    rate.NewLimiter(limit, 1),
		pauseEvery: pauseEvery,
		pause:      pause,
	}
}

// Wait blocks until the next call may proceed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pauseEvery > 0 && p.pause > 0 && p.calls > 0 && p.calls%p.pauseEvery == 0 {
		timer := time.NewTimer(p.pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	p.calls++
	return nil
}

// Calls reports how many calls the pacer has let through.
func (p *Pacer) Calls() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
