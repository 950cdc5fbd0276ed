package internal

import (
	"context"
	"sync"
	"time"
)

// TickFunc fetches and applies history for one poll tick
type TickFunc func(ctx context.Context, sessionID string)

// Poller runs a TickFunc at a fixed period for one session at a time.
// Ticks never overlap; a tick still running when Stop is called finishes
// and its result is expected to be discarded by the caller's session guard.
type Poller struct {
	interval time.Duration
	tick     TickFunc

	mu        sync.Mutex
	cancel    context.CancelFunc
	sessionID string
	done      chan struct{}
}

// NewPoller creates a stopped poller
func NewPoller(interval time.Duration, tick TickFunc) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{interval: interval, tick: tick}
}

// Interval returns the tick period
func (p *Poller) Interval() time.Duration { return p.interval }

// Start begins polling sessionID, replacing any session already polled.
// Ticks run with ctx, so cancelling ctx also aborts an in-flight fetch.
func (p *Poller) Start(ctx context.Context, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.sessionID = sessionID
	p.done = done

	LogDebug("Polling session %s every %s", sessionID, p.interval)
	go p.run(ctx, loopCtx, sessionID, done)
}

func (p *Poller) run(ctx, loopCtx context.Context, sessionID string, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			// Stop may have raced the tick.
			if loopCtx.Err() != nil {
				return
			}
			p.tick(ctx, sessionID)
		}
	}
}

// Stop cancels the timer. It does not wait for an in-flight tick.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		LogDebug("Stopped polling session %s", p.sessionID)
		p.cancel()
		p.cancel = nil
	}
	p.sessionID = ""
}

// Running reports the session being polled, if any
func (p *Poller) Running() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessionID, p.cancel != nil
}

// Wait blocks until the most recently started loop has exited
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}
