package internal

import (
	"context"
	"sync"
	"testing"
	"time"
)

type tickRecorder struct {
	mu    sync.Mutex
	ticks []string
}

func (r *tickRecorder) tick(_ context.Context, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ticks = append(r.ticks, sessionID)
}

func (r *tickRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ticks...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestPoller_TicksUntilStopped(t *testing.T) {
	rec := &tickRecorder{}
	p := NewPoller(5*time.Millisecond, rec.tick)

	p.Start(context.Background(), "abc")
	waitFor(t, func() bool { return len(rec.snapshot()) >= 3 })

	p.Stop()
	p.Wait()
	stopped := len(rec.snapshot())
	time.Sleep(30 * time.Millisecond)
	if n := len(rec.snapshot()); n != stopped {
		t.Errorf("ticks after Stop: had %d, now %d", stopped, n)
	}
	if _, running := p.Running(); running {
		t.Error("Running() should be false after Stop")
	}
}

func TestPoller_StartReplacesSession(t *testing.T) {
	rec := &tickRecorder{}
	p := NewPoller(5*time.Millisecond, rec.tick)
	defer p.Stop()

	p.Start(context.Background(), "first")
	waitFor(t, func() bool { return len(rec.snapshot()) >= 1 })

	p.Start(context.Background(), "second")
	if id, running := p.Running(); !running || id != "second" {
		t.Fatalf("Running() = %q, %v; want second, true", id, running)
	}

	// Give any tick already past the cancel check time to land.
	time.Sleep(10 * time.Millisecond)
	mark := len(rec.snapshot())
	waitFor(t, func() bool { return len(rec.snapshot()) >= mark+3 })
	for _, id := range rec.snapshot()[mark:] {
		if id != "second" {
			t.Errorf("tick for %q after switching sessions", id)
		}
	}
}

func TestPoller_ParentCancelStopsLoop(t *testing.T) {
	rec := &tickRecorder{}
	p := NewPoller(5*time.Millisecond, rec.tick)
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx, "abc")
	cancel()

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after context cancel")
	}
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(0, func(context.Context, string) {})
	if p.Interval() != DefaultPollInterval {
		t.Errorf("Interval() = %v, want %v", p.Interval(), DefaultPollInterval)
	}
	p.Stop()
	p.Wait()
}
