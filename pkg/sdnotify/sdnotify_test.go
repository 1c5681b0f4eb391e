package sdnotify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) send(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func TestNotifierMessages(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	n := &Notifier{send: rec.send}
	_, _ = n.Ready()
	_, _ = n.Status("3 recipients")
	_, _ = n.Stopping()

	want := []string{"READY=1", "STATUS=3 recipients", "STOPPING=1"}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %v", rec.states)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Fatalf("states[%d] = %q, want %q", i, rec.states[i], want[i])
		}
	}
}

func TestWatchdogLoopPingsUntilDone(t *testing.T) {
	t.Parallel()
	rec := &recorder{}
	n := &Notifier{send: rec.send}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.watchdogLoop(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchdogLoop error: %v", err)
	}
	if rec.count() < 2 {
		t.Fatalf("expected at least two pings, got %d", rec.count())
	}
}

func TestWatchdogDisabledReturns(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	n := &Notifier{send: (&recorder{}).send}
	if err := n.Watchdog(context.Background()); err != nil {
		t.Fatalf("Watchdog error: %v", err)
	}
}

func TestWatchdogMalformedEnvIsNotFatal(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "not-a-number")
	n := &Notifier{send: (&recorder{}).send}
	if err := n.Watchdog(context.Background()); err != nil {
		t.Fatalf("Watchdog error: %v", err)
	}
}

func TestWatchdogLoopSurvivesFailedPings(t *testing.T) {
	t.Parallel()
	var (
		mu    sync.Mutex
		calls int
	)
	n := &Notifier{send: func(bool, string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return false, errors.New("sendto: connection refused")
	}}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.watchdogLoop(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		c := calls
		mu.Unlock()
		if c >= 3 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case err := <-done:
		t.Fatalf("watchdogLoop returned early: %v", err)
	default:
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchdogLoop error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls < 3 {
		t.Fatalf("expected pings to continue after failures, got %d", calls)
	}
}
