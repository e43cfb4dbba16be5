package actor

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeTimer is a deterministic Timer collaborator for tests: Sleep returns a
// channel the test controls directly rather than a real wall-clock wait.
type fakeTimer struct {
	mu      sync.Mutex
	pending []chan struct{}
}

func (f *fakeTimer) Sleep(ctx context.Context, d Duration) <-chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.pending = append(f.pending, ch)
	f.mu.Unlock()
	return ch
}

// fireOldest closes the oldest still-pending Sleep channel, simulating that
// timer's expiry, and reports whether one existed.
func (f *fakeTimer) fireOldest() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return false
	}
	close(f.pending[0])
	f.pending = f.pending[1:]
	return true
}

func (f *fakeTimer) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// TestTimerReceiveTimeoutFiresOnExpiry covers the basic Set -> expiry ->
// onExpire path (spec.md §4.8).
func TestTimerReceiveTimeoutFiresOnExpiry(t *testing.T) {
	timer := &fakeTimer{}
	fired := make(chan struct{}, 1)
	rt := NewReceiveTimeout(timer, GoSpawn, func() { fired <- struct{}{} })

	rt.Set(100 * time.Millisecond)
	if !timer.fireOldest() {
		t.Fatal("expected one pending Sleep after Set")
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("onExpire was not called after the timer fired")
	}
}

// TestTimerReceiveTimeoutNotifyActivityRearms covers re-arming: each
// NotifyActivity call bumps the generation, so an earlier arm's expiry is
// stale and must not fire onExpire.
func TestTimerReceiveTimeoutNotifyActivityRearms(t *testing.T) {
	timer := &fakeTimer{}
	fireCount := make(chan struct{}, 4)
	rt := NewReceiveTimeout(timer, GoSpawn, func() { fireCount <- struct{}{} })

	rt.Set(100 * time.Millisecond)
	rt.NotifyActivity()

	// Firing the original (now-stale) Set-armed sleep must not invoke
	// onExpire.
	if !timer.fireOldest() {
		t.Fatal("expected the original Set's Sleep to be pending")
	}
	select {
	case <-fireCount:
		t.Fatal("a stale generation's expiry must not call onExpire")
	case <-time.After(50 * time.Millisecond):
	}

	// Firing the NotifyActivity-armed (current generation) sleep does.
	if !timer.fireOldest() {
		t.Fatal("expected the NotifyActivity re-arm's Sleep to be pending")
	}
	select {
	case <-fireCount:
	case <-time.After(time.Second):
		t.Fatal("the current generation's expiry should call onExpire")
	}
}

// TestTimerReceiveTimeoutCancelSuppressesExpiry covers Cancel: once
// cancelled, a still-in-flight timer's expiry must not invoke onExpire.
func TestTimerReceiveTimeoutCancelSuppressesExpiry(t *testing.T) {
	timer := &fakeTimer{}
	fired := make(chan struct{}, 1)
	rt := NewReceiveTimeout(timer, GoSpawn, func() { fired <- struct{}{} })

	rt.Set(100 * time.Millisecond)
	rt.Cancel()

	if !timer.fireOldest() {
		t.Fatal("expected the Set-armed Sleep to still be pending")
	}

	select {
	case <-fired:
		t.Fatal("a cancelled receive-timeout must not fire")
	case <-time.After(50 * time.Millisecond):
	}
}

// TestTimerReceiveTimeoutNotifyActivityNoopWhenNotSet covers the documented
// no-op case: NotifyActivity before any Set does nothing (no Sleep armed).
func TestTimerReceiveTimeoutNotifyActivityNoopWhenNotSet(t *testing.T) {
	timer := &fakeTimer{}
	rt := NewReceiveTimeout(timer, GoSpawn, func() {
		t.Fatal("onExpire must never fire when the timeout was never Set")
	})

	rt.NotifyActivity()
	if timer.pendingCount() != 0 {
		t.Fatalf("expected no Sleep to be armed, got %d pending", timer.pendingCount())
	}
}

func TestNoopReceiveTimeoutIsInert(t *testing.T) {
	rt := NoopReceiveTimeout()
	rt.Set(time.Second)
	rt.NotifyActivity()
	rt.Cancel()
}
