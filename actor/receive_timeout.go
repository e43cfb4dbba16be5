package actor

import (
	"context"
	"sync"
	"time"
)

// ReceiveTimeout is the three-operation contract of spec.md §4.8: arm a
// duration, cancel it, and reset it on activity. A concrete implementation
// is a collaborator; only this contract is part of the core.
type ReceiveTimeout interface {
	Set(d time.Duration)
	Cancel()
	NotifyActivity()
}

// ReceiveTimeoutAware is implemented by behaviors that want to observe the
// synthetic ReceiveTimeout Control message the scheduler enqueues on expiry
// (spec.md §4.8). Behaviors that don't implement it simply have the message
// logged and discarded by the cell.
type ReceiveTimeoutAware interface {
	OnReceiveTimeout(ctx Context)
}

// timerReceiveTimeout is the Timer-backed implementation for hosted
// runtimes: activity re-arms a timer at now+d; expiry calls onExpire, which
// the owning cell wires to enqueue a ReceiveTimeoutMessage on the Control
// channel.
type timerReceiveTimeout struct {
	mu       sync.Mutex
	timer    Timer
	spawn    Spawn
	duration time.Duration
	active   bool
	// generation guards against a timer goroutine armed before a Cancel
	// or a later Set firing after it's stale — the same generational
	// pattern readyqueue.go uses for MailboxIndex.
	generation uint64
	onExpire   func()
}

// NewReceiveTimeout builds a hosted ReceiveTimeout. timer and spawn are
// collaborators (spec.md §6); onExpire is called (from whatever goroutine
// the Spawn collaborator runs on) once the armed duration elapses without
// an intervening NotifyActivity or Cancel.
func NewReceiveTimeout(timer Timer, spawn Spawn, onExpire func()) ReceiveTimeout {
	return &timerReceiveTimeout{timer: timer, spawn: spawn, onExpire: onExpire}
}

func (t *timerReceiveTimeout) Set(d time.Duration) {
	t.mu.Lock()
	t.duration = d
	t.active = true
	t.generation++
	gen := t.generation
	t.mu.Unlock()
	t.arm(gen, d)
}

func (t *timerReceiveTimeout) Cancel() {
	t.mu.Lock()
	t.active = false
	t.generation++
	t.mu.Unlock()
}

// NotifyActivity re-arms the timer at now+d if one is currently set.
// Control traffic must not call this (spec.md §4.6, §9's Open Question:
// "receive_timeout does not reset on Control messages").
func (t *timerReceiveTimeout) NotifyActivity() {
	t.mu.Lock()
	if !t.active {
		t.mu.Unlock()
		return
	}
	t.generation++
	gen := t.generation
	d := t.duration
	t.mu.Unlock()
	t.arm(gen, d)
}

func (t *timerReceiveTimeout) arm(gen uint64, d time.Duration) {
	if t.timer == nil || t.spawn == nil {
		return
	}
	log.TraceS(context.Background(), "receive-timeout armed", "generation", gen, "duration", d)
	done := t.timer.Sleep(context.Background(), int64(d))
	t.spawn.Spawn(func() {
		<-done
		t.mu.Lock()
		fire := t.active && t.generation == gen
		t.mu.Unlock()
		if fire {
			log.TraceS(context.Background(), "receive-timeout fired", "generation", gen)
			t.onExpire()
		}
	})
}

// noopReceiveTimeout is the embedded-build implementation for targets that
// lack a timer source (spec.md §4.8).
type noopReceiveTimeout struct{}

func (noopReceiveTimeout) Set(time.Duration) {}
func (noopReceiveTimeout) Cancel()           {}
func (noopReceiveTimeout) NotifyActivity()   {}

// NoopReceiveTimeout returns the shared no-op ReceiveTimeout.
func NoopReceiveTimeout() ReceiveTimeout { return noopReceiveTimeout{} }
