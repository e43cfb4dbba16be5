package actor

import (
	"context"
	"time"
)

// Spawn is the fire-and-forget task submission contract the runtime relies
// on to run ready-queue workers and similar background loops (spec.md §6).
// A hosted binding typically wraps goroutine creation; an embedded binding
// wraps a cooperative step queue. Outside Spawn implementations, this
// package starts goroutines directly only in GoTimer and in
// System.Shutdown's wait for the worker pool.
type Spawn interface {
	Spawn(fn func())
}

// SpawnFunc adapts a plain function to Spawn.
type SpawnFunc func(fn func())

func (f SpawnFunc) Spawn(fn func()) { f(fn) }

// GoSpawn is the straightforward hosted-runtime Spawn binding: every Spawn
// call starts a new goroutine.
var GoSpawn Spawn = SpawnFunc(func(fn func()) { go fn() })

// Timer is the sleep contract the receive-timeout scheduler and Suspended
// After(d) resumers consume (spec.md §6). Sleep returns a channel that is
// closed once d has elapsed or ctx is done, whichever comes first.
type Timer interface {
	Sleep(ctx context.Context, d Duration) <-chan struct{}
}

// Duration is a type alias seam so collaborator contracts in this package
// read in the vocabulary of spec.md rather than importing time.Duration
// into every signature; concrete Timer implementations bind it to
// time.Duration underneath.
type Duration = int64 // nanoseconds

// TimerFunc adapts a plain function to Timer.
type TimerFunc func(ctx context.Context, d Duration) <-chan struct{}

func (f TimerFunc) Sleep(ctx context.Context, d Duration) <-chan struct{} { return f(ctx, d) }

// GoTimer is the hosted-runtime Timer binding: Sleep waits on the runtime
// clock, resolving early if ctx is done first.
var GoTimer Timer = TimerFunc(func(ctx context.Context, d Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		t := time.NewTimer(time.Duration(d))
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
		}
	}()
	return done
})

// MetricsEventKind enumerates the closed set of events a MetricsSink may
// observe (spec.md §4.3).
type MetricsEventKind uint8

const (
	ActorRegistered MetricsEventKind = iota
	ActorDeregistered
	MailboxEnqueued
	MailboxDequeued
	TelemetryInvoked
	TelemetryLatencyNanos
)

// MetricsEvent is the value passed to MetricsSink.Record. LatencyNanos is
// only meaningful when Kind is TelemetryLatencyNanos.
type MetricsEvent struct {
	Kind         MetricsEventKind
	Actor        ActorId
	LatencyNanos int64
}

// MetricsSink receives MetricsEvents. Implementations must be wait-free
// (spec.md §6) since Record is called from hot paths (every enqueue/dequeue)
// potentially while holding the mailbox lock's critical section just ended.
type MetricsSink interface {
	Record(MetricsEvent)
}

// FailureSnapshot is the borrowed view of a failure handed to sinks and to
// FailureTelemetry (spec.md §4.7). Tags gives a telemetry collaborator a
// small closed vocabulary to key off of instead of parsing Description
// (SPEC_FULL.md §12.6).
type FailureSnapshot struct {
	Path        ActorPath
	Actor       ActorId
	Description string
	Stage       EscalationStage
	tags        []TelemetryTag
}

func (s FailureSnapshot) Tags() []TelemetryTag { return append([]TelemetryTag(nil), s.tags...) }

// TelemetryTag is a closed vocabulary of attributes a FailureSnapshot can
// carry for a telemetry collaborator to key off of.
type TelemetryTag struct {
	Key   string
	Value string
}

// FailureTelemetry is invoked on the escalation path after a failure reaches
// root (spec.md §6).
type FailureTelemetry interface {
	OnFailure(FailureSnapshot)
}

// FailureEvent is published to every installed escalation sink once a
// failure's path becomes empty (spec.md §4.7).
type FailureEvent struct {
	Info FailureInfo
}

// FailureEventListener receives RootEscalated events via Notify.
type FailureEventListener interface {
	Notify(FailureEvent)
}

// FailureEventListenerFunc adapts a plain function to FailureEventListener.
type FailureEventListenerFunc func(FailureEvent)

func (f FailureEventListenerFunc) Notify(ev FailureEvent) { f(ev) }

// Subscription is released to cancel a FailureEventStream subscription.
type Subscription interface {
	Unsubscribe()
}

// FailureEventStream is the collaborator contract for root-escalation
// fan-out subscription management (spec.md §6).
type FailureEventStream interface {
	Subscribe(FailureEventListener) Subscription
}
