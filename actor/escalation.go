package actor

import (
	"context"
	"errors"
	"sync"
)

// EscalationStageKind distinguishes a fresh failure from one that has
// already hopped at least one level up the guardian tree (spec.md §3).
type EscalationStageKind uint8

const (
	InitialStage EscalationStageKind = iota
	EscalatedStage
)

// EscalationStage tracks how many parent hops a failure has travelled.
// Hops increments monotonically on each hop (spec.md §3).
type EscalationStage struct {
	Kind EscalationStageKind
	Hops uint32
}

// FailureMetadata carries the closed telemetry-tag vocabulary
// (SPEC_FULL.md §12.6) attached to a failure as it escalates.
type FailureMetadata struct {
	Tags []TelemetryTag
}

// FailureInfo is the value threaded through the escalation walk (spec.md
// §3, §4.7).
type FailureInfo struct {
	Actor    ActorId
	Path     ActorPath
	Failure  BehaviorFailure
	Stage    EscalationStage
	Metadata FailureMetadata
}

func (f FailureInfo) snapshot() FailureSnapshot {
	return FailureSnapshot{
		Path:        f.Path,
		Actor:       f.Actor,
		Description: f.Failure.Description,
		Stage:       f.Stage,
		tags:        f.Metadata.Tags,
	}
}

// escalationGraph is the shared, system-wide escalation machinery
// (component I, spec.md §4.7): it walks a failing cell's ancestor chain,
// consulting each hop's ChildRecord.Supervisor, applying the first
// non-Escalate directive it gets back, and publishing a RootEscalated
// FailureEvent to every installed sink once the path is exhausted.
type escalationGraph struct {
	mu        sync.Mutex
	listeners []*listenerEntry
	telemetry []FailureTelemetry
}

// listenerEntry gives each subscription a unique identity so Unsubscribe can
// remove exactly its own listener. Comparing the FailureEventListener values
// themselves would not work: a FailureEventListenerFunc is not comparable.
type listenerEntry struct {
	l FailureEventListener
}

func newEscalationGraph() *escalationGraph {
	return &escalationGraph{}
}

func (g *escalationGraph) subscribe(l FailureEventListener) Subscription {
	entry := &listenerEntry{l: l}
	g.mu.Lock()
	g.listeners = append(g.listeners, entry)
	g.mu.Unlock()
	return subscriptionFunc(func() { g.unsubscribe(entry) })
}

func (g *escalationGraph) unsubscribe(entry *listenerEntry) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, existing := range g.listeners {
		if existing == entry {
			g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
			return
		}
	}
}

func (g *escalationGraph) addTelemetry(t FailureTelemetry) {
	g.mu.Lock()
	g.telemetry = append(g.telemetry, t)
	g.mu.Unlock()
}

type subscriptionFunc func()

func (f subscriptionFunc) Unsubscribe() { f() }

// publishRoot fans the event out to every sink. Sinks must not fail: a
// panicking sink is recovered and logged, never allowed to break the
// fan-out for the remaining sinks (spec.md §4.7).
func (g *escalationGraph) publishRoot(info FailureInfo) {
	g.mu.Lock()
	listeners := append([]*listenerEntry(nil), g.listeners...)
	telemetry := append([]FailureTelemetry(nil), g.telemetry...)
	g.mu.Unlock()

	ev := FailureEvent{Info: info}
	for _, entry := range listeners {
		safeNotify(entry.l, ev)
	}
	snap := info.snapshot()
	for _, t := range telemetry {
		safeTelemetry(t, snap)
	}

	log.ErrorS(context.Background(), "actor failure escalated to root", nil,
		"actor", info.Actor, "hops", info.Stage.Hops, "description", info.Failure.Description)
}

func safeNotify(l FailureEventListener, ev FailureEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.WarnS(context.Background(), "escalation sink panicked", nil, "recovered", r)
		}
	}()
	l.Notify(ev)
}

func safeTelemetry(t FailureTelemetry, snap FailureSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			log.WarnS(context.Background(), "failure telemetry sink panicked", nil, "recovered", r)
		}
	}()
	t.OnFailure(snap)
}

// propagate implements the escalation walk described above cellCore/
// escalationGraph. origin is the cell whose behavior just failed.
func (g *escalationGraph) propagate(origin *cellCore, failure BehaviorFailure) bool {
	info := FailureInfo{
		Actor:   origin.id,
		Path:    origin.path,
		Failure: failure,
		Stage:   EscalationStage{Kind: InitialStage},
	}

	cur := origin
	hops := uint32(0)
	for {
		parent := cur.parent
		if parent == nil {
			info.Path = cur.path
			info.Stage = EscalationStage{Kind: EscalatedStage, Hops: hops}
			g.publishRoot(info)
			// Default root handling: log and continue (spec.md §9).
			return cur.system.rootHandle.applyDirective(Resume, failure)
		}

		rec := parent.recordFor(cur.id)
		if rec == nil {
			return false
		}

		directive := rec.Supervisor.Decide(failure)
		log.DebugS(context.Background(), "supervisor decided directive",
			"actor", cur.id, "supervisor_of", parent.id, "directive", directive.Kind, "hops", hops)
		if directive.Kind != EscalateDirective {
			if cur == origin {
				return rec.handle.applyDirective(directive, failure)
			}
			// The directive targets an ancestor that may be mid-invoke
			// on another worker; its cell is exclusively owned by that
			// worker, so deliver the directive as Control traffic
			// through its mailbox instead of touching the cell here.
			deliverDirective(cur, directive, failure)
			return true
		}

		hops++
		cur = parent
	}
}

func deliverDirective(target *cellCore, directive SupervisorDirective, failure BehaviorFailure) {
	switch directive.Kind {
	case RestartDirective:
		cause, _ := failure.Cause.(error)
		if cause == nil {
			cause = errors.New(failure.Description)
		}
		_ = target.mailbox.TrySend(NewControlEnvelope(RestartMessage{Cause: cause}, 0))
	case StopDirective:
		_ = target.mailbox.TrySend(NewControlEnvelope(StopMessage{}, 0))
	case ResumeDirective:
		_ = target.mailbox.TrySend(NewControlEnvelope(ResumeMessage{}, 0))
	}
}
