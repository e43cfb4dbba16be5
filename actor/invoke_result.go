package actor

import (
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ActorState is the closed lifecycle state set of spec.md §3. Stopped is
// terminal.
type ActorState uint8

const (
	Running ActorState = iota
	SuspendedState
	Stopping
	Stopped
)

func (s ActorState) String() string {
	switch s {
	case Running:
		return "running"
	case SuspendedState:
		return "suspended"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// BehaviorFailure is the opaque, polymorphic value a failed behavior
// invocation produces (spec.md §7: "opaque polymorphic value carrying
// description; routed through supervision — never returned to the caller").
// Cause carries the type-erased descriptor (the recovered panic value or
// returned error); Description is always populated for logging/telemetry
// even when Cause is nil.
type BehaviorFailure struct {
	Cause       any
	Description string
}

func (f BehaviorFailure) String() string {
	return f.Description
}

// NewBehaviorFailure builds a BehaviorFailure from an error, the common
// case for a Behavior.Receive that returns an error instead of panicking.
func NewBehaviorFailure(err error) BehaviorFailure {
	return BehaviorFailure{Cause: err, Description: err.Error()}
}

// RecoveredBehaviorFailure builds a BehaviorFailure from a recovered panic
// value (cell.go's invoke recover path).
func RecoveredBehaviorFailure(recovered any) BehaviorFailure {
	return BehaviorFailure{Cause: recovered, Description: fmt.Sprintf("%v", recovered)}
}

// ResumeConditionKind enumerates the ways a Suspended cell can become
// runnable again (spec.md §4.5).
type ResumeConditionKind uint8

const (
	// ExternalSignal resumes once SignalKey is notified via the
	// collaborator-provided pending-entry mechanism.
	ExternalSignal ResumeConditionKind = iota
	// After resumes once Delay has elapsed, via the Timer collaborator.
	After
	// WhenCapacityAvailable resumes once a back-pressured downstream
	// actor reports spare capacity.
	WhenCapacityAvailable
)

// ResumeCondition tells the worker how to re-arm a Suspended cell.
type ResumeCondition struct {
	Kind       ResumeConditionKind
	SignalKey  string
	Delay      time.Duration
	Downstream ActorId
}

func ResumeOnSignal(key string) ResumeCondition {
	return ResumeCondition{Kind: ExternalSignal, SignalKey: key}
}

func ResumeAfter(d time.Duration) ResumeCondition {
	return ResumeCondition{Kind: After, Delay: d}
}

func ResumeOnCapacity(downstream ActorId) ResumeCondition {
	return ResumeCondition{Kind: WhenCapacityAvailable, Downstream: downstream}
}

// InvokeResultKind enumerates the closed variant set of spec.md §3's
// InvokeResult.
type InvokeResultKind uint8

const (
	Completed InvokeResultKind = iota
	Yielded
	Suspended
	Failed
	StoppedResult
)

// InvokeResult is what ActorCell.invoke returns to the ready-queue worker
// (spec.md §3, §4.5). Only the fields relevant to Kind are meaningful; the
// worker switches on Kind before reading them.
type InvokeResult struct {
	Kind InvokeResultKind

	// Completed
	ReadyHint bool

	// Suspended
	SuspendReason string
	ResumeOn      ResumeCondition

	// Failed
	Failure    BehaviorFailure
	RetryAfter fn.Option[time.Duration]
}

func CompletedResult(readyHint bool) InvokeResult {
	return InvokeResult{Kind: Completed, ReadyHint: readyHint}
}

func YieldedResult() InvokeResult {
	return InvokeResult{Kind: Yielded}
}

func SuspendedResult(reason string, resumeOn ResumeCondition) InvokeResult {
	return InvokeResult{Kind: Suspended, SuspendReason: reason, ResumeOn: resumeOn}
}

func FailedResult(failure BehaviorFailure, retryAfter fn.Option[time.Duration]) InvokeResult {
	return InvokeResult{Kind: Failed, Failure: failure, RetryAfter: retryAfter}
}

func StoppedInvokeResult() InvokeResult {
	return InvokeResult{Kind: StoppedResult}
}
