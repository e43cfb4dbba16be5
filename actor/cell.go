package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// BehaviorDirectiveKind is the closed set of ways a successful Receive can
// ask the cell to continue (spec.md §4.6).
type BehaviorDirectiveKind uint8

const (
	Same BehaviorDirectiveKind = iota
	Become
)

// BehaviorDirective is what Behavior.Receive returns alongside any reply
// value and error.
type BehaviorDirective[M, R any] struct {
	Kind BehaviorDirectiveKind
	Next Behavior[M, R]
}

// SameBehavior keeps the current behavior for the next message.
func SameBehavior[M, R any]() BehaviorDirective[M, R] {
	return BehaviorDirective[M, R]{Kind: Same}
}

// BecomeBehavior switches to next for subsequent messages.
func BecomeBehavior[M, R any](next Behavior[M, R]) BehaviorDirective[M, R] {
	return BehaviorDirective[M, R]{Kind: Become, Next: next}
}

// Behavior is the function `(context, message) -> next behavior | failure`
// of the GLOSSARY, expressed as an interface so a behavior can carry its
// own state between invocations.
type Behavior[M, R any] interface {
	Receive(ctx Context, msg M) (BehaviorDirective[M, R], R, error)
	// PostStop is invoked once, when the cell transitions to Stopped
	// (graceful stop) or just before a Restart discards this instance
	// (spec.md §4.6's "Signal lifecycle").
	PostStop(ctx Context)
}

// BaseBehavior supplies a no-op PostStop so concrete behaviors only need to
// implement Receive, matching the BaseMessage embedding convention.
type BaseBehavior struct{}

func (BaseBehavior) PostStop(Context) {}

// FunctionBehavior adapts a plain function to Behavior, grounded on the
// teacher's NewFunctionBehavior use in ActorSystem's dead-letter actor
// construction (internal/baselib/actor/system.go).
type FunctionBehavior[M, R any] struct {
	BaseBehavior
	ReceiveFunc func(ctx Context, msg M) (BehaviorDirective[M, R], R, error)
}

func (f FunctionBehavior[M, R]) Receive(ctx Context, msg M) (BehaviorDirective[M, R], R, error) {
	return f.ReceiveFunc(ctx, msg)
}

// NewFunctionBehavior builds a Behavior from fn. The cell applies whatever
// directive fn returns, Become included.
func NewFunctionBehavior[M, R any](fn func(ctx Context, msg M) (BehaviorDirective[M, R], R, error)) Behavior[M, R] {
	return FunctionBehavior[M, R]{ReceiveFunc: fn}
}

// messagePayload is what actually sits inside a Regular-channel
// PriorityEnvelope's Payload field: the user message plus, for an Ask, the
// promise to complete and the caller's own context (merged into the
// invocation context via mergeContexts at invocation time).
type messagePayload[M, R any] struct {
	message   M
	promise   *Promise[R]
	callerCtx context.Context
}

// ActorCell is the per-actor state machine of spec.md §4.6 (component G).
// It is exclusively owned by the scheduler: external code only ever holds
// an ActorRef that forwards through the mailbox (spec.md §3's ownership
// invariant).
type ActorCell[M, R any] struct {
	core *cellCore

	behavior Behavior[M, R]
	producer Producer[M, R]
	opts     Props[M, R]

	state ActorState

	receiveTimeout ReceiveTimeout

	// stoppingChildrenKey is the ExternalSignal key this cell suspends
	// on while waiting for all children to report Terminated during a
	// graceful stop (spec.md §4.6).
	stoppingChildrenKey string
}

func newActorCell[M, R any](parent *cellCore, props Props[M, R], naming ChildNaming) (*ActorCell[M, R], *actorRefImpl[M, R], error) {
	name, err := parent.nextChildName(naming)
	if err != nil {
		return nil, nil, err
	}

	id := ActorId(parent.system.extensions.NextID())
	path := parent.path.Append(id)

	// Props left unset fall back to the runtime facade's configured
	// defaults (spec.md §6): mailbox.capacity/overflow/reserve_for_system
	// and receive_timeout.default.
	mailboxOpts := props.Mailbox
	if mailboxOpts.Capacity == 0 {
		mailboxOpts = parent.system.config.MailboxDefaults
	}
	receiveTimeout := props.ReceiveTimeout
	if receiveTimeout.IsNone() {
		receiveTimeout = parent.system.config.ReceiveTimeoutDefault
	}

	mailbox := NewMailboxHandle(id, mailboxOpts, parent.system.deadLetterHook())
	mailbox.InstallMetricsSink(parent.system.metrics)

	core := newCellCore(parent, id, path, parent.system, mailbox)

	cell := &ActorCell[M, R]{
		core:     core,
		producer: props.Producer,
		opts:     props,
		behavior: props.Producer(),
		state:    Running,
	}

	if receiveTimeout.IsSome() {
		cell.receiveTimeout = NewReceiveTimeout(parent.system.timer, parent.system.spawn, cell.onReceiveTimeoutExpire)
		cell.receiveTimeout.Set(receiveTimeout.UnwrapOr(0))
	} else {
		cell.receiveTimeout = NoopReceiveTimeout()
	}

	index := parent.rq.Register(mailbox, cell)
	core.index = index

	ref := &actorRefImpl[M, R]{cell: cell}

	rec := &ChildRecord{
		ID:         id,
		Name:       name,
		Path:       path,
		Supervisor: props.Supervisor,
		Ref:        ref,
		handle:     cell,
	}
	parent.registerChild(rec)
	parent.system.register(core)

	log.DebugS(context.Background(), "actor spawned",
		"actor", id, "path", path, "name", name, "parent", parent.id)

	if parent.system.metrics != nil {
		parent.system.metrics.Record(MetricsEvent{Kind: ActorRegistered, Actor: id})
	}

	return cell, ref, nil
}

func (c *ActorCell[M, R]) getState() ActorState {
	c.core.mu.Lock()
	defer c.core.mu.Unlock()
	return c.state
}

func (c *ActorCell[M, R]) setState(s ActorState) {
	c.core.mu.Lock()
	c.state = s
	c.core.mu.Unlock()
}

// invoke implements spec.md §4.6's per-cell algorithm.
func (c *ActorCell[M, R]) invoke(quota int) InvokeResult {
	if c.getState() == Stopped {
		return StoppedInvokeResult()
	}
	if c.getState() == Stopping && c.core.childCount() == 0 {
		c.finishStop()
		return StoppedInvokeResult()
	}

	processed := 0
	handledUser := false

	for processed < quota {
		env, ok, err := c.core.mailbox.TryDequeue()
		if err != nil {
			return StoppedInvokeResult()
		}
		if !ok {
			break
		}
		processed++

		if failed, done := c.handleEnvelope(env, &handledUser); done {
			if failed != nil {
				return *failed
			}
			return StoppedInvokeResult()
		}
	}

	if handledUser {
		c.receiveTimeout.NotifyActivity()
	}

	if c.getState() == Stopped {
		return StoppedInvokeResult()
	}
	if c.getState() == SuspendedState && c.core.mailbox.Len() == 0 {
		return CompletedResult(false)
	}
	if processed == quota && c.core.mailbox.Len() > 0 {
		return YieldedResult()
	}
	return CompletedResult(c.core.mailbox.Len() > 0)
}

// handleEnvelope processes one envelope. done is true when invoke must
// return immediately; failed is non-nil in that case when invoke must return
// that result (Failed, or Suspended while a stop awaits its children) rather
// than Stopped.
func (c *ActorCell[M, R]) handleEnvelope(env PriorityEnvelope, handledUser *bool) (failed *InvokeResult, done bool) {
	if env.Channel == Control {
		switch msg := env.Payload.(type) {
		case StopMessage:
			if c.beginStop() {
				result := SuspendedResult("awaiting children stop", ResumeOnSignal(c.stoppingChildrenKey))
				return &result, true
			}
			return nil, true
		case RestartMessage:
			c.performRestart(msg.Cause)
			return nil, false
		case SuspendMessage:
			c.setState(SuspendedState)
			return nil, false
		case ResumeMessage:
			if c.getState() == SuspendedState {
				c.setState(Running)
			}
			return nil, false
		case WatchMessage:
			c.core.mu.Lock()
			c.core.watchedBy[msg.Watcher] = true
			c.core.mu.Unlock()
			return nil, false
		case UnwatchMessage:
			c.core.mu.Lock()
			delete(c.core.watchedBy, msg.Watcher)
			c.core.mu.Unlock()
			return nil, false
		case TerminatedMessage:
			c.handleChildTerminated(msg.Who)
			return nil, false
		case ReceiveTimeoutMessage:
			log.TraceS(context.Background(), "receive timeout fired", "actor", c.core.id)
			if aware, ok := c.behavior.(ReceiveTimeoutAware); ok {
				aware.OnReceiveTimeout(c.newInvocationContext(nil, nil))
			}
			return nil, false
		default:
			return nil, false
		}
	}

	if st := c.getState(); st == SuspendedState || st == Stopping {
		// Regular traffic is not processed while suspended or stopping;
		// since TryDequeue already removed it, requeue at the front is
		// not supported by the simple FIFO bucket, so the conservative
		// choice is to dead-letter it rather than silently drop it.
		if dlo := c.core.system.deadLetterHook(); dlo != nil {
			dlo(env)
		}
		return nil, false
	}

	payload, ok := env.Payload.(messagePayload[M, R])
	if !ok {
		return nil, false
	}
	*handledUser = true
	return c.invokeBehavior(payload, env.Metadata)
}

// invokeBehavior calls the user behavior, recovering a panic into a
// BehaviorFailure exactly as a returned error would be (spec.md §10.2/§7).
func (c *ActorCell[M, R]) invokeBehavior(payload messagePayload[M, R], md *MessageMetadata) (failed *InvokeResult, done bool) {
	ctx := c.newInvocationContext(payload.callerCtx, md)

	var directive BehaviorDirective[M, R]
	var reply R
	var recErr error
	var panicked *BehaviorFailure

	func() {
		defer func() {
			if r := recover(); r != nil {
				f := RecoveredBehaviorFailure(r)
				panicked = &f
				recErr = fmt.Errorf("panic in actor receive: %v", r)
			}
		}()
		directive, reply, recErr = c.behavior.Receive(ctx, payload.message)
	}()

	if recErr != nil {
		failure := NewBehaviorFailure(recErr)
		if panicked != nil {
			failure = *panicked
		}
		if payload.promise != nil {
			payload.promise.Complete(fn.Err[R](recErr))
		}
		result := FailedResult(failure, fn.None[time.Duration]())
		return &result, true
	}

	if payload.promise != nil {
		payload.promise.Complete(fn.Ok(reply))
	}

	if directive.Kind == Become {
		c.behavior = directive.Next
	}
	return nil, false
}

func (c *ActorCell[M, R]) newInvocationContext(callerCtx context.Context, md *MessageMetadata) Context {
	base := context.Background()
	if callerCtx != nil {
		merged, _ := mergeContexts(base, callerCtx)
		base = merged
	}
	return &baseContext{Context: base, self: c.core.id, path: c.core.path, cell: c.core, metadata: md}
}

// beginStop transitions to Stopping and asks every child to stop. It
// reports whether the cell must suspend awaiting their Terminated
// notifications (true, children existed) or has already finished (false,
// no children).
//
// Each child is asked to stop by sending it a real StopMessage control
// envelope through its own mailbox (the same path ActorRef.Stop() uses),
// never by calling its cellHandle directly: a child cell is exclusively
// owned by whichever worker currently holds its MailboxIndex (spec.md §3),
// and calling applyDirective on it from the parent's own invoke() would
// mutate that child's behavior/state from a second goroutine.
func (c *ActorCell[M, R]) beginStop() bool {
	c.setState(Stopping)
	c.stoppingChildrenKey = fmt.Sprintf("stop-children-%d", uint64(c.core.id))

	c.core.mu.Lock()
	children := make([]*ChildRecord, 0, len(c.core.children))
	for _, rec := range c.core.children {
		children = append(children, rec)
	}
	c.core.mu.Unlock()

	if len(children) == 0 {
		c.finishStop()
		return false
	}

	for _, rec := range children {
		rec.Ref.Stop()
	}
	return true
}

func (c *ActorCell[M, R]) handleChildTerminated(who ActorId) {
	c.core.removeChild(who)

	if c.getState() != Stopping {
		return
	}
	if c.core.childCount() == 0 && c.core.worker != nil {
		c.core.worker.ResumeSignal(c.stoppingChildrenKey)
	}
}

func (c *ActorCell[M, R]) finishStop() {
	ctx := c.newInvocationContext(nil, nil)
	c.behavior.PostStop(ctx)
	c.setState(Stopped)

	c.core.mu.Lock()
	watchers := make([]ActorId, 0, len(c.core.watchedBy))
	for w := range c.core.watchedBy {
		watchers = append(watchers, w)
	}
	c.core.mu.Unlock()

	for _, w := range watchers {
		if target := c.core.system.lookup(w); target != nil {
			_ = target.mailbox.TrySend(NewControlEnvelope(TerminatedMessage{Who: c.core.id}, 0))
		}
	}

	if c.core.parent != nil {
		_ = c.core.parent.mailbox.TrySend(NewControlEnvelope(TerminatedMessage{Who: c.core.id}, 0))
	}

	if c.core.system.metrics != nil {
		c.core.system.metrics.Record(MetricsEvent{Kind: ActorDeregistered, Actor: c.core.id})
	}

	c.core.system.unregister(c.core.id)
}

// performRestart tears down the current behavior instance, discards the
// stash, constructs a fresh instance, and reinitializes state (spec.md
// §4.6). Already-Stopped children are left as-is per restart policy
// (children are not automatically respawned).
func (c *ActorCell[M, R]) performRestart(cause error) {
	ctx := c.newInvocationContext(nil, nil)
	c.behavior.PostStop(ctx)
	c.core.mailbox.Drain()
	c.behavior = c.producer()
	c.setState(Running)
}

// teardown implements cellHandle.teardown, called once by the worker after
// invoke() reports Stopped.
func (c *ActorCell[M, R]) teardown() {
	c.receiveTimeout.Cancel()
	if c.getState() != Stopped {
		c.finishStop()
	}
}

// escalate implements cellHandle.escalate.
func (c *ActorCell[M, R]) escalate(failure BehaviorFailure) bool {
	return c.core.system.escalation.propagate(c.core, failure)
}

// applyDirective implements cellHandle.applyDirective.
func (c *ActorCell[M, R]) applyDirective(directive SupervisorDirective, failure BehaviorFailure) bool {
	switch directive.Kind {
	case RestartDirective:
		c.performRestart(nil)
		return true
	case ResumeDirective:
		if c.getState() == SuspendedState {
			c.setState(Running)
		}
		return true
	case StopDirective:
		c.beginStop()
		return c.getState() != Stopped
	default:
		return true
	}
}

func (c *ActorCell[M, R]) onReceiveTimeoutExpire() {
	_ = c.core.mailbox.TrySend(NewControlEnvelope(ReceiveTimeoutMessage{}, 0))
}

var _ cellHandle = (*ActorCell[int, int])(nil)
