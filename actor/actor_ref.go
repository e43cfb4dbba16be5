package actor

import (
	"context"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// TellOption customizes a single Tell call's envelope, mirroring spec.md
// §6's "tell(msg, priority=0, channel=Regular)".
type TellOption func(*tellConfig)

type tellConfig struct {
	priority    int8
	prioritySet bool
	channel     Channel
	sender      fn.Option[ActorId]
}

// WithPriority overrides the default priority (0) for one Tell call.
func WithPriority(p int8) TellOption {
	return func(c *tellConfig) {
		c.priority = p
		c.prioritySet = true
	}
}

// WithChannel overrides the default channel (Regular) for one Tell call.
// User code should rarely need this; it exists for collaborators bridging
// external lifecycle events onto the Control channel.
func WithChannel(ch Channel) TellOption {
	return func(c *tellConfig) { c.channel = ch }
}

// WithSender attaches sender metadata so the receiver's Context can reply
// without the caller passing its own ref in the message body.
func WithSender(id ActorId) TellOption {
	return func(c *tellConfig) { c.sender = fn.Some(id) }
}

// BaseActorRef is the identity- and lifecycle-level view of an actor
// reference, independent of its message type (spec.md §6).
type BaseActorRef interface {
	ID() ActorId
	Path() ActorPath
	Stop()
	Watch(watcher BaseActorRef)
	Unwatch(watcher BaseActorRef)
}

// TellOnlyRef adds fire-and-forget delivery to BaseActorRef, for
// collaborators (like actorutil.TellAll) that only ever need to send, never
// ask.
type TellOnlyRef[M any] interface {
	BaseActorRef
	Tell(msg M, opts ...TellOption) error
}

// ActorRef is the full actor reference of spec.md §6: tell, ask,
// ask_with_timeout, stop, watch, unwatch.
type ActorRef[M, R any] interface {
	TellOnlyRef[M]
	Ask(ctx context.Context, msg M) (R, error)
	AskWithTimeout(msg M, d time.Duration) (R, error)
}

// actorRefImpl is the concrete ActorRef returned by Spawn/SpawnChild,
// wrapping the generic cell it addresses.
type actorRefImpl[M, R any] struct {
	cell *ActorCell[M, R]
}

func (r *actorRefImpl[M, R]) ID() ActorId     { return r.cell.core.id }
func (r *actorRefImpl[M, R]) Path() ActorPath { return r.cell.core.path }

func (r *actorRefImpl[M, R]) Stop() {
	_ = r.cell.core.mailbox.TrySend(NewControlEnvelope(StopMessage{}, 0))
}

func (r *actorRefImpl[M, R]) Watch(watcher BaseActorRef) {
	r.cell.core.mu.Lock()
	r.cell.core.watchedBy[watcher.ID()] = true
	r.cell.core.mu.Unlock()
}

func (r *actorRefImpl[M, R]) Unwatch(watcher BaseActorRef) {
	r.cell.core.mu.Lock()
	delete(r.cell.core.watchedBy, watcher.ID())
	r.cell.core.mu.Unlock()
}

// priorityFor resolves a payload's priority: an explicit TellOption wins,
// then PriorityMessage.Priority() if the payload implements it, else 0.
func priorityFor[M any](msg M, cfg tellConfig, explicit bool) int8 {
	if explicit {
		return cfg.priority
	}
	if pm, ok := any(msg).(PriorityMessage); ok {
		return pm.Priority()
	}
	return cfg.priority
}

func (r *actorRefImpl[M, R]) Tell(msg M, opts ...TellOption) error {
	cfg := tellConfig{channel: Regular}
	for _, opt := range opts {
		opt(&cfg)
	}

	env := PriorityEnvelope{
		Priority: priorityFor(msg, cfg, cfg.prioritySet),
		Channel:  cfg.channel,
		Payload:  messagePayload[M, R]{message: msg},
	}
	if cfg.sender.IsSome() {
		env.Metadata = &MessageMetadata{Sender: cfg.sender.UnwrapOr(0), HasSender: true}
	}
	return r.cell.core.mailbox.TrySend(env)
}

func (r *actorRefImpl[M, R]) Ask(ctx context.Context, msg M) (R, error) {
	promise, future := NewPromise[R]()
	correlationID := NewCorrelationID()
	env := PriorityEnvelope{
		Channel:  Regular,
		Payload:  messagePayload[M, R]{message: msg, promise: &promise, callerCtx: ctx},
		Metadata: &MessageMetadata{CorrelationID: correlationID},
	}
	if err := r.cell.core.mailbox.TrySend(env); err != nil {
		var zero R
		return zero, ErrAskDeadLetter
	}
	log.TraceS(ctx, "ask dispatched",
		"actor", r.cell.core.id, "correlation_id", correlationID)
	return future.Await(ctx)
}

func (r *actorRefImpl[M, R]) AskWithTimeout(msg M, d time.Duration) (R, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	val, err := r.Ask(ctx, msg)
	if err != nil && ctx.Err() != nil {
		var zero R
		return zero, ErrAskTimeout
	}
	return val, err
}

var (
	_ ActorRef[int, int]   = (*actorRefImpl[int, int])(nil)
	_ TellOnlyRef[int]     = (*actorRefImpl[int, int])(nil)
	_ BaseActorRef         = (*actorRefImpl[int, int])(nil)
)
