package actor

import (
	"context"

	"github.com/btcsuite/btclog/v2"
)

// ContextLogLevel is a per-context log-level value a behavior can set with
// Context.WithLogLevel and read back with Context.LogLevel (SPEC_FULL.md
// §12.4, grounded on cellex-rs's context_log_level.rs). Context.Log does not
// apply it: the logger it returns keeps its own configured level.
type ContextLogLevel uint8

const (
	// LogLevelInherit defers to the package-level logger's configured
	// level (the default for every actor).
	LogLevelInherit ContextLogLevel = iota
	LogLevelTrace
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Context is handed to a Behavior on every Receive call. It exposes the
// actor's own identity, its Go context.Context (done once an Ask caller's
// context is — mergeContexts below; System.Shutdown does not cancel it),
// child lifecycle operations, and the log-level override.
type Context interface {
	context.Context

	Self() ActorId
	Path() ActorPath

	// SpawnChild creates a child of the actor owning this Context. The child
	// naming and Props are the caller's choice; the new child is owned
	// by this actor's guardian record.
	SpawnChild(props any, naming ChildNaming) (BaseActorRef, error)

	// Children lists the ActorIds of currently living children.
	Children() []ActorId

	// Watch/Unwatch register or remove a watcher for `target`; on
	// Terminated, every watcher receives a TerminatedMessage.
	Watch(target ActorId)
	Unwatch(target ActorId)

	// Metadata returns the metadata attached to the message currently
	// being processed — the sender reference from a Tell's WithSender,
	// or the correlation id an Ask minted — and nil when the sender
	// attached none.
	Metadata() *MessageMetadata

	LogLevel() ContextLogLevel
	WithLogLevel(level ContextLogLevel) Context

	// Log returns the logger to use for this invocation: the package-level
	// logger. The LogLevel override is not applied to it.
	Log() btclog.Logger
}

// mergeContexts returns a context cancelled when either input is, carrying
// whichever error fired first. Grounded on the teacher's mergeContexts in
// internal/baselib/actor/actor.go. The cell merges a background base context
// with an Ask caller's context, so a behavior invoked on behalf of an Ask
// observes the caller's cancellation and deadline; System shutdown does not
// cancel the merged context.
func mergeContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// baseContext is the concrete Context implementation threaded through
// ActorCell.invoke.
type baseContext struct {
	context.Context
	self     ActorId
	path     ActorPath
	cell     childSpawner
	metadata *MessageMetadata
	logLevel ContextLogLevel
	logger   btclog.Logger
}

// childSpawner is the narrow slice of ActorCell[M, R]'s API Context needs,
// kept non-generic so Context itself need not be generic over the parent's
// M/R.
type childSpawner interface {
	spawnChild(props any, naming ChildNaming) (BaseActorRef, error)
	childIDs() []ActorId
	watch(target ActorId)
	unwatch(target ActorId)
}

func (c *baseContext) Self() ActorId { return c.self }
func (c *baseContext) Path() ActorPath { return c.path }

func (c *baseContext) SpawnChild(props any, naming ChildNaming) (BaseActorRef, error) {
	return c.cell.spawnChild(props, naming)
}

func (c *baseContext) Children() []ActorId { return c.cell.childIDs() }

func (c *baseContext) Watch(target ActorId)   { c.cell.watch(target) }
func (c *baseContext) Unwatch(target ActorId) { c.cell.unwatch(target) }

func (c *baseContext) Metadata() *MessageMetadata { return c.metadata }

func (c *baseContext) LogLevel() ContextLogLevel { return c.logLevel }

func (c *baseContext) WithLogLevel(level ContextLogLevel) Context {
	clone := *c
	clone.logLevel = level
	return &clone
}

func (c *baseContext) Log() btclog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return log
}
