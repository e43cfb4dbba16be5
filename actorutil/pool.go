package actorutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nodalrun/actorcore/actor"
)

// Pool distributes messages across a set of homogeneous actor instances
// using round-robin scheduling, spreading load across a fixed-size worker
// group spawned under one parent guardian.
type Pool[M, R any] struct {
	id string

	actors []actor.ActorRef[M, R]

	next atomic.Uint64
}

// PoolConfig holds configuration for creating a new actor pool.
type PoolConfig[M, R any] struct {
	// ID prefixes every pooled actor's child name: ID + "-" + the root
	// guardian's next child sequence number.
	ID string

	// Size is the number of actor instances to create. Defaults to 1.
	Size int

	// Producer builds a fresh Behavior for pool member idx, also called
	// again every time that member restarts.
	Producer func(idx int) actor.Producer[M, R]

	// Mailbox overrides the pooled actors' mailbox options; the zero
	// value falls back to the owning System's configured mailbox
	// defaults.
	Mailbox actor.MailboxOptions

	// Supervisor overrides the pooled actors' supervision strategy; the
	// zero value falls back to actor.AlwaysRestart.
	Supervisor actor.GuardianStrategy
}

// NewPool spawns Size actors as children of sys's root guardian and
// returns a Pool addressing them by round robin. Spawn failures (e.g. a
// colliding Explicit name, which cannot happen with the PrefixedName
// naming this constructor uses) are not expected in normal operation; any
// member past the failure is simply not spawned and Size() reports fewer
// actors than requested.
func NewPool[M, R any](sys *actor.System, cfg PoolConfig[M, R]) *Pool[M, R] {
	if cfg.Size <= 0 {
		cfg.Size = 1
	}

	supervisor := cfg.Supervisor
	if supervisor == nil {
		supervisor = actor.AlwaysRestart{}
	}

	p := &Pool[M, R]{
		id:     cfg.ID,
		actors: make([]actor.ActorRef[M, R], 0, cfg.Size),
	}

	for i := 0; i < cfg.Size; i++ {
		// A zero cfg.Mailbox flows through Props unchanged; the spawn
		// path resolves it against the System's configured defaults.
		props := actor.NewProps(cfg.Producer(i)).
			WithMailbox(cfg.Mailbox).
			WithSupervisor(supervisor)

		ref, err := actor.Spawn(sys, props, actor.PrefixedName(cfg.ID))
		if err != nil {
			continue
		}
		p.actors = append(p.actors, ref)
	}

	return p
}

// ID returns the identifier for this pool.
func (p *Pool[M, R]) ID() string { return p.id }

// Size returns the number of actors currently in the pool.
func (p *Pool[M, R]) Size() int { return len(p.actors) }

// Actors returns a copy of the actor references in the pool.
func (p *Pool[M, R]) Actors() []actor.ActorRef[M, R] {
	out := make([]actor.ActorRef[M, R], len(p.actors))
	copy(out, p.actors)
	return out
}

func (p *Pool[M, R]) nextMember() actor.ActorRef[M, R] {
	idx := p.next.Add(1) % uint64(len(p.actors))
	return p.actors[idx]
}

// Ask sends msg to the next actor in round-robin order and waits for its
// reply.
func (p *Pool[M, R]) Ask(ctx context.Context, msg M) (R, error) {
	return p.nextMember().Ask(ctx, msg)
}

// AskWithTimeout is Ask bounded by d rather than the caller's own context.
func (p *Pool[M, R]) AskWithTimeout(msg M, d time.Duration) (R, error) {
	return p.nextMember().AskWithTimeout(msg, d)
}

// Tell sends a fire-and-forget message to the next actor in round-robin
// order.
func (p *Pool[M, R]) Tell(msg M, opts ...actor.TellOption) error {
	return p.nextMember().Tell(msg, opts...)
}

// Broadcast sends msg to every actor in the pool, for cache invalidation,
// configuration refresh, or similar fan-out signals.
func (p *Pool[M, R]) Broadcast(msg M, opts ...actor.TellOption) {
	for _, ref := range p.actors {
		_ = ref.Tell(msg, opts...)
	}
}

// BroadcastAsk sends msg to every actor in the pool concurrently and
// collects every reply in pool-member order.
func (p *Pool[M, R]) BroadcastAsk(ctx context.Context, msg M) []R {
	type slot struct {
		val R
		err error
	}
	slots := make([]slot, len(p.actors))
	done := make(chan struct{}, len(p.actors))
	for i, ref := range p.actors {
		go func(i int, r actor.ActorRef[M, R]) {
			val, err := r.Ask(ctx, msg)
			slots[i] = slot{val: val, err: err}
			done <- struct{}{}
		}(i, ref)
	}
	for range p.actors {
		<-done
	}

	out := make([]R, len(slots))
	for i, s := range slots {
		out[i] = s.val
	}
	return out
}

// Stop asks every pooled actor to stop gracefully. It does not block until
// they have finished, matching ActorRef.Stop's own fire-and-forget
// semantics (use the owning System's Shutdown for a synchronous drain).
func (p *Pool[M, R]) Stop() {
	for _, ref := range p.actors {
		ref.Stop()
	}
}

// PoolRef wraps a Pool behind ActorRef-style Tell, Ask, AskWithTimeout and
// Stop methods. It does not implement actor.ActorRef: it has no ActorId,
// Path, Watch or Unwatch, and its ID returns the pool's string id.
type PoolRef[M, R any] struct {
	pool *Pool[M, R]
}

// NewPoolRef wraps pool as an ActorRef-shaped value for round-robin
// delivery.
func NewPoolRef[M, R any](pool *Pool[M, R]) *PoolRef[M, R] {
	return &PoolRef[M, R]{pool: pool}
}

func (r *PoolRef[M, R]) Tell(msg M, opts ...actor.TellOption) error {
	return r.pool.Tell(msg, opts...)
}

func (r *PoolRef[M, R]) Ask(ctx context.Context, msg M) (R, error) {
	return r.pool.Ask(ctx, msg)
}

func (r *PoolRef[M, R]) AskWithTimeout(msg M, d time.Duration) (R, error) {
	return r.pool.AskWithTimeout(msg, d)
}

func (r *PoolRef[M, R]) Stop() { r.pool.Stop() }

// ID returns the wrapped pool's identifier.
func (r *PoolRef[M, R]) ID() string { return r.pool.id }
