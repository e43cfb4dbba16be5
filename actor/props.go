package actor

import (
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ChildNamingKind is the closed naming-scheme set of spec.md §4.7.
type ChildNamingKind uint8

const (
	Auto ChildNamingKind = iota
	WithPrefix
	Explicit
)

// ChildNaming selects how a spawned child's name is derived
// (SPEC_FULL.md §12.1, promoting spec.md §4.7's naming scheme to a
// first-class closed sum type).
type ChildNaming struct {
	Kind   ChildNamingKind
	Prefix string
	Name   string
}

// AutoName assigns "$" + the next monotonic child id.
func AutoName() ChildNaming { return ChildNaming{Kind: Auto} }

// PrefixedName assigns prefix + "-" + the next monotonic child id.
func PrefixedName(prefix string) ChildNaming { return ChildNaming{Kind: WithPrefix, Prefix: prefix} }

// ExplicitName assigns exactly name, failing with NameExists if a living
// child already uses it.
func ExplicitName(name string) ChildNaming { return ChildNaming{Kind: Explicit, Name: name} }

// Producer constructs a fresh Behavior instance, called once at spawn and
// again on every Restart (spec.md §4.6: "constructs a fresh instance").
type Producer[M, R any] func() Behavior[M, R]

// Props is the immutable recipe for spawning an actor: its behavior
// producer, mailbox configuration, supervision strategy, and receive-timeout
// default. It is the generic counterpart of spec.md §6's "spawn(props,
// naming)", and implements spawnSpec so a non-generic parent cell can spawn
// children of unrelated message types.
type Props[M, R any] struct {
	Producer Producer[M, R]

	// Mailbox overrides the owning System's configured mailbox defaults
	// for this actor. A zero Capacity means "unset": the System's
	// SystemConfig.MailboxDefaults apply at spawn time.
	Mailbox MailboxOptions

	Supervisor GuardianStrategy

	// ReceiveTimeout overrides the owning System's configured
	// receive-timeout default for this actor. None means "unset": the
	// System's SystemConfig.ReceiveTimeoutDefault applies at spawn time.
	ReceiveTimeout fn.Option[time.Duration]
}

// NewProps builds a Props with AlwaysRestart supervision. Mailbox options
// and receive-timeout are left unset so the owning System's configured
// defaults apply at spawn time; use WithMailbox/WithReceiveTimeout to
// override them per actor.
func NewProps[M, R any](producer Producer[M, R]) Props[M, R] {
	return Props[M, R]{
		Producer:   producer,
		Supervisor: AlwaysRestart{},
	}
}

// WithMailbox returns a copy of p with its mailbox options replaced.
func (p Props[M, R]) WithMailbox(opt MailboxOptions) Props[M, R] {
	p.Mailbox = opt
	return p
}

// WithSupervisor returns a copy of p with its supervision strategy replaced.
func (p Props[M, R]) WithSupervisor(s GuardianStrategy) Props[M, R] {
	p.Supervisor = s
	return p
}

// WithReceiveTimeout returns a copy of p with a receive-timeout default set.
func (p Props[M, R]) WithReceiveTimeout(d time.Duration) Props[M, R] {
	p.ReceiveTimeout = fn.Some(d)
	return p
}

// spawnSpec is the non-generic seam a cellCore uses to spawn a child of
// arbitrary message types: Props[M, R] implements it by closing over its
// own type parameters, the same type-erasure pattern cellHandle uses for
// ActorCell[M, R] (readyqueue.go).
type spawnSpec interface {
	spawnUnder(parent *cellCore, naming ChildNaming) (BaseActorRef, error)
}

func (p Props[M, R]) spawnUnder(parent *cellCore, naming ChildNaming) (BaseActorRef, error) {
	_, ref, err := newActorCell(parent, p, naming)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

var _ spawnSpec = Props[int, int]{}
