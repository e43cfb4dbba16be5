package actor

import (
	"strconv"
	"sync"
)

// SupervisorDirectiveKind is the closed directive set a GuardianStrategy
// returns for a child's failure (spec.md §3).
type SupervisorDirectiveKind uint8

const (
	RestartDirective SupervisorDirectiveKind = iota
	StopDirective
	ResumeDirective
	EscalateDirective
)

// SupervisorDirective wraps the directive kind; a struct rather than a bare
// enum to leave room for directive-specific data without a breaking change.
type SupervisorDirective struct {
	Kind SupervisorDirectiveKind
}

var (
	Restart  = SupervisorDirective{Kind: RestartDirective}
	StopD    = SupervisorDirective{Kind: StopDirective}
	Resume   = SupervisorDirective{Kind: ResumeDirective}
	Escalate = SupervisorDirective{Kind: EscalateDirective}
)

// GuardianStrategy decides what should happen to a child given its failure
// (spec.md §4.7). It is consulted by the child's parent, once per failure,
// before any escalation hop.
type GuardianStrategy interface {
	Decide(failure BehaviorFailure) SupervisorDirective
}

// AlwaysRestart is the default strategy: restart unconditionally.
type AlwaysRestart struct{}

func (AlwaysRestart) Decide(BehaviorFailure) SupervisorDirective { return Restart }

// FixedDirectiveSupervisor always returns the same configured directive,
// regardless of the failure (SPEC_FULL.md §12.2).
type FixedDirectiveSupervisor struct {
	Directive SupervisorDirective
}

func (f FixedDirectiveSupervisor) Decide(BehaviorFailure) SupervisorDirective { return f.Directive }

// SupervisorStrategyFunc adapts a plain function to GuardianStrategy,
// letting a caller inspect the failure and choose per message class
// (SPEC_FULL.md §12.2).
type SupervisorStrategyFunc func(BehaviorFailure) SupervisorDirective

func (f SupervisorStrategyFunc) Decide(failure BehaviorFailure) SupervisorDirective { return f(failure) }

// ChildRecord is held by a parent for each living child (spec.md §3):
// created on spawn, destroyed on Terminated. It owns the child's supervision
// strategy (attached at spawn time via Props) and the type-erased handle the
// parent uses to apply a directive.
type ChildRecord struct {
	ID         ActorId
	Name       string
	Path       ActorPath
	Supervisor GuardianStrategy
	Ref        BaseActorRef
	handle     cellHandle
}

// cellCore is the non-generic state every ActorCell[M, R] embeds: identity,
// tree position, and the parts of the guardian relationship that don't
// depend on the cell's own message types. Keeping this separate from the
// generic ActorCell lets spawning and escalation cross between cells of
// unrelated M/R without reflection (props.go's spawnSpec, readyqueue.go's
// cellHandle).
type cellCore struct {
	id     ActorId
	path   ActorPath
	parent *cellCore

	system *System
	rq     *ReadyQueue
	worker *Worker

	mu             sync.Mutex
	children       map[ActorId]*ChildRecord
	childNameIndex map[string]ActorId
	nextChildSeq   uint64

	watchedBy map[ActorId]bool // who watches me
	watching  map[ActorId]bool // who I watch

	mailbox *MailboxHandle
	index   MailboxIndex
}

func newCellCore(parent *cellCore, id ActorId, path ActorPath, system *System, mailbox *MailboxHandle) *cellCore {
	return &cellCore{
		id:             id,
		path:           path,
		parent:         parent,
		system:         system,
		rq:             system.readyQueue,
		worker:         system.worker,
		children:       make(map[ActorId]*ChildRecord),
		childNameIndex: make(map[string]ActorId),
		watchedBy:      make(map[ActorId]bool),
		watching:       make(map[ActorId]bool),
		mailbox:        mailbox,
	}
}

// spawnChild implements childSpawner for Context.SpawnChild: props must be
// a Props[ChildM, ChildR] value (asserted to spawnSpec, the type-erasure
// seam props.go provides).
func (c *cellCore) spawnChild(props any, naming ChildNaming) (BaseActorRef, error) {
	spec, ok := props.(spawnSpec)
	if !ok {
		return nil, &SpawnError{Kind: SpawnErrQueue}
	}
	return spec.spawnUnder(c, naming)
}

func (c *cellCore) childIDs() []ActorId {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ActorId, 0, len(c.children))
	for id := range c.children {
		out = append(out, id)
	}
	return out
}

// childCount reports how many children are currently live, used by invoke()
// to decide whether a Stopping cell can finish or must keep waiting on its
// children's Terminated reports (spec.md §4.6).
func (c *cellCore) childCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children)
}

func (c *cellCore) watch(target ActorId) {
	c.mu.Lock()
	c.watching[target] = true
	c.mu.Unlock()
	if t := c.system.lookup(target); t != nil {
		t.mu.Lock()
		t.watchedBy[c.id] = true
		t.mu.Unlock()
	}
}

func (c *cellCore) unwatch(target ActorId) {
	c.mu.Lock()
	delete(c.watching, target)
	c.mu.Unlock()
	if t := c.system.lookup(target); t != nil {
		t.mu.Lock()
		delete(t.watchedBy, c.id)
		t.mu.Unlock()
	}
}

// nextChildName allocates a name per ChildNaming, failing with NameExists
// for a colliding Explicit name (spec.md §4.7). The allocated name is
// reserved in childNameIndex before the lock is released, so a concurrent
// spawn of the same Explicit name cannot pass the collision check between
// this call and registerChild; registerChild overwrites the reservation
// with the child's real id.
func (c *cellCore) nextChildName(naming ChildNaming) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var name string
	switch naming.Kind {
	case Explicit:
		if _, exists := c.childNameIndex[naming.Name]; exists {
			return "", &SpawnError{Kind: SpawnErrNameExists, Name: naming.Name}
		}
		name = naming.Name
	case WithPrefix:
		c.nextChildSeq++
		name = naming.Prefix + "-" + strconv.FormatUint(c.nextChildSeq, 10)
	default:
		c.nextChildSeq++
		name = "$" + strconv.FormatUint(c.nextChildSeq, 10)
	}

	c.childNameIndex[name] = 0
	return name, nil
}

func (c *cellCore) registerChild(rec *ChildRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children[rec.ID] = rec
	c.childNameIndex[rec.Name] = rec.ID
}

func (c *cellCore) removeChild(id ActorId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec, ok := c.children[id]; ok {
		delete(c.childNameIndex, rec.Name)
		delete(c.children, id)
	}
}

func (c *cellCore) recordFor(id ActorId) *ChildRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.children[id]
}
