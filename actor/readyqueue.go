package actor

import (
	"context"
	"sync"
)

// MailboxIndex is the (slot, generation) pair spec.md §3 defines. Slots are
// reused; generation advances on every reuse so a stale index captured by a
// late hook invocation can be detected and dropped (the generational-safety
// invariant, spec.md §4.4).
type MailboxIndex struct {
	slot       int
	generation uint64
}

// cellHandle is the type-erased interface the ready-queue worker drives.
// ActorCell[M, R] (cell.go) satisfies it; the ready-queue and worker never
// need to know M or R.
type cellHandle interface {
	invoke(quota int) InvokeResult
	teardown()
	// escalate walks the failure up the guardian tree, applying each
	// supervisor's directive as it goes (spec.md §4.7). It reports
	// whether the cell is still alive afterward so the worker knows
	// whether to re-enqueue it.
	escalate(BehaviorFailure) bool
	// applyDirective applies a already-decided SupervisorDirective to
	// this cell (used by the escalation walk once a hop's strategy
	// returns a non-Escalate directive). Reports whether the cell is
	// still alive afterward.
	applyDirective(SupervisorDirective, BehaviorFailure) bool
}

type registeredSlot struct {
	mailbox    *MailboxHandle
	cell       cellHandle
	generation uint64
	free       bool
}

// ReadyQueue is the shared state described in spec.md §4.4 (component E):
// the index set of runnable actors, a bitmap-equivalent membership mirror,
// and the slot→(mailbox, cell, generation) registry. All mutation is
// serialized through one lock; critical sections never call user code
// (spec.md §5).
type ReadyQueue struct {
	mu sync.Mutex

	signal *Signal

	slots     []registeredSlot
	freeSlots []int

	ready    []MailboxIndex
	readySet map[int]bool
}

// NewReadyQueue returns an empty ready-queue scheduler state.
func NewReadyQueue() *ReadyQueue {
	return &ReadyQueue{
		signal:   NewSignal(),
		readySet: make(map[int]bool),
	}
}

// Register allocates a slot (reusing the lowest free one), bumps its
// generation, installs the ready hook on mailbox, and returns the resulting
// MailboxIndex.
func (r *ReadyQueue) Register(mailbox *MailboxHandle, cell cellHandle) MailboxIndex {
	r.mu.Lock()

	var slot int
	if len(r.freeSlots) > 0 {
		lowest := 0
		for i, s := range r.freeSlots {
			if s < r.freeSlots[lowest] {
				lowest = i
			}
		}
		slot = r.freeSlots[lowest]
		r.freeSlots = append(r.freeSlots[:lowest], r.freeSlots[lowest+1:]...)
		r.slots[slot].generation++
		r.slots[slot].mailbox = mailbox
		r.slots[slot].cell = cell
		r.slots[slot].free = false
	} else {
		slot = len(r.slots)
		r.slots = append(r.slots, registeredSlot{mailbox: mailbox, cell: cell})
	}

	index := MailboxIndex{slot: slot, generation: r.slots[slot].generation}
	r.mu.Unlock()

	mailbox.InstallReadyHook(func() { r.EnqueueIfIdle(index) })
	log.TraceS(context.Background(), "ready-queue slot registered",
		"slot", index.slot, "generation", index.generation)
	return index
}

// Unregister verifies the generation, frees the slot, closes the mailbox,
// removes it from the ready set if present, and bumps the generation so any
// still-in-flight hook invocation captured before this call is silently
// dropped by a later EnqueueIfIdle.
func (r *ReadyQueue) Unregister(index MailboxIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index.slot >= len(r.slots) || r.slots[index.slot].generation != index.generation {
		return
	}

	mailbox := r.slots[index.slot].mailbox
	r.slots[index.slot].free = true
	r.slots[index.slot].mailbox = nil
	r.slots[index.slot].cell = nil
	r.slots[index.slot].generation++
	r.freeSlots = append(r.freeSlots, index.slot)

	if r.readySet[index.slot] {
		delete(r.readySet, index.slot)
		for i, idx := range r.ready {
			if idx.slot == index.slot {
				r.ready = append(r.ready[:i], r.ready[i+1:]...)
				break
			}
		}
	}

	if mailbox != nil {
		mailbox.Close()
	}

	log.TraceS(context.Background(), "ready-queue slot unregistered",
		"slot", index.slot, "generation", index.generation)
}

// EnqueueIfIdle inserts index into the ready set and wakes a parked worker,
// provided the index's generation still matches what's currently installed
// at that slot and it isn't already enqueued. A mismatched generation means
// this call originated from a mailbox that has since been unregistered and
// is silently ignored (spec.md §4.4's generational-safety invariant).
func (r *ReadyQueue) EnqueueIfIdle(index MailboxIndex) {
	r.mu.Lock()

	if index.slot >= len(r.slots) || r.slots[index.slot].generation != index.generation {
		r.mu.Unlock()
		return
	}
	if r.slots[index.slot].free || r.readySet[index.slot] {
		r.mu.Unlock()
		return
	}

	r.readySet[index.slot] = true
	r.ready = append(r.ready, index)
	r.mu.Unlock()

	r.signal.Notify()
}

// DrainOne removes and returns any ready slot. Selection policy is FIFO,
// which spec.md §4.4 explicitly permits ("fairness comes from per-actor
// throughput caps, not ready-queue ordering").
func (r *ReadyQueue) DrainOne() (MailboxIndex, *MailboxHandle, cellHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ready) == 0 {
		return MailboxIndex{}, nil, nil, false
	}
	index := r.ready[0]
	r.ready = r.ready[1:]
	delete(r.readySet, index.slot)

	if index.slot >= len(r.slots) || r.slots[index.slot].generation != index.generation {
		return MailboxIndex{}, nil, nil, false
	}
	slot := r.slots[index.slot]
	return index, slot.mailbox, slot.cell, true
}

// PollWaitSignal parks the caller until a worker might find work, i.e. until
// the ready set transitions away from empty, or ctx is done.
func (r *ReadyQueue) PollWaitSignal(ctx context.Context) error {
	return r.signal.Wait(ctx)
}

// Reenqueue re-inserts an index the worker already drained, used when
// invoke() reports Completed{ready_hint=true} or the mailbox still has
// items after a quota-limited pass.
func (r *ReadyQueue) Reenqueue(index MailboxIndex) {
	r.EnqueueIfIdle(index)
}
