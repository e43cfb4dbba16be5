package actor

import (
	"context"
	"sync"
	"time"
)

// Worker is the ready-queue worker loop of spec.md §4.5 (component F): it
// repeatedly drains one ready index, invokes its cell under a throughput
// quota, and interprets the InvokeResult. At most one actor is invoked per
// iteration, bounding how much of a worker a single busy cell can hold.
type Worker struct {
	rq    *ReadyQueue
	quota int
	timer Timer
	spawn Spawn

	mu              sync.Mutex
	signalWaiters   map[string][]MailboxIndex
	capacityWaiters map[ActorId][]MailboxIndex
}

// NewWorker builds a worker against the given ready-queue, throughput
// quota (spec.md §6's scheduler.throughput_quota, default 10), Timer for
// After(d) resumers, and Spawn for launching the delay goroutines.
func NewWorker(rq *ReadyQueue, quota int, timer Timer, spawn Spawn) *Worker {
	if quota <= 0 {
		quota = 10
	}
	return &Worker{
		rq:              rq,
		quota:           quota,
		timer:           timer,
		spawn:           spawn,
		signalWaiters:   make(map[string][]MailboxIndex),
		capacityWaiters: make(map[ActorId][]MailboxIndex),
	}
}

// Run drives the worker loop until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		index, mailbox, cell, ok := w.rq.DrainOne()
		if !ok {
			if err := w.rq.PollWaitSignal(ctx); err != nil {
				return
			}
			continue
		}

		result := cell.invoke(w.quota)
		w.interpret(ctx, index, mailbox, cell, result)
	}
}

func (w *Worker) interpret(ctx context.Context, index MailboxIndex, mailbox *MailboxHandle, cell cellHandle, result InvokeResult) {
	switch result.Kind {
	case Completed:
		if result.ReadyHint || mailbox.Len() > 0 {
			w.rq.Reenqueue(index)
		}

	case Yielded:
		w.rq.Reenqueue(index)

	case Suspended:
		w.armResumer(ctx, index, result.ResumeOn)

	case Failed:
		stillAlive := cell.escalate(result.Failure)
		if !stillAlive {
			cell.teardown()
			w.rq.Unregister(index)
			return
		}
		if result.RetryAfter.IsSome() && w.timer != nil && w.spawn != nil {
			w.delayThenReenqueue(ctx, index, result.RetryAfter.UnwrapOr(0))
			return
		}
		w.rq.Reenqueue(index)

	case StoppedResult:
		cell.teardown()
		w.rq.Unregister(index)
	}
}

// armResumer registers a pending resume entry per the ResumeCondition kind
// (spec.md §4.5): ExternalSignal waits for ResumeSignal(key); After arms the
// Timer; WhenCapacityAvailable waits for ResumeCapacity(downstream).
func (w *Worker) armResumer(ctx context.Context, index MailboxIndex, cond ResumeCondition) {
	w.mu.Lock()
	switch cond.Kind {
	case ExternalSignal:
		w.signalWaiters[cond.SignalKey] = append(w.signalWaiters[cond.SignalKey], index)
		w.mu.Unlock()
		log.TraceS(ctx, "worker parked cell", "slot", index.slot, "on", "signal", "key", cond.SignalKey)
	case WhenCapacityAvailable:
		w.capacityWaiters[cond.Downstream] = append(w.capacityWaiters[cond.Downstream], index)
		w.mu.Unlock()
		log.TraceS(ctx, "worker parked cell", "slot", index.slot, "on", "capacity", "downstream", cond.Downstream)
	case After:
		w.mu.Unlock()
		log.TraceS(ctx, "worker parked cell", "slot", index.slot, "on", "timer", "delay", cond.Delay)
		w.delayThenReenqueue(ctx, index, cond.Delay)
	default:
		w.mu.Unlock()
	}
}

func (w *Worker) delayThenReenqueue(ctx context.Context, index MailboxIndex, d time.Duration) {
	if w.timer == nil || w.spawn == nil {
		w.rq.Reenqueue(index)
		return
	}
	done := w.timer.Sleep(ctx, int64(d))
	w.spawn.Spawn(func() {
		select {
		case <-done:
			log.TraceS(ctx, "worker woke cell", "slot", index.slot, "on", "timer")
			w.rq.Reenqueue(index)
		case <-ctx.Done():
		}
	})
}

// ResumeSignal wakes every cell suspended waiting on key (ExternalSignal),
// re-enqueueing them onto the ready queue.
func (w *Worker) ResumeSignal(key string) {
	w.mu.Lock()
	indices := w.signalWaiters[key]
	delete(w.signalWaiters, key)
	w.mu.Unlock()

	if len(indices) > 0 {
		log.TraceS(context.Background(), "worker woke cells", "on", "signal", "key", key, "count", len(indices))
	}
	for _, idx := range indices {
		w.rq.Reenqueue(idx)
	}
}

// ResumeCapacity wakes every cell suspended waiting on downstream actor id
// reporting spare capacity.
func (w *Worker) ResumeCapacity(downstream ActorId) {
	w.mu.Lock()
	indices := w.capacityWaiters[downstream]
	delete(w.capacityWaiters, downstream)
	w.mu.Unlock()

	if len(indices) > 0 {
		log.TraceS(context.Background(), "worker woke cells", "on", "capacity", "downstream", downstream, "count", len(indices))
	}
	for _, idx := range indices {
		w.rq.Reenqueue(idx)
	}
}
