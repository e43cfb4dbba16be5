package actor

import (
	"context"
	"errors"
)

// MailboxHandle combines the queue driver and the signal, component D of
// spec.md §2/§4.3. It is the producer- and consumer-facing view of one
// mailbox: TrySend is the producer API, TryDequeue/Recv the consumer API
// used by the actor cell that owns this mailbox.
type MailboxHandle struct {
	queue  *mailboxQueue
	signal *Signal

	metrics   MetricsSink
	readyHook func()
	actorID   ActorId
}

// NewMailboxHandle constructs a mailbox with the given options. deadLetter
// is invoked for messages the DeadLetter overflow policy diverts; it may be
// nil, in which case such messages are silently discarded (matching the
// teacher's "best effort" dead-letter posture when no DLQ is configured).
func NewMailboxHandle(actorID ActorId, opt MailboxOptions, deadLetter func(PriorityEnvelope)) *MailboxHandle {
	return &MailboxHandle{
		queue:   newMailboxQueue(opt, deadLetter),
		signal:  NewSignal(),
		actorID: actorID,
	}
}

// InstallMetricsSink sets the metrics sink, once, at construction time by
// the runtime facade (spec.md §4.3: "Injections ... set once at
// construction").
func (h *MailboxHandle) InstallMetricsSink(sink MetricsSink) { h.metrics = sink }

// InstallReadyHook sets the scheduler hook invoked exactly on an
// empty-to-non-empty transition (the edge-trigger invariant, spec.md §4.3).
// The ready-queue scheduler installs this when it registers the mailbox; the
// hook itself knows which MailboxIndex to enqueue.
func (h *MailboxHandle) InstallReadyHook(hook func()) { h.readyHook = hook }

// TrySend offers env into the mailbox, firing the ready hook and notifying
// the signal exactly on an empty-to-non-empty transition.
func (h *MailboxHandle) TrySend(env PriorityEnvelope) error {
	outcome, err := h.queue.offer(env)
	if err != nil {
		var qerr *QueueError
		if errors.As(err, &qerr) && qerr.Kind != QueueErrClosed {
			log.WarnS(context.Background(), "mailbox overflow", err,
				"actor", h.actorID, "channel", env.Channel,
				"overflow_policy", h.queue.opt.Overflow)
		}
		return err
	}

	if outcome.GrewTo > 0 {
		log.InfoS(context.Background(), "mailbox grew under pressure",
			"actor", h.actorID, "capacity", outcome.GrewTo)
	}

	if h.metrics != nil {
		h.metrics.Record(MetricsEvent{Kind: MailboxEnqueued, Actor: h.actorID})
	}

	if outcome.WasEmpty {
		if h.readyHook != nil {
			h.readyHook()
		}
		h.signal.Notify()
	}
	return nil
}

// TryDequeue polls without waiting.
func (h *MailboxHandle) TryDequeue() (PriorityEnvelope, bool, error) {
	env, ok, err := h.queue.poll()
	if ok && h.metrics != nil {
		h.metrics.Record(MetricsEvent{Kind: MailboxDequeued, Actor: h.actorID})
	}
	return env, ok, err
}

// Recv polls; if empty and not closed, awaits the signal and retries
// (spec.md §4.3's "lazy await").
func (h *MailboxHandle) Recv(ctx context.Context) (PriorityEnvelope, error) {
	for {
		env, ok, err := h.TryDequeue()
		if err != nil {
			return PriorityEnvelope{}, err
		}
		if ok {
			return env, nil
		}
		if err := h.signal.Wait(ctx); err != nil {
			return PriorityEnvelope{}, err
		}
	}
}

// Close closes the underlying queue and wakes any waiter so it observes
// Disconnected on its next poll.
func (h *MailboxHandle) Close() {
	h.queue.close()
	h.signal.Notify()
}

func (h *MailboxHandle) IsClosed() bool { return h.queue.isClosed() }
func (h *MailboxHandle) Len() int       { return h.queue.len() }
func (h *MailboxHandle) Capacity() int  { return h.queue.capacityNow() }

// Drain removes and returns every envelope currently queued, used when a
// cell tears down mid-flight (restart/stop) and must discard or redirect
// the stash.
func (h *MailboxHandle) Drain() []PriorityEnvelope {
	var out []PriorityEnvelope
	for {
		env, ok, err := h.queue.poll()
		if err != nil || !ok {
			return out
		}
		out = append(out, env)
	}
}
