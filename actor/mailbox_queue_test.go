package actor

import (
	"errors"
	"testing"

	"pgregory.net/rapid"
)

func mustOffer(t *testing.T, q *mailboxQueue, payload any, priority int8, ch Channel) {
	t.Helper()
	env := PriorityEnvelope{Priority: priority, Channel: ch, Payload: payload}
	if _, err := q.offer(env); err != nil {
		t.Fatalf("offer(%v) failed: %v", payload, err)
	}
}

func drainAll(q *mailboxQueue) []any {
	var out []any
	for {
		env, ok, err := q.poll()
		if err != nil || !ok {
			return out
		}
		out = append(out, env.Payload)
	}
}

// TestMailboxQueuePriorityOrdering covers spec.md §8's end-to-end priority
// ordering scenario: higher priority dequeues first, Control outranks
// Regular at equal priority, and enqueue order is preserved within a
// (channel, priority) bucket.
func TestMailboxQueuePriorityOrdering(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 100, ReserveForSystem: 10}, nil)

	mustOffer(t, q, 2, 0, Regular)
	mustOffer(t, q, 1, 5, Regular)
	mustOffer(t, q, 3, 0, Regular)
	mustOffer(t, q, "ping", 0, Control)

	got := drainAll(q)
	want := []any{1, "ping", 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

// TestMailboxQueueOverflowDropOldest covers spec.md §8's overflow scenario:
// capacity 4, reserve 0, offer 1..=6, observe [3,4,5,6].
func TestMailboxQueueOverflowDropOldest(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 4, Overflow: DropOldest}, nil)

	for i := 1; i <= 6; i++ {
		if _, err := q.offer(NewEnvelope(i, 0)); err != nil {
			t.Fatalf("offer(%d): %v", i, err)
		}
	}

	got := drainAll(q)
	want := []any{3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// TestMailboxQueueDropOldestNeverEvictsControl covers spec.md §8's boundary
// behavior: DropOldest under sustained pressure never evicts a Control
// message while Regular traffic is present.
func TestMailboxQueueDropOldestNeverEvictsControl(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 2, Overflow: DropOldest}, nil)

	if _, err := q.offer(NewControlEnvelope("keep-me", 0)); err != nil {
		t.Fatalf("offer control: %v", err)
	}
	if _, err := q.offer(NewEnvelope(1, 0)); err != nil {
		t.Fatalf("offer regular 1: %v", err)
	}
	if _, err := q.offer(NewEnvelope(2, 0)); err != nil {
		t.Fatalf("offer regular 2 (should evict regular 1): %v", err)
	}

	got := drainAll(q)
	if len(got) != 2 || got[0] != "keep-me" || got[1] != 2 {
		t.Fatalf("expected [keep-me 2], got %v", got)
	}
}

func TestMailboxQueueOverflowDropNewest(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 1, Overflow: DropNewest}, nil)

	mustOffer(t, q, 1, 0, Regular)
	_, err := q.offer(NewEnvelope(2, 0))
	var qerr *QueueError
	if !errors.As(err, &qerr) || qerr.Kind != QueueErrFull {
		t.Fatalf("expected Full, got %v", err)
	}

	got := drainAll(q)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected the original message to survive, got %v", got)
	}
}

func TestMailboxQueueOverflowReject(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 1, Overflow: Reject}, nil)
	mustOffer(t, q, 1, 0, Regular)

	_, err := q.offer(NewEnvelope(2, 0))
	var qerr *QueueError
	if !errors.As(err, &qerr) || qerr.Kind != QueueErrFull {
		t.Fatalf("expected Full, got %v", err)
	}
	if qerr.Rejected == nil || qerr.Rejected.Payload != 2 {
		t.Fatalf("expected rejected envelope to carry the payload back, got %+v", qerr.Rejected)
	}
}

func TestMailboxQueueOverflowBlockProducer(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 1, Overflow: BlockProducer}, nil)
	mustOffer(t, q, 1, 0, Regular)

	_, err := q.offer(NewEnvelope(2, 0))
	var qerr *QueueError
	if !errors.As(err, &qerr) || qerr.Kind != QueueErrWouldBlock {
		t.Fatalf("expected WouldBlock, got %v", err)
	}
}

func TestMailboxQueueOverflowDeadLetter(t *testing.T) {
	var captured []any
	q := newMailboxQueue(MailboxOptions{Capacity: 1, Overflow: DeadLetter}, func(env PriorityEnvelope) {
		captured = append(captured, env.Payload)
	})
	mustOffer(t, q, 1, 0, Regular)

	outcome, err := q.offer(NewEnvelope(2, 0))
	if err != nil {
		t.Fatalf("DeadLetter offer should report success, got %v", err)
	}
	if outcome.WasEmpty {
		t.Fatalf("queue was not empty before this offer")
	}
	if len(captured) != 1 || captured[0] != 2 {
		t.Fatalf("expected dead letter hub to capture [2], got %v", captured)
	}

	got := drainAll(q)
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected only the original message to remain queued, got %v", got)
	}
}

func TestMailboxQueueOverflowGrow(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 1, Overflow: Grow}, nil)
	mustOffer(t, q, 1, 0, Regular)

	outcome, err := q.offer(NewEnvelope(2, 0))
	if err != nil {
		t.Fatalf("Grow offer failed: %v", err)
	}
	if outcome.GrewTo != 2 {
		t.Fatalf("expected GrewTo 2, got %d", outcome.GrewTo)
	}
	if q.capacityNow() != 2 {
		t.Fatalf("expected capacity 2 after growth, got %d", q.capacityNow())
	}

	got := drainAll(q)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected [1 2], got %v", got)
	}
}

// TestMailboxQueueReserveForSystem covers spec.md §4.1's reserve_for_system
// contract: Regular offer is rejected once Regular count + reserve >=
// capacity, but Control can still fill the reserve.
func TestMailboxQueueReserveForSystem(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 2, ReserveForSystem: 1, Overflow: Reject}, nil)

	if _, err := q.offer(NewEnvelope(1, 0)); err != nil {
		t.Fatalf("first Regular offer should succeed: %v", err)
	}
	if _, err := q.offer(NewEnvelope(2, 0)); err == nil {
		t.Fatalf("second Regular offer should be rejected by the reserve")
	}
	if _, err := q.offer(NewControlEnvelope("sys", 0)); err != nil {
		t.Fatalf("Control offer should still fill the reserve: %v", err)
	}

	got := drainAll(q)
	if len(got) != 2 || got[0] != "sys" || got[1] != 1 {
		t.Fatalf("expected [sys 1], got %v", got)
	}
}

// TestMailboxQueueCapacityOneBoundary covers spec.md §8's boundary scenario:
// capacity 1, offer twice; the second fails per policy, and the reserve
// still admits one Control message.
func TestMailboxQueueCapacityOneBoundary(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 1, ReserveForSystem: 1, Overflow: Reject}, nil)

	// Regular capacity is 1 - 1 (reserve) = 0, so even the first Regular
	// offer is rejected; the reserved slot is Control-only.
	if _, err := q.offer(NewEnvelope(1, 0)); err == nil {
		t.Fatalf("expected the sole slot, fully reserved, to reject Regular traffic")
	}
	if _, err := q.offer(NewControlEnvelope("sys", 0)); err != nil {
		t.Fatalf("Control should still admit into the reserve: %v", err)
	}
}

func TestMailboxQueueCloseSemantics(t *testing.T) {
	q := newMailboxQueue(MailboxOptions{Capacity: 2}, nil)
	mustOffer(t, q, 1, 0, Regular)
	q.close()

	if _, err := q.offer(NewEnvelope(2, 0)); err == nil {
		t.Fatalf("offer after close should fail")
	} else {
		var qerr *QueueError
		if !errors.As(err, &qerr) || qerr.Kind != QueueErrClosed {
			t.Fatalf("expected Closed, got %v", err)
		}
	}

	// Remaining items still drain.
	env, ok, err := q.poll()
	if err != nil || !ok || env.Payload != 1 {
		t.Fatalf("expected to drain the pre-close item, got %v %v %v", env, ok, err)
	}

	// Once drained, poll reports Disconnected.
	_, ok, err = q.poll()
	if ok {
		t.Fatalf("expected no more items")
	}
	var qerr *QueueError
	if !errors.As(err, &qerr) || qerr.Kind != QueueErrDisconnected {
		t.Fatalf("expected Disconnected, got %v", err)
	}
}

// TestMailboxQueuePriorityOrderingProperty is the property-based form of
// spec.md §8's ordering invariant: for any sequence of envelopes enqueued
// into one mailbox, poll returns them in descending rank, and FIFO order is
// preserved within identical (channel, priority) buckets.
func TestMailboxQueuePriorityOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		q := newMailboxQueue(MailboxOptions{Capacity: 1000, ReserveForSystem: 100}, nil)

		n := rapid.IntRange(1, 30).Draw(t, "n")
		var sent []mailboxQueueTestInput
		for i := 0; i < n; i++ {
			in := mailboxQueueTestInput{
				priority: int8(rapid.IntRange(-3, 3).Draw(t, "priority")),
				channel:  Channel(rapid.IntRange(0, 1).Draw(t, "channel")),
				seq:      i,
			}
			sent = append(sent, in)
			if _, err := q.offer(PriorityEnvelope{Priority: in.priority, Channel: in.channel, Payload: in}); err != nil {
				t.Fatalf("offer failed: %v", err)
			}
		}

		var got []mailboxQueueTestInput
		for {
			env, ok, _ := q.poll()
			if !ok {
				break
			}
			got = append(got, env.Payload.(mailboxQueueTestInput))
		}

		if len(got) != len(sent) {
			t.Fatalf("lost messages: sent %d, polled %d", len(sent), len(got))
		}

		for i := 1; i < len(got); i++ {
			prevRank := got[i-1].rank()
			curRank := got[i].rank()
			if prevRank < curRank {
				t.Fatalf("rank decreased out of order at %d: %+v then %+v", i, got[i-1], got[i])
			}
			if prevRank == curRank && got[i-1].seq > got[i].seq {
				t.Fatalf("FIFO violated within a bucket at %d: %+v then %+v", i, got[i-1], got[i])
			}
		}
	})
}

type mailboxQueueTestInput struct {
	priority int8
	channel  Channel
	seq      int
}

func (in mailboxQueueTestInput) rank() int16 {
	r := int16(in.priority) * 2
	if in.channel == Control {
		r++
	}
	return r
}
