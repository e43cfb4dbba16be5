package actor

import (
	"sort"
	"sync"
)

// noopLocker implements sync.Locker with no synchronization at all, used
// when a mailbox is constructed with MailboxConcurrency SingleThreaded
// (SPEC_FULL.md §12.7).
type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// OfferOutcome reports side effects of a successful offer: whether the
// mailbox transitioned from empty to non-empty (the edge-trigger condition
// the handle layer uses to fire notify_ready, spec.md §4.3) and, for the
// Grow overflow policy, the capacity the mailbox grew to.
type OfferOutcome struct {
	WasEmpty bool
	GrewTo   int
}

// mailboxQueue is the bucketed priority FIFO queue driver, component B of
// spec.md §2/§4.1. It is deliberately type-erased (operates on
// PriorityEnvelope, not a generic M) so the ready-queue scheduler can drive
// heterogeneous cells without type parameters; the generic layer
// (actor_ref.go, cell.go) boxes/unboxes the Payload field.
//
// Ordering: poll returns messages in decreasing rank, where rank orders
// Control above Regular at equal Priority, and FIFO within a (channel,
// priority) bucket (spec.md §3).
type mailboxQueue struct {
	mu  sync.Locker
	opt MailboxOptions

	buckets map[int16][]PriorityEnvelope
	ranks   []int16 // descending; mirrors buckets' non-empty keys

	regularCount int
	controlCount int
	capacity     int
	closed       bool

	deadLetter func(PriorityEnvelope)
}

func newMailboxQueue(opt MailboxOptions, deadLetter func(PriorityEnvelope)) *mailboxQueue {
	var mu sync.Locker
	if opt.Concurrency == SingleThreaded {
		mu = noopLocker{}
	} else {
		mu = &sync.Mutex{}
	}
	return &mailboxQueue{
		mu:         mu,
		opt:        opt,
		buckets:    make(map[int16][]PriorityEnvelope),
		capacity:   opt.Capacity,
		deadLetter: deadLetter,
	}
}

func (q *mailboxQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.regularCount + q.controlCount
}

func (q *mailboxQueue) capacityNow() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.capacity
}

// offer enqueues env, applying the configured OverflowPolicy if the
// relevant limit (capacity, or capacity-minus-reserve for Regular traffic)
// has been reached. Locking is held for the whole call (spec.md §5); under
// the DeadLetter policy that includes the call to the dead-letter hook.
func (q *mailboxQueue) offer(env PriorityEnvelope) (OfferOutcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		rejected := env
		return OfferOutcome{}, &QueueError{Kind: QueueErrClosed, Rejected: &rejected}
	}

	wasEmpty := q.regularCount+q.controlCount == 0

	// Regular traffic is rejected once its own count plus the withheld
	// system reserve would reach capacity, even if Control traffic is
	// occupying part of that reserve (spec.md §4.1: "Regular offer is
	// rejected when Regular count + reserve_for_system >= capacity").
	// Control traffic is only bound by the mailbox's physical capacity, so
	// it can fill the reserve; Regular is additionally bound by that same
	// physical capacity so it can never evict into Control's share.
	atLimit := q.regularCount+q.controlCount >= q.capacity
	if env.Channel == Regular {
		atLimit = atLimit || q.regularCount+q.opt.ReserveForSystem >= q.capacity
	}

	if atLimit {
		outcome, err := q.handleOverflow(env)
		if err != nil {
			return OfferOutcome{}, err
		}
		if q.opt.Overflow == DeadLetter {
			// The hub consumed env; nothing was enqueued.
			return OfferOutcome{}, nil
		}
		if q.opt.Overflow == Grow {
			q.push(env)
			return OfferOutcome{WasEmpty: wasEmpty, GrewTo: outcome.GrewTo}, nil
		}
		// DropOldest freed a slot; fall through to enqueue below.
	}

	q.push(env)
	return OfferOutcome{WasEmpty: wasEmpty}, nil
}

// handleOverflow applies the configured policy when a limit has already
// been reached. It returns a non-nil error for policies that reject the
// message outright, and a zero-value result with nil error for DropOldest
// (which frees room for the caller to push) and DeadLetter (which consumes
// the message itself).
func (q *mailboxQueue) handleOverflow(env PriorityEnvelope) (OfferOutcome, error) {
	switch q.opt.Overflow {
	case DropOldest:
		if !q.evictOldestRegular() {
			rejected := env
			return OfferOutcome{}, &QueueError{Kind: QueueErrFull, Rejected: &rejected}
		}
		return OfferOutcome{}, nil

	case DropNewest:
		rejected := env
		return OfferOutcome{}, &QueueError{Kind: QueueErrFull, Rejected: &rejected}

	case BlockProducer:
		rejected := env
		return OfferOutcome{}, &QueueError{Kind: QueueErrWouldBlock, Rejected: &rejected}

	case Reject:
		rejected := env
		return OfferOutcome{}, &QueueError{Kind: QueueErrFull, Rejected: &rejected}

	case DeadLetter:
		if q.deadLetter != nil {
			q.deadLetter(env)
		}
		return OfferOutcome{}, nil

	case Grow:
		q.capacity *= 2
		if q.capacity == 0 {
			q.capacity = 1
		}
		return OfferOutcome{GrewTo: q.capacity}, nil

	default:
		rejected := env
		return OfferOutcome{}, &QueueError{Kind: QueueErrFull, Rejected: &rejected}
	}
}

// evictOldestRegular drops the oldest (head) message in the lowest-ranked
// Regular bucket, reporting whether one existed to evict. Control messages
// are never evicted by DropOldest (spec.md §4.1).
func (q *mailboxQueue) evictOldestRegular() bool {
	// Ranks are stored descending; walk from the back (lowest rank) to
	// find the first Regular bucket.
	for i := len(q.ranks) - 1; i >= 0; i-- {
		rank := q.ranks[i]
		bucket := q.buckets[rank]
		if len(bucket) == 0 || bucket[0].Channel != Regular {
			continue
		}
		q.buckets[rank] = bucket[1:]
		q.regularCount--
		if len(q.buckets[rank]) == 0 {
			delete(q.buckets, rank)
			q.ranks = append(q.ranks[:i], q.ranks[i+1:]...)
		}
		return true
	}
	return false
}

func (q *mailboxQueue) push(env PriorityEnvelope) {
	rank := env.rank()
	if _, ok := q.buckets[rank]; !ok {
		idx := sort.Search(len(q.ranks), func(i int) bool { return q.ranks[i] <= rank })
		q.ranks = append(q.ranks, 0)
		copy(q.ranks[idx+1:], q.ranks[idx:])
		q.ranks[idx] = rank
	}
	q.buckets[rank] = append(q.buckets[rank], env)
	if env.Channel == Control {
		q.controlCount++
	} else {
		q.regularCount++
	}
}

// poll removes and returns the highest-ranked head envelope. ok is false
// when the queue currently holds nothing; err is non-nil only once the
// queue is closed and fully drained (Disconnected).
func (q *mailboxQueue) poll() (env PriorityEnvelope, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ranks) == 0 {
		if q.closed {
			return PriorityEnvelope{}, false, &QueueError{Kind: QueueErrDisconnected}
		}
		return PriorityEnvelope{}, false, nil
	}

	rank := q.ranks[0]
	bucket := q.buckets[rank]
	env = bucket[0]
	q.buckets[rank] = bucket[1:]
	if len(q.buckets[rank]) == 0 {
		delete(q.buckets, rank)
		q.ranks = q.ranks[1:]
	}
	if env.Channel == Control {
		q.controlCount--
	} else {
		q.regularCount--
	}
	return env, true, nil
}

// close marks the queue closed; subsequent offers fail with Closed, and
// poll returns Disconnected once the remaining items have been drained.
func (q *mailboxQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *mailboxQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
