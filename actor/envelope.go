package actor

// PriorityEnvelope is the uniform wrapper every message is boxed into before
// it touches a mailbox (spec.md §3, component A). The queue driver, signal,
// handle and ready-queue layers only ever see PriorityEnvelope — they are
// deliberately type-erased so one scheduler can drive cells of unrelated
// message types. The generic actor-cell layer (cell.go) is responsible for
// boxing/unboxing Payload into the caller's concrete M/R types.
type PriorityEnvelope struct {
	Priority int8
	Channel  Channel
	Payload  any
	Metadata *MessageMetadata
}

// NewEnvelope constructs a Regular-channel envelope at the given priority.
func NewEnvelope(payload any, priority int8) PriorityEnvelope {
	return PriorityEnvelope{Priority: priority, Channel: Regular, Payload: payload}
}

// NewControlEnvelope constructs a Control-channel envelope. Control
// envelopes always outrank Regular envelopes at equal Priority (spec.md
// §3).
func NewControlEnvelope(payload any, priority int8) PriorityEnvelope {
	return PriorityEnvelope{Priority: priority, Channel: Control, Payload: payload}
}

// rank produces a single comparable key such that higher values dequeue
// first: Control always outranks Regular at equal Priority.
func (e PriorityEnvelope) rank() int16 {
	r := int16(e.Priority) * 2
	if e.Channel == Control {
		r++
	}
	return r
}

// OverflowPolicy enumerates the pluggable behaviors a mailbox queue driver
// applies when offer() hits capacity (spec.md §3, §4.1).
type OverflowPolicy uint8

const (
	// DropOldest evicts the head of the lowest-priority Regular bucket to
	// make room; if only Control remains, the offer fails with Full.
	DropOldest OverflowPolicy = iota
	// DropNewest rejects the incoming message, returning Full.
	DropNewest
	// BlockProducer returns WouldBlock; the caller is expected to retry,
	// typically via an async wait helper. The worker never takes this
	// path itself (spec.md §9: "Suspension over blocking").
	BlockProducer
	// Reject returns Full; the caller handles it.
	Reject
	// DeadLetter hands the message to the dead-letter hub and reports
	// success to the original caller.
	DeadLetter
	// Grow allocates additional capacity and reports GrewTo{capacity}.
	Grow
)

func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case BlockProducer:
		return "block-producer"
	case Reject:
		return "reject"
	case DeadLetter:
		return "dead-letter"
	case Grow:
		return "grow"
	default:
		return "unknown"
	}
}

// MailboxConcurrency selects the locking strategy a mailbox queue driver
// uses internally. Go has no compile-time target-conditional compilation
// equivalent to the source architecture's "platforms without pointer
// atomics" bound (spec.md §5), so this is reified as a construction-time
// choice between a no-op lock and a real mutex (SPEC_FULL.md §12.7).
type MailboxConcurrency uint8

const (
	// ThreadSafe uses a real mutex; safe to share a handle across
	// goroutines. The default, and the only sound choice on a hosted Go
	// runtime with real parallelism.
	ThreadSafe MailboxConcurrency = iota
	// SingleThreaded uses a no-op lock, shaving the synchronization cost
	// on a build known to confine a mailbox to one goroutine (an
	// embedded-style cooperative scheduler built atop this package).
	SingleThreaded
)

// MailboxOptions configures a mailbox's capacity, overflow behavior, and
// Control-traffic reservation (spec.md §3).
type MailboxOptions struct {
	// Capacity must be non-zero.
	Capacity int
	Overflow OverflowPolicy
	// ReserveForSystem is capacity withheld from Regular traffic so
	// Control traffic can always enqueue until the reserve itself is
	// exhausted.
	ReserveForSystem int
	Concurrency      MailboxConcurrency
}

// DefaultMailboxOptions matches the runtime facade defaults named in
// spec.md §6.
func DefaultMailboxOptions() MailboxOptions {
	return MailboxOptions{
		Capacity:         1000,
		Overflow:         DropOldest,
		ReserveForSystem: 10,
		Concurrency:      ThreadSafe,
	}
}
