package actor

import "github.com/google/uuid"

// Message is the sealed marker interface every user payload must implement.
// Embedding BaseMessage satisfies it, matching the teacher's
// Message/BaseMessage pairing in internal/baselib/actor/interface.go.
type Message interface {
	isMessage()
}

// BaseMessage is embedded by concrete message types to satisfy Message
// without boilerplate.
type BaseMessage struct{}

func (BaseMessage) isMessage() {}

// PriorityMessage lets a payload declare its own priority instead of relying
// on the caller-supplied default, used by Tell when the payload implements
// it.
type PriorityMessage interface {
	Message
	Priority() int8
}

// Channel distinguishes the two delivery lanes a mailbox multiplexes
// (spec.md §3, §4.1). Control always outranks Regular at equal priority.
type Channel uint8

const (
	Regular Channel = iota
	Control
)

func (c Channel) String() string {
	if c == Control {
		return "control"
	}
	return "regular"
}

// SystemMessage is the closed sum type of lifecycle traffic, always sent on
// the Control channel (spec.md §3). Each variant is a distinct type so
// callers type-switch on concrete types rather than a discriminant field.
type SystemMessage interface {
	Message
	isSystemMessage()
}

type baseSystemMessage struct{ BaseMessage }

func (baseSystemMessage) isSystemMessage() {}

// StopMessage requests a graceful stop of the receiving actor.
type StopMessage struct{ baseSystemMessage }

// RestartMessage requests the receiving actor tear down and reinitialize its
// behavior in place.
type RestartMessage struct {
	baseSystemMessage
	Cause error
}

// SuspendMessage requests the receiving actor stop processing Regular
// traffic until a matching Resume arrives.
type SuspendMessage struct{ baseSystemMessage }

// ResumeMessage lifts a prior Suspend.
type ResumeMessage struct{ baseSystemMessage }

// WatchMessage registers the sender as a watcher of the receiving actor.
type WatchMessage struct {
	baseSystemMessage
	Watcher ActorId
}

// UnwatchMessage removes a previously registered watcher.
type UnwatchMessage struct {
	baseSystemMessage
	Watcher ActorId
}

// TerminatedMessage is delivered to every watcher of an actor once that
// actor reaches ActorState Stopped.
type TerminatedMessage struct {
	baseSystemMessage
	Who ActorId
}

// ReceiveTimeoutMessage is the synthetic Control message the receive-timeout
// scheduler enqueues on expiry (spec.md §4.8).
type ReceiveTimeoutMessage struct{ baseSystemMessage }

var (
	_ SystemMessage = StopMessage{}
	_ SystemMessage = RestartMessage{}
	_ SystemMessage = SuspendMessage{}
	_ SystemMessage = ResumeMessage{}
	_ SystemMessage = WatchMessage{}
	_ SystemMessage = UnwatchMessage{}
	_ SystemMessage = TerminatedMessage{}
	_ SystemMessage = ReceiveTimeoutMessage{}
)

// MessageMetadata carries the sender reference, correlation id, and optional
// reply address for a message, attached out-of-band from a small key stored
// on the envelope rather than as fields every payload must carry (spec.md
// §3: "attached out-of-band via a per-message key so the envelope stays
// small").
type MessageMetadata struct {
	Sender        ActorId
	HasSender     bool
	CorrelationID uuid.UUID
	ReplyTo       ActorId
	HasReplyTo    bool
}

// NewCorrelationID mints a fresh correlation id for an ask-pattern request.
func NewCorrelationID() uuid.UUID {
	return uuid.New()
}
