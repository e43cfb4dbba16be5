package actor

import (
	"errors"
	"fmt"
)

// Sentinel ask-pattern errors, matched with errors.Is. An AskError is never
// the behavior failure itself -- it only ever describes a problem in the
// delivery or reply plumbing (spec.md §7: behavior failures never propagate
// to the sender).
var (
	// ErrAskTimeout indicates the ask's deadline elapsed before a reply
	// arrived.
	ErrAskTimeout = errors.New("actor: ask timed out")

	// ErrAskCancelled indicates the caller's context was cancelled before
	// a reply arrived.
	ErrAskCancelled = errors.New("actor: ask cancelled")

	// ErrAskDeadLetter indicates the message could not be delivered and
	// was routed to the dead-letter sink instead.
	ErrAskDeadLetter = errors.New("actor: message routed to dead letters")

	// ErrAskInvalidReplyType indicates a reply arrived but did not match
	// the expected response type.
	ErrAskInvalidReplyType = errors.New("actor: invalid reply type")

	// ErrActorTerminated indicates an operation targeted an actor that has
	// already stopped.
	ErrActorTerminated = errors.New("actor: terminated")

	// ErrNameExists indicates an Explicit child name collided with an
	// already-living child.
	ErrNameExists = errors.New("actor: child name already exists")
)

// QueueErrorKind enumerates the closed set of ways a mailbox offer can be
// rejected (spec.md §7).
type QueueErrorKind uint8

const (
	// QueueErrFull indicates the mailbox was at capacity and the overflow
	// policy rejected the new message.
	QueueErrFull QueueErrorKind = iota
	// QueueErrClosed indicates the mailbox had already been closed.
	QueueErrClosed
	// QueueErrDisconnected indicates poll was called on a closed, fully
	// drained mailbox.
	QueueErrDisconnected
	// QueueErrWouldBlock indicates a BlockProducer mailbox had no room and
	// the caller must retry (possibly via an async wait helper).
	QueueErrWouldBlock
	// QueueErrAllocError indicates a Grow policy failed to acquire
	// additional capacity.
	QueueErrAllocError
)

func (k QueueErrorKind) String() string {
	switch k {
	case QueueErrFull:
		return "full"
	case QueueErrClosed:
		return "closed"
	case QueueErrDisconnected:
		return "disconnected"
	case QueueErrWouldBlock:
		return "would-block"
	case QueueErrAllocError:
		return "alloc-error"
	default:
		return "unknown"
	}
}

// QueueError is returned by a producer-facing offer when a message cannot be
// accepted. It carries the rejected value back to the caller (Full and Closed
// variants) so the caller can re-route it rather than losing it silently.
type QueueError struct {
	Kind QueueErrorKind

	// Rejected holds the envelope that could not be enqueued, present for
	// QueueErrFull and QueueErrClosed.
	Rejected *PriorityEnvelope
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("actor: mailbox offer failed: %s", e.Kind)
}

// Is enables errors.Is(err, target) matching against the Kind-specific
// sentinel values below.
func (e *QueueError) Is(target error) bool {
	qe, ok := target.(*QueueError)
	if !ok {
		return false
	}
	return qe.Kind == e.Kind && qe.Rejected == nil
}

// Sentinel QueueError values usable with errors.Is(err, actor.ErrQueueFull)
// style checks, ignoring the rejected payload.
var (
	ErrQueueFull          = &QueueError{Kind: QueueErrFull}
	ErrQueueClosed        = &QueueError{Kind: QueueErrClosed}
	ErrQueueDisconnected  = &QueueError{Kind: QueueErrDisconnected}
	ErrQueueWouldBlock    = &QueueError{Kind: QueueErrWouldBlock}
	ErrQueueAllocFailed   = &QueueError{Kind: QueueErrAllocError}
)

// SpawnErrorKind enumerates why a spawn request failed.
type SpawnErrorKind uint8

const (
	// SpawnErrQueue indicates the parent's internal bookkeeping mailbox
	// rejected the spawn request (the parent is overloaded or shutting
	// down).
	SpawnErrQueue SpawnErrorKind = iota
	// SpawnErrNameExists indicates Explicit naming collided with a living
	// child.
	SpawnErrNameExists
)

// SpawnError is returned by Spawn when a new actor could not be created.
type SpawnError struct {
	Kind  SpawnErrorKind
	Name  string
	Queue *QueueError
}

func (e *SpawnError) Error() string {
	switch e.Kind {
	case SpawnErrNameExists:
		return fmt.Sprintf("actor: spawn failed: name %q already exists", e.Name)
	default:
		if e.Queue != nil {
			return fmt.Sprintf("actor: spawn failed: %v", e.Queue)
		}
		return "actor: spawn failed"
	}
}

func (e *SpawnError) Unwrap() error {
	if e.Queue != nil {
		return e.Queue
	}
	return nil
}

func (e *SpawnError) Is(target error) bool {
	return target == ErrNameExists && e.Kind == SpawnErrNameExists
}

// ParseErrorKind enumerates the ways a PID external URI form can fail to
// parse (spec.md §6).
type ParseErrorKind uint8

const (
	ParseErrMissingScheme ParseErrorKind = iota
	ParseErrMissingSystem
	ParseErrInvalidPort
	ParseErrInvalidPathSegment
)

func (k ParseErrorKind) String() string {
	switch k {
	case ParseErrMissingScheme:
		return "missing scheme"
	case ParseErrMissingSystem:
		return "missing system"
	case ParseErrInvalidPort:
		return "invalid port"
	case ParseErrInvalidPathSegment:
		return "invalid path segment"
	default:
		return "unknown"
	}
}

// ParseError is returned by ParsePID when a PID external URI cannot be
// parsed.
type ParseError struct {
	Kind  ParseErrorKind
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("actor: cannot parse PID %q: %s", e.Input, e.Kind)
}
