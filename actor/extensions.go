package actor

import "sync"

// ExtensionKey is a typed handle for registering and looking up a
// system-scoped singleton collaborator (a shared MetricsSink, a shared
// FailureEventStream) without threading it through every constructor
// (SPEC_FULL.md §12.5, grounded on cellex-rs's extension.rs and spec.md
// §9's "the only process-wide state is an extension id allocator").
type ExtensionKey[T any] struct {
	name string
}

// NewExtensionKey builds a key identified by name. Two keys with the same
// name and type collide by design — callers should namespace name the way
// they'd namespace a context key.
func NewExtensionKey[T any](name string) ExtensionKey[T] {
	return ExtensionKey[T]{name: name}
}

// Extensions is the system-scoped registry plus the monotonic id allocator
// spec.md §9 names as the only permitted process-wide state. Both are
// owned by, initialized with, and torn down alongside a System.
type Extensions struct {
	mu     sync.Mutex
	values map[string]any
	nextID uint64
}

func newExtensions() *Extensions {
	return &Extensions{values: make(map[string]any)}
}

// NextID returns the next value from the monotonic allocator, starting at
// 1. Used to mint ActorIds and similar system-scoped sequence numbers.
func (e *Extensions) NextID() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return e.nextID
}

// RegisterExtension installs value under key, replacing any prior value.
func RegisterExtension[T any](e *Extensions, key ExtensionKey[T], value T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key.name] = value
}

// LookupExtension retrieves the value registered under key, if any.
func LookupExtension[T any](e *Extensions, key ExtensionKey[T]) (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var zero T
	v, ok := e.values[key.name]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
