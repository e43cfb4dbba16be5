package actor

import (
	"context"
	"sync"
)

// Signal is the park/notify handshake between a mailbox's producers and its
// consumer (spec.md §3, §4.2). Notify is idempotent: any number of calls
// before the next Wait coalesce into a single latched wakeup. The common
// case is one waiter at a time (one actor cell consuming its own mailbox);
// Signal also supports multiple concurrent waiters, each of which is woken
// on the next Notify, for collaborators (ready-queue workers parking on a
// shared empty ready set) that need fan-out wakeups.
type Signal struct {
	mu      sync.Mutex
	latched bool
	waiters []chan struct{}
}

// NewSignal returns an unlatched Signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Notify sets the latch and wakes every goroutine currently parked in Wait.
// Calling Notify repeatedly before anyone waits still results in exactly
// one pending wakeup being observed by the next Wait call.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latched = true
	for _, w := range s.waiters {
		close(w)
	}
	s.waiters = s.waiters[:0]
}

// Wait blocks until Notify has been observed (clearing the latch) or ctx is
// done, whichever comes first. It returns ctx.Err() on cancellation and nil
// on a successful wakeup.
func (s *Signal) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.latched {
		s.latched = false
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		s.removeWaiter(ch)
		return ctx.Err()
	}
}

// removeWaiter drops ch from the waiter list if it was never closed by a
// concurrent Notify, avoiding a leaked slice entry after a cancelled Wait.
func (s *Signal) removeWaiter(ch chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.waiters {
		if w == ch {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}
