package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Promise and Future implement the Ask request/reply contract of spec.md
// §6 ("ask(msg) → Future<Result<Reply, AskError>>"), grounded on the
// teacher's Future[T]/Promise[T] pair in
// internal/baselib/actor/interface.go, expressed with fn.Result rather than
// a raw (T, error) pair per SPEC_FULL.md §10.2.
type Future[T any] struct {
	ch <-chan fn.Result[T]
}

// Await blocks until the promise is completed or ctx is done. A context
// cancellation surfaces as AskError wrapping ErrAskCancelled, never as the
// raw context error, so callers can use errors.Is uniformly.
func (f Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case r, ok := <-f.ch:
		if !ok {
			var zero T
			return zero, ErrAskDeadLetter
		}
		return r.Unpack()
	case <-ctx.Done():
		var zero T
		return zero, ErrAskCancelled
	}
}

// Promise is the write side of a Future. Complete is safe to call at most
// meaningfully once; subsequent calls are no-ops.
type Promise[T any] struct {
	ch   chan fn.Result[T]
	once *sync.Once
}

// NewPromise returns a linked Promise/Future pair with a buffered channel of
// size 1 so Complete never blocks on a producer that races with an
// abandoned Future.
func NewPromise[T any]() (Promise[T], Future[T]) {
	ch := make(chan fn.Result[T], 1)
	p := Promise[T]{ch: ch, once: &sync.Once{}}
	return p, Future[T]{ch: ch}
}

// Complete resolves the promise with result. Only the first call has any
// effect.
func (p Promise[T]) Complete(result fn.Result[T]) {
	p.once.Do(func() {
		p.ch <- result
		close(p.ch)
	})
}
