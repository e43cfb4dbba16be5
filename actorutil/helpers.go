// Package actorutil provides convenience helpers layered on top of the
// actor package's ActorRef/Pool primitives: broadcast and fan-out patterns
// that would otherwise be hand-rolled at every call site.
package actorutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/nodalrun/actorcore/actor"
)

// AskTyped is like ActorRef.Ask but with an additional type assertion on
// the response, useful when R is a union/interface response type and the
// caller needs one specific concrete type out of it.
func AskTyped[M, R, T any](
	ctx context.Context,
	ref actor.ActorRef[M, R],
	msg M,
) (T, error) {

	resp, err := ref.Ask(ctx, msg)
	if err != nil {
		var zero T
		return zero, err
	}

	typed, ok := any(resp).(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf(
			"unexpected response type: got %T, want %T",
			resp, zero,
		)
	}

	return typed, nil
}

// TellAll sends msg to every ref using fire-and-forget semantics, for
// broadcasting to a heterogeneous set of actors (e.g. every watcher of a
// shutdown event).
func TellAll[M any](refs []actor.TellOnlyRef[M], msg M, opts ...actor.TellOption) {
	for _, ref := range refs {
		_ = ref.Tell(msg, opts...)
	}
}

// ParallelAsk sends msgs[i] to refs[i] concurrently and collects all
// results in the same order as the input refs. refs and msgs must have the
// same length.
func ParallelAsk[M, R any](
	ctx context.Context,
	refs []actor.ActorRef[M, R],
	msgs []M,
) []fn.Result[R] {

	if len(refs) != len(msgs) {
		panic("actorutil: refs and msgs must have same length")
	}

	results := make([]fn.Result[R], len(refs))
	var wg sync.WaitGroup
	wg.Add(len(refs))
	for i := range refs {
		go func(i int) {
			defer wg.Done()
			val, err := refs[i].Ask(ctx, msgs[i])
			if err != nil {
				results[i] = fn.Err[R](err)
				return
			}
			results[i] = fn.Ok(val)
		}(i)
	}
	wg.Wait()

	return results
}

// ParallelAskSame sends the same message to every ref concurrently,
// collecting results in the same order as refs.
func ParallelAskSame[M, R any](
	ctx context.Context,
	refs []actor.ActorRef[M, R],
	msg M,
) []fn.Result[R] {

	msgs := make([]M, len(refs))
	for i := range msgs {
		msgs[i] = msg
	}
	return ParallelAsk(ctx, refs, msgs)
}

// FirstSuccess sends msg to every ref concurrently and returns the first
// successful reply. If every ref fails, the last observed error is
// returned. Outstanding requests are not cancelled once a winner is found;
// the caller's ctx governs overall deadline.
func FirstSuccess[M, R any](
	ctx context.Context,
	refs []actor.ActorRef[M, R],
	msg M,
) (R, error) {

	if len(refs) == 0 {
		var zero R
		return zero, fmt.Errorf("actorutil: no actors provided")
	}

	type outcome struct {
		val R
		err error
	}
	resultCh := make(chan outcome, len(refs))

	for _, ref := range refs {
		go func(r actor.ActorRef[M, R]) {
			val, err := r.Ask(ctx, msg)
			resultCh <- outcome{val: val, err: err}
		}(ref)
	}

	var lastErr error
	for i := 0; i < len(refs); i++ {
		select {
		case res := <-resultCh:
			if res.err == nil {
				return res.val, nil
			}
			lastErr = res.err
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		}
	}

	var zero R
	return zero, lastErr
}

// MapResponses transforms a slice of results using mapFn, passing error
// results through unchanged.
func MapResponses[R any, T any](
	results []fn.Result[R],
	mapFn func(R) T,
) []fn.Result[T] {

	mapped := make([]fn.Result[T], len(results))
	for i, r := range results {
		val, err := r.Unpack()
		if err != nil {
			mapped[i] = fn.Err[T](err)
		} else {
			mapped[i] = fn.Ok(mapFn(val))
		}
	}
	return mapped
}

// CollectSuccesses filters results down to the successful values, in order,
// discarding errors.
func CollectSuccesses[R any](results []fn.Result[R]) []R {
	var successes []R
	for _, r := range results {
		val, err := r.Unpack()
		if err == nil {
			successes = append(successes, val)
		}
	}
	return successes
}

// AllSucceeded reports whether every result in results succeeded.
func AllSucceeded[R any](results []fn.Result[R]) bool {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return false
		}
	}
	return true
}

// FirstError returns the first error among results, or nil if all
// succeeded.
func FirstError[R any](results []fn.Result[R]) error {
	for _, r := range results {
		if _, err := r.Unpack(); err != nil {
			return err
		}
	}
	return nil
}
