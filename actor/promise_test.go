package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

func TestPromiseCompleteThenAwaitSucceeds(t *testing.T) {
	p, f := NewPromise[int]()
	p.Complete(fn.Ok(7))

	val, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if val != 7 {
		t.Fatalf("expected 7, got %d", val)
	}
}

func TestPromiseCompleteIsOnceOnly(t *testing.T) {
	p, f := NewPromise[int]()
	p.Complete(fn.Ok(1))
	p.Complete(fn.Ok(2))

	val, err := f.Await(context.Background())
	if err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if val != 1 {
		t.Fatalf("expected the first Complete to win, got %d", val)
	}
}

func TestPromiseAwaitPropagatesCompletedError(t *testing.T) {
	p, f := NewPromise[int]()
	wantErr := errors.New("behavior failure")
	p.Complete(fn.Err[int](wantErr))

	_, err := f.Await(context.Background())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
}

func TestFutureAwaitCancelledByContext(t *testing.T) {
	_, f := NewPromise[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	if !errors.Is(err, ErrAskCancelled) {
		t.Fatalf("expected ErrAskCancelled, got %v", err)
	}
}

func TestFutureAwaitTimesOutWithoutCompletion(t *testing.T) {
	_, f := NewPromise[int]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.Await(ctx)
	if !errors.Is(err, ErrAskCancelled) {
		t.Fatalf("expected ErrAskCancelled on timeout, got %v", err)
	}
}
