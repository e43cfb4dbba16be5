package actor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type echoMessage struct {
	BaseMessage
	value int
}

type echoBehavior struct {
	BaseBehavior
}

func (echoBehavior) Receive(ctx Context, msg echoMessage) (BehaviorDirective[echoMessage, int], int, error) {
	return SameBehavior[echoMessage, int](), msg.value, nil
}

// TestSystemAskReplyRoundTrip covers the most basic facade contract: a
// spawned actor answers Ask with the value its Receive returns.
func TestSystemAskReplyRoundTrip(t *testing.T) {
	sys := NewActorSystem()
	defer sys.Shutdown(context.Background())

	props := NewProps(func() Behavior[echoMessage, int] { return echoBehavior{} })
	ref, err := Spawn(sys, props, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	val, err := ref.Ask(context.Background(), echoMessage{value: 7})
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if val != 7 {
		t.Fatalf("expected 7, got %d", val)
	}
}

// panickingMessage tells the behavior to panic instead of computing a
// reply, exercising the invoke-recover-escalate path.
type panickingMessage struct {
	BaseMessage
	shouldPanic bool
	value       int
}

type panicCountingBehavior struct {
	BaseBehavior
	starts *atomic.Int64
}

func (b panicCountingBehavior) Receive(
	ctx Context, msg panickingMessage,
) (BehaviorDirective[panickingMessage, int], int, error) {
	if msg.shouldPanic {
		panic("intentional failure for restart test")
	}
	return SameBehavior[panickingMessage, int](), msg.value, nil
}

// TestSystemRestartOnPanicRecoversWithFreshState covers spec.md §8's
// restart-on-panic scenario: AlwaysRestart keeps the actor alive across a
// panicking Receive, and the restarted behavior is a fresh Producer()
// instance.
func TestSystemRestartOnPanicRecoversWithFreshState(t *testing.T) {
	sys := NewActorSystem()
	defer sys.Shutdown(context.Background())

	var starts atomic.Int64
	props := NewProps(func() Behavior[panickingMessage, int] {
		starts.Add(1)
		return panicCountingBehavior{starts: &starts}
	}).WithSupervisor(AlwaysRestart{})

	ref, err := Spawn(sys, props, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if starts.Load() != 1 {
		t.Fatalf("expected exactly one producer call at spawn time, got %d", starts.Load())
	}

	// Tell (not Ask) the panicking message -- Ask would report the dropped
	// promise as a failure, which isn't what this test is about.
	if err := ref.Tell(panickingMessage{shouldPanic: true}); err != nil {
		t.Fatalf("Tell failed: %v", err)
	}

	// Give the worker time to invoke, recover, and restart.
	deadline := time.Now().Add(time.Second)
	for starts.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if starts.Load() < 2 {
		t.Fatalf("expected the producer to be called again after restart, got %d calls", starts.Load())
	}

	// The actor must still be alive and answering asks after the restart.
	val, err := ref.Ask(context.Background(), panickingMessage{value: 99})
	if err != nil {
		t.Fatalf("Ask after restart failed: %v", err)
	}
	if val != 99 {
		t.Fatalf("expected 99, got %d", val)
	}
}

// errorBehavior returns an error whenever msg.fail is set and echoes
// msg.value otherwise -- used to drive a StopDirective supervisor without a
// panic.
type errorMessage struct {
	BaseMessage
	fail  bool
	value int
}

type errorBehavior struct {
	BaseBehavior
}

func (errorBehavior) Receive(ctx Context, msg errorMessage) (BehaviorDirective[errorMessage, int], int, error) {
	if msg.fail {
		return SameBehavior[errorMessage, int](), 0, errors.New("intentional behavior error")
	}
	return SameBehavior[errorMessage, int](), msg.value, nil
}

// TestSystemStopDirectiveTerminatesActor covers the Stop directive: a
// FixedDirectiveSupervisor{StopD} parent causes a failing child to
// terminate rather than restart.
func TestSystemStopDirectiveTerminatesActor(t *testing.T) {
	sys := NewActorSystem()
	defer sys.Shutdown(context.Background())

	props := NewProps(func() Behavior[errorMessage, int] { return errorBehavior{} }).
		WithSupervisor(FixedDirectiveSupervisor{Directive: StopD})

	ref, err := Spawn(sys, props, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if err := ref.Tell(errorMessage{fail: true}); err != nil {
		t.Fatalf("Tell failed: %v", err)
	}

	// Give the worker time to invoke, fail, and stop the cell.
	time.Sleep(100 * time.Millisecond)

	_, err = ref.AskWithTimeout(errorMessage{value: 1}, 200*time.Millisecond)
	if err == nil {
		t.Fatal("expected Ask against a stopped actor to fail")
	}
}

// TestSystemEscalationReachesRoot covers spec.md §8's three-level
// escalation scenario: a grandchild's failure, when every hop's supervisor
// strategy is Escalate, walks to the root guardian and is published to the
// subscribed FailureEventStream with the correct hop count.
func TestSystemEscalationReachesRoot(t *testing.T) {
	sys := NewActorSystem()
	defer sys.Shutdown(context.Background())

	var events []FailureEvent
	var mu sync.Mutex
	sub := sys.SubscribeFailures(FailureEventListenerFunc(func(ev FailureEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}))
	defer sub.Unsubscribe()

	escalator := SupervisorStrategyFunc(func(BehaviorFailure) SupervisorDirective { return Escalate })

	midProps := NewProps(func() Behavior[errorMessage, int] { return errorBehavior{} }).
		WithSupervisor(escalator)
	mid, err := Spawn(sys, midProps, AutoName())
	if err != nil {
		t.Fatalf("spawn mid: %v", err)
	}

	// Spawn the grandchild as a child of mid via SpawnChild, the path a
	// collaborator holding only mid's ActorId (rather than a live
	// Context) would take.
	leafProps := NewProps(func() Behavior[errorMessage, int] { return errorBehavior{} }).
		WithSupervisor(escalator)
	leafRef, err := SpawnChild(sys, mid.ID(), leafProps, AutoName())
	if err != nil {
		t.Fatalf("spawn leaf: %v", err)
	}

	if err := leafRef.Tell(errorMessage{fail: true}); err != nil {
		t.Fatalf("Tell: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("expected the failure to escalate to root and publish a FailureEvent")
	}
	if events[0].Info.Stage.Kind != EscalatedStage {
		t.Fatalf("expected EscalatedStage, got %v", events[0].Info.Stage.Kind)
	}
	if events[0].Info.Stage.Hops < 2 {
		t.Fatalf("expected at least 2 hops (leaf->mid, mid->root), got %d", events[0].Info.Stage.Hops)
	}
}

// TestSystemPriorityOrderingEndToEnd sends prioritized Tells through the
// full stack with a single worker and checks that every message is
// processed and that equal-priority messages keep their send order. It does
// not assert where the high-priority message lands.
func TestSystemPriorityOrderingEndToEnd(t *testing.T) {
	sys := NewActorSystem(WithWorkerCount(1))
	defer sys.Shutdown(context.Background())

	var mu sync.Mutex
	var order []int

	props := NewProps(func() Behavior[echoMessage, int] {
		return NewFunctionBehavior(func(ctx Context, msg echoMessage) (BehaviorDirective[echoMessage, int], int, error) {
			mu.Lock()
			order = append(order, msg.value)
			mu.Unlock()
			return SameBehavior[echoMessage, int](), msg.value, nil
		})
	}).WithMailbox(MailboxOptions{Capacity: 100, ReserveForSystem: 10})

	ref, err := Spawn(sys, props, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	// Send a burst of low-priority messages first, then a high-priority
	// one.
	for i := 0; i < 3; i++ {
		if err := ref.Tell(echoMessage{value: i}, WithPriority(0)); err != nil {
			t.Fatalf("Tell: %v", err)
		}
	}
	if err := ref.Tell(echoMessage{value: 100}, WithPriority(9)); err != nil {
		t.Fatalf("Tell: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n >= 4 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 4 {
		t.Fatalf("expected 4 messages processed, got %d: %v", len(order), order)
	}
	// The low-priority messages were almost certainly drained individually
	// before the high-priority one was even sent (Tell returns once
	// enqueued, not once processed), so this test only asserts what the
	// mailbox guarantees unconditionally: FIFO among equal-priority
	// messages that are genuinely queued together.
	lowOrder := make([]int, 0, 3)
	for _, v := range order {
		if v != 100 {
			lowOrder = append(lowOrder, v)
		}
	}
	for i, v := range lowOrder {
		if v != i {
			t.Fatalf("expected FIFO order among equal-priority messages, got %v", lowOrder)
		}
	}
}

// TestSystemConfigDefaultsApplyToSpawnedActors verifies the runtime
// facade's documented options (spec.md §6) reach actors spawned with plain
// NewProps: mailbox capacity/overflow/reserve and the receive-timeout
// default all flow from SystemConfig unless the Props override them.
func TestSystemConfigDefaultsApplyToSpawnedActors(t *testing.T) {
	sys := NewActorSystem(
		WithSpawnCollaborator(SpawnFunc(func(func()) {})),
		// An inert timer: arming is observable via the cell's timeout
		// type without leaving a clock goroutine behind.
		WithTimer(TimerFunc(func(context.Context, Duration) <-chan struct{} {
			return make(chan struct{})
		})),
		WithMailboxCapacity(5000),
		WithOverflowPolicy(Reject),
		WithReserveForSystem(25),
		WithReceiveTimeoutDefault(time.Minute),
	)

	props := NewProps(func() Behavior[echoMessage, int] { return echoBehavior{} })
	ref, err := Spawn(sys, props, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	cell := cellFor(t, ref)

	if got := cell.core.mailbox.Capacity(); got != 5000 {
		t.Fatalf("expected the configured capacity 5000, got %d", got)
	}
	opt := cell.core.mailbox.queue.opt
	if opt.Overflow != Reject {
		t.Fatalf("expected the configured Reject policy, got %v", opt.Overflow)
	}
	if opt.ReserveForSystem != 25 {
		t.Fatalf("expected the configured reserve 25, got %d", opt.ReserveForSystem)
	}
	if _, ok := cell.receiveTimeout.(*timerReceiveTimeout); !ok {
		t.Fatalf("expected the system receive-timeout default to arm a timer, got %T", cell.receiveTimeout)
	}

	// Per-actor Props still win over the system defaults.
	overridden := NewProps(func() Behavior[echoMessage, int] { return echoBehavior{} }).
		WithMailbox(MailboxOptions{Capacity: 7, Overflow: DropNewest})
	ref2, err := Spawn(sys, overridden, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if got := cellFor(t, ref2).core.mailbox.Capacity(); got != 7 {
		t.Fatalf("expected the Props override capacity 7, got %d", got)
	}
}

// timeoutAwareBehavior observes the synthetic ReceiveTimeout control
// message via the ReceiveTimeoutAware optional interface.
type timeoutAwareBehavior struct {
	BaseBehavior
	fired chan struct{}
}

func (b timeoutAwareBehavior) Receive(ctx Context, msg echoMessage) (BehaviorDirective[echoMessage, int], int, error) {
	return SameBehavior[echoMessage, int](), msg.value, nil
}

func (b timeoutAwareBehavior) OnReceiveTimeout(Context) {
	select {
	case b.fired <- struct{}{}:
	default:
	}
}

// TestSystemReceiveTimeoutDeliversControlMessage covers spec.md §8's
// receive-timeout scenario end to end through the facade: an actor spawned
// under a system-wide receive_timeout.default handles one user message,
// then goes idle and observes a synthetic ReceiveTimeout shortly after.
func TestSystemReceiveTimeoutDeliversControlMessage(t *testing.T) {
	sys := NewActorSystem(WithReceiveTimeoutDefault(10 * time.Millisecond))
	defer sys.Shutdown(context.Background())

	fired := make(chan struct{}, 1)
	props := NewProps(func() Behavior[echoMessage, int] {
		return timeoutAwareBehavior{fired: fired}
	})
	ref, err := Spawn(sys, props, AutoName())
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	// Ask rather than Tell so the user message is known to be handled
	// before the idle period starts.
	if _, err := ref.Ask(context.Background(), echoMessage{value: 1}); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a ReceiveTimeout control message after the idle period")
	}
}

// TestSystemShutdownIsGoroutineLeakFree verifies that spinning up a system
// with several workers and actors, then shutting it down, leaves no
// goroutines behind.
func TestSystemShutdownIsGoroutineLeakFree(t *testing.T) {
	defer goleak.VerifyNone(t)

	sys := NewActorSystem(WithWorkerCount(4))

	props := NewProps(func() Behavior[echoMessage, int] { return echoBehavior{} })
	for i := 0; i < 5; i++ {
		if _, err := Spawn(sys, props, AutoName()); err != nil {
			t.Fatalf("Spawn failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sys.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}
