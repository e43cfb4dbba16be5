// Command actorcore-demo is a minimal, non-interactive program exercising a
// three-level supervision hierarchy (root -> coordinator -> worker pool)
// under prioritized traffic. It takes no subcommands and reads no config
// file; everything is a flag, mirroring the teacher's daemon entrypoints
// without adopting their CLI surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btclog/v2"

	"github.com/nodalrun/actorcore/actor"
)

// coordinatorMsg is the sealed message type the coordinator actor accepts:
// a one-time worker-pool init, a work item to route, or a ping.
type coordinatorMsg interface {
	actor.Message
}

type initWorkers struct {
	actor.BaseMessage
	Count int
}

type dispatchWork struct {
	actor.BaseMessage
	Item workItem
}

type pingCoordinator struct {
	actor.BaseMessage
}

// workItem is routed to a worker. Its Priority implements
// actor.PriorityMessage so Tell orders it without the caller passing
// actor.WithPriority explicitly.
type workItem struct {
	actor.BaseMessage
	Prio    int8
	Payload string
}

func (w workItem) Priority() int8 { return w.Prio }

// workResult is both the coordinator's and the workers' reply type.
type workResult struct {
	Worker string
	Echo   string
}

// coordinatorBehavior spawns its own worker children on initWorkers (giving
// the demo its third supervision level) and round-robins dispatchWork
// across them.
type coordinatorBehavior struct {
	actor.BaseBehavior

	sys     *actor.System
	workers []actor.ActorRef[workItem, workResult]
	next    int
}

func newCoordinatorBehavior(sys *actor.System) actor.Producer[coordinatorMsg, workResult] {
	return func() actor.Behavior[coordinatorMsg, workResult] {
		return &coordinatorBehavior{sys: sys}
	}
}

func (b *coordinatorBehavior) Receive(
	ctx actor.Context, msg coordinatorMsg,
) (actor.BehaviorDirective[coordinatorMsg, workResult], workResult, error) {

	switch m := msg.(type) {
	case initWorkers:
		for i := 0; i < m.Count; i++ {
			props := actor.NewProps[workItem, workResult](newWorkerBehavior)
			ref, err := actor.SpawnChild[workItem, workResult](
				b.sys, ctx.Self(), props, actor.PrefixedName("worker"),
			)
			if err != nil {
				ctx.Log().WarnS(ctx, "worker spawn failed", err, "index", i)
				continue
			}
			b.workers = append(b.workers, ref)
		}
		ctx.Log().InfoS(ctx, "worker pool ready", "count", len(b.workers))
		return actor.SameBehavior[coordinatorMsg, workResult](), workResult{}, nil

	case dispatchWork:
		if len(b.workers) == 0 {
			return actor.SameBehavior[coordinatorMsg, workResult](), workResult{}, errors.New("no workers available")
		}
		worker := b.workers[b.next%len(b.workers)]
		b.next++
		if err := worker.Tell(m.Item); err != nil {
			ctx.Log().WarnS(ctx, "dispatch failed", err, "payload", m.Item.Payload)
		}
		return actor.SameBehavior[coordinatorMsg, workResult](), workResult{Worker: worker.Path().String()}, nil

	case pingCoordinator:
		return actor.SameBehavior[coordinatorMsg, workResult](), workResult{Echo: "pong"}, nil

	default:
		return actor.SameBehavior[coordinatorMsg, workResult](), workResult{}, nil
	}
}

// workerBehavior echoes its payload, except the sentinel "boom" payload,
// which fails the behavior to exercise supervision and restart.
type workerBehavior struct {
	actor.BaseBehavior
}

func newWorkerBehavior() actor.Behavior[workItem, workResult] {
	return workerBehavior{}
}

func (w workerBehavior) Receive(
	ctx actor.Context, msg workItem,
) (actor.BehaviorDirective[workItem, workResult], workResult, error) {

	if msg.Payload == "boom" {
		return actor.SameBehavior[workItem, workResult](), workResult{}, errors.New("simulated worker failure")
	}

	ctx.Log().InfoS(ctx, "worker handled item", "payload", msg.Payload, "priority", msg.Prio)
	return actor.SameBehavior[workItem, workResult](), workResult{
		Worker: ctx.Path().String(),
		Echo:   msg.Payload,
	}, nil
}

func main() {
	var (
		workers  = flag.Int("workers", 1, "Number of pooled worker actors under the coordinator")
		duration = flag.Duration("duration", 3*time.Second, "How long to run before shutting down")
	)
	flag.Parse()

	handler := btclog.NewDefaultHandler(os.Stderr)
	actor.UseLogger(btclog.NewSLogger(handler))

	sys := actor.NewActorSystem(
		actor.WithWorkerCount(4),
		actor.WithThroughputQuota(8),
		actor.WithReserveForSystem(4),
	)

	coordProps := actor.NewProps[coordinatorMsg, workResult](newCoordinatorBehavior(sys)).
		WithSupervisor(actor.AlwaysRestart{})
	coordRef, err := actor.Spawn(sys, coordProps, actor.ExplicitName("coordinator"))
	if err != nil {
		log.Fatalf("failed to spawn coordinator: %v", err)
	}

	if err := coordRef.Tell(initWorkers{Count: *workers}); err != nil {
		log.Fatalf("failed to initialize worker pool: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received interrupt, shutting down early")
		cancel()
	}()

	payloads := []workItem{
		{Prio: 0, Payload: "low-priority-report"},
		{Prio: 0, Payload: "boom"},
		{Prio: 5, Payload: "urgent-alert"},
		{Prio: 0, Payload: "low-priority-cleanup"},
	}
	for _, item := range payloads {
		if err := coordRef.Tell(dispatchWork{Item: item}); err != nil {
			log.Printf("dispatch failed: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if reply, err := coordRef.AskWithTimeout(pingCoordinator{}, time.Second); err != nil {
		log.Printf("ping failed: %v", err)
	} else {
		fmt.Printf("coordinator ping reply: %s\n", reply.Echo)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := sys.Shutdown(shutdownCtx); err != nil {
		log.Printf("actor system shutdown incomplete: %v", err)
	}
}
