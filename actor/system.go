package actor

import (
	"context"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// SystemConfig collects the configuration options recognized by the runtime
// facade (spec.md §6), mirroring the teacher's SystemConfig/DefaultConfig
// pair in internal/baselib/actor/system.go.
type SystemConfig struct {
	MailboxDefaults       MailboxOptions
	ThroughputQuota       int
	WorkerCount           int
	ReceiveTimeoutDefault fn.Option[time.Duration]

	Timer      Timer
	Spawn      Spawn
	Metrics    MetricsSink
	DeadLetter func(PriorityEnvelope)
}

// DefaultConfig matches spec.md §6's documented defaults: mailbox capacity
// 1000 with DropOldest and a 10-message system reserve, throughput quota 10,
// a single worker, no receive-timeout.
func DefaultConfig() SystemConfig {
	return SystemConfig{
		MailboxDefaults: DefaultMailboxOptions(),
		ThroughputQuota: 10,
		WorkerCount:     1,
		Timer:           GoTimer,
		Spawn:           GoSpawn,
	}
}

// SystemOption configures a SystemConfig via the functional-options pattern
// (SPEC_FULL.md §10.3, grounded on the teacher's RegisterOption shape in
// internal/baselib/actor/system.go).
type SystemOption func(*SystemConfig)

func WithMailboxCapacity(capacity int) SystemOption {
	return func(c *SystemConfig) { c.MailboxDefaults.Capacity = capacity }
}

func WithOverflowPolicy(p OverflowPolicy) SystemOption {
	return func(c *SystemConfig) { c.MailboxDefaults.Overflow = p }
}

func WithReserveForSystem(reserve int) SystemOption {
	return func(c *SystemConfig) { c.MailboxDefaults.ReserveForSystem = reserve }
}

func WithThroughputQuota(quota int) SystemOption {
	return func(c *SystemConfig) { c.ThroughputQuota = quota }
}

func WithWorkerCount(n int) SystemOption {
	return func(c *SystemConfig) { c.WorkerCount = n }
}

func WithReceiveTimeoutDefault(d time.Duration) SystemOption {
	return func(c *SystemConfig) { c.ReceiveTimeoutDefault = fn.Some(d) }
}

func WithTimer(t Timer) SystemOption {
	return func(c *SystemConfig) { c.Timer = t }
}

func WithSpawnCollaborator(s Spawn) SystemOption {
	return func(c *SystemConfig) { c.Spawn = s }
}

func WithMetricsSink(sink MetricsSink) SystemOption {
	return func(c *SystemConfig) { c.Metrics = sink }
}

func WithDeadLetterHandler(h func(PriorityEnvelope)) SystemOption {
	return func(c *SystemConfig) { c.DeadLetter = h }
}

// System is the runtime facade of spec.md §2/§6: it owns the ready-queue,
// the worker pool, the escalation graph, the extension registry, and the
// root guardian every top-level Spawn call hangs off of.
type System struct {
	config SystemConfig

	readyQueue *ReadyQueue
	worker     *Worker
	extensions *Extensions
	escalation *escalationGraph

	metrics    MetricsSink
	timer      Timer
	spawn      Spawn
	deadLetter func(PriorityEnvelope)

	rootCore   *cellCore
	rootHandle cellHandle

	registryMu sync.RWMutex
	registry   map[ActorId]*cellCore

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewActorSystem builds a System from DefaultConfig, overridden by opts, and
// starts its worker pool.
func NewActorSystem(opts ...SystemOption) *System {
	return NewActorSystemWithConfig(DefaultConfig(), opts...)
}

// NewActorSystemWithConfig builds a System starting from cfg, further
// overridden by opts.
func NewActorSystemWithConfig(cfg SystemConfig, opts ...SystemOption) *System {
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Spawn == nil {
		cfg.Spawn = GoSpawn
	}
	if cfg.Timer == nil {
		cfg.Timer = GoTimer
	}
	if cfg.MailboxDefaults.Capacity == 0 {
		cfg.MailboxDefaults = DefaultMailboxOptions()
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}

	sys := &System{
		config:     cfg,
		readyQueue: NewReadyQueue(),
		extensions: newExtensions(),
		escalation: newEscalationGraph(),
		metrics:    cfg.Metrics,
		timer:      cfg.Timer,
		spawn:      cfg.Spawn,
		deadLetter: cfg.DeadLetter,
		registry:   make(map[ActorId]*cellCore),
	}
	sys.worker = NewWorker(sys.readyQueue, cfg.ThroughputQuota, cfg.Timer, cfg.Spawn)
	sys.ctx, sys.cancel = context.WithCancel(context.Background())

	sys.initRoot()

	for i := 0; i < cfg.WorkerCount; i++ {
		sys.wg.Add(1)
		worker := sys.worker
		ctx := sys.ctx
		cfg.Spawn.Spawn(func() {
			defer sys.wg.Done()
			worker.Run(ctx)
		})
	}

	log.DebugS(sys.ctx, "actor system started",
		"workers", cfg.WorkerCount, "mailbox_capacity", cfg.MailboxDefaults.Capacity)

	return sys
}

// rootSignal is the root guardian's own message type. Nothing is ever told
// to the root directly; it exists only to anchor a cellCore and receive
// Control-channel lifecycle traffic (Stop, child Terminated reports).
type rootSignal struct{ BaseMessage }

func (sys *System) initRoot() {
	rootID := ActorId(sys.extensions.NextID())
	rootPath := RootPath().Append(rootID)
	rootMailbox := NewMailboxHandle(rootID, sys.config.MailboxDefaults, sys.deadLetterHook())
	rootMailbox.InstallMetricsSink(sys.metrics)

	rootCore := newCellCore(nil, rootID, rootPath, sys, rootMailbox)

	rootBehavior := NewFunctionBehavior(func(ctx Context, msg rootSignal) (BehaviorDirective[rootSignal, struct{}], struct{}, error) {
		return SameBehavior[rootSignal, struct{}](), struct{}{}, nil
	})
	rootCell := &ActorCell[rootSignal, struct{}]{
		core:           rootCore,
		producer:       func() Behavior[rootSignal, struct{}] { return rootBehavior },
		behavior:       rootBehavior,
		state:          Running,
		receiveTimeout: NoopReceiveTimeout(),
	}
	rootCore.index = sys.readyQueue.Register(rootMailbox, rootCell)

	sys.rootCore = rootCore
	sys.rootHandle = rootCell
	sys.register(rootCore)
}

func (sys *System) deadLetterHook() func(PriorityEnvelope) {
	return sys.deadLetter
}

func (sys *System) register(core *cellCore) {
	sys.registryMu.Lock()
	sys.registry[core.id] = core
	sys.registryMu.Unlock()
}

func (sys *System) unregister(id ActorId) {
	sys.registryMu.Lock()
	delete(sys.registry, id)
	sys.registryMu.Unlock()
}

func (sys *System) lookup(id ActorId) *cellCore {
	sys.registryMu.RLock()
	defer sys.registryMu.RUnlock()
	return sys.registry[id]
}

// Extensions returns the system-scoped registry (SPEC_FULL.md §12.5).
func (sys *System) Extensions() *Extensions { return sys.extensions }

// SubscribeFailures installs a FailureEventListener on the root-escalation
// fan-out (spec.md §6's FailureEventStream contract).
func (sys *System) SubscribeFailures(l FailureEventListener) Subscription {
	return sys.escalation.subscribe(l)
}

// AddFailureTelemetry installs a FailureTelemetry sink, invoked on the
// escalation path once a failure reaches root (spec.md §6).
func (sys *System) AddFailureTelemetry(t FailureTelemetry) {
	sys.escalation.addTelemetry(t)
}

// Spawn creates a top-level actor as a child of sys's root guardian. It is a
// package-level function rather than a *System method because Go methods
// cannot carry type parameters of their own independent of the receiver's.
func Spawn[M, R any](sys *System, props Props[M, R], naming ChildNaming) (ActorRef[M, R], error) {
	_, ref, err := newActorCell(sys.rootCore, props, naming)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// SpawnChild creates a child of an existing actor addressed by parentID, for
// collaborators that hold only an ActorId (e.g. a supervised worker pool)
// rather than a live Context.
func SpawnChild[M, R any](sys *System, parentID ActorId, props Props[M, R], naming ChildNaming) (ActorRef[M, R], error) {
	parent := sys.lookup(parentID)
	if parent == nil {
		return nil, ErrActorTerminated
	}
	_, ref, err := newActorCell(parent, props, naming)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// Shutdown asks the root guardian's entire tree to stop, cancels the
// system's internal context so parked workers wake and exit, and waits for
// the worker pool to drain or ctx to expire, whichever comes first
// (grounded on the teacher's ActorSystem.Shutdown(ctx) in
// internal/baselib/actor/system.go).
func (sys *System) Shutdown(ctx context.Context) error {
	_ = sys.rootHandle.applyDirective(StopD, BehaviorFailure{})
	sys.cancel()

	done := make(chan struct{})
	go func() {
		sys.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
