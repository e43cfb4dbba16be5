// Package actor implements a portable actor execution engine: a mailbox
// subsystem with priority-aware queues and pluggable overflow policies, a
// ready-queue scheduler shared by a worker pool, an actor execution cell that
// turns user behavior failures into supervision decisions, and a guardian
// tree that escalates faults root-ward with hop counting.
//
// The package intentionally stops short of concrete executor/timer bindings,
// wire serialization, remote transport, and telemetry backends. Those are
// collaborator contracts (see Spawn, Timer, MetricsSink, FailureTelemetry)
// that callers supply; this package only consumes them.
package actor
