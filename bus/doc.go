// Package bus broadcasts task lifecycle events to observers.
//
// # Overview
//
// The MessageBus interface is a pub/sub layer the orchestration engine
// publishes status transitions through. Every persisted transition for
// task t1 is published as JSON on "task.t1.status"; a monitor watches
// one task or the whole fleet with the usual NATS wildcards.
//
// # Available Implementations
//
//   - NATSBus: cross-process messaging over a NATS connection
//   - MemoryBus: in-memory implementation for testing and single-process use
//
// # Wiring the engine
//
//	b := bus.NewMemoryBus(bus.DefaultConfig())
//	engine := orchestrator.New(reg, store,
//	    orchestrator.WithNotifier(bus.Notifier(b, nil)))
//
//	sub, _ := b.Subscribe(bus.TaskWildcard)
//	for msg := range sub.Messages() {
//	    ev, _ := bus.DecodeTaskEvent(msg)
//	    // ev.TaskID, ev.Status, ev.CurrentStep
//	}
//
// Delivery is best effort: a full subscriber buffer drops the event
// rather than stalling the engine. The checkpoint store remains the
// source of truth; Read the task record when the exact state matters.
package bus
