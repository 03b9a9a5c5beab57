package ratelimit

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/meshworks/taskmesh/bus"
	"github.com/meshworks/taskmesh/logging"
)

// CapacitySubject carries capacity updates between processes.
const CapacitySubject = "ratelimit.capacity"

// CapacityUpdate is broadcast when one process reduces a resource's
// capacity, so its peers shrink theirs too.
type CapacityUpdate struct {
	Resource string `json:"resource"`
	Capacity int    `json:"capacity"`
	Origin   string `json:"origin"`
	Reason   string `json:"reason,omitempty"`
}

// BusLimiter wraps a MemoryLimiter and mirrors capacity reductions
// over the message bus. Acquire and release stay local; only Reduce
// crosses process boundaries.
type BusLimiter struct {
	local  *MemoryLimiter
	bus    bus.MessageBus
	origin string
	log    *logging.Logger
	sub    bus.Subscription
	closed atomic.Bool
}

// NewBusLimiter creates the limiter and subscribes to peer updates.
// An empty origin gets a generated ID.
func NewBusLimiter(b bus.MessageBus, origin string, log *logging.Logger) (*BusLimiter, error) {
	if origin == "" {
		origin = uuid.NewString()
	}
	if log == nil {
		log = logging.Default().WithComponent("ratelimit")
	}

	sub, err := b.Subscribe(CapacitySubject)
	if err != nil {
		return nil, err
	}

	l := &BusLimiter{
		local:  NewMemoryLimiter(),
		bus:    b,
		origin: origin,
		log:    log,
		sub:    sub,
	}
	go l.consume()
	return l, nil
}

func (l *BusLimiter) consume() {
	for msg := range l.sub.Messages() {
		var update CapacityUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			l.log.Warn("bad capacity update", map[string]interface{}{"error": err.Error()})
			continue
		}
		if update.Origin == l.origin {
			continue
		}
		l.local.mu.Lock()
		l.local.setCapacityLocked(update.Resource, update.Capacity)
		l.local.mu.Unlock()
		l.log.Info("capacity reduced by peer", map[string]interface{}{
			"resource": update.Resource,
			"capacity": update.Capacity,
			"origin":   update.Origin,
			"reason":   update.Reason,
		})
	}
}

func (l *BusLimiter) Acquire(ctx context.Context, resource string) error {
	return l.local.Acquire(ctx, resource)
}

func (l *BusLimiter) TryAcquire(resource string) bool { return l.local.TryAcquire(resource) }

func (l *BusLimiter) Release(resource string) { l.local.Release(resource) }

func (l *BusLimiter) SetLimit(resource string, capacity int, window time.Duration) {
	l.local.SetLimit(resource, capacity, window)
}

// Reduce shrinks local capacity and broadcasts the new total so peer
// processes follow.
func (l *BusLimiter) Reduce(resource, reason string) {
	l.local.Reduce(resource, reason)

	snap := l.local.Snapshot(resource)
	if snap == nil {
		return
	}
	data, err := json.Marshal(CapacityUpdate{
		Resource: resource,
		Capacity: snap.Total,
		Origin:   l.origin,
		Reason:   reason,
	})
	if err != nil {
		return
	}
	if err := l.bus.Publish(CapacitySubject, data); err != nil {
		l.log.Warn("capacity broadcast failed", map[string]interface{}{
			"resource": resource, "error": err.Error(),
		})
	}
}

func (l *BusLimiter) Snapshot(resource string) *Capacity { return l.local.Snapshot(resource) }

func (l *BusLimiter) Close() error {
	if l.closed.Swap(true) {
		return ErrClosed
	}
	_ = l.sub.Unsubscribe()
	return l.local.Close()
}

var _ Limiter = (*BusLimiter)(nil)
