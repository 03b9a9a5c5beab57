package ratelimit

import (
	"context"
	"sync"
	"time"
)

// bucket is one resource's token bucket. Tokens refill continuously at
// capacity per window.
type bucket struct {
	capacity   int
	available  int
	window     time.Duration
	lastRefill time.Time
	inFlight   int
}

func (b *bucket) refill(now time.Time) {
	if b.window <= 0 || b.capacity <= 0 {
		return
	}
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	add := int(float64(b.capacity) * float64(elapsed) / float64(b.window))
	if add > 0 {
		b.available += add
		if b.available > b.capacity {
			b.available = b.capacity
		}
		b.lastRefill = now
	}
}

// pollInterval is how long an Acquire waits before rechecking, roughly
// one token's refill time.
func (b *bucket) pollInterval() time.Duration {
	interval := b.window / time.Duration(b.capacity)
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	if interval > 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return interval
}

// MemoryLimiter is the in-process Limiter. Safe for concurrent use.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	closed  bool
	nowFunc func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string]*bucket),
		nowFunc: time.Now,
	}
}

func (m *MemoryLimiter) SetLimit(resource string, capacity int, window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if capacity <= 0 || window <= 0 {
		delete(m.buckets, resource)
		return
	}
	if b, ok := m.buckets[resource]; ok {
		b.capacity = capacity
		b.window = window
		if b.available > capacity {
			b.available = capacity
		}
		return
	}
	m.buckets[resource] = &bucket{
		capacity:   capacity,
		available:  capacity,
		window:     window,
		lastRefill: m.nowFunc(),
	}
}

func (m *MemoryLimiter) TryAcquire(resource string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	b, ok := m.buckets[resource]
	if !ok {
		return false
	}
	b.refill(m.nowFunc())
	if b.available > 0 {
		b.available--
		b.inFlight++
		return true
	}
	return false
}

func (m *MemoryLimiter) Acquire(ctx context.Context, resource string) error {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return ErrClosed
		}
		b, ok := m.buckets[resource]
		if !ok {
			m.mu.Unlock()
			return ErrUnknownResource
		}
		b.refill(m.nowFunc())
		if b.available > 0 {
			b.available--
			b.inFlight++
			m.mu.Unlock()
			return nil
		}
		wait := b.pollInterval()
		m.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *MemoryLimiter) Release(resource string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	b, ok := m.buckets[resource]
	if !ok {
		return
	}
	if b.inFlight > 0 {
		b.inFlight--
	}
	if b.available < b.capacity {
		b.available++
	}
}

// Reduce shrinks the resource's capacity by a quarter, floor one.
func (m *MemoryLimiter) Reduce(resource, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reduceLocked(resource)
}

func (m *MemoryLimiter) reduceLocked(resource string) {
	b, ok := m.buckets[resource]
	if !ok {
		return
	}
	capacity := b.capacity * 3 / 4
	if capacity < 1 {
		capacity = 1
	}
	b.capacity = capacity
	if b.available > capacity {
		b.available = capacity
	}
}

// setCapacityLocked applies an externally announced capacity.
func (m *MemoryLimiter) setCapacityLocked(resource string, capacity int) {
	b, ok := m.buckets[resource]
	if !ok || capacity < 1 {
		return
	}
	b.capacity = capacity
	if b.available > capacity {
		b.available = capacity
	}
}

func (m *MemoryLimiter) Snapshot(resource string) *Capacity {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[resource]
	if !ok {
		return nil
	}
	b.refill(m.nowFunc())
	return &Capacity{
		Resource:  resource,
		Available: b.available,
		Total:     b.capacity,
		Window:    b.window,
		InFlight:  b.inFlight,
	}
}

func (m *MemoryLimiter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.closed = true
	return nil
}

var _ Limiter = (*MemoryLimiter)(nil)
