// Package ratelimit provides token-bucket rate limiting for shared
// resources: the HTTP API, completion backends, and toolchain bridges.
//
// A resource is any named thing with a configured capacity per window.
// The memory limiter works within one process; the bus limiter layers
// capacity broadcasts on top so multiple processes back off together
// when a backend starts returning rate limit errors.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrClosed          = errors.New("limiter closed")
	ErrUnknownResource = errors.New("unknown resource")
)

// Limiter hands out tokens for named resources.
type Limiter interface {
	// Acquire blocks until a token is available or ctx ends.
	// Returns ErrUnknownResource if the resource has no configured
	// capacity.
	Acquire(ctx context.Context, resource string) error

	// TryAcquire takes a token without blocking. False means no
	// token was available (or the resource is unknown).
	TryAcquire(resource string) bool

	// Release returns a token, for semaphore-style in-flight
	// tracking. No-op for unknown resources.
	Release(resource string)

	// SetLimit configures capacity tokens per window for a resource.
	// A non-positive capacity or window removes the resource.
	SetLimit(resource string, capacity int, window time.Duration)

	// Reduce shrinks a resource's capacity, typically after the
	// backend pushed back. reason is recorded for logging.
	Reduce(resource, reason string)

	// Snapshot reports the resource's current state, nil if unknown.
	Snapshot(resource string) *Capacity

	// Close shuts the limiter down.
	Close() error
}

// Capacity describes one resource's current state.
type Capacity struct {
	Resource  string        `json:"resource"`
	Available int           `json:"available"`
	Total     int           `json:"total"`
	Window    time.Duration `json:"window"`
	InFlight  int           `json:"in_flight"`
}
