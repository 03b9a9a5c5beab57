// Package registry provides handler registration and discovery for task
// dispatch.
//
// Handlers self-register under an agent ID with a set of capabilities.
// The orchestration engine resolves a task's target agent ID to a Handler
// at dispatch time; an absent handler is a recorded task failure, never a
// panic.
package registry

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrNotFound    = errors.New("agent not found")
	ErrClosed      = errors.New("registry closed")
	ErrInvalidID   = errors.New("invalid agent ID")
	ErrDuplicateID = errors.New("duplicate agent ID")
)

// Handler is the contract every dispatchable agent implements.
//
// Process performs the task's actual work and returns an opaque result
// map. The orchestrator never inspects the result's shape beyond storing
// it in the task's agent responses; by convention handlers include
// "event_type" and "status" keys that drive the task status transition.
type Handler interface {
	// ID returns the agent identifier handlers register under.
	ID() string

	// Capabilities lists what the handler can do (e.g. "asset-generation").
	Capabilities() []string

	// Process performs the work for one task dispatch. Errors returned
	// here are captured into task state by the engine, not re-raised.
	Process(ctx context.Context, taskID string, params map[string]any) (map[string]any, error)
}

// Info is the registration record exposed for discovery.
type Info struct {
	// ID uniquely identifies the agent.
	ID string `json:"agent_id"`

	// Capabilities lists what the agent can do.
	Capabilities []string `json:"capabilities"`

	// Registered is when the handler was registered.
	Registered time.Time `json:"registered"`
}

// Registry provides handler registration and lookup.
type Registry interface {
	// Register adds a handler under its ID.
	// Returns ErrDuplicateID if the ID is already taken.
	Register(h Handler) error

	// Deregister removes a handler.
	// Returns ErrNotFound if the handler doesn't exist.
	Deregister(id string) error

	// Get retrieves a handler by ID.
	// Returns ErrNotFound if no handler is registered under the ID.
	Get(id string) (Handler, error)

	// List returns registration info for all handlers.
	List() ([]Info, error)

	// FindByCapability returns info for handlers with the capability.
	FindByCapability(capability string) ([]Info, error)

	// Close shuts down the registry.
	Close() error
}

// HasCapability checks if a registration has a specific capability.
func HasCapability(info Info, capability string) bool {
	for _, c := range info.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
