package checkpoint

import (
	"errors"
	"time"

	"github.com/meshworks/taskmesh/task"
)

// Common errors.
var (
	// ErrNotFound indicates no checkpoint exists for the task ID.
	// It distinguishes "never initialized" from "initialized with empty state".
	ErrNotFound = errors.New("checkpoint not found")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("checkpoint store closed")

	// ErrInvalidTaskID indicates an empty or malformed task ID.
	ErrInvalidTaskID = errors.New("invalid task ID")
)

// Checkpoint is the persisted snapshot of one task: its state record plus
// whatever input is pending for the next pipeline run. Each Put overwrites
// the previous snapshot for the same task ID.
type Checkpoint struct {
	// State is the task state record at the time of the snapshot.
	State *task.State `json:"state"`

	// PendingInput is the event input waiting to be consumed by the
	// next pipeline run.
	PendingInput map[string]any `json:"pending_input,omitempty"`

	// Revision increments on every Put for the same task ID.
	Revision uint64 `json:"revision"`

	// UpdatedAt is when the snapshot was stored.
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone creates a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	clone := &Checkpoint{
		State:     c.State.Clone(),
		Revision:  c.Revision,
		UpdatedAt: c.UpdatedAt,
	}
	if c.PendingInput != nil {
		clone.PendingInput = make(map[string]any, len(c.PendingInput))
		for k, v := range c.PendingInput {
			clone.PendingInput[k] = v
		}
	}
	return clone
}

// Store persists one checkpoint per task ID.
//
// Put and Get on the same key must serialize; the engine relies on the
// store for nothing more than last-write-wins snapshots.
type Store interface {
	// Put stores the checkpoint for a task, overwriting any previous one.
	Put(taskID string, state *task.State, pendingInput map[string]any) error

	// Get retrieves the last stored checkpoint.
	// Returns ErrNotFound if the task was never checkpointed.
	Get(taskID string) (*Checkpoint, error)

	// Keys returns the task IDs with stored checkpoints.
	Keys() ([]string, error)

	// Close shuts down the store and releases resources.
	Close() error
}

// ValidateTaskID checks that a task ID is usable as a store key.
func ValidateTaskID(taskID string) error {
	if taskID == "" {
		return ErrInvalidTaskID
	}
	return nil
}
