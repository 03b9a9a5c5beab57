package checkpoint

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshworks/taskmesh/task"
)

// MemoryStore implements Store using in-memory storage.
// This is the reference backend: checkpoints live for the process
// lifetime and are never garbage collected by the store itself.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]*Checkpoint
	closed atomic.Bool
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*Checkpoint),
	}
}

// Put stores the checkpoint for a task, overwriting any previous one.
// The stored snapshot is a deep copy; callers may keep mutating their
// state record afterwards.
func (s *MemoryStore) Put(taskID string, state *task.State, pendingInput map[string]any) error {
	if err := ValidateTaskID(taskID); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var rev uint64 = 1
	if existing, ok := s.data[taskID]; ok {
		rev = existing.Revision + 1
	}

	cp := &Checkpoint{
		State:     state.Clone(),
		Revision:  rev,
		UpdatedAt: time.Now(),
	}
	if pendingInput != nil {
		cp.PendingInput = make(map[string]any, len(pendingInput))
		for k, v := range pendingInput {
			cp.PendingInput[k] = v
		}
	}

	s.data[taskID] = cp
	return nil
}

// Get retrieves the last stored checkpoint as a deep copy.
func (s *MemoryStore) Get(taskID string) (*Checkpoint, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[taskID]
	if !ok {
		return nil, ErrNotFound
	}
	return cp.Clone(), nil
}

// Keys returns the task IDs with stored checkpoints.
func (s *MemoryStore) Keys() ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// Close shuts down the store.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}
