package registry

import (
	"sort"
	"sync"
	"time"
)

// MemoryRegistry is an in-memory implementation of Registry. The
// registry is process-local: it holds live Handler values, not
// serializable records.
type MemoryRegistry struct {
	mu       sync.RWMutex
	handlers map[string]registration
	closed   bool
}

type registration struct {
	handler    Handler
	registered time.Time
}

// NewMemoryRegistry creates a new in-memory handler registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		handlers: make(map[string]registration),
	}
}

// Register adds a handler under its ID.
func (r *MemoryRegistry) Register(h Handler) error {
	if h == nil || h.ID() == "" {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, exists := r.handlers[h.ID()]; exists {
		return ErrDuplicateID
	}

	r.handlers[h.ID()] = registration{
		handler:    h,
		registered: time.Now(),
	}
	return nil
}

// Deregister removes a handler.
func (r *MemoryRegistry) Deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if _, exists := r.handlers[id]; !exists {
		return ErrNotFound
	}

	delete(r.handlers, id)
	return nil
}

// Get retrieves a handler by ID.
func (r *MemoryRegistry) Get(id string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	reg, ok := r.handlers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return reg.handler, nil
}

// List returns registration info for all handlers, sorted by ID.
func (r *MemoryRegistry) List() ([]Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, ErrClosed
	}

	infos := make([]Info, 0, len(r.handlers))
	for id, reg := range r.handlers {
		infos = append(infos, Info{
			ID:           id,
			Capabilities: append([]string(nil), reg.handler.Capabilities()...),
			Registered:   reg.registered,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// FindByCapability returns info for handlers with the capability.
func (r *MemoryRegistry) FindByCapability(capability string) ([]Info, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	var matched []Info
	for _, info := range all {
		if HasCapability(info, capability) {
			matched = append(matched, info)
		}
	}
	return matched, nil
}

// Close shuts down the registry.
func (r *MemoryRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.handlers = nil
	return nil
}
