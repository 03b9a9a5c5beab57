package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/meshworks/taskmesh/checkpoint"
	"github.com/meshworks/taskmesh/errors"
	"github.com/meshworks/taskmesh/logging"
	"github.com/meshworks/taskmesh/registry"
	"github.com/meshworks/taskmesh/task"
)

// Notifier receives a deep copy of the task state after every persisted
// transition. Implementations must not block for long; the engine calls
// them synchronously while holding the task's slot.
type Notifier func(state *task.State)

// Engine drives tasks through the fixed five-stage pipeline and persists
// a checkpoint after every pass. All methods are safe for concurrent use;
// passes for the same task are serialized, passes for different tasks
// run independently.
type Engine struct {
	registry registry.Registry
	store    checkpoint.Store
	log      *logging.Logger
	notify   Notifier

	closed atomic.Bool

	mu    sync.Mutex
	slots map[string]*taskSlot
}

// taskSlot serializes pipeline passes for a single task.
type taskSlot struct {
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger. Defaults to a logger on the
// standard error stream.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithNotifier sets a callback invoked after each persisted transition.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notify = n }
}

// New creates an Engine over the given handler registry and checkpoint
// store. Both are required.
func New(reg registry.Registry, store checkpoint.Store, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		store:    store,
		log:      logging.Default().WithComponent("orchestrator"),
		slots:    make(map[string]*taskSlot),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize creates the task record for taskID and persists its first
// checkpoint, so Read works before the first Advance. If taskID is empty
// a fresh ID is generated. Initializing an existing task ID replaces the
// prior record.
func (e *Engine) Initialize(ctx context.Context, taskID, targetAgentID string, params map[string]any) (*task.State, error) {
	if e.closed.Load() {
		return nil, errors.Internal("engine is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "initialize")
	}

	state := task.New(taskID, targetAgentID, params)
	taskID = state.TaskID
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	slot := e.slot(taskID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if err := e.store.Put(taskID, state, nil); err != nil {
		return nil, errors.Wrapf(err, "checkpoint task %s", taskID)
	}
	e.log.TaskStart(taskID, targetAgentID)
	e.emit(state)
	return state.Clone(), nil
}

// Advance loads the task's checkpoint, overlays input onto the stored
// pending input, merges the result into the record, and runs one full
// pipeline pass, persisting the result. Dispatch failures
// are folded into the returned state rather than returned as errors; the
// error return covers unknown tasks, storage faults, and context
// cancellation only.
func (e *Engine) Advance(ctx context.Context, taskID string, input map[string]any) (*task.State, error) {
	if e.closed.Load() {
		return nil, errors.Internal("engine is closed")
	}
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	slot := e.slot(taskID)
	slot.mu.Lock()
	defer slot.mu.Unlock()

	cp, err := e.store.Get(taskID)
	if err != nil {
		if errors.Cause(err) == checkpoint.ErrNotFound || err == checkpoint.ErrNotFound {
			return nil, errors.TaskNotFound(taskID)
		}
		return nil, errors.Wrapf(err, "load checkpoint for task %s", taskID)
	}

	// The run's input is the stored pending input overlaid with the new
	// event input: new fields overwrite same-named old fields,
	// unspecified fields persist.
	r := &run{state: cp.State, input: make(map[string]any, len(cp.PendingInput)+len(input))}
	for k, v := range cp.PendingInput {
		r.input[k] = v
	}
	for k, v := range input {
		r.input[k] = v
	}

	for _, st := range e.pipeline() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "task %s interrupted at %s", taskID, st.name)
		}
		st.fn(ctx, r)
		e.log.StageComplete(taskID, st.name, r.state.Status.String())
	}

	if err := e.store.Put(taskID, r.state, r.input); err != nil {
		return nil, errors.Wrapf(err, "checkpoint task %s", taskID)
	}
	e.log.TaskComplete(taskID, r.state.Status.String())
	e.emit(r.state)
	return r.state.Clone(), nil
}

// Read returns a deep copy of the task's current state without mutating
// it. Repeated reads observe identical state until the next Advance.
func (e *Engine) Read(ctx context.Context, taskID string) (*task.State, error) {
	if e.closed.Load() {
		return nil, errors.Internal("engine is closed")
	}
	if err := checkpoint.ValidateTaskID(taskID); err != nil {
		return nil, errors.InvalidInput(err.Error())
	}

	cp, err := e.store.Get(taskID)
	if err != nil {
		if errors.Cause(err) == checkpoint.ErrNotFound || err == checkpoint.ErrNotFound {
			return nil, errors.TaskNotFound(taskID)
		}
		return nil, errors.Wrapf(err, "load checkpoint for task %s", taskID)
	}
	return cp.State, nil
}

// Tasks returns the IDs of all checkpointed tasks.
func (e *Engine) Tasks() ([]string, error) {
	if e.closed.Load() {
		return nil, errors.Internal("engine is closed")
	}
	return e.store.Keys()
}

// Close marks the engine closed. The checkpoint store is owned by the
// caller and is not closed here.
func (e *Engine) Close() error {
	e.closed.Store(true)
	return nil
}

func (e *Engine) slot(taskID string) *taskSlot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.slots[taskID]
	if !ok {
		s = &taskSlot{}
		e.slots[taskID] = s
	}
	return s
}

func (e *Engine) emit(state *task.State) {
	if e.notify == nil {
		return
	}
	e.notify(state.Clone())
}
