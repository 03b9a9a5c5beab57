// Package toolchain bridges agents to external content-generation
// tools. Each bridge serializes requests through a bounded queue and a
// single worker goroutine, so callers never contend for the tool
// itself; Submit blocks until the worker delivers a result or the
// caller's context expires.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/meshworks/taskmesh/logging"
)

// Common errors.
var (
	ErrClosed      = errors.New("bridge closed")
	ErrQueueFull   = errors.New("bridge queue full")
	ErrUnsupported = errors.New("unsupported request type")
)

// Request is one unit of work for a bridge.
type Request struct {
	ID        string
	Type      string
	AgentID   string
	Payload   map[string]any
	Submitted time.Time
}

// Bridge is the common surface of all toolchain bridges.
type Bridge interface {
	// Name identifies the bridge in logs and results.
	Name() string

	// Supports reports whether the bridge handles a request type.
	Supports(requestType string) bool

	// Submit queues a request and blocks until its result is ready
	// or ctx is done.
	Submit(ctx context.Context, requestType string, payload map[string]any, agentID string) (map[string]any, error)

	// Close drains the queue and stops the worker.
	Close() error
}

// handlerFunc processes one request on the worker goroutine.
type handlerFunc func(req Request) (map[string]any, error)

type outcome struct {
	result map[string]any
	err    error
}

type pending struct {
	req  Request
	done chan outcome
}

// worker owns the queue-and-goroutine machinery shared by all bridges.
type worker struct {
	name    string
	handler handlerFunc
	log     *logging.Logger

	queue chan *pending
	start sync.Once
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed atomic.Bool
}

func newWorker(name string, queueSize int, handler handlerFunc) *worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &worker{
		name:    name,
		handler: handler,
		log:     logging.Default().WithComponent(name),
		queue:   make(chan *pending, queueSize),
	}
}

// submit queues a request and waits for the worker.
func (w *worker) submit(ctx context.Context, requestType string, payload map[string]any, agentID string) (map[string]any, error) {
	if w.closed.Load() {
		return nil, ErrClosed
	}

	p := &pending{
		req: Request{
			ID:        uuid.NewString(),
			Type:      requestType,
			AgentID:   agentID,
			Payload:   payload,
			Submitted: time.Now(),
		},
		done: make(chan outcome, 1),
	}

	w.mu.RLock()
	if w.closed.Load() {
		w.mu.RUnlock()
		return nil, ErrClosed
	}
	select {
	case w.queue <- p:
		w.mu.RUnlock()
	default:
		w.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, w.name)
	}

	w.start.Do(w.run)

	select {
	case out := <-p.done:
		return out.result, out.err
	case <-ctx.Done():
		// The worker still processes the request; the result is dropped.
		return nil, ctx.Err()
	}
}

func (w *worker) run() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for p := range w.queue {
			started := time.Now()
			result, err := w.handler(p.req)
			w.log.BridgeRequest(w.name, p.req.Type, time.Since(started), err)
			p.done <- outcome{result: result, err: err}
		}
	}()
}

// close stops accepting requests and waits for the worker to drain.
func (w *worker) close() error {
	if w.closed.Swap(true) {
		return nil
	}

	w.mu.Lock()
	close(w.queue)
	w.mu.Unlock()

	// Start may never have fired; run() on a closed queue exits at once.
	w.start.Do(w.run)
	w.wg.Wait()
	return nil
}
