// Package shutdown coordinates phased teardown of the service.
//
// Steps register with a phase; lower phases run first, steps within a
// phase run concurrently. The intended order for a full deployment is
// HTTP surface, then engine, then toolchain bridges, then stores and
// buses, so nothing is torn down while something upstream still needs
// it.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/meshworks/taskmesh/logging"
)

// Common errors.
var (
	ErrTimeout     = errors.New("shutdown timeout exceeded")
	ErrStepFailed  = errors.New("one or more shutdown steps failed")
	ErrAlreadyDone = errors.New("shutdown already initiated")
)

// Conventional phases, lowest first.
const (
	PhaseServer  = 10 // stop accepting requests
	PhaseEngine  = 20 // stop task processing
	PhaseBridges = 30 // drain toolchain workers
	PhaseStores  = 40 // close stores, buses, indexes
)

// Func is one teardown step.
type Func func(ctx context.Context) error

type step struct {
	name  string
	phase int
	fn    Func
}

// Coordinator runs registered teardown steps in phase order.
type Coordinator struct {
	timeout time.Duration
	log     *logging.Logger

	mu    sync.Mutex
	steps []step

	once    sync.Once
	done    chan struct{}
	err     error
	signals chan os.Signal
}

// NewCoordinator creates a coordinator. A zero timeout defaults to 15s.
func NewCoordinator(timeout time.Duration, log *logging.Logger) *Coordinator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = logging.Default().WithComponent("shutdown")
	}
	return &Coordinator{
		timeout: timeout,
		log:     log,
		done:    make(chan struct{}),
		signals: make(chan os.Signal, 1),
	}
}

// Add registers a teardown step under a phase.
func (c *Coordinator) Add(name string, phase int, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, step{name: name, phase: phase, fn: fn})
}

// AddCloser registers a context-free Close function.
func (c *Coordinator) AddCloser(name string, phase int, closeFn func() error) {
	c.Add(name, phase, func(context.Context) error { return closeFn() })
}

// Run executes all steps once. Later calls return the first run's
// result.
func (c *Coordinator) Run(ctx context.Context) error {
	first := false
	c.once.Do(func() {
		first = true
		c.err = c.run(ctx)
		close(c.done)
	})
	if !first {
		<-c.done
	}
	return c.err
}

// RunWithTimeout executes all steps bounded by the configured timeout.
func (c *Coordinator) RunWithTimeout() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.Run(ctx)
}

// HandleSignals triggers teardown on SIGINT or SIGTERM.
func (c *Coordinator) HandleSignals() {
	signal.Notify(c.signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c.signals
		_ = c.RunWithTimeout()
	}()
}

// Trigger initiates teardown as if a signal had arrived.
func (c *Coordinator) Trigger() {
	select {
	case c.signals <- syscall.SIGTERM:
	default:
	}
}

// Done is closed when teardown has finished.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Err reports the teardown result; nil until Done is closed.
func (c *Coordinator) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Coordinator) run(ctx context.Context) error {
	c.mu.Lock()
	steps := make([]step, len(c.steps))
	copy(steps, c.steps)
	c.mu.Unlock()

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].phase < steps[j].phase })

	var failed bool
	for start := 0; start < len(steps); {
		end := start
		for end < len(steps) && steps[end].phase == steps[start].phase {
			end++
		}

		select {
		case <-ctx.Done():
			c.log.Error("shutdown timed out", map[string]interface{}{
				"remaining": len(steps) - start,
			})
			return ErrTimeout
		default:
		}

		if c.runPhase(ctx, steps[start:end]) {
			failed = true
		}
		start = end
	}

	if failed {
		return ErrStepFailed
	}
	return nil
}

// runPhase runs one phase's steps concurrently and reports whether any
// failed.
func (c *Coordinator) runPhase(ctx context.Context, steps []step) bool {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed bool
	)
	for _, s := range steps {
		wg.Add(1)
		go func(s step) {
			defer wg.Done()
			start := time.Now()
			err := s.fn(ctx)
			fields := map[string]interface{}{
				"step":        s.name,
				"phase":       s.phase,
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if err != nil {
				fields["error"] = err.Error()
				c.log.Error("shutdown step failed", fields)
				mu.Lock()
				failed = true
				mu.Unlock()
				return
			}
			c.log.Debug("shutdown step complete", fields)
		}(s)
	}
	wg.Wait()
	return failed
}
