package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/meshworks/taskmesh/logging"
)

func quietLogger() *logging.Logger {
	l := logging.New()
	l.SetLevel(logging.LevelError)
	return l
}

func TestRunOrdersPhases(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) Func {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	c.Add("stores", PhaseStores, record("stores"))
	c.Add("server", PhaseServer, record("server"))
	c.Add("engine", PhaseEngine, record("engine"))

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"server", "engine", "stores"}
	for i, name := range want {
		if order[i] != name {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRunConcurrentWithinPhase(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())

	// Each step waits for the other, so a serial run would deadlock.
	arrived := make(chan struct{}, 2)
	bothHere := make(chan struct{})
	go func() {
		<-arrived
		<-arrived
		close(bothHere)
	}()
	blocker := func(context.Context) error {
		arrived <- struct{}{}
		<-bothHere
		return nil
	}
	c.Add("bridge-a", PhaseBridges, blocker)
	c.Add("bridge-b", PhaseBridges, blocker)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not finish; phase steps not concurrent")
	}
}

func TestRunReportsStepFailure(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())
	c.Add("ok", PhaseServer, func(context.Context) error { return nil })
	c.Add("bad", PhaseEngine, func(context.Context) error { return errors.New("boom") })

	if err := c.Run(context.Background()); !errors.Is(err, ErrStepFailed) {
		t.Fatalf("err = %v, want ErrStepFailed", err)
	}
}

func TestRunOnceReturnsSameResult(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())
	calls := 0
	c.Add("once", PhaseServer, func(context.Context) error {
		calls++
		return nil
	})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if calls != 1 {
		t.Errorf("step ran %d times", calls)
	}
}

func TestTimeoutStopsLaterPhases(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	ran := false
	c.Add("canceller", PhaseServer, func(context.Context) error {
		cancel()
		return nil
	})
	c.Add("late", PhaseStores, func(context.Context) error {
		ran = true
		return nil
	})

	if err := c.Run(ctx); !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if ran {
		t.Error("later phase ran after timeout")
	}
}

func TestTriggerRunsSteps(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())
	done := make(chan struct{})
	c.Add("server", PhaseServer, func(context.Context) error {
		close(done)
		return nil
	})

	c.HandleSignals()
	c.Trigger()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("trigger did not run teardown")
	}
	select {
	case <-done:
	default:
		t.Fatal("step did not run")
	}
	if err := c.Err(); err != nil {
		t.Fatalf("err = %v", err)
	}
}

func TestAddCloser(t *testing.T) {
	c := NewCoordinator(time.Second, quietLogger())
	closed := false
	c.AddCloser("store", PhaseStores, func() error {
		closed = true
		return nil
	})

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !closed {
		t.Error("closer did not run")
	}
}
