package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/meshworks/taskmesh/bus"
)

func TestTryAcquireDrainsBucket(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()
	m.SetLimit("api", 2, time.Hour)

	if !m.TryAcquire("api") || !m.TryAcquire("api") {
		t.Fatal("expected two tokens")
	}
	if m.TryAcquire("api") {
		t.Fatal("expected empty bucket")
	}
}

func TestTryAcquireUnknownResource(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()

	if m.TryAcquire("nothing") {
		t.Fatal("unknown resource yielded a token")
	}
}

func TestReleaseReturnsToken(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()
	m.SetLimit("api", 1, time.Hour)

	if !m.TryAcquire("api") {
		t.Fatal("first acquire failed")
	}
	m.Release("api")
	if !m.TryAcquire("api") {
		t.Fatal("acquire after release failed")
	}
}

func TestRefillOverTime(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()

	now := time.Now()
	m.nowFunc = func() time.Time { return now }
	m.SetLimit("llm", 10, time.Second)

	for i := 0; i < 10; i++ {
		if !m.TryAcquire("llm") {
			t.Fatalf("acquire %d failed", i)
		}
	}
	if m.TryAcquire("llm") {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(500 * time.Millisecond)
	snap := m.Snapshot("llm")
	if snap.Available != 5 {
		t.Fatalf("available after half window = %d", snap.Available)
	}
}

func TestAcquireBlocksUntilRefill(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()
	m.SetLimit("api", 1, 50*time.Millisecond)

	if !m.TryAcquire("api") {
		t.Fatal("first acquire failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	if err := m.Acquire(ctx, "api"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("acquire returned before refill")
	}
}

func TestAcquireHonorsContext(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()
	m.SetLimit("api", 1, time.Hour)
	m.TryAcquire("api")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := m.Acquire(ctx, "api"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestAcquireUnknownResource(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()

	if err := m.Acquire(context.Background(), "nothing"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("err = %v", err)
	}
}

func TestReduceShrinksCapacity(t *testing.T) {
	m := NewMemoryLimiter()
	defer m.Close()
	m.SetLimit("llm", 8, time.Minute)

	m.Reduce("llm", "backend pushed back")
	snap := m.Snapshot("llm")
	if snap.Total != 6 {
		t.Fatalf("total after reduce = %d", snap.Total)
	}

	for i := 0; i < 10; i++ {
		m.Reduce("llm", "again")
	}
	if snap = m.Snapshot("llm"); snap.Total != 1 {
		t.Fatalf("floor capacity = %d", snap.Total)
	}
}

func TestClosedLimiter(t *testing.T) {
	m := NewMemoryLimiter()
	m.SetLimit("api", 1, time.Hour)
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if m.TryAcquire("api") {
		t.Error("acquire after close succeeded")
	}
	if err := m.Acquire(context.Background(), "api"); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v", err)
	}
	if err := m.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second close err = %v", err)
	}
}

func TestBusLimiterPeerReduction(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	a, err := NewBusLimiter(b, "proc-a", nil)
	if err != nil {
		t.Fatalf("limiter a: %v", err)
	}
	defer a.Close()
	peer, err := NewBusLimiter(b, "proc-b", nil)
	if err != nil {
		t.Fatalf("limiter b: %v", err)
	}
	defer peer.Close()

	a.SetLimit("llm", 8, time.Minute)
	peer.SetLimit("llm", 8, time.Minute)

	a.Reduce("llm", "429 from backend")

	// a applies immediately; the peer hears it over the bus.
	if snap := a.Snapshot("llm"); snap.Total != 6 {
		t.Fatalf("local total = %d", snap.Total)
	}
	deadline := time.Now().Add(time.Second)
	for {
		if snap := peer.Snapshot("llm"); snap.Total == 6 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("peer never applied the capacity update")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBusLimiterIgnoresOwnUpdates(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	l, err := NewBusLimiter(b, "proc-a", nil)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	defer l.Close()
	l.SetLimit("llm", 8, time.Minute)

	l.Reduce("llm", "once")
	time.Sleep(20 * time.Millisecond)
	if snap := l.Snapshot("llm"); snap.Total != 6 {
		t.Fatalf("total = %d, own update must not reduce twice", snap.Total)
	}
}

func TestCapacityUpdateEncoding(t *testing.T) {
	update := CapacityUpdate{Resource: "llm", Capacity: 4, Origin: "proc-a", Reason: "429"}
	data, err := json.Marshal(update)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded CapacityUpdate
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != update {
		t.Fatalf("round trip = %+v", decoded)
	}
}
