package heartbeat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/meshworks/taskmesh/bus"
	"github.com/meshworks/taskmesh/logging"
)

func quietLogger() *logging.Logger {
	l := logging.New()
	l.SetLevel(logging.LevelError)
	return l
}

func TestSenderPublishesBeats(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	sub, err := b.Subscribe("heartbeat.worker-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	s, err := NewSender(SenderConfig{Bus: b, AgentID: "worker-1", Interval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	select {
	case msg := <-sub.Messages():
		beat, err := Unmarshal(msg.Data)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if beat.AgentID != "worker-1" {
			t.Errorf("agent_id = %q", beat.AgentID)
		}
		if beat.Status != "idle" {
			t.Errorf("status = %q", beat.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("no beat arrived")
	}
}

func TestSenderTracksActiveTasks(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	s, err := NewSender(SenderConfig{Bus: b, AgentID: "worker-1", Interval: time.Hour})
	if err != nil {
		t.Fatalf("sender: %v", err)
	}

	s.TaskStarted()
	s.TaskStarted()
	s.TaskFinished()

	s.mu.Lock()
	active, status := s.active, s.status
	s.mu.Unlock()
	if active != 1 || status != "busy" {
		t.Fatalf("active = %d, status = %q", active, status)
	}

	s.TaskFinished()
	s.mu.Lock()
	status = s.status
	s.mu.Unlock()
	if status != "idle" {
		t.Fatalf("status after drain = %q", status)
	}
}

func TestSenderDoubleStart(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	s, err := NewSender(SenderConfig{Bus: b, AgentID: "worker-1"})
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("second start succeeded")
	}
}

func TestMonitorTracksBeats(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	m, err := NewMonitor(MonitorConfig{Bus: b, Timeout: time.Second, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	defer m.Stop()

	beat := Beat{AgentID: "worker-1", Timestamp: time.Now().UTC(), Status: "busy", ActiveTasks: 2}
	data, _ := beat.Marshal()
	if err := b.Publish(beat.Subject(), data); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for !m.IsAlive("worker-1") {
		if time.Now().After(deadline) {
			t.Fatal("beat never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	last := m.LastBeat("worker-1")
	if last == nil || last.ActiveTasks != 2 {
		t.Fatalf("last beat = %+v", last)
	}
	if tracked := m.Tracked(); len(tracked) != 1 {
		t.Fatalf("tracked = %v", tracked)
	}
	if m.IsAlive("worker-2") {
		t.Error("unknown agent reported alive")
	}
}

func TestMonitorReportsStaleOnce(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	var mu sync.Mutex
	var stale []string
	m, err := NewMonitor(MonitorConfig{
		Bus:           b,
		Timeout:       30 * time.Millisecond,
		CheckInterval: 10 * time.Millisecond,
		Logger:        quietLogger(),
		OnStale: func(id string) {
			mu.Lock()
			stale = append(stale, id)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	defer m.Stop()

	beat := Beat{AgentID: "worker-1", Timestamp: time.Now().UTC()}
	data, _ := beat.Marshal()
	if err := b.Publish(beat.Subject(), data); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(stale)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("agent never reported stale")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Further sweeps must not report the same agent again.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	n := len(stale)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("stale reports = %d", n)
	}
	if m.IsAlive("worker-1") {
		t.Error("stale agent reported alive")
	}
}

func TestMonitorRearmsOnFreshBeat(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	staleCh := make(chan string, 4)
	m, err := NewMonitor(MonitorConfig{
		Bus:           b,
		Timeout:       30 * time.Millisecond,
		CheckInterval: 10 * time.Millisecond,
		Logger:        quietLogger(),
		OnStale:       func(id string) { staleCh <- id },
	})
	if err != nil {
		t.Fatalf("monitor: %v", err)
	}
	defer m.Stop()

	publish := func() {
		beat := Beat{AgentID: "worker-1", Timestamp: time.Now().UTC()}
		data, _ := beat.Marshal()
		if err := b.Publish(beat.Subject(), data); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	publish()
	select {
	case <-staleCh:
	case <-time.After(time.Second):
		t.Fatal("first staleness never reported")
	}

	publish()
	select {
	case <-staleCh:
	case <-time.After(time.Second):
		t.Fatal("staleness not re-armed after fresh beat")
	}
}

func TestMonitorRequiresBus(t *testing.T) {
	if _, err := NewMonitor(MonitorConfig{}); err != ErrInvalidConfig {
		t.Fatalf("err = %v", err)
	}
	if _, err := NewSender(SenderConfig{AgentID: "x"}); err != ErrInvalidConfig {
		t.Fatalf("err = %v", err)
	}
}
