package heartbeat

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshworks/taskmesh/bus"
)

// SenderConfig configures a Sender.
type SenderConfig struct {
	// Bus carries the beats.
	Bus bus.MessageBus

	// AgentID identifies this agent in every beat.
	AgentID string

	// Interval between beats. Default 5s.
	Interval time.Duration
}

// Sender publishes periodic beats for one agent.
type Sender struct {
	bus      bus.MessageBus
	agentID  string
	interval time.Duration

	mu     sync.Mutex
	status string
	active int

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSender creates a sender. It does not beat until Start.
func NewSender(cfg SenderConfig) (*Sender, error) {
	if cfg.Bus == nil || cfg.AgentID == "" {
		return nil, ErrInvalidConfig
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	return &Sender{
		bus:      cfg.Bus,
		agentID:  cfg.AgentID,
		interval: cfg.Interval,
		status:   "idle",
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins beating. The first beat goes out immediately.
func (s *Sender) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return ErrRunning
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go s.run(ctx)
	return nil
}

// SetStatus changes the status carried in subsequent beats.
func (s *Sender) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// TaskStarted and TaskFinished track the active dispatch count.
func (s *Sender) TaskStarted() {
	s.mu.Lock()
	s.active++
	s.status = "busy"
	s.mu.Unlock()
}

func (s *Sender) TaskFinished() {
	s.mu.Lock()
	if s.active > 0 {
		s.active--
	}
	if s.active == 0 {
		s.status = "idle"
	}
	s.mu.Unlock()
}

// Stop halts beating and waits for the loop to exit.
func (s *Sender) Stop() error {
	if !s.running.Load() {
		return ErrStopped
	}
	close(s.stop)
	<-s.done
	return nil
}

func (s *Sender) run(ctx context.Context) {
	defer close(s.done)

	s.beat()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.beat()
		}
	}
}

func (s *Sender) beat() {
	s.mu.Lock()
	b := Beat{
		AgentID:     s.agentID,
		Timestamp:   time.Now().UTC(),
		Status:      s.status,
		ActiveTasks: s.active,
	}
	s.mu.Unlock()

	data, err := b.Marshal()
	if err != nil {
		return
	}
	_ = s.bus.Publish(b.Subject(), data)
}
