package heartbeat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/meshworks/taskmesh/bus"
	"github.com/meshworks/taskmesh/logging"
)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Bus to watch for beats.
	Bus bus.MessageBus

	// Timeout after which a beating agent counts as stale.
	// Pick two to three beat intervals. Default 15s.
	Timeout time.Duration

	// CheckInterval between staleness sweeps. Default 1s.
	CheckInterval time.Duration

	// OnStale runs once per agent when it goes stale, off the sweep
	// goroutine. A fresh beat from the same agent re-arms it.
	OnStale func(agentID string)

	Logger *logging.Logger
}

// Monitor records beats and reports agents that stop beating. Only
// agents that have beaten at least once are tracked.
type Monitor struct {
	bus           bus.MessageBus
	timeout       time.Duration
	checkInterval time.Duration
	onStale       func(string)
	log           *logging.Logger

	mu       sync.RWMutex
	lastSeen map[string]*Beat
	reported map[string]bool

	sub     bus.Subscription
	stopped atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

// NewMonitor creates the monitor and starts watching beats.
func NewMonitor(cfg MonitorConfig) (*Monitor, error) {
	if cfg.Bus == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default().WithComponent("heartbeat")
	}

	sub, err := cfg.Bus.Subscribe(SubjectPrefix + ">")
	if err != nil {
		return nil, err
	}

	m := &Monitor{
		bus:           cfg.Bus,
		timeout:       cfg.Timeout,
		checkInterval: cfg.CheckInterval,
		onStale:       cfg.OnStale,
		log:           cfg.Logger,
		lastSeen:      make(map[string]*Beat),
		reported:      make(map[string]bool),
		sub:           sub,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go m.consume()
	go m.sweep()
	return m, nil
}

// IsAlive reports whether the agent beat within the monitor timeout.
// Unknown agents are not alive.
func (m *Monitor) IsAlive(agentID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.lastSeen[agentID]
	return ok && time.Since(b.Timestamp) <= m.timeout
}

// LastBeat returns the most recent beat from an agent, nil if none.
func (m *Monitor) LastBeat(agentID string) *Beat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeen[agentID]
}

// Tracked lists every agent the monitor has seen a beat from.
func (m *Monitor) Tracked() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.lastSeen))
	for id := range m.lastSeen {
		ids = append(ids, id)
	}
	return ids
}

// Stop ends monitoring.
func (m *Monitor) Stop() error {
	if m.stopped.Swap(true) {
		return ErrStopped
	}
	close(m.stop)
	_ = m.sub.Unsubscribe()
	<-m.done
	return nil
}

func (m *Monitor) consume() {
	for msg := range m.sub.Messages() {
		b, err := Unmarshal(msg.Data)
		if err != nil || b.AgentID == "" {
			continue
		}
		m.mu.Lock()
		m.lastSeen[b.AgentID] = b
		if m.reported[b.AgentID] {
			delete(m.reported, b.AgentID)
			m.log.Info("agent beating again", map[string]interface{}{
				"agent_id": b.AgentID,
			})
		}
		m.mu.Unlock()
	}
}

func (m *Monitor) sweep() {
	defer close(m.done)

	ticker := time.NewTicker(m.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			for _, id := range m.findStale() {
				m.log.Warn("agent went stale", map[string]interface{}{
					"agent_id": id, "timeout": m.timeout.String(),
				})
				if m.onStale != nil {
					m.onStale(id)
				}
			}
		}
	}
}

// findStale marks and returns newly stale agents.
func (m *Monitor) findStale() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stale []string
	now := time.Now()
	for id, b := range m.lastSeen {
		if m.reported[id] {
			continue
		}
		if now.Sub(b.Timestamp) > m.timeout {
			m.reported[id] = true
			stale = append(stale, id)
		}
	}
	return stale
}
