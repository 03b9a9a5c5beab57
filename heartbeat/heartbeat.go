// Package heartbeat tracks agent liveness over the message bus.
//
// Remote agents publish Beat messages on heartbeat.<agent_id> while
// they are reachable. A Monitor records last-seen times and reports
// agents that go quiet, so stale registrations can be cleaned out of
// the registry. Local in-process handlers never beat and are never
// reported.
package heartbeat

import (
	"encoding/json"
	"errors"
	"time"
)

// Common errors.
var (
	ErrRunning       = errors.New("heartbeat already running")
	ErrStopped       = errors.New("heartbeat stopped")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// SubjectPrefix heads every heartbeat subject.
const SubjectPrefix = "heartbeat."

// Beat is one liveness announcement from an agent.
type Beat struct {
	// AgentID identifies the sender.
	AgentID string `json:"agent_id"`

	// Timestamp is when the beat was generated.
	Timestamp time.Time `json:"timestamp"`

	// Status reports what the agent is doing, e.g. "idle" or "busy".
	Status string `json:"status"`

	// ActiveTasks counts dispatches the agent is working on.
	ActiveTasks int `json:"active_tasks"`
}

// Subject returns the bus subject this beat publishes on.
func (b *Beat) Subject() string {
	return SubjectPrefix + b.AgentID
}

// Marshal serializes a beat to JSON.
func (b *Beat) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// Unmarshal deserializes a beat from JSON.
func Unmarshal(data []byte) (*Beat, error) {
	var b Beat
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
