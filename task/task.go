package task

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a managed task.
type Status string

const (
	// StatusPending indicates the task has been created but no stage has run.
	StatusPending Status = "pending"

	// StatusInProgress indicates the task is moving through the pipeline.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task failed. Failure is sticky: later
	// stages never flip a failed task back to completed.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// HistoryEntry records one step the task passed through.
type HistoryEntry struct {
	// Step is the pipeline stage that produced this entry.
	Step string `json:"step"`

	// Message is a human-readable summary of what happened.
	Message string `json:"message"`

	// Data carries optional structured context for the entry.
	Data map[string]any `json:"data,omitempty"`

	// Time is when the entry was appended.
	Time time.Time `json:"time"`
}

// AgentResponse is the latest response recorded for one handler.
// Repeated dispatch to the same handler replaces the entry; the audit
// trail lives in History.
type AgentResponse struct {
	// Status is the handler-reported outcome: "completed", "failed",
	// or whatever the handler chose to report.
	Status string `json:"status"`

	// EventType classifies the response for the status transition rule.
	EventType string `json:"event_type,omitempty"`

	// Details holds the handler's result or error payload, stored opaquely.
	Details map[string]any `json:"details,omitempty"`
}

// ErrorDetail is one structured error accumulated over the task's life.
type ErrorDetail struct {
	// Code identifies the failure type (e.g. AGENT_NOT_FOUND).
	Code string `json:"code"`

	// Message describes what went wrong.
	Message string `json:"message"`

	// Step is the pipeline stage where the error occurred.
	Step string `json:"step,omitempty"`

	// Time is when the error was recorded.
	Time time.Time `json:"time"`
}

// State is the serializable record of one task's progress. Identity
// (TaskID) is immutable; progress fields evolve as stages run. History
// entries are never removed or reordered.
type State struct {
	// TaskID uniquely identifies the task. Assigned at creation.
	TaskID string `json:"task_id"`

	// Status is the task's overall state.
	Status Status `json:"status"`

	// CurrentStep is the name of the last stage that ran.
	CurrentStep string `json:"current_step"`

	// History is the append-only audit trail of steps taken.
	History []HistoryEntry `json:"history"`

	// TargetAgentID identifies the handler this task is dispatched to.
	// It may be refined by later input but never cleared.
	TargetAgentID string `json:"target_agent_id,omitempty"`

	// InitialParameters are the parameters captured at creation, merged
	// (not replaced wholesale) as later input arrives.
	InitialParameters map[string]any `json:"initial_parameters,omitempty"`

	// AgentResponses maps handler ID to its latest response.
	AgentResponses map[string]AgentResponse `json:"agent_responses"`

	// Errors accumulates structured errors across the task's life.
	Errors []ErrorDetail `json:"errors,omitempty"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a fresh task state. If taskID is empty, a UUID is assigned.
func New(taskID, targetAgentID string, params map[string]any) *State {
	if taskID == "" {
		taskID = uuid.NewString()
	}
	now := time.Now()
	s := &State{
		TaskID:         taskID,
		Status:         StatusPending,
		CurrentStep:    "initial",
		History:        []HistoryEntry{},
		TargetAgentID:  targetAgentID,
		AgentResponses: make(map[string]AgentResponse),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(params) > 0 {
		s.InitialParameters = make(map[string]any, len(params))
		for k, v := range params {
			s.InitialParameters[k] = v
		}
	}
	return s
}

// Clone creates a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	clone := &State{
		TaskID:        s.TaskID,
		Status:        s.Status,
		CurrentStep:   s.CurrentStep,
		TargetAgentID: s.TargetAgentID,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}

	if s.History != nil {
		clone.History = make([]HistoryEntry, len(s.History))
		for i, h := range s.History {
			clone.History[i] = h
			if h.Data != nil {
				clone.History[i].Data = cloneMap(h.Data)
			}
		}
	}

	if s.InitialParameters != nil {
		clone.InitialParameters = cloneMap(s.InitialParameters)
	}

	clone.AgentResponses = make(map[string]AgentResponse, len(s.AgentResponses))
	for id, r := range s.AgentResponses {
		cr := r
		if r.Details != nil {
			cr.Details = cloneMap(r.Details)
		}
		clone.AgentResponses[id] = cr
	}

	if s.Errors != nil {
		clone.Errors = make([]ErrorDetail, len(s.Errors))
		copy(clone.Errors, s.Errors)
	}

	return clone
}

// AppendHistory adds an entry to the audit trail. Existing entries are
// never modified.
func (s *State) AppendHistory(step, message string, data map[string]any) {
	s.History = append(s.History, HistoryEntry{
		Step:    step,
		Message: message,
		Data:    data,
		Time:    time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// RecordError appends a structured error descriptor.
func (s *State) RecordError(code, message, step string) {
	s.Errors = append(s.Errors, ErrorDetail{
		Code:    code,
		Message: message,
		Step:    step,
		Time:    time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// MarkFailed sets the task status to failed. Failure is sticky.
func (s *State) MarkFailed() {
	s.Status = StatusFailed
	s.UpdatedAt = time.Now()
}

// MarkCompleted sets the task status to completed unless the task has
// already failed.
func (s *State) MarkCompleted() {
	if s.Status == StatusFailed {
		return
	}
	s.Status = StatusCompleted
	s.UpdatedAt = time.Now()
}

// Input keys that carry routing or bookkeeping data rather than task
// parameters. They never merge into InitialParameters.
var reservedInputKeys = map[string]bool{
	"target_agent_id": true,
	"parameters":      true,
	"action_type":     true,
	"source_agent_id": true,
}

// MergeInput folds new event input into the record. A newly supplied
// target_agent_id refines the existing one (it is never cleared), and
// parameters merge key by key: new values overwrite same-named old ones,
// unspecified keys persist. Bare non-reserved keys count as parameters;
// an explicit "parameters" block merges after them, so it wins when both
// name the same key.
func (s *State) MergeInput(input map[string]any) {
	if len(input) == 0 {
		return
	}

	if agentID, ok := input["target_agent_id"].(string); ok && agentID != "" {
		s.TargetAgentID = agentID
	}

	for k, v := range input {
		if !reservedInputKeys[k] {
			s.mergeParameter(k, v)
		}
	}
	if params, ok := input["parameters"].(map[string]any); ok {
		for k, v := range params {
			s.mergeParameter(k, v)
		}
	}

	s.UpdatedAt = time.Now()
}

func (s *State) mergeParameter(key string, value any) {
	if s.InitialParameters == nil {
		s.InitialParameters = make(map[string]any)
	}
	s.InitialParameters[key] = value
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
