package task

import (
	"testing"
)

func TestNewGeneratesID(t *testing.T) {
	s := New("", "echo", nil)
	if s.TaskID == "" {
		t.Fatal("Expected generated task ID")
	}
	if s.Status != StatusPending {
		t.Errorf("Expected status pending, got %s", s.Status)
	}
	if len(s.History) != 0 {
		t.Errorf("Expected empty history, got %d entries", len(s.History))
	}
}

func TestNewKeepsProvidedID(t *testing.T) {
	s := New("t1", "echo", map[string]any{"msg": "hi"})
	if s.TaskID != "t1" {
		t.Errorf("Expected task ID t1, got %s", s.TaskID)
	}
	if s.InitialParameters["msg"] != "hi" {
		t.Errorf("Expected msg=hi in parameters, got %v", s.InitialParameters)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}
	for _, c := range cases {
		if got := c.status.IsTerminal(); got != c.terminal {
			t.Errorf("IsTerminal(%s) = %v, want %v", c.status, got, c.terminal)
		}
	}
}

func TestStickyFailure(t *testing.T) {
	s := New("t1", "echo", nil)
	s.MarkFailed()
	s.MarkCompleted()
	if s.Status != StatusFailed {
		t.Errorf("Expected failed status to stick, got %s", s.Status)
	}
}

func TestMergeInputRefinesAgent(t *testing.T) {
	s := New("t1", "echo", map[string]any{"a": 1})

	s.MergeInput(map[string]any{
		"target_agent_id": "pixel_forge",
		"parameters":      map[string]any{"b": 2},
	})

	if s.TargetAgentID != "pixel_forge" {
		t.Errorf("Expected refined agent pixel_forge, got %s", s.TargetAgentID)
	}
	if s.InitialParameters["a"] != 1 || s.InitialParameters["b"] != 2 {
		t.Errorf("Expected merged parameters a:1 b:2, got %v", s.InitialParameters)
	}
}

func TestMergeInputNeverClearsAgent(t *testing.T) {
	s := New("t1", "echo", nil)
	s.MergeInput(map[string]any{"target_agent_id": ""})
	if s.TargetAgentID != "echo" {
		t.Errorf("Expected target agent preserved, got %q", s.TargetAgentID)
	}
}

func TestMergeInputOverwritesSameKey(t *testing.T) {
	s := New("t1", "echo", map[string]any{"msg": "hi", "keep": true})
	s.MergeInput(map[string]any{"parameters": map[string]any{"msg": "bye"}})
	if s.InitialParameters["msg"] != "bye" {
		t.Errorf("Expected msg overwritten to bye, got %v", s.InitialParameters["msg"])
	}
	if s.InitialParameters["keep"] != true {
		t.Errorf("Expected unspecified key to persist, got %v", s.InitialParameters)
	}
}

func TestMergeInputBareKeys(t *testing.T) {
	s := New("t1", "echo", map[string]any{"a": 1})

	s.MergeInput(map[string]any{"b": 2})

	if s.InitialParameters["a"] != 1 || s.InitialParameters["b"] != 2 {
		t.Errorf("Expected bare key merged alongside existing, got %v", s.InitialParameters)
	}
}

func TestMergeInputReservedKeysStayOut(t *testing.T) {
	s := New("t1", "echo", nil)

	s.MergeInput(map[string]any{
		"target_agent_id": "pixel_forge",
		"action_type":     "echo",
		"source_agent_id": "echo",
		"b":               2,
	})

	for _, key := range []string{"target_agent_id", "action_type", "source_agent_id", "parameters"} {
		if _, ok := s.InitialParameters[key]; ok {
			t.Errorf("Reserved key %q leaked into parameters: %v", key, s.InitialParameters)
		}
	}
	if s.InitialParameters["b"] != 2 {
		t.Errorf("Expected bare key merged, got %v", s.InitialParameters)
	}
}

func TestMergeInputParametersBlockWinsOverBare(t *testing.T) {
	s := New("t1", "echo", nil)

	s.MergeInput(map[string]any{
		"event_type": "dispatched",
		"parameters": map[string]any{"event_type": "completed_successfully"},
	})

	if s.InitialParameters["event_type"] != "completed_successfully" {
		t.Errorf("Expected parameters block to win, got %v", s.InitialParameters["event_type"])
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New("t1", "echo", map[string]any{"a": 1})
	s.AppendHistory("start_task", "Task started.", map[string]any{"k": "v"})
	s.AgentResponses["echo"] = AgentResponse{
		Status:  "completed",
		Details: map[string]any{"out": "x"},
	}
	s.RecordError("AGENT_NOT_FOUND", "no handler", "dispatch_to_agent")

	clone := s.Clone()

	clone.InitialParameters["a"] = 99
	clone.History[0].Data["k"] = "mutated"
	clone.AgentResponses["echo"].Details["out"] = "mutated"
	clone.Errors[0].Code = "OTHER"

	if s.InitialParameters["a"] != 1 {
		t.Error("Clone shares InitialParameters with original")
	}
	if s.History[0].Data["k"] != "v" {
		t.Error("Clone shares history data with original")
	}
	if s.AgentResponses["echo"].Details["out"] != "x" {
		t.Error("Clone shares agent response details with original")
	}
	if s.Errors[0].Code != "AGENT_NOT_FOUND" {
		t.Error("Clone shares errors with original")
	}
}

func TestAppendHistoryPreservesOrder(t *testing.T) {
	s := New("t1", "echo", nil)
	steps := []string{"start_task", "process_request", "dispatch_to_agent"}
	for _, step := range steps {
		s.AppendHistory(step, "msg", nil)
	}
	if len(s.History) != len(steps) {
		t.Fatalf("Expected %d history entries, got %d", len(steps), len(s.History))
	}
	for i, step := range steps {
		if s.History[i].Step != step {
			t.Errorf("History[%d] = %s, want %s", i, s.History[i].Step, step)
		}
	}
}
