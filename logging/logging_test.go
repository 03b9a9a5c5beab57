package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelInfo)

	// Debug should be filtered
	logger.Debug("debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered at INFO level")
	}

	// Info should pass
	logger.Info("info message")
	if buf.Len() == 0 {
		t.Error("info message should be logged")
	}

	output := buf.String()
	if !strings.Contains(output, "INFO") {
		t.Error("log should contain INFO level")
	}
	if !strings.Contains(output, "info message") {
		t.Error("log should contain the message")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_WithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithComponent("orchestrator")
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "[orchestrator]") {
		t.Errorf("expected component 'orchestrator' in log, got: %s", output)
	}
}

func TestLogger_WithTaskID(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithTaskID("task-123")
	logger.SetOutput(&buf)

	logger.Info("test message")

	output := buf.String()
	if !strings.Contains(output, "task_id=task-123") {
		t.Errorf("expected task_id field in log, got: %s", output)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.Info("dispatch", map[string]interface{}{
		"agent_id": "echo",
	})

	output := buf.String()
	if !strings.Contains(output, "agent_id=echo") {
		t.Errorf("expected field 'agent_id=echo' in log, got: %s", output)
	}
}

func TestLogger_TaskLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelDebug)

	logger.TaskStart("t1", "echo")
	logger.StageComplete("t1", "start_task", "in_progress")
	logger.DispatchComplete("t1", "echo")
	logger.TaskComplete("t1", "completed")

	output := buf.String()
	for _, want := range []string{"task_start", "stage_complete", "dispatch_complete", "task_complete", "task_id=t1", "agent_id=echo"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in log, got: %s", want, output)
		}
	}
}

func TestLogger_DispatchError(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)

	logger.DispatchError("t1", "ghost", errors.New("agent not found"))

	output := buf.String()
	if !strings.Contains(output, "ERROR") {
		t.Error("dispatch error should be ERROR level")
	}
	if !strings.Contains(output, "agent_id=ghost") {
		t.Errorf("expected agent_id field, got: %s", output)
	}
}

func TestLogger_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithComponent("test")
	logger.SetOutput(&buf)

	logger.Info("hello world", map[string]interface{}{"key": "value"})

	output := buf.String()
	// Format: LEVEL TIMESTAMP [component] message key=value
	// Example: INFO  2026-02-05T04:00:00.000Z [test] hello world key=value
	if !strings.HasPrefix(output, "INFO ") {
		t.Errorf("expected line to start with 'INFO ', got: %s", output)
	}
	if !strings.Contains(output, "[test]") {
		t.Errorf("expected component [test], got: %s", output)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("expected message, got: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("expected key=value, got: %s", output)
	}
}

func TestLogger_BridgeTiming(t *testing.T) {
	var buf bytes.Buffer
	logger := New()
	logger.SetOutput(&buf)
	logger.SetLevel(LevelDebug)

	logger.BridgeRequest("retro_diffusion", "generate_sprite", 10*time.Millisecond, nil)
	logger.BridgeRequest("muse", "generate_track", 5*time.Millisecond, errors.New("queue full"))

	output := buf.String()
	if !strings.Contains(output, "bridge_request") {
		t.Error("expected bridge_request log")
	}
	if !strings.Contains(output, "bridge_error") {
		t.Error("expected bridge_error log")
	}
	if !strings.Contains(output, "duration=") {
		t.Error("expected duration in log")
	}
}
