package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewError(t *testing.T) {
	err := New(ErrCodeAgentNotFound, "no handler for echo")

	if err.Code() != ErrCodeAgentNotFound {
		t.Errorf("Expected code AGENT_NOT_FOUND, got %s", err.Code())
	}
	if err.Category() != CategoryPermanent {
		t.Errorf("Expected permanent category, got %s", err.Category())
	}
	if err.Retryable() {
		t.Error("AGENT_NOT_FOUND should not be retryable by default")
	}
	if err.Error() != "no handler for echo" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestRetryableOverride(t *testing.T) {
	err := New(ErrCodeAgentNotFound, "msg", WithRetryable(true))
	if !err.Retryable() {
		t.Error("Expected explicit retryable override to win")
	}
}

func TestWrapPreservesCode(t *testing.T) {
	inner := AgentExecution("pixel_forge", fmt.Errorf("boom"))
	wrapped := Wrap(inner, "dispatch failed")

	if wrapped.Code() != ErrCodeAgentExecution {
		t.Errorf("Expected wrapped code AGENT_EXECUTION, got %s", wrapped.Code())
	}
	if wrapped.AgentID() != "pixel_forge" {
		t.Errorf("Expected agent ID carried over, got %s", wrapped.AgentID())
	}
	if !stderrors.Is(wrapped, inner) {
		t.Error("Expected wrapped error chain to contain inner error")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "msg") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestIsCode(t *testing.T) {
	err := TaskNotFound("t1")
	if !Is(err, ErrCodeTaskNotFound) {
		t.Error("Expected Is to match TASK_NOT_FOUND")
	}
	if Is(err, ErrCodeAgentNotFound) {
		t.Error("Is matched wrong code")
	}
	if Is(fmt.Errorf("plain"), ErrCodeTaskNotFound) {
		t.Error("Is matched a plain error")
	}
}

func TestCauseWalksChain(t *testing.T) {
	root := fmt.Errorf("root cause")
	err := Wrap(WrapWithCode(root, ErrCodeAgentExecution, "mid"), "outer")
	if Cause(err) != root {
		t.Errorf("Expected root cause, got %v", Cause(err))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := AgentExecution("echo", fmt.Errorf("timeout talking to bridge"),
		WithTaskID("t1"), WithStep("dispatch_to_agent"))

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var restored Error
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if restored.Code() != ErrCodeAgentExecution {
		t.Errorf("Expected code AGENT_EXECUTION, got %s", restored.Code())
	}
	if restored.TaskID() != "t1" {
		t.Errorf("Expected task ID t1, got %s", restored.TaskID())
	}
	if restored.Step() != "dispatch_to_agent" {
		t.Errorf("Expected step dispatch_to_agent, got %s", restored.Step())
	}
	if restored.Retryable() {
		t.Error("Expected restored error to keep retryable=false")
	}
}

func TestContextErrorMapping(t *testing.T) {
	timeoutErr := Wrap(fmt.Errorf("call: %w", context.DeadlineExceeded), "llm call")
	if timeoutErr.Code() != ErrCodeTimeout {
		t.Errorf("Expected TIMEOUT for deadline exceeded, got %s", timeoutErr.Code())
	}

	cancelErr := Wrap(context.Canceled, "llm call")
	if cancelErr.Code() != ErrCodeCanceled {
		t.Errorf("Expected CANCELED, got %s", cancelErr.Code())
	}

	plainErr := Wrap(fmt.Errorf("boom"), "llm call")
	if plainErr.Code() != ErrCodeInternal {
		t.Errorf("Expected INTERNAL for unknown error, got %s", plainErr.Code())
	}
}
