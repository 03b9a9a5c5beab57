// Package agents provides the concrete task handlers registered with
// the dispatch registry.
//
// Each handler implements registry.Handler: it reads its instructions
// from the merged task parameters, performs the work through the llm,
// toolchain, and knowledge packages, and returns a result map whose
// "event_type" key drives the task's status transition. Handlers
// return a Go error only for infrastructure faults (bridge down, index
// unavailable); domain-level rejections such as bad parameters or an
// unsupported task type come back as a failed result map so they are
// recorded in task state instead of aborting the pipeline.
package agents

import (
	"fmt"
)

// Event type values handlers emit in their result maps.
const (
	eventCompleted = "completed_successfully"
	eventFailed    = "failed"
)

// success returns a completed result map carrying the given details.
// Reserved keys in details win over the defaults.
func success(details map[string]any) map[string]any {
	out := map[string]any{
		"event_type": eventCompleted,
		"status":     "success",
	}
	for k, v := range details {
		out[k] = v
	}
	return out
}

// failure returns a failed result map. The engine records it in task
// state and marks the task failed without treating it as a dispatch
// error.
func failure(message string) map[string]any {
	return map[string]any{
		"event_type": eventFailed,
		"status":     "failure",
		"message":    message,
	}
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// intParam tolerates the float64 that JSON decoding produces for
// numbers as well as native ints.
func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func boolParam(params map[string]any, key string, fallback bool) bool {
	if v, ok := params[key].(bool); ok {
		return v
	}
	return fallback
}

// anyToString renders a parameter value for prompt substitution.
func anyToString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
