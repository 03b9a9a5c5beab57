// Package errors provides the structured error taxonomy for taskmesh.
//
// The orchestration engine does not propagate task-internal failures to
// its callers; it folds them into the task state record. This package
// gives those failures a stable shape: a code (AGENT_NOT_FOUND,
// AGENT_EXECUTION, ...), a category with retry semantics, and JSON
// marshaling so errors embed cleanly in serialized task state.
//
// # Error Categories
//
//   - Transient: temporary failures where retry may succeed
//   - Permanent: failures where retry will not help
//   - Internal: unexpected errors indicating bugs or system failures
//
// # Usage
//
// Create a new error:
//
//	err := errors.AgentNotFound("pixel_forge", errors.WithTaskID(taskID))
//
// Inspect an error chain:
//
//	if errors.Is(err, errors.ErrCodeAgentNotFound) {
//	    // fold into task state
//	}
//
// Wrap an external failure:
//
//	err := errors.WrapWithCode(cause, errors.ErrCodeAgentExecution,
//	    "handler raised", errors.WithAgentID(agentID))
package errors
