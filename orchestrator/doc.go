// Package orchestrator drives tasks through a fixed five-stage pipeline:
//
//	start_task -> process_request -> dispatch_to_agent ->
//	handle_agent_response -> end_task
//
// Each Advance call runs one complete pass over the task's checkpointed
// state, folding the caller's input into the record before the first
// stage. The dispatch stage is the only suspension point: it resolves
// the target handler in the registry and blocks on its Process call.
//
// Handler failures never surface as errors from Advance. A missing or
// failing handler marks the task failed, records a structured error in
// the task record, and lets the remaining stages run so the audit trail
// is complete. The error return is reserved for unknown tasks, invalid
// IDs, storage faults, and context cancellation.
//
// Failure is sticky: once a task is failed, later passes and the
// closing stage cannot move it to completed. History is append-only
// across passes; per-agent responses are replaced in place.
//
// The engine serializes passes per task ID and persists a checkpoint
// after Initialize and after every Advance, so Read always observes a
// fully applied transition.
package orchestrator
