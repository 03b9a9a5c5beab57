// Package task defines the serializable state record tracked for each
// managed task.
//
// A task's identity (TaskID) is immutable. Progress fields evolve as the
// orchestration pipeline runs its stages, under two hard rules:
//
//   - History is append-only: entries are never truncated or reordered.
//   - Failure is sticky: once a task is failed, no later stage flips it
//     back to completed.
//
// AgentResponses keeps only the latest response per handler; the full
// audit trail of every dispatch lives in History.
package task
