// Package checkpoint persists per-task snapshots for resumption.
//
// A Checkpoint pairs a task state record with the input pending for the
// next pipeline run. Exactly one checkpoint exists per task ID; every
// Put overwrites the previous snapshot. Checkpoints are never deleted
// by the orchestration core; garbage collection of finished tasks is an
// external policy.
//
// Two backends are provided:
//
//   - MemoryStore: process-lifetime storage, the reference backend
//   - NATSStore: JetStream KV, for sharing snapshots across processes
package checkpoint
