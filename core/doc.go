// Package core provides the foundational domain types and collaborator
// contracts used by querymesh. It defines the core abstractions for:
//
//   - Sessions (conversations bound to a data source with an ordered transcript)
//   - Messages (immutable per-turn transcript records)
//   - Checkpoints (one opaque resumable snapshot per session)
//   - Events (the typed, ordered stream delivered to callers during a turn)
//   - Analyses (the uniform output shape of data-query and reasoning turns)
//   - Small store and collaborator interfaces (SessionStore, CheckpointStore, Analyzer)
//
// The package intentionally keeps implementation concerns (persistence,
// orchestration, providers) out of scope, exposing small interfaces so
// backends can be swapped without touching calling code.
package core
