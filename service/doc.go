// Package service runs conversational turns against durable session state.
//
// A Service ties together a core.SessionStore, a core.CheckpointStore and a
// flow.Orchestrator. For every turn it
//   - rejects caller errors (unknown or closed session, empty query) before
//     anything is mutated,
//   - restores the working state from the session's checkpoint, or seeds it
//     from the transcript when no usable checkpoint exists,
//   - runs the orchestrator and streams translated events to the caller,
//   - persists the checkpoint and then the session, detached from caller
//     cancellation, and
//   - terminates the stream with a done event.
//
// Turns of distinct sessions may run concurrently. Callers serialize turns of
// the same session.
package service
