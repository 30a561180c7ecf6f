// Package checkpoint houses implementations of core.CheckpointStore, which
// keeps exactly one resumable snapshot per session (overwrite, not history).
package checkpoint
