package core

import (
	"context"
	"time"
)

// Checkpoint is the durable snapshot of a session's most recent turn state.
// Snapshot is opaque to stores; there is exactly one checkpoint per session.
type Checkpoint struct {
	SessionID string            `json:"session_id"`
	Snapshot  []byte            `json:"snapshot"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// CheckpointStore persists one snapshot per session id. Writes are
// last-writer-wins; Get returns ErrCheckpointNotFound for a session that was
// never written.
type CheckpointStore interface {
	Get(ctx context.Context, sessionID string) (*Checkpoint, error)
	Put(ctx context.Context, sessionID string, snapshot []byte, metadata map[string]string) error
	Delete(ctx context.Context, sessionID string) error
}
