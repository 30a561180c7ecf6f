package checkpoint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/querymesh/core"
)

// InMemoryStore is a volatile CheckpointStore. Snapshots are copied on the
// way in and out.
type InMemoryStore struct {
	mu          sync.RWMutex
	checkpoints map[string]*core.Checkpoint
}

// NewInMemoryStore constructs an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{checkpoints: make(map[string]*core.Checkpoint)}
}

// Get returns the session's checkpoint or core.ErrCheckpointNotFound.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*core.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[sessionID]
	if !ok {
		return nil, fmt.Errorf("get checkpoint %s: %w", sessionID, core.ErrCheckpointNotFound)
	}
	return clone(cp), nil
}

// Put overwrites the session's checkpoint.
func (s *InMemoryStore) Put(_ context.Context, sessionID string, snapshot []byte, metadata map[string]string) error {
	cp := clone(&core.Checkpoint{
		SessionID: sessionID,
		Snapshot:  snapshot,
		Metadata:  metadata,
		UpdatedAt: time.Now().UTC(),
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[sessionID] = cp
	return nil
}

// Delete removes the session's checkpoint if present.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checkpoints, sessionID)
	return nil
}

func clone(cp *core.Checkpoint) *core.Checkpoint {
	out := *cp
	out.Snapshot = append([]byte(nil), cp.Snapshot...)
	out.Metadata = make(map[string]string, len(cp.Metadata))
	for k, v := range cp.Metadata {
		out.Metadata[k] = v
	}
	return &out
}
