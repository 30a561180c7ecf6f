package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/querymesh/core"
)

// InMemoryStore is a volatile SessionStore implementation storing sessions in
// a process local map. It is safe for concurrent access. Each returned
// session is cloned to prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*core.Session)}
}

// Create allocates an idle session bound to dataSource.
func (s *InMemoryStore) Create(_ context.Context, dataSource string, metadata map[string]string) (*core.Session, error) {
	sess := core.NewSession(dataSource, metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess.Clone(), nil
}

// Get returns a clone of the session or core.ErrSessionNotFound.
func (s *InMemoryStore) Get(_ context.Context, id string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("get session %s: %w", id, core.ErrSessionNotFound)
	}
	return sess.Clone(), nil
}

// List returns sessions matching filter, most recently updated first.
func (s *InMemoryStore) List(_ context.Context, filter core.SessionFilter) ([]*core.Session, error) {
	s.mu.RLock()
	matches := make([]*core.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if filter.Matches(sess) {
			matches = append(matches, sess.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
		}
		return matches[i].ID < matches[j].ID
	})

	return paginate(matches, filter.Offset, filter.Limit), nil
}

// Update replaces the mutable fields (messages, summary, status, metadata)
// of an existing session.
func (s *InMemoryStore) Update(_ context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[session.ID]
	if !ok {
		return fmt.Errorf("update session %s: %w", session.ID, core.ErrSessionNotFound)
	}
	next := session.Clone()
	next.DataSource = cur.DataSource
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	s.sessions[session.ID] = next
	return nil
}

// Delete removes a session.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("delete session %s: %w", id, core.ErrSessionNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// Close marks a session closed. Closing a closed session is a no-op.
func (s *InMemoryStore) Close(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("close session %s: %w", id, core.ErrSessionNotFound)
	}
	if sess.Status != core.StatusClosed {
		sess.Status = core.StatusClosed
		sess.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func paginate(in []*core.Session, offset, limit int) []*core.Session {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []*core.Session{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
