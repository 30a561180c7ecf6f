package core

import (
	"context"
	"time"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	// StatusIdle marks a session ready for its next turn.
	StatusIdle SessionStatus = "idle"
	// StatusProcessing marks a turn in flight.
	StatusProcessing SessionStatus = "processing"
	// StatusError marks a session whose last turn recorded a failure.
	StatusError SessionStatus = "error"
	// StatusClosed is a sink state; closed sessions reject new turns.
	StatusClosed SessionStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusProcessing, StatusError, StatusClosed:
		return true
	default:
		return false
	}
}

// Role identifies the author of a transcript message.
type Role string

// RoleAssistant marks a message recorded by the orchestrator for a turn.
const RoleAssistant Role = "assistant"

// Message is one transcript record. After it has been appended to a session
// it should be treated as immutable.
type Message struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Query          string    `json:"query"`
	GeneratedQuery string    `json:"generated_query,omitempty"`
	ResultSummary  string    `json:"result_summary,omitempty"`
	Analysis       string    `json:"analysis,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NewMessage creates an assistant message for a completed turn.
func NewMessage(query, generatedQuery, resultSummary, analysis string) Message {
	return Message{
		ID:             NewID(),
		Role:           RoleAssistant,
		Query:          query,
		GeneratedQuery: generatedQuery,
		ResultSummary:  resultSummary,
		Analysis:       analysis,
		Timestamp:      time.Now().UTC(),
	}
}

// Session is a conversation bound to a data source.
//
// Contract:
//   - Messages are in append order and are only trimmed by summarization
//   - An empty Summary means no history has been folded yet
//   - Clone performs deep copies of maps/slices for safe divergence
type Session struct {
	ID         string            `json:"id"`
	DataSource string            `json:"data_source"`
	Messages   []Message         `json:"messages"`
	Summary    string            `json:"summary,omitempty"`
	Status     SessionStatus     `json:"status"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// NewSession creates an idle session with a generated id.
func NewSession(dataSource string, metadata map[string]string) *Session {
	now := time.Now().UTC()
	md := make(map[string]string, len(metadata))
	for k, v := range metadata {
		md[k] = v
	}
	return &Session{
		ID:         NewID(),
		DataSource: dataSource,
		Messages:   []Message{},
		Status:     StatusIdle,
		Metadata:   md,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsClosed reports whether the session rejects new turns.
func (s *Session) IsClosed() bool { return s.Status == StatusClosed }

// Clone returns a deep copy of the session safe for independent mutation.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Messages = make([]Message, len(s.Messages))
	copy(clone.Messages, s.Messages)
	clone.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

// SessionFilter narrows List results. Zero values mean "no constraint";
// a non-positive Limit returns all matches.
type SessionFilter struct {
	DataSource string
	Status     SessionStatus
	Limit      int
	Offset     int
}

// Matches reports whether s satisfies the filter's field constraints.
func (f SessionFilter) Matches(s *Session) bool {
	if f.DataSource != "" && s.DataSource != f.DataSource {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// SessionStore persists session metadata and transcripts. Implementations
// must be safe for concurrent use across distinct session ids.
type SessionStore interface {
	Create(ctx context.Context, dataSource string, metadata map[string]string) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context, filter SessionFilter) ([]*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
}
