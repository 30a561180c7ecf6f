package testutil

import (
	"fmt"
	"time"

	"github.com/hupe1980/querymesh/core"
)

// SessionBuilder helps construct sessions with fluent chaining for tests.
// Example:
//
//	sess := NewSessionBuilder("warehouse").Turns(6).Summary("earlier").Build()
type SessionBuilder struct {
	id         string
	dataSource string
	summary    string
	status     core.SessionStatus
	metadata   map[string]string
	messages   []core.Message
}

// NewSessionBuilder creates a new builder for a session bound to dataSource.
func NewSessionBuilder(dataSource string) *SessionBuilder {
	return &SessionBuilder{dataSource: dataSource, status: core.StatusIdle, metadata: map[string]string{}}
}

// ID overrides the generated session id (chainable).
func (b *SessionBuilder) ID(id string) *SessionBuilder { b.id = id; return b }

// Summary sets the rolling summary (chainable).
func (b *SessionBuilder) Summary(s string) *SessionBuilder { b.summary = s; return b }

// Status sets the session status (chainable).
func (b *SessionBuilder) Status(s core.SessionStatus) *SessionBuilder { b.status = s; return b }

// Meta sets a metadata key (chainable).
func (b *SessionBuilder) Meta(k, v string) *SessionBuilder { b.metadata[k] = v; return b }

// Message appends a single assistant message (chainable).
func (b *SessionBuilder) Message(query, generatedQuery, resultSummary, analysis string) *SessionBuilder {
	m := core.NewMessage(query, generatedQuery, resultSummary, analysis)
	m.Timestamp = time.Date(2024, 1, 1, 0, len(b.messages), 0, 0, time.UTC)
	b.messages = append(b.messages, m)
	return b
}

// Turns appends n numbered messages of a completed data-query turn (chainable).
func (b *SessionBuilder) Turns(n int) *SessionBuilder {
	for i := 0; i < n; i++ {
		idx := len(b.messages) + 1
		b.Message(
			fmt.Sprintf("question %d", idx),
			fmt.Sprintf("SELECT %d", idx),
			fmt.Sprintf("%d rows", idx),
			fmt.Sprintf("finding %d", idx),
		)
	}
	return b
}

// Build returns a *core.Session with the configured transcript.
func (b *SessionBuilder) Build() *core.Session {
	s := core.NewSession(b.dataSource, b.metadata)
	if b.id != "" {
		s.ID = b.id
	}
	s.Summary = b.summary
	s.Status = b.status
	s.Messages = append(s.Messages, b.messages...)
	return s
}
