package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies an event in a turn stream.
type EventType string

const (
	// EventStatus announces a processing step; one per step entered.
	EventStatus EventType = "status"
	// EventThinking carries a progress trace for the current step.
	EventThinking EventType = "thinking"
	// EventAnswer carries the final narrative text of the turn.
	EventAnswer EventType = "answer"
	// EventMetadata carries structured extras of a data-query turn.
	EventMetadata EventType = "metadata"
	// EventError reports a failure recorded by the turn.
	EventError EventType = "error"
	// EventDone terminates the stream. Nothing follows it.
	EventDone EventType = "done"
)

// StatusPayload describes the step that was just entered.
type StatusPayload struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// ThinkingPayload is a human-readable progress trace.
type ThinkingPayload struct {
	Step string `json:"step"`
	Text string `json:"text"`
}

// AnswerPayload is the turn's final narrative.
type AnswerPayload struct {
	Text          string `json:"text"`
	ReasoningOnly bool   `json:"reasoning_only"`
}

// MetadataPayload carries the structured output of a data-query turn.
type MetadataPayload struct {
	GeneratedQuery       string                `json:"generated_query,omitempty"`
	RowCount             int                   `json:"row_count"`
	Insights             []Insight             `json:"insights,omitempty"`
	ChartRecommendations []ChartRecommendation `json:"chart_recommendations,omitempty"`
	Rows                 []map[string]any      `json:"rows,omitempty"`
	Truncated            bool                  `json:"truncated,omitempty"`
}

// ErrorPayload reports a turn failure. Fatal marks store-level errors after
// which the turn was not persisted.
type ErrorPayload struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal,omitempty"`
}

// DonePayload closes the stream with the session's resulting status.
// Persisted is false when the turn could not be recorded; Error then
// carries the store failure even if an earlier error event was emitted.
type DonePayload struct {
	Status       SessionStatus `json:"status"`
	MessageCount int           `json:"message_count"`
	Persisted    bool          `json:"persisted"`
	Error        string        `json:"error,omitempty"`
}

// Event is one element of the ordered stream produced for a turn. After
// emission it should be treated as immutable.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	TurnID    string    `json:"turn_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent creates an event bound to a session turn.
func NewEvent(sessionID, turnID string, typ EventType, payload any) Event {
	return Event{
		ID:        NewID(),
		Type:      typ,
		SessionID: sessionID,
		TurnID:    turnID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// IsTerminal reports whether this is the final event of a stream.
func (e Event) IsTerminal() bool { return e.Type == EventDone }

// NewID generates a new unique identifier for sessions, messages, turns and events.
func NewID() string { return uuid.NewString() }
