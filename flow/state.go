package flow

import (
	"strings"

	"github.com/hupe1980/querymesh/core"
)

// Intent is the routing decision for a turn.
type Intent string

const (
	// IntentDatabaseQuery sends the turn to the analysis engine.
	IntentDatabaseQuery Intent = "database_query"
	// IntentReasoningOnly answers the turn from conversation context alone.
	IntentReasoningOnly Intent = "reasoning_only"
)

// Scratch metadata keys.
const (
	MetaContext      = "context"
	MetaRouting      = "routing"
	MetaRoutingError = "routing_error"
)

// Routing reasons stored under MetaRouting.
const (
	RoutingFirstTurn  = "first_turn"
	RoutingClassified = "classified"
	RoutingFallback   = "fallback"
)

// TurnState is the working state of one turn. It is rebuilt from a
// checkpoint (or the session transcript) when a turn starts and collapsed
// back into a checkpoint plus one appended Message when it ends.
type TurnState struct {
	SessionID      string             `json:"session_id"`
	DataSource     string             `json:"data_source"`
	Messages       []core.Message     `json:"messages"`
	Summary        string             `json:"summary,omitempty"`
	Query          string             `json:"query"`
	GeneratedQuery string             `json:"generated_query,omitempty"`
	Analysis       *core.Analysis     `json:"analysis,omitempty"`
	Intent         Intent             `json:"intent,omitempty"`
	Status         core.SessionStatus `json:"status"`
	Error          string             `json:"error,omitempty"`
	Metadata       map[string]string  `json:"metadata,omitempty"`
}

// NewTurnState seeds a state from a session's transcript.
func NewTurnState(sess *core.Session) *TurnState {
	msgs := make([]core.Message, len(sess.Messages))
	copy(msgs, sess.Messages)
	return &TurnState{
		SessionID:  sess.ID,
		DataSource: sess.DataSource,
		Messages:   msgs,
		Summary:    sess.Summary,
		Status:     core.StatusIdle,
		Metadata:   map[string]string{},
	}
}

// Begin returns a copy prepared for a new query: per-turn fields are reset,
// history (messages and summary) is carried over.
func (s *TurnState) Begin(query string) *TurnState {
	next := s.Clone()
	next.Query = query
	next.GeneratedQuery = ""
	next.Analysis = nil
	next.Intent = ""
	next.Status = core.StatusProcessing
	next.Error = ""
	next.Metadata = map[string]string{}
	return next
}

// Context returns the context text built for this turn.
func (s *TurnState) Context() string { return s.Metadata[MetaContext] }

// HasContext reports whether any prior conversation is available.
func (s *TurnState) HasContext() bool { return strings.TrimSpace(s.Context()) != "" }

// Failed reports whether the turn recorded an error.
func (s *TurnState) Failed() bool { return s.Error != "" }

// Clone returns a deep copy safe for independent mutation.
func (s *TurnState) Clone() *TurnState {
	out := *s
	out.Messages = make([]core.Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	out.Metadata = make(map[string]string, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	if s.Analysis != nil {
		a := cloneAnalysis(*s.Analysis)
		out.Analysis = &a
	}
	return &out
}

// Update is the delta a node returns. Nil pointer fields leave the state
// untouched.
type Update struct {
	// KeepLastMessages trims the log to its last N messages. Applied before
	// AppendMessages and reserved for summarization.
	KeepLastMessages *int
	AppendMessages   []core.Message
	Summary          *string
	GeneratedQuery   *string
	Analysis         *core.Analysis
	Intent           *Intent
	Status           *core.SessionStatus
	Error            *string
	Metadata         map[string]string
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return u.KeepLastMessages == nil && len(u.AppendMessages) == 0 && u.Summary == nil &&
		u.GeneratedQuery == nil && u.Analysis == nil && u.Intent == nil && u.Status == nil &&
		u.Error == nil && len(u.Metadata) == 0
}

// Merge applies u to a copy of s and returns it. Messages concatenate;
// metadata keys overwrite; every other set field replaces.
func Merge(s *TurnState, u Update) *TurnState {
	next := s.Clone()
	if u.KeepLastMessages != nil {
		keep := *u.KeepLastMessages
		if keep < 0 {
			keep = 0
		}
		if keep < len(next.Messages) {
			next.Messages = append([]core.Message(nil), next.Messages[len(next.Messages)-keep:]...)
		}
	}
	next.Messages = append(next.Messages, u.AppendMessages...)
	if u.Summary != nil {
		next.Summary = *u.Summary
	}
	if u.GeneratedQuery != nil {
		next.GeneratedQuery = *u.GeneratedQuery
	}
	if u.Analysis != nil {
		a := cloneAnalysis(*u.Analysis)
		next.Analysis = &a
	}
	if u.Intent != nil {
		next.Intent = *u.Intent
	}
	if u.Status != nil {
		next.Status = *u.Status
	}
	if u.Error != nil {
		next.Error = *u.Error
	}
	for k, v := range u.Metadata {
		next.Metadata[k] = v
	}
	return next
}

func cloneAnalysis(a core.Analysis) core.Analysis {
	a.Insights = append([]core.Insight(nil), a.Insights...)
	a.ChartRecommendations = append([]core.ChartRecommendation(nil), a.ChartRecommendations...)
	if a.Rows != nil {
		rows := make([]map[string]any, len(a.Rows))
		for i, r := range a.Rows {
			row := make(map[string]any, len(r))
			for k, v := range r {
				row[k] = v
			}
			rows[i] = row
		}
		a.Rows = rows
	}
	return a
}

func ptr[T any](v T) *T { return &v }
