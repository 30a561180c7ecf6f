package stream

import (
	"fmt"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/flow"
)

// DefaultMaxMetadataRows caps result rows carried by a metadata event.
const DefaultMaxMetadataRows = 10

// Options configures a Translator.
type Options struct {
	MaxMetadataRows int
}

var statusMessages = map[string]string{
	flow.NodeBuildContext:  "Gathering conversation context",
	flow.NodeRouteQuery:    "Deciding how to answer",
	flow.NodeProcessQuery:  "Querying the data source",
	flow.NodeReasoningOnly: "Reasoning over the conversation",
	flow.NodeSummarize:     "Condensing conversation history",
	flow.NodeSaveMessage:   "Saving results",
}

var enterTraces = map[string]string{
	flow.NodeBuildContext:  "Reviewing earlier questions and the running summary",
	flow.NodeRouteQuery:    "Checking whether the question needs fresh data",
	flow.NodeProcessQuery:  "Translating the question into a query",
	flow.NodeReasoningOnly: "Answering from earlier results without running a query",
	flow.NodeSummarize:     "Folding older messages into the summary",
}

// Translator turns flow.NodeEvents into core.Events. It is not safe for
// concurrent use; a turn drives it from a single goroutine.
//
// Per turn it emits: a status per node entered, thinking traces, exactly one
// answer when the processing node exits, at most one metadata (data-query
// turns only), at most one error, and a final done. Nothing is emitted after
// done.
type Translator struct {
	sessionID string
	turnID    string
	emit      func(core.Event)
	opts      Options

	entered  *flow.TurnState
	answered bool
	errored  bool
	fatal    error
	finished bool
}

// NewTranslator creates a translator that delivers events to emit.
func NewTranslator(sessionID, turnID string, emit func(core.Event), optFns ...func(o *Options)) *Translator {
	opts := Options{MaxMetadataRows: DefaultMaxMetadataRows}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Translator{sessionID: sessionID, turnID: turnID, emit: emit, opts: opts}
}

// Observe is a flow.Observer.
func (t *Translator) Observe(ev flow.NodeEvent) {
	if t.finished {
		return
	}
	switch ev.Kind {
	case flow.NodeEnter:
		t.enter(ev)
	case flow.NodeExit:
		t.exit(ev)
	}
}

// Fail reports a stream-level failure. Only the first error of a turn is
// emitted as an error event; the failure is always repeated on done.
func (t *Translator) Fail(err error) {
	if t.finished || err == nil {
		return
	}
	if t.fatal == nil {
		t.fatal = err
	}
	if t.errored {
		return
	}
	t.errored = true
	t.send(core.EventError, core.ErrorPayload{Message: err.Error(), Fatal: true})
}

// Done terminates the stream. The turn counts as persisted unless Fail was
// called. Subsequent calls are ignored.
func (t *Translator) Done(status core.SessionStatus, messageCount int) {
	if t.finished {
		return
	}
	payload := core.DonePayload{Status: status, MessageCount: messageCount, Persisted: t.fatal == nil}
	if t.fatal != nil {
		payload.Error = t.fatal.Error()
	}
	t.send(core.EventDone, payload)
	t.finished = true
}

// Finished reports whether done was emitted.
func (t *Translator) Finished() bool { return t.finished }

func (t *Translator) enter(ev flow.NodeEvent) {
	t.entered = ev.State
	msg, ok := statusMessages[ev.Node]
	if !ok {
		msg = ev.Node
	}
	t.send(core.EventStatus, core.StatusPayload{Step: ev.Node, Message: msg})
	if trace, ok := enterTraces[ev.Node]; ok {
		t.thinking(ev.Node, trace)
	}
}

func (t *Translator) exit(ev flow.NodeEvent) {
	s := ev.State
	switch ev.Node {
	case flow.NodeBuildContext:
		t.thinking(ev.Node, contextTrace(s))
	case flow.NodeRouteQuery:
		t.thinking(ev.Node, routingTrace(s))
	case flow.NodeProcessQuery:
		if s.GeneratedQuery != "" {
			t.thinking(ev.Node, "Generated query: "+s.GeneratedQuery)
		}
		t.answer(s)
		t.metadata(s)
		t.failure(s)
	case flow.NodeReasoningOnly:
		t.answer(s)
		t.failure(s)
	case flow.NodeSummarize:
		if t.entered != nil && s.Summary != t.entered.Summary {
			t.thinking(ev.Node, fmt.Sprintf("Condensed older messages; keeping the last %d", len(s.Messages)))
		} else {
			t.thinking(ev.Node, "Kept the full history")
		}
	}
}

func (t *Translator) answer(s *flow.TurnState) {
	if t.answered {
		return
	}
	t.answered = true
	text := ""
	reasoning := s.Intent == flow.IntentReasoningOnly
	if a := s.Analysis; a != nil {
		text = a.Summary
		reasoning = a.ReasoningOnly
	}
	if text == "" {
		text = fallbackAnswer(s)
	}
	t.send(core.EventAnswer, core.AnswerPayload{Text: text, ReasoningOnly: reasoning})
}

func (t *Translator) metadata(s *flow.TurnState) {
	a := s.Analysis
	if a == nil || a.ReasoningOnly || (a.Failed() && a.GeneratedQuery == "") {
		return
	}
	rows := a.Rows
	truncated := false
	if max := t.opts.MaxMetadataRows; max >= 0 && len(rows) > max {
		rows = rows[:max]
		truncated = true
	}
	t.send(core.EventMetadata, core.MetadataPayload{
		GeneratedQuery:       a.GeneratedQuery,
		RowCount:             a.RowCount,
		Insights:             a.Insights,
		ChartRecommendations: a.ChartRecommendations,
		Rows:                 rows,
		Truncated:            truncated,
	})
}

func (t *Translator) failure(s *flow.TurnState) {
	if t.errored {
		return
	}
	msg := s.Error
	if msg == "" && s.Analysis != nil {
		msg = s.Analysis.Error
	}
	if msg == "" {
		return
	}
	t.errored = true
	t.send(core.EventError, core.ErrorPayload{Message: msg})
}

func (t *Translator) thinking(step, text string) {
	t.send(core.EventThinking, core.ThinkingPayload{Step: step, Text: text})
}

func (t *Translator) send(typ core.EventType, payload any) {
	t.emit(core.NewEvent(t.sessionID, t.turnID, typ, payload))
}

func contextTrace(s *flow.TurnState) string {
	if !s.HasContext() {
		return "No earlier conversation, starting fresh"
	}
	if s.Summary != "" {
		return fmt.Sprintf("Using the running summary and %d earlier messages", len(s.Messages))
	}
	return fmt.Sprintf("Using %d earlier messages", len(s.Messages))
}

func routingTrace(s *flow.TurnState) string {
	switch s.Metadata[flow.MetaRouting] {
	case flow.RoutingFirstTurn:
		return "First question in this session, querying the data source"
	case flow.RoutingFallback:
		return "Could not classify the question, querying the data source"
	}
	if s.Intent == flow.IntentReasoningOnly {
		return "The earlier results are enough to answer this"
	}
	return "This needs fresh data from the data source"
}

func fallbackAnswer(s *flow.TurnState) string {
	if s.Failed() {
		return "I could not complete this request: " + s.Error
	}
	if a := s.Analysis; a != nil && !a.ReasoningOnly {
		return fmt.Sprintf("The query returned %d rows.", a.RowCount)
	}
	return "No answer was produced."
}
