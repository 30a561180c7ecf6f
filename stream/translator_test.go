package stream

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/flow"
	"github.com/hupe1980/querymesh/internal/testutil"
	"github.com/hupe1980/querymesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ events []core.Event }

func (r *recorder) emit(ev core.Event) { r.events = append(r.events, ev) }

func (r *recorder) types() []core.EventType {
	out := make([]core.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) count(typ core.EventType) int {
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) first(typ core.EventType) (core.Event, bool) {
	for _, ev := range r.events {
		if ev.Type == typ {
			return ev, true
		}
	}
	return core.Event{}, false
}

func index(types []core.EventType, typ core.EventType) int {
	for i, t := range types {
		if t == typ {
			return i
		}
	}
	return -1
}

func runTurn(t *testing.T, llm model.Completer, analyzer core.Analyzer, sess *core.Session, query string) (*recorder, *flow.TurnState) {
	t.Helper()
	rec := &recorder{}
	tr := NewTranslator(sess.ID, "turn-1", rec.emit)
	final, err := flow.NewOrchestrator(llm, analyzer).Run(context.Background(), flow.NewTurnState(sess), query, tr.Observe)
	require.NoError(t, err)
	tr.Done(final.Status, len(final.Messages))
	return rec, final
}

func manyRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{"id": i}
	}
	return rows
}

func TestTranslator_DatabaseTurn(t *testing.T) {
	analyzer := core.AnalyzerFunc(func(context.Context, string, string) (*core.Analysis, error) {
		return &core.Analysis{
			GeneratedQuery:       "SELECT * FROM orders",
			RowCount:             25,
			Summary:              "25 orders found.",
			Insights:             []core.Insight{{Title: "Most orders in March"}},
			ChartRecommendations: []core.ChartRecommendation{{ChartType: "bar"}},
			Rows:                 manyRows(25),
		}, nil
	})

	sess := testutil.NewSessionBuilder("warehouse").ID("s1").Build()
	rec, _ := runTurn(t, new(testutil.MockCompleter), analyzer, sess, "List orders")

	types := rec.types()
	assert.Equal(t, core.EventStatus, types[0])
	assert.Equal(t, core.EventDone, types[len(types)-1])
	assert.Equal(t, 4, rec.count(core.EventStatus), "one status per node entered")
	assert.Equal(t, 1, rec.count(core.EventAnswer))
	assert.Equal(t, 1, rec.count(core.EventMetadata))
	assert.Zero(t, rec.count(core.EventError))
	assert.Less(t, index(types, core.EventAnswer), index(types, core.EventMetadata))

	answer, _ := rec.first(core.EventAnswer)
	assert.Equal(t, "25 orders found.", answer.Payload.(core.AnswerPayload).Text)

	meta, _ := rec.first(core.EventMetadata)
	payload := meta.Payload.(core.MetadataPayload)
	assert.Equal(t, "SELECT * FROM orders", payload.GeneratedQuery)
	assert.Equal(t, 25, payload.RowCount)
	assert.Len(t, payload.Rows, DefaultMaxMetadataRows)
	assert.True(t, payload.Truncated)

	var sawGenerated bool
	for _, ev := range rec.events {
		if p, ok := ev.Payload.(core.ThinkingPayload); ok && p.Text == "Generated query: SELECT * FROM orders" {
			sawGenerated = true
		}
	}
	assert.True(t, sawGenerated)

	for _, ev := range rec.events {
		assert.Equal(t, "s1", ev.SessionID)
		assert.Equal(t, "turn-1", ev.TurnID)
	}
}

func TestTranslator_ReasoningTurnHasNoMetadata(t *testing.T) {
	llm := model.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		return "REASONING", nil
	})
	analyzer := new(testutil.MockAnalyzer)

	sess := testutil.NewSessionBuilder("warehouse").Turns(2).Build()
	rec, _ := runTurn(t, llm, analyzer, sess, "Why?")

	assert.Equal(t, 1, rec.count(core.EventAnswer))
	assert.Zero(t, rec.count(core.EventMetadata))
	answer, _ := rec.first(core.EventAnswer)
	assert.True(t, answer.Payload.(core.AnswerPayload).ReasoningOnly)
	assert.Equal(t, core.EventDone, rec.types()[len(rec.events)-1])
}

func TestTranslator_FailedAnalysis(t *testing.T) {
	analyzer := core.AnalyzerFunc(func(context.Context, string, string) (*core.Analysis, error) {
		return nil, errors.New("timeout")
	})

	rec, final := runTurn(t, new(testutil.MockCompleter), analyzer, testutil.NewSessionBuilder("warehouse").Build(), "q")

	types := rec.types()
	assert.Equal(t, 1, rec.count(core.EventAnswer))
	assert.Equal(t, 1, rec.count(core.EventError))
	assert.Zero(t, rec.count(core.EventMetadata))
	assert.Less(t, index(types, core.EventAnswer), index(types, core.EventError))
	assert.Equal(t, core.EventDone, types[len(types)-1])

	answer, _ := rec.first(core.EventAnswer)
	assert.Contains(t, answer.Payload.(core.AnswerPayload).Text, "timeout")

	done, _ := rec.first(core.EventDone)
	assert.Equal(t, core.StatusError, done.Payload.(core.DonePayload).Status)
	assert.Equal(t, len(final.Messages), done.Payload.(core.DonePayload).MessageCount)
}

func TestTranslator_AtMostOneError(t *testing.T) {
	rec := &recorder{}
	tr := NewTranslator("s1", "t1", rec.emit)

	failed := &flow.TurnState{Error: "boom", Analysis: &core.Analysis{Error: "boom"}, Metadata: map[string]string{}}
	tr.Observe(flow.NodeEvent{Kind: flow.NodeExit, Node: flow.NodeProcessQuery, State: failed})
	tr.Fail(fmt.Errorf("persist: %w", errors.New("disk full")))
	tr.Done(core.StatusError, 0)

	assert.Equal(t, 1, rec.count(core.EventError))

	done, ok := rec.first(core.EventDone)
	require.True(t, ok)
	payload := done.Payload.(core.DonePayload)
	assert.False(t, payload.Persisted)
	assert.Equal(t, "persist: disk full", payload.Error)
}

func TestTranslator_DoneReportsPersisted(t *testing.T) {
	rec := &recorder{}
	tr := NewTranslator("s1", "t1", rec.emit)

	tr.Done(core.StatusIdle, 3)

	payload := rec.events[0].Payload.(core.DonePayload)
	assert.True(t, payload.Persisted)
	assert.Empty(t, payload.Error)
	assert.Equal(t, 3, payload.MessageCount)
}

func TestTranslator_NothingAfterDone(t *testing.T) {
	rec := &recorder{}
	tr := NewTranslator("s1", "t1", rec.emit)

	tr.Done(core.StatusIdle, 0)
	tr.Observe(flow.NodeEvent{Kind: flow.NodeEnter, Node: flow.NodeBuildContext, State: &flow.TurnState{}})
	tr.Fail(errors.New("late"))
	tr.Done(core.StatusIdle, 0)

	require.Len(t, rec.events, 1)
	assert.True(t, rec.events[0].IsTerminal())
	assert.True(t, tr.Finished())
}

func TestTranslator_RoutingTraces(t *testing.T) {
	tests := []struct {
		state *flow.TurnState
		want  string
	}{
		{&flow.TurnState{Metadata: map[string]string{flow.MetaRouting: flow.RoutingFirstTurn}}, "First question"},
		{&flow.TurnState{Metadata: map[string]string{flow.MetaRouting: flow.RoutingFallback}}, "Could not classify"},
		{&flow.TurnState{Intent: flow.IntentReasoningOnly, Metadata: map[string]string{flow.MetaRouting: flow.RoutingClassified}}, "enough to answer"},
		{&flow.TurnState{Intent: flow.IntentDatabaseQuery, Metadata: map[string]string{flow.MetaRouting: flow.RoutingClassified}}, "fresh data"},
	}
	for _, tt := range tests {
		assert.Contains(t, routingTrace(tt.state), tt.want)
	}
}
