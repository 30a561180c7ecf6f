package flow

import (
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_AppendsMessages(t *testing.T) {
	s := NewTurnState(testutil.NewSessionBuilder("warehouse").Turns(2).Build())
	m := core.NewMessage("q3", "", "", "")

	next := Merge(s, Update{AppendMessages: []core.Message{m}})

	require.Len(t, next.Messages, 3)
	assert.Equal(t, "q3", next.Messages[2].Query)
	assert.Len(t, s.Messages, 2, "input state must not change")
}

func TestMerge_TrimBeforeAppend(t *testing.T) {
	s := NewTurnState(testutil.NewSessionBuilder("warehouse").Turns(6).Build())
	keep := 3

	next := Merge(s, Update{
		KeepLastMessages: &keep,
		AppendMessages:   []core.Message{core.NewMessage("new", "", "", "")},
	})

	require.Len(t, next.Messages, 4)
	assert.Equal(t, "question 4", next.Messages[0].Query)
	assert.Equal(t, "new", next.Messages[3].Query)
}

func TestMerge_ScalarsAndMetadata(t *testing.T) {
	s := NewTurnState(testutil.NewSessionBuilder("warehouse").Build())
	s.Metadata["a"] = "1"

	next := Merge(s, Update{
		Summary:  ptr("rolling"),
		Intent:   ptr(IntentReasoningOnly),
		Status:   ptr(core.StatusError),
		Error:    ptr("boom"),
		Metadata: map[string]string{"b": "2", "a": "overwritten"},
		Analysis: &core.Analysis{Summary: "x", Rows: []map[string]any{{"n": 1}}},
	})

	assert.Equal(t, "rolling", next.Summary)
	assert.Equal(t, IntentReasoningOnly, next.Intent)
	assert.Equal(t, core.StatusError, next.Status)
	assert.True(t, next.Failed())
	assert.Equal(t, "overwritten", next.Metadata["a"])
	assert.Equal(t, "2", next.Metadata["b"])
	assert.Equal(t, "1", s.Metadata["a"])
	require.NotNil(t, next.Analysis)
	assert.Equal(t, "x", next.Analysis.Summary)
}

func TestMerge_ZeroUpdate(t *testing.T) {
	s := NewTurnState(testutil.NewSessionBuilder("warehouse").Turns(1).Summary("s").Build())
	assert.True(t, Update{}.IsZero())
	assert.Equal(t, s, Merge(s, Update{}))
}

func TestTurnState_Begin(t *testing.T) {
	s := NewTurnState(testutil.NewSessionBuilder("warehouse").Turns(2).Summary("earlier").Build())
	s.GeneratedQuery = "SELECT old"
	s.Error = "old failure"
	s.Analysis = &core.Analysis{Summary: "old"}
	s.Metadata[MetaContext] = "stale"

	next := s.Begin("new question")

	assert.Equal(t, "new question", next.Query)
	assert.Empty(t, next.GeneratedQuery)
	assert.Empty(t, next.Error)
	assert.Nil(t, next.Analysis)
	assert.Empty(t, next.Context())
	assert.Equal(t, core.StatusProcessing, next.Status)
	assert.Len(t, next.Messages, 2)
	assert.Equal(t, "earlier", next.Summary)
	assert.Equal(t, "SELECT old", s.GeneratedQuery)
}
