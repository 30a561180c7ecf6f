package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent("s1", "t1", EventStatus, StatusPayload{Step: "build_context", Message: "Building context"})

	require.NotEmpty(t, e.ID)
	assert.Equal(t, EventStatus, e.Type)
	assert.Equal(t, "s1", e.SessionID)
	assert.Equal(t, "t1", e.TurnID)
	assert.False(t, e.Timestamp.IsZero())
	assert.False(t, e.IsTerminal())

	done := NewEvent("s1", "t1", EventDone, DonePayload{Status: StatusIdle})
	assert.True(t, done.IsTerminal())
	assert.NotEqual(t, e.ID, done.ID)
}

func TestContent_Text(t *testing.T) {
	c := Content{Role: "assistant", Parts: []Part{
		TextPart{Text: "hello "},
		DataPart{Data: map[string]any{"x": 1}},
		TextPart{Text: "world"},
	}}
	assert.Equal(t, "hello world", c.Text())
	assert.Equal(t, "hi", NewTextContent("user", "hi").Text())
}

func TestAnalysis_Failed(t *testing.T) {
	var nilAnalysis *Analysis
	assert.False(t, nilAnalysis.Failed())
	assert.False(t, (&Analysis{Summary: "ok"}).Failed())
	assert.True(t, (&Analysis{Error: "boom"}).Failed())
}
