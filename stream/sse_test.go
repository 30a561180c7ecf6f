package stream

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushBuffer struct {
	bytes.Buffer
	flushes int
}

func (f *flushBuffer) Flush() { f.flushes++ }

func TestWriteSSE(t *testing.T) {
	var buf flushBuffer
	ev := core.NewEvent("s1", "t1", core.EventAnswer, core.AnswerPayload{Text: "hi"})

	require.NoError(t, WriteSSE(&buf, ev))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "event: answer\ndata: {"))
	assert.True(t, strings.HasSuffix(out, "}\n\n"))
	assert.Contains(t, out, `"text":"hi"`)
	assert.Equal(t, 1, buf.flushes)
}

func TestPipe_StopsAtDone(t *testing.T) {
	events := make(chan core.Event, 4)
	events <- core.NewEvent("s1", "t1", core.EventStatus, core.StatusPayload{Step: "build_context"})
	events <- core.NewEvent("s1", "t1", core.EventDone, core.DonePayload{Status: core.StatusIdle})
	events <- core.NewEvent("s1", "t1", core.EventStatus, core.StatusPayload{Step: "ignored"})

	var buf bytes.Buffer
	require.NoError(t, Pipe(context.Background(), &buf, events))

	assert.Equal(t, 2, strings.Count(buf.String(), "event: "))
	assert.NotContains(t, buf.String(), "ignored")
}

func TestPipe_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Pipe(ctx, &bytes.Buffer{}, make(chan core.Event))
	assert.ErrorIs(t, err, context.Canceled)
}
