package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockModel_Generate(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("revenue", "DATABASE")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "Show total revenue")},
	})

	var final Response
	for r := range respCh {
		final = r
	}
	for err := range errCh {
		require.NoError(t, err)
	}
	assert.False(t, final.Partial)
	assert.Equal(t, "DATABASE", final.Content.Text())
	assert.Equal(t, []string{"Show total revenue"}, m.Calls())
	assert.Equal(t, Info{Name: "mock", Provider: "test"}, m.Info())
}

func TestMockModel_FirstRuleWins(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("summarize", "first")
	m.AddResponse("summarize what", "second")

	text, err := NewCompleter(m).Complete(context.Background(), "please summarize what we found")
	require.NoError(t, err)
	assert.Equal(t, "first", text)
}

func TestCompleter_DrainsStreamingChunks(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("hi", "hello there")

	c := NewCompleter(m, func(o *CompleterOptions) { o.Stream = true })
	text, err := c.Complete(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestCompleter_DefaultResponse(t *testing.T) {
	m := NewMockModel("mock", "test")

	text, err := NewCompleter(m).Complete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: anything", text)
}

func TestCompleter_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockModel("mock", "test")
	m.SetError(boom)

	_, err := NewCompleter(m).Complete(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestCompleter_EmptyCompletion(t *testing.T) {
	m := NewMockModel("mock", "test")
	m.AddResponse("blank", "   ")

	_, err := NewCompleter(m).Complete(context.Background(), "blank")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestCompleter_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := CompleterFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := blocking.Complete(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
