package querymesh

import (
	"context"
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryMesh_Conversation(t *testing.T) {
	ctx := context.Background()

	llm := model.NewMockModel("mock", "mock")
	llm.AddResponse("Reply with exactly one word", "REASONING")
	llm.AddResponse("Answer the question below", "Revenue is up because of Q4.")

	var analyzed []string
	analyzer := core.AnalyzerFunc(func(_ context.Context, query, dataSource string) (*core.Analysis, error) {
		analyzed = append(analyzed, query)
		return &core.Analysis{GeneratedQuery: "SELECT 1", RowCount: 1, Summary: "Revenue is 1.2M."}, nil
	})

	m := New(llm, analyzer)

	sess, err := m.CreateSession(ctx, "warehouse", map[string]string{"owner": "ana"})
	require.NoError(t, err)

	first, err := m.AskSync(ctx, sess.ID, "Show total revenue")
	require.NoError(t, err)
	assert.Equal(t, "Revenue is 1.2M.", first.Answer())
	assert.Empty(t, llm.Calls(), "first turn skips classification")

	second, err := m.AskSync(ctx, sess.ID, "Why?")
	require.NoError(t, err)
	assert.Equal(t, "Revenue is up because of Q4.", second.Answer())
	assert.Nil(t, second.Metadata())
	assert.Len(t, analyzed, 1)

	got, err := m.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, core.StatusIdle, got.Status)

	list, err := m.ListSessions(ctx, core.SessionFilter{DataSource: "warehouse"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, m.CloseSession(ctx, sess.ID))
	_, err = m.AskSync(ctx, sess.ID, "More?")
	assert.ErrorIs(t, err, core.ErrSessionClosed)

	require.NoError(t, m.DeleteSession(ctx, sess.ID))
	_, err = m.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
}

func TestQueryMesh_Ask(t *testing.T) {
	ctx := context.Background()
	analyzer := core.AnalyzerFunc(func(context.Context, string, string) (*core.Analysis, error) {
		return &core.Analysis{Summary: "ok"}, nil
	})
	m := New(model.NewMockModel("mock", "mock"), analyzer)

	sess, err := m.CreateSession(ctx, "warehouse", nil)
	require.NoError(t, err)

	turnID, events, errs, err := m.Ask(ctx, sess.ID, "q")
	require.NoError(t, err)
	assert.NotEmpty(t, turnID)

	var last core.Event
	for ev := range events {
		last = ev
	}
	require.NoError(t, <-errs)
	assert.True(t, last.IsTerminal())
	assert.Equal(t, turnID, last.TurnID)
}
