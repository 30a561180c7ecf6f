package flow

import (
	"testing"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	s := NewTurnState(testutil.NewSessionBuilder("warehouse").ID("s1").Turns(2).Summary("earlier").Build())
	s.Intent = IntentDatabaseQuery
	s.Analysis = &core.Analysis{GeneratedQuery: "SELECT 1", RowCount: 1, Insights: []core.Insight{{Title: "up"}}}

	b, err := EncodeState(s)
	require.NoError(t, err)

	got, err := DecodeState(b)
	require.NoError(t, err)
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "earlier", got.Summary)
	require.Len(t, got.Messages, 2)
	assert.True(t, s.Messages[1].Timestamp.Equal(got.Messages[1].Timestamp))
	assert.Equal(t, "up", got.Analysis.Insights[0].Title)
	assert.NotNil(t, got.Metadata)
}

func TestSnapshot_Rejects(t *testing.T) {
	_, err := DecodeState([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeState([]byte(`{"version": 99, "state": {}}`))
	assert.ErrorIs(t, err, ErrUnsupportedSnapshot)

	_, err = DecodeState([]byte(`{"version": 1}`))
	assert.ErrorIs(t, err, ErrUnsupportedSnapshot)
}
