package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	md := map[string]string{"owner": "alice"}
	s := NewSession("warehouse", md)

	require.NotEmpty(t, s.ID)
	assert.Equal(t, "warehouse", s.DataSource)
	assert.Equal(t, StatusIdle, s.Status)
	assert.Empty(t, s.Messages)
	assert.Empty(t, s.Summary)
	assert.False(t, s.CreatedAt.IsZero())

	md["owner"] = "bob"
	assert.Equal(t, "alice", s.Metadata["owner"], "metadata must be copied on construction")
}

func TestSession_Clone(t *testing.T) {
	s := NewSession("warehouse", map[string]string{"k": "v"})
	s.Messages = append(s.Messages, NewMessage("q1", "SELECT 1", "1 row", "ok"))

	clone := s.Clone()
	require.NotSame(t, s, clone)

	clone.Messages[0].Query = "changed"
	clone.Messages = append(clone.Messages, NewMessage("q2", "", "", ""))
	clone.Metadata["k"] = "other"

	assert.Equal(t, "q1", s.Messages[0].Query)
	assert.Len(t, s.Messages, 1)
	assert.Equal(t, "v", s.Metadata["k"])
}

func TestSessionStatus_Valid(t *testing.T) {
	for _, st := range []SessionStatus{StatusIdle, StatusProcessing, StatusError, StatusClosed} {
		assert.True(t, st.Valid(), st)
	}
	assert.False(t, SessionStatus("paused").Valid())
}

func TestSessionFilter_Matches(t *testing.T) {
	s := NewSession("warehouse", nil)

	assert.True(t, SessionFilter{}.Matches(s))
	assert.True(t, SessionFilter{DataSource: "warehouse", Status: StatusIdle}.Matches(s))
	assert.False(t, SessionFilter{DataSource: "crm"}.Matches(s))
	assert.False(t, SessionFilter{Status: StatusClosed}.Matches(s))
}

func TestNewMessage(t *testing.T) {
	m := NewMessage("Show total revenue", "SELECT SUM(x)", "1 row", "Revenue is 10")

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, RoleAssistant, m.Role)
	assert.Equal(t, "SELECT SUM(x)", m.GeneratedQuery)
	assert.False(t, m.Timestamp.IsZero())
}
