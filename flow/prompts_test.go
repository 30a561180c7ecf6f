package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		reply string
		want  Intent
	}{
		{"DATABASE", IntentDatabaseQuery},
		{"REASONING", IntentReasoningOnly},
		{"reasoning.", IntentReasoningOnly},
		{"Answer: REASONING (no DATABASE needed)", IntentReasoningOnly},
		{"DATABASE, not REASONING", IntentDatabaseQuery},
		{"I am not sure", IntentDatabaseQuery},
		{"", IntentDatabaseQuery},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseIntent(tt.reply), tt.reply)
	}
}

func TestRenderPrompts(t *testing.T) {
	p, err := renderClassification("ctx <b>", "Why?")
	require.NoError(t, err)
	assert.Contains(t, p, "ctx <b>")
	assert.Contains(t, p, "New question: Why?")
	assert.Contains(t, p, "DATABASE or REASONING")

	p, err = renderSummarize("", "[1] Question: q", 50)
	require.NoError(t, err)
	assert.Contains(t, p, "at most 50 words")
	assert.NotContains(t, p, "Existing summary")

	p, err = renderSummarize("old", "[1] Question: q", 50)
	require.NoError(t, err)
	assert.Contains(t, p, "Existing summary:\nold")

	p, err = renderReasoning("warehouse", "ctx", "What next?")
	require.NoError(t, err)
	assert.Contains(t, p, `"warehouse"`)
	assert.Contains(t, p, "Question: What next?")
}

func TestTruncateWords(t *testing.T) {
	assert.Equal(t, "a b c", truncateWords(" a b c ", 3))
	assert.Equal(t, "a b ...", truncateWords("a b c d", 2))
	assert.Equal(t, "x y", truncateWords("x y", 0))
}
