package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Q: {{.query}}\n{{default \"none\" .summary}}", map[string]any{
		"query": `revenue > 10 & "growth"`,
	})
	require.NoError(t, err)
	assert.Equal(t, "Q: revenue > 10 & \"growth\"\nnone", out, "text must not be HTML escaped")
}

func TestRenderTemplate_FastPath(t *testing.T) {
	out, err := RenderTemplate("plain text", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestRenderTemplate_Funcs(t *testing.T) {
	out, err := RenderTemplate(`{{upper .a}} {{join "," .items}} {{trim .b}}`, map[string]any{
		"a":     "db",
		"items": []string{"x", "y"},
		"b":     "  z ",
	})
	require.NoError(t, err)
	assert.Equal(t, "DB x,y z", out)
}

func TestRenderTemplate_ParseError(t *testing.T) {
	_, err := RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustRenderTemplate("{{.broken", nil) })
}
