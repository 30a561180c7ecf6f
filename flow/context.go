package flow

import (
	"fmt"
	"strings"

	"github.com/hupe1980/querymesh/core"
)

// BuildContext renders the rolling summary followed by the last window raw
// messages. It is pure: the same inputs always yield the same text, and an
// empty history yields the empty string.
func BuildContext(summary string, messages []core.Message, window int) string {
	var b strings.Builder
	if s := strings.TrimSpace(summary); s != "" {
		b.WriteString("Summary of earlier conversation:\n")
		b.WriteString(s)
		b.WriteString("\n")
	}

	recent := messages
	if window >= 0 && len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	if len(recent) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Recent exchanges:\n")
		b.WriteString(RenderMessages(recent))
	}
	return b.String()
}

// RenderMessages serializes messages as numbered question / query / result /
// analysis blocks.
func RenderMessages(messages []core.Message) string {
	var b strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&b, "[%d] Question: %s\n", i+1, m.Query)
		if m.GeneratedQuery != "" {
			fmt.Fprintf(&b, "    Query: %s\n", m.GeneratedQuery)
		}
		if m.ResultSummary != "" {
			fmt.Fprintf(&b, "    Result: %s\n", m.ResultSummary)
		}
		if m.Analysis != "" {
			fmt.Fprintf(&b, "    Analysis: %s\n", m.Analysis)
		}
	}
	return b.String()
}

// contextualQuery prefixes the query with conversation context for the
// analysis engine.
func contextualQuery(context, query string) string {
	if strings.TrimSpace(context) == "" {
		return query
	}
	return "Conversation context:\n" + context + "\nCurrent question: " + query
}
