package flow

import (
	"strings"

	"github.com/hupe1980/querymesh/internal/util"
)

const classificationPrompt = `You route questions for a data analytics assistant.

Conversation so far:
{{.context}}
New question: {{.query}}

Decide whether answering the new question requires running a fresh query against the database, or whether it can be answered from the conversation above alone.
Reply with exactly one word: DATABASE or REASONING.`

const reasoningPrompt = `You are a data analyst continuing a conversation about the data source "{{.data_source}}".

{{.context}}
Answer the question below using only the information in the conversation above. Do not invent numbers. If the conversation does not contain enough information, say so plainly.

Question: {{.query}}`

const summarizePrompt = `Condense the following analytics conversation into a summary of at most {{.max_words}} words.
Keep the questions asked, the queries used, key numbers and findings so later questions can be answered from the summary alone.
{{if .summary}}
Existing summary:
{{.summary}}
{{end}}
Messages to fold in:
{{.messages}}`

func renderClassification(context, query string) (string, error) {
	return util.RenderTemplate(classificationPrompt, map[string]any{"context": context, "query": query})
}

func renderReasoning(dataSource, context, query string) (string, error) {
	return util.RenderTemplate(reasoningPrompt, map[string]any{
		"data_source": dataSource,
		"context":     context,
		"query":       query,
	})
}

func renderSummarize(summary, messages string, maxWords int) (string, error) {
	return util.RenderTemplate(summarizePrompt, map[string]any{
		"summary":   strings.TrimSpace(summary),
		"messages":  messages,
		"max_words": maxWords,
	})
}

// ParseIntent inspects a classification reply for a DATABASE / REASONING
// signal. The first signal wins; a reply without one routes to the database.
func ParseIntent(reply string) Intent {
	up := strings.ToUpper(reply)
	db := strings.Index(up, "DATABASE")
	rs := strings.Index(up, "REASONING")
	if rs >= 0 && (db < 0 || rs < db) {
		return IntentReasoningOnly
	}
	return IntentDatabaseQuery
}

// truncateWords caps text at max words.
func truncateWords(text string, max int) string {
	if max <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= max {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:max], " ") + " ..."
}
