package testutil

import (
	"context"
	"strings"

	"github.com/hupe1980/querymesh/core"
	"github.com/stretchr/testify/mock"
)

// MockCompleter is a testify mock for model.Completer.
type MockCompleter struct {
	mock.Mock
}

// Complete records the call and returns the configured text and error.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockAnalyzer is a testify mock for core.Analyzer.
type MockAnalyzer struct {
	mock.Mock
}

// Analyze records the call and returns the configured analysis and error.
func (m *MockAnalyzer) Analyze(ctx context.Context, query, dataSource string) (*core.Analysis, error) {
	args := m.Called(ctx, query, dataSource)
	var a *core.Analysis
	if v := args.Get(0); v != nil {
		a = v.(*core.Analysis)
	}
	return a, args.Error(1)
}

// PromptContains matches a prompt argument containing substr.
func PromptContains(substr string) any {
	return mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, substr)
	})
}
