package core

import "context"

// Insight is a single finding reported by the analysis engine.
type Insight struct {
	Type        string `json:"type,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Importance  string `json:"importance,omitempty"`
}

// ChartRecommendation suggests a visualization for a result set.
type ChartRecommendation struct {
	ChartType string `json:"chart_type"`
	Title     string `json:"title,omitempty"`
	XAxis     string `json:"x_axis,omitempty"`
	YAxis     string `json:"y_axis,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Analysis is the uniform output of a processing step. Data-query turns fill
// it from the analysis engine; reasoning turns wrap the model answer in the
// same shape with ReasoningOnly set.
type Analysis struct {
	GeneratedQuery       string                `json:"generated_query,omitempty"`
	RowCount             int                   `json:"row_count"`
	Summary              string                `json:"summary,omitempty"`
	Insights             []Insight             `json:"insights,omitempty"`
	ChartRecommendations []ChartRecommendation `json:"chart_recommendations,omitempty"`
	Rows                 []map[string]any      `json:"rows,omitempty"`
	ReasoningOnly        bool                  `json:"reasoning_only,omitempty"`
	Error                string                `json:"error,omitempty"`
}

// Failed reports whether the analysis carries an error.
func (a *Analysis) Failed() bool { return a != nil && a.Error != "" }

// Analyzer turns a contextualized natural-language question into a query,
// executes it against the referenced data source and describes the result.
// It is treated as one opaque call; retries belong to the implementation.
type Analyzer interface {
	Analyze(ctx context.Context, query, dataSource string) (*Analysis, error)
}

// AnalyzerFunc adapts an ordinary function to the Analyzer interface.
type AnalyzerFunc func(ctx context.Context, query, dataSource string) (*Analysis, error)

// Analyze calls f(ctx, query, dataSource).
func (f AnalyzerFunc) Analyze(ctx context.Context, query, dataSource string) (*Analysis, error) {
	return f(ctx, query, dataSource)
}
