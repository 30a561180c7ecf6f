package analysis

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Show total revenue", req.Query)
		assert.Equal(t, "warehouse", req.DataSource)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"generated_query": "SELECT SUM(amount) FROM orders",
			"row_count": 1,
			"summary": "Total revenue is 1.2M.",
			"insights": [{"title": "Q4 dominates"}],
			"chart_recommendations": [{"chart_type": "bar"}],
			"rows": [{"total": 1200000}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, func(o *Options) { o.APIKey = "secret" })

	a, err := c.Analyze(context.Background(), "Show total revenue", "warehouse")
	require.NoError(t, err)
	assert.Equal(t, "SELECT SUM(amount) FROM orders", a.GeneratedQuery)
	assert.Equal(t, 1, a.RowCount)
	assert.Equal(t, "Total revenue is 1.2M.", a.Summary)
	require.Len(t, a.Insights, 1)
	assert.Equal(t, "Q4 dominates", a.Insights[0].Title)
	assert.Equal(t, "bar", a.ChartRecommendations[0].ChartType)
	assert.Len(t, a.Rows, 1)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown table orders", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Analyze(context.Background(), "q", "warehouse")

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "unknown table orders", statusErr.Body)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, func(o *Options) { o.Timeout = 20 * time.Millisecond })

	_, err := c.Analyze(context.Background(), "q", "warehouse")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
