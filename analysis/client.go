// Package analysis provides a core.Analyzer backed by a remote analysis
// engine speaking JSON over HTTP.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/logging"
)

// Request is the body posted to the engine.
type Request struct {
	Query      string `json:"query"`
	DataSource string `json:"data_source"`
}

// StatusError reports a non-2xx engine response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("analysis engine returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	APIKey     string
	Timeout    time.Duration
	Logger     logging.Logger
}

// Client calls the engine once per Analyze; it does not retry.
type Client struct {
	endpoint string
	opts     Options
}

var _ core.Analyzer = (*Client)(nil)

// NewClient creates a client posting to endpoint.
func NewClient(endpoint string, optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient: http.DefaultClient,
		Timeout:    60 * time.Second,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{endpoint: endpoint, opts: opts}
}

// Analyze implements core.Analyzer.
func (c *Client) Analyze(ctx context.Context, query, dataSource string) (*core.Analysis, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(Request{Query: query, DataSource: dataSource})
	if err != nil {
		return nil, fmt.Errorf("encoding analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating analysis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	start := time.Now()
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling analysis engine: %w", err)
	}
	defer resp.Body.Close()

	c.opts.Logger.Debug("analysis engine responded",
		"data_source", dataSource,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(snippet))}
	}

	var a core.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}

	return &a, nil
}
