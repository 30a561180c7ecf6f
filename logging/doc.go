// Package logging provides a minimal logging interface and adapters for querymesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the orchestrator, stores and service use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping an existing *slog.Logger
//   - StructuredLogger with component / session / turn context and turn helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	qm := querymesh.New(llm, analyzer, func(o *querymesh.Options) { o.Logger = logger })
//
// Arguments after the message are slog-style key/value pairs.
package logging
