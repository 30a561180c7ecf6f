package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/logging"
)

// ErrEmptyCompletion is returned when a model finished without any text.
var ErrEmptyCompletion = errors.New("model returned an empty completion")

// Completer is the prompt-in / text-out contract used by the orchestrator.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts an ordinary function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f(ctx, prompt).
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// CompleterOptions configures a ModelCompleter.
type CompleterOptions struct {
	// Instructions are sent as system instructions with every prompt.
	Instructions string
	// Stream requests incremental generation from the provider.
	Stream bool
	Logger logging.Logger
}

// ModelCompleter drains a streaming Model into a single completion string.
type ModelCompleter struct {
	model Model
	opts  CompleterOptions
}

// NewCompleter wraps m as a Completer.
func NewCompleter(m Model, optFns ...func(o *CompleterOptions)) *ModelCompleter {
	opts := CompleterOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelCompleter{model: m, opts: opts}
}

// Complete sends prompt as a single user message and returns the final text.
// When the provider only streams partial chunks, their concatenation is used.
func (c *ModelCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := c.complete(ctx, prompt)
	info := c.model.Info()
	if err != nil {
		c.opts.Logger.Warn("completion failed", "model", info.Name, "provider", info.Provider, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("complete with %s: %w", info.Name, err)
	}
	c.opts.Logger.Debug("completion finished", "model", info.Name, "provider", info.Provider, "duration", time.Since(start), "chars", len(text))
	return text, nil
}

func (c *ModelCompleter) complete(ctx context.Context, prompt string) (string, error) {
	req := Request{
		Instructions: c.opts.Instructions,
		Contents:     []core.Content{core.NewTextContent("user", prompt)},
		Stream:       c.opts.Stream,
	}
	respCh, errCh := c.model.Generate(ctx, req)

	var (
		partial  strings.Builder
		final    string
		gotFinal bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				partial.WriteString(resp.Content.Text())
				continue
			}
			final = resp.Content.Text()
			gotFinal = true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", err
			}
		}
	}
	if !gotFinal {
		final = partial.String()
	}
	if strings.TrimSpace(final) == "" {
		return "", ErrEmptyCompletion
	}
	return final, nil
}
