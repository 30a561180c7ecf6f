package stream

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/hupe1980/querymesh/core"
)

// ContentType is the MIME type of an SSE stream.
const ContentType = "text/event-stream"

type flusher interface{ Flush() }

// WriteSSE writes one event as a text/event-stream frame and flushes w when
// it supports flushing.
func WriteSSE(w io.Writer, ev core.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Type); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	if f, ok := w.(flusher); ok {
		f.Flush()
	}
	return nil
}

// Pipe copies events to w as SSE frames until done is written, events is
// closed, or ctx is canceled.
func Pipe(ctx context.Context, w io.Writer, events <-chan core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := WriteSSE(w, ev); err != nil {
				return err
			}
			if ev.IsTerminal() {
				return nil
			}
		}
	}
}
