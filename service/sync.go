package service

import (
	"context"

	"github.com/hupe1980/querymesh/core"
)

// TurnResult is the drained outcome of a synchronous turn.
type TurnResult struct {
	TurnID string
	Events []core.Event
}

// Answer returns the text of the turn's answer event, if any.
func (r *TurnResult) Answer() string {
	for _, ev := range r.Events {
		if p, ok := ev.Payload.(core.AnswerPayload); ok {
			return p.Text
		}
	}
	return ""
}

// Metadata returns the turn's metadata payload, or nil for turns without one.
func (r *TurnResult) Metadata() *core.MetadataPayload {
	for _, ev := range r.Events {
		if p, ok := ev.Payload.(core.MetadataPayload); ok {
			return &p
		}
	}
	return nil
}

// Done returns the terminal payload, or nil if the stream never finished.
func (r *TurnResult) Done() *core.DonePayload {
	if n := len(r.Events); n > 0 {
		if p, ok := r.Events[n-1].Payload.(core.DonePayload); ok {
			return &p
		}
	}
	return nil
}

// ProcessTurnSync runs a turn and collects all of its events.
func (s *Service) ProcessTurnSync(ctx context.Context, sessionID, query string) (*TurnResult, error) {
	turnID, eventsCh, errorsCh, err := s.ProcessTurn(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	res := &TurnResult{TurnID: turnID}
	for ev := range eventsCh {
		res.Events = append(res.Events, ev)
	}

	if err := <-errorsCh; err != nil {
		return res, err
	}

	return res, nil
}
