package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/flow"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/stream"
)

// Checkpoint metadata keys.
const (
	MetaTurnID = "turn_id"
	MetaStatus = "status"
	MetaIntent = "intent"
)

// Options holds configuration overrides passed to New().
type Options struct {
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
	// PersistTimeout bounds checkpoint and session writes at the end of a turn.
	PersistTimeout time.Duration
	// MaxMetadataRows caps the rows carried by a metadata event.
	MaxMetadataRows int
	// Logger receives turn lifecycle logs.
	Logger logging.Logger
}

// Service executes turns. Public methods are safe for concurrent use.
type Service struct {
	sessions     core.SessionStore
	checkpoints  core.CheckpointStore
	orchestrator *flow.Orchestrator

	eventBufferSize int
	persistTimeout  time.Duration
	maxMetadataRows int
	logger          logging.Logger

	activeRuns map[string]context.CancelFunc
	mu         sync.Mutex
}

// New constructs a Service with optional overrides.
func New(sessions core.SessionStore, checkpoints core.CheckpointStore, orchestrator *flow.Orchestrator, optFns ...func(o *Options)) *Service {
	opts := Options{
		EventBufferSize: 100,
		PersistTimeout:  10 * time.Second,
		MaxMetadataRows: stream.DefaultMaxMetadataRows,
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Service{
		sessions:        sessions,
		checkpoints:     checkpoints,
		orchestrator:    orchestrator,
		eventBufferSize: opts.EventBufferSize,
		persistTimeout:  opts.PersistTimeout,
		maxMetadataRows: opts.MaxMetadataRows,
		logger:          opts.Logger,
		activeRuns:      make(map[string]context.CancelFunc),
	}
}

// ProcessTurn starts an asynchronous turn. Caller errors are returned
// directly and leave all state untouched. Otherwise the events channel
// carries the turn's events, ending with done, and the error channel
// delivers at most one store failure. Both channels are closed when the
// turn has finished.
func (s *Service) ProcessTurn(ctx context.Context, sessionID, query string) (string, <-chan core.Event, <-chan error, error) {
	if strings.TrimSpace(query) == "" {
		return "", nil, nil, core.ErrEmptyQuery
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess.IsClosed() {
		return "", nil, nil, fmt.Errorf("session %s: %w", sessionID, core.ErrSessionClosed)
	}

	turnID := core.NewID()

	eventsCh := make(chan core.Event, s.eventBufferSize)
	errorsCh := make(chan error, 1)

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.activeRuns[turnID] = cancel
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.activeRuns, turnID)
			s.mu.Unlock()
			cancel()
			close(eventsCh)
			close(errorsCh)
		}()

		emit := func(ev core.Event) {
			select {
			case eventsCh <- ev:
				return
			default:
			}
			select {
			case eventsCh <- ev:
			case <-runCtx.Done():
				s.logger.Warn("dropping event", "session_id", sessionID, "turn_id", turnID, "event_type", ev.Type)
			}
		}

		if err := s.runTurn(runCtx, sess, turnID, query, emit); err != nil {
			errorsCh <- err
		}
	}()

	return turnID, eventsCh, errorsCh, nil
}

// Cancel cancels an in-flight turn by id. The cancelled turn still records
// its message and ends its stream with done.
func (s *Service) Cancel(turnID string) error {
	s.mu.Lock()
	cancel, exists := s.activeRuns[turnID]
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("turn %s: %w", turnID, core.ErrTurnNotFound)
	}

	cancel()

	return nil
}

// DeleteSession removes a session together with its checkpoint.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := s.checkpoints.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

func (s *Service) runTurn(ctx context.Context, sess *core.Session, turnID, query string, emit func(core.Event)) error {
	tr := stream.NewTranslator(sess.ID, turnID, emit, func(o *stream.Options) {
		o.MaxMetadataRows = s.maxMetadataRows
	})

	fatal := func(err error) error {
		s.logger.Error("turn failed", "session_id", sess.ID, "turn_id", turnID, "error", err)
		tr.Fail(err)
		tr.Done(core.StatusError, len(sess.Messages))
		return err
	}

	state, err := s.loadState(ctx, sess)
	if err != nil {
		return fatal(err)
	}

	final, err := s.orchestrator.Run(ctx, state, query, tr.Observe)
	if err != nil {
		return fatal(err)
	}

	// Persistence outlives the caller: an abandoned stream still records the turn.
	pctx, pcancel := context.WithTimeout(context.WithoutCancel(ctx), s.persistTimeout)
	defer pcancel()

	status, err := s.persist(pctx, turnID, final)
	if err != nil {
		return fatal(err)
	}

	s.logger.Info("turn completed",
		"session_id", sess.ID,
		"turn_id", turnID,
		"intent", string(final.Intent),
		"status", string(final.Status),
		"messages", len(final.Messages),
	)

	tr.Done(status, len(final.Messages))

	return nil
}

// loadState restores the working state of a session. The checkpoint wins
// when it decodes; otherwise the transcript seeds a fresh state.
func (s *Service) loadState(ctx context.Context, sess *core.Session) (*flow.TurnState, error) {
	cp, err := s.checkpoints.Get(ctx, sess.ID)
	if errors.Is(err, core.ErrCheckpointNotFound) {
		return flow.NewTurnState(sess), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	state, err := flow.DecodeState(cp.Snapshot)
	if err != nil {
		s.logger.Warn("discarding unreadable checkpoint", "session_id", sess.ID, "error", err)
		return flow.NewTurnState(sess), nil
	}

	state.SessionID = sess.ID
	state.DataSource = sess.DataSource

	return state, nil
}

// persist writes the checkpoint and then reconciles the session record. A
// session closed while the turn ran stays closed; one deleted while the turn
// ran gets no checkpoint.
func (s *Service) persist(ctx context.Context, turnID string, final *flow.TurnState) (core.SessionStatus, error) {
	sess, err := s.sessions.Get(ctx, final.SessionID)
	if err != nil {
		return core.StatusError, fmt.Errorf("failed to reload session: %w", err)
	}

	snapshot, err := flow.EncodeState(final)
	if err != nil {
		return core.StatusError, err
	}

	md := map[string]string{
		MetaTurnID: turnID,
		MetaStatus: string(final.Status),
		MetaIntent: string(final.Intent),
	}
	if err := s.checkpoints.Put(ctx, final.SessionID, snapshot, md); err != nil {
		return core.StatusError, fmt.Errorf("failed to write checkpoint: %w", err)
	}

	sess.Messages = final.Messages
	sess.Summary = final.Summary
	if !sess.IsClosed() {
		sess.Status = final.Status
	}

	if err := s.sessions.Update(ctx, sess); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			if derr := s.checkpoints.Delete(ctx, final.SessionID); derr != nil {
				s.logger.Warn("removing orphaned checkpoint", "session_id", final.SessionID, "error", derr)
			}
		}
		return core.StatusError, fmt.Errorf("failed to update session: %w", err)
	}

	return sess.Status, nil
}
