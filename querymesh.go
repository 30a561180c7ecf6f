// Package querymesh provides a high-level façade over the turn service and
// its stores, enabling conversational analytics sessions over a data source.
// Most applications interact with this package by:
//  1. Creating a QueryMesh via New() with a language model and an analyzer
//     (optionally overriding the default in-memory stores)
//  2. Creating a session bound to a data source
//  3. Asking questions asynchronously (Ask) or synchronously (AskSync)
//
// Every dependency is injected at construction time; nothing is shared
// process-wide. Production deployments typically supply the SQLite stores
// and a structured logger.
package querymesh

import (
	"context"
	"time"

	"github.com/hupe1980/querymesh/checkpoint"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/flow"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/model"
	"github.com/hupe1980/querymesh/service"
	"github.com/hupe1980/querymesh/session"
	"github.com/hupe1980/querymesh/stream"
)

// Options configures the QueryMesh instance.
type Options struct {
	// Flow configures context windows, summarization and call limits.
	Flow flow.Options

	// EventBufferSize sets the channel buffer size for turn events.
	EventBufferSize int

	// PersistTimeout bounds the end-of-turn checkpoint and session writes.
	PersistTimeout time.Duration

	// MaxMetadataRows caps result rows carried by metadata events.
	MaxMetadataRows int

	// Stores (defaults to in-memory implementations if not provided)
	SessionStore    core.SessionStore
	CheckpointStore core.CheckpointStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// QueryMesh is the high-level façade aggregating the turn service and stores.
type QueryMesh struct {
	opts    Options
	service *service.Service
}

// New creates a new QueryMesh instance. llm answers routing, reasoning and
// summarization prompts; analyzer executes data questions.
func New(llm model.Model, analyzer core.Analyzer, optFns ...func(o *Options)) *QueryMesh {
	opts := Options{
		Flow:            flow.DefaultOptions(),
		EventBufferSize: 100,
		PersistTimeout:  10 * time.Second,
		MaxMetadataRows: stream.DefaultMaxMetadataRows,
		SessionStore:    session.NewInMemoryStore(),
		CheckpointStore: checkpoint.NewInMemoryStore(),
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	completer := model.NewCompleter(llm, func(o *model.CompleterOptions) {
		o.Logger = opts.Logger
	})

	orchestrator := flow.NewOrchestrator(completer, analyzer, func(o *flow.Options) {
		*o = opts.Flow
		o.ModelName = llm.Info().Name
		o.Logger = opts.Logger
	})

	svc := service.New(opts.SessionStore, opts.CheckpointStore, orchestrator, func(o *service.Options) {
		o.EventBufferSize = opts.EventBufferSize
		o.PersistTimeout = opts.PersistTimeout
		o.MaxMetadataRows = opts.MaxMetadataRows
		o.Logger = opts.Logger
	})

	return &QueryMesh{opts: opts, service: svc}
}

// CreateSession opens a new session bound to dataSource.
func (m *QueryMesh) CreateSession(ctx context.Context, dataSource string, metadata map[string]string) (*core.Session, error) {
	return m.opts.SessionStore.Create(ctx, dataSource, metadata)
}

// GetSession returns a snapshot of a session.
func (m *QueryMesh) GetSession(ctx context.Context, id string) (*core.Session, error) {
	return m.opts.SessionStore.Get(ctx, id)
}

// ListSessions returns sessions matching filter, most recently updated first.
func (m *QueryMesh) ListSessions(ctx context.Context, filter core.SessionFilter) ([]*core.Session, error) {
	return m.opts.SessionStore.List(ctx, filter)
}

// CloseSession marks a session closed. Closed sessions reject new turns.
func (m *QueryMesh) CloseSession(ctx context.Context, id string) error {
	return m.opts.SessionStore.Close(ctx, id)
}

// DeleteSession removes a session and its checkpoint.
func (m *QueryMesh) DeleteSession(ctx context.Context, id string) error {
	return m.service.DeleteSession(ctx, id)
}

// Ask starts an asynchronous turn returning the turn id plus event & error channels.
func (m *QueryMesh) Ask(ctx context.Context, sessionID, query string) (string, <-chan core.Event, <-chan error, error) {
	return m.service.ProcessTurn(ctx, sessionID, query)
}

// AskSync is a synchronous helper that drains the async channels.
func (m *QueryMesh) AskSync(ctx context.Context, sessionID, query string) (*service.TurnResult, error) {
	return m.service.ProcessTurnSync(ctx, sessionID, query)
}

// Cancel aborts an in-flight turn.
func (m *QueryMesh) Cancel(turnID string) error {
	return m.service.Cancel(turnID)
}
