package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/querymesh"
	"github.com/hupe1980/querymesh/analysis"
	checkpointsqlite "github.com/hupe1980/querymesh/checkpoint/sqlite"
	"github.com/hupe1980/querymesh/config"
	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/flow"
	"github.com/hupe1980/querymesh/internal/sqlitedb"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/model"
	anthropicmodel "github.com/hupe1980/querymesh/model/anthropic"
	openaimodel "github.com/hupe1980/querymesh/model/openai"
	sessionsqlite "github.com/hupe1980/querymesh/session/sqlite"
)

var errNoAnalysisEngine = errors.New("no analysis engine configured (set analysis.endpoint)")

type configLoader func() (*config.Config, error)

// app is the wired façade plus the resources it owns.
type app struct {
	mesh   *querymesh.QueryMesh
	db     *sql.DB
	logger logging.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewSlogLogger(level, cfg.Logging.Format, cfg.Logging.AddSource).WithComponent("cli")

	llm, err := newModel(cfg.LLM)
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger}

	opts := []func(o *querymesh.Options){func(o *querymesh.Options) {
		o.Flow = flowOptions(cfg.Orchestrator)
		o.EventBufferSize = cfg.Stream.EventBufferSize
		o.MaxMetadataRows = cfg.Stream.MaxMetadataRows
		o.PersistTimeout = cfg.Stream.PersistTimeout
		o.Logger = logger
	}}

	if cfg.Database.Path != "" {
		db, err := sqlitedb.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		a.db = db

		sessions, err := sessionsqlite.New(db, func(o *sessionsqlite.Options) { o.Logger = logger })
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		checkpoints, err := checkpointsqlite.New(db, func(o *checkpointsqlite.Options) { o.Logger = logger })
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		opts = append(opts, func(o *querymesh.Options) {
			o.SessionStore = sessions
			o.CheckpointStore = checkpoints
		})
	}

	a.mesh = querymesh.New(llm, newAnalyzer(cfg.Analysis, logger), opts...)

	return a, nil
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func newModel(cfg config.LLMConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderMock:
		m := model.NewMockModel("mock", config.ProviderMock)
		m.AddResponse("Reply with exactly one word", "DATABASE")
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

func newAnalyzer(cfg config.AnalysisConfig, logger logging.Logger) core.Analyzer {
	if cfg.Endpoint == "" {
		return core.AnalyzerFunc(func(context.Context, string, string) (*core.Analysis, error) {
			return nil, errNoAnalysisEngine
		})
	}
	return analysis.NewClient(cfg.Endpoint, func(o *analysis.Options) {
		o.APIKey = cfg.APIKey
		o.Timeout = cfg.Timeout
		o.Logger = logger
	})
}

func flowOptions(cfg config.OrchestratorConfig) flow.Options {
	opts := flow.DefaultOptions()
	opts.ContextWindow = cfg.ContextWindow
	opts.SummarizeThreshold = cfg.SummarizeThreshold
	opts.KeepRecent = cfg.KeepRecent
	opts.MaxSummaryWords = cfg.MaxSummaryWords
	opts.MaxCollaboratorCalls = cfg.MaxCollaboratorCalls
	opts.MaxSteps = cfg.MaxSteps
	return opts
}

// withApp loads configuration, wires the app and closes it after fn returns.
func withApp(load configLoader, fn func(a *app) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.logger.Warn("closing database", "error", err)
		}
	}()
	return fn(a)
}
