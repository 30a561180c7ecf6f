package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/querymesh/core"
	"github.com/hupe1980/querymesh/logging"
	"github.com/hupe1980/querymesh/model"
)

// Node names.
const (
	NodeBuildContext  = "build_context"
	NodeRouteQuery    = "route_query"
	NodeProcessQuery  = "process_query"
	NodeReasoningOnly = "reasoning_only"
	NodeSummarize     = "summarize"
	NodeSaveMessage   = "save_message"
)

// Options configures the Orchestrator.
type Options struct {
	// ContextWindow is the number of raw messages rendered into the context.
	ContextWindow int
	// SummarizeThreshold triggers summarization once the transcript,
	// including the message the turn is about to append, exceeds it.
	SummarizeThreshold int
	// KeepRecent is the number of raw messages kept by summarization.
	KeepRecent int
	// MaxSummaryWords bounds the rolling summary.
	MaxSummaryWords int
	// MaxCollaboratorCalls bounds LLM and analysis calls per turn (0 = unlimited).
	MaxCollaboratorCalls int
	// MaxSteps bounds node executions per turn.
	MaxSteps int
	// ModelName labels LLM call logs.
	ModelName string
	Logger    logging.Logger
}

// DefaultOptions returns the standard orchestrator configuration.
func DefaultOptions() Options {
	return Options{
		ContextWindow:        3,
		SummarizeThreshold:   5,
		KeepRecent:           3,
		MaxSummaryWords:      200,
		MaxCollaboratorCalls: 10,
		MaxSteps:             DefaultMaxSteps,
		ModelName:            "llm",
		Logger:               logging.NoOpLogger{},
	}
}

// Orchestrator runs turns through the fixed node graph.
type Orchestrator struct {
	llm      model.Completer
	analyzer core.Analyzer
	opts     Options
}

// NewOrchestrator wires the LLM and analysis collaborators.
func NewOrchestrator(llm model.Completer, analyzer core.Analyzer, optFns ...func(o *Options)) *Orchestrator {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Orchestrator{llm: llm, analyzer: analyzer, opts: opts}
}

// Options returns the effective configuration.
func (o *Orchestrator) Options() Options { return o.opts }

// Run executes one turn for query starting from state. state itself is not
// modified. Collaborator failures never abort the run; the returned error is
// non-nil only when the graph itself fails.
func (o *Orchestrator) Run(ctx context.Context, state *TurnState, query string, observe Observer) (*TurnState, error) {
	start := time.Now()
	t := &turn{
		o:      o,
		budget: core.NewCallBudget(o.opts.MaxCollaboratorCalls),
	}

	final, steps, err := t.graph().Run(ctx, state.Begin(query), observe)
	logging.LogTurn(o.opts.Logger, string(final.Intent), steps, len(final.Messages), time.Since(start), err)
	o.opts.Logger.Debug("collaborator calls", "session_id", final.SessionID, "total", t.budget.Spent(), "calls", t.budget.Calls())
	if err != nil {
		return final, fmt.Errorf("run turn: %w", err)
	}
	return final, nil
}

// ShouldSummarize reports whether the turn must fold older messages into the
// summary before its message is appended.
func (o *Orchestrator) ShouldSummarize(s *TurnState) bool {
	return len(s.Messages)+1 > o.opts.SummarizeThreshold
}

// turn holds per-turn resources.
type turn struct {
	o      *Orchestrator
	budget *core.CallBudget
}

func (t *turn) graph() *Graph {
	g := NewGraph(NodeBuildContext).SetMaxSteps(t.o.opts.MaxSteps)
	g.AddNode(NodeBuildContext, t.buildContext)
	g.AddNode(NodeRouteQuery, t.routeQuery)
	g.AddNode(NodeProcessQuery, t.guard(NodeProcessQuery, t.processQuery))
	g.AddNode(NodeReasoningOnly, t.guard(NodeReasoningOnly, t.reasoningOnly))
	g.AddNode(NodeSummarize, t.swallow(NodeSummarize, t.summarize))
	g.AddNode(NodeSaveMessage, t.saveMessage)

	g.AddEdge(NodeBuildContext, NodeRouteQuery)
	g.AddConditionalEdge(NodeRouteQuery, func(s *TurnState) string {
		if s.Intent == IntentReasoningOnly {
			return NodeReasoningOnly
		}
		return NodeProcessQuery
	})
	afterProcessing := func(s *TurnState) string {
		if t.o.ShouldSummarize(s) {
			return NodeSummarize
		}
		return NodeSaveMessage
	}
	g.AddConditionalEdge(NodeProcessQuery, afterProcessing)
	g.AddConditionalEdge(NodeReasoningOnly, afterProcessing)
	g.AddEdge(NodeSummarize, NodeSaveMessage)
	g.AddEdge(NodeSaveMessage, End)
	return g
}

// guard converts errors and panics of a processing node into a recorded
// turn failure.
func (t *turn) guard(node string, fn NodeFunc) NodeFunc {
	return func(ctx context.Context, s *TurnState) (u Update, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = nil
				u = failure(s, fmt.Errorf("%s: %w", node, &PanicError{Value: r}))
			}
			var failed error
			if u.Error != nil && *u.Error != "" {
				failed = errors.New(*u.Error)
			}
			logging.LogNodeExecution(t.o.opts.Logger, node, time.Since(start), failed)
		}()
		u, err = fn(ctx, s)
		if err != nil {
			return failure(s, fmt.Errorf("%s: %w", node, err)), nil
		}
		return u, nil
	}
}

// swallow drops errors and panics of a best-effort node.
func (t *turn) swallow(node string, fn NodeFunc) NodeFunc {
	return func(ctx context.Context, s *TurnState) (u Update, err error) {
		defer func() {
			if r := recover(); r != nil {
				t.o.opts.Logger.Warn("best-effort node panicked", "node", node, "panic", fmt.Sprint(r))
				u, err = Update{}, nil
			}
		}()
		u, err = fn(ctx, s)
		if err != nil {
			t.o.opts.Logger.Warn("best-effort node failed", "node", node, "error", err)
			return Update{}, nil
		}
		return u, nil
	}
}

func failure(s *TurnState, err error) Update {
	msg := err.Error()
	a := core.Analysis{Error: msg, ReasoningOnly: s.Intent == IntentReasoningOnly}
	if s.Analysis != nil {
		a = cloneAnalysis(*s.Analysis)
		a.Error = msg
	}
	return Update{
		Analysis: &a,
		Status:   ptr(core.StatusError),
		Error:    &msg,
	}
}

func (t *turn) complete(ctx context.Context, purpose, prompt string) (string, error) {
	if err := t.budget.Spend(purpose); err != nil {
		return "", err
	}
	start := time.Now()
	text, err := t.o.llm.Complete(ctx, prompt)
	logging.LogLLMCall(t.o.opts.Logger, t.o.opts.ModelName, purpose, time.Since(start), err)
	return text, err
}

func (t *turn) buildContext(_ context.Context, s *TurnState) (Update, error) {
	text := BuildContext(s.Summary, s.Messages, t.o.opts.ContextWindow)
	return Update{Metadata: map[string]string{MetaContext: text}}, nil
}

func (t *turn) routeQuery(ctx context.Context, s *TurnState) (Update, error) {
	if !s.HasContext() {
		return Update{
			Intent:   ptr(IntentDatabaseQuery),
			Metadata: map[string]string{MetaRouting: RoutingFirstTurn},
		}, nil
	}

	intent, err := t.classify(ctx, s)
	if err == nil {
		return Update{
			Intent:   ptr(intent),
			Metadata: map[string]string{MetaRouting: RoutingClassified},
		}, nil
	}

	t.o.opts.Logger.Warn("classification failed, routing to database", "session_id", s.SessionID, "error", err)
	return Update{
		Intent: ptr(IntentDatabaseQuery),
		Metadata: map[string]string{
			MetaRouting:      RoutingFallback,
			MetaRoutingError: err.Error(),
		},
	}, nil
}

// classify asks the model for the turn's intent. A panicking model is
// reported as an ordinary error so routing can fail open.
func (t *turn) classify(ctx context.Context, s *TurnState) (intent Intent, err error) {
	defer func() {
		if r := recover(); r != nil {
			intent, err = "", &PanicError{Value: r}
		}
	}()
	prompt, err := renderClassification(s.Context(), s.Query)
	if err != nil {
		return "", err
	}
	reply, err := t.complete(ctx, core.PurposeClassification, prompt)
	if err != nil {
		return "", err
	}
	return ParseIntent(reply), nil
}

func (t *turn) processQuery(ctx context.Context, s *TurnState) (Update, error) {
	if err := t.budget.Spend(core.PurposeAnalysis); err != nil {
		return Update{}, err
	}
	a, err := t.o.analyzer.Analyze(ctx, contextualQuery(s.Context(), s.Query), s.DataSource)
	if err != nil {
		return Update{}, fmt.Errorf("analysis engine: %w", err)
	}
	if a == nil {
		return Update{}, errors.New("analysis engine returned no result")
	}

	u := Update{Analysis: a, GeneratedQuery: ptr(a.GeneratedQuery)}
	if a.Failed() {
		u.Status = ptr(core.StatusError)
		u.Error = ptr(a.Error)
	}
	return u, nil
}

func (t *turn) reasoningOnly(ctx context.Context, s *TurnState) (Update, error) {
	prompt, err := renderReasoning(s.DataSource, s.Context(), s.Query)
	if err != nil {
		return Update{}, err
	}
	answer, err := t.complete(ctx, core.PurposeReasoning, prompt)
	if err != nil {
		return Update{}, err
	}
	return Update{Analysis: &core.Analysis{Summary: answer, ReasoningOnly: true}}, nil
}

func (t *turn) summarize(ctx context.Context, s *TurnState) (Update, error) {
	keep := t.o.opts.KeepRecent
	if len(s.Messages) <= keep {
		return Update{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Update{}, err
	}

	folded := s.Messages[:len(s.Messages)-keep]
	prompt, err := renderSummarize(s.Summary, RenderMessages(folded), t.o.opts.MaxSummaryWords)
	if err != nil {
		return Update{}, err
	}
	text, err := t.complete(ctx, core.PurposeSummarization, prompt)
	if err != nil {
		return Update{}, err
	}
	summary := truncateWords(text, t.o.opts.MaxSummaryWords)
	if summary == "" {
		return Update{}, errors.New("empty summary")
	}

	t.o.opts.Logger.Debug("history summarized", "session_id", s.SessionID, "folded", len(folded), "kept", keep)
	return Update{Summary: &summary, KeepLastMessages: &keep}, nil
}

func (t *turn) saveMessage(_ context.Context, s *TurnState) (Update, error) {
	var resultSummary, analysisText string
	if a := s.Analysis; a != nil {
		if !a.ReasoningOnly && !a.Failed() {
			resultSummary = fmt.Sprintf("%d rows", a.RowCount)
		}
		analysisText = a.Summary
	}
	if s.Failed() && analysisText == "" {
		analysisText = "Error: " + s.Error
	}

	status := core.StatusIdle
	if s.Failed() {
		status = core.StatusError
	}
	msg := core.NewMessage(s.Query, s.GeneratedQuery, resultSummary, analysisText)
	return Update{AppendMessages: []core.Message{msg}, Status: &status}, nil
}
