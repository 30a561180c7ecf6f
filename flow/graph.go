package flow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"
)

// End is the pseudo node that terminates a run.
const End = "__end__"

// DefaultMaxSteps bounds the number of node executions per run.
const DefaultMaxSteps = 16

var (
	// ErrStepLimit is returned when a run exceeds its step budget.
	ErrStepLimit = errors.New("step limit exceeded")
	// ErrUnknownNode is returned when an edge targets an unregistered node.
	ErrUnknownNode = errors.New("unknown node")
)

// NodeFunc computes the delta a node contributes to the state. The state
// passed in must not be mutated.
type NodeFunc func(ctx context.Context, s *TurnState) (Update, error)

// Router picks the next node from the merged state.
type Router func(s *TurnState) string

// NodeEventKind distinguishes node boundary events.
type NodeEventKind string

const (
	// NodeEnter is emitted before a node runs.
	NodeEnter NodeEventKind = "enter"
	// NodeExit is emitted after a node's update was merged.
	NodeExit NodeEventKind = "exit"
)

// NodeEvent describes a node boundary. State is a snapshot owned by the
// receiver: the input state on enter, the merged state on exit.
type NodeEvent struct {
	Kind     NodeEventKind
	Node     string
	State    *TurnState
	Duration time.Duration
}

// Observer receives node events synchronously in production order.
type Observer func(NodeEvent)

// Graph is a small directed state machine over TurnState.
type Graph struct {
	entry    string
	nodes    map[string]NodeFunc
	edges    map[string]string
	routers  map[string]Router
	maxSteps int
}

// NewGraph creates a graph starting at entry.
func NewGraph(entry string) *Graph {
	return &Graph{
		entry:    entry,
		nodes:    map[string]NodeFunc{},
		edges:    map[string]string{},
		routers:  map[string]Router{},
		maxSteps: DefaultMaxSteps,
	}
}

// AddNode registers a node.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

// AddEdge adds an unconditional transition.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

// AddConditionalEdge adds a transition decided by router after from completes.
func (g *Graph) AddConditionalEdge(from string, router Router) *Graph {
	g.routers[from] = router
	return g
}

// SetMaxSteps overrides the step budget. Non-positive values keep the default.
func (g *Graph) SetMaxSteps(n int) *Graph {
	if n > 0 {
		g.maxSteps = n
	}
	return g
}

// Run executes the graph from its entry node until End. It returns the final
// state and the number of executed steps. A node error or panic aborts the
// run; nodes that must not abort are expected to capture their own failures.
func (g *Graph) Run(ctx context.Context, state *TurnState, observe Observer) (*TurnState, int, error) {
	if observe == nil {
		observe = func(NodeEvent) {}
	}

	current := g.entry
	steps := 0
	for current != End {
		fn, ok := g.nodes[current]
		if !ok {
			return state, steps, fmt.Errorf("%w: %q", ErrUnknownNode, current)
		}
		if steps >= g.maxSteps {
			return state, steps, fmt.Errorf("%w: %d", ErrStepLimit, g.maxSteps)
		}
		steps++

		observe(NodeEvent{Kind: NodeEnter, Node: current, State: state.Clone()})

		start := time.Now()
		update, err := runNode(ctx, fn, state)
		if err != nil {
			return state, steps, fmt.Errorf("node %s: %w", current, err)
		}
		state = Merge(state, update)

		observe(NodeEvent{Kind: NodeExit, Node: current, State: state.Clone(), Duration: time.Since(start)})

		current = g.next(current, state)
	}
	return state, steps, nil
}

func (g *Graph) next(from string, s *TurnState) string {
	if r, ok := g.routers[from]; ok {
		return r(s)
	}
	if to, ok := g.edges[from]; ok {
		return to
	}
	return End
}

func runNode(ctx context.Context, fn NodeFunc, s *TurnState) (u Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, s)
}

// PanicError wraps a value recovered from a panicking node.
type PanicError struct {
	Value any
	Stack []byte
}

func (p *PanicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.Value) }
