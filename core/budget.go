package core

import "fmt"

// Collaborator call purposes tracked by a CallBudget.
const (
	PurposeClassification = "classification"
	PurposeAnalysis       = "analysis"
	PurposeReasoning      = "reasoning"
	PurposeSummarization  = "summarization"
)

// CallBudget caps the collaborator calls of a single turn and records how
// the budget was spent per purpose. A turn drives it from one goroutine.
type CallBudget struct {
	max   int
	spent int
	calls map[string]int
}

// NewCallBudget returns a budget of max calls; max <= 0 means unlimited.
func NewCallBudget(max int) *CallBudget {
	return &CallBudget{max: max, calls: make(map[string]int)}
}

// Spend charges one call for purpose. Once the budget is exhausted it
// returns ErrCallLimitExceeded and charges nothing.
func (b *CallBudget) Spend(purpose string) error {
	if b.max > 0 && b.spent >= b.max {
		return fmt.Errorf("%w: %s after %d calls", ErrCallLimitExceeded, purpose, b.spent)
	}
	b.spent++
	b.calls[purpose]++
	return nil
}

// Spent is the number of calls charged so far.
func (b *CallBudget) Spent() int { return b.spent }

// Calls returns a copy of the per-purpose call counts.
func (b *CallBudget) Calls() map[string]int {
	out := make(map[string]int, len(b.calls))
	for k, v := range b.calls {
		out[k] = v
	}
	return out
}
