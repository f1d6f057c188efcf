package core

import "context"

// DecisionKind enumerates the Magentic manager's next-action choices.
type DecisionKind int

const (
	// DecisionDelegate hands the next round to a worker.
	DecisionDelegate DecisionKind = iota
	// DecisionStall reports that no progress is being made.
	DecisionStall
	// DecisionComplete declares the task done.
	DecisionComplete
)

// String returns the string representation of the decision kind.
func (k DecisionKind) String() string {
	switch k {
	case DecisionDelegate:
		return "delegate"
	case DecisionStall:
		return "stall"
	case DecisionComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Decision is the manager's verdict for one Magentic round.
type Decision struct {
	Kind        DecisionKind `json:"kind"`
	Worker      string       `json:"worker,omitempty"`      // target of a delegation
	Instruction string       `json:"instruction,omitempty"` // appended before the worker turn
	Reason      string       `json:"reason,omitempty"`
}

// Manager plans and re-plans Magentic work across a worker pool.
type Manager interface {
	Name() string
	// Plan produces the initial plan for the task in conv.
	Plan(ctx context.Context, conv Conversation) (Message, error)
	// Revise incorporates human feedback into plan.
	Revise(ctx context.Context, conv Conversation, plan Message, feedback string) (Message, error)
	// Replan produces a fresh plan after repeated stalls.
	Replan(ctx context.Context, conv Conversation, ledger ProgressLedger) (Message, error)
	// NextAction decides what happens in the next round.
	NextAction(ctx context.Context, conv Conversation, ledger ProgressLedger, workers []string) (Decision, error)
	// FinalAnswer synthesizes the final message of the run.
	FinalAnswer(ctx context.Context, conv Conversation) (Message, error)
}
