package orchestration

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentweave/core"
)

// Aggregator combines the initial conversation and the per-participant
// results (in declaration order) into the conversation carried by Output.
type Aggregator func(initial core.Conversation, results []core.Message) (core.Conversation, error)

// ConcurrentOptions configures a Concurrent workflow.
type ConcurrentOptions struct {
	Options

	// Aggregator replaces the default fan-in, which appends the results to
	// the initial conversation in declaration order.
	Aggregator Aggregator
}

// concurrent fans the initial conversation out to every participant and
// joins the results in declaration order.
type concurrent struct {
	participants []core.Participant
	aggregator   Aggregator
}

// NewConcurrent creates a Concurrent workflow. All participants receive an
// identical copy of the initial conversation and run in parallel.
//
// Streaming AgentUpdate events interleave freely across participants. The
// AgentCompleted events and the Output are emitted only after every
// participant has finished, in declaration order regardless of completion
// order. If any participant fails the run fails and no result is emitted.
func NewConcurrent(participants []core.Participant, optFns ...func(o *ConcurrentOptions)) (*Workflow, error) {
	opts := ConcurrentOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, _, err := indexParticipants("concurrent", participants); err != nil {
		return nil, err
	}

	aggregator := opts.Aggregator
	if aggregator == nil {
		aggregator = appendInOrder
	}

	orch := &concurrent{
		participants: append([]core.Participant(nil), participants...),
		aggregator:   aggregator,
	}

	return newWorkflow(orch, opts.Options), nil
}

func appendInOrder(initial core.Conversation, results []core.Message) (core.Conversation, error) {
	return initial.Append(results...), nil
}

func (c *concurrent) topology() string { return "concurrent" }

func (c *concurrent) start(rc *runContext, conv core.Conversation) error {
	results := make([]core.Message, len(c.participants))

	g, gctx := errgroup.WithContext(rc.ctx)
	for i, p := range c.participants {
		g.Go(func() error {
			msg, err := rc.turn(gctx, p, conv, true)
			if err != nil {
				return err
			}
			results[i] = msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	for _, msg := range results {
		if err := rc.completed(msg); err != nil {
			return err
		}
	}

	combined, err := c.aggregator(conv.Clone(), results)
	if err != nil {
		return fmt.Errorf("aggregate results: %w", err)
	}

	return rc.finish(combined, nil)
}

func (c *concurrent) resume(*runContext, map[string]any) error {
	return core.NewConfigurationError("resume", core.ErrNotSuspended, "concurrent runs never suspend")
}

func (c *concurrent) release() {}
