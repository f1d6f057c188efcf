// Package orchestration drives a set of participants through a task using
// one of five coordination topologies and exposes the run as a typed event
// stream.
//
// Topologies:
//   - Sequential: a pipeline in declaration order
//   - Concurrent: fan-out of the initial conversation, fan-in ordered by declaration
//   - GroupChat: a speaker selector picks the next participant each round
//   - Handoff: control moves along the edges of a HandoffGraph
//   - Magentic: a manager plans, delegates and re-plans across workers
//
// Every constructor validates its configuration and returns a *Workflow, a
// single run instance. Start begins the run; the returned channels deliver
// the events of one segment. A segment ends with an Output event, a failure
// on the error channel, or a suspension after one or more RequestInfo events.
// A suspended run continues from the same internal state when Resume is
// called with a response for every pending request id.
//
// Example:
//
//	wf, err := orchestration.NewSequential([]core.Participant{writer, reviewer})
//	if err != nil {
//	    return err
//	}
//	events, errs, err := wf.Start(ctx, "Write a tagline for a budget-friendly eBike.")
//	if err != nil {
//	    return err
//	}
//	evs, err := orchestration.Collect(ctx, events, errs)
package orchestration
