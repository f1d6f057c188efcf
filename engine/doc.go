// Package engine implements the run registry for agentweave workflows.
//
// The Engine tracks every workflow it starts under the workflow's run id and
// lets callers resume or stop runs by id alone. It is the layer between a
// caller that thinks in run ids (a CLI, an HTTP handler, a job queue) and the
// orchestration.Workflow state machines that actually drive participants.
//
// # Core Responsibilities
//
// Run Management:
//   - Thread-safe registry of started, running and suspended runs
//   - Resume and Stop by run id
//   - Finished runs leave the registry automatically; suspended runs stay
//     until they are resumed to completion or stopped
//
// Concurrency Control:
//   - At most MaxConcurrentRuns segments execute at once (0 = unlimited)
//   - Suspended runs do not hold a slot
//   - Each segment gets its own cancellable context
//
// Observability:
//   - Prometheus counters for started runs, finished runs by outcome and
//     forwarded events by kind
//   - Lifecycle callbacks before and after each segment, per event and on error
//
// # Usage
//
//	eng := engine.New(func(o *engine.Options) {
//	    o.Config.MaxConcurrentRuns = 4
//	    o.Registerer = prometheus.DefaultRegisterer
//	})
//
//	wf, _ := orchestration.NewHandoff(team, func(o *orchestration.HandoffOptions) { ... })
//	runID, events, errs, err := eng.Start(ctx, wf, "I need help with my order")
//	...
//	events, errs, err = eng.Resume(ctx, runID, map[string]any{requestID: "order 1234"})
package engine
