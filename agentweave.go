// Package agentweave provides a high-level façade over the run engine and the
// orchestration topologies (sequential, concurrent, group chat, handoff and
// magentic). Most applications interact with this package by:
//  1. Creating an AgentWeave via New()
//  2. Building a workflow with one of the orchestration constructors
//  3. Running it asynchronously (Start/Resume) or synchronously (RunSync/ResumeSync)
//
// The façade delegates run bookkeeping to engine.Engine while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing.
package agentweave

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/engine"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/orchestration"
)

// Options configures the AgentWeave instance.
type Options struct {
	// EngineConfig holds the engine's operational parameters, most notably
	// MaxConcurrentRuns.
	EngineConfig engine.Config

	// Registerer receives the engine's Prometheus metrics. Nil keeps them
	// unexported.
	Registerer prometheus.Registerer

	// Callbacks are attached to the engine's lifecycle hooks.
	Callbacks []engine.Callback

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentWeave is the high-level façade aggregating the underlying engine.
type AgentWeave struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new AgentWeave instance with optional overrides.
func New(optFns ...func(o *Options)) *AgentWeave {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Logger = opts.Logger
		o.Registerer = opts.Registerer
		o.Callbacks = opts.Callbacks
	})

	return &AgentWeave{opts: opts, engine: e}
}

// Engine exposes the underlying run registry.
func (w *AgentWeave) Engine() *engine.Engine { return w.engine }

// Start registers wf and starts it asynchronously, returning the run id with
// event & error channels.
func (w *AgentWeave) Start(ctx context.Context, wf *orchestration.Workflow, input string) (string, <-chan core.Event, <-chan error, error) {
	return w.engine.Start(ctx, wf, input)
}

// Resume continues a suspended run asynchronously.
func (w *AgentWeave) Resume(ctx context.Context, runID string, responses map[string]any) (<-chan core.Event, <-chan error, error) {
	return w.engine.Resume(ctx, runID, responses)
}

// Stop cancels or abandons the run.
func (w *AgentWeave) Stop(runID string) error { return w.engine.Stop(runID) }

// RunSync is a synchronous helper that starts wf, drains the first segment
// and returns the run id with the events it produced. A run that suspends
// returns without error; inspect the RequestInfo events and continue with
// ResumeSync.
func (w *AgentWeave) RunSync(ctx context.Context, wf *orchestration.Workflow, input string) (string, []core.Event, error) {
	runID, events, errs, err := w.engine.Start(ctx, wf, input)
	if err != nil {
		return "", nil, err
	}

	collected, err := orchestration.Collect(ctx, events, errs)

	return runID, collected, err
}

// ResumeSync resumes runID and drains the resulting segment.
func (w *AgentWeave) ResumeSync(ctx context.Context, runID string, responses map[string]any) ([]core.Event, error) {
	events, errs, err := w.engine.Resume(ctx, runID, responses)
	if err != nil {
		return nil, err
	}

	return orchestration.Collect(ctx, events, errs)
}
