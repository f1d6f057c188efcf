package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/orchestration"
)

// Config defines tuning parameters for the Engine.
type Config struct {
	// MaxConcurrentRuns limits the number of segments executing at the same
	// time. Start and Resume block until a slot frees up or ctx is done.
	// Set to 0 for unlimited.
	MaxConcurrentRuns int
}

// DefaultConfig provides the default configuration values:
//   - MaxConcurrentRuns: 10
var DefaultConfig = Config{
	MaxConcurrentRuns: 10,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Logger provides structured logging. Defaults to a NoOp logger.
	Logger logging.Logger

	// Registerer receives the engine's Prometheus collectors. Metrics are
	// still collected, but not exported, when nil.
	Registerer prometheus.Registerer

	// Callbacks are registered on the engine's CallbackManager.
	Callbacks []Callback
}

// run is the registry entry of one workflow.
type run struct {
	wf      *orchestration.Workflow
	cancel  context.CancelFunc // cancels the executing segment, nil while suspended
	stopped bool
}

// Engine is a registry of workflow runs.
//
// Runs are keyed by their workflow's run id. A run enters the registry on
// Start and leaves it when it completes, fails or is stopped. Suspended runs
// remain registered, holding no goroutines and no concurrency slot, until
// Resume continues them or Stop discards them.
//
// All methods are safe for concurrent use.
type Engine struct {
	logger    *core.LoggerAdapter
	sem       *semaphore.Weighted
	metrics   *metrics
	callbacks *CallbackManager

	mu   sync.Mutex
	runs map[string]*run
}

// New creates a new Engine.
//
// Example:
//
//	eng := New(func(o *Options) {
//	    o.Config.MaxConcurrentRuns = 50
//	    o.Logger = logging.NewDefaultSlogLogger()
//	})
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		logger:    core.NewLoggerAdapter(opts.Logger),
		metrics:   newMetrics(opts.Registerer),
		callbacks: NewCallbackManager(),
		runs:      make(map[string]*run),
	}

	if opts.Config.MaxConcurrentRuns > 0 {
		e.sem = semaphore.NewWeighted(int64(opts.Config.MaxConcurrentRuns))
	}

	for _, cb := range opts.Callbacks {
		e.callbacks.RegisterCallback(cb)
	}

	return e
}

// Callbacks returns the engine's callback manager.
func (e *Engine) Callbacks() *CallbackManager { return e.callbacks }

// Start registers wf and starts it with input. It returns the run id along
// with the segment's event and error channels.
func (e *Engine) Start(ctx context.Context, wf *orchestration.Workflow, input string) (string, <-chan core.Event, <-chan error, error) {
	return e.StartConversation(ctx, wf, core.Conversation{core.NewUserMessage(input)})
}

// StartConversation is Start with a prepared initial conversation.
func (e *Engine) StartConversation(ctx context.Context, wf *orchestration.Workflow, conv core.Conversation) (string, <-chan core.Event, <-chan error, error) {
	runID := wf.RunID()

	e.mu.Lock()
	if _, exists := e.runs[runID]; exists {
		e.mu.Unlock()
		return "", nil, nil, core.NewConfigurationError("engine", core.ErrAlreadyStarted, "run %s is already registered", runID)
	}
	r := &run{wf: wf}
	e.runs[runID] = r
	e.mu.Unlock()

	events, errs, err := e.segment(ctx, r, "start", func(segCtx context.Context) (<-chan core.Event, <-chan error, error) {
		return wf.StartConversation(segCtx, conv)
	})
	if err != nil {
		e.forget(runID)
		return "", nil, nil, err
	}

	e.metrics.started.Inc()
	e.logger.LogInfo("Run started", "run_id", runID, "topology", wf.Topology())

	return runID, events, errs, nil
}

// Resume continues the suspended run runID with responses. Validation
// failures leave the run registered and suspended.
func (e *Engine) Resume(ctx context.Context, runID string, responses map[string]any) (<-chan core.Event, <-chan error, error) {
	e.mu.Lock()
	r, ok := e.runs[runID]
	e.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("run %s not found", runID)
	}

	events, errs, err := e.segment(ctx, r, "resume", func(segCtx context.Context) (<-chan core.Event, <-chan error, error) {
		return r.wf.Resume(segCtx, responses)
	})
	if err != nil {
		return nil, nil, err
	}

	return events, errs, nil
}

// segment acquires a concurrency slot, launches one workflow segment and
// forwards its streams.
func (e *Engine) segment(
	ctx context.Context,
	r *run,
	kind string,
	launch func(segCtx context.Context) (<-chan core.Event, <-chan error, error),
) (<-chan core.Event, <-chan error, error) {
	runID := r.wf.RunID()
	cbCtx := &CallbackContext{RunID: runID, Topology: r.wf.Topology(), Segment: kind}

	cbCtx.Status = r.wf.Status()
	if err := e.callbacks.ExecuteCallbacks(ctx, CallbackBeforeSegment, cbCtx); err != nil {
		return nil, nil, fmt.Errorf("before segment callback: %w", err)
	}

	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, nil, err
		}
	}
	release := func() {
		if e.sem != nil {
			e.sem.Release(1)
		}
	}

	segCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	if r.stopped {
		e.mu.Unlock()
		cancel()
		release()
		return nil, nil, fmt.Errorf("run %s was stopped", runID)
	}
	r.cancel = cancel
	e.mu.Unlock()

	inEvents, inErrs, err := launch(segCtx)
	if err != nil {
		e.mu.Lock()
		r.cancel = nil
		e.mu.Unlock()
		cancel()
		release()
		return nil, nil, err
	}

	e.metrics.active.Inc()

	events := make(chan core.Event, cap(inEvents))
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)
		defer release()
		defer cancel()
		defer e.metrics.active.Dec()

		var segErr error
		for inEvents != nil || inErrs != nil {
			select {
			case ev, ok := <-inEvents:
				if !ok {
					inEvents = nil
					continue
				}
				e.metrics.events.WithLabelValues(EventKind(ev)).Inc()

				evCtx := *cbCtx
				evCtx.Event = ev
				evCtx.Status = orchestration.StatusRunning
				if err := e.callbacks.ExecuteCallbacks(segCtx, CallbackOnEvent, &evCtx); err != nil {
					e.logger.LogWarn("Event callback failed", "run_id", runID, "error", err)
				}

				select {
				case events <- ev:
				case <-segCtx.Done():
				}
			case err, ok := <-inErrs:
				if !ok {
					inErrs = nil
					continue
				}
				if err != nil && segErr == nil {
					segErr = err
				}
			}
		}

		e.settle(r, cbCtx, segErr)

		if segErr != nil {
			errs <- segErr
		}
	}()

	return events, errs, nil
}

// settle updates the registry and metrics after a segment ended.
func (e *Engine) settle(r *run, cbCtx *CallbackContext, segErr error) {
	runID := r.wf.RunID()
	status := r.wf.Status()

	e.mu.Lock()
	r.cancel = nil
	stopped := r.stopped
	if status.Terminal() || stopped {
		delete(e.runs, runID)
	}
	e.mu.Unlock()

	switch {
	case stopped:
		// counted by Stop
	case status == orchestration.StatusCompleted:
		e.metrics.finished.WithLabelValues(OutcomeCompleted).Inc()
		e.logger.LogInfo("Run completed", "run_id", runID)
	case status == orchestration.StatusFailed:
		e.metrics.finished.WithLabelValues(OutcomeFailed).Inc()
		e.logger.LogError("Run failed", "run_id", runID, "error", segErr)
	case status == orchestration.StatusSuspended:
		e.logger.LogInfo("Run suspended", "run_id", runID, "pending", r.wf.Pending())
	}

	after := *cbCtx
	after.Status = status
	if segErr != nil {
		after.Err = segErr
		if err := e.callbacks.ExecuteCallbacks(context.Background(), CallbackOnError, &after); err != nil {
			e.logger.LogWarn("Error callback failed", "run_id", runID, "error", err)
		}
	}
	if err := e.callbacks.ExecuteCallbacks(context.Background(), CallbackAfterSegment, &after); err != nil {
		e.logger.LogWarn("After segment callback failed", "run_id", runID, "error", err)
	}
}

// Stop cancels the executing segment of runID, if any, and removes the run
// from the registry. Stopping a suspended run abandons it.
func (e *Engine) Stop(runID string) error {
	e.mu.Lock()
	r, exists := e.runs[runID]
	if !exists {
		e.mu.Unlock()
		return fmt.Errorf("run %s not found", runID)
	}
	r.stopped = true
	cancel := r.cancel
	delete(e.runs, runID)
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	e.metrics.finished.WithLabelValues(OutcomeStopped).Inc()
	e.logger.LogInfo("Run stopped", "run_id", runID)

	return nil
}

// Get returns the workflow registered under runID.
func (e *Engine) Get(runID string) (*orchestration.Workflow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.runs[runID]
	if !ok {
		return nil, false
	}
	return r.wf, true
}

// Active returns the ids of all registered runs, sorted.
func (e *Engine) Active() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.runs))
	for id := range e.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) forget(runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, runID)
}
