package orchestration

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
)

const tracerName = "github.com/hupe1980/agentweave/orchestration"

var tracer = otel.Tracer(tracerName)

// Status is the lifecycle state of a Workflow.
type Status int

const (
	// StatusIdle means Start has not been called yet.
	StatusIdle Status = iota
	// StatusRunning means a segment is executing.
	StatusRunning
	// StatusSuspended means the run waits for responses to pending requests.
	StatusSuspended
	// StatusCompleted means the run emitted its Output event.
	StatusCompleted
	// StatusFailed means the run terminated with an error.
	StatusFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusSuspended:
		return "suspended"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further segment can run.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// orchestrator is the closed set of topology state machines. Implementations
// own their conversation and counters; the Workflow guarantees that start and
// resume never run concurrently.
type orchestrator interface {
	topology() string
	start(rc *runContext, conv core.Conversation) error
	resume(rc *runContext, responses map[string]any) error
	release()
}

// Workflow is a single run of a topology. It is created by one of the
// topology constructors (NewSequential, NewConcurrent, NewGroupChat,
// NewHandoff, NewMagentic), started exactly once, and resumed any number of
// times while it is suspended.
//
// All methods are safe for concurrent use.
type Workflow struct {
	runID      string
	orch       orchestrator
	logger     *core.LoggerAdapter
	bufferSize int

	mu      sync.Mutex
	status  Status
	pending *pendingSet
	ledger  *core.ProgressLedger
	err     error
}

func newWorkflow(orch orchestrator, opts Options) *Workflow {
	opts.normalize()
	return &Workflow{
		runID:      opts.RunID,
		orch:       orch,
		logger:     core.NewLoggerAdapter(opts.Logger),
		bufferSize: opts.EventBufferSize,
		pending:    newPendingSet(),
	}
}

// RunID returns the identifier stamped on every event of this run.
func (w *Workflow) RunID() string { return w.runID }

// Topology returns the name of the coordination pattern, e.g. "handoff".
func (w *Workflow) Topology() string { return w.orch.topology() }

// Status returns the current lifecycle state.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Err returns the failure of a StatusFailed run.
func (w *Workflow) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Pending returns the ids of the requests awaiting a response, sorted.
func (w *Workflow) Pending() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending.ids()
}

// PendingRequests returns the RequestInfo events awaiting a response.
func (w *Workflow) PendingRequests() []core.RequestInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending.requests()
}

// Ledger returns the Magentic progress ledger as of the end of the last
// segment. It reports false for other topologies.
func (w *Workflow) Ledger() (core.ProgressLedger, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ledger == nil {
		return core.ProgressLedger{}, false
	}
	return *w.ledger, true
}

// Start begins the run with a single user message holding input.
//
// Start is valid once per Workflow; later calls fail with a configuration
// error wrapping core.ErrAlreadyStarted. The event channel is closed when the
// segment ends; the error channel carries at most one error and is closed
// right after.
func (w *Workflow) Start(ctx context.Context, input string) (<-chan core.Event, <-chan error, error) {
	return w.StartConversation(ctx, core.Conversation{core.NewUserMessage(input)})
}

// StartConversation begins the run with a prepared conversation.
func (w *Workflow) StartConversation(ctx context.Context, conv core.Conversation) (<-chan core.Event, <-chan error, error) {
	w.mu.Lock()
	if w.status != StatusIdle {
		w.mu.Unlock()
		return nil, nil, core.NewConfigurationError("start", core.ErrAlreadyStarted, "run %s is %s", w.runID, w.status)
	}
	w.status = StatusRunning
	w.mu.Unlock()

	initial := conv.Clone()
	events, errs := w.runSegment(ctx, "start", func(rc *runContext) error {
		return w.orch.start(rc, initial)
	})

	return events, errs, nil
}

// Resume continues a suspended run.
//
// responses maps request ids to answers. It must contain an entry for every
// pending request and no others, and each value must match the request's
// payload type:
//   - core.UserInputRequest accepts core.UserInput, *core.UserInput or string
//   - core.PlanReviewRequest accepts core.PlanReviewResponse or *core.PlanReviewResponse
//     that either approves or carries a non-empty revision
//
// Any violation fails with a configuration error wrapping
// core.ErrInvalidResponses and leaves the run untouched, still suspended on
// the same requests.
func (w *Workflow) Resume(ctx context.Context, responses map[string]any) (<-chan core.Event, <-chan error, error) {
	w.mu.Lock()
	if w.status != StatusSuspended {
		status := w.status
		w.mu.Unlock()
		return nil, nil, core.NewConfigurationError("resume", core.ErrNotSuspended, "run %s is %s", w.runID, status)
	}

	normalized, err := w.pending.validate(responses)
	if err != nil {
		w.mu.Unlock()
		return nil, nil, err
	}

	w.pending.clear()
	w.status = StatusRunning
	w.mu.Unlock()

	events, errs := w.runSegment(ctx, "resume", func(rc *runContext) error {
		return w.orch.resume(rc, normalized)
	})

	return events, errs, nil
}

// runSegment executes fn in its own goroutine and settles the run status
// once it returns.
func (w *Workflow) runSegment(ctx context.Context, kind string, fn func(rc *runContext) error) (<-chan core.Event, <-chan error) {
	events := make(chan core.Event, w.bufferSize)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)

		ctx, span := tracer.Start(ctx, "agentweave."+kind, trace.WithAttributes(
			attribute.String("agentweave.run_id", w.runID),
			attribute.String("agentweave.topology", w.orch.topology()),
		))
		defer span.End()

		rc := &runContext{
			ctx:    ctx,
			runID:  w.runID,
			events: events,
			logger: w.logger,
			addPending: func(req core.RequestInfo) {
				w.mu.Lock()
				w.pending.add(req)
				w.mu.Unlock()
			},
		}

		started := time.Now()
		w.logger.LogDebug("Segment started", "run_id", w.runID, "topology", w.orch.topology(), "segment", kind)

		err := fn(rc)
		if err == nil && !rc.outputEmitted() && ctx.Err() != nil {
			err = ctx.Err()
		}

		status := w.settle(rc, err)
		span.SetAttributes(attribute.String("agentweave.status", status.String()))

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			errs <- err
		}

		w.logRunOutcome(kind, status, rc.emitted(), time.Since(started), err)
	}()

	return events, errs
}

func (w *Workflow) settle(rc *runContext, err error) Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	if l, ok := w.orch.(interface{ progress() core.ProgressLedger }); ok {
		snapshot := l.progress()
		w.ledger = &snapshot
	}

	switch {
	case err != nil:
		w.status = StatusFailed
		w.err = err
		w.pending.clear()
	case rc.outputEmitted():
		w.status = StatusCompleted
	case w.pending.len() > 0:
		w.status = StatusSuspended
		return w.status
	default:
		w.status = StatusCompleted
	}

	w.orch.release()
	return w.status
}

func (w *Workflow) logRunOutcome(segment string, status Status, events int, dur time.Duration, err error) {
	if wl, ok := w.logger.Logger().(*logging.WeaveLogger); ok {
		wl.WithRun(w.runID).LogRunOutcome(w.orch.topology(), status.String(), events, dur, err)
		return
	}
	if err != nil {
		w.logger.LogError("Run failed", "run_id", w.runID, "topology", w.orch.topology(), "segment", segment, "error", err)
		return
	}
	w.logger.LogDebug("Segment finished", "run_id", w.runID, "topology", w.orch.topology(),
		"segment", segment, "status", status.String(), "events", events, "duration", dur)
}

// Collect drains a segment into a slice. It returns the events received and
// the segment's error, or ctx.Err() if ctx is cancelled first. It mirrors a
// synchronous invocation of an asynchronous run.
func Collect(ctx context.Context, events <-chan core.Event, errs <-chan error) ([]core.Event, error) {
	var (
		out      []core.Event
		firstErr error
	)

	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			out = append(out, ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}

	return out, firstErr
}
