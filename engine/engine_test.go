package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/testutil"
	"github.com/hupe1980/agentweave/orchestration"
)

func sequential(t *testing.T, ps ...core.Participant) *orchestration.Workflow {
	t.Helper()
	wf, err := orchestration.NewSequential(ps)
	require.NoError(t, err)
	return wf
}

func interactive(t *testing.T) *orchestration.Workflow {
	t.Helper()
	wf, err := orchestration.NewHandoff([]core.Participant{
		testutil.Texts("agent", "How can I help?", "Done."),
	})
	require.NoError(t, err)
	return wf
}

// counterValue reads a counter from reg, matching the given label pairs.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}

	return 0
}

func TestEngine_CompletedRunLeavesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := New(func(o *Options) { o.Registerer = reg })

	wf := sequential(t, testutil.Texts("A", "a"), testutil.Texts("B", "b"))

	runID, events, errs, err := eng.Start(context.Background(), wf, "go")
	require.NoError(t, err)
	assert.Equal(t, wf.RunID(), runID)

	evs, err := testutil.Drain(events, errs)
	require.NoError(t, err)

	out, ok := testutil.OutputOf(evs)
	require.True(t, ok)
	assert.Len(t, out.Conversation, 3)

	assert.Empty(t, eng.Active())
	_, found := eng.Get(runID)
	assert.False(t, found)

	assert.Equal(t, 1.0, counterValue(t, reg, "agentweave_runs_started_total", nil))
	assert.Equal(t, 1.0, counterValue(t, reg, "agentweave_runs_finished_total", map[string]string{"outcome": OutcomeCompleted}))
	assert.Equal(t, 2.0, counterValue(t, reg, "agentweave_events_total", map[string]string{"kind": "agent_completed"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "agentweave_events_total", map[string]string{"kind": "output"}))
}

func TestEngine_SuspendedRunStaysUntilResumed(t *testing.T) {
	eng := New()
	wf := interactive(t)

	runID, events, errs, err := eng.Start(context.Background(), wf, "hi")
	require.NoError(t, err)

	evs, err := testutil.Drain(events, errs)
	require.NoError(t, err)

	reqs := testutil.RequestsOf(evs)
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{runID}, eng.Active())

	got, ok := eng.Get(runID)
	require.True(t, ok)
	assert.Same(t, wf, got)
	assert.Equal(t, orchestration.StatusSuspended, got.Status())

	_, _, err = eng.Resume(context.Background(), runID, map[string]any{"bogus": "x"})
	require.ErrorIs(t, err, core.ErrInvalidResponses)
	assert.Equal(t, []string{runID}, eng.Active())

	events, errs, err = eng.Resume(context.Background(), runID, map[string]any{reqs[0].RequestID: "order 42"})
	require.NoError(t, err)

	evs, err = testutil.Drain(events, errs)
	require.NoError(t, err)
	require.Len(t, testutil.RequestsOf(evs), 1)
	assert.Equal(t, []string{runID}, eng.Active())
}

func TestEngine_ResumeUnknownRun(t *testing.T) {
	eng := New()
	_, _, err := eng.Resume(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestEngine_DuplicateStart(t *testing.T) {
	eng := New()
	wf := interactive(t)

	_, events, errs, err := eng.Start(context.Background(), wf, "hi")
	require.NoError(t, err)
	_, err = testutil.Drain(events, errs)
	require.NoError(t, err)

	_, _, _, err = eng.Start(context.Background(), wf, "again")
	assert.ErrorIs(t, err, core.ErrAlreadyStarted)
	assert.Len(t, eng.Active(), 1)
}

func TestEngine_StopSuspendedRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := New(func(o *Options) { o.Registerer = reg })
	wf := interactive(t)

	runID, events, errs, err := eng.Start(context.Background(), wf, "hi")
	require.NoError(t, err)
	_, err = testutil.Drain(events, errs)
	require.NoError(t, err)

	require.NoError(t, eng.Stop(runID))
	assert.Empty(t, eng.Active())
	assert.Error(t, eng.Stop(runID))

	_, _, err = eng.Resume(context.Background(), runID, nil)
	assert.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "agentweave_runs_finished_total", map[string]string{"outcome": OutcomeStopped}))
}

func TestEngine_StopRunningSegment(t *testing.T) {
	eng := New()
	slow := testutil.NewScriptedParticipant("slow", testutil.Reply{Text: "late", Delay: time.Minute})
	wf := sequential(t, slow)

	runID, events, errs, err := eng.Start(context.Background(), wf, "go")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return slow.CallCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, eng.Stop(runID))

	_, err = testutil.Drain(events, errs)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, orchestration.StatusFailed, wf.Status())
	assert.Empty(t, eng.Active())
}

func TestEngine_MaxConcurrentRuns(t *testing.T) {
	eng := New(func(o *Options) { o.Config.MaxConcurrentRuns = 1 })

	slow := testutil.NewScriptedParticipant("slow", testutil.Reply{Text: "late", Delay: time.Minute})
	first := sequential(t, slow)

	runID, events, errs, err := eng.Start(context.Background(), first, "go")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	second := sequential(t, testutil.Texts("A", "a"))
	_, _, _, err = eng.Start(ctx, second, "go")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, orchestration.StatusIdle, second.Status())
	assert.Equal(t, []string{runID}, eng.Active())

	require.NoError(t, eng.Stop(runID))
	_, _ = testutil.Drain(events, errs)

	// The slot is free again.
	_, events, errs, err = eng.Start(context.Background(), second, "go")
	require.NoError(t, err)
	_, err = testutil.Drain(events, errs)
	require.NoError(t, err)
}

func TestEngine_Callbacks(t *testing.T) {
	var (
		mu    sync.Mutex
		kinds []string
		after []orchestration.Status
	)

	eng := New(func(o *Options) {
		o.Callbacks = []Callback{
			NewFunctionCallback(CallbackOnEvent, func(_ context.Context, c *CallbackContext) error {
				mu.Lock()
				defer mu.Unlock()
				kinds = append(kinds, EventKind(c.Event))
				return nil
			}),
			NewFunctionCallback(CallbackAfterSegment, func(_ context.Context, c *CallbackContext) error {
				mu.Lock()
				defer mu.Unlock()
				after = append(after, c.Status)
				return nil
			}),
		}
	})

	_, events, errs, err := eng.Start(context.Background(), sequential(t, testutil.Texts("A", "a")), "go")
	require.NoError(t, err)
	_, err = testutil.Drain(events, errs)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"agent_completed", "output"}, kinds)
	assert.Equal(t, []orchestration.Status{orchestration.StatusCompleted}, after)
}

func TestEngine_BeforeSegmentVeto(t *testing.T) {
	veto := errors.New("quota exceeded")
	eng := New()
	eng.Callbacks().RegisterCallback(NewFunctionCallback(CallbackBeforeSegment, func(context.Context, *CallbackContext) error {
		return veto
	}))

	wf := sequential(t, testutil.Texts("A", "a"))
	_, _, _, err := eng.Start(context.Background(), wf, "go")
	require.ErrorIs(t, err, veto)
	assert.Equal(t, orchestration.StatusIdle, wf.Status())
	assert.Empty(t, eng.Active())
}

func TestEngine_LoggingCallback(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	record := func(msg string) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, msg)
	}

	eng := New(func(o *Options) {
		o.Callbacks = []Callback{NewLoggingCallback(CallbackAfterSegment, record)}
	})

	runID, events, errs, err := eng.Start(context.Background(), sequential(t, testutil.Texts("A", "a")), "go")
	require.NoError(t, err)
	_, err = testutil.Drain(events, errs)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, lines, 1)
	assert.Equal(t, "[after_segment] run="+runID+" topology=sequential segment=start status=completed", lines[0])
}

func TestEngine_FailedRunIsCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := New(func(o *Options) { o.Registerer = reg })

	boom := errors.New("boom")
	wf := sequential(t, testutil.NewScriptedParticipant("A", testutil.Reply{Err: boom}))

	var onError error
	eng.Callbacks().RegisterCallback(NewFunctionCallback(CallbackOnError, func(_ context.Context, c *CallbackContext) error {
		onError = c.Err
		return nil
	}))

	_, events, errs, err := eng.Start(context.Background(), wf, "go")
	require.NoError(t, err)
	_, err = testutil.Drain(events, errs)
	require.ErrorIs(t, err, boom)

	assert.ErrorIs(t, onError, boom)
	assert.Empty(t, eng.Active())
	assert.Equal(t, 1.0, counterValue(t, reg, "agentweave_runs_finished_total", map[string]string{"outcome": OutcomeFailed}))
}

func TestEngine_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(func(o *Options) { o.Registerer = reg })
	b := New(func(o *Options) { o.Registerer = reg })

	for _, eng := range []*Engine{a, b} {
		_, events, errs, err := eng.Start(context.Background(), sequential(t, testutil.Texts("A", "a")), "go")
		require.NoError(t, err)
		_, err = testutil.Drain(events, errs)
		require.NoError(t, err)
	}

	assert.Equal(t, 2.0, counterValue(t, reg, "agentweave_runs_started_total", nil))
}

func TestEventKind(t *testing.T) {
	assert.Equal(t, "agent_update", EventKind(core.AgentUpdate{}))
	assert.Equal(t, "request_info", EventKind(core.RequestInfo{}))
	assert.Equal(t, "unknown", EventKind(nil))
}
