package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/testutil"
)

func suspendedHandoff(t *testing.T) (*Workflow, *testutil.ScriptedParticipant, core.RequestInfo) {
	t.Helper()

	triage := testutil.Texts("triage", "How can I help?", "Anything else?")
	wf, err := NewHandoff(supportTeam(triage), func(o *HandoffOptions) { o.Graph = supportGraph() })
	require.NoError(t, err)

	evs, err := runToEnd(t, wf, "hi")
	require.NoError(t, err)

	reqs := testutil.RequestsOf(evs)
	require.Len(t, reqs, 1)
	require.Equal(t, StatusSuspended, wf.Status())

	return wf, triage, reqs[0]
}

func TestWorkflow_StartIsValidOnce(t *testing.T) {
	wf, err := NewSequential([]core.Participant{testutil.Texts("A", "a")})
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, wf.Status())
	assert.Equal(t, "sequential", wf.Topology())

	_, err = runToEnd(t, wf, "go")
	require.NoError(t, err)

	_, _, err = wf.Start(context.Background(), "again")
	assert.ErrorIs(t, err, core.ErrAlreadyStarted)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestWorkflow_ResumeRequiresSuspension(t *testing.T) {
	wf, err := NewSequential([]core.Participant{testutil.Texts("A", "a")})
	require.NoError(t, err)

	_, _, err = wf.Resume(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, core.ErrNotSuspended)

	_, err = runToEnd(t, wf, "go")
	require.NoError(t, err)

	_, _, err = wf.Resume(context.Background(), map[string]any{})
	assert.ErrorIs(t, err, core.ErrNotSuspended)
}

func TestWorkflow_InvalidResumeLeavesStateUntouched(t *testing.T) {
	wf, triage, req := suspendedHandoff(t)

	tests := []struct {
		name      string
		responses map[string]any
	}{
		{"missing pending id", map[string]any{}},
		{"nil map", nil},
		{"unknown id", map[string]any{req.RequestID: "ok", "other": "ok"}},
		{"wrong type", map[string]any{req.RequestID: 42}},
		{"plan review for user input", map[string]any{req.RequestID: core.PlanReviewResponse{Approved: true}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, errs, err := wf.Resume(context.Background(), tt.responses)
			require.ErrorIs(t, err, core.ErrInvalidResponses)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, events)
			assert.Nil(t, errs)

			assert.Equal(t, StatusSuspended, wf.Status())
			assert.Equal(t, []string{req.RequestID}, wf.Pending())
			assert.Equal(t, 1, triage.CallCount())
		})
	}

	// The run still continues normally afterwards.
	events, errs, err := wf.Resume(context.Background(), map[string]any{req.RequestID: &core.UserInput{Text: "track my order"}})
	require.NoError(t, err)

	evs, err := Collect(context.Background(), events, errs)
	require.NoError(t, err)
	assert.Equal(t, 2, triage.CallCount())

	last, ok := triage.Calls()[1].Last()
	require.True(t, ok)
	assert.Equal(t, "track my order", last.Text)
	assert.Len(t, testutil.RequestsOf(evs), 1)
	assert.NotEqual(t, []string{req.RequestID}, wf.Pending())
}

func TestWorkflow_PendingRequestsExposePayload(t *testing.T) {
	wf, _, req := suspendedHandoff(t)

	pending := wf.PendingRequests()
	require.Len(t, pending, 1)
	assert.Equal(t, req.RequestID, pending[0].RequestID)
	assert.IsType(t, core.UserInputRequest{}, pending[0].Payload)

	_, ok := wf.Ledger()
	assert.False(t, ok)
}

func TestWorkflow_CancellationFailsRun(t *testing.T) {
	slow := testutil.NewScriptedParticipant("slow", testutil.Reply{Text: "late", Delay: time.Second})
	next := testutil.Texts("next", "never")

	wf, err := NewSequential([]core.Participant{slow, next})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	events, errs, err := wf.Start(ctx, "go")
	require.NoError(t, err)

	time.AfterFunc(20*time.Millisecond, cancel)

	evs, err := testutil.Drain(events, errs)
	require.ErrorIs(t, err, context.Canceled)

	_, ok := testutil.OutputOf(evs)
	assert.False(t, ok)
	assert.Equal(t, StatusFailed, wf.Status())
	assert.Equal(t, 0, next.CallCount())
}

func TestWorkflow_CustomRunIDAndBuffer(t *testing.T) {
	wf, err := NewSequential([]core.Participant{testutil.Texts("A", "a")}, func(o *SequentialOptions) {
		o.RunID = "run-42"
		o.EventBufferSize = 1
	})
	require.NoError(t, err)

	evs, err := runToEnd(t, wf, "go")
	require.NoError(t, err)

	for _, ev := range evs {
		assert.Equal(t, "run-42", ev.Run())
	}
}

func TestCollect_StopsOnContextCancel(t *testing.T) {
	events := make(chan core.Event)
	errs := make(chan error)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Collect(ctx, events, errs)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "suspended", StatusSuspended.String())
	assert.Equal(t, "unknown", Status(99).String())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusSuspended.Terminal())
}
