package orchestration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/testutil"
)

func TestConcurrent_AggregatesInDeclarationOrder(t *testing.T) {
	// C finishes first, A last.
	a := testutil.NewScriptedParticipant("A", testutil.Reply{Text: "research", Delay: 90 * time.Millisecond})
	b := testutil.NewScriptedParticipant("B", testutil.Reply{Text: "marketing", Delay: 50 * time.Millisecond})
	c := testutil.NewScriptedParticipant("C", testutil.Reply{Text: "legal", Delay: 10 * time.Millisecond})

	wf, err := NewConcurrent([]core.Participant{a, b, c})
	require.NoError(t, err)

	initial := testutil.NewConversationBuilder().User("Launch an eBike").Build()
	events, errs, err := wf.StartConversation(context.Background(), initial)
	require.NoError(t, err)

	evs, err := Collect(context.Background(), events, errs)
	require.NoError(t, err)

	out, ok := testutil.OutputOf(evs)
	require.True(t, ok)
	require.Len(t, out.Conversation, 4)
	assert.Equal(t, []string{"A", "B", "C"}, out.Conversation.Authors())
	assert.Equal(t, out.Conversation, core.FoldConversation(initial, evs))

	// Every participant received the identical initial conversation.
	for _, p := range []*testutil.ScriptedParticipant{a, b, c} {
		require.Len(t, p.Calls(), 1)
		assert.Equal(t, initial, p.Calls()[0])
	}
}

func TestConcurrent_FailureDiscardsPartialResults(t *testing.T) {
	a := testutil.Texts("A", "a")
	b := testutil.NewScriptedParticipant("B", testutil.Reply{Err: assert.AnError, Delay: 20 * time.Millisecond})
	c := testutil.Texts("C", "c")

	wf, err := NewConcurrent([]core.Participant{a, b, c})
	require.NoError(t, err)

	events, errs, err := wf.Start(context.Background(), "go")
	require.NoError(t, err)

	evs, err := Collect(context.Background(), events, errs)
	require.ErrorIs(t, err, assert.AnError)

	_, ok := testutil.OutputOf(evs)
	assert.False(t, ok)
	assert.Empty(t, testutil.Completed(evs))
	assert.Equal(t, StatusFailed, wf.Status())
}

func TestConcurrent_CustomAggregator(t *testing.T) {
	a := testutil.Texts("A", "alpha")
	b := testutil.Texts("B", "beta")

	wf, err := NewConcurrent([]core.Participant{a, b}, func(o *ConcurrentOptions) {
		o.Aggregator = func(initial core.Conversation, results []core.Message) (core.Conversation, error) {
			parts := make([]string, len(results))
			for i, r := range results {
				parts[i] = r.Author + ": " + r.Text
			}
			return initial.Append(core.NewAssistantMessage("aggregator", strings.Join(parts, "\n"))), nil
		}
	})
	require.NoError(t, err)

	events, errs, err := wf.Start(context.Background(), "go")
	require.NoError(t, err)

	evs, err := Collect(context.Background(), events, errs)
	require.NoError(t, err)

	out, ok := testutil.OutputOf(evs)
	require.True(t, ok)
	require.Len(t, out.Conversation, 2)
	assert.Equal(t, "A: alpha\nB: beta", out.Conversation[1].Text)
}
