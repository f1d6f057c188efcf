package orchestration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/internal/testutil"
)

func TestParseSelection(t *testing.T) {
	eligible := []string{"Writer", "Reviewer"}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"json", `{"next_speaker": "Writer", "finish": false}`, "Writer"},
		{"json with prose", `Next: {"next_speaker": "reviewer"} thanks`, "Reviewer"},
		{"finish", `{"next_speaker": "Writer", "finish": true}`, ""},
		{"bare name", "writer.", "Writer"},
		{"unknown kept verbatim", "Editor", "Editor"},
		{"empty", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSelection(tt.text, eligible))
		})
	}
}

func TestRoundRobinSelector(t *testing.T) {
	sel := RoundRobinSelector()
	eligible := []string{"a", "b", "c"}

	conv := testutil.NewConversationBuilder().User("go").Build()
	got, err := sel.SelectSpeaker(context.Background(), conv, eligible)
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	conv = testutil.NewConversationBuilder().User("go").
		Assistant("a", "1").Assistant("outsider", "x").Assistant("b", "2").Build()
	got, err = sel.SelectSpeaker(context.Background(), conv, eligible)
	require.NoError(t, err)
	assert.Equal(t, "c", got)
}

func TestAgentSelector_PromptListsEligible(t *testing.T) {
	p := testutil.Texts("orchestrator", "b")

	got, err := NewAgentSelector(p).SelectSpeaker(context.Background(),
		testutil.NewConversationBuilder().User("go").Build(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", got)

	require.Len(t, p.Calls(), 1)
	last, ok := p.Calls()[0].Last()
	require.True(t, ok)
	assert.Contains(t, last.Text, "a, b")
}
