package model

import (
	"context"
	"strings"
	"testing"

	"github.com/hupe1980/agentweave/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, out <-chan Response, errs <-chan error) []Response {
	t.Helper()
	var got []Response
	for r := range out {
		got = append(got, r)
	}
	for err := range errs {
		require.NoError(t, err)
	}
	return got
}

func TestMockModel_Streaming(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("hello", "hi there friend")

	out, errs := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.NewUserMessage("hello")},
		Stream:   true,
	})
	got := drain(t, out, errs)

	require.NotEmpty(t, got)
	final := got[len(got)-1]
	assert.False(t, final.Partial)
	assert.Equal(t, "hi there friend", final.Text)

	var sb strings.Builder
	for _, r := range got[:len(got)-1] {
		assert.True(t, r.Partial)
		sb.WriteString(r.Text)
	}
	assert.Equal(t, final.Text, sb.String())
	assert.Len(t, m.Requests(), 1)
}

func TestMockModel_ToolCall(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddToolCall("route me", ToolCall{ID: "c1", Name: "transfer_to_agent", Arguments: []byte(`{"agent":"order"}`)})

	out, errs := m.Generate(context.Background(), Request{Messages: []core.Message{core.NewUserMessage("route me")}})
	got := drain(t, out, errs)

	require.Len(t, got, 1)
	assert.Equal(t, "tool_calls", got[0].FinishReason)
	require.Len(t, got[0].ToolCalls, 1)
	assert.Equal(t, "transfer_to_agent", got[0].ToolCalls[0].Name)
}

func TestMockModel_NoMessages(t *testing.T) {
	m := NewMockModel("mock", "mock")
	out, errs := m.Generate(context.Background(), Request{})
	for range out {
	}
	err := <-errs
	assert.Error(t, err)
}

func TestRequest_Transcript(t *testing.T) {
	msgs := []core.Message{
		core.NewUserMessage("task"),
		core.NewAssistantMessage("researcher", "facts"),
		core.NewAssistantMessage("writer", "draft"),
	}

	t.Run("attributes other participants", func(t *testing.T) {
		got := Request{Participant: "writer", Messages: msgs}.Transcript()
		require.Len(t, got, 3)
		assert.Equal(t, core.RoleUser, got[1].Role)
		assert.Equal(t, "[researcher]: facts", got[1].Text)
		assert.Equal(t, core.RoleAssistant, got[2].Role)
		assert.Equal(t, "draft", got[2].Text)
		assert.Equal(t, "facts", msgs[1].Text)
	})

	t.Run("unchanged without participant", func(t *testing.T) {
		got := Request{Messages: msgs}.Transcript()
		assert.Equal(t, msgs, got)
	})
}

func TestEmit_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan Response)
	assert.False(t, Emit(ctx, out, Response{Text: "never read"}))

	buffered := make(chan Response, 1)
	assert.True(t, Emit(context.Background(), buffered, Response{Text: "ok"}))
	assert.Equal(t, "ok", (<-buffered).Text)
}
