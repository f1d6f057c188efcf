package main

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave"
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/testutil"
	"github.com/hupe1980/agentweave/orchestration"
)

func TestRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	streamed := core.NewAssistantMessage("writer", "Hello world")
	plain := core.NewAssistantMessage("reviewer", "Looks good")

	r.render(core.AgentUpdate{Participant: "writer", MessageID: streamed.ID, PartialText: "Hello "})
	r.render(core.AgentUpdate{Participant: "writer", MessageID: streamed.ID, PartialText: "world"})
	r.render(core.AgentCompleted{Participant: "writer", Message: streamed})
	r.render(core.AgentCompleted{Participant: "reviewer", Message: plain})
	r.render(core.Output{Conversation: core.Conversation{core.NewUserMessage("go"), streamed, plain}})

	assert.Equal(t, strings.Join([]string{
		"[writer] Hello world",
		"[reviewer] Looks good",
		"=== Output ===",
		"user: go",
		"writer: Hello world",
		"reviewer: Looks good",
		"",
	}, "\n"), buf.String())
}

func TestRenderer_OutputMessage(t *testing.T) {
	var buf bytes.Buffer
	msg := core.NewAssistantMessage("manager", "final")
	newRenderer(&buf).render(core.Output{Message: &msg})
	assert.Equal(t, "=== Output ===\nfinal\n", buf.String())
}

func TestAnswer(t *testing.T) {
	reqs := []core.RequestInfo{
		{RequestID: "r1", SourceParticipant: "triage", Payload: core.UserInputRequest{Participant: "triage"}},
		{RequestID: "r2", SourceParticipant: "manager", Payload: core.PlanReviewRequest{Plan: "1. research"}},
		{RequestID: "r3", SourceParticipant: "manager", Payload: core.PlanReviewRequest{Plan: "2. write"}},
	}

	in := bufio.NewReader(strings.NewReader("order 1234\n\nadd a summary"))
	var out bytes.Buffer

	responses, err := answer(reqs, in, &out)
	require.NoError(t, err)

	assert.Equal(t, core.UserInput{Text: "order 1234"}, responses["r1"])
	assert.Equal(t, core.PlanReviewResponse{Approved: true}, responses["r2"])
	assert.Equal(t, core.PlanReviewResponse{Revision: "add a summary"}, responses["r3"])
	assert.Contains(t, out.String(), "You (to triage)> ")
	assert.Contains(t, out.String(), "1. research")
}

func TestAnswer_Errors(t *testing.T) {
	_, err := answer([]core.RequestInfo{{RequestID: "r1", Payload: 42}}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unsupported request")

	_, err = answer([]core.RequestInfo{{RequestID: "r1", Payload: core.UserInputRequest{}}}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
	assert.ErrorContains(t, err, "failed to read input")
}

func TestDrive_AnswersUntilCompletion(t *testing.T) {
	agent := testutil.Texts("agent", "How can I help?", "Your order ships tomorrow.")
	wf, err := orchestration.NewHandoff([]core.Participant{agent}, func(o *orchestration.HandoffOptions) {
		o.Termination = core.MaxAssistantMessages(2)
	})
	require.NoError(t, err)

	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader("where is my order?\n"))

	err = drive(context.Background(), agentweave.New(), wf, "hi", in, &out)
	require.NoError(t, err)

	assert.Equal(t, orchestration.StatusCompleted, wf.Status())
	assert.Contains(t, out.String(), "[agent] How can I help?")
	assert.Contains(t, out.String(), "You (to agent)> ")
	assert.Contains(t, out.String(), "user: where is my order?")
	assert.Contains(t, out.String(), "agent: Your order ships tomorrow.")
}
