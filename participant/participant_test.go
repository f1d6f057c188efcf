package participant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/orchestration"
	"github.com/hupe1980/agentweave/tool"
)

func drain(t *testing.T, p core.Participant, conv core.Conversation) ([]core.Response, error) {
	t.Helper()
	respCh, errCh := p.Respond(context.Background(), conv)

	var (
		out []core.Response
		err error
	)
	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			out = append(out, r)
		case e, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			err = e
		}
	}
	return out, err
}

func TestFunc(t *testing.T) {
	p := Func("echo", "Echoes the last message", func(_ context.Context, conv core.Conversation) (string, error) {
		last, _ := conv.Last()
		return "echo: " + last.Text, nil
	})
	assert.Equal(t, "echo", p.Name())
	assert.Equal(t, "Echoes the last message", p.Description())

	resps, err := drain(t, p, core.Conversation{core.NewUserMessage("hi")})
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.False(t, resps[0].Partial)
	assert.Equal(t, "echo: hi", resps[0].Text)

	failing := Func("bad", "", func(context.Context, core.Conversation) (string, error) {
		return "", errors.New("boom")
	})
	_, err = drain(t, failing, nil)
	assert.EqualError(t, err, "boom")
}

func TestStream(t *testing.T) {
	p := Stream("router", "", func(_ context.Context, _ core.Conversation, emit func(string) error) (core.Response, error) {
		if err := emit("routing "); err != nil {
			return core.Response{}, err
		}
		return core.Response{Partial: true, Text: "routing to order", HandoffTo: "order"}, nil
	})

	resps, err := drain(t, p, nil)
	require.NoError(t, err)
	require.Len(t, resps, 2)
	assert.True(t, resps[0].Partial)
	assert.False(t, resps[1].Partial)
	assert.Equal(t, "order", resps[1].HandoffTo)
}

func TestModelParticipant_StreamsAndWindowsHistory(t *testing.T) {
	llm := model.NewMockModel("mock-1", "mock")
	llm.AddResponse("last", "hello there friend")

	p := NewModelParticipant("writer", llm, func(o *ModelParticipantOptions) {
		o.Description = "Writes copy"
		o.Instruction = NewInstructionFromText("You are {{ .name }}: {{ .description }}.")
		o.MaxHistoryMessages = 2
	})

	conv := core.Conversation{
		core.NewUserMessage("first"),
		core.NewUserMessage("second"),
		core.NewUserMessage("last"),
	}

	resps, err := drain(t, p, conv)
	require.NoError(t, err)
	require.Len(t, resps, 4)
	assert.Equal(t, "hello ", resps[0].Text)
	assert.True(t, resps[2].Partial)
	assert.Equal(t, "hello there friend", resps[3].Text)
	assert.Empty(t, resps[3].HandoffTo)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "writer", reqs[0].Participant)
	assert.Equal(t, "You are writer: Writes copy.", reqs[0].Instructions)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, "second", reqs[0].Messages[0].Text)
	assert.Empty(t, reqs[0].Tools)
}

func TestModelParticipant_TransferBecomesHandoff(t *testing.T) {
	llm := model.NewMockModel("mock-1", "mock")
	llm.AddToolCall("where is my order?", model.ToolCall{
		ID:        "call-1",
		Name:      TransferToolName,
		Arguments: json.RawMessage(`{"agent": "order"}`),
	})

	p := NewModelParticipant("triage", llm, func(o *ModelParticipantOptions) {
		o.HandoffTargets = []string{"order", "return"}
		o.EnableStreaming = false
	})
	assert.Equal(t, []string{"order", "return"}, p.HandoffTargets())

	resps, err := drain(t, p, core.Conversation{core.NewUserMessage("where is my order?")})
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Equal(t, "order", resps[0].HandoffTo)
	assert.Equal(t, "Transferring to order.", resps[0].Text)

	reqs := llm.Requests()
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, TransferToolName, reqs[0].Tools[0].Name)
}

func TestModelParticipant_InHandoffWorkflow(t *testing.T) {
	triageLLM := model.NewMockModel("triage-llm", "mock")
	triageLLM.AddToolCall("I need a refund", model.ToolCall{Name: TransferToolName, Arguments: json.RawMessage(`{"agent": "return"}`)})
	returnLLM := model.NewMockModel("return-llm", "mock")
	returnLLM.AddResponse("Transferring to return.", "Which item would you like to return?")

	triage := NewModelParticipant("triage", triageLLM, func(o *ModelParticipantOptions) { o.HandoffTargets = []string{"order", "return"} })
	ret := NewModelParticipant("return", returnLLM)

	wf, err := orchestration.NewHandoff([]core.Participant{triage, ret}, func(o *orchestration.HandoffOptions) {
		o.Graph = orchestration.NewHandoffGraph().Add("triage", "return").Add("return", "triage")
	})
	require.NoError(t, err)

	events, errs, err := wf.Start(context.Background(), "I need a refund")
	require.NoError(t, err)

	evs, err := orchestration.Collect(context.Background(), events, errs)
	require.NoError(t, err)

	var requests []core.RequestInfo
	for _, ev := range evs {
		if r, ok := ev.(core.RequestInfo); ok {
			requests = append(requests, r)
		}
	}
	require.Len(t, requests, 1)
	assert.Equal(t, "return", requests[0].SourceParticipant)
}

func TestTransferTool(t *testing.T) {
	tool := NewTransferTool([]string{"order"})

	def := tool.Definition()
	assert.Equal(t, TransferToolName, def.Name)
	props := def.Parameters["properties"].(map[string]any)
	assert.Equal(t, []string{"order"}, props["agent"].(map[string]any)["enum"])

	target, err := tool.Parse(model.ToolCall{Name: TransferToolName, Arguments: json.RawMessage(`{"agent":"billing"}`)})
	require.NoError(t, err)
	assert.Equal(t, "billing", target)

	_, err = tool.Parse(model.ToolCall{Name: TransferToolName, Arguments: json.RawMessage(`{}`)})
	assert.Error(t, err)

	_, err = tool.Parse(model.ToolCall{Name: TransferToolName, Arguments: json.RawMessage(`{"agent": 7}`)})
	assert.Error(t, err)

	_, err = tool.Parse(model.ToolCall{Name: "search"})
	assert.Error(t, err)
}

func TestInstruction(t *testing.T) {
	static := NewInstructionFromText("plain")
	assert.True(t, static.IsStatic())
	text, err := static.Resolve(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	dynamic := NewInstructionFromFunc(func(conv core.Conversation) (string, error) {
		return "turns so far: " + string(rune('0'+len(conv))), nil
	})
	assert.False(t, dynamic.IsStatic())
	text, err = dynamic.Resolve(core.Conversation{core.NewUserMessage("x")}, nil)
	require.NoError(t, err)
	assert.Equal(t, "turns so far: 1", text)
}

type orderArgs struct {
	OrderID string `json:"order_id" description:"Order identifier"`
}

func orderStatusTool(calls *int) tool.Tool {
	return tool.NewFunctionToolFromStruct("check_order_status", "Look up an order", orderArgs{},
		func(_ context.Context, args map[string]any) (any, error) {
			*calls++
			return map[string]any{"order_id": args["order_id"], "status": "shipped"}, nil
		})
}

func TestModelParticipant_ExecutesTools(t *testing.T) {
	llm := model.NewMockModel("mock-1", "mock")
	llm.AddToolCall("where is order 42?", model.ToolCall{
		ID:        "call-1",
		Name:      "check_order_status",
		Arguments: json.RawMessage(`{"order_id": "42"}`),
	})
	llm.AddResponse(`Tool check_order_status returned: {"order_id":"42","status":"shipped"}`, "Order 42 has shipped.")

	var executed int
	p := NewModelParticipant("order", llm, func(o *ModelParticipantOptions) {
		o.Tools = []tool.Tool{orderStatusTool(&executed)}
		o.HandoffTargets = []string{"triage"}
		o.EnableStreaming = false
	})

	resps, err := drain(t, p, core.Conversation{core.NewUserMessage("where is order 42?")})
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Equal(t, "Order 42 has shipped.", resps[0].Text)
	assert.Empty(t, resps[0].HandoffTo)
	assert.Equal(t, 1, executed)

	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 2)
	assert.Equal(t, TransferToolName, reqs[0].Tools[0].Name)
	assert.Equal(t, "check_order_status", reqs[0].Tools[1].Name)

	// The second request carries the call and its result.
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, core.RoleAssistant, reqs[1].Messages[1].Role)
	assert.Contains(t, reqs[1].Messages[1].Text, "Calling tool check_order_status")
	assert.Equal(t, core.RoleUser, reqs[1].Messages[2].Role)
}

func TestModelParticipant_ToolRoundBudget(t *testing.T) {
	llm := model.NewMockModel("mock-1", "mock")
	loop := model.ToolCall{Name: "check_order_status", Arguments: json.RawMessage(`{"order_id": "1"}`)}
	result := `Tool check_order_status returned: {"order_id":"1","status":"shipped"}`
	llm.AddToolCall("status?", loop)
	llm.AddToolCall(result, loop)
	llm.AddResponse(result, "Still checking.")

	var executed int
	p := NewModelParticipant("order", llm, func(o *ModelParticipantOptions) {
		o.Tools = []tool.Tool{orderStatusTool(&executed)}
		o.MaxToolRounds = 2
		o.EnableStreaming = false
	})

	resps, err := drain(t, p, core.Conversation{core.NewUserMessage("status?")})
	require.NoError(t, err)
	require.Len(t, resps, 1)
	assert.Equal(t, "Still checking.", resps[0].Text)
	assert.Equal(t, 2, executed)

	reqs := llm.Requests()
	require.Len(t, reqs, 3)
	assert.Len(t, reqs[1].Tools, 1)
	assert.Empty(t, reqs[2].Tools)
}
