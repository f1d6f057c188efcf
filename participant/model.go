package participant

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
	"github.com/hupe1980/agentweave/tool"
)

// ModelParticipantOptions configures a ModelParticipant instance.
//
// Use functional options with NewModelParticipant to override defaults.
type ModelParticipantOptions struct {
	Description        string
	Instruction        Instruction
	EnableStreaming    bool
	MaxHistoryMessages int
	HandoffTargets     []string

	// Tools are executed on the model's request within a turn. MaxToolRounds
	// bounds the model calls that may request tools; the call after the last
	// round is offered no function tools.
	Tools            []tool.Tool
	MaxToolRounds    int
	MaxParallelTools int

	Logger logging.Logger
}

// ModelParticipant integrates a language model as a conversation participant.
//
// Each turn it resolves its instruction, trims the conversation to the
// configured history window and calls the model. Streaming text deltas are
// forwarded as partial responses. When handoff targets are configured the
// model is offered the transfer_to_agent tool; a call to it sets
// core.Response.HandoffTo. Calls to configured function tools are executed
// and their results fed back to the model until it answers without calls;
// the intermediate calls and results never enter the conversation.
//
// A ModelParticipant holds no per-turn state and is safe for concurrent use.
type ModelParticipant struct {
	name               string
	description        string
	llm                model.Model
	instruction        Instruction
	enableStreaming    bool
	maxHistoryMessages int
	handoffTargets     []string
	transfer           *TransferTool
	tools              *tool.Executor
	maxToolRounds      int
	logger             *core.LoggerAdapter
}

// NewModelParticipant creates a new model-backed participant with sensible defaults.
//
// The participant is initialized with:
//   - A generic assistant instruction naming the participant
//   - Streaming enabled
//   - A 20-message conversation history limit
//   - No handoff targets and no tools
//   - Up to 5 tool rounds per turn
func NewModelParticipant(name string, llm model.Model, optFns ...func(o *ModelParticipantOptions)) *ModelParticipant {
	opts := ModelParticipantOptions{
		Instruction:        NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		EnableStreaming:    true,
		MaxHistoryMessages: 20,
		MaxToolRounds:      5,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	p := &ModelParticipant{
		name:               name,
		description:        opts.Description,
		llm:                llm,
		instruction:        opts.Instruction,
		enableStreaming:    opts.EnableStreaming,
		maxHistoryMessages: opts.MaxHistoryMessages,
		handoffTargets:     slices.Clone(opts.HandoffTargets),
		maxToolRounds:      opts.MaxToolRounds,
		logger:             core.NewLoggerAdapter(opts.Logger),
	}

	p.tools = tool.NewExecutor(opts.Tools, func(o *tool.ExecutorOptions) {
		o.MaxParallel = opts.MaxParallelTools
		o.Logger = opts.Logger
	})

	if len(p.handoffTargets) > 0 {
		p.transfer = NewTransferTool(p.handoffTargets)
	}

	return p
}

// Name implements core.Participant.
func (p *ModelParticipant) Name() string { return p.name }

// Description implements core.Participant.
func (p *ModelParticipant) Description() string { return p.description }

// HandoffTargets returns the agents this participant may transfer to.
func (p *ModelParticipant) HandoffTargets() []string { return slices.Clone(p.handoffTargets) }

// Respond implements core.Participant.
func (p *ModelParticipant) Respond(ctx context.Context, conv core.Conversation) (<-chan core.Response, <-chan error) {
	respCh := make(chan core.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		resp, err := p.generate(ctx, conv, respCh)
		if err != nil {
			errCh <- err
			return
		}

		select {
		case respCh <- resp:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return respCh, errCh
}

func (p *ModelParticipant) generate(ctx context.Context, conv core.Conversation, respCh chan<- core.Response) (core.Response, error) {
	instructions, err := p.instruction.Resolve(conv, map[string]any{
		"name":            p.name,
		"description":     p.description,
		"handoff_targets": p.handoffTargets,
	})
	if err != nil {
		return core.Response{}, fmt.Errorf("resolve instructions: %w", err)
	}

	history := p.history(conv)

	for round := 0; ; round++ {
		withFunctions := round < p.maxToolRounds

		req := model.Request{
			Participant:  p.name,
			Instructions: instructions,
			Messages:     history,
			Stream:       p.enableStreaming,
			Tools:        p.toolDefinitions(withFunctions),
		}

		p.logger.LogDebug("Model request", "participant", p.name, "model", p.llm.Info().Name,
			"messages", len(req.Messages), "tools", len(req.Tools), "round", round)

		final, err := p.call(ctx, req, respCh)
		if err != nil {
			return core.Response{}, err
		}

		resp, calls := p.interpret(final, withFunctions)
		if resp.HandoffTo != "" || len(calls) == 0 {
			return resp, nil
		}

		results := p.tools.Execute(ctx, calls)
		if err := ctx.Err(); err != nil {
			return core.Response{}, err
		}

		history = append(history, toolMessages(p.name, final.Text, results)...)
	}
}

// toolDefinitions returns the tools offered to the model. Function tools are
// withheld once the tool round budget is spent; transfers stay available.
func (p *ModelParticipant) toolDefinitions(withFunctions bool) []model.ToolDefinition {
	var defs []model.ToolDefinition
	if p.transfer != nil {
		defs = append(defs, p.transfer.Definition())
	}
	if withFunctions && p.tools.Len() > 0 {
		defs = append(defs, p.tools.Definitions()...)
	}
	return defs
}

// call runs one model request, forwarding text deltas as partial responses.
func (p *ModelParticipant) call(ctx context.Context, req model.Request, respCh chan<- core.Response) (model.Response, error) {
	modelCh, modelErrCh := p.llm.Generate(ctx, req)

	var final *model.Response
	for modelCh != nil || modelErrCh != nil {
		select {
		case r, ok := <-modelCh:
			if !ok {
				modelCh = nil
				continue
			}
			if r.Partial {
				if r.Text == "" {
					continue
				}
				select {
				case respCh <- core.Response{Partial: true, Text: r.Text}:
				case <-ctx.Done():
					return model.Response{}, ctx.Err()
				}
				continue
			}
			resp := r
			final = &resp
		case err, ok := <-modelErrCh:
			if !ok {
				modelErrCh = nil
				continue
			}
			if err != nil {
				return model.Response{}, fmt.Errorf("model generation failed: %w", err)
			}
		case <-ctx.Done():
			return model.Response{}, ctx.Err()
		}
	}

	if final == nil {
		return model.Response{}, fmt.Errorf("model returned no final response")
	}

	return *final, nil
}

// interpret turns the model's final answer into a response. A valid transfer
// call sets HandoffTo and wins over function calls; the function calls that
// still need executing are returned otherwise.
func (p *ModelParticipant) interpret(final model.Response, withFunctions bool) (core.Response, []model.ToolCall) {
	out := core.Response{Text: final.Text}

	var calls []model.ToolCall
	for _, call := range final.ToolCalls {
		switch {
		case call.Name == TransferToolName && p.transfer != nil:
			target, err := p.transfer.Parse(call)
			if err != nil {
				p.logger.LogWarn("Invalid transfer call", "participant", p.name, "error", err)
				continue
			}
			out.HandoffTo = target
			if out.Text == "" {
				out.Text = fmt.Sprintf("Transferring to %s.", target)
			}
			return out, nil
		case withFunctions && p.tools.Has(call.Name):
			calls = append(calls, call)
		default:
			p.logger.LogWarn("Ignoring tool call", "participant", p.name, "tool", call.Name)
		}
	}

	return out, calls
}

// toolMessages records a tool round in the working history: the assistant's
// calls followed by the results as user input.
func toolMessages(author, text string, results []tool.Result) []core.Message {
	var calls, outputs strings.Builder
	if text != "" {
		calls.WriteString(text)
		calls.WriteString("\n")
	}
	for i, r := range results {
		if i > 0 {
			outputs.WriteString("\n")
		}
		fmt.Fprintf(&calls, "Calling tool %s with %s\n", r.Call.Name, string(r.Call.Arguments))
		outputs.WriteString(r.Text())
	}

	return []core.Message{
		core.NewAssistantMessage(author, strings.TrimSuffix(calls.String(), "\n")),
		core.NewUserMessage(outputs.String()),
	}
}

// history returns the most recent messages within the history window.
func (p *ModelParticipant) history(conv core.Conversation) []core.Message {
	msgs := conv.Clone()
	if p.maxHistoryMessages > 0 && len(msgs) > p.maxHistoryMessages {
		msgs = msgs[len(msgs)-p.maxHistoryMessages:]
	}
	return msgs
}
