package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
)

// Prompt templates used by StandardManager. They are rendered with
// text/template; available fields are .task, .team (participant infos),
// .names, .plan, .feedback and .ledger.
const (
	DefaultPlanPrompt = `You are leading a team to complete this task:

{{ .task }}

Team members:
{{ range .team }}- {{ .Name }}: {{ .Description }}
{{ end }}
Write a short bullet-point plan. Name which team member handles each step.`

	DefaultRevisePrompt = `Here is the current plan:

{{ .plan }}

A human reviewer asked for the following changes:

{{ .feedback }}

Rewrite the plan incorporating the feedback. Reply with the full plan only.`

	DefaultReplanPrompt = `The team has stalled {{ .ledger.ResetCount }} time(s) on this task:

{{ .task }}

Team members: {{ join ", " .names }}

Explain briefly what went wrong so far and write a new bullet-point plan that avoids the same mistakes.`

	DefaultProgressPrompt = `Recall the task:

{{ .task }}

Team members: {{ join ", " .names }}

Answer the following questions to decide the next step, replying ONLY with JSON:

{
  "is_request_satisfied": {"reason": string, "answer": bool},
  "is_in_loop": {"reason": string, "answer": bool},
  "is_progress_being_made": {"reason": string, "answer": bool},
  "next_speaker": {"reason": string, "answer": string (one of: {{ join ", " .names }})},
  "instruction_or_question": {"reason": string, "answer": string}
}`

	DefaultFinalAnswerPrompt = `The task is complete or no more rounds are available:

{{ .task }}

Using the conversation so far, write the final answer for the user.`
)

// StandardManagerOptions configures a StandardManager.
type StandardManagerOptions struct {
	PlanPrompt        string
	RevisePrompt      string
	ReplanPrompt      string
	ProgressPrompt    string
	FinalAnswerPrompt string
}

// StandardManager implements core.Manager on top of an ordinary participant
// by rendering prompt templates and parsing its JSON progress ledger.
type StandardManager struct {
	p    core.Participant
	team []core.ParticipantInfo
	opts StandardManagerOptions
}

// NewStandardManager creates a manager that asks p to plan and coordinate
// team. team should be the worker list passed to NewMagentic.
func NewStandardManager(p core.Participant, team []core.Participant, optFns ...func(o *StandardManagerOptions)) *StandardManager {
	opts := StandardManagerOptions{
		PlanPrompt:        DefaultPlanPrompt,
		RevisePrompt:      DefaultRevisePrompt,
		ReplanPrompt:      DefaultReplanPrompt,
		ProgressPrompt:    DefaultProgressPrompt,
		FinalAnswerPrompt: DefaultFinalAnswerPrompt,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	infos := make([]core.ParticipantInfo, 0, len(team))
	for _, t := range team {
		infos = append(infos, core.InfoOf(t))
	}

	return &StandardManager{p: p, team: infos, opts: opts}
}

// Name implements core.Manager.
func (m *StandardManager) Name() string { return m.p.Name() }

// Plan implements core.Manager.
func (m *StandardManager) Plan(ctx context.Context, conv core.Conversation) (core.Message, error) {
	return m.ask(ctx, conv, m.opts.PlanPrompt, nil)
}

// Revise implements core.Manager.
func (m *StandardManager) Revise(ctx context.Context, conv core.Conversation, plan core.Message, feedback string) (core.Message, error) {
	return m.ask(ctx, conv, m.opts.RevisePrompt, map[string]any{"plan": plan.Text, "feedback": feedback})
}

// Replan implements core.Manager.
func (m *StandardManager) Replan(ctx context.Context, conv core.Conversation, ledger core.ProgressLedger) (core.Message, error) {
	return m.ask(ctx, conv, m.opts.ReplanPrompt, map[string]any{"ledger": ledger})
}

// FinalAnswer implements core.Manager.
func (m *StandardManager) FinalAnswer(ctx context.Context, conv core.Conversation) (core.Message, error) {
	return m.ask(ctx, conv, m.opts.FinalAnswerPrompt, nil)
}

// NextAction implements core.Manager. A reply that cannot be parsed counts
// as a stall.
func (m *StandardManager) NextAction(ctx context.Context, conv core.Conversation, ledger core.ProgressLedger, workers []string) (core.Decision, error) {
	msg, err := m.ask(ctx, conv, m.opts.ProgressPrompt, map[string]any{"ledger": ledger, "names": workers})
	if err != nil {
		return core.Decision{}, err
	}

	return parseProgressLedger(msg.Text), nil
}

func (m *StandardManager) ask(ctx context.Context, conv core.Conversation, tmpl string, extra map[string]any) (core.Message, error) {
	data := map[string]any{
		"task":  taskOf(conv),
		"team":  m.team,
		"names": m.names(),
	}
	for k, v := range extra {
		data[k] = v
	}

	prompt, err := util.RenderTemplate(tmpl, data)
	if err != nil {
		return core.Message{}, fmt.Errorf("render manager prompt: %w", err)
	}

	resp, err := respondText(ctx, m.p, conv.Append(core.NewUserMessage(prompt)))
	if err != nil {
		return core.Message{}, err
	}

	return core.NewAssistantMessage(m.p.Name(), strings.TrimSpace(resp.Text)), nil
}

func (m *StandardManager) names() []string {
	names := make([]string, len(m.team))
	for i, t := range m.team {
		names[i] = t.Name
	}
	return names
}

// taskOf returns the text of the first user message.
func taskOf(conv core.Conversation) string {
	for _, msg := range conv {
		if msg.Role == core.RoleUser {
			return msg.Text
		}
	}
	return ""
}

type ledgerAnswer[T any] struct {
	Reason string `json:"reason"`
	Answer T      `json:"answer"`
}

type progressLedgerReply struct {
	IsRequestSatisfied    ledgerAnswer[bool]   `json:"is_request_satisfied"`
	IsInLoop              ledgerAnswer[bool]   `json:"is_in_loop"`
	IsProgressBeingMade   ledgerAnswer[bool]   `json:"is_progress_being_made"`
	NextSpeaker           ledgerAnswer[string] `json:"next_speaker"`
	InstructionOrQuestion ledgerAnswer[string] `json:"instruction_or_question"`
}

func parseProgressLedger(text string) core.Decision {
	obj, ok := extractJSONObject(text)
	if !ok {
		return core.Decision{Kind: core.DecisionStall, Reason: "progress ledger is not JSON"}
	}

	var reply progressLedgerReply
	if err := json.Unmarshal([]byte(obj), &reply); err != nil {
		return core.Decision{Kind: core.DecisionStall, Reason: fmt.Sprintf("invalid progress ledger: %v", err)}
	}

	switch {
	case reply.IsRequestSatisfied.Answer:
		return core.Decision{Kind: core.DecisionComplete, Reason: reply.IsRequestSatisfied.Reason}
	case reply.IsInLoop.Answer:
		return core.Decision{Kind: core.DecisionStall, Reason: reply.IsInLoop.Reason}
	case !reply.IsProgressBeingMade.Answer:
		return core.Decision{Kind: core.DecisionStall, Reason: reply.IsProgressBeingMade.Reason}
	}

	return core.Decision{
		Kind:        core.DecisionDelegate,
		Worker:      strings.TrimSpace(reply.NextSpeaker.Answer),
		Instruction: strings.TrimSpace(reply.InstructionOrQuestion.Answer),
		Reason:      reply.NextSpeaker.Reason,
	}
}
