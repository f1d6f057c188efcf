package orchestration

import (
	"github.com/hupe1980/agentweave/core"
)

// HandoffOptions configures a Handoff workflow.
type HandoffOptions struct {
	Options

	// Graph declares the permitted handoffs. A nil graph permits none.
	Graph *HandoffGraph

	// Start names the participant receiving the initial input. Defaults to
	// the first participant.
	Start string

	// Autonomous lists participants that keep working without user input
	// instead of suspending.
	Autonomous []string

	// TurnLimits caps consecutive self-driven turns of an autonomous
	// participant before Prompts[name] is injected. Defaults to DefaultMaxTurns.
	TurnLimits map[string]int

	// Prompts holds the user message injected when an autonomous participant
	// reaches its turn limit. Defaults to DefaultAutonomousPrompt.
	Prompts map[string]string

	// Termination is evaluated after every appended message, assistant or user.
	Termination core.TerminationCondition

	// MaxTurns caps participant turns for the whole run. It is checked after
	// the termination predicate. Defaults to DefaultMaxTurns.
	MaxTurns int
}

type handoff struct {
	byName      map[string]core.Participant
	graph       *HandoffGraph
	autonomous  map[string]bool
	turnLimits  map[string]int
	prompts     map[string]string
	termination core.TerminationCondition
	maxTurns    int

	active      string
	conv        core.Conversation
	turns       int
	consecutive int
}

// NewHandoff creates a Handoff workflow.
//
// The start participant answers the initial input. Whenever the active
// participant's response names a HandoffTo target reachable through an edge
// of the graph, control moves there and the target responds immediately. A
// target without an edge is a routing violation: it is logged and the
// response is treated as if no handoff had been requested.
//
// A response without a (legal) handoff awaits the user:
//   - interactive participants emit RequestInfo(core.UserInputRequest) and
//     suspend; Resume appends the reply as a user message and the same
//     participant continues
//   - autonomous participants are invoked again; after TurnLimits[name]
//     consecutive turns, Prompts[name] is appended as a user message instead
//
// The termination predicate runs after every appended message, followed by
// the MaxTurns check; either produces a normal Output.
func NewHandoff(participants []core.Participant, optFns ...func(o *HandoffOptions)) (*Workflow, error) {
	opts := HandoffOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName, names, err := indexParticipants("handoff", participants)
	if err != nil {
		return nil, err
	}

	graph := opts.Graph.clone()
	if err := graph.Validate(names); err != nil {
		return nil, err
	}

	if opts.Start == "" {
		opts.Start = names[0]
	}
	if _, ok := byName[opts.Start]; !ok {
		return nil, core.NewConfigurationError("handoff", core.ErrUnknownParticipant, "start participant %q", opts.Start)
	}

	if err := checkNonNegative("handoff", map[string]int{"MaxTurns": opts.MaxTurns}); err != nil {
		return nil, err
	}
	if opts.MaxTurns == 0 {
		opts.MaxTurns = DefaultMaxTurns
	}

	autonomous := make(map[string]bool, len(opts.Autonomous))
	for _, name := range opts.Autonomous {
		if _, ok := byName[name]; !ok {
			return nil, core.NewConfigurationError("handoff", core.ErrUnknownParticipant, "autonomous participant %q", name)
		}
		autonomous[name] = true
	}

	turnLimits := make(map[string]int, len(opts.TurnLimits))
	for name, limit := range opts.TurnLimits {
		if _, ok := byName[name]; !ok {
			return nil, core.NewConfigurationError("handoff", core.ErrUnknownParticipant, "turn limit for %q", name)
		}
		if limit < 0 {
			return nil, core.NewConfigurationError("handoff", nil, "turn limit for %q must not be negative (got %d)", name, limit)
		}
		turnLimits[name] = limit
	}

	prompts := make(map[string]string, len(opts.Prompts))
	for name, prompt := range opts.Prompts {
		if _, ok := byName[name]; !ok {
			return nil, core.NewConfigurationError("handoff", core.ErrUnknownParticipant, "prompt for %q", name)
		}
		prompts[name] = prompt
	}

	orch := &handoff{
		byName:      byName,
		graph:       graph,
		autonomous:  autonomous,
		turnLimits:  turnLimits,
		prompts:     prompts,
		termination: opts.Termination,
		maxTurns:    opts.MaxTurns,
		active:      opts.Start,
	}

	return newWorkflow(orch, opts.Options), nil
}

func (h *handoff) topology() string { return "handoff" }

func (h *handoff) start(rc *runContext, conv core.Conversation) error {
	h.conv = conv
	return h.run(rc)
}

func (h *handoff) resume(rc *runContext, responses map[string]any) error {
	var reply core.UserInput
	for _, v := range responses {
		input, ok := v.(core.UserInput)
		if !ok {
			return core.NewConfigurationError("resume", core.ErrInvalidResponses, "handoff expects user input, got %T", v)
		}
		reply = input
	}

	done, err := h.appendUser(rc, reply.Text)
	if err != nil || done {
		return err
	}

	return h.run(rc)
}

// run invokes the active participant until the run suspends or ends.
func (h *handoff) run(rc *runContext) error {
	for {
		p := h.byName[h.active]

		msg, err := rc.turn(rc.ctx, p, h.conv, false)
		if err != nil {
			return err
		}
		h.conv = h.conv.Append(msg)
		h.turns++
		h.consecutive++

		if done, err := h.checkTermination(rc); err != nil || done {
			return err
		}

		if target, ok := h.route(rc, msg); ok {
			rc.logger.LogDebug("Handoff", "run_id", rc.runID, "from", h.active, "to", target)
			h.active = target
			h.consecutive = 0
			continue
		}

		if !h.autonomous[h.active] {
			_, err := rc.request(h.active, core.UserInputRequest{
				Participant:  h.active,
				Conversation: h.conv.Clone(),
			})
			return err
		}

		if h.consecutive >= h.turnLimit(h.active) {
			rc.logger.LogDebug("Autonomous turn limit reached", "run_id", rc.runID,
				"participant", h.active, "turns", h.consecutive)
			done, err := h.appendUser(rc, h.prompt(h.active))
			if err != nil || done {
				return err
			}
		}
	}
}

// route resolves the handoff directive of msg. Illegal targets are logged
// as routing violations and ignored.
func (h *handoff) route(rc *runContext, msg core.Message) (string, bool) {
	target := msg.HandoffTo
	if target == "" || target == h.active {
		return "", false
	}
	if _, known := h.byName[target]; known && h.graph.Allowed(h.active, target) {
		return target, true
	}

	violation := &core.RoutingViolation{From: h.active, To: target}
	rc.logger.LogWarn("Handoff rejected", "run_id", rc.runID, "error", violation.Error(),
		"allowed", h.graph.Targets(h.active))
	return "", false
}

// appendUser appends a user message, resets the self-driven turn counter and
// evaluates termination.
func (h *handoff) appendUser(rc *runContext, text string) (bool, error) {
	msg := core.NewUserMessage(text)
	if err := rc.completed(msg); err != nil {
		return false, err
	}
	h.conv = h.conv.Append(msg)
	h.consecutive = 0

	return h.checkTermination(rc)
}

// checkTermination evaluates the predicate and then the turn cap, emitting
// Output when either fires.
func (h *handoff) checkTermination(rc *runContext) (bool, error) {
	if h.termination != nil && h.termination.ShouldTerminate(h.conv.Clone()) {
		rc.logger.LogDebug("Termination condition met", "run_id", rc.runID, "turns", h.turns)
		return true, rc.finish(h.conv, nil)
	}
	if h.turns >= h.maxTurns {
		rc.logger.LogWarn("Turn limit reached", "run_id", rc.runID, "max_turns", h.maxTurns)
		return true, rc.finish(h.conv, nil)
	}
	return false, nil
}

func (h *handoff) turnLimit(name string) int {
	if limit, ok := h.turnLimits[name]; ok && limit > 0 {
		return limit
	}
	return DefaultMaxTurns
}

func (h *handoff) prompt(name string) string {
	if p, ok := h.prompts[name]; ok && p != "" {
		return p
	}
	return DefaultAutonomousPrompt
}

func (h *handoff) release() { h.conv = nil }

