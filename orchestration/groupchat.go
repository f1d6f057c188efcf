package orchestration

import (
	"fmt"

	"github.com/hupe1980/agentweave/core"
)

// GroupChatOptions configures a GroupChat workflow.
type GroupChatOptions struct {
	Options

	// Selector picks the next speaker each round. Required.
	Selector core.SpeakerSelector

	// Termination is evaluated after every appended message.
	Termination core.TerminationCondition

	// MaxRounds caps the number of participant turns. It is checked after
	// the termination predicate and always stops the run. Defaults to
	// DefaultMaxRounds.
	MaxRounds int
}

type groupChat struct {
	byName      map[string]core.Participant
	eligible    []string
	selector    core.SpeakerSelector
	termination core.TerminationCondition
	maxRounds   int

	conv   core.Conversation
	rounds int
}

// NewGroupChat creates a GroupChat workflow. Each round the selector chooses
// one of the participants, which responds to the whole conversation. The run
// ends with Output when the selector returns an empty name, the termination
// predicate fires, or MaxRounds turns have been taken. A selection that is
// not one of the participants fails the run with core.ErrUnknownParticipant.
func NewGroupChat(participants []core.Participant, optFns ...func(o *GroupChatOptions)) (*Workflow, error) {
	opts := GroupChatOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName, names, err := indexParticipants("groupchat", participants)
	if err != nil {
		return nil, err
	}

	if opts.Selector == nil {
		return nil, core.NewConfigurationError("groupchat", nil, "a speaker selector is required")
	}

	if err := checkNonNegative("groupchat", map[string]int{"MaxRounds": opts.MaxRounds}); err != nil {
		return nil, err
	}

	if opts.MaxRounds == 0 {
		opts.MaxRounds = DefaultMaxRounds
	}

	orch := &groupChat{
		byName:      byName,
		eligible:    names,
		selector:    opts.Selector,
		termination: opts.Termination,
		maxRounds:   opts.MaxRounds,
	}

	return newWorkflow(orch, opts.Options), nil
}

func (g *groupChat) topology() string { return "groupchat" }

func (g *groupChat) start(rc *runContext, conv core.Conversation) error {
	g.conv = conv

	for {
		name, err := g.selector.SelectSpeaker(rc.ctx, g.conv.Clone(), append([]string(nil), g.eligible...))
		if err != nil {
			return fmt.Errorf("select speaker: %w", err)
		}

		if name == "" {
			rc.logger.LogDebug("Selector ended the chat", "run_id", rc.runID, "rounds", g.rounds)
			return rc.finish(g.conv, nil)
		}

		p, ok := g.byName[name]
		if !ok {
			return core.NewConfigurationError("groupchat", core.ErrUnknownParticipant, "selector chose %q", name)
		}

		msg, err := rc.turn(rc.ctx, p, g.conv, false)
		if err != nil {
			return err
		}
		g.conv = g.conv.Append(msg)
		g.rounds++

		if g.termination != nil && g.termination.ShouldTerminate(g.conv.Clone()) {
			rc.logger.LogDebug("Termination condition met", "run_id", rc.runID, "rounds", g.rounds)
			return rc.finish(g.conv, nil)
		}

		if g.rounds >= g.maxRounds {
			rc.logger.LogWarn("Round limit reached", "run_id", rc.runID, "max_rounds", g.maxRounds)
			return rc.finish(g.conv, nil)
		}
	}
}

func (g *groupChat) resume(*runContext, map[string]any) error {
	return core.NewConfigurationError("resume", core.ErrNotSuspended, "group chats never suspend")
}

func (g *groupChat) release() { g.conv = nil }
