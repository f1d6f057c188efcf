package orchestration

import (
	"github.com/hupe1980/agentweave/core"
)

// SequentialOptions configures a Sequential workflow.
type SequentialOptions struct {
	Options
}

// sequential runs participants as a pipeline. Each participant sees the full
// conversation accumulated so far.
type sequential struct {
	participants []core.Participant
	conv         core.Conversation
	index        int
}

// NewSequential creates a Sequential workflow over participants in
// declaration order. The Output event carries the initial conversation
// followed by one message per participant, in order.
func NewSequential(participants []core.Participant, optFns ...func(o *SequentialOptions)) (*Workflow, error) {
	opts := SequentialOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if _, _, err := indexParticipants("sequential", participants); err != nil {
		return nil, err
	}

	orch := &sequential{participants: append([]core.Participant(nil), participants...)}

	return newWorkflow(orch, opts.Options), nil
}

func (s *sequential) topology() string { return "sequential" }

func (s *sequential) start(rc *runContext, conv core.Conversation) error {
	s.conv = conv

	for s.index < len(s.participants) {
		msg, err := rc.turn(rc.ctx, s.participants[s.index], s.conv, false)
		if err != nil {
			return err
		}
		s.conv = s.conv.Append(msg)
		s.index++
	}

	return rc.finish(s.conv, nil)
}

func (s *sequential) resume(*runContext, map[string]any) error {
	return core.NewConfigurationError("resume", core.ErrNotSuspended, "sequential runs never suspend")
}

func (s *sequential) release() { s.conv = nil }
