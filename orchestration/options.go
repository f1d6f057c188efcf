package orchestration

import (
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
)

// Default limits applied when the corresponding option is left at zero.
const (
	DefaultEventBufferSize = 100
	DefaultMaxRounds       = 40
	DefaultMaxTurns        = 50
	DefaultMaxRoundCount   = 20
	DefaultMaxStallCount   = 3
	DefaultMaxResetCount   = 2

	// DefaultAutonomousPrompt is appended as a user message when an
	// autonomous Handoff participant reaches its turn limit.
	DefaultAutonomousPrompt = "User did not respond. Continue assisting autonomously."
)

// Options holds the settings shared by every topology. Each topology's
// options struct embeds it.
type Options struct {
	// Logger receives structured run diagnostics. Defaults to logging.NoOpLogger.
	Logger logging.Logger

	// EventBufferSize is the capacity of each segment's event channel.
	// Defaults to DefaultEventBufferSize.
	EventBufferSize int

	// RunID overrides the generated run identifier.
	RunID string
}

func (o *Options) normalize() {
	if o.Logger == nil {
		o.Logger = logging.NoOpLogger{}
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = DefaultEventBufferSize
	}
	if o.RunID == "" {
		o.RunID = core.NewID()
	}
}

// indexParticipants validates a participant list: at least one entry,
// non-nil values, non-empty unique names. It returns the lookup table and the
// names in declaration order.
func indexParticipants(op string, participants []core.Participant) (map[string]core.Participant, []string, error) {
	if len(participants) == 0 {
		return nil, nil, core.NewConfigurationError(op, nil, "at least one participant is required")
	}

	byName := make(map[string]core.Participant, len(participants))
	names := make([]string, 0, len(participants))

	for i, p := range participants {
		if p == nil {
			return nil, nil, core.NewConfigurationError(op, nil, "participant at index %d is nil", i)
		}
		name := p.Name()
		if name == "" {
			return nil, nil, core.NewConfigurationError(op, nil, "participant at index %d has an empty name", i)
		}
		if _, dup := byName[name]; dup {
			return nil, nil, core.NewConfigurationError(op, core.ErrDuplicateParticipant, "%q", name)
		}
		byName[name] = p
		names = append(names, name)
	}

	return byName, names, nil
}

func checkNonNegative(op string, limits map[string]int) error {
	for name, v := range limits {
		if v < 0 {
			return core.NewConfigurationError(op, nil, "%s must not be negative (got %d)", name, v)
		}
	}
	return nil
}
