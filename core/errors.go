package core

import (
	"errors"
	"fmt"
)

// ErrConfiguration classifies every configuration error: bad topology,
// unknown participant, malformed resume responses. Such errors surface
// immediately; a run never starts or a resume is rejected outright.
var ErrConfiguration = errors.New("configuration error")

// Configuration error kinds. Each is wrapped by ConfigurationError so callers
// can match either the kind or ErrConfiguration.
var (
	ErrUnknownParticipant   = errors.New("unknown participant")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrInvalidResponses     = errors.New("invalid responses")
	ErrAlreadyStarted       = errors.New("run already started")
	ErrNotSuspended         = errors.New("run is not suspended")
)

// ErrStallExhaustion is the fatal Magentic failure raised when the manager
// could not make progress after repeated re-planning.
var ErrStallExhaustion = errors.New("stall exhaustion")

// ConfigurationError reports a structural inconsistency detected while
// building a workflow or validating a resume call.
type ConfigurationError struct {
	Op     string // operation that failed, e.g. "handoff", "resume"
	Kind   error  // one of the Err* kinds above, may be nil
	Reason string
}

// NewConfigurationError constructs a ConfigurationError.
func NewConfigurationError(op string, kind error, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Op: op, Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Is reports whether target is ErrConfiguration or the wrapped kind.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration || (e.Kind != nil && target == e.Kind)
}

// RoutingViolation records a rejected handoff: no edge From→To exists in the
// topology graph. It is recovered locally and never fails a run.
type RoutingViolation struct {
	From, To string
}

func (e *RoutingViolation) Error() string {
	return fmt.Sprintf("handoff from %q to %q is not permitted by the topology", e.From, e.To)
}

// StallExhaustionError is returned when the Magentic reset budget is spent.
type StallExhaustionError struct {
	Ledger ProgressLedger
}

func (e *StallExhaustionError) Error() string {
	return fmt.Sprintf("%v: manager made no progress after %d resets (rounds=%d)",
		ErrStallExhaustion, e.Ledger.ResetCount, e.Ledger.RoundCount)
}

// Unwrap exposes ErrStallExhaustion to errors.Is.
func (e *StallExhaustionError) Unwrap() error { return ErrStallExhaustion }

// ParticipantError wraps a failure raised by a participant call.
type ParticipantError struct {
	Participant string
	Err         error
}

func (e *ParticipantError) Error() string {
	return fmt.Sprintf("participant %s failed: %v", e.Participant, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParticipantError) Unwrap() error { return e.Err }
