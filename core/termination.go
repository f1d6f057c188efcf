package core

import "strings"

// TerminationCondition is an injected pure predicate evaluated after every
// appended message (GroupChat and Handoff). Implementations must not have
// side effects and must be safe to call repeatedly.
type TerminationCondition interface {
	ShouldTerminate(conv Conversation) bool
}

// TerminationFunc adapts an ordinary function to TerminationCondition.
type TerminationFunc func(conv Conversation) bool

// ShouldTerminate implements TerminationCondition.
func (f TerminationFunc) ShouldTerminate(conv Conversation) bool { return f(conv) }

// MaxAssistantMessages terminates once at least n assistant messages exist.
func MaxAssistantMessages(n int) TerminationCondition {
	return TerminationFunc(func(conv Conversation) bool {
		return conv.CountRole(RoleAssistant) >= n
	})
}

// LastMessageContains terminates when the last message contains substr,
// compared case-insensitively.
func LastMessageContains(substr string) TerminationCondition {
	needle := strings.ToLower(substr)
	return TerminationFunc(func(conv Conversation) bool {
		last, ok := conv.Last()
		return ok && strings.Contains(strings.ToLower(last.Text), needle)
	})
}

// AnyOf terminates when any of the given conditions does.
func AnyOf(conds ...TerminationCondition) TerminationCondition {
	return TerminationFunc(func(conv Conversation) bool {
		for _, c := range conds {
			if c != nil && c.ShouldTerminate(conv) {
				return true
			}
		}
		return false
	})
}
