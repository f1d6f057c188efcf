package core

import "context"

// Participant is the opaque responder driven by every orchestrator.
//
// Orchestrators never inspect what a participant does internally; they only
// invoke Respond with a read-only view of the conversation and append the
// message it produces. Implementations must:
//   - Respect context cancellation
//   - Emit zero or more partial Responses followed by exactly one final one
//   - Close both channels when done (error channel carries at most one error)
//   - Be safe for concurrent calls (the Concurrent topology fans out)
type Participant interface {
	Name() string
	Description() string
	Respond(ctx context.Context, conv Conversation) (<-chan Response, <-chan error)
}

// Response is a (partial or final) chunk produced by a participant turn.
// Partial chunks carry a text delta; the final chunk carries the complete
// text and optional directives. Message ids, authorship and timestamps are
// assigned by the orchestrator.
type Response struct {
	Partial   bool   `json:"partial"`
	Text      string `json:"text"`
	HandoffTo string `json:"handoff_to,omitempty"`
}

// ParticipantInfo describes a participant in requests and logs.
type ParticipantInfo struct{ Name, Description string }

// InfoOf extracts the identifying details of a participant.
func InfoOf(p Participant) ParticipantInfo {
	return ParticipantInfo{Name: p.Name(), Description: p.Description()}
}
