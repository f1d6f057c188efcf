package core

import "time"

// Event is a record emitted on a run's output stream. Concrete event types
// implement the unexported isEvent marker, making the set closed:
// AgentUpdate, AgentCompleted, RequestInfo and Output.
//
// Ordering contract: for a given message id the stream carries zero or more
// AgentUpdate events followed by exactly one AgentCompleted. A successful run
// ends with exactly one Output event. Failed runs emit no Output; the failure
// is delivered on the run's error channel instead.
type Event interface {
	isEvent()
	// Run returns the id of the run that produced the event.
	Run() string
}

// AgentUpdate carries an incremental text fragment of an in-flight turn.
type AgentUpdate struct {
	RunID       string    `json:"run_id"`
	Participant string    `json:"participant"`
	MessageID   string    `json:"message_id"`
	PartialText string    `json:"partial_text"`
	Timestamp   time.Time `json:"timestamp"`
}

func (AgentUpdate) isEvent() {}

// Run implements Event.
func (e AgentUpdate) Run() string { return e.RunID }

// AgentCompleted carries the fully formed message of a finished turn.
type AgentCompleted struct {
	RunID       string    `json:"run_id"`
	Participant string    `json:"participant"`
	Message     Message   `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

func (AgentCompleted) isEvent() {}

// Run implements Event.
func (e AgentCompleted) Run() string { return e.RunID }

// RequestInfo pauses the run until a response for RequestID is supplied via
// resume. Payload is one of the request types in this package
// (UserInputRequest, PlanReviewRequest).
type RequestInfo struct {
	RunID             string    `json:"run_id"`
	RequestID         string    `json:"request_id"`
	SourceParticipant string    `json:"source_participant"`
	Payload           any       `json:"payload"`
	Timestamp         time.Time `json:"timestamp"`
}

func (RequestInfo) isEvent() {}

// Run implements Event.
func (e RequestInfo) Run() string { return e.RunID }

// Output terminates a successful run. Conversation is set by the Sequential,
// Concurrent, GroupChat and Handoff topologies; Message is set by Magentic,
// whose output is only the final synthesized answer.
type Output struct {
	RunID        string       `json:"run_id"`
	Conversation Conversation `json:"conversation,omitempty"`
	Message      *Message     `json:"message,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

func (Output) isEvent() {}

// Run implements Event.
func (e Output) Run() string { return e.RunID }

// FoldConversation reconstructs a conversation by appending the message of
// every AgentCompleted event, in stream order, to initial.
func FoldConversation(initial Conversation, events []Event) Conversation {
	conv := initial.Clone()
	for _, ev := range events {
		if done, ok := ev.(AgentCompleted); ok {
			conv = append(conv, done.Message)
		}
	}
	return conv
}
