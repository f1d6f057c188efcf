package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the conversational origin of a Message.
type Role string

const (
	// RoleUser marks human (or injected) input.
	RoleUser Role = "user"
	// RoleAssistant marks participant output.
	RoleAssistant Role = "assistant"
	// RoleSystem marks instructions injected by the orchestrator or caller.
	RoleSystem Role = "system"
)

// Message is a single immutable conversation entry. Once appended to a
// Conversation it must be treated as a value and never modified.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Author    string    `json:"author,omitempty"` // participant name; empty for user/system input
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	// HandoffTo is the optional handoff directive returned by a participant.
	// Only the Handoff topology interprets it.
	HandoffTo string `json:"handoff_to,omitempty"`
}

// NewMessage creates a fully formed message with a fresh id and UTC timestamp.
func NewMessage(role Role, author, text string) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Author:    author,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message { return NewMessage(RoleUser, "", text) }

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(text string) Message { return NewMessage(RoleSystem, "", text) }

// NewAssistantMessage creates an assistant message attributed to a participant.
func NewAssistantMessage(author, text string) Message {
	return NewMessage(RoleAssistant, author, text)
}

// NewID generates a new unique identifier for messages, requests and runs.
func NewID() string { return uuid.NewString() }

// Conversation is an ordered, append-only sequence of messages. Insertion
// order is significant.
type Conversation []Message

// Append returns a new Conversation holding the receiver's messages followed
// by msgs. The receiver's backing array is never shared with the result, so
// views previously handed out stay stable.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, 0, len(c)+len(msgs))
	out = append(out, c...)
	return append(out, msgs...)
}

// Clone returns an independent copy suitable as a read-only participant view.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return Conversation{}
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// Last returns the final message and whether one exists.
func (c Conversation) Last() (Message, bool) {
	if len(c) == 0 {
		return Message{}, false
	}
	return c[len(c)-1], true
}

// CountRole returns the number of messages with the given role.
func (c Conversation) CountRole(role Role) int {
	n := 0
	for _, m := range c {
		if m.Role == role {
			n++
		}
	}
	return n
}

// Authors returns the author of every assistant message in order.
func (c Conversation) Authors() []string {
	authors := make([]string, 0, len(c))
	for _, m := range c {
		if m.Role == RoleAssistant {
			authors = append(authors, m.Author)
		}
	}
	return authors
}
