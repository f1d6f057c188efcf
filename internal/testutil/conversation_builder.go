package testutil

import (
	"github.com/hupe1980/agentweave/core"
)

// ConversationBuilder helps construct conversations with fluent chaining for tests.
// Example:
//
//	conv := NewConversationBuilder().User("hi").Assistant("bot", "hello").Build()
type ConversationBuilder struct {
	msgs []core.Message
}

// NewConversationBuilder creates an empty builder.
func NewConversationBuilder() *ConversationBuilder { return &ConversationBuilder{} }

// User appends a user message (chainable).
func (b *ConversationBuilder) User(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewUserMessage(text))
	return b
}

// System appends a system message (chainable).
func (b *ConversationBuilder) System(text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewSystemMessage(text))
	return b
}

// Assistant appends an assistant message authored by author (chainable).
func (b *ConversationBuilder) Assistant(author, text string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.NewAssistantMessage(author, text))
	return b
}

// Build returns the accumulated conversation.
func (b *ConversationBuilder) Build() core.Conversation {
	return core.Conversation(b.msgs).Clone()
}
