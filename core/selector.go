package core

import "context"

// SpeakerSelector chooses the next GroupChat speaker given the conversation
// so far and the eligible participant names. The returned name must be one
// of eligible; an empty name ends the chat.
type SpeakerSelector interface {
	SelectSpeaker(ctx context.Context, conv Conversation, eligible []string) (string, error)
}

// SpeakerSelectorFunc adapts a pure function to SpeakerSelector.
type SpeakerSelectorFunc func(conv Conversation, eligible []string) string

// SelectSpeaker implements SpeakerSelector.
func (f SpeakerSelectorFunc) SelectSpeaker(_ context.Context, conv Conversation, eligible []string) (string, error) {
	return f(conv, eligible), nil
}
