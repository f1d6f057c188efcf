package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/hupe1980/agentweave/core"
)

// Reply scripts one turn of a ScriptedParticipant.
type Reply struct {
	Text      string
	HandoffTo string
	Chunks    []string      // emitted as partial responses before the final one
	Delay     time.Duration // slept (context aware) before responding
	Err       error         // returned instead of a response
}

// ScriptedParticipant replays a fixed list of replies. Once the script is
// exhausted the last reply repeats. It records every conversation it was
// invoked with and is safe for concurrent use.
type ScriptedParticipant struct {
	name        string
	description string

	mu      sync.Mutex
	replies []Reply
	calls   []core.Conversation
}

// NewScriptedParticipant creates a participant answering with replies in order.
func NewScriptedParticipant(name string, replies ...Reply) *ScriptedParticipant {
	return &ScriptedParticipant{name: name, description: name + " (scripted)", replies: replies}
}

// Texts is shorthand for a participant answering with plain texts.
func Texts(name string, texts ...string) *ScriptedParticipant {
	replies := make([]Reply, len(texts))
	for i, t := range texts {
		replies[i] = Reply{Text: t}
	}
	return NewScriptedParticipant(name, replies...)
}

// Name implements core.Participant.
func (p *ScriptedParticipant) Name() string { return p.name }

// Description implements core.Participant.
func (p *ScriptedParticipant) Description() string { return p.description }

// Calls returns the conversations received so far.
func (p *ScriptedParticipant) Calls() []core.Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.Conversation, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how often Respond was invoked.
func (p *ScriptedParticipant) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func (p *ScriptedParticipant) next(conv core.Conversation) Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := len(p.calls)
	p.calls = append(p.calls, conv)
	if len(p.replies) == 0 {
		return Reply{Text: p.name}
	}
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	return p.replies[idx]
}

// Respond implements core.Participant.
func (p *ScriptedParticipant) Respond(ctx context.Context, conv core.Conversation) (<-chan core.Response, <-chan error) {
	respCh := make(chan core.Response)
	errCh := make(chan error, 1)
	reply := p.next(conv)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if reply.Delay > 0 {
			select {
			case <-time.After(reply.Delay):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if reply.Err != nil {
			errCh <- reply.Err
			return
		}
		for _, c := range reply.Chunks {
			select {
			case respCh <- core.Response{Partial: true, Text: c}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		select {
		case respCh <- core.Response{Text: reply.Text, HandoffTo: reply.HandoffTo}:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return respCh, errCh
}
