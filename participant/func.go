package participant

import (
	"context"

	"github.com/hupe1980/agentweave/core"
)

// RespondFunc produces the final text of a turn.
type RespondFunc func(ctx context.Context, conv core.Conversation) (string, error)

// StreamFunc produces a turn incrementally. Every call to emit forwards a
// partial chunk; the returned response becomes the final chunk.
type StreamFunc func(ctx context.Context, conv core.Conversation, emit func(delta string) error) (core.Response, error)

type funcParticipant struct {
	name        string
	description string
	fn          StreamFunc
}

// Func creates a participant answering each turn with the text returned by fn.
func Func(name, description string, fn RespondFunc) core.Participant {
	return Stream(name, description, func(ctx context.Context, conv core.Conversation, _ func(string) error) (core.Response, error) {
		text, err := fn(ctx, conv)
		return core.Response{Text: text}, err
	})
}

// Stream creates a participant whose turns may emit partial chunks.
func Stream(name, description string, fn StreamFunc) core.Participant {
	return &funcParticipant{name: name, description: description, fn: fn}
}

func (p *funcParticipant) Name() string        { return p.name }
func (p *funcParticipant) Description() string { return p.description }

func (p *funcParticipant) Respond(ctx context.Context, conv core.Conversation) (<-chan core.Response, <-chan error) {
	respCh := make(chan core.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		emit := func(delta string) error {
			select {
			case respCh <- core.Response{Partial: true, Text: delta}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		resp, err := p.fn(ctx, conv, emit)
		if err != nil {
			errCh <- err
			return
		}

		resp.Partial = false
		select {
		case respCh <- resp:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return respCh, errCh
}
