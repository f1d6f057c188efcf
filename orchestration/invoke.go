package orchestration

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
)

var (
	errNoFinalResponse        = errors.New("stream ended without a final response")
	errDuplicateFinalResponse = errors.New("more than one final response")
)

// runContext is the per-segment handle through which orchestrators emit
// events and register requests.
type runContext struct {
	ctx        context.Context
	runID      string
	events     chan<- core.Event
	logger     *core.LoggerAdapter
	addPending func(req core.RequestInfo)

	count  atomic.Int64
	output atomic.Bool
}

// emit sends ev unless ctx is done. Safe for concurrent use.
func (rc *runContext) emit(ctx context.Context, ev core.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case rc.events <- ev:
		rc.count.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rc *runContext) emitted() int { return int(rc.count.Load()) }

func (rc *runContext) outputEmitted() bool { return rc.output.Load() }

// completed emits AgentCompleted for a message appended by the orchestrator
// itself (user replies, injected prompts, manager messages).
func (rc *runContext) completed(msg core.Message) error {
	participant := msg.Author
	if participant == "" {
		participant = string(msg.Role)
	}
	return rc.emit(rc.ctx, core.AgentCompleted{
		RunID:       rc.runID,
		Participant: participant,
		Message:     msg,
		Timestamp:   time.Now().UTC(),
	})
}

// request emits a RequestInfo event and records it as pending.
func (rc *runContext) request(source string, payload any) (string, error) {
	req := core.RequestInfo{
		RunID:             rc.runID,
		RequestID:         core.NewID(),
		SourceParticipant: source,
		Payload:           payload,
		Timestamp:         time.Now().UTC(),
	}
	rc.addPending(req)
	if err := rc.emit(rc.ctx, req); err != nil {
		return "", err
	}
	return req.RequestID, nil
}

// finish emits the terminal Output event.
func (rc *runContext) finish(conv core.Conversation, msg *core.Message) error {
	out := core.Output{
		RunID:     rc.runID,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
	if msg == nil {
		out.Conversation = conv.Clone()
	}
	if err := rc.emit(rc.ctx, out); err != nil {
		return err
	}
	rc.output.Store(true)
	return nil
}

// turn drives one participant turn: partial chunks are forwarded as
// AgentUpdate events keyed by a fresh message id, and the single final
// chunk becomes the returned message. AgentCompleted is emitted unless
// deferCompletion is set, in which case the caller emits it.
func (rc *runContext) turn(ctx context.Context, p core.Participant, conv core.Conversation, deferCompletion bool) (core.Message, error) {
	name := p.Name()

	ctx, span := tracer.Start(ctx, "agentweave.turn", trace.WithAttributes(
		attribute.String("agentweave.run_id", rc.runID),
		attribute.String("agentweave.participant", name),
	))
	defer span.End()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	started := time.Now()
	msgID := core.NewID()
	chunks := 0

	rc.logger.LogDebug("Participant turn started", "run_id", rc.runID, "participant", name, "message_id", msgID)

	fail := func(err error) (core.Message, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rc.logTurn(name, chunks, time.Since(started), err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctxErr := rc.ctx.Err(); ctxErr != nil {
				return core.Message{}, ctxErr
			}
		}
		return core.Message{}, &core.ParticipantError{Participant: name, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	respCh, errCh := p.Respond(ctx, conv.Clone())

	var final *core.Response
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				chunks++
				if err := rc.emit(ctx, core.AgentUpdate{
					RunID:       rc.runID,
					Participant: name,
					MessageID:   msgID,
					PartialText: resp.Text,
					Timestamp:   time.Now().UTC(),
				}); err != nil {
					return fail(err)
				}
				continue
			}
			if final != nil {
				return fail(errDuplicateFinalResponse)
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return fail(err)
			}
		case <-ctx.Done():
			return fail(ctx.Err())
		}
	}

	if final == nil {
		return fail(errNoFinalResponse)
	}

	msg := core.Message{
		ID:        msgID,
		Role:      core.RoleAssistant,
		Author:    name,
		Text:      final.Text,
		HandoffTo: final.HandoffTo,
		Timestamp: time.Now().UTC(),
	}

	if !deferCompletion {
		if err := rc.completed(msg); err != nil {
			return fail(err)
		}
	}

	rc.logTurn(name, chunks, time.Since(started), nil)
	return msg, nil
}

func (rc *runContext) logTurn(participant string, chunks int, dur time.Duration, err error) {
	if wl, ok := rc.logger.Logger().(*logging.WeaveLogger); ok {
		wl.WithRun(rc.runID).LogParticipantTurn(participant, chunks, dur, err)
		return
	}
	if err != nil {
		rc.logger.LogError("Participant turn failed", "run_id", rc.runID, "participant", participant, "error", err)
		return
	}
	rc.logger.LogDebug("Participant turn completed", "run_id", rc.runID, "participant", participant,
		"chunks", chunks, "duration", dur)
}

// respondText collects the final response of p without emitting events. It
// backs participants used for orchestration decisions (speaker selection,
// standard manager) rather than conversation turns.
func respondText(ctx context.Context, p core.Participant, conv core.Conversation) (core.Response, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	respCh, errCh := p.Respond(ctx, conv.Clone())

	var (
		final core.Response
		found bool
		fail  error
	)
	setErr := func(err error) {
		if fail == nil {
			fail = err
		}
	}

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !resp.Partial {
				final, found = resp, true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				setErr(err)
				cancel()
			}
		case <-ctx.Done():
			setErr(ctx.Err())
			respCh, errCh = nil, nil
		}
	}

	if fail != nil {
		return core.Response{}, &core.ParticipantError{Participant: p.Name(), Err: fail}
	}
	if !found {
		return core.Response{}, &core.ParticipantError{Participant: p.Name(), Err: errNoFinalResponse}
	}
	return final, nil
}
