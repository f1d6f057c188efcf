package testutil

import (
	"github.com/hupe1980/agentweave/core"
)

// Drain reads a segment's event stream to completion and returns all events
// along with the first error reported on the error channel.
func Drain(events <-chan core.Event, errs <-chan error) ([]core.Event, error) {
	var (
		out      []core.Event
		firstErr error
	)
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			out = append(out, ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return out, firstErr
}

// OutputOf returns the Output event in events, if any.
func OutputOf(events []core.Event) (core.Output, bool) {
	for _, ev := range events {
		if out, ok := ev.(core.Output); ok {
			return out, true
		}
	}
	return core.Output{}, false
}

// RequestsOf returns every RequestInfo event in events.
func RequestsOf(events []core.Event) []core.RequestInfo {
	var reqs []core.RequestInfo
	for _, ev := range events {
		if r, ok := ev.(core.RequestInfo); ok {
			reqs = append(reqs, r)
		}
	}
	return reqs
}

// Completed returns the messages of every AgentCompleted event in order.
func Completed(events []core.Event) []core.Message {
	var msgs []core.Message
	for _, ev := range events {
		if c, ok := ev.(core.AgentCompleted); ok {
			msgs = append(msgs, c.Message)
		}
	}
	return msgs
}
