package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/agentweave/core"
)

// renderer prints an event stream as a readable transcript. Streamed turns
// are printed as their fragments arrive; non-streamed turns on completion.
type renderer struct {
	out       io.Writer
	streaming string // message id of the turn currently being streamed
}

func newRenderer(out io.Writer) *renderer { return &renderer{out: out} }

func (r *renderer) render(ev core.Event) {
	switch e := ev.(type) {
	case core.AgentUpdate:
		if r.streaming != e.MessageID {
			r.endStream()
			r.streaming = e.MessageID
			fmt.Fprintf(r.out, "[%s] ", e.Participant)
		}
		fmt.Fprint(r.out, e.PartialText)

	case core.AgentCompleted:
		if r.streaming == e.Message.ID {
			r.endStream()
			return
		}
		r.endStream()
		fmt.Fprintf(r.out, "[%s] %s\n", e.Participant, e.Message.Text)

	case core.RequestInfo:
		r.endStream()

	case core.Output:
		r.endStream()
		fmt.Fprintln(r.out, "=== Output ===")
		if e.Message != nil {
			fmt.Fprintln(r.out, e.Message.Text)
			return
		}
		for _, msg := range e.Conversation {
			fmt.Fprintf(r.out, "%s: %s\n", speaker(msg), msg.Text)
		}
	}
}

func (r *renderer) endStream() {
	if r.streaming != "" {
		fmt.Fprintln(r.out)
		r.streaming = ""
	}
}

func speaker(msg core.Message) string {
	if msg.Author != "" {
		return msg.Author
	}
	return string(msg.Role)
}

// answer collects a response for every pending request from in.
func answer(reqs []core.RequestInfo, in *bufio.Reader, out io.Writer) (map[string]any, error) {
	responses := make(map[string]any, len(reqs))

	for _, req := range reqs {
		switch payload := req.Payload.(type) {
		case core.UserInputRequest:
			text, err := prompt(in, out, fmt.Sprintf("You (to %s)> ", payload.Participant))
			if err != nil {
				return nil, err
			}
			responses[req.RequestID] = core.NewUserInput(text)

		case core.PlanReviewRequest:
			fmt.Fprintf(out, "=== Proposed plan ===\n%s\n", payload.Plan)
			text, err := prompt(in, out, "Press Enter to approve or type feedback> ")
			if err != nil {
				return nil, err
			}
			if text == "" {
				responses[req.RequestID] = payload.Approve()
			} else {
				responses[req.RequestID] = payload.Revise(text)
			}

		default:
			return nil, fmt.Errorf("unsupported request %s from %s (%T)", req.RequestID, req.SourceParticipant, req.Payload)
		}
	}

	return responses, nil
}

// prompt writes label and reads one trimmed line. The last line of the input
// may lack a newline.
func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)

	line, err := in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return strings.TrimSpace(line), nil
}
