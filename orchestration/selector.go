package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/agentweave/core"
)

// RoundRobinSelector cycles through the eligible participants in declaration
// order. It derives the position from the number of assistant messages
// written by eligible participants, so it holds no state of its own.
func RoundRobinSelector() core.SpeakerSelector {
	return core.SpeakerSelectorFunc(func(conv core.Conversation, eligible []string) string {
		if len(eligible) == 0 {
			return ""
		}
		known := make(map[string]struct{}, len(eligible))
		for _, n := range eligible {
			known[n] = struct{}{}
		}
		turns := 0
		for _, a := range conv.Authors() {
			if _, ok := known[a]; ok {
				turns++
			}
		}
		return eligible[turns%len(eligible)]
	})
}

// agentSelector asks a participant to choose the next speaker.
type agentSelector struct {
	p core.Participant
}

// NewAgentSelector turns a participant into a speaker selector. The
// participant sees the conversation followed by a system message listing
// the eligible participants and is expected to answer with
//
//	{"next_speaker": "<name>", "finish": false}
//
// or with a bare participant name. A reply with finish set, or an empty
// name, ends the chat.
func NewAgentSelector(p core.Participant) core.SpeakerSelector {
	return &agentSelector{p: p}
}

type selection struct {
	NextSpeaker string `json:"next_speaker"`
	Finish      bool   `json:"finish"`
}

func (s *agentSelector) SelectSpeaker(ctx context.Context, conv core.Conversation, eligible []string) (string, error) {
	prompt := core.NewSystemMessage(fmt.Sprintf(
		"Choose who speaks next. Participants: %s.\n"+
			`Reply with JSON {"next_speaker": "<name>", "finish": <bool>}. Set finish to true once the task is complete.`,
		strings.Join(eligible, ", ")))

	resp, err := respondText(ctx, s.p, conv.Append(prompt))
	if err != nil {
		return "", err
	}

	return parseSelection(resp.Text, eligible), nil
}

func parseSelection(text string, eligible []string) string {
	raw := strings.TrimSpace(text)

	if obj, ok := extractJSONObject(raw); ok {
		var sel selection
		if err := json.Unmarshal([]byte(obj), &sel); err == nil {
			if sel.Finish {
				return ""
			}
			return matchName(strings.TrimSpace(sel.NextSpeaker), eligible)
		}
	}

	return matchName(strings.Trim(raw, "\"'`. \n"), eligible)
}

// matchName maps name case-insensitively onto an eligible participant. An
// unmatched name is returned as is so the caller reports it.
func matchName(name string, eligible []string) string {
	for _, e := range eligible {
		if strings.EqualFold(e, name) {
			return e
		}
	}
	return name
}

// extractJSONObject returns the outermost {...} span of text, tolerating
// surrounding prose or code fences.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
