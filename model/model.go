package model

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentweave/core"
)

// ToolCall represents a function call request surfaced by a model provider.
// Unified across vendors so downstream logic does not need per-provider branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"` // JSON encoded arguments
}

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by participants.
//
// Participant names the speaker the model answers for. When set, adapters
// present assistant messages authored by other participants as attributed
// user input (see Transcript).
type Request struct {
	Participant  string           `json:"participant,omitempty"`
	Instructions string           `json:"instructions"`
	Messages     []core.Message   `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// Transcript returns the request messages as seen by the requesting
// participant. Assistant messages written by someone else become user
// messages prefixed with their author, so vendors that only know one
// assistant still see who said what. Without a Participant the messages are
// returned unchanged.
func (r Request) Transcript() []core.Message {
	if r.Participant == "" {
		return r.Messages
	}

	out := make([]core.Message, len(r.Messages))
	for i, msg := range r.Messages {
		if msg.Role == core.RoleAssistant && msg.Author != "" && msg.Author != r.Participant && msg.Text != "" {
			msg.Role = core.RoleUser
			msg.Text = fmt.Sprintf("[%s]: %s", msg.Author, msg.Text)
		}
		out[i] = msg
	}
	return out
}

// Emit sends resp on out unless ctx is done first. It reports whether the
// response was delivered.
func Emit(ctx context.Context, out chan<- Response, resp Response) bool {
	select {
	case out <- resp:
		return true
	case <-ctx.Done():
		return false
	}
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
// Partial chunks carry a text delta; the final chunk carries the full text
// and any tool calls.
type Response struct {
	Partial      bool        `json:"partial"`
	Text         string      `json:"text"`
	ToolCalls    []ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by participants to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Canned completions are keyed by the text of the last request message;
// tool calls can be attached to a canned completion.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	toolCalls map[string][]ToolCall
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
		toolCalls: make(map[string][]ToolCall),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// AddToolCall attaches a tool call to the completion returned for prompt.
func (m *MockModel) AddToolCall(prompt string, call ToolCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.toolCalls[prompt] = append(m.toolCalls[prompt], call)
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model; emits optional streaming word chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		inputText := req.Messages[len(req.Messages)-1].Text

		m.mu.Lock()
		full := m.responses[inputText]
		calls := append([]ToolCall(nil), m.toolCalls[inputText]...)
		m.mu.Unlock()

		if full == "" && len(calls) == 0 {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		if req.Stream && full != "" {
			words := strings.SplitAfter(full, " ")
			for _, w := range words {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: w}:
				}
			}
		}
		finish := "stop"
		if len(calls) > 0 {
			finish = "tool_calls"
		}
		if !Emit(ctx, respCh, Response{Text: full, ToolCalls: calls, FinishReason: finish}) {
			errCh <- ctx.Err()
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
