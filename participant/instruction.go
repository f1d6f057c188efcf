package participant

import (
	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/internal/util"
)

// Provider supplies dynamic instruction text derived from the conversation.
type Provider interface {
	Instruction(conv core.Conversation) (string, error)
}

// ProviderFunc is a functional adapter to allow ordinary functions to be used as Providers.
type ProviderFunc func(conv core.Conversation) (string, error)

// Instruction implements Provider.
func (f ProviderFunc) Instruction(conv core.Conversation) (string, error) { return f(conv) }

// Instruction represents either a static instruction template or a dynamic provider.
//
// Static text may reference {{ .name }}, {{ .description }} and
// {{ .handoff_targets }}; it is rendered per turn.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(conv core.Conversation) (string, error)) Instruction {
	return Instruction{provider: ProviderFunc(f)}
}

// IsStatic returns true if the instruction is backed by static text.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider or rendering
// the template as needed.
func (i Instruction) Resolve(conv core.Conversation, data map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(conv)
	}
	return util.RenderTemplate(i.text, data)
}
