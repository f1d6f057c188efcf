package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Topology names accepted in a definition file.
const (
	TopologySequential = "sequential"
	TopologyConcurrent = "concurrent"
	TopologyGroupChat  = "groupchat"
	TopologyHandoff    = "handoff"
	TopologyMagentic   = "magentic"
)

// Model providers accepted in a ModelConfig.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Selector types accepted in a SelectorConfig.
const (
	SelectorRoundRobin = "round_robin"
	SelectorAgent      = "agent"
)

// File is the root of a workflow definition.
type File struct {
	Name         string              `yaml:"name"`
	Topology     string              `yaml:"topology"`
	Participants []ParticipantConfig `yaml:"participants"`
	GroupChat    *GroupChatConfig    `yaml:"groupchat,omitempty"`
	Handoff      *HandoffConfig      `yaml:"handoff,omitempty"`
	Magentic     *MagenticConfig     `yaml:"magentic,omitempty"`
	Logging      LoggingConfig       `yaml:"logging"`
}

// ParticipantConfig describes one model-backed participant.
type ParticipantConfig struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Instruction string      `yaml:"instruction"` // text/template, see participant.Instruction
	Model       ModelConfig `yaml:"model"`
	Streaming   *bool       `yaml:"streaming,omitempty"`
	MaxHistory  int         `yaml:"max_history"`
}

// ModelConfig selects and tunes a model provider.
type ModelConfig struct {
	Provider    string   `yaml:"provider"`
	Name        string   `yaml:"name"`
	Temperature *float64 `yaml:"temperature,omitempty"`
	MaxTokens   int64    `yaml:"max_tokens"`

	// Responses holds canned completions of the mock provider keyed by the
	// text of the last conversation message.
	Responses map[string]string `yaml:"responses,omitempty"`
}

// TerminationConfig builds a termination predicate. Conditions are OR-ed.
type TerminationConfig struct {
	MaxAssistantMessages int    `yaml:"max_assistant_messages"`
	LastMessageContains  string `yaml:"last_message_contains"`
}

// SelectorConfig picks the group chat speaker selection strategy.
type SelectorConfig struct {
	Type        string             `yaml:"type"`
	Participant *ParticipantConfig `yaml:"participant,omitempty"` // required for type agent
}

// GroupChatConfig holds GroupChat settings.
type GroupChatConfig struct {
	Selector    SelectorConfig     `yaml:"selector"`
	Termination *TerminationConfig `yaml:"termination,omitempty"`
	MaxRounds   int                `yaml:"max_rounds"`
}

// HandoffConfig holds Handoff settings.
type HandoffConfig struct {
	Start       string              `yaml:"start"`
	Edges       map[string][]string `yaml:"edges"`
	Autonomous  []string            `yaml:"autonomous"`
	TurnLimits  map[string]int      `yaml:"turn_limits"`
	Prompts     map[string]string   `yaml:"prompts"`
	Termination *TerminationConfig  `yaml:"termination,omitempty"`
	MaxTurns    int                 `yaml:"max_turns"`
}

// MagenticConfig holds Magentic settings.
type MagenticConfig struct {
	Manager          ParticipantConfig `yaml:"manager"`
	EnablePlanReview bool              `yaml:"enable_plan_review"`
	MaxRoundCount    int               `yaml:"max_round_count"`
	MaxStallCount    int               `yaml:"max_stall_count"`
	MaxResetCount    int               `yaml:"max_reset_count"`
}

// LoggingConfig configures the CLI logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Load reads and validates the definition at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return f, nil
}

// Parse decodes and validates a definition. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	expanded := os.ExpandEnv(string(data))

	dec := yaml.NewDecoder(strings.NewReader(expanded))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	f.setDefaults()

	if err := f.Validate(); err != nil {
		return nil, err
	}

	return &f, nil
}

func (f *File) setDefaults() {
	f.Topology = strings.ToLower(strings.TrimSpace(f.Topology))

	for i := range f.Participants {
		f.Participants[i].setDefaults()
	}

	if f.GroupChat == nil && f.Topology == TopologyGroupChat {
		f.GroupChat = &GroupChatConfig{}
	}
	if f.GroupChat != nil {
		if f.GroupChat.Selector.Type == "" {
			f.GroupChat.Selector.Type = SelectorRoundRobin
		}
		if p := f.GroupChat.Selector.Participant; p != nil {
			p.setDefaults()
		}
	}

	if f.Magentic != nil {
		f.Magentic.Manager.setDefaults()
	}

	if f.Logging.Level == "" {
		f.Logging.Level = "info"
	}
	if f.Logging.Format == "" {
		f.Logging.Format = "text"
	}
}

func (p *ParticipantConfig) setDefaults() {
	if p.Model.Provider == "" {
		p.Model.Provider = ProviderOpenAI
	}
	p.Model.Provider = strings.ToLower(p.Model.Provider)
}

// Validate checks the structural consistency of the definition. Semantic
// checks such as handoff edges referencing unknown participants are left to
// the orchestration constructors.
func (f *File) Validate() error {
	switch f.Topology {
	case TopologySequential, TopologyConcurrent, TopologyGroupChat, TopologyHandoff, TopologyMagentic:
	case "":
		return fmt.Errorf("topology is required")
	default:
		return fmt.Errorf("unknown topology %q", f.Topology)
	}

	if len(f.Participants) == 0 {
		return fmt.Errorf("at least one participant is required")
	}

	for i := range f.Participants {
		if err := f.Participants[i].validate(); err != nil {
			return fmt.Errorf("participants[%d]: %w", i, err)
		}
	}

	switch f.Topology {
	case TopologyGroupChat:
		if f.GroupChat == nil {
			return fmt.Errorf("groupchat: settings are required")
		}
		if err := f.GroupChat.validate(); err != nil {
			return fmt.Errorf("groupchat: %w", err)
		}
	case TopologyMagentic:
		if f.Magentic == nil {
			return fmt.Errorf("magentic: manager is required")
		}
		if err := f.Magentic.Manager.validate(); err != nil {
			return fmt.Errorf("magentic.manager: %w", err)
		}
	}

	if f.Handoff != nil && f.Topology != TopologyHandoff {
		return fmt.Errorf("handoff settings given for topology %s", f.Topology)
	}
	if f.GroupChat != nil && f.Topology != TopologyGroupChat {
		return fmt.Errorf("groupchat settings given for topology %s", f.Topology)
	}
	if f.Magentic != nil && f.Topology != TopologyMagentic {
		return fmt.Errorf("magentic settings given for topology %s", f.Topology)
	}

	return nil
}

func (p *ParticipantConfig) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if p.MaxHistory < 0 {
		return fmt.Errorf("max_history must not be negative")
	}

	switch p.Model.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("unknown model provider %q", p.Model.Provider)
	}

	if len(p.Model.Responses) > 0 && p.Model.Provider != ProviderMock {
		return fmt.Errorf("responses are only supported by the mock provider")
	}

	return nil
}

func (g *GroupChatConfig) validate() error {
	switch g.Selector.Type {
	case SelectorRoundRobin:
		if g.Selector.Participant != nil {
			return fmt.Errorf("round_robin selector takes no participant")
		}
	case SelectorAgent:
		if g.Selector.Participant == nil {
			return fmt.Errorf("agent selector requires a participant")
		}
		if err := g.Selector.Participant.validate(); err != nil {
			return fmt.Errorf("selector.participant: %w", err)
		}
	default:
		return fmt.Errorf("unknown selector type %q", g.Selector.Type)
	}
	return nil
}
