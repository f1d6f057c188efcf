package config

import (
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentweave/core"
	"github.com/hupe1980/agentweave/logging"
	"github.com/hupe1980/agentweave/model"
	anthropicmodel "github.com/hupe1980/agentweave/model/anthropic"
	openaimodel "github.com/hupe1980/agentweave/model/openai"
	"github.com/hupe1980/agentweave/orchestration"
	"github.com/hupe1980/agentweave/participant"
)

// ModelFactory creates the model backing a participant.
type ModelFactory func(cfg ModelConfig) (model.Model, error)

// BuildOptions configures File.Build.
type BuildOptions struct {
	// Logger is handed to the workflow and every participant.
	Logger logging.Logger

	// RunID overrides the generated run id.
	RunID string

	// ModelFactory defaults to NewModel.
	ModelFactory ModelFactory
}

// NewModel creates a model for cfg. Provider credentials are read from the
// environment by the respective SDK (OPENAI_API_KEY, ANTHROPIC_API_KEY).
func NewModel(cfg ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
		}), nil
	case ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			if cfg.Temperature != nil {
				o.Temperature = *cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = cfg.MaxTokens
			}
		}), nil
	case ProviderMock:
		name := cfg.Name
		if name == "" {
			name = "mock"
		}
		m := model.NewMockModel(name, ProviderMock)
		for prompt, reply := range cfg.Responses {
			m.AddResponse(prompt, reply)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// Build creates the workflow described by f.
func (f *File) Build(optFns ...func(o *BuildOptions)) (*orchestration.Workflow, error) {
	opts := BuildOptions{
		Logger:       logging.NoOpLogger{},
		ModelFactory: NewModel,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	b := &builder{opts: opts}

	base := orchestration.Options{Logger: opts.Logger, RunID: opts.RunID}

	switch f.Topology {
	case TopologySequential:
		ps, err := b.participants(f.Participants, nil)
		if err != nil {
			return nil, err
		}
		return orchestration.NewSequential(ps, func(o *orchestration.SequentialOptions) { o.Options = base })

	case TopologyConcurrent:
		ps, err := b.participants(f.Participants, nil)
		if err != nil {
			return nil, err
		}
		return orchestration.NewConcurrent(ps, func(o *orchestration.ConcurrentOptions) { o.Options = base })

	case TopologyGroupChat:
		return b.groupChat(f, base)

	case TopologyHandoff:
		return b.handoff(f, base)

	case TopologyMagentic:
		return b.magentic(f, base)

	default:
		return nil, fmt.Errorf("unknown topology %q", f.Topology)
	}
}

type builder struct {
	opts BuildOptions
}

func (b *builder) participant(pc ParticipantConfig, targets []string) (*participant.ModelParticipant, error) {
	llm, err := b.opts.ModelFactory(pc.Model)
	if err != nil {
		return nil, fmt.Errorf("participant %s: %w", pc.Name, err)
	}

	return participant.NewModelParticipant(pc.Name, llm, func(o *participant.ModelParticipantOptions) {
		o.Description = pc.Description
		o.Logger = b.opts.Logger
		o.HandoffTargets = targets
		if pc.Instruction != "" {
			o.Instruction = participant.NewInstructionFromText(pc.Instruction)
		}
		if pc.Streaming != nil {
			o.EnableStreaming = *pc.Streaming
		}
		if pc.MaxHistory > 0 {
			o.MaxHistoryMessages = pc.MaxHistory
		}
	}), nil
}

// participants builds every entry of pcs; targets, when non-nil, yields the
// handoff targets of a participant.
func (b *builder) participants(pcs []ParticipantConfig, targets func(name string) []string) ([]core.Participant, error) {
	out := make([]core.Participant, 0, len(pcs))
	for _, pc := range pcs {
		var t []string
		if targets != nil {
			t = targets(pc.Name)
		}
		p, err := b.participant(pc, t)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (b *builder) groupChat(f *File, base orchestration.Options) (*orchestration.Workflow, error) {
	ps, err := b.participants(f.Participants, nil)
	if err != nil {
		return nil, err
	}

	cfg := f.GroupChat

	var selector core.SpeakerSelector
	switch cfg.Selector.Type {
	case SelectorAgent:
		sp, err := b.participant(*cfg.Selector.Participant, nil)
		if err != nil {
			return nil, err
		}
		selector = orchestration.NewAgentSelector(sp)
	default:
		selector = orchestration.RoundRobinSelector()
	}

	return orchestration.NewGroupChat(ps, func(o *orchestration.GroupChatOptions) {
		o.Options = base
		o.Selector = selector
		o.Termination = cfg.Termination.condition()
		o.MaxRounds = cfg.MaxRounds
	})
}

func (b *builder) handoff(f *File, base orchestration.Options) (*orchestration.Workflow, error) {
	cfg := f.Handoff
	if cfg == nil {
		cfg = &HandoffConfig{}
	}

	graph := orchestration.NewHandoffGraph()
	for from, to := range cfg.Edges {
		graph.Add(from, to...)
	}

	ps, err := b.participants(f.Participants, graph.Targets)
	if err != nil {
		return nil, err
	}

	return orchestration.NewHandoff(ps, func(o *orchestration.HandoffOptions) {
		o.Options = base
		o.Graph = graph
		o.Start = cfg.Start
		o.Autonomous = cfg.Autonomous
		o.TurnLimits = cfg.TurnLimits
		o.Prompts = cfg.Prompts
		o.Termination = cfg.Termination.condition()
		o.MaxTurns = cfg.MaxTurns
	})
}

func (b *builder) magentic(f *File, base orchestration.Options) (*orchestration.Workflow, error) {
	workers, err := b.participants(f.Participants, nil)
	if err != nil {
		return nil, err
	}

	cfg := f.Magentic

	mp, err := b.participant(cfg.Manager, nil)
	if err != nil {
		return nil, err
	}

	manager := orchestration.NewStandardManager(mp, workers)

	return orchestration.NewMagentic(workers, func(o *orchestration.MagenticOptions) {
		o.Options = base
		o.Manager = manager
		o.EnablePlanReview = cfg.EnablePlanReview
		o.MaxRoundCount = cfg.MaxRoundCount
		o.MaxStallCount = cfg.MaxStallCount
		o.MaxResetCount = cfg.MaxResetCount
	})
}

func (t *TerminationConfig) condition() core.TerminationCondition {
	if t == nil {
		return nil
	}

	var conds []core.TerminationCondition
	if t.MaxAssistantMessages > 0 {
		conds = append(conds, core.MaxAssistantMessages(t.MaxAssistantMessages))
	}
	if t.LastMessageContains != "" {
		conds = append(conds, core.LastMessageContains(t.LastMessageContains))
	}

	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	default:
		return core.AnyOf(conds...)
	}
}
