package orchestration

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentweave/core"
)

// MagenticOptions configures a Magentic workflow.
type MagenticOptions struct {
	Options

	// Manager plans and delegates. Required.
	Manager core.Manager

	// EnablePlanReview suspends the run with RequestInfo(core.PlanReviewRequest)
	// before any initial, revised or re-planned plan takes effect.
	EnablePlanReview bool

	// MaxRoundCount caps delegated worker turns; once reached the manager is
	// asked for its final answer. Defaults to DefaultMaxRoundCount.
	MaxRoundCount int

	// MaxStallCount is the number of consecutive stalls that trigger a
	// re-plan. Defaults to DefaultMaxStallCount.
	MaxStallCount int

	// MaxResetCount is the number of re-plans tolerated; exceeding it fails
	// the run with core.StallExhaustionError. Defaults to DefaultMaxResetCount.
	MaxResetCount int
}

type magentic struct {
	manager       core.Manager
	byName        map[string]core.Participant
	workers       []string
	review        bool
	maxRoundCount int
	maxStallCount int
	maxResetCount int

	conv     core.Conversation
	proposed core.Message
	mu       sync.Mutex // guards ledger
	ledger   core.ProgressLedger
}

// NewMagentic creates a Magentic workflow where manager coordinates workers.
//
// Each round the manager inspects the conversation and the progress ledger
// and either delegates to a worker, reports a stall or declares the task
// complete:
//   - a delegation to a known worker appends the manager's instruction (if
//     any), runs the worker turn, increments RoundCount and clears StallCount
//   - a stall, or a delegation to an unknown worker, increments StallCount;
//     reaching MaxStallCount increments ResetCount, clears StallCount and
//     asks the manager to re-plan; exceeding MaxResetCount fails the run
//   - completion, or reaching MaxRoundCount, emits the manager's final answer
//
// Unlike the other topologies the Output event carries only the final
// message, not the transcript.
func NewMagentic(workers []core.Participant, optFns ...func(o *MagenticOptions)) (*Workflow, error) {
	opts := MagenticOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName, names, err := indexParticipants("magentic", workers)
	if err != nil {
		return nil, err
	}

	if opts.Manager == nil {
		return nil, core.NewConfigurationError("magentic", nil, "a manager is required")
	}
	if _, clash := byName[opts.Manager.Name()]; clash {
		return nil, core.NewConfigurationError("magentic", core.ErrDuplicateParticipant, "manager %q is also a worker", opts.Manager.Name())
	}

	if err := checkNonNegative("magentic", map[string]int{
		"MaxRoundCount": opts.MaxRoundCount,
		"MaxStallCount": opts.MaxStallCount,
		"MaxResetCount": opts.MaxResetCount,
	}); err != nil {
		return nil, err
	}
	if opts.MaxRoundCount == 0 {
		opts.MaxRoundCount = DefaultMaxRoundCount
	}
	if opts.MaxStallCount == 0 {
		opts.MaxStallCount = DefaultMaxStallCount
	}
	if opts.MaxResetCount == 0 {
		opts.MaxResetCount = DefaultMaxResetCount
	}

	orch := &magentic{
		manager:       opts.Manager,
		byName:        byName,
		workers:       names,
		review:        opts.EnablePlanReview,
		maxRoundCount: opts.MaxRoundCount,
		maxStallCount: opts.MaxStallCount,
		maxResetCount: opts.MaxResetCount,
	}

	return newWorkflow(orch, opts.Options), nil
}

func (m *magentic) topology() string { return "magentic" }

func (m *magentic) progress() core.ProgressLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger
}

func (m *magentic) updateLedger(fn func(l *core.ProgressLedger)) core.ProgressLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.ledger)
	return m.ledger
}

func (m *magentic) start(rc *runContext, conv core.Conversation) error {
	m.conv = conv

	plan, err := m.manager.Plan(rc.ctx, m.conv.Clone())
	if err != nil {
		return m.managerError(err)
	}

	return m.propose(rc, plan)
}

func (m *magentic) resume(rc *runContext, responses map[string]any) error {
	var review core.PlanReviewResponse
	for _, v := range responses {
		resp, ok := v.(core.PlanReviewResponse)
		if !ok {
			return core.NewConfigurationError("resume", core.ErrInvalidResponses, "magentic expects a plan review response, got %T", v)
		}
		review = resp
	}

	if review.Approved {
		rc.logger.LogDebug("Plan approved", "run_id", rc.runID)
		if err := m.adopt(rc, m.proposed); err != nil {
			return err
		}
		return m.loop(rc)
	}

	rc.logger.LogDebug("Plan revision requested", "run_id", rc.runID)
	revised, err := m.manager.Revise(rc.ctx, m.conv.Clone(), m.proposed, review.Revision)
	if err != nil {
		return m.managerError(err)
	}

	return m.propose(rc, revised)
}

// propose submits plan for review, or adopts it and continues when review
// is disabled.
func (m *magentic) propose(rc *runContext, plan core.Message) error {
	plan = m.stamp(plan)

	if m.review {
		m.proposed = plan
		_, err := rc.request(m.manager.Name(), core.PlanReviewRequest{
			Plan:     plan.Text,
			Progress: m.progress(),
		})
		return err
	}

	if err := m.adopt(rc, plan); err != nil {
		return err
	}
	return m.loop(rc)
}

func (m *magentic) adopt(rc *runContext, plan core.Message) error {
	if err := rc.completed(plan); err != nil {
		return err
	}
	m.conv = m.conv.Append(plan)
	m.proposed = core.Message{}
	return nil
}

func (m *magentic) loop(rc *runContext) error {
	for {
		ledger := m.progress()
		if ledger.RoundCount >= m.maxRoundCount {
			rc.logger.LogWarn("Round limit reached", "run_id", rc.runID, "max_round_count", m.maxRoundCount)
			return m.finalAnswer(rc)
		}

		decision, err := m.manager.NextAction(rc.ctx, m.conv.Clone(), ledger, append([]string(nil), m.workers...))
		if err != nil {
			return m.managerError(err)
		}

		switch decision.Kind {
		case core.DecisionComplete:
			return m.finalAnswer(rc)
		case core.DecisionDelegate:
			if worker, ok := m.byName[decision.Worker]; ok {
				if err := m.delegate(rc, worker, decision.Instruction); err != nil {
					return err
				}
				continue
			}
			rc.logger.LogWarn("Manager delegated to unknown worker", "run_id", rc.runID, "worker", decision.Worker)
		default:
			rc.logger.LogWarn("Manager reported a stall", "run_id", rc.runID, "reason", decision.Reason)
		}

		suspended, err := m.stall(rc)
		if err != nil || suspended {
			return err
		}
	}
}

func (m *magentic) delegate(rc *runContext, worker core.Participant, instruction string) error {
	if instruction != "" {
		msg := core.NewAssistantMessage(m.manager.Name(), instruction)
		if err := rc.completed(msg); err != nil {
			return err
		}
		m.conv = m.conv.Append(msg)
	}

	msg, err := rc.turn(rc.ctx, worker, m.conv, false)
	if err != nil {
		return err
	}
	m.conv = m.conv.Append(msg)

	m.updateLedger(func(l *core.ProgressLedger) {
		l.RoundCount++
		l.StallCount = 0
	})

	return nil
}

// stall records a stalled round. It reports whether the run suspended for
// review of a new plan.
func (m *magentic) stall(rc *runContext) (bool, error) {
	ledger := m.updateLedger(func(l *core.ProgressLedger) {
		l.StallCount++
		if l.StallCount >= m.maxStallCount {
			l.ResetCount++
			l.StallCount = 0
		}
	})

	if ledger.StallCount != 0 {
		return false, nil
	}

	if ledger.ResetCount > m.maxResetCount {
		rc.logger.LogError("Stall budget exhausted", "run_id", rc.runID, "reset_count", ledger.ResetCount)
		return false, &core.StallExhaustionError{Ledger: ledger}
	}

	rc.logger.LogWarn("Re-planning after stalls", "run_id", rc.runID, "reset_count", ledger.ResetCount)

	plan, err := m.manager.Replan(rc.ctx, m.conv.Clone(), ledger)
	if err != nil {
		return false, m.managerError(err)
	}
	plan = m.stamp(plan)

	if m.review {
		return true, m.propose(rc, plan)
	}

	return false, m.adopt(rc, plan)
}

func (m *magentic) finalAnswer(rc *runContext) error {
	final, err := m.manager.FinalAnswer(rc.ctx, m.conv.Clone())
	if err != nil {
		return m.managerError(err)
	}
	final = m.stamp(final)

	if err := rc.completed(final); err != nil {
		return err
	}
	m.conv = m.conv.Append(final)

	return rc.finish(nil, &final)
}

// stamp fills the fields the manager may leave empty.
func (m *magentic) stamp(msg core.Message) core.Message {
	if msg.ID == "" {
		msg.ID = core.NewID()
	}
	if msg.Role == "" {
		msg.Role = core.RoleAssistant
	}
	if msg.Author == "" {
		msg.Author = m.manager.Name()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	return msg
}

func (m *magentic) managerError(err error) error {
	return &core.ParticipantError{Participant: m.manager.Name(), Err: fmt.Errorf("manager: %w", err)}
}

func (m *magentic) release() {
	m.conv = nil
	m.proposed = core.Message{}
}
