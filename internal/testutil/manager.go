package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentweave/core"
)

// ScriptedManager is a core.Manager replaying a fixed list of decisions. When
// the script is exhausted it keeps returning the last decision (or
// DecisionComplete for an empty script).
type ScriptedManager struct {
	name      string
	decisions []core.Decision

	mu        sync.Mutex
	next      int
	plans     int
	replans   int
	revisions []string
	ledgers   []core.ProgressLedger
}

// NewScriptedManager creates a manager answering NextAction with decisions in order.
func NewScriptedManager(name string, decisions ...core.Decision) *ScriptedManager {
	return &ScriptedManager{name: name, decisions: decisions}
}

// Name implements core.Manager.
func (m *ScriptedManager) Name() string { return m.name }

// Plan implements core.Manager.
func (m *ScriptedManager) Plan(ctx context.Context, _ core.Conversation) (core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans++
	return core.NewAssistantMessage(m.name, fmt.Sprintf("plan v%d", m.plans)), ctx.Err()
}

// Revise implements core.Manager.
func (m *ScriptedManager) Revise(ctx context.Context, _ core.Conversation, plan core.Message, feedback string) (core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions = append(m.revisions, feedback)
	return core.NewAssistantMessage(m.name, plan.Text+" + "+feedback), ctx.Err()
}

// Replan implements core.Manager.
func (m *ScriptedManager) Replan(ctx context.Context, _ core.Conversation, _ core.ProgressLedger) (core.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replans++
	return core.NewAssistantMessage(m.name, fmt.Sprintf("replan v%d", m.replans)), ctx.Err()
}

// NextAction implements core.Manager.
func (m *ScriptedManager) NextAction(ctx context.Context, _ core.Conversation, ledger core.ProgressLedger, _ []string) (core.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgers = append(m.ledgers, ledger)
	if len(m.decisions) == 0 {
		return core.Decision{Kind: core.DecisionComplete}, ctx.Err()
	}
	idx := m.next
	if idx >= len(m.decisions) {
		idx = len(m.decisions) - 1
	}
	m.next++
	return m.decisions[idx], ctx.Err()
}

// FinalAnswer implements core.Manager.
func (m *ScriptedManager) FinalAnswer(ctx context.Context, conv core.Conversation) (core.Message, error) {
	return core.NewAssistantMessage(m.name, fmt.Sprintf("final answer after %d messages", len(conv))), ctx.Err()
}

// Replans returns how many re-plans were requested.
func (m *ScriptedManager) Replans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replans
}

// Revisions returns the feedback passed to Revise in order.
func (m *ScriptedManager) Revisions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.revisions...)
}

// Ledgers returns the ledger snapshots observed by NextAction.
func (m *ScriptedManager) Ledgers() []core.ProgressLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.ProgressLedger(nil), m.ledgers...)
}
