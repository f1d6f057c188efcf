package orchestration

import (
	"sort"

	"github.com/hupe1980/agentweave/core"
)

// HandoffGraph is a directed adjacency set over participant names. An edge
// from→to means "from may hand control to to". Cycles are permitted, so
// specialists can hand back to a triage participant.
//
// A graph is mutable while it is being built; NewHandoff takes a private copy
// so later changes do not affect a constructed Workflow.
type HandoffGraph struct {
	edges map[string]map[string]struct{}
}

// NewHandoffGraph creates an empty graph.
func NewHandoffGraph() *HandoffGraph {
	return &HandoffGraph{edges: make(map[string]map[string]struct{})}
}

// Add declares edges from→to for every target and returns the graph for chaining.
func (g *HandoffGraph) Add(from string, to ...string) *HandoffGraph {
	set, ok := g.edges[from]
	if !ok {
		set = make(map[string]struct{}, len(to))
		g.edges[from] = set
	}
	for _, t := range to {
		set[t] = struct{}{}
	}
	return g
}

// Allowed reports whether the edge from→to exists.
func (g *HandoffGraph) Allowed(from, to string) bool {
	if g == nil {
		return false
	}
	_, ok := g.edges[from][to]
	return ok
}

// Targets returns the sorted handoff targets of from.
func (g *HandoffGraph) Targets(from string) []string {
	if g == nil {
		return nil
	}
	targets := make([]string, 0, len(g.edges[from]))
	for t := range g.edges[from] {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Validate checks that every edge references one of the known participants.
func (g *HandoffGraph) Validate(known []string) error {
	if g == nil {
		return nil
	}

	set := make(map[string]struct{}, len(known))
	for _, k := range known {
		set[k] = struct{}{}
	}

	sources := make([]string, 0, len(g.edges))
	for from := range g.edges {
		sources = append(sources, from)
	}
	sort.Strings(sources)

	for _, from := range sources {
		if _, ok := set[from]; !ok {
			return core.NewConfigurationError("handoff", core.ErrUnknownParticipant, "edge source %q", from)
		}
		for _, to := range g.Targets(from) {
			if _, ok := set[to]; !ok {
				return core.NewConfigurationError("handoff", core.ErrUnknownParticipant, "edge %s→%s targets %q", from, to, to)
			}
		}
	}

	return nil
}

func (g *HandoffGraph) clone() *HandoffGraph {
	out := NewHandoffGraph()
	if g == nil {
		return out
	}
	for from, targets := range g.edges {
		for to := range targets {
			out.Add(from, to)
		}
	}
	return out
}
