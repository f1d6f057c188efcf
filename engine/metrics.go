package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/agentweave/core"
)

// Outcome labels of agentweave_runs_finished_total.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeStopped   = "stopped"
)

type metrics struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	events   *prometheus.CounterVec
	active   prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agentweave",
			Name:      "runs_started_total",
			Help:      "Number of workflow runs started.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentweave",
			Name:      "runs_finished_total",
			Help:      "Number of workflow runs that left the registry, by outcome.",
		}, []string{"outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentweave",
			Name:      "events_total",
			Help:      "Number of events forwarded to callers, by kind.",
		}, []string{"kind"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "agentweave",
			Name:      "active_segments",
			Help:      "Number of run segments currently executing.",
		}),
	}

	if reg == nil {
		return m
	}

	m.started = register(reg, m.started).(prometheus.Counter)
	m.finished = register(reg, m.finished).(*prometheus.CounterVec)
	m.events = register(reg, m.events).(*prometheus.CounterVec)
	m.active = register(reg, m.active).(prometheus.Gauge)

	return m
}

// register adds c to reg, reusing an identical collector registered by
// another Engine.
func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector
		}
		panic(err)
	}
	return c
}

// EventKind returns the label used for ev in agentweave_events_total.
func EventKind(ev core.Event) string {
	switch ev.(type) {
	case core.AgentUpdate:
		return "agent_update"
	case core.AgentCompleted:
		return "agent_completed"
	case core.RequestInfo:
		return "request_info"
	case core.Output:
		return "output"
	default:
		return "unknown"
	}
}
