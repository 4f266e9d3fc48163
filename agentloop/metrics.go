package agentloop

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts agent activity on a caller-supplied registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	generations *prometheus.CounterVec
	toolCalls   *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	runs        *prometheus.CounterVec
}

// NewMetrics registers the agent counters on registry. It returns nil when
// registry is nil.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minichain_generations_total",
				Help: "Total number of generation calls by agent and outcome",
			},
			[]string{"agent", "outcome"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minichain_tool_calls_total",
				Help: "Total number of tool invocations by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minichain_tokens_total",
				Help: "Total number of tokens reported by the backend by kind",
			},
			[]string{"agent", "kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minichain_runs_total",
				Help: "Total number of agent runs by outcome",
			},
			[]string{"agent", "outcome"},
		),
	}

	registry.MustRegister(
		m.generations,
		m.toolCalls,
		m.tokens,
		m.runs,
	)

	return m
}

func (m *Metrics) observeGeneration(agent string, err error) {
	if m != nil && m.generations != nil {
		m.generations.WithLabelValues(agent, outcome(err)).Inc()
	}
}

func (m *Metrics) observeToolCall(tool string, err error) {
	if m != nil && m.toolCalls != nil {
		m.toolCalls.WithLabelValues(tool, outcome(err)).Inc()
	}
}

func (m *Metrics) observeUsage(agent string, prompt, completion int) {
	if m == nil || m.tokens == nil {
		return
	}
	// Counters panic on negative deltas; some servers report -1 for unknown.
	m.tokens.WithLabelValues(agent, "prompt").Add(float64(max(prompt, 0)))
	m.tokens.WithLabelValues(agent, "completion").Add(float64(max(completion, 0)))
}

func (m *Metrics) observeRun(agent string, err error) {
	if m != nil && m.runs != nil {
		m.runs.WithLabelValues(agent, runOutcome(err)).Inc()
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// runOutcome labels a finished run by the kind of failure that ended it.
func runOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrToolNotFound):
		return "tool_not_found"
	case errors.Is(err, ErrToolExecution):
		return "tool_error"
	case errors.Is(err, ErrLLMExecution):
		return "llm_error"
	case errors.Is(err, ErrMaxIterationsExceeded):
		return "max_iterations"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
