package agentloop

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/martinemde/minichain/unifiedllm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsNilRegistry(t *testing.T) {
	m := NewMetrics(nil)
	assert.Nil(t, m)
	assert.NotPanics(t, func() {
		m.observeGeneration("a", nil)
		m.observeToolCall("t", nil)
		m.observeUsage("a", 1, 2)
		m.observeRun("a", nil)
	})
}

func TestRunRecordsMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	gen := &scriptedGenerator{turns: []scriptedTurn{
		{text: beijingCall, usage: unifiedllm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		{text: beijingAnswer, usage: unifiedllm.Usage{PromptTokens: 20, CompletionTokens: 7, TotalTokens: 27}},
	}}
	agent := New("weather", gen, WithMetrics(metrics)).RegisterTool("", &weatherTool{})

	_, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.generations.WithLabelValues("weather", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.toolCalls.WithLabelValues("get_weather", "ok")))
	assert.Equal(t, 30.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("weather", "prompt")))
	assert.Equal(t, 12.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("weather", "completion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("weather", "ok")))
}

func TestObserveUsageIgnoresNegativeCounts(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	gen := &scriptedGenerator{turns: []scriptedTurn{
		{text: beijingAnswer, usage: unifiedllm.Usage{PromptTokens: -1, CompletionTokens: 4}},
	}}
	agent := New("odd", gen, WithMetrics(metrics))

	require.NotPanics(t, func() {
		_, err := agent.Run(context.Background(), "q")
		require.NoError(t, err)
	})
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("odd", "prompt")))
	assert.Equal(t, 4.0, testutil.ToFloat64(metrics.tokens.WithLabelValues("odd", "completion")))
}

func TestRunOutcomeLabels(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&ToolNotFoundError{Name: "x"}, "tool_not_found"},
		{&ToolExecutionError{Name: "x", Reason: "r"}, "tool_error"},
		{&LLMExecutionError{Cause: errors.New("down")}, "llm_error"},
		{&MaxIterationsExceededError{Max: 3}, "max_iterations"},
		{context.Canceled, "cancelled"},
		{fmt.Errorf("run cancelled before tool x: %w", context.DeadlineExceeded), "cancelled"},
		{errors.New("encode tool schema: unsupported value"), "error"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runOutcome(tt.err))
	}
}

func TestRunRecordsFailedRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	gen := newScriptedGenerator(beijingCall)
	agent := New("a", gen, WithMetrics(metrics), WithMaxIterations(2)).RegisterTool("", &weatherTool{})

	_, err := agent.Run(context.Background(), "q")
	require.ErrorIs(t, err, ErrMaxIterationsExceeded)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("a", "max_iterations")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.toolCalls.WithLabelValues("get_weather", "ok")))
}
