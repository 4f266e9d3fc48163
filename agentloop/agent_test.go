package agentloop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/martinemde/minichain/unifiedllm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedTurn is one canned model reply.
type scriptedTurn struct {
	text  string
	usage unifiedllm.Usage
	err   error
}

// scriptedGenerator replays turns in order and repeats the last one once
// the script runs out. It records every conversation it was sent.
type scriptedGenerator struct {
	turns []scriptedTurn
	calls [][]unifiedllm.Message
	mu    sync.Mutex
}

func newScriptedGenerator(texts ...string) *scriptedGenerator {
	g := &scriptedGenerator{}
	for _, text := range texts {
		g.turns = append(g.turns, scriptedTurn{text: text})
	}
	return g
}

func (g *scriptedGenerator) Generate(_ context.Context, messages []unifiedllm.Message) (*unifiedllm.GenerationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, messages)
	i := min(len(g.calls), len(g.turns)) - 1
	turn := g.turns[i]
	if turn.err != nil {
		return nil, turn.err
	}
	return &unifiedllm.GenerationResult{
		Text:      turn.text,
		Usage:     turn.usage,
		ToolCalls: unifiedllm.ExtractToolCalls(turn.text),
	}, nil
}

func (g *scriptedGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// weatherTool records every city it is asked about.
type weatherTool struct {
	cities []string
}

func (w *weatherTool) Name() string        { return "get_weather" }
func (w *weatherTool) Description() string { return "Get weather for a given city" }
func (w *weatherTool) Args() []ArgSchema {
	return []ArgSchema{{Name: "city", ArgType: ArgString, Description: "City name", Required: true}}
}

func (w *weatherTool) Run(_ context.Context, args json.RawMessage) (string, error) {
	var in struct {
		City string `json:"city"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", &ParamsNotMatchedError{Tool: w.Name(), Cause: err}
	}
	w.cities = append(w.cities, in.City)
	return fmt.Sprintf("It's always sunny in %s!", in.City), nil
}

const (
	beijingCall   = `{"tool_calls":[{"name":"get_weather","args":{"city":"Beijing"}}]}`
	beijingAnswer = "The weather in Beijing is sunny."
	weatherSchema = `{"name":"get_weather","description":"Get weather for a given city","args":[{"name":"city","arg_type":"string","description":"City name","required":true}]}`
)

func TestRunToolThenAnswer(t *testing.T) {
	gen := &scriptedGenerator{turns: []scriptedTurn{
		{text: beijingCall, usage: unifiedllm.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
		{text: beijingAnswer, usage: unifiedllm.Usage{PromptTokens: 20, CompletionTokens: 7, TotalTokens: 27}},
	}}
	weather := &weatherTool{}
	agent := New("weather", gen).RegisterTool("", weather)

	res, err := agent.Run(context.Background(), "What's the weather in Beijing?")
	require.NoError(t, err)

	assert.Equal(t, beijingAnswer, res.Generation)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 2, gen.callCount())
	assert.Equal(t, []string{"Beijing"}, weather.cities)
	assert.Equal(t, unifiedllm.Usage{PromptTokens: 30, CompletionTokens: 12, TotalTokens: 42}, res.Usage)

	want := []unifiedllm.Message{
		unifiedllm.DeveloperMessage(ToolInstructions),
		unifiedllm.SystemMessage(weatherSchema),
		unifiedllm.UserMessage("What's the weather in Beijing?"),
		unifiedllm.AssistantMessage(beijingCall),
		unifiedllm.ToolResultMessage("get_weather", "Tool get_weather returned: It's always sunny in Beijing!"),
	}
	if diff := cmp.Diff(want[:3], gen.calls[0]); diff != "" {
		t.Errorf("first generation messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, gen.calls[1]); diff != "" {
		t.Errorf("second generation messages mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(append(want, unifiedllm.AssistantMessage(beijingAnswer)), res.Messages); diff != "" {
		t.Errorf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestRunSystemPromptComesFirst(t *testing.T) {
	gen := newScriptedGenerator("done")
	agent := New("a", gen, WithSystemPrompt("You are a weather assistant."))
	agent.RegisterTool("", &weatherTool{})

	_, err := agent.Run(context.Background(), "hi")
	require.NoError(t, err)

	require.Len(t, gen.calls, 1)
	msgs := gen.calls[0]
	require.Len(t, msgs, 4)
	assert.Equal(t, unifiedllm.SystemMessage("You are a weather assistant."), msgs[0])
	assert.Equal(t, unifiedllm.RoleDeveloper, msgs[1].Role)
	assert.Equal(t, unifiedllm.SystemMessage(weatherSchema), msgs[2])
	assert.Equal(t, unifiedllm.UserMessage("hi"), msgs[3])
}

func TestWithLoggerReceivesRunDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	agent := New("logged", newScriptedGenerator("done"), WithLogger(logger))
	_, err := agent.Run(context.Background(), "hi")
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "run finished")
	assert.Contains(t, buf.String(), "agent=logged")
}

func TestWithLoggerNilKeepsDefault(t *testing.T) {
	agent := New("a", newScriptedGenerator("done"), WithLogger(nil))
	assert.Same(t, slog.Default(), agent.logger)
}

func TestRunEmptyRegistrySingleGeneration(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"plain prose", "Paris is the capital of France."},
		{"empty tool_calls array", `{"tool_calls":[]}`},
		{"entry without name", `{"tool_calls":[{"args":{"x":1}}]}`},
		{"malformed json", `{"tool_calls":[{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newScriptedGenerator(tt.text)
			agent := New("a", gen)

			res, err := agent.Run(context.Background(), "question")
			require.NoError(t, err)
			assert.Equal(t, tt.text, res.Generation)
			assert.Equal(t, 1, gen.callCount())
			assert.Equal(t, []unifiedllm.Message{unifiedllm.UserMessage("question")}, gen.calls[0])
		})
	}
}

func TestRunMaxIterationsExceeded(t *testing.T) {
	gen := newScriptedGenerator(beijingCall)
	weather := &weatherTool{}
	agent := New("a", gen, WithMaxIterations(3)).RegisterTool("", weather)

	res, err := agent.Run(context.Background(), "loop forever")
	assert.Nil(t, res)
	require.Error(t, err)

	var maxErr *MaxIterationsExceededError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Max)
	assert.ErrorIs(t, err, ErrMaxIterationsExceeded)
	assert.Equal(t, "maximum iterations exceeded: 3", err.Error())
	assert.Equal(t, 3, gen.callCount())
	assert.Len(t, weather.cities, 3)
}

func TestRunUnknownTool(t *testing.T) {
	gen := newScriptedGenerator(`{"tool_calls":[{"name":"get_time","args":{}}]}`, "never reached")
	weather := &weatherTool{}
	agent := New("a", gen).RegisterTool("", weather)

	_, err := agent.Run(context.Background(), "what time is it?")
	var notFound *ToolNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "get_time", notFound.Name)
	assert.ErrorIs(t, err, ErrToolNotFound)
	assert.Equal(t, 1, gen.callCount())
	assert.Empty(t, weather.cities)
}

func TestRunUnknownToolStopsRemainingCalls(t *testing.T) {
	gen := newScriptedGenerator(`{"tool_calls":[{"name":"missing"},{"name":"get_weather","args":{"city":"Oslo"}}]}`)
	weather := &weatherTool{}
	agent := New("a", gen).RegisterTool("", weather)

	_, err := agent.Run(context.Background(), "q")
	require.ErrorIs(t, err, ErrToolNotFound)
	assert.Empty(t, weather.cities)
}

func TestRunToolCallsInRequestOrder(t *testing.T) {
	gen := newScriptedGenerator(
		`Let me check. {"tool_calls":[{"name":"get_weather","args":{"city":"Oslo"}},{"name":"get_weather","args":{"city":"Lima"}}]}`,
		"Both sunny.",
	)
	weather := &weatherTool{}
	agent := New("a", gen).RegisterTool("", weather)

	res, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"Oslo", "Lima"}, weather.cities)

	second := gen.calls[1]
	require.Len(t, second, 6)
	assert.Equal(t, "Tool get_weather returned: It's always sunny in Oslo!", second[4].Content)
	assert.Equal(t, "Tool get_weather returned: It's always sunny in Lima!", second[5].Content)
	assert.Equal(t, "Both sunny.", res.Generation)
}

func TestRunToolFailure(t *testing.T) {
	failing := NewFuncTool("explode", "Always fails", nil, func(context.Context, json.RawMessage) (string, error) {
		return "", errors.New("disk on fire")
	})
	gen := newScriptedGenerator(`{"tool_calls":[{"name":"explode"}]}`)
	agent := New("a", gen).RegisterTool("", failing)

	_, err := agent.Run(context.Background(), "q")
	var execErr *ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "explode", execErr.Name)
	assert.Equal(t, "disk on fire", execErr.Reason)
	assert.Equal(t, "tool execution error in 'explode': disk on fire", err.Error())
	assert.Equal(t, 1, gen.callCount())
}

func TestRunParamsNotMatched(t *testing.T) {
	gen := newScriptedGenerator(`{"tool_calls":[{"name":"get_weather","args":{"city":42}}]}`)
	weather := &weatherTool{}
	agent := New("a", gen).RegisterTool("", weather)

	_, err := agent.Run(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolExecution)
	assert.ErrorIs(t, err, ErrParamsNotMatched)
	assert.Empty(t, weather.cities)
}

func TestRunGeneratorFailure(t *testing.T) {
	backendErr := errors.New("connection refused")
	gen := &scriptedGenerator{turns: []scriptedTurn{{err: backendErr}}}
	agent := New("a", gen)

	res, err := agent.Run(context.Background(), "q")
	assert.Nil(t, res)
	var llmErr *LLMExecutionError
	require.ErrorAs(t, err, &llmErr)
	assert.ErrorIs(t, err, backendErr)
	assert.ErrorIs(t, err, ErrLLMExecution)
	assert.Equal(t, "llm error: connection refused", err.Error())
}

func TestRunGeneratorFailureAfterTools(t *testing.T) {
	gen := &scriptedGenerator{turns: []scriptedTurn{
		{text: beijingCall, usage: unifiedllm.Usage{TotalTokens: 10}},
		{err: errors.New("rate limited")},
	}}
	agent := New("a", gen).RegisterTool("", &weatherTool{})

	res, err := agent.Run(context.Background(), "q")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrLLMExecution)
}

func TestRunNilGenerationIsLLMError(t *testing.T) {
	gen := unifiedllm.GeneratorFunc(func(context.Context, []unifiedllm.Message) (*unifiedllm.GenerationResult, error) {
		return nil, nil
	})
	_, err := New("a", gen).Run(context.Background(), "q")
	assert.ErrorIs(t, err, ErrLLMExecution)
}

func TestRunCancelledContext(t *testing.T) {
	gen := newScriptedGenerator("unused")
	agent := New("a", gen)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := agent.Run(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, gen.callCount())
}

func TestRunCancelledDuringTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	canceller := NewFuncTool("stop", "Cancels the run", nil, func(context.Context, json.RawMessage) (string, error) {
		calls++
		cancel()
		return "stopped", nil
	})
	gen := newScriptedGenerator(`{"tool_calls":[{"name":"stop"},{"name":"stop"}]}`)
	agent := New("a", gen).RegisterTool("", canceller)

	_, err := agent.Run(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, gen.callCount())
}

func TestRunsAreIndependent(t *testing.T) {
	gen := newScriptedGenerator("first", "second")
	agent := New("a", gen)

	_, err := agent.Run(context.Background(), "one")
	require.NoError(t, err)
	_, err = agent.Run(context.Background(), "two")
	require.NoError(t, err)

	require.Len(t, gen.calls, 2)
	assert.Equal(t, []unifiedllm.Message{unifiedllm.UserMessage("two")}, gen.calls[1])
}

func TestAgentRegisterToolOverwrites(t *testing.T) {
	first := NewFuncTool("echo", "first", nil, func(context.Context, json.RawMessage) (string, error) { return "1", nil })
	second := NewFuncTool("echo", "second", nil, func(context.Context, json.RawMessage) (string, error) { return "2", nil })

	agent := New("a", newScriptedGenerator("x")).
		RegisterTool("", first).
		RegisterTool("echo", second)

	assert.Equal(t, 1, agent.Registry().Count())
	got, ok := agent.Tool("echo")
	require.True(t, ok)
	assert.Equal(t, "second", got.Description())
}

func TestAgentRegisterToolUnderAlias(t *testing.T) {
	gen := newScriptedGenerator(`{"tool_calls":[{"name":"weather","args":{"city":"Rome"}}]}`, "ok")
	weather := &weatherTool{}
	agent := New("a", gen).RegisterTool("weather", weather)

	_, ok := agent.Tool("get_weather")
	assert.False(t, ok)

	_, err := agent.Run(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rome"}, weather.cities)
	assert.Equal(t, "Tool weather returned: It's always sunny in Rome!", gen.calls[1][4].Content)
	assert.Equal(t, "weather", gen.calls[1][4].Name)
}

func TestAgentConfiguration(t *testing.T) {
	agent := New("configured", newScriptedGenerator("x"))
	assert.Equal(t, "configured", agent.Name())
	assert.NotEmpty(t, agent.ID())
	assert.Equal(t, DefaultMaxIterations, agent.Config().MaxIterations)

	agent.SetMaxIterations(7)
	assert.Equal(t, 7, agent.Config().MaxIterations)
	agent.SetMaxIterations(0)
	assert.Equal(t, DefaultMaxIterations, agent.Config().MaxIterations)

	agent.SetSystemPrompt("be brief")
	assert.Equal(t, "be brief", agent.Config().SystemPrompt)

	assert.Equal(t, DefaultMaxIterations, New("a", nil, WithMaxIterations(-1)).Config().MaxIterations)
	assert.Equal(t, DefaultMaxIterations, New("a", nil, WithConfig(AgentConfig{})).Config().MaxIterations)
	assert.NotEqual(t, New("a", nil).ID(), New("a", nil).ID())
}

func TestAgentSharedRegistry(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register("", &weatherTool{})

	a := New("a", newScriptedGenerator("x"), WithRegistry(registry))
	b := New("b", newScriptedGenerator("y"), WithRegistry(registry))

	_, ok := a.Tool("get_weather")
	assert.True(t, ok)
	_, ok = b.Tool("get_weather")
	assert.True(t, ok)
}

func TestAgentConcurrentRuns(t *testing.T) {
	gen := newScriptedGenerator("answer")
	agent := New("a", gen).RegisterTool("", &weatherTool{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := agent.Run(context.Background(), "q")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, gen.callCount())
}
