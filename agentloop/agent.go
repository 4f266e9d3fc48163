package agentloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/martinemde/minichain/unifiedllm"
)

// DefaultMaxIterations bounds a run when no other limit is configured.
const DefaultMaxIterations = 100

// AgentConfig holds the tunable limits of an agent.
type AgentConfig struct {
	MaxIterations       int    `json:"max_iterations"`
	SystemPrompt        string `json:"system_prompt,omitempty"`
	EnableLoopDetection bool   `json:"enable_loop_detection"`
	LoopDetectionWindow int    `json:"loop_detection_window"`
}

// DefaultAgentConfig returns the default configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		MaxIterations:       DefaultMaxIterations,
		EnableLoopDetection: true,
		LoopDetectionWindow: 6,
	}
}

// Result is the outcome of a successful run.
type Result struct {
	// Usage is the token usage summed over every generation in the run.
	Usage unifiedllm.Usage `json:"usage"`
	// Generation is the text of the final turn, the one without tool calls.
	Generation string `json:"generation"`
	// Iterations is the number of generation calls made.
	Iterations int `json:"iterations"`
	// Messages is the full conversation of the run ending with the final
	// assistant turn.
	Messages []unifiedllm.Message `json:"messages"`
}

// Option configures an Agent.
type Option func(*Agent)

// WithMaxIterations bounds the number of generation calls per run. Values
// below 1 keep the default.
func WithMaxIterations(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.config.MaxIterations = n
		}
	}
}

// WithSystemPrompt sets the system prompt sent first in every run.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.config.SystemPrompt = prompt }
}

// WithConfig replaces the whole agent configuration.
func WithConfig(cfg AgentConfig) Option {
	return func(a *Agent) {
		if cfg.MaxIterations < 1 {
			cfg.MaxIterations = DefaultMaxIterations
		}
		a.config = cfg
	}
}

// WithRegistry makes the agent use registry, which may be shared with other
// agents.
func WithRegistry(registry *ToolRegistry) Option {
	return func(a *Agent) {
		if registry != nil {
			a.registry = registry
		}
	}
}

// WithLogger sets the logger for run diagnostics. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records generations, tool calls, tokens and runs on m.
func WithMetrics(m *Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithEventEmitter delivers run events to emitter. The agent never closes it.
func WithEventEmitter(emitter *EventEmitter) Option {
	return func(a *Agent) { a.emitter = emitter }
}

// Agent runs the bounded loop that alternates model generation and tool
// execution. Runs keep no state between calls, so one Agent may serve
// concurrent runs.
type Agent struct {
	id       string
	name     string
	llm      unifiedllm.Generator
	registry *ToolRegistry
	config   AgentConfig
	logger   *slog.Logger
	metrics  *Metrics
	emitter  *EventEmitter
	mu       sync.RWMutex
}

// New creates an agent that generates with llm.
func New(name string, llm unifiedllm.Generator, opts ...Option) *Agent {
	a := &Agent{
		id:       uuid.New().String(),
		name:     name,
		llm:      llm,
		registry: NewToolRegistry(),
		config:   DefaultAgentConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the name the agent was created with.
func (a *Agent) Name() string { return a.name }

// Registry returns the registry the agent dispatches tool calls through.
func (a *Agent) Registry() *ToolRegistry { return a.registry }

// RegisterTool adds t under name, or under t.Name() when name is empty.
func (a *Agent) RegisterTool(name string, t Tool) *Agent {
	a.registry.Register(name, t)
	return a
}

// Tool looks up a registered tool by exact name.
func (a *Agent) Tool(name string) (Tool, bool) {
	return a.registry.Get(name)
}

// SetSystemPrompt changes the system prompt for subsequent runs.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.SystemPrompt = prompt
}

// SetMaxIterations changes the loop bound for subsequent runs. Values below
// 1 restore the default.
func (a *Agent) SetMaxIterations(n int) {
	if n < 1 {
		n = DefaultMaxIterations
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.MaxIterations = n
}

// Config returns a copy of the current configuration.
func (a *Agent) Config() AgentConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

// Run sends prompt to the model and executes the tools it asks for until it
// answers without tool calls. Any failure ends the run and no partial
// result is returned.
func (a *Agent) Run(ctx context.Context, prompt string) (*Result, error) {
	cfg := a.Config()
	r := &run{
		agent:  a,
		id:     uuid.New().String(),
		config: cfg,
	}
	r.logger = a.logger.With("agent", a.name, "run_id", r.id)

	r.emit(EventRunStart, map[string]any{
		"prompt":         preview(prompt),
		"max_iterations": cfg.MaxIterations,
		"tools":          a.registry.Names(),
	})
	r.logger.Debug("run started", "max_iterations", cfg.MaxIterations, "tools", a.registry.Count())

	result, err := r.loop(ctx, prompt)
	a.metrics.observeRun(a.name, err)
	if err != nil {
		r.emit(EventError, map[string]any{"error": err.Error()})
		r.logger.Error("run failed", "error", err)
		return nil, err
	}

	r.emit(EventRunEnd, map[string]any{
		"iterations":        result.Iterations,
		"prompt_tokens":     result.Usage.PromptTokens,
		"completion_tokens": result.Usage.CompletionTokens,
		"total_tokens":      result.Usage.TotalTokens,
	})
	r.logger.Debug("run finished", "iterations", result.Iterations, "total_tokens", result.Usage.TotalTokens)
	return result, nil
}

// run is the state of one Run call.
type run struct {
	agent  *Agent
	id     string
	config AgentConfig
	logger *slog.Logger
}

func (r *run) emit(kind EventKind, data map[string]any) {
	r.agent.emitter.Emit(RunEvent{
		Kind:    kind,
		AgentID: r.agent.id,
		RunID:   r.id,
		Data:    data,
	})
}

func (r *run) loop(ctx context.Context, prompt string) (*Result, error) {
	a := r.agent
	initial, err := buildInitialMessages(r.config.SystemPrompt, a.registry.Describe(), prompt)
	if err != nil {
		return nil, err
	}
	conv := newConversation(initial)

	var usage unifiedllm.Usage
	for iteration := 1; iteration <= r.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled before generation %d: %w", iteration, err)
		}

		gen, err := a.llm.Generate(ctx, conv.Messages())
		if err == nil && gen == nil {
			err = errors.New("generator returned no result")
		}
		a.metrics.observeGeneration(a.name, err)
		if err != nil {
			return nil, &LLMExecutionError{Cause: err}
		}

		usage = usage.Add(gen.Usage)
		a.metrics.observeUsage(a.name, gen.Usage.PromptTokens, gen.Usage.CompletionTokens)
		r.emit(EventGeneration, map[string]any{
			"iteration":  iteration,
			"text":       preview(gen.Text),
			"tool_calls": len(gen.ToolCalls),
		})
		r.logger.Debug("generation",
			"iteration", iteration,
			"tool_calls", len(gen.ToolCalls),
			"text", preview(gen.Text),
		)

		conv.Append(unifiedllm.AssistantMessage(gen.Text))
		if !gen.HasToolCalls() {
			return &Result{
				Usage:      usage,
				Generation: gen.Text,
				Iterations: iteration,
				Messages:   conv.Messages(),
			}, nil
		}

		for _, call := range gen.ToolCalls {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("run cancelled before tool %s: %w", call.Name, err)
			}
			output, err := r.callTool(ctx, call)
			if err != nil {
				return nil, err
			}
			conv.Append(toolResultMessage(call.Name, output))
			conv.recordToolCall(call.Name, call.Args)
		}

		r.checkLoop(conv)
	}

	return nil, &MaxIterationsExceededError{Max: r.config.MaxIterations}
}

// callTool dispatches one tool call through the registry.
func (r *run) callTool(ctx context.Context, call unifiedllm.ToolCallRequest) (string, error) {
	a := r.agent
	r.emit(EventToolCallStart, map[string]any{
		"tool_name": call.Name,
		"args":      string(call.Args),
	})

	output, err := a.registry.Invoke(ctx, call.Name, call.Args)
	if err != nil {
		if !errors.Is(err, ErrToolNotFound) {
			a.metrics.observeToolCall(call.Name, err)
		}
		r.emit(EventToolCallEnd, map[string]any{
			"tool_name": call.Name,
			"error":     err.Error(),
		})
		return "", err
	}

	a.metrics.observeToolCall(call.Name, nil)
	r.emit(EventToolCallEnd, map[string]any{
		"tool_name": call.Name,
		"output":    preview(output),
	})
	r.logger.Debug("tool call", "tool", call.Name, "args", string(call.Args), "output", preview(output))
	return output, nil
}

// checkLoop warns when recent tool calls repeat. It never changes the
// conversation or ends the run.
func (r *run) checkLoop(conv *Conversation) {
	if !r.config.EnableLoopDetection {
		return
	}
	window := r.config.LoopDetectionWindow
	if !DetectLoop(conv.Signatures(), window) {
		return
	}
	message := fmt.Sprintf("the last %d tool calls follow a repeating pattern", window)
	r.emit(EventLoopWarning, map[string]any{"message": message})
	r.logger.Warn("possible tool call loop", "window", window)
}
