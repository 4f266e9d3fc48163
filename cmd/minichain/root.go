package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinemde/minichain/agentloop"
	"github.com/martinemde/minichain/config"
	"github.com/martinemde/minichain/tools"
	"github.com/martinemde/minichain/unifiedllm"
)

type globalOptions struct {
	ConfigPath    string
	Provider      string
	Backend       string
	Model         string
	BaseURL       string
	SystemPrompt  string
	FilesRoot     string
	MaxIterations int
	LogLevel      LogLevel
	LogFormat     LogFormat
	Trace         bool
	ShowUsage     bool
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&globalOptions{LogLevel: LogLevelWarn, LogFormat: LogFormatText})
}

func newRootCmd(options *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "minichain",
		Short:         "Run a language model in a tool-calling loop.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if options.Trace && options.LogLevel.SlogLevel() > slog.LevelInfo {
				options.LogLevel = LogLevelInfo
			}
			slog.SetDefault(slog.New(newLogHandler(cmd.ErrOrStderr(), options)))
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&options.ConfigPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&options.Provider, "provider", "", "model provider: ollama, openai or anthropic")
	flags.StringVar(&options.Backend, "backend", "", "client library: openai, gollm or langchain (default: provider native)")
	flags.StringVarP(&options.Model, "model", "m", "", "model id or alias")
	flags.StringVar(&options.BaseURL, "base-url", "", "override the provider endpoint")
	flags.StringVarP(&options.SystemPrompt, "system", "s", "", "system prompt")
	flags.StringVar(&options.FilesRoot, "files-root", "", "expose read-only file tools rooted at this directory")
	flags.IntVar(&options.MaxIterations, "max-iterations", 0, "maximum generation calls per prompt")
	flags.Var(&options.LogLevel, "log-level", "set the log level")
	flags.Var(&options.LogFormat, "log-format", `log format: "text" or "json"`)
	flags.BoolVar(&options.Trace, "trace", false, "log every run event")
	flags.BoolVar(&options.ShowUsage, "usage", false, "print token usage after each answer")

	cmd.AddCommand(NewRunCmd(options))
	cmd.AddCommand(NewChatCmd(options))
	cmd.AddCommand(NewModelsCmd(options))
	return cmd
}

// loadConfig reads the config file and environment, then applies flags that
// were set explicitly. Provider-specific settings are resolved again after
// --provider so they never leak from the provider the environment named.
func loadConfig(cmd *cobra.Command, options *globalOptions) (*config.Config, error) {
	cfg, err := config.Load(options.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = options.Provider
		cfg.ResolveProvider()
	}
	if flags.Changed("backend") {
		cfg.Backend = options.Backend
	}
	if flags.Changed("model") {
		cfg.Model = options.Model
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = options.BaseURL
	}
	if flags.Changed("system") {
		cfg.Agent.SystemPrompt = options.SystemPrompt
	}
	if flags.Changed("files-root") {
		cfg.Tools.FilesRoot = options.FilesRoot
	}
	if flags.Changed("max-iterations") {
		cfg.Agent.MaxIterations = options.MaxIterations
	}
	return cfg, cfg.Validate()
}

// session is an agent together with the resources it holds.
type session struct {
	agent   *agentloop.Agent
	closers []io.Closer
	events  *agentloop.EventEmitter
	done    chan struct{}
}

func newSession(cmd *cobra.Command, options *globalOptions) (*session, error) {
	cfg, err := loadConfig(cmd, options)
	if err != nil {
		return nil, err
	}

	policy := cfg.RetryPolicy()
	policy.OnRetry = func(err error, attempt int, delay time.Duration) {
		slog.Warn("retrying generation", "attempt", attempt, "delay", delay, "error", err)
	}
	gen, err := unifiedllm.NewGenerator(cfg.ProviderConfig(), unifiedllm.WithRetry(policy))
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	s := &session{closers: []io.Closer{gen}}
	opts := []agentloop.Option{
		agentloop.WithConfig(cfg.AgentConfig()),
		agentloop.WithLogger(slog.Default()),
	}
	if options.Trace {
		s.events = agentloop.NewEventEmitter(256)
		s.done = make(chan struct{})
		go logEvents(s.events, s.done)
		opts = append(opts, agentloop.WithEventEmitter(s.events))
	}
	s.agent = agentloop.New(cfg.Agent.Name, gen, opts...)

	if cfg.Tools.Weather {
		s.agent.RegisterTool("", tools.Weather())
	}
	if cfg.Tools.FilesRoot != "" {
		files, err := tools.OpenFiles(cfg.Tools.FilesRoot)
		if err != nil {
			s.Close()
			return nil, err
		}
		files.Register(s.agent.Registry())
	}

	slog.Debug("agent ready",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"tools", s.agent.Registry().Names(),
		"max_iterations", cfg.Agent.MaxIterations,
	)
	return s, nil
}

func (s *session) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	if s.events != nil {
		s.events.Close()
		<-s.done
	}
	return errors.Join(errs...)
}

func logEvents(events *agentloop.EventEmitter, done chan<- struct{}) {
	defer close(done)
	for ev := range events.Events() {
		attrs := []any{"kind", ev.Kind, "run_id", ev.RunID}
		for k, v := range ev.Data {
			attrs = append(attrs, k, v)
		}
		slog.Info("event", attrs...)
	}
}

func printUsage(w io.Writer, res *agentloop.Result) {
	fmt.Fprintf(w, "tokens: prompt=%d completion=%d total=%d iterations=%d\n",
		res.Usage.PromptTokens, res.Usage.CompletionTokens, res.Usage.TotalTokens, res.Iterations)
}
