// Package config loads minichain settings from an optional YAML file, a
// .env file and the process environment, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/minichain/agentloop"
	"github.com/martinemde/minichain/unifiedllm"
)

// Config is the complete runtime configuration.
type Config struct {
	Provider    string   `yaml:"provider"`
	Backend     string   `yaml:"backend,omitempty"`
	Model       string   `yaml:"model,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	APIKey      string   `yaml:"api_key,omitempty"`
	MaxTokens   int      `yaml:"max_tokens,omitempty"`
	Temperature *float64 `yaml:"temperature,omitempty"`

	Agent AgentConfig `yaml:"agent"`
	Retry RetryConfig `yaml:"retry"`
	Tools ToolsConfig `yaml:"tools"`

	// set when APIKey or BaseURL came from a provider-specific variable
	derivedAPIKey  bool
	derivedBaseURL bool
}

type AgentConfig struct {
	Name                string `yaml:"name"`
	MaxIterations       int    `yaml:"max_iterations"`
	SystemPrompt        string `yaml:"system_prompt,omitempty"`
	LoopDetection       bool   `yaml:"loop_detection"`
	LoopDetectionWindow int    `yaml:"loop_detection_window"`
}

// RetryConfig mirrors unifiedllm.RetryPolicy with delays in seconds.
type RetryConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	BaseDelay         float64 `yaml:"base_delay"`
	MaxDelay          float64 `yaml:"max_delay"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	Jitter            bool    `yaml:"jitter"`
}

type ToolsConfig struct {
	Weather bool `yaml:"weather"`
	// FilesRoot enables the read-only file tools rooted at this directory.
	FilesRoot string `yaml:"files_root,omitempty"`
}

var knownProviders = []string{"ollama", "openai", "anthropic"}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	agent := agentloop.DefaultAgentConfig()
	retry := unifiedllm.DefaultRetryPolicy()
	return &Config{
		Provider: "ollama",
		Agent: AgentConfig{
			Name:                "minichain",
			MaxIterations:       agent.MaxIterations,
			LoopDetection:       agent.EnableLoopDetection,
			LoopDetectionWindow: agent.LoopDetectionWindow,
		},
		Retry: RetryConfig{
			MaxRetries:        retry.MaxRetries,
			BaseDelay:         retry.BaseDelay,
			MaxDelay:          retry.MaxDelay,
			BackoffMultiplier: retry.BackoffMultiplier,
			Jitter:            retry.Jitter,
		},
		Tools: ToolsConfig{Weather: true},
	}
}

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then .env and environment variables. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	_ = godotenv.Load() // ignore error if no .env

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.ResolveProvider()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Provider = envOr("MINICHAIN_PROVIDER", c.Provider)
	c.Backend = envOr("MINICHAIN_BACKEND", c.Backend)
	c.Model = envOr("MINICHAIN_MODEL", c.Model)
	c.BaseURL = envOr("MINICHAIN_BASE_URL", c.BaseURL)
	c.Agent.SystemPrompt = envOr("MINICHAIN_SYSTEM_PROMPT", c.Agent.SystemPrompt)

	if v := os.Getenv("MINICHAIN_MAX_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MINICHAIN_MAX_ITERATIONS: %w", err)
		}
		c.Agent.MaxIterations = n
	}
	return nil
}

// ResolveProvider fills the API key and endpoint that belong to c.Provider
// from OPENAI_API_KEY, ANTHROPIC_API_KEY and OLLAMA_HOST. Values it derived
// on an earlier call are dropped first, so callers that change Provider
// must call it again. Explicitly configured values are kept.
func (c *Config) ResolveProvider() {
	if c.derivedAPIKey {
		c.APIKey, c.derivedAPIKey = "", false
	}
	if c.derivedBaseURL {
		c.BaseURL, c.derivedBaseURL = "", false
	}

	if c.APIKey == "" {
		if key := lookupAPIKey(c.Provider); key != "" {
			c.APIKey, c.derivedAPIKey = key, true
		}
	}
	if c.Provider == "ollama" && c.BaseURL == "" {
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			if !strings.Contains(host, "://") {
				host = "http://" + host
			}
			c.BaseURL, c.derivedBaseURL = host, true
		}
	}
}

func lookupAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error
	if !isKnownProvider(c.Provider) {
		errs = append(errs, fmt.Errorf("provider %q is not one of %v", c.Provider, knownProviders))
	}
	switch c.Backend {
	case unifiedllm.BackendNative, unifiedllm.BackendOpenAI, unifiedllm.BackendGollm, unifiedllm.BackendLangChain:
	default:
		errs = append(errs, fmt.Errorf("backend %q is not supported", c.Backend))
	}
	if c.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations))
	}
	if c.Agent.LoopDetectionWindow < 0 {
		errs = append(errs, fmt.Errorf("agent.loop_detection_window must not be negative"))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("retry.max_retries must not be negative"))
	}
	if c.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("max_tokens must not be negative"))
	}
	if c.Temperature != nil && (*c.Temperature < 0 || *c.Temperature > 2) {
		errs = append(errs, fmt.Errorf("temperature must be between 0 and 2, got %g", *c.Temperature))
	}
	return errors.Join(errs...)
}

// ProviderConfig converts c into the settings of a generation backend.
func (c *Config) ProviderConfig() unifiedllm.ProviderConfig {
	return unifiedllm.ProviderConfig{
		Provider:    c.Provider,
		Backend:     c.Backend,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
	}
}

// RetryPolicy converts the retry section into a unifiedllm.RetryPolicy.
func (c *Config) RetryPolicy() unifiedllm.RetryPolicy {
	return unifiedllm.RetryPolicy{
		MaxRetries:        c.Retry.MaxRetries,
		BaseDelay:         c.Retry.BaseDelay,
		MaxDelay:          c.Retry.MaxDelay,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		Jitter:            c.Retry.Jitter,
	}
}

// AgentConfig converts the agent section into an agentloop.AgentConfig.
func (c *Config) AgentConfig() agentloop.AgentConfig {
	return agentloop.AgentConfig{
		MaxIterations:       c.Agent.MaxIterations,
		SystemPrompt:        c.Agent.SystemPrompt,
		EnableLoopDetection: c.Agent.LoopDetection,
		LoopDetectionWindow: c.Agent.LoopDetectionWindow,
	}
}

func isKnownProvider(p string) bool {
	for _, known := range knownProviders {
		if p == known {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
