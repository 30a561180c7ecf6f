// Package config loads querymesh configuration from YAML files.
//
// Values of the form ${VAR_NAME} are replaced with environment variables
// before parsing, and durations are written as Go duration strings
// ("30s", "2m").
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderMock      = "mock"
)

// Config is the complete querymesh configuration.
type Config struct {
	Database     DatabaseConfig     `yaml:"database"`
	LLM          LLMConfig          `yaml:"llm"`
	Analysis     AnalysisConfig     `yaml:"analysis"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Stream       StreamConfig       `yaml:"stream"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig selects the session and checkpoint stores. An empty path
// keeps everything in memory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LLMConfig selects the language model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// AnalysisConfig points at the remote analysis engine.
type AnalysisConfig struct {
	Endpoint string        `yaml:"endpoint"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// OrchestratorConfig tunes the turn graph.
type OrchestratorConfig struct {
	ContextWindow        int `yaml:"context_window"`
	SummarizeThreshold   int `yaml:"summarize_threshold"`
	KeepRecent           int `yaml:"keep_recent"`
	MaxSummaryWords      int `yaml:"max_summary_words"`
	MaxCollaboratorCalls int `yaml:"max_collaborator_calls"`
	MaxSteps             int `yaml:"max_steps"`
}

// StreamConfig tunes event delivery and persistence.
type StreamConfig struct {
	EventBufferSize int           `yaml:"event_buffer_size"`
	MaxMetadataRows int           `yaml:"max_metadata_rows"`
	PersistTimeout  time.Duration `yaml:"-"`

	PersistTimeoutRaw string `yaml:"persist_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderMock,
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		Analysis: AnalysisConfig{
			Timeout: 60 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			ContextWindow:        3,
			SummarizeThreshold:   5,
			KeepRecent:           3,
			MaxSummaryWords:      200,
			MaxCollaboratorCalls: 10,
			MaxSteps:             16,
		},
		Stream: StreamConfig{
			EventBufferSize: 100,
			MaxMetadataRows: 10,
			PersistTimeout:  10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a configuration file from the given path. Fields missing from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration on top of Default().
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// Validate returns an error describing the first invalid field.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderMock:
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider)
	}

	o := c.Orchestrator
	if o.SummarizeThreshold <= 0 {
		return fmt.Errorf("orchestrator.summarize_threshold must be positive")
	}
	if o.KeepRecent <= 0 {
		return fmt.Errorf("orchestrator.keep_recent must be positive")
	}
	if o.KeepRecent >= o.SummarizeThreshold {
		return fmt.Errorf("orchestrator.keep_recent must be below summarize_threshold")
	}
	if o.ContextWindow <= 0 {
		return fmt.Errorf("orchestrator.context_window must be positive")
	}
	if o.MaxSummaryWords <= 0 {
		return fmt.Errorf("orchestrator.max_summary_words must be positive")
	}
	if o.MaxCollaboratorCalls < 0 {
		return fmt.Errorf("orchestrator.max_collaborator_calls must not be negative")
	}
	if o.MaxSteps <= 0 {
		return fmt.Errorf("orchestrator.max_steps must be positive")
	}

	if c.Stream.EventBufferSize < 0 {
		return fmt.Errorf("stream.event_buffer_size must not be negative")
	}
	if c.Stream.PersistTimeout <= 0 {
		return fmt.Errorf("stream.persist_timeout must be positive")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format %q must be json or text", c.Logging.Format)
	}

	return nil
}

func parseDurations(cfg *Config) error {
	var err error

	if cfg.Analysis.TimeoutRaw != "" {
		cfg.Analysis.Timeout, err = time.ParseDuration(cfg.Analysis.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing analysis.timeout %q: %w", cfg.Analysis.TimeoutRaw, err)
		}
	}

	if cfg.Stream.PersistTimeoutRaw != "" {
		cfg.Stream.PersistTimeout, err = time.ParseDuration(cfg.Stream.PersistTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing stream.persist_timeout %q: %w", cfg.Stream.PersistTimeoutRaw, err)
		}
	}

	return nil
}
