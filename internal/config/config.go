// Package config loads process configuration for the astra CLI: an optional
// YAML file followed by ASTRA_* environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/martinemde/astra/agentloop"
	"github.com/martinemde/astra/subtask"
)

// PathEnv names the variable holding the config file path.
const PathEnv = "ASTRA_CONFIG"

// Config is the process configuration for the astra binary. Each field can
// be set from the YAML file and overridden by its ASTRA_* variable.
type Config struct {
	Provider string `yaml:"provider" env:"ASTRA_PROVIDER"`
	Model    string `yaml:"model" env:"ASTRA_MODEL"`
	APIKey   string `yaml:"api_key" env:"ASTRA_API_KEY"`
	Mock     bool   `yaml:"mock" env:"ASTRA_MOCK"`

	MaxIterations    int           `yaml:"max_iterations" env:"ASTRA_MAX_ITERATIONS"`
	Temperature      float64       `yaml:"temperature" env:"ASTRA_TEMPERATURE"`
	ObservationLimit int           `yaml:"observation_limit" env:"ASTRA_OBSERVATION_LIMIT"`
	RunTimeout       time.Duration `yaml:"run_timeout" env:"ASTRA_RUN_TIMEOUT"`
	ToolMode         string        `yaml:"tool_mode" env:"ASTRA_TOOL_MODE"`
	LoopDetection    bool          `yaml:"loop_detection" env:"ASTRA_LOOP_DETECTION"`

	Concurrency int     `yaml:"concurrency" env:"ASTRA_CONCURRENCY"`
	Retries     int     `yaml:"retries" env:"ASTRA_RETRIES"`
	RateLimit   float64 `yaml:"rate_limit" env:"ASTRA_RATE_LIMIT"` // requests per second, 0 = unlimited
	WorkDir     string  `yaml:"workdir" env:"ASTRA_WORKDIR"`

	LogLevel  string `yaml:"log_level" env:"ASTRA_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" env:"ASTRA_LOG_FORMAT"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	agent := agentloop.DefaultConfig()
	return &Config{
		Provider:         "openai",
		MaxIterations:    agent.MaxIterations,
		Temperature:      agent.Temperature,
		ObservationLimit: agent.ObservationLimit,
		ToolMode:         string(agent.ToolMode),
		LoopDetection:    true,
		Concurrency:      subtask.DefaultConcurrency,
		Retries:          2,
		LogLevel:         "warn",
		LogFormat:        "console",
	}
}

// Load reads the YAML file at path (or $ASTRA_CONFIG when path is empty),
// then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := unmarshalStrict(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshalStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports settings the agent cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations))
	}
	switch agentloop.ToolMode(c.ToolMode) {
	case agentloop.ToolModeNative, agentloop.ToolModeConvention:
	default:
		errs = append(errs, fmt.Errorf("tool_mode must be %q or %q, got %q",
			agentloop.ToolModeNative, agentloop.ToolModeConvention, c.ToolMode))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %g", c.RateLimit))
	}
	if !c.Mock && c.Provider == "" {
		errs = append(errs, errors.New("provider is required unless mock is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// AgentConfig maps the process settings onto an agent configuration.
func (c *Config) AgentConfig() agentloop.Config {
	cfg := agentloop.DefaultConfig()
	cfg.MaxIterations = c.MaxIterations
	cfg.Temperature = c.Temperature
	cfg.ObservationLimit = c.ObservationLimit
	cfg.RunTimeout = c.RunTimeout
	cfg.ToolMode = agentloop.ToolMode(c.ToolMode)
	cfg.Model = c.Model
	cfg.EnableLoopDetection = c.LoopDetection
	cfg.WorkingDirectory = c.WorkDir
	return cfg
}
