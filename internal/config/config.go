// Package config provides unified configuration loading for gfcm.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/gfcm/internal/gfcm"
	"github.com/nvandessel/gfcm/internal/logging"
	"github.com/nvandessel/gfcm/internal/metrics"
	"github.com/nvandessel/gfcm/internal/sweep"
)

// GFCMConfig contains all gfcm configuration settings.
type GFCMConfig struct {
	// Simulation holds defaults for the run and sweep commands.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Sweep contains settings for concurrent lambda sweeps.
	Sweep SweepConfig `json:"sweep" yaml:"sweep"`

	// Metrics contains settings for graph metrics.
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Store contains settings for run history.
	Store StoreConfig `json:"store" yaml:"store"`

	// MCP contains settings for the MCP server.
	MCP MCPConfig `json:"mcp" yaml:"mcp"`

	// Logging contains settings for operational and step logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig sets default simulation parameters.
type SimulationConfig struct {
	// Lambda is the tanh steepness. It is not range-checked.
	Lambda float64 `json:"lambda" yaml:"lambda"`

	// Iterations is the number of propagation steps.
	Iterations int `json:"iterations" yaml:"iterations"`

	// ConvergenceTolerance is the centroid change below which a run is
	// reported as converged. The engine always runs every iteration.
	ConvergenceTolerance float64 `json:"convergence_tolerance" yaml:"convergence_tolerance"`
}

// SweepConfig configures lambda sweeps.
type SweepConfig struct {
	// Concurrency bounds the number of simultaneous runs.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// MetricsConfig configures graph metrics.
type MetricsConfig struct {
	// DampingFactor is the PageRank damping factor. Range: [0, 1)
	DampingFactor float64 `json:"damping_factor" yaml:"damping_factor"`
}

// StoreConfig configures run history.
type StoreConfig struct {
	// Enabled records every CLI run in .gfcm/gfcm.db.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Root overrides the directory holding .gfcm. Supports ${VAR} syntax.
	// Empty means the --root flag (default: current directory).
	Root string `json:"root,omitempty" yaml:"root,omitempty"`
}

// MCPConfig configures the MCP server.
type MCPConfig struct {
	// RateLimit is the sustained tool calls per second allowed per tool.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit"`

	// Burst is the number of calls allowed at once above the rate.
	Burst int `json:"burst" yaml:"burst"`

	// MaxIterations caps the iterations a gfcm_simulate call may request.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// MaxConcepts caps the number of concepts in a table passed to a tool.
	MaxConcepts int `json:"max_concepts" yaml:"max_concepts"`
}

// LoggingConfig configures gfcm's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables step logging to .gfcm/steps.jsonl.
	// "trace" additionally includes the fuzzy state of every step.
	Level string `json:"level" yaml:"level"`
}

// Default returns a GFCMConfig with sensible defaults.
func Default() *GFCMConfig {
	sim := gfcm.DefaultConfig()
	return &GFCMConfig{
		Simulation: SimulationConfig{
			Lambda:               sim.Lambda,
			Iterations:           sim.Iterations,
			ConvergenceTolerance: sweep.DefaultTolerance,
		},
		Sweep: SweepConfig{
			Concurrency: 4,
		},
		Metrics: MetricsConfig{
			DampingFactor: metrics.DefaultPageRankConfig().DampingFactor,
		},
		Store: StoreConfig{
			Enabled: true,
		},
		MCP: MCPConfig{
			RateLimit:     10,
			Burst:         20,
			MaxIterations: 1000,
			MaxConcepts:   500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the default config file location, ~/.gfcm/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".gfcm", "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.gfcm/config.yaml -> environment variables
func Load() (*GFCMConfig, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*GFCMConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Root = expandEnvVars(config.Store.Root)

	return config, nil
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *GFCMConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *GFCMConfig) Validate() error {
	if math.IsNaN(c.Simulation.Lambda) || math.IsInf(c.Simulation.Lambda, 0) {
		return fmt.Errorf("lambda must be finite, got %g", c.Simulation.Lambda)
	}

	if c.Simulation.Iterations < 0 {
		return fmt.Errorf("iterations must be non-negative, got %d", c.Simulation.Iterations)
	}

	if c.Simulation.ConvergenceTolerance < 0 {
		return fmt.Errorf("convergence_tolerance must be non-negative, got %g", c.Simulation.ConvergenceTolerance)
	}

	if c.Sweep.Concurrency < 1 {
		return fmt.Errorf("sweep concurrency must be positive, got %d", c.Sweep.Concurrency)
	}

	if !(c.Metrics.DampingFactor >= 0 && c.Metrics.DampingFactor < 1) {
		return fmt.Errorf("damping_factor must be in [0, 1), got %g", c.Metrics.DampingFactor)
	}

	if c.MCP.RateLimit <= 0 {
		return fmt.Errorf("mcp rate_limit must be positive, got %g", c.MCP.RateLimit)
	}
	if c.MCP.Burst < 1 {
		return fmt.Errorf("mcp burst must be positive, got %d", c.MCP.Burst)
	}
	if c.MCP.MaxIterations < 0 {
		return fmt.Errorf("mcp max_iterations must be non-negative, got %d", c.MCP.MaxIterations)
	}
	if c.MCP.MaxConcepts < 1 {
		return fmt.Errorf("mcp max_concepts must be positive, got %d", c.MCP.MaxConcepts)
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// SimulationDefaults returns the engine configuration described by c.
func (c *GFCMConfig) SimulationDefaults() gfcm.Config {
	return gfcm.Config{
		Lambda:     c.Simulation.Lambda,
		Iterations: c.Simulation.Iterations,
	}
}

// PageRank returns the PageRank configuration described by c.
func (c *GFCMConfig) PageRank() metrics.PageRankConfig {
	pr := metrics.DefaultPageRankConfig()
	pr.DampingFactor = c.Metrics.DampingFactor
	return pr
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *GFCMConfig) {
	if v := os.Getenv("GFCM_LAMBDA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Lambda = f
		}
	}

	if v := os.Getenv("GFCM_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Iterations = n
		}
	}

	if v := os.Getenv("GFCM_CONVERGENCE_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.ConvergenceTolerance = f
		}
	}

	if v := os.Getenv("GFCM_SWEEP_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Sweep.Concurrency = n
		}
	}

	if v := os.Getenv("GFCM_STORE_ENABLED"); v != "" {
		config.Store.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("GFCM_STORE_ROOT"); v != "" {
		config.Store.Root = v
	}

	if v := os.Getenv("GFCM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
