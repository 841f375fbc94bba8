package config

import (
	"fmt"
	"time"
)

// Config represents the full application configuration.
type Config struct {
	Git           GitConfig           `yaml:"git"`
	Workspace     WorkspaceConfig     `yaml:"workspace"`
	Sync          SyncConfig          `yaml:"sync"`
	Store         StoreConfig         `yaml:"store"`
	Output        OutputConfig        `yaml:"output"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// GitConfig locates the repository under review.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// WorkspaceConfig locates live working content. When Root is empty the
// repository directory doubles as the workspace root.
type WorkspaceConfig struct {
	Root string `yaml:"root"`
}

// SyncConfig holds retry settings for repository operations during a
// sync pass.
type SyncConfig struct {
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// StoreConfig configures the persistence layer.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// OutputConfig configures where report artifacts are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug, info, warn, error
	File    string `yaml:"file"`  // empty means stderr
}

// MetricsConfig configures in-process metrics collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Validate checks the configuration for values that would fail later in
// confusing ways.
func (c Config) Validate() error {
	if err := c.Sync.validate(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := c.Observability.Logging.validate(); err != nil {
		return fmt.Errorf("observability.logging: %w", err)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store: path is required when the store is enabled")
	}
	return nil
}

func (c SyncConfig) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must not be negative")
	}
	if c.BackoffMultiplier != 0 && c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoffMultiplier must be at least 1")
	}
	for _, field := range []struct {
		name  string
		value string
	}{
		{"initialBackoff", c.InitialBackoff},
		{"maxBackoff", c.MaxBackoff},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return nil
}

func (c LoggingConfig) validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error", "fatal":
		return nil
	default:
		return fmt.Errorf("unknown level %q", c.Level)
	}
}

// Merge combines multiple configuration instances, prioritising the latter ones.
func Merge(configs ...Config) Config {
	result := Config{}
	for _, cfg := range configs {
		result = merge(result, cfg)
	}
	return result
}

func merge(base, overlay Config) Config {
	result := base

	result.Git = chooseGit(base.Git, overlay.Git)
	result.Workspace = chooseWorkspace(base.Workspace, overlay.Workspace)
	result.Sync = chooseSync(base.Sync, overlay.Sync)
	result.Store = chooseStore(base.Store, overlay.Store)
	result.Output = chooseOutput(base.Output, overlay.Output)
	result.Observability = chooseObservability(base.Observability, overlay.Observability)

	return result
}

func chooseGit(base, overlay GitConfig) GitConfig {
	if overlay.RepositoryDir != "" {
		return overlay
	}
	return base
}

func chooseWorkspace(base, overlay WorkspaceConfig) WorkspaceConfig {
	if overlay.Root != "" {
		return overlay
	}
	return base
}

func chooseSync(base, overlay SyncConfig) SyncConfig {
	if overlay.MaxRetries != 0 || overlay.InitialBackoff != "" || overlay.MaxBackoff != "" || overlay.BackoffMultiplier != 0 {
		return overlay
	}
	return base
}

func chooseStore(base, overlay StoreConfig) StoreConfig {
	if overlay.Enabled || overlay.Path != "" {
		return overlay
	}
	return base
}

func chooseOutput(base, overlay OutputConfig) OutputConfig {
	if overlay.Directory != "" {
		return overlay
	}
	return base
}

func chooseObservability(base, overlay ObservabilityConfig) ObservabilityConfig {
	result := base

	if overlay.Logging.Enabled || overlay.Logging.Level != "" || overlay.Logging.File != "" {
		result.Logging = overlay.Logging
	}
	if overlay.Metrics.Enabled {
		result.Metrics = overlay.Metrics
	}

	return result
}

// RetryDurations parses the sync backoff strings, falling back to the
// given defaults when unset.
func (c SyncConfig) RetryDurations(defaultInitial, defaultMax time.Duration) (initial, max time.Duration) {
	initial = defaultInitial
	max = defaultMax
	if d, err := time.ParseDuration(c.InitialBackoff); err == nil && c.InitialBackoff != "" {
		initial = d
	}
	if d, err := time.ParseDuration(c.MaxBackoff); err == nil && c.MaxBackoff != "" {
		max = d
	}
	return initial, max
}
