// Package config handles the .loom directory structure and config.yaml.
// Every project tracked by loom gets a .loom/ folder created in its root.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LoomDir is the name of the directory created in each project.
const LoomDir = ".loom"

const defaultConfigYAML = `# loom project configuration
version: 1

# Allow at most one task per plan in planning/in_progress at a time.
single_focus: false

recorder:
  workers: 2
  queue_size: 256
  attempt_limit_ms: 2000
`

// RecorderConfig tunes the background recording pool.
type RecorderConfig struct {
	Workers        int `yaml:"workers"`
	QueueSize      int `yaml:"queue_size"`
	AttemptLimitMS int `yaml:"attempt_limit_ms"`
}

// AttemptLimit returns the per-delivery bound as a duration.
func (rc RecorderConfig) AttemptLimit() time.Duration {
	return time.Duration(rc.AttemptLimitMS) * time.Millisecond
}

// ProjectConfig models .loom/config.yaml.
type ProjectConfig struct {
	Version     int            `yaml:"version"`
	SingleFocus bool           `yaml:"single_focus"`
	Recorder    RecorderConfig `yaml:"recorder"`
}

// Config holds the runtime configuration for loom.
type Config struct {
	// ProjectDir is the directory where the user ran loom from.
	ProjectDir string

	// LoomProjectDir is ProjectDir/.loom.
	LoomProjectDir string

	Project ProjectConfig
}

// InitLoomDir creates the .loom directory structure in the given project
// directory.
//
// Structure created:
// .loom/
// ├── workstreams/  <- One JSON document per workstream
// ├── events/       <- Append-only recorded-event streams (JSONL)
// └── logs/         <- Diagnostics log
func InitLoomDir(projectDir string) error {
	loomDir := filepath.Join(projectDir, LoomDir)
	dirs := []string{
		filepath.Join(loomDir, "workstreams"),
		filepath.Join(loomDir, "events"),
		filepath.Join(loomDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(loomDir, "config.yaml"))
}

// New creates a Config populated with project settings.
func New(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:     projectDir,
		LoomProjectDir: filepath.Join(projectDir, LoomDir),
		Project:        defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WorkstreamsDir returns the directory holding workstream documents.
func (c *Config) WorkstreamsDir() string {
	return filepath.Join(c.LoomProjectDir, "workstreams")
}

// EventsDir returns the directory holding recorded-event streams.
func (c *Config) EventsDir() string {
	return filepath.Join(c.LoomProjectDir, "events")
}

// LogsDir returns the diagnostics log directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.LoomProjectDir, "logs")
}

// ProjectConfigPath returns the on-disk location of config.yaml.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.LoomProjectDir, "config.yaml")
}

// SingleFocus reports whether single-focus selection is enabled.
func (c *Config) SingleFocus() bool {
	return c.Project.SingleFocus
}

// Recorder returns the recorder pool settings.
func (c *Config) Recorder() RecorderConfig {
	return c.Project.Recorder
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Recorder: RecorderConfig{
			Workers:        2,
			QueueSize:      256,
			AttemptLimitMS: 2000,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Recorder.Workers == 0 {
		pc.Recorder.Workers = 2
	}
	if pc.Recorder.QueueSize == 0 {
		pc.Recorder.QueueSize = 256
	}
	if pc.Recorder.AttemptLimitMS == 0 {
		pc.Recorder.AttemptLimitMS = 2000
	}
}

func (pc ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Recorder.Workers < 1 {
		return fmt.Errorf("recorder.workers must be >= 1")
	}
	if pc.Recorder.QueueSize < 1 {
		return fmt.Errorf("recorder.queue_size must be >= 1")
	}
	if pc.Recorder.AttemptLimitMS < 1 {
		return fmt.Errorf("recorder.attempt_limit_ms must be >= 1")
	}
	return nil
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
