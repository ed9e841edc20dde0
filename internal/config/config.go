// Package config loads and validates the runner configuration.
//
// Configuration is an immutable value constructed once at startup: it is
// loaded from YAML, merged with CLI flags, validated, and then passed by
// reference into every component. No component reads ambient global state.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the recognized runner options.
type Config struct {
	// TodoDir is the directory holding pending task files.
	TodoDir string

	// DoneDir is the directory processed task files are moved into.
	DoneDir string

	// OutputDir is the directory output files are recorded into.
	OutputDir string

	// GeminiWorkingDir is the working directory the gemini CLI runs in.
	// It must exist and be a directory.
	GeminiWorkingDir string

	// GeminiModel is passed to the gemini CLI via -m when non-empty.
	GeminiModel string

	// DelayBetweenRequests is the pause between consecutive tasks in a batch.
	DelayBetweenRequests time.Duration

	// PauseOnLimitError is how long the whole loop pauses after a
	// rate-limit classification.
	PauseOnLimitError time.Duration

	// LogLevel sets console/file logging verbosity (trace, debug, info, warn, error).
	LogLevel string

	// LogDir is the directory run logs are written to.
	LogDir string

	// Watch enables the fsnotify wake-up on the todo directory. Polling
	// still happens either way; the watcher only shortens idle latency.
	Watch bool
}

// yamlConfig mirrors the on-disk format. Durations are plain numbers with
// the units the keys name, matching the recognized configuration surface.
type yamlConfig struct {
	TodoDir                     string `yaml:"todo_dir"`
	DoneDir                     string `yaml:"done_dir"`
	OutputDir                   string `yaml:"output_dir"`
	GeminiWorkingDir            string `yaml:"gemini_working_dir"`
	GeminiModel                 string `yaml:"gemini_model"`
	DelayBetweenRequestsSeconds int    `yaml:"delay_between_requests_seconds"`
	PauseOnLimitErrorMinutes    int    `yaml:"pause_on_limit_error_minutes"`
	LogLevel                    string `yaml:"log_level"`
	LogDir                      string `yaml:"log_dir"`
	Watch                       *bool  `yaml:"watch"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		TodoDir:              "tasks_todo",
		DoneDir:              "tasks_done",
		OutputDir:            "gemini_output",
		GeminiWorkingDir:     ".",
		GeminiModel:          "",
		DelayBetweenRequests: 180 * time.Second,
		PauseOnLimitError:    300 * time.Minute,
		LogLevel:             "info",
		LogDir:               ".gemrun/logs",
		Watch:                true,
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.TodoDir != "" {
		cfg.TodoDir = yc.TodoDir
	}
	if yc.DoneDir != "" {
		cfg.DoneDir = yc.DoneDir
	}
	if yc.OutputDir != "" {
		cfg.OutputDir = yc.OutputDir
	}
	if yc.GeminiWorkingDir != "" {
		cfg.GeminiWorkingDir = yc.GeminiWorkingDir
	}
	if yc.GeminiModel != "" {
		cfg.GeminiModel = yc.GeminiModel
	}
	if yc.DelayBetweenRequestsSeconds != 0 {
		cfg.DelayBetweenRequests = time.Duration(yc.DelayBetweenRequestsSeconds) * time.Second
	}
	if yc.PauseOnLimitErrorMinutes != 0 {
		cfg.PauseOnLimitError = time.Duration(yc.PauseOnLimitErrorMinutes) * time.Minute
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogDir != "" {
		cfg.LogDir = yc.LogDir
	}
	if yc.Watch != nil {
		cfg.Watch = *yc.Watch
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .gemrun/config.yaml in the
// specified directory, falling back to defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".gemrun", "config.yaml"))
}

// MergeWithFlags merges CLI flag values into the configuration.
// Non-nil pointers override configuration values, so flags take precedence
// over the config file.
func (c *Config) MergeWithFlags(workingDir *string, model *string, delay *time.Duration, pause *time.Duration, logLevel *string, logDir *string, watch *bool) {
	if workingDir != nil {
		c.GeminiWorkingDir = *workingDir
	}
	if model != nil {
		c.GeminiModel = *model
	}
	if delay != nil {
		c.DelayBetweenRequests = *delay
	}
	if pause != nil {
		c.PauseOnLimitError = *pause
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if watch != nil {
		c.Watch = *watch
	}
}

// Validate checks the static configuration values.
// Environment checks (working directory exists, gemini on PATH) are a
// separate preflight step so this stays deterministic and fast.
func (c *Config) Validate() error {
	if c.TodoDir == "" {
		return fmt.Errorf("todo_dir cannot be empty")
	}
	if c.DoneDir == "" {
		return fmt.Errorf("done_dir cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if c.TodoDir == c.DoneDir {
		return fmt.Errorf("todo_dir and done_dir must differ, both are %q", c.TodoDir)
	}
	if c.GeminiWorkingDir == "" {
		return fmt.Errorf("gemini_working_dir cannot be empty")
	}
	if c.DelayBetweenRequests < 0 {
		return fmt.Errorf("delay_between_requests_seconds must be >= 0, got %v", c.DelayBetweenRequests)
	}
	if c.PauseOnLimitError <= 0 {
		return fmt.Errorf("pause_on_limit_error_minutes must be > 0, got %v", c.PauseOnLimitError)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	return nil
}
