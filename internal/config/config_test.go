package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TodoDir != "tasks_todo" {
		t.Errorf("TodoDir = %q, want %q", cfg.TodoDir, "tasks_todo")
	}
	if cfg.DoneDir != "tasks_done" {
		t.Errorf("DoneDir = %q, want %q", cfg.DoneDir, "tasks_done")
	}
	if cfg.OutputDir != "gemini_output" {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "gemini_output")
	}
	if cfg.GeminiWorkingDir != "." {
		t.Errorf("GeminiWorkingDir = %q, want %q", cfg.GeminiWorkingDir, ".")
	}
	if cfg.DelayBetweenRequests != 180*time.Second {
		t.Errorf("DelayBetweenRequests = %v, want 180s", cfg.DelayBetweenRequests)
	}
	if cfg.PauseOnLimitError != 300*time.Minute {
		t.Errorf("PauseOnLimitError = %v, want 300m", cfg.PauseOnLimitError)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if !cfg.Watch {
		t.Error("Watch = false, want true")
	}
}

// TestLoadConfigValidFile tests loading a valid YAML config file
func TestLoadConfigValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `todo_dir: inbox
done_dir: archive
output_dir: results
gemini_working_dir: /srv/project
gemini_model: gemini-2.5-pro-001
delay_between_requests_seconds: 30
pause_on_limit_error_minutes: 60
log_level: debug
watch: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.TodoDir != "inbox" {
		t.Errorf("TodoDir = %q, want %q", cfg.TodoDir, "inbox")
	}
	if cfg.DoneDir != "archive" {
		t.Errorf("DoneDir = %q, want %q", cfg.DoneDir, "archive")
	}
	if cfg.OutputDir != "results" {
		t.Errorf("OutputDir = %q, want %q", cfg.OutputDir, "results")
	}
	if cfg.GeminiWorkingDir != "/srv/project" {
		t.Errorf("GeminiWorkingDir = %q, want %q", cfg.GeminiWorkingDir, "/srv/project")
	}
	if cfg.GeminiModel != "gemini-2.5-pro-001" {
		t.Errorf("GeminiModel = %q, want %q", cfg.GeminiModel, "gemini-2.5-pro-001")
	}
	if cfg.DelayBetweenRequests != 30*time.Second {
		t.Errorf("DelayBetweenRequests = %v, want 30s", cfg.DelayBetweenRequests)
	}
	if cfg.PauseOnLimitError != 60*time.Minute {
		t.Errorf("PauseOnLimitError = %v, want 60m", cfg.PauseOnLimitError)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Watch {
		t.Error("Watch = true, want false")
	}
}

// TestLoadConfigPartialFile verifies unset keys keep their defaults
func TestLoadConfigPartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("gemini_working_dir: /srv/project\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.GeminiWorkingDir != "/srv/project" {
		t.Errorf("GeminiWorkingDir = %q, want %q", cfg.GeminiWorkingDir, "/srv/project")
	}
	if cfg.TodoDir != "tasks_todo" {
		t.Errorf("TodoDir = %q, want default %q", cfg.TodoDir, "tasks_todo")
	}
	if cfg.DelayBetweenRequests != 180*time.Second {
		t.Errorf("DelayBetweenRequests = %v, want default 180s", cfg.DelayBetweenRequests)
	}
	if !cfg.Watch {
		t.Error("Watch = false, want default true")
	}
}

// TestLoadConfigFileNotExists tests fallback to defaults when file doesn't exist
func TestLoadConfigFileNotExists(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() should not error on missing file, got: %v", err)
	}
	if cfg.TodoDir != "tasks_todo" {
		t.Errorf("TodoDir = %q, want default %q", cfg.TodoDir, "tasks_todo")
	}
}

// TestLoadConfigMalformedYAML tests error on malformed config
func TestLoadConfigMalformedYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("todo_dir: [unclosed\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("LoadConfig() should error on malformed YAML")
	}
}

// TestMergeWithFlags verifies flags override config file values
func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()

	workingDir := "/overridden"
	delay := 5 * time.Second
	watch := false

	cfg.MergeWithFlags(&workingDir, nil, &delay, nil, nil, nil, &watch)

	if cfg.GeminiWorkingDir != "/overridden" {
		t.Errorf("GeminiWorkingDir = %q, want %q", cfg.GeminiWorkingDir, "/overridden")
	}
	if cfg.DelayBetweenRequests != 5*time.Second {
		t.Errorf("DelayBetweenRequests = %v, want 5s", cfg.DelayBetweenRequests)
	}
	if cfg.Watch {
		t.Error("Watch = true, want false")
	}
	// Untouched fields keep their values.
	if cfg.PauseOnLimitError != 300*time.Minute {
		t.Errorf("PauseOnLimitError = %v, want 300m", cfg.PauseOnLimitError)
	}
}

// TestValidate verifies validation of static config values
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"empty todo_dir", func(c *Config) { c.TodoDir = "" }, true},
		{"empty done_dir", func(c *Config) { c.DoneDir = "" }, true},
		{"empty output_dir", func(c *Config) { c.OutputDir = "" }, true},
		{"todo and done collide", func(c *Config) { c.DoneDir = c.TodoDir }, true},
		{"empty working dir", func(c *Config) { c.GeminiWorkingDir = "" }, true},
		{"negative delay", func(c *Config) { c.DelayBetweenRequests = -time.Second }, true},
		{"zero pause", func(c *Config) { c.PauseOnLimitError = 0 }, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"zero delay is allowed", func(c *Config) { c.DelayBetweenRequests = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
