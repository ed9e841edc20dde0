// Package gemini provides utilities for invoking the gemini CLI.
package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/gemrun/gemrun/internal/models"
)

// DefaultBinary is the gemini executable name resolved via PATH.
const DefaultBinary = "gemini"

// Invoker is a reusable client for running gemini over task prompts.
// It follows the http.Client pattern: create once, use many times.
type Invoker struct {
	// Path is the gemini binary. Defaults to DefaultBinary (found in PATH).
	Path string

	// WorkingDir is the directory gemini runs in. Required: gemini acts on
	// the project at its current directory.
	WorkingDir string

	// Model is passed via -m when non-empty. When empty the CLI's own
	// default model applies.
	Model string
}

// NewInvoker creates an Invoker running gemini from PATH in workingDir.
func NewInvoker(workingDir, model string) *Invoker {
	return &Invoker{
		Path:       DefaultBinary,
		WorkingDir: workingDir,
		Model:      model,
	}
}

// CheckInstalled verifies the configured binary is resolvable. For the
// default configuration this means gemini is on PATH. Returns the resolved
// path on success.
func (inv *Invoker) CheckInstalled() (string, error) {
	path := inv.Path
	if path == "" {
		path = DefaultBinary
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", fmt.Errorf("gemini command not found: %w", err)
	}
	return resolved, nil
}

// Invoke runs one non-interactive gemini process with prompt on its standard
// input and both output streams captured in full. It blocks until the
// process exits.
//
// A non-zero exit is a normal, expected outcome reported through
// ExecutionResult.ExitCode, never as an error. Only the inability to start
// the process (binary missing, working directory gone) returns an error.
func (inv *Invoker) Invoke(ctx context.Context, prompt string) (*models.ExecutionResult, error) {
	path := inv.Path
	if path == "" {
		path = DefaultBinary
	}

	// -a approves all actions so gemini never blocks on a prompt.
	args := []string{"-a"}
	if inv.Model != "" {
		args = append(args, "-m", inv.Model)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = inv.WorkingDir
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &models.ExecutionResult{
				ExitCode: exitErr.ExitCode(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}, nil
		}
		return nil, fmt.Errorf("failed to launch gemini: %w", err)
	}

	return &models.ExecutionResult{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}
