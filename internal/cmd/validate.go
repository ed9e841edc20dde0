package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gemrun/gemrun/internal/config"
	"github.com/gemrun/gemrun/internal/gemini"
	"github.com/spf13/cobra"
)

// NewValidateCommand creates and returns the validate subcommand
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the environment without processing any tasks",
		Long: `Run the same startup checks as the run command and report the result:
  - The gemini CLI is installed and on PATH
  - The gemini working directory exists
  - The configuration is valid
  - The state of the todo, done, and output folders

Exit code: 0 if the environment is ready, 1 if anything is wrong`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildRunConfig(cmd)
			if err != nil {
				return err
			}
			return validateEnvironment(cfg, cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .gemrun/config.yaml)")
	cmd.Flags().String("working-dir", "", "Directory the gemini CLI runs in")
	cmd.Flags().String("model", "", "Model passed to gemini via -m")
	cmd.Flags().String("delay", "", "Delay between consecutive tasks (e.g., 30s, 3m)")
	cmd.Flags().String("pause", "", "Pause after a rate-limit error (e.g., 1h, 5h)")
	cmd.Flags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	cmd.Flags().String("log-dir", "", "Directory for run log files")
	cmd.Flags().Bool("no-watch", false, "Disable filesystem wake-ups, rely on polling only")

	return cmd
}

// checkEnvironment verifies the pieces gemrun cannot create for itself:
// the gemini binary and the working directory it should run in. Errors
// include a remediation hint because this is the first thing a new user
// hits.
func checkEnvironment(cfg *config.Config) error {
	info, err := os.Stat(cfg.GeminiWorkingDir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("gemini working directory %s does not exist\n\nCreate it, or point gemini_working_dir (or --working-dir) at an existing project directory", cfg.GeminiWorkingDir)
		}
		return fmt.Errorf("failed to access gemini working directory %s: %w", cfg.GeminiWorkingDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("gemini working directory %s is not a directory", cfg.GeminiWorkingDir)
	}

	invoker := gemini.NewInvoker(cfg.GeminiWorkingDir, cfg.GeminiModel)
	if _, err := invoker.CheckInstalled(); err != nil {
		return fmt.Errorf("%w\n\nInstall it with: npm install -g @google/gemini-cli", err)
	}

	return nil
}

// validateEnvironment prints a readiness report for the given configuration.
func validateEnvironment(cfg *config.Config, out io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine current directory: %w", err)
	}

	fmt.Fprintf(out, "Checking environment from %s\n", cwd)
	if exe, err := os.Executable(); err == nil {
		fmt.Fprintf(out, "gemrun binary: %s\n", exe)
	}
	fmt.Fprintf(out, "\n")

	invoker := gemini.NewInvoker(cfg.GeminiWorkingDir, cfg.GeminiModel)
	binPath, err := invoker.CheckInstalled()
	if err != nil {
		fmt.Fprintf(out, "  gemini CLI:        NOT FOUND on PATH\n")
		return fmt.Errorf("%w\n\nInstall it with: npm install -g @google/gemini-cli", err)
	}
	fmt.Fprintf(out, "  gemini CLI:        %s\n", binPath)

	workingDir := cfg.GeminiWorkingDir
	if abs, err := filepath.Abs(workingDir); err == nil {
		workingDir = abs
	}
	info, err := os.Stat(cfg.GeminiWorkingDir)
	switch {
	case err != nil && os.IsNotExist(err):
		fmt.Fprintf(out, "  working directory: %s MISSING\n", workingDir)
		return fmt.Errorf("gemini working directory %s does not exist\n\nCreate it, or point gemini_working_dir (or --working-dir) at an existing project directory", cfg.GeminiWorkingDir)
	case err != nil:
		return fmt.Errorf("failed to access gemini working directory %s: %w", cfg.GeminiWorkingDir, err)
	case !info.IsDir():
		fmt.Fprintf(out, "  working directory: %s NOT A DIRECTORY\n", workingDir)
		return fmt.Errorf("gemini working directory %s is not a directory", cfg.GeminiWorkingDir)
	}
	fmt.Fprintf(out, "  working directory: %s\n", workingDir)

	if cfg.GeminiModel != "" {
		fmt.Fprintf(out, "  model:             %s\n", cfg.GeminiModel)
	}

	folders := []struct {
		label string
		path  string
	}{
		{"todo folder", cfg.TodoDir},
		{"done folder", cfg.DoneDir},
		{"output folder", cfg.OutputDir},
	}
	fmt.Fprintf(out, "\n")
	for _, f := range folders {
		if _, err := os.Stat(f.path); err == nil {
			fmt.Fprintf(out, "  %-14s %s\n", f.label+":", f.path)
		} else {
			fmt.Fprintf(out, "  %-14s %s (created on first run)\n", f.label+":", f.path)
		}
	}

	fmt.Fprintf(out, "\nEnvironment is ready. Drop task files into %s and run: gemrun run\n", cfg.TodoDir)
	return nil
}
