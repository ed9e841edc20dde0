package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gemrun/gemrun/internal/config"
	"github.com/gemrun/gemrun/internal/filelock"
	"github.com/gemrun/gemrun/internal/gemini"
	"github.com/gemrun/gemrun/internal/logger"
	"github.com/gemrun/gemrun/internal/models"
	"github.com/gemrun/gemrun/internal/queue"
	"github.com/gemrun/gemrun/internal/runner"
	"github.com/spf13/cobra"
)

// lockFileName is created inside the todo directory to keep a second
// gemrun instance from racing this one over the same queue.
const lockFileName = ".gemrun.lock"

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued task files until interrupted",
		Long: `Start the task loop: list the todo folder, send each task file to the
gemini CLI in order, record the response, and move the task to the done
folder. When the queue is empty the loop keeps polling for new files.

Tasks that hit a quota or rate-limit error stay in the todo folder and
the loop pauses before trying again. Tasks that fail for any other
reason are moved to the done folder without an output file.

Configuration is loaded from .gemrun/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  gemrun run                              # Use .gemrun/config.yaml or defaults
  gemrun run --working-dir ~/myproject    # Run gemini inside a project
  gemrun run --model gemini-2.5-pro       # Pin a model
  gemrun run --delay 30s                  # Shorter gap between tasks
  gemrun run --pause 1h                   # Shorter rate-limit pause
  gemrun run --no-watch                   # Poll only, no fsnotify wake-ups
  gemrun run --config custom.yaml         # Use a custom config file`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	// Add flags
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

// runCommand implements the run command logic
func runCommand(cmd *cobra.Command, args []string) error {
	cfg, err := buildRunConfig(cmd)
	if err != nil {
		return err
	}

	// Fail fast on a broken environment before touching the queue
	if err := checkEnvironment(cfg); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	// Create console logger for real-time progress
	consoleLog := logger.NewConsoleLogger(out, cfg.LogLevel)

	// Create file logger for the durable run log
	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	// Create multi-logger that writes to both console and file
	multiLog := &multiLogger{
		loggers: []runner.Logger{consoleLog, fileLog},
	}

	// Bootstrap queue directories
	store := queue.NewStore(cfg.TodoDir, cfg.DoneDir)
	created, err := store.EnsureDirs()
	if err != nil {
		return err
	}
	recorder := queue.NewRecorder(cfg.OutputDir)
	if madeOutput, err := recorder.EnsureDir(); err != nil {
		return err
	} else if madeOutput {
		created = append(created, cfg.OutputDir)
	}
	for _, dir := range created {
		multiLog.LogInfo(fmt.Sprintf("created folder: %s", dir))
	}

	// One instance per queue. The lock lives in the todo directory so two
	// runs pointed at the same queue collide even with different configs.
	lock, err := filelock.Acquire(filepath.Join(cfg.TodoDir, lockFileName))
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return fmt.Errorf("another gemrun instance is already processing %s", cfg.TodoDir)
		}
		return fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer lock.Release()

	invoker := gemini.NewInvoker(cfg.GeminiWorkingDir, cfg.GeminiModel)
	proc := runner.NewProcessor(store, recorder, invoker, multiLog)
	sched := runner.NewScheduler(store, proc, multiLog, runner.SystemClock{}, runner.Options{
		InterTaskDelay: cfg.DelayBetweenRequests,
		RateLimitPause: cfg.PauseOnLimitError,
	})

	// Filesystem wake-ups cut the idle poll short when a task file lands.
	// Polling stays on either way, so a watch failure is not fatal.
	if cfg.Watch {
		watcher, werr := runner.NewWatcher(cfg.TodoDir)
		if werr != nil {
			multiLog.LogWarn(fmt.Sprintf("filesystem watch unavailable, falling back to polling: %v", werr))
		} else {
			defer watcher.Close()
			sched.SetWake(watcher.Wake())
		}
	}

	fmt.Fprintf(out, "Run %s started\n", fileLog.RunID())
	fmt.Fprintf(out, "  Working dir:   %s\n", cfg.GeminiWorkingDir)
	fmt.Fprintf(out, "  Todo folder:   %s\n", cfg.TodoDir)
	fmt.Fprintf(out, "  Done folder:   %s\n", cfg.DoneDir)
	fmt.Fprintf(out, "  Output folder: %s\n", cfg.OutputDir)
	fmt.Fprintf(out, "  Run log:       %s\n", fileLog.Path())
	fmt.Fprintf(out, "Press Ctrl+C to stop.\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Run(ctx)

	fmt.Fprintf(out, "\nStopped. Tasks still in %s will be picked up by the next run.\n", cfg.TodoDir)
	return nil
}

// buildRunConfig loads the configuration file and merges CLI flags over it.
func buildRunConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	var cfg *config.Config
	var err error

	if configPath != "" {
		// An explicitly named config file must exist; only the implicit
		// .gemrun/config.yaml lookup may fall back to defaults.
		if _, statErr := os.Stat(configPath); statErr != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, statErr)
		}
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Build flag pointers for merge (only values the user actually set)
	var workingDirPtr *string
	if cmd.Flags().Changed("working-dir") {
		v, _ := cmd.Flags().GetString("working-dir")
		workingDirPtr = &v
	}

	var modelPtr *string
	if cmd.Flags().Changed("model") {
		v, _ := cmd.Flags().GetString("model")
		modelPtr = &v
	}

	var delayPtr *time.Duration
	if cmd.Flags().Changed("delay") {
		s, _ := cmd.Flags().GetString("delay")
		d, perr := time.ParseDuration(s)
		if perr != nil {
			return nil, fmt.Errorf("invalid delay format %q: %w", s, perr)
		}
		delayPtr = &d
	}

	var pausePtr *time.Duration
	if cmd.Flags().Changed("pause") {
		s, _ := cmd.Flags().GetString("pause")
		d, perr := time.ParseDuration(s)
		if perr != nil {
			return nil, fmt.Errorf("invalid pause format %q: %w", s, perr)
		}
		pausePtr = &d
	}

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &v
	}

	var logDirPtr *string
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDirPtr = &v
	}

	var watchPtr *bool
	if cmd.Flags().Changed("no-watch") {
		noWatch, _ := cmd.Flags().GetBool("no-watch")
		watch := !noWatch
		watchPtr = &watch
	}

	// Merge CLI flags with config (flags take precedence)
	cfg.MergeWithFlags(workingDirPtr, modelPtr, delayPtr, pausePtr, logLevelPtr, logDirPtr, watchPtr)

	// Validate merged configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// multiLogger implements runner.Logger by delegating to multiple loggers
type multiLogger struct {
	loggers []runner.Logger
}

func (ml *multiLogger) LogDebug(message string) {
	for _, l := range ml.loggers {
		l.LogDebug(message)
	}
}

func (ml *multiLogger) LogInfo(message string) {
	for _, l := range ml.loggers {
		l.LogInfo(message)
	}
}

func (ml *multiLogger) LogWarn(message string) {
	for _, l := range ml.loggers {
		l.LogWarn(message)
	}
}

func (ml *multiLogger) LogError(message string) {
	for _, l := range ml.loggers {
		l.LogError(message)
	}
}

func (ml *multiLogger) LogBatchStart(count int) {
	for _, l := range ml.loggers {
		l.LogBatchStart(count)
	}
}

func (ml *multiLogger) LogTaskStart(name string) {
	for _, l := range ml.loggers {
		l.LogTaskStart(name)
	}
}

func (ml *multiLogger) LogTaskResult(result models.TaskResult) {
	for _, l := range ml.loggers {
		l.LogTaskResult(result)
	}
}

func (ml *multiLogger) LogPause(reason string, d time.Duration) {
	for _, l := range ml.loggers {
		l.LogPause(reason, d)
	}
}
