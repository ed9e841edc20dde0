package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gemrun/gemrun/internal/models"
)

// FileLogger appends runner events to a per-run log file in the log
// directory and maintains a latest.log symlink pointing at the current run.
// It is thread-safe and supports the same level filtering as ConsoleLogger.
type FileLogger struct {
	logDir   string
	runID    string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates a FileLogger in logDir, creating the directory if
// needed. Each run gets a fresh file named run-<timestamp>-<runid>.log,
// where the run ID is a random UUID also exposed via RunID for the startup
// banner.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	runID := uuid.NewString()
	shortID := runID[:8]
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s-%s.log", time.Now().Format("20060102-150405"), shortID))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	// latest.log always points at the current run.
	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	fl := &FileLogger{
		logDir:   logDir,
		runID:    runID,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	fl.write(fmt.Sprintf("=== gemrun run %s ===\n", runID))
	fl.write(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return fl, nil
}

// RunID returns this run's UUID.
func (fl *FileLogger) RunID() string {
	return fl.runID
}

// Path returns the run log file path.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return nil
	}
	err := fl.runLog.Close()
	fl.runLog = nil
	return err
}

func (fl *FileLogger) write(s string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	if fl.runLog == nil {
		return
	}
	fl.runLog.WriteString(s)
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) logWithLevel(level, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogTrace logs a trace-level message.
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

// LogBatchStart logs the size of a freshly listed batch.
func (fl *FileLogger) LogBatchStart(count int) {
	if !fl.shouldLog("info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] Found %d task(s), starting batch\n", timestamp(), count))
}

// LogTaskStart logs that a task is being processed.
func (fl *FileLogger) LogTaskStart(name string) {
	if !fl.shouldLog("info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] Processing task: %s\n", timestamp(), name))
}

// LogTaskResult logs a task's terminal classification.
func (fl *FileLogger) LogTaskResult(result models.TaskResult) {
	if !fl.shouldLog("info") {
		return
	}

	ts := timestamp()
	switch result.Classification {
	case models.ClassSuccess:
		fl.write(fmt.Sprintf("[%s]   OK %s processed in %s, output: %s\n",
			ts, result.Name, formatDuration(result.Duration), result.OutputPath))
	case models.ClassRateLimited:
		fl.write(fmt.Sprintf("[%s]   RATE LIMIT %s stays pending, stderr: %s\n", ts, result.Name, result.Stderr))
	case models.ClassFailed:
		fl.write(fmt.Sprintf("[%s]   FAILED %s archived: %v, stderr: %s\n", ts, result.Name, result.Err, result.Stderr))
	case models.ClassSkippedEmpty:
		fl.write(fmt.Sprintf("[%s]   task %s is empty, moved to done\n", ts, result.Name))
	case models.ClassMissing:
		fl.write(fmt.Sprintf("[%s]   task %s already handled\n", ts, result.Name))
	default:
		fl.write(fmt.Sprintf("[%s]   task %s: %s\n", ts, result.Name, result.Classification))
	}
}

// LogPause logs a scheduler sleep with its reason and duration.
func (fl *FileLogger) LogPause(reason string, d time.Duration) {
	if !fl.shouldLog("info") {
		return
	}
	fl.write(fmt.Sprintf("[%s] Pausing %s (%s)\n", timestamp(), formatDuration(d), reason))
}
