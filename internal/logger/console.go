// Package logger provides the console and file loggers for runner status
// output. Implementations are thread-safe; every task's terminal
// classification is a distinguishable status line.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/gemrun/gemrun/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger writes status lines to a writer with [HH:MM:SS] timestamps.
// Color output is enabled automatically when the writer is a TTY.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to w.
// If w is nil, messages are silently discarded.
// logLevel is one of trace, debug, info, warn, error (case-insensitive);
// empty or invalid levels default to "info".
func NewConsoleLogger(w io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      w,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that supports colors.
// Honors NO_COLOR via the color library's detection.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel lowercases and validates a level, defaulting to "info".
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))
	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil {
		return
	}
	if !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	if cl.colorOutput {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, level, message)
	}
}

func colorLevel(level string) string {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// LogBatchStart logs the size of a freshly listed batch at INFO level.
// Format: "[HH:MM:SS] Found <n> task(s), starting batch"
func (cl *ConsoleLogger) LogBatchStart(count int) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	msg := fmt.Sprintf("Found %d task(s), starting batch", count)
	if cl.colorOutput {
		msg = color.New(color.Bold).Sprint(msg)
	}
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), msg)
}

// LogTaskStart logs that a task is being processed at INFO level.
func (cl *ConsoleLogger) LogTaskStart(name string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	fmt.Fprintf(cl.writer, "[%s] Processing task: %s\n", timestamp(), name)
}

// LogTaskResult logs a task's terminal classification at INFO level.
// Each classification renders distinctly so outcomes can be told apart in
// the output stream.
func (cl *ConsoleLogger) LogTaskResult(result models.TaskResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	switch result.Classification {
	case models.ClassSuccess:
		status := "OK"
		if cl.colorOutput {
			status = color.New(color.FgGreen).Sprint(status)
		}
		fmt.Fprintf(cl.writer, "[%s]   %s %s processed in %s, output: %s\n",
			ts, status, result.Name, formatDuration(result.Duration), result.OutputPath)

	case models.ClassRateLimited:
		status := "RATE LIMIT"
		if cl.colorOutput {
			status = color.New(color.FgYellow).Sprint(status)
		}
		fmt.Fprintf(cl.writer, "[%s]   %s %s stays pending\n", ts, status, result.Name)
		if result.Stderr != "" {
			fmt.Fprintf(cl.writer, "[%s]   stderr: %s\n", ts, result.Stderr)
		}

	case models.ClassFailed:
		status := "FAILED"
		if cl.colorOutput {
			status = color.New(color.FgRed).Sprint(status)
		}
		fmt.Fprintf(cl.writer, "[%s]   %s %s archived: %v\n", ts, status, result.Name, result.Err)
		if result.Stderr != "" {
			fmt.Fprintf(cl.writer, "[%s]   stderr: %s\n", ts, result.Stderr)
		}

	case models.ClassSkippedEmpty:
		fmt.Fprintf(cl.writer, "[%s]   task %s is empty, moved to done\n", ts, result.Name)

	case models.ClassMissing:
		fmt.Fprintf(cl.writer, "[%s]   task %s already handled\n", ts, result.Name)

	default:
		fmt.Fprintf(cl.writer, "[%s]   task %s: %s\n", ts, result.Name, result.Classification)
	}
}

// LogPause logs a scheduler sleep with its reason and duration at INFO level.
func (cl *ConsoleLogger) LogPause(reason string, d time.Duration) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	msg := fmt.Sprintf("Pausing %s (%s)", formatDuration(d), reason)
	if cl.colorOutput && reason == "rate limit" {
		msg = color.New(color.FgYellow).Sprint(msg)
	}
	fmt.Fprintf(cl.writer, "[%s] %s\n", timestamp(), msg)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, remainder/time.Second)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		return fmt.Sprintf("%dm%ds", minutes, remainder/time.Second)
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}
