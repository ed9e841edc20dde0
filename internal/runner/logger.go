package runner

import (
	"time"

	"github.com/gemrun/gemrun/internal/models"
)

// Logger receives the runner's status events. Console and file loggers
// implement it; the runner never cares where the lines go.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)

	// LogBatchStart announces how many pending tasks the poll found.
	LogBatchStart(count int)

	// LogTaskStart announces that a task is about to be processed.
	LogTaskStart(name string)

	// LogTaskResult reports a task's terminal classification. Every task
	// outcome is distinguishable from this one event.
	LogTaskResult(result models.TaskResult)

	// LogPause announces a scheduler sleep: the inter-task delay, the
	// rate-limit pause, or the recovery interval.
	LogPause(reason string, d time.Duration)
}

// NopLogger discards all events. Useful in tests.
type NopLogger struct{}

func (NopLogger) LogDebug(string)                 {}
func (NopLogger) LogInfo(string)                  {}
func (NopLogger) LogWarn(string)                  {}
func (NopLogger) LogError(string)                 {}
func (NopLogger) LogBatchStart(int)               {}
func (NopLogger) LogTaskStart(string)             {}
func (NopLogger) LogTaskResult(models.TaskResult) {}
func (NopLogger) LogPause(string, time.Duration)  {}
