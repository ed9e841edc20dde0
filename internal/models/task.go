// Package models defines the shared types passed between the queue, the
// runner and the loggers.
package models

import "time"

// Classification is the terminal outcome of one processing attempt for a task.
type Classification string

const (
	// ClassSuccess means the gemini invocation exited zero and the output
	// was recorded.
	ClassSuccess Classification = "success"

	// ClassRateLimited means the invocation failed with a rate-limit
	// signature on stderr. The task stays in the todo directory and the
	// loop pauses before retrying.
	ClassRateLimited Classification = "rate_limited"

	// ClassFailed means the invocation failed for any other reason. The
	// task is archived so it cannot block the queue; it is not retried.
	ClassFailed Classification = "failed"

	// ClassSkippedEmpty means the task file was empty or whitespace-only.
	// It is archived without invoking gemini.
	ClassSkippedEmpty Classification = "skipped_empty"

	// ClassMissing means the task file vanished between listing and
	// processing, which is treated as already handled.
	ClassMissing Classification = "missing"
)

// TaskResult describes what happened to a single task during one poll cycle.
type TaskResult struct {
	// Name is the task's filename inside the todo directory.
	Name string

	// Classification is the terminal outcome for this attempt.
	Classification Classification

	// OutputPath is the recorded output file, set only on success.
	OutputPath string

	// Stderr holds the tool's captured error stream for failed or
	// rate-limited attempts, for diagnostics.
	Stderr string

	// Err is the task-level error when processing itself failed (I/O
	// errors and the like), nil for clean outcomes.
	Err error

	// Duration is the wall time spent on this attempt, including the
	// gemini invocation.
	Duration time.Duration
}

// ExecutionResult is the transient outcome of one external gemini process.
// It is produced by the invoker and consumed immediately by the processor;
// it is never persisted.
type ExecutionResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}
