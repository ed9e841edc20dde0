package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gemrun/gemrun/internal/models"
	"github.com/gemrun/gemrun/internal/queue"
)

// Directive tells the scheduler loop how to proceed after one task.
type Directive int

const (
	// Continue moves on to the next pending task.
	Continue Directive = iota

	// RateLimitPause aborts the current batch and pauses the whole loop.
	// The task stays pending and is retried after the pause.
	RateLimitPause
)

// ToolInvoker runs one external gemini process over a prompt.
type ToolInvoker interface {
	Invoke(ctx context.Context, prompt string) (*models.ExecutionResult, error)
}

// Processor applies the per-task state machine: existence check, empty-task
// short circuit, invocation, classification, and the matching store and
// recorder actions.
type Processor struct {
	store    *queue.Store
	recorder *queue.Recorder
	invoker  ToolInvoker
	logger   Logger
}

// NewProcessor creates a Processor over the given collaborators.
// A nil logger falls back to NopLogger.
func NewProcessor(store *queue.Store, recorder *queue.Recorder, invoker ToolInvoker, logger Logger) *Processor {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Processor{
		store:    store,
		recorder: recorder,
		invoker:  invoker,
		logger:   logger,
	}
}

// Process handles one pending task and returns the scheduler directive.
//
// Errors never escape: a rate-limit classification leaves the task pending
// and yields RateLimitPause, every other failure archives the task (so a
// single bad task cannot wedge the queue) and yields Continue. Failed tasks
// are not retried; their one attempt consumes them.
func (p *Processor) Process(ctx context.Context, name string) Directive {
	p.logger.LogTaskStart(name)
	start := time.Now()

	result := p.process(ctx, name)
	result.Name = name
	result.Duration = time.Since(start)

	p.logger.LogTaskResult(result)

	if result.Classification == models.ClassRateLimited {
		return RateLimitPause
	}
	return Continue
}

func (p *Processor) process(ctx context.Context, name string) models.TaskResult {
	content, err := p.store.ReadContent(name)
	if err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			// Vanished between listing and read: already handled.
			return models.TaskResult{Classification: models.ClassMissing}
		}
		// Unreadable task. Archive it so the queue keeps moving.
		return p.fail(name, "", err)
	}

	if strings.TrimSpace(content) == "" {
		if err := p.store.MarkDone(name); err != nil && !errors.Is(err, queue.ErrNotFound) {
			return p.fail(name, "", err)
		}
		return models.TaskResult{Classification: models.ClassSkippedEmpty}
	}

	exec, err := p.invoker.Invoke(ctx, content)
	if err != nil {
		// Launch failure, not a tool failure. Same recovery: archive and
		// continue, the error stays visible in the result.
		return p.fail(name, "", err)
	}

	switch Classify(exec.ExitCode, exec.Stderr) {
	case models.ClassRateLimited:
		// Leave the task pending so the retry after the pause picks it up.
		return models.TaskResult{
			Classification: models.ClassRateLimited,
			Stderr:         strings.TrimSpace(exec.Stderr),
		}

	case models.ClassFailed:
		if err := p.store.MarkDone(name); err != nil && !errors.Is(err, queue.ErrNotFound) {
			p.logger.LogError(fmt.Sprintf("failed to archive %s: %v", name, err))
		}
		return models.TaskResult{
			Classification: models.ClassFailed,
			Stderr:         strings.TrimSpace(exec.Stderr),
			Err:            fmt.Errorf("gemini exited with code %d", exec.ExitCode),
		}

	default:
		// Record strictly before MarkDone: a crash between the two leaves a
		// recorded-but-pending task, which is safe to reprocess.
		outputPath, err := p.recorder.Record(name, exec.Stdout)
		if err != nil {
			return p.fail(name, exec.Stderr, err)
		}
		if err := p.store.MarkDone(name); err != nil && !errors.Is(err, queue.ErrNotFound) {
			return models.TaskResult{
				Classification: models.ClassFailed,
				OutputPath:     outputPath,
				Err:            err,
			}
		}
		return models.TaskResult{
			Classification: models.ClassSuccess,
			OutputPath:     outputPath,
		}
	}
}

// fail archives the task and returns a Failed result carrying err.
func (p *Processor) fail(name, stderr string, err error) models.TaskResult {
	if mdErr := p.store.MarkDone(name); mdErr != nil && !errors.Is(mdErr, queue.ErrNotFound) {
		p.logger.LogError(fmt.Sprintf("failed to archive %s: %v", name, mdErr))
	}
	return models.TaskResult{
		Classification: models.ClassFailed,
		Stderr:         strings.TrimSpace(stderr),
		Err:            err,
	}
}
