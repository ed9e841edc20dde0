package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemrun/gemrun/internal/models"
	"github.com/gemrun/gemrun/internal/queue"
)

// fakeInvoker returns a scripted ExecutionResult and records the prompts it
// was invoked with.
type fakeInvoker struct {
	result  *models.ExecutionResult
	err     error
	prompts []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string) (*models.ExecutionResult, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// recordingLogger captures task results for assertions.
type recordingLogger struct {
	NopLogger
	results []models.TaskResult
}

func (r *recordingLogger) LogTaskResult(res models.TaskResult) {
	r.results = append(r.results, res)
}

type processorFixture struct {
	store    *queue.Store
	recorder *queue.Recorder
	invoker  *fakeInvoker
	logger   *recordingLogger
	proc     *Processor
}

func newProcessorFixture(t *testing.T, invoker *fakeInvoker) *processorFixture {
	t.Helper()
	root := t.TempDir()
	store := queue.NewStore(filepath.Join(root, "tasks_todo"), filepath.Join(root, "tasks_done"))
	_, err := store.EnsureDirs()
	require.NoError(t, err)
	logger := &recordingLogger{}
	recorder := queue.NewRecorder(filepath.Join(root, "gemini_output"))
	return &processorFixture{
		store:    store,
		recorder: recorder,
		invoker:  invoker,
		logger:   logger,
		proc:     NewProcessor(store, recorder, invoker, logger),
	}
}

func (f *processorFixture) addTask(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.store.TodoDir(), name), []byte(content), 0644))
}

func (f *processorFixture) inTodo(name string) bool {
	_, err := os.Stat(filepath.Join(f.store.TodoDir(), name))
	return err == nil
}

func (f *processorFixture) inDone(name string) bool {
	_, err := os.Stat(filepath.Join(f.store.DoneDir(), name))
	return err == nil
}

func TestProcessSuccess(t *testing.T) {
	inv := &fakeInvoker{result: &models.ExecutionResult{ExitCode: 0, Stdout: "world"}}
	f := newProcessorFixture(t, inv)
	f.addTask(t, "t1.txt", "hello")

	directive := f.proc.Process(context.Background(), "t1.txt")

	assert.Equal(t, Continue, directive)
	assert.False(t, f.inTodo("t1.txt"))
	assert.True(t, f.inDone("t1.txt"))
	assert.Equal(t, []string{"hello"}, inv.prompts)

	data, err := os.ReadFile(filepath.Join(f.recorder.OutputDir(), "output_for_t1.txt"))
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassSuccess, f.logger.results[0].Classification)
}

func TestProcessRateLimitedLeavesTaskPending(t *testing.T) {
	inv := &fakeInvoker{result: &models.ExecutionResult{ExitCode: 1, Stderr: "Resource has been exhausted"}}
	f := newProcessorFixture(t, inv)
	f.addTask(t, "t2.txt", "hello")

	directive := f.proc.Process(context.Background(), "t2.txt")

	assert.Equal(t, RateLimitPause, directive)
	assert.True(t, f.inTodo("t2.txt"), "rate-limited task must stay pending")
	assert.False(t, f.inDone("t2.txt"))

	// No output recorded for a rate-limited attempt.
	_, err := os.Stat(filepath.Join(f.recorder.OutputDir(), "output_for_t2.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassRateLimited, f.logger.results[0].Classification)
	assert.Equal(t, "Resource has been exhausted", f.logger.results[0].Stderr)
}

func TestProcessFailureArchivesWithoutOutput(t *testing.T) {
	inv := &fakeInvoker{result: &models.ExecutionResult{ExitCode: 1, Stderr: "boom"}}
	f := newProcessorFixture(t, inv)
	f.addTask(t, "t3.txt", "hello")

	directive := f.proc.Process(context.Background(), "t3.txt")

	assert.Equal(t, Continue, directive, "failed tasks must not block the queue")
	assert.False(t, f.inTodo("t3.txt"))
	assert.True(t, f.inDone("t3.txt"))

	_, err := os.Stat(filepath.Join(f.recorder.OutputDir(), "output_for_t3.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassFailed, f.logger.results[0].Classification)
	assert.Error(t, f.logger.results[0].Err)
}

func TestProcessEmptyTaskSkipsInvocation(t *testing.T) {
	inv := &fakeInvoker{result: &models.ExecutionResult{ExitCode: 0, Stdout: "never"}}
	f := newProcessorFixture(t, inv)
	f.addTask(t, "empty.txt", "  \n\t\n")

	directive := f.proc.Process(context.Background(), "empty.txt")

	assert.Equal(t, Continue, directive)
	assert.True(t, f.inDone("empty.txt"))
	assert.Empty(t, inv.prompts, "empty task must not invoke gemini")

	entries, err := os.ReadDir(f.recorder.OutputDir())
	if err == nil {
		assert.Empty(t, entries, "empty task must not record output")
	}

	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassSkippedEmpty, f.logger.results[0].Classification)
}

func TestProcessMissingTaskIsAlreadyHandled(t *testing.T) {
	inv := &fakeInvoker{}
	f := newProcessorFixture(t, inv)

	directive := f.proc.Process(context.Background(), "vanished.txt")

	assert.Equal(t, Continue, directive)
	assert.Empty(t, inv.prompts)
	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassMissing, f.logger.results[0].Classification)
}

func TestProcessLaunchFailureArchivesTask(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("failed to launch gemini")}
	f := newProcessorFixture(t, inv)
	f.addTask(t, "t4.txt", "hello")

	directive := f.proc.Process(context.Background(), "t4.txt")

	assert.Equal(t, Continue, directive)
	assert.True(t, f.inDone("t4.txt"), "launch failure archives the task so the loop keeps moving")

	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassFailed, f.logger.results[0].Classification)
	assert.Error(t, f.logger.results[0].Err)
}

func TestProcessRecordsBeforeMarkDone(t *testing.T) {
	// Point the recorder at an unwritable location so Record fails; the
	// task must then be archived as failed, not left half-done.
	inv := &fakeInvoker{result: &models.ExecutionResult{ExitCode: 0, Stdout: "world"}}
	f := newProcessorFixture(t, inv)
	f.addTask(t, "t5.txt", "hello")

	blocked := filepath.Join(f.store.TodoDir(), "t5.txt") // a file, not a dir
	proc := NewProcessor(f.store, queue.NewRecorder(filepath.Join(blocked, "nested")), inv, f.logger)

	directive := proc.Process(context.Background(), "t5.txt")

	assert.Equal(t, Continue, directive)
	require.Len(t, f.logger.results, 1)
	assert.Equal(t, models.ClassFailed, f.logger.results[0].Classification)
}
