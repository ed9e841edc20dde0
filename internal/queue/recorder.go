package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gemrun/gemrun/internal/filelock"
)

// Recorder persists the output of successfully executed tasks.
type Recorder struct {
	outputDir string
}

// NewRecorder creates a Recorder writing into outputDir.
func NewRecorder(outputDir string) *Recorder {
	return &Recorder{outputDir: outputDir}
}

// OutputDir returns the output directory path.
func (r *Recorder) OutputDir() string {
	return r.outputDir
}

// EnsureDir creates the output directory if missing and reports whether it
// had to be created.
func (r *Recorder) EnsureDir() (bool, error) {
	if _, err := os.Stat(r.outputDir); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return false, fmt.Errorf("failed to create directory %s: %w", r.outputDir, err)
	}
	return true, nil
}

// OutputName derives the output filename for a task: the task's filename
// stem wrapped as "output_for_<stem>.txt". The derivation is deterministic,
// so rerunning the same task id overwrites its prior output.
func OutputName(taskName string) string {
	stem := strings.TrimSuffix(taskName, filepath.Ext(taskName))
	return fmt.Sprintf("output_for_%s.txt", stem)
}

// Record writes text as the outcome of taskName and returns the path written.
// The write is atomic so a crash mid-record never leaves a truncated file,
// and overwriting on a rerun is safe.
func (r *Recorder) Record(taskName, text string) (string, error) {
	path := filepath.Join(r.outputDir, OutputName(taskName))
	if err := filelock.AtomicWrite(path, []byte(text)); err != nil {
		return "", fmt.Errorf("failed to record output for %s: %w", taskName, err)
	}
	return path, nil
}
