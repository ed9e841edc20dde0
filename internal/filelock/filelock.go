// Package filelock provides the on-disk coordination primitives the runner
// relies on: a process-level lock that keeps two runners off the same queue,
// and an atomic write helper for recording task output.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process already holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// RunLock is an exclusive advisory lock on a file, held for the lifetime of
// a runner process.
type RunLock struct {
	flock *flock.Flock
	path  string
}

// Acquire takes a non-blocking exclusive lock on path, creating the lock file
// if needed. It returns ErrLocked when the lock is held elsewhere, which
// callers should report as "another runner is active on this queue".
func Acquire(path string) (*RunLock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return &RunLock{flock: fl, path: path}, nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file. Removing a file another process
// has since locked is harmless: flock follows the inode, not the name.
func (l *RunLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	os.Remove(l.path)
	return nil
}

// AtomicWrite writes data to path via a temp file and rename so readers never
// observe a partially written file. The temp file lives in the target's
// directory to keep the rename on one filesystem, where it is atomic.
//
// If the target already exists it is replaced wholesale, which is what the
// output recorder wants: re-running a task overwrites its previous output.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tmp = nil
	return nil
}
