// Package queue implements the file-system-backed task queue: pending tasks
// live as files in a todo directory, processed tasks are moved to a done
// directory, and successful output is recorded alongside.
//
// A task file is its only state. Tasks are never mutated in place and never
// deleted; MarkDone relocates the file, which is the sole state transition.
package queue

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned when a task file vanished between listing and
// access. Callers treat this as "already handled", not as a failure.
var ErrNotFound = errors.New("task not found")

// Store manages the pending and done directories of the queue.
type Store struct {
	todoDir string
	doneDir string
}

// NewStore creates a Store over the given todo and done directories.
// The directories are not created here; call EnsureDirs during startup.
func NewStore(todoDir, doneDir string) *Store {
	return &Store{
		todoDir: todoDir,
		doneDir: doneDir,
	}
}

// TodoDir returns the pending directory path.
func (s *Store) TodoDir() string {
	return s.todoDir
}

// DoneDir returns the done directory path.
func (s *Store) DoneDir() string {
	return s.doneDir
}

// EnsureDirs creates the todo and done directories if missing and returns
// the paths it had to create.
func (s *Store) EnsureDirs() ([]string, error) {
	var created []string
	for _, dir := range []string{s.todoDir, s.doneDir} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return created, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
			created = append(created, dir)
		}
	}
	return created, nil
}

// ListPending returns the names of all regular files in the todo directory,
// sorted case-insensitively. Dotfiles (lock files and editor droppings) are
// skipped. The directory is re-read on every call: external producers add
// files at any time, so the listing must never be cached.
func (s *Store) ListPending() ([]string, error) {
	entries, err := os.ReadDir(s.todoDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.todoDir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	return names, nil
}

// ReadContent reads the full text of a pending task.
// Returns ErrNotFound if the file vanished after it was listed.
func (s *Store) ReadContent(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.todoDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("failed to read task %s: %w", name, err)
	}
	return string(data), nil
}

// MarkDone relocates a task file from the todo directory to the done
// directory, preserving its name. Rename is used first since it is atomic on
// one filesystem; when the directories span devices it falls back to
// copy-then-remove, still guaranteeing the file is gone from todo on return.
func (s *Store) MarkDone(name string) error {
	src := filepath.Join(s.todoDir, name)
	dst := filepath.Join(s.doneDir, name)

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}

	if copyErr := copyFile(src, dst); copyErr != nil {
		return fmt.Errorf("failed to move task %s to done: %w", name, err)
	}
	if rmErr := os.Remove(src); rmErr != nil {
		return fmt.Errorf("failed to remove task %s from todo after copy: %w", name, rmErr)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
