package runner

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watcher turns filesystem create events in the todo directory into
// scheduler wake-ups so new tasks don't wait out a full idle interval.
// Polling remains the source of truth: missed events only cost latency,
// never correctness.
type Watcher struct {
	fw   *fsnotify.Watcher
	wake chan struct{}
}

// NewWatcher starts watching dir. Callers that cannot start a watcher
// (platform limits, exhausted inotify handles) should log and fall back to
// plain polling.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		fw:   fw,
		wake: make(chan struct{}, 1),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			// Producers drop files in by create or by rename from a
			// staging name. Writes to existing files don't add tasks.
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				select {
				case w.wake <- struct{}{}:
				default:
					// A wake-up is already queued.
				}
			}
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// Watch errors are absorbed: the next poll covers anything
			// missed.
		}
	}
}

// Wake returns the channel the scheduler selects on while idle.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Close stops the watcher and its goroutine.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
