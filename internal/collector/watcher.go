// Watcher wraps fsnotify so the collector's event loop can be tested
// against a fake implementation, the way the pack's vault-cache service
// abstracts fsnotify behind a small interface rather than depending on the
// concrete *fsnotify.Watcher type directly.
package collector

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher abstracts filesystem change notifications.
type Watcher interface {
	Add(path string) error
	Remove(path string) error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
	Close() error
}

type fsWatcher struct {
	*fsnotify.Watcher
}

func (w *fsWatcher) Events() <-chan fsnotify.Event { return w.Watcher.Events }
func (w *fsWatcher) Errors() <-chan error          { return w.Watcher.Errors }

// newFsWatcher opens a real fsnotify.Watcher recursively watching root:
// fsnotify only watches the directories it is explicitly added to, so
// every subdirectory under root is walked once at startup and added.
func newFsWatcher(root string) (Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("collector: create watcher: %w", err)
	}

	wrapped := &fsWatcher{Watcher: w}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return wrapped.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("collector: watch %s: %w", root, err)
	}

	return wrapped, nil
}
