// Package watcher flags file context sources whose backing file
// changed on disk, so the next refresh pass re-reads them.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// Watcher monitors the parent directories of registered files. It
// watches directories rather than the files themselves so editors that
// write via rename-and-replace are still seen.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	events    chan string
	stop      chan struct{}

	mu      sync.Mutex
	stopped bool
	// dir -> watched file names in that dir
	watched map[string]map[string]bool
	timers  map[string]*time.Timer
}

// New creates a watcher with no registered files.
func New() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		events:    make(chan string, 16),
		stop:      make(chan struct{}),
		watched:   make(map[string]map[string]bool),
		timers:    make(map[string]*time.Timer),
	}
	go w.run()
	return w, nil
}

// Events returns the channel receiving the paths of changed files.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Watch registers an absolute file path.
func (w *Watcher) Watch(path string) error {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}

	names, ok := w.watched[dir]
	if !ok {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
		names = make(map[string]bool)
		w.watched[dir] = names
	}
	names[name] = true
	return nil
}

// Unwatch removes a file path; the directory watch is dropped once its
// last file is gone.
func (w *Watcher) Unwatch(path string) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	names, ok := w.watched[dir]
	if !ok {
		return
	}
	delete(names, name)
	if len(names) == 0 {
		delete(w.watched, dir)
		_ = w.fsWatcher.Remove(dir)
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.stopped = true

	for _, t := range w.timers {
		t.Stop()
	}
	close(w.stop)
	w.fsWatcher.Close()
}

// run processes file system events.
func (w *Watcher) run() {
	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.maybeNotify(event.Name)

		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// maybeNotify delivers the path if it is registered, debouncing the
// rapid event bursts editors produce on save.
func (w *Watcher) maybeNotify(path string) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	names, ok := w.watched[dir]
	if !ok || !names[name] {
		return
	}

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.timers, path)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}
		select {
		case w.events <- path:
		default:
			// Channel full, skip
		}
	})
}
