// Package config watches auxiliary configuration files and notifies
// subscribers when they change on disk.
package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kart-io/logger"
)

// DefaultDebounce coalesces the burst of events editors emit for one save.
const DefaultDebounce = 100 * time.Millisecond

// ChangeHandler is invoked with the path of the file that changed.
// A returned error is logged; the previous state should be kept.
type ChangeHandler func(path string) error

// Watcher watches a single file. The parent directory is watched so that
// atomic replace (write temp, rename) is seen as a change.
type Watcher struct {
	path     string
	debounce time.Duration
	handlers map[string]ChangeHandler
	mu       sync.RWMutex

	fsw  *fsnotify.Watcher
	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher for path. Start must be called to begin watching.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	return &Watcher{
		path:     filepath.Clean(abs),
		debounce: DefaultDebounce,
		handlers: make(map[string]ChangeHandler),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// SetDebounce overrides DefaultDebounce. Must be called before Start.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Subscribe registers handler under id, replacing any handler with the same id.
func (w *Watcher) Subscribe(id string, handler ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[id] = handler
	logger.Infow("File watcher: subscribed handler", "id", id, "path", w.path)
}

// Unsubscribe removes a handler. Unknown ids are ignored.
func (w *Watcher) Unsubscribe(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.handlers[id]; ok {
		delete(w.handlers, id)
		logger.Infow("File watcher: unsubscribed handler", "id", id)
	}
}

// HandlerCount returns the number of registered handlers.
func (w *Watcher) HandlerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.handlers)
}

// IsWatching reports whether Start has been called without a matching Stop.
func (w *Watcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsw != nil
}

// Start begins watching. Calling Start twice is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	w.fsw = fsw
	w.done = make(chan struct{})
	w.wg.Add(1)
	go w.loop(fsw, w.done)

	logger.Infow("File watcher: started", "path", w.path)
	return nil
}

// Stop stops watching and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	fsw, done := w.fsw, w.done
	w.fsw, w.done = nil, nil
	w.mu.Unlock()

	if fsw == nil {
		return nil
	}
	close(done)
	err := fsw.Close()
	w.wg.Wait()
	logger.Infow("File watcher: stopped", "path", w.path)
	return err
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, done <-chan struct{}) {
	defer w.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warnw("File watcher: fsnotify error", "path", w.path, "error", err.Error())
		case <-fire:
			fire = nil
			w.notify()
		}
	}
}

func (w *Watcher) notify() {
	logger.Infow("File changed", "path", w.path)

	// 复制后释放锁再调用，避免处理函数中再次订阅导致死锁
	w.mu.RLock()
	handlers := make(map[string]ChangeHandler, len(w.handlers))
	for id, h := range w.handlers {
		handlers[id] = h
	}
	w.mu.RUnlock()

	for id, h := range handlers {
		if err := h(w.path); err != nil {
			logger.Errorw("File watcher: handler failed", "id", id, "error", err.Error())
			continue
		}
		logger.Infow("File watcher: handler applied change", "id", id)
	}
}
