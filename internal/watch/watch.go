// Package watch reloads registry buffers when their backing files change
// on disk.
//
// The watcher registers the parent directory of each watched file with
// fsnotify rather than the file itself, so editors that save by writing a
// temporary file and renaming it over the original still trigger a
// reload. Events are debounced per file; the reload applies a whole-file
// replace to the buffer, which notifies every view bound to it.
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/weave/internal/registry"
)

var (
	// ErrClosed indicates the watcher has been closed.
	ErrClosed = errors.New("watcher closed")

	// ErrAlreadyWatching indicates the buffer is already watched.
	ErrAlreadyWatching = errors.New("already watching buffer")

	// ErrNotWatching indicates the buffer is not watched.
	ErrNotWatching = errors.New("not watching buffer")
)

// DefaultDebounce is the delay between the last file event and the
// reload it triggers.
const DefaultDebounce = 100 * time.Millisecond

// ReloadEvent describes one reload attempt.
type ReloadEvent struct {
	ID      registry.ID
	Path    string
	Changed bool
	Err     error
}

// Watcher reloads registry buffers from disk as their files change.
type Watcher struct {
	reg *registry.Registry
	fsw *fsnotify.Watcher
	log *zap.Logger

	debounce time.Duration
	onReload func(ReloadEvent)

	mu     sync.Mutex
	files  map[string]registry.ID // watched file path -> buffer id
	ids    map[registry.ID]string // reverse of files
	dirs   map[string]int         // fsnotify-registered dir -> file count
	timers map[string]*time.Timer // pending debounce per file path
	closed bool

	closeCh chan struct{}
	wg      sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(w *Watcher) {
		if log != nil {
			w.log = log
		}
	}
}

// WithDebounce sets the delay between the last file event and the
// reload. Zero or negative keeps the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnReload sets a callback invoked after every reload attempt,
// including failed ones. The callback runs on the watcher's goroutines
// and must not call back into the watcher.
func WithOnReload(fn func(ReloadEvent)) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// New creates a watcher over buffers owned by reg and starts its event
// loop. Close releases it.
func New(reg *registry.Registry, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	w := &Watcher{
		reg:      reg,
		fsw:      fsw,
		log:      zap.NewNop(),
		debounce: DefaultDebounce,
		files:    make(map[string]registry.ID),
		ids:      make(map[registry.ID]string),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Watch starts watching the file behind the given buffer.
func (w *Watcher) Watch(id registry.ID) error {
	info, ok := w.reg.Info(id)
	if !ok {
		return fmt.Errorf("watch: %w: %s", registry.ErrNotFound, id)
	}
	if info.Path == "" {
		return fmt.Errorf("watch %s: %w", info.Name, registry.ErrNoPath)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, ok := w.files[info.Path]; ok {
		return ErrAlreadyWatching
	}

	dir := filepath.Dir(info.Path)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[info.Path] = id
	w.ids[id] = info.Path

	w.log.Debug("watching", zap.String("path", info.Path))
	return nil
}

// Unwatch stops watching the file behind the given buffer. A reload
// already in flight may still complete.
func (w *Watcher) Unwatch(id registry.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	path, ok := w.ids[id]
	if !ok {
		return ErrNotWatching
	}

	delete(w.ids, id)
	delete(w.files, path)
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		if err := w.fsw.Remove(dir); err != nil {
			return fmt.Errorf("unwatch %s: %w", dir, err)
		}
	}

	w.log.Debug("unwatched", zap.String("path", path))
	return nil
}

// IsWatching reports whether the buffer's file is being watched.
func (w *Watcher) IsWatching(id registry.ID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.ids[id]
	return ok
}

// Paths returns the watched file paths, sorted.
func (w *Watcher) Paths() []string {
	w.mu.Lock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	sort.Strings(paths)
	return paths
}

// Close stops the watcher. Pending debounced reloads are dropped. Safe
// to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	return w.fsw.Close()
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// handleEvent schedules a debounced reload for events that can change
// file content. Rename matters because atomic saves rename a temporary
// file over the watched path.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if _, ok := w.files[path]; !ok {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	id, ok := w.files[path]
	if w.closed || !ok {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	changed, err := w.reg.Reload(id)
	switch {
	case err != nil:
		w.log.Warn("reload failed", zap.String("path", path), zap.Error(err))
	case changed:
		w.log.Debug("reloaded", zap.String("path", path))
	}

	if w.onReload != nil {
		w.onReload(ReloadEvent{ID: id, Path: path, Changed: changed, Err: err})
	}
}
