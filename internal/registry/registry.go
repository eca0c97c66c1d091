// Package registry tracks open buffers by id and by file path.
//
// The registry owns buffer lifetimes: it loads files into textbuf.Buffers,
// hands out uuid ids, and implements the lookup contract MultiBuffers use
// to resolve excerpt specs. MultiBuffers hold ids, never the registry, so
// several of them can reference the same buffer and closing a registry
// entry never tears down views that already bound the buffer.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/weave/internal/textbuf"
)

var (
	// ErrNotFound indicates no open buffer has the given id.
	ErrNotFound = errors.New("buffer not open")

	// ErrNoPath indicates a file operation on a buffer that has no
	// backing file, such as a scratch buffer.
	ErrNoPath = errors.New("buffer has no file path")
)

// ID identifies an open buffer. IDs are minted once per Open and are
// never reused, even for the same path after a Close/Open cycle.
type ID = uuid.UUID

// Info describes one open buffer.
type Info struct {
	ID       ID
	Path     string // absolute; empty for scratch buffers
	Name     string // base name, or the scratch name
	ReadOnly bool
	Version  textbuf.Version
}

// Registry maps buffer ids to live buffers. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[ID]*entry
	byPath map[string]ID

	log        *zap.Logger
	maxHistory int
}

type entry struct {
	id   ID
	path string
	name string
	buf  *textbuf.Buffer
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// WithHistoryLimit sets the change history retained by buffers the
// registry creates. Zero keeps the textbuf default.
func WithHistoryLimit(n int) Option {
	return func(r *Registry) {
		r.maxHistory = n
	}
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		byID:   make(map[ID]*entry),
		byPath: make(map[string]ID),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open loads the file at path into a new buffer and returns its id. The
// buffer keeps the file's dominant line ending convention. Opening a path
// that is already open returns the existing id without touching the
// buffer, so unsaved edits survive repeated opens.
func (r *Registry) Open(path string) (ID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ID{}, fmt.Errorf("resolve %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byPath[abs]; ok {
		return id, nil
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return ID{}, fmt.Errorf("open %s: %w", path, err)
	}

	content := string(data)
	opts := []textbuf.Option{textbuf.WithDetectedLineEnding(content)}
	if r.maxHistory > 0 {
		opts = append(opts, textbuf.WithMaxHistory(r.maxHistory))
	}

	e := &entry{
		id:   uuid.New(),
		path: abs,
		name: filepath.Base(abs),
		buf:  textbuf.NewBufferFromString(content, opts...),
	}
	r.byID[e.id] = e
	r.byPath[abs] = e.id

	r.log.Debug("buffer opened",
		zap.String("id", e.id.String()),
		zap.String("path", abs),
		zap.Int("bytes", len(data)))
	return e.id, nil
}

// OpenScratch registers an in-memory buffer with no backing file.
func (r *Registry) OpenScratch(name, text string) ID {
	var opts []textbuf.Option
	if r.maxHistory > 0 {
		opts = append(opts, textbuf.WithMaxHistory(r.maxHistory))
	}

	e := &entry{
		id:   uuid.New(),
		name: name,
		buf:  textbuf.NewBufferFromString(text, opts...),
	}

	r.mu.Lock()
	r.byID[e.id] = e
	r.mu.Unlock()

	r.log.Debug("scratch buffer opened",
		zap.String("id", e.id.String()),
		zap.String("name", name))
	return e.id
}

// Get returns the buffer with the given id.
func (r *Registry) Get(id ID) (*textbuf.Buffer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.buf, nil
}

// Buffer resolves an id to its buffer. This is the lookup contract
// MultiBuffers consume; a *Registry can be passed to multibuffer.New
// directly.
func (r *Registry) Buffer(id ID) (*textbuf.Buffer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return e.buf, true
}

// Lookup returns the id of the buffer backed by path, if open.
func (r *Registry) Lookup(path string) (ID, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ID{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPath[abs]
	return id, ok
}

// Info returns metadata for the buffer with the given id.
func (r *Registry) Info(id ID) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return Info{}, false
	}
	return e.info(), true
}

// List returns metadata for all open buffers, ordered by path with
// scratch buffers last.
func (r *Registry) List() []Info {
	r.mu.RLock()
	infos := make([]Info, 0, len(r.byID))
	for _, e := range r.byID {
		infos = append(infos, e.info())
	}
	r.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if (a.Path == "") != (b.Path == "") {
			return a.Path != ""
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Name < b.Name
	})
	return infos
}

// Len returns the number of open buffers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Reload re-reads the buffer's file and replaces the buffer content if it
// differs, notifying every subscriber of the buffer. Returns true if the
// buffer changed.
func (r *Registry) Reload(id ID) (bool, error) {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.path == "" {
		return false, fmt.Errorf("reload %s: %w", e.name, ErrNoPath)
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		return false, fmt.Errorf("reload %s: %w", e.path, err)
	}

	content := string(data)
	if content == e.buf.Text() {
		return false, nil
	}

	// Replace normalizes line endings to the buffer's convention, so a
	// convention flip on disk does not silently rewrite the buffer style.
	if _, _, err := e.buf.Replace(0, e.buf.Len(), content); err != nil {
		return false, fmt.Errorf("reload %s: %w", e.path, err)
	}

	r.log.Debug("buffer reloaded",
		zap.String("path", e.path),
		zap.Int("bytes", len(data)))
	return true, nil
}

// Save writes the buffer content back to its file in the buffer's line
// ending convention.
func (r *Registry) Save(id ID) error {
	r.mu.RLock()
	e, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if e.path == "" {
		return fmt.Errorf("save %s: %w", e.name, ErrNoPath)
	}

	if err := os.WriteFile(e.path, []byte(e.buf.Text()), 0o644); err != nil {
		return fmt.Errorf("save %s: %w", e.path, err)
	}

	r.log.Debug("buffer saved", zap.String("path", e.path))
	return nil
}

// Close removes the buffer from the registry. Views that already bound
// the buffer keep working; the id just stops resolving.
func (r *Registry) Close(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(r.byID, id)
	if e.path != "" {
		delete(r.byPath, e.path)
	}

	r.log.Debug("buffer closed", zap.String("id", id.String()))
	return nil
}

func (e *entry) info() Info {
	return Info{
		ID:       e.id,
		Path:     e.path,
		Name:     e.name,
		ReadOnly: e.buf.ReadOnly(),
		Version:  e.buf.Version(),
	}
}
