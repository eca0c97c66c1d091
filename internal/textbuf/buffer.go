package textbuf

import (
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/dshills/weave/internal/rope"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrReadOnly         = errors.New("buffer is read-only")
	ErrEditsOverlap     = errors.New("edits overlap or are not in reverse order")
	ErrAnchorExpired    = errors.New("anchor is older than the retained history")
)

// Version identifies a buffer state. Versions start at 1 for a freshly
// created buffer and advance by exactly one per committed edit, which is
// what lets anchors replay the bounded history to find their new position.
type Version uint64

// DefaultMaxHistory is the default number of committed changes retained
// for anchor resolution and change queries.
const DefaultMaxHistory = 8192

// LineEnding specifies the line ending style.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// String returns the string representation of the line ending.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "\\r\\n"
	case LineEndingCR:
		return "\\r"
	default:
		return "\\n"
	}
}

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// SubscriptionID identifies a registered change handler.
type SubscriptionID uint64

// ChangeHandler receives every committed change, in version order.
// Handlers run after the edit has committed, outside the buffer's state
// lock, so they may freely read the buffer or apply further edits.
type ChangeHandler func(Change)

type subscription struct {
	id SubscriptionID
	fn ChangeHandler
}

// Buffer is a thread-safe versioned text store. Every committed edit bumps
// the version, is appended to a bounded change history, and is delivered to
// subscribers in order. Reads take a shared lock; Snapshot returns a
// lock-free view backed by the immutable rope.
type Buffer struct {
	mu         sync.RWMutex
	rope       rope.Rope
	version    Version
	lineEnding LineEnding
	readOnly   bool

	// Committed changes in a ring buffer, oldest at histHead.
	history    []Change
	histHead   int
	histCount  int
	maxHistory int

	subs      []subscription
	nextSubID SubscriptionID

	// Pending deliveries, appended in commit order while mu is still
	// held. One goroutine at a time drains the queue so subscribers
	// observe changes in commit order even when writers race.
	pendMu     sync.Mutex
	pending    []delivery
	delivering bool
}

type delivery struct {
	change Change
	subs   []subscription
}

// NewBuffer creates a new empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		rope:       rope.New(),
		version:    1,
		lineEnding: LineEndingLF,
		maxHistory: DefaultMaxHistory,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.history = make([]Change, b.maxHistory)
	return b
}

// NewBufferFromString creates a buffer with initial content.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.rope = rope.FromString(b.normalizeLineEndings(s))
	return b
}

// NewBufferFromReader creates a buffer from an io.Reader.
func NewBufferFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	b := NewBuffer(opts...)

	// Read all content first so CRLF sequences split across read
	// boundaries normalize correctly.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	b.rope = rope.FromString(b.normalizeLineEndings(string(data)))
	return b, nil
}

// normalizeLineEndings converts all line endings to the buffer's preferred style.
func (b *Buffer) normalizeLineEndings(s string) string {
	switch b.lineEnding {
	case LineEndingCRLF:
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
		s = strings.ReplaceAll(s, "\n", "\r\n")
	case LineEndingCR:
		s = strings.ReplaceAll(s, "\r\n", "\r")
		s = strings.ReplaceAll(s, "\n", "\r")
	default:
		s = strings.ReplaceAll(s, "\r\n", "\n")
		s = strings.ReplaceAll(s, "\r", "\n")
	}
	return s
}

// Read Operations

// Text returns the full buffer content as a string.
// For large buffers, prefer TextRange on the span of interest.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.String()
}

// TextRange returns text in the given byte range, clamped to the buffer.
func (b *Buffer) TextRange(start, end ByteOffset) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.Slice(start, end)
}

// Len returns the total byte length of the buffer.
func (b *Buffer) Len() ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.Len()
}

// IsEmpty returns true if the buffer is empty.
func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineCount()
}

// LineText returns the text of a specific line (without newline).
func (b *Buffer) LineText(line uint32) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineText(line)
}

// LineStartOffset returns the byte offset of the start of a line.
func (b *Buffer) LineStartOffset(line uint32) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineStartOffset(line)
}

// LineEndOffset returns the byte offset of the end of a line (before newline).
func (b *Buffer) LineEndOffset(line uint32) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.LineEndOffset(line)
}

// OffsetToPoint converts a byte offset to line/column.
func (b *Buffer) OffsetToPoint(offset ByteOffset) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.OffsetToPoint(offset)
}

// PointToOffset converts line/column to a byte offset.
func (b *Buffer) PointToOffset(p Point) ByteOffset {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rope.PointToOffset(p)
}

// Buffer State

// Version returns the current version.
func (b *Buffer) Version() Version {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

// LineEnding returns the buffer's line ending style.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// ReadOnly reports whether the buffer rejects edits.
func (b *Buffer) ReadOnly() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readOnly
}

// SetReadOnly marks the buffer as read-only or editable.
func (b *Buffer) SetReadOnly(ro bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = ro
}

// Snapshot returns a read-only view of the current buffer state.
// Safe for concurrent access from other goroutines.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return &Snapshot{
		rope:       b.rope, // Ropes are immutable, safe to share
		version:    b.version,
		lineEnding: b.lineEnding,
	}
}

// Write Operations

// Insert inserts text at the given offset.
func (b *Buffer) Insert(offset ByteOffset, text string) (Version, Change, error) {
	return b.ApplyEdit(NewInsert(offset, text))
}

// Delete removes text in the given range.
func (b *Buffer) Delete(start, end ByteOffset) (Version, Change, error) {
	return b.ApplyEdit(NewDelete(start, end))
}

// Replace replaces text in the given range with new text.
func (b *Buffer) Replace(start, end ByteOffset, text string) (Version, Change, error) {
	return b.ApplyEdit(NewEdit(NewRange(start, end), text))
}

// ApplyEdit applies a single edit, returning the version the buffer reached
// and a description of the committed change.
func (b *Buffer) ApplyEdit(edit Edit) (Version, Change, error) {
	b.mu.Lock()

	if b.readOnly {
		b.mu.Unlock()
		return 0, Change{}, ErrReadOnly
	}
	if !b.validEditLocked(edit) {
		b.mu.Unlock()
		return 0, Change{}, ErrRangeInvalid
	}

	change := b.applyLocked(edit)
	b.commit([]Change{change})
	return change.Version, change, nil
}

// ApplyEdits applies multiple edits atomically. Edits must be in reverse
// order (highest offset first) and non-overlapping so that earlier entries
// do not invalidate later ones. Each edit commits as its own version;
// subscribers see all of them only after the whole batch has been applied.
func (b *Buffer) ApplyEdits(edits []Edit) (Version, []Change, error) {
	if len(edits) == 0 {
		return b.Version(), nil, nil
	}

	b.mu.Lock()

	if b.readOnly {
		b.mu.Unlock()
		return 0, nil, ErrReadOnly
	}
	for i := 1; i < len(edits); i++ {
		if edits[i].Range.End > edits[i-1].Range.Start {
			b.mu.Unlock()
			return 0, nil, ErrEditsOverlap
		}
	}
	for _, edit := range edits {
		if !b.validEditLocked(edit) {
			b.mu.Unlock()
			return 0, nil, ErrRangeInvalid
		}
	}

	changes := make([]Change, 0, len(edits))
	for _, edit := range edits {
		changes = append(changes, b.applyLocked(edit))
	}

	version := b.version
	b.commit(changes)
	return version, changes, nil
}

func (b *Buffer) validEditLocked(edit Edit) bool {
	return edit.Range.Start >= 0 &&
		edit.Range.Start <= edit.Range.End &&
		edit.Range.End <= b.rope.Len()
}

// applyLocked mutates the rope, advances the version, and records the
// change in the history ring. Caller holds mu.
func (b *Buffer) applyLocked(edit Edit) Change {
	oldText := b.rope.Slice(edit.Range.Start, edit.Range.End)
	text := b.normalizeLineEndings(edit.NewText)

	b.rope = b.rope.Replace(edit.Range.Start, edit.Range.End, text)
	b.version++

	change := Change{
		Version:  b.version,
		Type:     classifyEdit(edit.Range, text),
		Range:    edit.Range,
		NewRange: Range{Start: edit.Range.Start, End: edit.Range.Start + ByteOffset(len(text))},
		OldText:  oldText,
		NewText:  text,
	}

	idx := (b.histHead + b.histCount) % b.maxHistory
	if b.histCount < b.maxHistory {
		b.histCount++
	} else {
		b.histHead = (b.histHead + 1) % b.maxHistory
	}
	b.history[idx] = change

	return change
}

// commit enqueues the changes for delivery, releases mu, and drains the
// queue unless another goroutine already is. Enqueueing under mu pins the
// delivery order to the commit order; draining outside mu lets handlers
// read, and even edit, the buffer. A handler's own edit is delivered after
// the handler returns, by whichever goroutine holds the drain.
func (b *Buffer) commit(changes []Change) {
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)

	b.pendMu.Lock()
	for _, c := range changes {
		b.pending = append(b.pending, delivery{change: c, subs: subs})
	}
	b.mu.Unlock()

	if b.delivering {
		b.pendMu.Unlock()
		return
	}
	b.delivering = true

	for len(b.pending) > 0 {
		batch := b.pending
		b.pending = nil
		b.pendMu.Unlock()

		for _, d := range batch {
			for _, s := range d.subs {
				s.fn(d.change)
			}
		}

		b.pendMu.Lock()
	}

	b.delivering = false
	b.pendMu.Unlock()
}

// Subscriptions

// Subscribe registers a handler for committed changes. The returned id can
// be passed to Unsubscribe.
func (b *Buffer) Subscribe(fn ChangeHandler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	return id
}

// Unsubscribe removes a previously registered handler.
func (b *Buffer) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// History

// ChangesSince returns the committed changes after the given version in
// chronological order. The second return is false when the history no
// longer reaches back to that version, in which case the caller must fall
// back to a full recomputation of whatever it derives from changes.
func (b *Buffer) ChangesSince(v Version) ([]Change, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.changesSinceLocked(v)
}

func (b *Buffer) changesSinceLocked(v Version) ([]Change, bool) {
	if v >= b.version {
		return nil, true
	}
	if v < b.oldestReachableLocked() {
		return nil, false
	}

	var result []Change
	for i := 0; i < b.histCount; i++ {
		c := b.history[(b.histHead+i)%b.maxHistory]
		if c.Version > v {
			result = append(result, c)
		}
	}
	return result, true
}

// oldestReachableLocked returns the oldest version the history can replay
// from. An anchor at this version or newer is still resolvable.
func (b *Buffer) oldestReachableLocked() Version {
	return b.version - Version(b.histCount)
}
