package multibuffer

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/weave/internal/textbuf"
	"github.com/dshills/weave/internal/textdiff"
)

// BufferSource resolves buffer ids to live buffers. The MultiBuffer holds
// buffers by id only and never owns them; whatever registry owns the
// buffers implements this.
type BufferSource interface {
	Buffer(id BufferID) (*textbuf.Buffer, bool)
}

// bufferBinding is the MultiBuffer's live attachment to one underlying
// buffer: its subscription, the last folded snapshot, the excerpts that
// reference it, and the diff overlay state. A binding exists exactly
// while at least one excerpt references the buffer.
type bufferBinding struct {
	id       BufferID
	buf      *textbuf.Buffer
	subID    textbuf.SubscriptionID
	snap     *textbuf.Snapshot
	lastSeen textbuf.Version
	excerpts []ExcerptID
	diff     *diffState

	// routing is set while an edit is being applied through this buffer;
	// notifications arriving meanwhile are queued so the router can fold
	// its own changes into one event and raced external changes into
	// their own.
	routing bool
	queued  []textbuf.Change
}

// MultiBuffer presents excerpts of several underlying buffers as one
// logical document. All mutations and queries are safe for concurrent
// use, but mutations are serialized internally and readers work against
// published snapshots; see Snapshot for the consistency model.
type MultiBuffer struct {
	logger    *zap.Logger
	source    BufferSource
	diffOpts  textdiff.Options
	syncLimit int

	mu        sync.Mutex
	routeCond *sync.Cond
	nextID    ExcerptID
	index     excerptIndex
	bindings  map[BufferID]*bufferBinding
	snap      *Snapshot
	version   uint64
	closed    bool

	nextSubID SubscriptionID
	subs      []eventSub

	evMu         sync.Mutex
	evPending    []eventDelivery
	evDelivering bool
}

// New creates an empty MultiBuffer drawing buffers from source.
func New(source BufferSource, opts ...Option) *MultiBuffer {
	m := &MultiBuffer{
		logger:    zap.NewNop(),
		source:    source,
		diffOpts:  textdiff.DefaultOptions(),
		syncLimit: diffSyncLineLimit,
		index:     newExcerptIndex(),
		bindings:  make(map[BufferID]*bufferBinding),
	}
	m.routeCond = sync.NewCond(&m.mu)
	for _, opt := range opts {
		opt(m)
	}
	m.snap = &Snapshot{index: m.index, buffers: make(map[BufferID]*bufferState)}
	return m
}

// Close detaches the MultiBuffer from its buffers: subscriptions are
// dropped, in-flight diff computations are canceled, and event handlers
// are released. Published snapshots stay valid. The MultiBuffer must not
// be mutated after Close.
func (m *MultiBuffer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for _, b := range m.bindings {
		b.buf.Unsubscribe(b.subID)
		if b.diff != nil && b.diff.cancel != nil {
			b.diff.cancel()
		}
	}
	m.subs = nil
}

// Snapshot returns the most recently published snapshot.
func (m *MultiBuffer) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

// publishLocked allocates the next version, publishes a snapshot of the
// current state, and queues ev stamped with that version. The caller
// holds m.mu and must call drainEvents after releasing it.
func (m *MultiBuffer) publishLocked(ev Event) {
	m.version++
	ev.Version = m.version

	buffers := make(map[BufferID]*bufferState, len(m.bindings))
	for id, b := range m.bindings {
		st := &bufferState{buf: b.buf, snap: b.snap}
		if b.diff != nil {
			st.hasBase = true
			st.hunks = b.diff.hunks
			st.pending = b.diff.pending
		}
		buffers[id] = st
	}
	m.snap = &Snapshot{version: m.version, index: m.index, buffers: buffers}

	m.queueEvent(ev)
}

// bindingLocked returns the binding for id, attaching to the buffer on
// first use. Subscribing before taking the baseline snapshot means a
// change can be seen twice (once in the baseline, once as a notification
// that then drops as stale) but never missed.
func (m *MultiBuffer) bindingLocked(id BufferID) (*bufferBinding, error) {
	if b, ok := m.bindings[id]; ok {
		return b, nil
	}
	buf, ok := m.source.Buffer(id)
	if !ok {
		return nil, ErrInvalidRange
	}
	b := &bufferBinding{id: id, buf: buf}
	b.subID = buf.Subscribe(func(c textbuf.Change) { m.onBufferChange(id, c) })
	b.snap = buf.Snapshot()
	b.lastSeen = b.snap.Version()
	m.bindings[id] = b
	return b, nil
}

func (m *MultiBuffer) unbindLocked(b *bufferBinding) {
	b.buf.Unsubscribe(b.subID)
	if b.diff != nil && b.diff.cancel != nil {
		b.diff.cancel()
	}
	delete(m.bindings, b.id)
}

// InsertExcerpt places a new excerpt at display position at, where
// 0 <= at <= ExcerptCount. Everything at and after that position shifts
// by the excerpt's length. Returns the new excerpt's id.
func (m *MultiBuffer) InsertExcerpt(at int, spec ExcerptSpec) (ExcerptID, error) {
	m.mu.Lock()
	id, err := m.insertLocked(at, spec)
	m.mu.Unlock()
	m.drainEvents()
	return id, err
}

// AppendExcerpt places a new excerpt at the end of the arrangement.
func (m *MultiBuffer) AppendExcerpt(spec ExcerptSpec) (ExcerptID, error) {
	m.mu.Lock()
	id, err := m.insertLocked(m.index.count(), spec)
	m.mu.Unlock()
	m.drainEvents()
	return id, err
}

// InsertExcerptAfter places a new excerpt directly after an existing one.
// Returns ErrNotFound if after has been removed.
func (m *MultiBuffer) InsertExcerptAfter(after ExcerptID, spec ExcerptSpec) (ExcerptID, error) {
	m.mu.Lock()
	ord, ok := m.index.ordinalOf(after)
	if !ok {
		m.mu.Unlock()
		return 0, ErrNotFound
	}
	id, err := m.insertLocked(ord+1, spec)
	m.mu.Unlock()
	m.drainEvents()
	return id, err
}

func (m *MultiBuffer) insertLocked(at int, spec ExcerptSpec) (ExcerptID, error) {
	if at < 0 || at > m.index.count() {
		return 0, ErrInvalidRange
	}
	b, err := m.bindingLocked(spec.BufferID)
	if err != nil {
		return 0, err
	}
	r := spec.Range
	if r.Start < 0 || !r.IsValid() || r.End > b.snap.Len() {
		if len(b.excerpts) == 0 {
			m.unbindLocked(b)
		}
		return 0, ErrInvalidRange
	}

	m.nextID++
	id := m.nextID
	ver := b.snap.Version()
	e := &excerpt{
		id:       id,
		bufferID: spec.BufferID,
		startAnchor: textbuf.Anchor{
			Version: ver, Offset: r.Start, Bias: textbuf.BiasLeft,
		},
		endAnchor: textbuf.Anchor{
			Version: ver, Offset: r.End, Bias: textbuf.BiasRight,
		},
		start:        r.Start,
		end:          r.End,
		lines:        b.snap.OffsetToPoint(r.End).Line - b.snap.OffsetToPoint(r.Start).Line,
		version:      ver,
		headerHeight: spec.HeaderHeight,
		readOnly:     spec.ReadOnly,
	}

	p := m.index.summaryBefore(at).bytes
	m.index = m.index.insert(at, e)
	b.excerpts = append(b.excerpts, id)

	m.publishLocked(Event{
		Origin:   OriginExcerptInsert,
		Range:    Range{Start: p, End: p},
		NewRange: Range{Start: p, End: p + e.len()},
		Buffers:  []BufferID{spec.BufferID},
	})
	return id, nil
}

// RemoveExcerpt removes the excerpt and returns the logical range it
// occupied; everything after it shifts left by its length. Returns
// ErrNotFound for an id that is not (or no longer) present. The removed
// id is never reused.
func (m *MultiBuffer) RemoveExcerpt(id ExcerptID) (Range, error) {
	m.mu.Lock()
	idx, e, before, ok := m.index.remove(id)
	if !ok {
		m.mu.Unlock()
		return Range{}, ErrNotFound
	}
	m.index = idx
	removed := Range{Start: before.bytes, End: before.bytes + e.len()}

	if b := m.bindings[e.bufferID]; b != nil {
		for i, eid := range b.excerpts {
			if eid == id {
				b.excerpts = append(b.excerpts[:i], b.excerpts[i+1:]...)
				break
			}
		}
		if len(b.excerpts) == 0 {
			m.unbindLocked(b)
		}
	}

	m.publishLocked(Event{
		Origin:   OriginExcerptRemove,
		Range:    removed,
		NewRange: Range{Start: removed.Start, End: removed.Start},
		Buffers:  []BufferID{e.bufferID},
	})
	m.mu.Unlock()
	m.drainEvents()
	return removed, nil
}

// MoveExcerpt reassigns the excerpt to display position to, interpreted
// against the arrangement without it: moving to 0 makes it first, to
// ExcerptCount-1 makes it last. Total length is unchanged; the event
// covers the span between the old and new positions.
func (m *MultiBuffer) MoveExcerpt(id ExcerptID, to int) error {
	m.mu.Lock()
	if to < 0 || to >= m.index.count() {
		m.mu.Unlock()
		return ErrInvalidRange
	}
	e, before, ok := m.index.lookup(id)
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	oldSpan := Range{Start: before.bytes, End: before.bytes + e.len()}

	idx, ok := m.index.move(id, to)
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.index = idx

	_, after, _ := m.index.lookup(id)
	newSpan := Range{Start: after.bytes, End: after.bytes + e.len()}
	union := oldSpan.Union(newSpan)

	m.publishLocked(Event{
		Origin:   OriginExcerptMove,
		Range:    union,
		NewRange: union,
		Buffers:  []BufferID{e.bufferID},
	})
	m.mu.Unlock()
	m.drainEvents()
	return nil
}

// onBufferChange folds one committed buffer change into the arrangement.
// Changes the router caused itself are queued and claimed by the router;
// a notification at or behind the binding's folded version is dropped.
func (m *MultiBuffer) onBufferChange(id BufferID, c textbuf.Change) {
	m.mu.Lock()
	b := m.bindings[id]
	if b == nil {
		// Unbound while the notification was in flight.
		m.mu.Unlock()
		return
	}
	if c.Version <= b.lastSeen {
		m.logger.Warn("dropping stale buffer notification",
			zap.Stringer("buffer", id),
			zap.Uint64("version", uint64(c.Version)),
			zap.Uint64("folded", uint64(b.lastSeen)))
		m.mu.Unlock()
		return
	}
	if b.routing {
		b.queued = append(b.queued, c)
		m.mu.Unlock()
		return
	}
	m.foldLocked(b, c)
	m.mu.Unlock()
	m.drainEvents()
}

// foldLocked refreshes the binding's excerpts to the buffer's current
// state and publishes one event for the notification that triggered it.
func (m *MultiBuffer) foldLocked(b *bufferBinding, c textbuf.Change) {
	oldSpan, _ := m.bufferSpanLocked(b)
	m.refreshLocked(b)
	newSpan, _ := m.bufferSpanLocked(b)
	m.updateDiffLocked(b, &c)
	m.publishLocked(Event{
		Origin:   OriginExternal,
		Range:    oldSpan,
		NewRange: newSpan,
		Buffers:  []BufferID{b.id},
	})
}

// bufferSpanLocked returns the union of the logical spans of the
// binding's excerpts.
func (m *MultiBuffer) bufferSpanLocked(b *bufferBinding) (Range, bool) {
	var span Range
	found := false
	for _, id := range b.excerpts {
		e, before, ok := m.index.lookup(id)
		if !ok {
			continue
		}
		s := Range{Start: before.bytes, End: before.bytes + e.len()}
		if !found {
			span = s
			found = true
		} else {
			span = span.Union(s)
		}
	}
	return span, found
}

// refreshLocked re-resolves every excerpt of the binding against the
// buffer's current text. Boundary anchors are re-minted at the new
// version each time, so they stay ahead of the buffer's history horizon
// no matter how long the excerpt lives.
func (m *MultiBuffer) refreshLocked(b *bufferBinding) {
	snap := b.buf.Snapshot()
	ver := snap.Version()
	if ver == b.lastSeen {
		b.snap = snap
		return
	}

	for _, id := range b.excerpts {
		e, _, ok := m.index.lookup(id)
		if !ok || e.version == ver {
			continue
		}
		start, errS := b.buf.ResolveAnchorAt(e.startAnchor, ver)
		end, errE := b.buf.ResolveAnchorAt(e.endAnchor, ver)
		if errS != nil || errE != nil {
			// History no longer reaches the anchors; pin the excerpt
			// where it was, clamped into the new text.
			m.logger.Warn("excerpt boundary anchors expired",
				zap.Stringer("excerpt", id),
				zap.Stringer("buffer", b.id))
			start = min(e.start, snap.Len())
			end = min(e.end, snap.Len())
		}
		if end < start {
			end = start
		}

		clone := *e
		clone.start = start
		clone.end = end
		clone.startAnchor = textbuf.Anchor{Version: ver, Offset: start, Bias: textbuf.BiasLeft}
		clone.endAnchor = textbuf.Anchor{Version: ver, Offset: end, Bias: textbuf.BiasRight}
		clone.lines = snap.OffsetToPoint(end).Line - snap.OffsetToPoint(start).Line
		clone.version = ver
		m.index, _ = m.index.replace(&clone)
	}

	b.snap = snap
	b.lastSeen = ver
}
