package multibuffer

// Origin names the kind of mutation that produced an event.
type Origin uint8

const (
	OriginEdit Origin = iota
	OriginExcerptInsert
	OriginExcerptRemove
	OriginExcerptMove
	OriginExternal
	OriginDiff
)

func (o Origin) String() string {
	switch o {
	case OriginEdit:
		return "edit"
	case OriginExcerptInsert:
		return "excerpt-insert"
	case OriginExcerptRemove:
		return "excerpt-remove"
	case OriginExcerptMove:
		return "excerpt-move"
	case OriginExternal:
		return "external"
	case OriginDiff:
		return "diff"
	}
	return "unknown"
}

// Event describes one completed mutation of the logical document: an
// applied edit, an excerpt inserted, removed, or moved, a folded change
// from an underlying buffer, or a diff overlay update. Range holds the
// invalidated span in the coordinates before the mutation, NewRange the
// span it became. Pure inserts carry an empty Range, pure removals an
// empty NewRange. Buffers lists the underlying buffers the mutation
// touched; for a spanning edit that is every buffer edited, in display
// order.
//
// Version increases by one with every event, and the snapshot published
// alongside the last delivered event carries the same number, so a
// subscriber that drops intermediate events can still tell exactly how
// far behind it is.
type Event struct {
	Version  uint64
	Origin   Origin
	Range    Range
	NewRange Range
	Buffers  []BufferID
}

// EventHandler receives events in commit order. Handlers run outside the
// MultiBuffer's internal locks and may query snapshots or mutate the
// MultiBuffer; a mutation made from a handler is delivered after the
// handler returns.
type EventHandler func(Event)

// SubscriptionID identifies a registered event handler.
type SubscriptionID uint64

type eventSub struct {
	id SubscriptionID
	fn EventHandler
}

type eventDelivery struct {
	ev   Event
	subs []eventSub
}

// Subscribe registers a handler for document events.
func (m *MultiBuffer) Subscribe(fn EventHandler) SubscriptionID {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, eventSub{id: id, fn: fn})
	return id
}

// Unsubscribe removes a previously registered handler.
func (m *MultiBuffer) Unsubscribe(id SubscriptionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, s := range m.subs {
		if s.id == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

// queueEvent records an event for delivery. The caller holds m.mu; the
// event's version must already have been allocated by publishLocked.
func (m *MultiBuffer) queueEvent(ev Event) {
	subs := make([]eventSub, len(m.subs))
	copy(subs, m.subs)

	m.evMu.Lock()
	m.evPending = append(m.evPending, eventDelivery{ev: ev, subs: subs})
	m.evMu.Unlock()
}

// drainEvents delivers queued events unless another goroutine already is.
// Must be called without m.mu held: enqueueing under m.mu pins delivery
// order to commit order, and draining outside it lets handlers query and
// mutate the MultiBuffer freely.
func (m *MultiBuffer) drainEvents() {
	m.evMu.Lock()
	if m.evDelivering {
		m.evMu.Unlock()
		return
	}
	m.evDelivering = true

	for len(m.evPending) > 0 {
		batch := m.evPending
		m.evPending = nil
		m.evMu.Unlock()

		for _, d := range batch {
			for _, s := range d.subs {
				s.fn(d.ev)
			}
		}

		m.evMu.Lock()
	}

	m.evDelivering = false
	m.evMu.Unlock()
}
