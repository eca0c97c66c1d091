package textbuf

// Anchor is a stable reference to a position in the buffer. It is a value:
// it records the offset at the version it was taken, and resolving it
// replays the committed changes since that version, shifting the offset
// through each one according to its bias. Anchors need no registration and
// no cleanup; they simply expire once the buffer's bounded history no
// longer reaches back to their version.
type Anchor struct {
	Version Version
	Offset  ByteOffset
	Bias    Bias
}

// AnchorAt creates an anchor for the given offset at the buffer's current
// version. Returns ErrOffsetOutOfRange if the offset is outside the buffer.
func (b *Buffer) AnchorAt(offset ByteOffset, bias Bias) (Anchor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if offset < 0 || offset > b.rope.Len() {
		return Anchor{}, ErrOffsetOutOfRange
	}
	return Anchor{Version: b.version, Offset: offset, Bias: bias}, nil
}

// ResolveAnchor returns the anchor's position in the buffer's current
// version. Returns ErrAnchorExpired when the history no longer reaches
// back to the anchor's version.
func (b *Buffer) ResolveAnchor(a Anchor) (ByteOffset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.resolveLocked(a, b.version)
}

// ResolveAnchorAt returns the anchor's position as of the given version,
// which must not precede the anchor's own. Versions newer than the buffer
// resolve against the current state.
func (b *Buffer) ResolveAnchorAt(a Anchor, at Version) (ByteOffset, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if at > b.version {
		at = b.version
	}
	return b.resolveLocked(a, at)
}

// Reanchor re-creates an anchor at the buffer's current version, so that
// future resolutions replay only changes committed after now. Long-lived
// position holders call this whenever they process a change notification,
// keeping their anchors ahead of the history horizon.
func (b *Buffer) Reanchor(a Anchor) (Anchor, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	offset, err := b.resolveLocked(a, b.version)
	if err != nil {
		return Anchor{}, err
	}
	return Anchor{Version: b.version, Offset: offset, Bias: a.Bias}, nil
}

func (b *Buffer) resolveLocked(a Anchor, at Version) (ByteOffset, error) {
	if a.Version > at {
		// Resolution only moves forward in time.
		return 0, ErrAnchorExpired
	}
	if a.Version == at {
		return a.Offset, nil
	}
	if a.Version < b.oldestReachableLocked() {
		return 0, ErrAnchorExpired
	}

	offset := a.Offset
	for i := 0; i < b.histCount; i++ {
		c := b.history[(b.histHead+i)%b.maxHistory]
		if c.Version <= a.Version {
			continue
		}
		if c.Version > at {
			break
		}
		offset = TransformOffset(offset, c, a.Bias)
	}
	return offset, nil
}
