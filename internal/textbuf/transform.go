package textbuf

// Bias controls how a position behaves when text is inserted exactly at it.
type Bias uint8

const (
	// BiasLeft keeps the position on the left side of text inserted at it,
	// so the position does not move.
	BiasLeft Bias = iota

	// BiasRight keeps the position on the right side of text inserted at
	// it, so the position shifts past the new text.
	BiasRight
)

// String returns a string representation of the bias.
func (b Bias) String() string {
	if b == BiasRight {
		return "right"
	}
	return "left"
}

// TransformOffset maps an offset through a committed change.
//
// Rules:
//   - change entirely before the offset: shift by the change's delta
//   - change entirely after the offset: unchanged
//   - insertion exactly at the offset: bias decides which side of the new
//     text the offset lands on
//   - change spanning the offset: the offset collapses onto the replacement,
//     at its start for BiasLeft and its end for BiasRight
func TransformOffset(offset ByteOffset, c Change, bias Bias) ByteOffset {
	switch {
	case c.Range.End < offset || (c.Range.End == offset && !c.Range.IsEmpty()):
		// Entirely before: shift by the delta.
		return offset + c.Delta()

	case c.Range.IsEmpty() && c.Range.Start == offset:
		// Insertion at the offset: bias decides the side.
		if bias == BiasLeft {
			return offset
		}
		return offset + c.Delta()

	case c.Range.Start >= offset:
		// Entirely after: unchanged.
		return offset

	default:
		// Spanned by the replaced region: collapse onto the replacement.
		if bias == BiasLeft {
			return c.NewRange.Start
		}
		return c.NewRange.End
	}
}

// TransformRange maps a range through a committed change, transforming each
// endpoint with its own bias. The result is normalized so Start <= End.
func TransformRange(r Range, c Change, startBias, endBias Bias) Range {
	start := TransformOffset(r.Start, c, startBias)
	end := TransformOffset(r.End, c, endBias)
	if start > end {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}
