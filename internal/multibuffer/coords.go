package multibuffer

import "github.com/dshills/weave/internal/textbuf"

// Logical coordinates address the concatenation of all excerpts in
// display order, as if it were one contiguous document. Offsets count
// bytes from the start of the first excerpt; excerpt headers occupy no
// logical space. The same kinds used for buffer-local coordinates serve
// here, so translating between the two spaces is plain arithmetic.
type (
	ByteOffset = textbuf.ByteOffset
	Point      = textbuf.Point
	Range      = textbuf.Range
)
