package multibuffer

import "github.com/dshills/weave/internal/textbuf"

// NewSingleton returns a MultiBuffer presenting one buffer in its
// entirety as a single excerpt. The excerpt's boundaries track the
// buffer's full extent through every edit, so the logical document always
// mirrors the buffer. Returns ErrInvalidRange if the source does not know
// the buffer.
func NewSingleton(source BufferSource, id BufferID, opts ...Option) (*MultiBuffer, error) {
	buf, ok := source.Buffer(id)
	if !ok {
		return nil, ErrInvalidRange
	}
	m := New(source, opts...)
	_, err := m.AppendExcerpt(ExcerptSpec{
		BufferID: id,
		Range:    textbuf.Range{Start: 0, End: buf.Len()},
	})
	if err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}
