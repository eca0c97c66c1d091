package multibuffer

import (
	"go.uber.org/zap"

	"github.com/dshills/weave/internal/textdiff"
)

// Option configures a MultiBuffer at construction.
type Option func(*MultiBuffer)

// WithLogger sets the logger for dropped notifications, expired anchors,
// and rollback failures. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *MultiBuffer) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithDiffOptions sets the options used for every diff overlay
// computation.
func WithDiffOptions(opts textdiff.Options) Option {
	return func(m *MultiBuffer) {
		m.diffOpts = opts
	}
}

// WithDiffSyncLimit sets the line count above which diff overlay
// recomputation moves to a background goroutine. Zero or negative keeps
// the default.
func WithDiffSyncLimit(n int) Option {
	return func(m *MultiBuffer) {
		if n > 0 {
			m.syncLimit = n
		}
	}
}
