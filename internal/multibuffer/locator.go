package multibuffer

import (
	"math"
	"slices"
)

// A locator is a dense ordering key for excerpts. Locators sort
// lexicographically, and between any two distinct locators another one can
// always be generated, so reordering excerpts never requires renumbering
// their neighbors. Excerpt ids stay stable for the excerpt's lifetime;
// locators are the piece that changes when an excerpt moves.
type locator []uint64

var (
	locatorMin = locator{0}
	locatorMax = locator{math.MaxUint64}
)

// compare orders two locators lexicographically. A locator that is a
// strict prefix of another sorts first.
func (l locator) compare(other locator) int {
	return slices.Compare(l, other)
}

// locatorBetween returns a locator strictly between a and b, which must
// satisfy a < b. Generated locators never end in 0, so between any two
// keys drawn from one arrangement a gap always exists. The result extends
// a by as few digits as possible; in the common append-at-end case it
// stays a single digit.
func locatorBetween(a, b locator) locator {
	var out locator
	for i := 0; ; i++ {
		av := uint64(0)
		if i < len(a) {
			av = a[i]
		}
		bv := uint64(math.MaxUint64)
		if i < len(b) {
			bv = b[i]
		}
		mid := av + (bv-av)/2
		out = append(out, mid)
		if mid > av {
			return out
		}
	}
}
