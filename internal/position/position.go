// Package position converts between persisted reading positions and live
// block pointers.
package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/layout"
)

// DefaultThreshold is the fraction of a book after which it counts as read.
const DefaultThreshold = 0.95

var ErrMalformed = errors.New("malformed position")

// Position is a persisted reading position. Block and Offset are the
// canonical fields; Page, Percent and Finished are derived for display when
// the position is saved. A negative Block marks a coarse record that only
// knows its Page.
type Position struct {
	Block    int     `json:"block"`
	Offset   int     `json:"offset,omitempty"`
	Page     int     `json:"page"`
	Percent  float64 `json:"percent"`
	Finished bool    `json:"finished,omitempty"`
}

// Coarse returns a page-only position.
func Coarse(page int) Position {
	return Position{Block: -1, Page: page}
}

func (p Position) IsCoarse() bool { return p.Block < 0 }

// String renders "block:offset", or "pN" for a coarse position.
func (p Position) String() string {
	if p.IsCoarse() {
		return "p" + strconv.Itoa(p.Page)
	}
	return strconv.Itoa(p.Block) + ":" + strconv.Itoa(p.Offset)
}

// Parse reads the String form back.
func Parse(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if page, ok := strings.CutPrefix(s, "p"); ok {
		n, err := strconv.Atoi(page)
		if err != nil || n < 0 {
			return Position{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		return Coarse(n), nil
	}
	b, o, ok := strings.Cut(s, ":")
	if !ok {
		return Position{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	block, err1 := strconv.Atoi(b)
	offset, err2 := strconv.Atoi(o)
	if err1 != nil || err2 != nil || block < 0 || offset < 0 {
		return Position{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return Position{Block: block, Offset: offset}, nil
}

// IsFinished reports whether block lies in the final (1-threshold) share of
// a book with total blocks.
func IsFinished(block, total int, threshold float64) bool {
	if total <= 0 {
		return false
	}
	return float64(block+1) >= threshold*float64(total)
}

// Encode builds the persisted form of a live pointer. The page is taken from
// m and is only meaningful for the parameters m was built with.
func Encode(block, offset int, m *layout.PageMap, threshold float64) Position {
	total := m.BlockCount()
	pos := Position{Block: block, Offset: offset}
	if total > 0 {
		pos.Page = m.PageAt(block, offset)
		pos.Percent = float64(block) * 100 / float64(total)
		pos.Finished = IsFinished(block, total, threshold)
	}
	return pos
}

// Resolve maps a persisted position onto seq. Out of range values are
// clamped and logged; resolving never fails. Coarse positions go through
// the page map.
func Resolve(pos Position, seq *book.Sequence, m *layout.PageMap, log *zap.Logger) (block, offset int) {
	if log == nil {
		log = zap.NewNop()
	}
	n := seq.Len()
	if n == 0 {
		return 0, 0
	}
	if pos.IsCoarse() {
		if m.TotalPages() == 0 {
			return 0, 0
		}
		page := pos.Page
		if page >= m.TotalPages() {
			log.Warn("Stored page beyond end of book, clamping",
				zap.Int("page", page), zap.Int("pages", m.TotalPages()))
		}
		b := m.Boundary(page)
		return b.Block, b.Offset
	}

	block, offset = pos.Block, pos.Offset
	if block >= n {
		log.Warn("Stored block beyond end of book, clamping",
			zap.Int("block", block), zap.Int("blocks", n))
		return n - 1, 0
	}
	if l := seq.RuneLen(block); offset > l {
		log.Warn("Stored offset beyond end of block, clamping",
			zap.Int("block", block), zap.Int("offset", offset), zap.Int("length", l))
		offset = l
	}
	return block, offset
}
