// Package layout turns a block sequence into pages for a given column size
// and font: line estimation, the pagination pass and the resulting PageMap.
package layout

import (
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
)

// Engine owns the block sequence of an open book and the page map computed
// for the most recent parameters. It is not safe for concurrent use.
type Engine struct {
	seq  *book.Sequence
	last *PageMap
	log  *zap.Logger
}

func NewEngine(seq *book.Sequence, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{seq: seq, log: log}
}

func (e *Engine) Sequence() *book.Sequence { return e.seq }

// Paginate returns the page map for p. The previous map is reused when p
// equals the parameters it was built with; any difference rebuilds from the
// first block.
func (e *Engine) Paginate(p Params) (*PageMap, error) {
	if e.last != nil && e.last.params == p {
		return e.last, nil
	}
	m, err := Paginate(e.seq, p)
	if err != nil {
		return nil, err
	}
	e.log.Debug("Paginated",
		zap.Stringer("params", p),
		zap.Int("blocks", m.BlockCount()),
		zap.Int("pages", m.TotalPages()))
	e.last = m
	return m, nil
}
