package layout

import (
	"unicode/utf8"

	"github.com/metcalfc/folio/internal/book"
)

// Paginate lays the whole sequence out under p in a single forward pass. It
// is a pure function of its inputs.
//
// Break rules, in order of precedence:
//   - a page break moves to the next column (or page) when the current
//     column has content and is a no-op otherwise;
//   - a chapter heading starts a new page when the current column has
//     content;
//   - a block that does not fit moves to the next column without being
//     consumed; a paragraph that does not fit even an empty column is split
//     at line starts, any other oversized block overflows;
//   - a title is placed only in the first column of the first page.
func Paginate(seq *book.Sequence, p Params) (*PageMap, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	pg := pager{seq: seq, params: p, capacity: p.Lines()}
	pg.run()
	return &PageMap{params: p, blocks: seq.Len(), pages: pg.pages}, nil
}

type pager struct {
	seq      *book.Sequence
	params   Params
	capacity int

	pages    []Page
	cur      *Page
	col      int
	colLines int
}

func (pg *pager) run() {
	for i := 0; i < pg.seq.Len(); {
		b := pg.seq.At(i)
		switch b.Kind() {
		case book.PageBreak:
			if pg.colLines > 0 {
				pg.nextColumn()
			}
			i++
			continue
		case book.Title:
			if len(pg.pages) > 0 || pg.col > 0 || pg.colLines > 0 {
				i++
				continue
			}
		case book.ChapterHeading:
			if pg.colLines > 0 {
				pg.closePage()
			}
		}

		lines := BlockLines(b, pg.params)
		if pg.colLines > 0 && pg.colLines+lines > pg.capacity {
			pg.nextColumn()
			continue
		}
		if lines > pg.capacity && b.Kind() == book.Paragraph {
			pg.split(i, b)
		} else {
			pg.place(i, 0, utf8.RuneCountInString(b.Text()), lines)
		}
		i++
	}
	if pg.cur != nil {
		pg.closePage()
	}
}

// split distributes an oversized paragraph over as many columns as needed.
// The current column is empty when it is called.
func (pg *pager) split(i int, b book.Block) {
	starts := LineStarts(b.Text(), pg.params.FontSize, pg.params.ColumnWidth)
	end := utf8.RuneCountInString(b.Text())
	for k := 0; k < len(starts); k += pg.capacity {
		if k > 0 {
			pg.nextColumn()
		}
		n := min(pg.capacity, len(starts)-k)
		to := end
		if k+n < len(starts) {
			to = starts[k+n]
		}
		pg.place(i, starts[k], to, n)
	}
}

func (pg *pager) place(block, from, to, lines int) {
	if pg.cur == nil {
		start := Boundary{Block: block, Offset: from}
		if len(pg.pages) == 0 {
			// leading page breaks still belong to the first page
			start = Boundary{}
		}
		pg.cur = &Page{
			Start:   start,
			Columns: make([]Column, pg.params.Columns),
		}
		pg.col = 0
		pg.colLines = 0
	}
	c := &pg.cur.Columns[pg.col]
	c.Spans = append(c.Spans, Span{Block: block, From: from, To: to, Lines: lines})
	c.Lines += lines
	pg.colLines += lines
}

func (pg *pager) nextColumn() {
	if pg.cur == nil {
		return
	}
	if pg.col+1 < pg.params.Columns {
		pg.col++
		pg.colLines = 0
		return
	}
	pg.closePage()
}

func (pg *pager) closePage() {
	if pg.cur == nil {
		return
	}
	pg.cur.Index = len(pg.pages)
	pg.pages = append(pg.pages, *pg.cur)
	pg.cur = nil
	pg.col = 0
	pg.colLines = 0
}
