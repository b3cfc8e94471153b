package layout

import "sort"

// Boundary is where a page starts: a block index and a rune offset into that
// block's text. Offset is non-zero only when a paragraph was split.
type Boundary struct {
	Block  int
	Offset int
}

// Before reports whether b sorts before o in document order.
func (b Boundary) Before(o Boundary) bool {
	if b.Block != o.Block {
		return b.Block < o.Block
	}
	return b.Offset < o.Offset
}

// Span is the part of one block placed in a column: runes [From, To) of its
// text, occupying Lines base lines.
type Span struct {
	Block int
	From  int
	To    int
	Lines int
}

type Column struct {
	Spans []Span
	Lines int
}

// Page is one spread of one or more columns.
type Page struct {
	Index   int
	Start   Boundary
	Columns []Column
}

// PageMap is the result of one pagination pass. It is never modified after
// Paginate returns it.
type PageMap struct {
	params Params
	blocks int
	pages  []Page
}

func (m *PageMap) Params() Params { return m.params }

// BlockCount returns the length of the sequence the map was built from.
func (m *PageMap) BlockCount() int {
	if m == nil {
		return 0
	}
	return m.blocks
}

// TotalPages is 0 only for an empty sequence.
func (m *PageMap) TotalPages() int {
	if m == nil {
		return 0
	}
	return len(m.pages)
}

func (m *PageMap) clamp(p int) int {
	return min(max(p, 0), len(m.pages)-1)
}

// Boundary returns where page p starts. p is clamped to the valid range.
func (m *PageMap) Boundary(p int) Boundary {
	if m.TotalPages() == 0 {
		return Boundary{}
	}
	return m.pages[m.clamp(p)].Start
}

// BlockRange returns the blocks [start, end) that page p shows content
// from. When the next page starts inside a split paragraph that paragraph
// belongs to both ranges. An empty map yields (0, 0).
func (m *PageMap) BlockRange(p int) (start, end int) {
	if m.TotalPages() == 0 {
		return 0, 0
	}
	p = m.clamp(p)
	start = m.pages[p].Start.Block
	if p+1 == len(m.pages) {
		return start, m.blocks
	}
	next := m.pages[p+1].Start
	end = next.Block
	if next.Offset > 0 {
		end++
	}
	return start, end
}

// Page returns a copy of page p's column layout.
func (m *PageMap) Page(p int) Page {
	if m.TotalPages() == 0 {
		return Page{}
	}
	src := m.pages[m.clamp(p)]
	out := Page{Index: src.Index, Start: src.Start, Columns: make([]Column, len(src.Columns))}
	for i, c := range src.Columns {
		out.Columns[i] = Column{Spans: append([]Span(nil), c.Spans...), Lines: c.Lines}
	}
	return out
}

// PageAt returns the page showing the given rune offset of a block: the last
// page starting at or before it. Positions past the end map to the last
// page. An empty map yields 0.
func (m *PageMap) PageAt(block, offset int) int {
	if m.TotalPages() == 0 {
		return 0
	}
	pos := Boundary{Block: block, Offset: offset}
	next := sort.Search(len(m.pages), func(i int) bool {
		return pos.Before(m.pages[i].Start)
	})
	return max(next-1, 0)
}

// PageContaining returns the page whose block range contains block i.
func (m *PageMap) PageContaining(i int) int {
	return m.PageAt(i, 0)
}
