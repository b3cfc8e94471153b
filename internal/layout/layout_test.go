package layout

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/metcalfc/folio/internal/book"
)

func mustSeq(t *testing.T, blocks ...book.Block) *book.Sequence {
	t.Helper()
	seq, err := book.NewSequence(blocks)
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func mustPaginate(t *testing.T, seq *book.Sequence, p Params) *PageMap {
	t.Helper()
	m, err := Paginate(seq, p)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

var oneColumn = Params{ColumnWidth: 400, FontSize: 16, LinesPerColumn: 20, Columns: 1}

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		perLine int
		want    []int
	}{
		{"empty", "", 10, []int{0}},
		{"spaces only", "   ", 10, []int{0}},
		{"fits", "aa bb", 5, []int{0}},
		{"wraps", "aa bb cc", 5, []int{0, 6}},
		{"long word", "abcdefghij", 4, []int{0, 4, 8}},
		{"long word after short", "ab cdefgh", 4, []int{0, 3, 7}},
		{"wide runes", "日本語", 4, []int{0, 2}},
		{"one per line", "a b c", 1, []int{0, 2, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrap([]rune(tt.text), tt.perLine); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("wrap(%q, %d) = %v, want %v", tt.text, tt.perLine, got, tt.want)
			}
		})
	}
}

func TestEstimateLines(t *testing.T) {
	if got := CharsPerLine(16, 400); got != 44 {
		t.Errorf("CharsPerLine(16, 400) = %d, want 44", got)
	}
	if got := CharsPerLine(16, 5); got != 1 {
		t.Errorf("CharsPerLine on a tiny column = %d, want 1", got)
	}
	if got := EstimateLines("", 16, 400); got != 1 {
		t.Errorf("empty text = %d lines, want 1", got)
	}
	if got := EstimateLines("short", 16, 400); got != 1 {
		t.Errorf("short text = %d lines, want 1", got)
	}
	// 9 four-letter words fit in 44 chars
	text := strings.Repeat("word ", 500)
	if got := EstimateLines(text, 16, 400); got != 56 {
		t.Errorf("500 words = %d lines, want 56", got)
	}
	if EstimateLines(text, 16, 200) <= EstimateLines(text, 16, 400) {
		t.Error("narrower column should need more lines")
	}
	if EstimateLines(text, 16, 400) != EstimateLines(text, 16, 400) {
		t.Error("estimate is not deterministic")
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Params
		ok   bool
	}{
		{"valid lines", oneColumn, true},
		{"valid height", Params{ColumnWidth: 300, ColumnHeight: 500, FontSize: 14, Columns: 2}, true},
		{"zero width", Params{FontSize: 16, LinesPerColumn: 5, Columns: 1}, false},
		{"negative font", Params{ColumnWidth: 300, FontSize: -1, LinesPerColumn: 5, Columns: 1}, false},
		{"no height", Params{ColumnWidth: 300, FontSize: 16, Columns: 1}, false},
		{"three columns", Params{ColumnWidth: 300, FontSize: 16, LinesPerColumn: 5, Columns: 3}, false},
		{"zero columns", Params{ColumnWidth: 300, FontSize: 16, LinesPerColumn: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidParams) {
				t.Errorf("err = %v, want ErrInvalidParams", err)
			}
			if err := tt.p.Clamp().Validate(); err != nil {
				t.Errorf("clamped params still invalid: %v", err)
			}
		})
	}
}

func TestParamsLines(t *testing.T) {
	p := Params{ColumnWidth: 300, ColumnHeight: 230, FontSize: 16, Columns: 1}
	if got := p.Lines(); got != 10 {
		t.Errorf("Lines = %d, want 10", got)
	}
	p.LinesPerColumn = 3
	if got := p.Lines(); got != 3 {
		t.Errorf("Lines with override = %d, want 3", got)
	}
}

func TestPaginateRejectsInvalidParams(t *testing.T) {
	_, err := Paginate(mustSeq(t, book.NewParagraph("x")), Params{})
	if !errors.Is(err, ErrInvalidParams) {
		t.Errorf("err = %v, want ErrInvalidParams", err)
	}
}

func TestTitleChapterLongParagraph(t *testing.T) {
	seq := mustSeq(t,
		book.NewTitle("Book"),
		book.NewChapter("Ch1"),
		book.NewParagraph(strings.Repeat("word ", 500)),
	)
	m := mustPaginate(t, seq, oneColumn)

	// title; chapter; 56 paragraph lines split 20/20/16
	if m.TotalPages() != 5 {
		t.Fatalf("TotalPages = %d, want 5", m.TotalPages())
	}
	want := []Boundary{{0, 0}, {1, 0}, {2, 0}, {2, 900}, {2, 1800}}
	for p, b := range want {
		if got := m.Boundary(p); got != b {
			t.Errorf("Boundary(%d) = %+v, want %+v", p, got, b)
		}
	}
	if s, e := m.BlockRange(0); s != 0 || e != 1 {
		t.Errorf("BlockRange(0) = %d,%d want 0,1", s, e)
	}
	if s, e := m.BlockRange(3); s != 2 || e != 3 {
		t.Errorf("BlockRange(3) = %d,%d want 2,3", s, e)
	}
	if got := m.PageAt(2, 1000); got != 3 {
		t.Errorf("PageAt(2, 1000) = %d, want 3", got)
	}
	if got := m.PageContaining(2); got != 2 {
		t.Errorf("PageContaining(2) = %d, want 2", got)
	}
}

func TestEmptySequence(t *testing.T) {
	m := mustPaginate(t, mustSeq(t), oneColumn)
	if m.TotalPages() != 0 {
		t.Errorf("TotalPages = %d, want 0", m.TotalPages())
	}
	if s, e := m.BlockRange(0); s != 0 || e != 0 {
		t.Errorf("BlockRange(0) = %d,%d want empty", s, e)
	}
	if m.PageContaining(3) != 0 {
		t.Error("PageContaining on empty map should be 0")
	}
	if len(m.Page(0).Columns) != 0 {
		t.Error("Page on empty map should be empty")
	}
}

func TestSingleShortParagraph(t *testing.T) {
	m := mustPaginate(t, mustSeq(t, book.NewParagraph("Hello.")), oneColumn)
	if m.TotalPages() != 1 {
		t.Errorf("TotalPages = %d, want 1", m.TotalPages())
	}
	if got := m.Page(0).Columns[0].Lines; got != 1 {
		t.Errorf("lines = %d, want 1", got)
	}
}

func TestPageBreakAfterTitle(t *testing.T) {
	seq := mustSeq(t, book.NewTitle("Book"), book.NewPageBreak(), book.NewParagraph("Body."))
	m := mustPaginate(t, seq, oneColumn)
	if m.TotalPages() != 2 {
		t.Fatalf("TotalPages = %d, want 2", m.TotalPages())
	}
	if got := m.Boundary(1); got != (Boundary{Block: 2}) {
		t.Errorf("page 1 starts at %+v, want block 2", got)
	}
}

func TestLeadingPageBreakIsNoop(t *testing.T) {
	seq := mustSeq(t, book.NewPageBreak(), book.NewParagraph("a"), book.NewParagraph("b"))
	m := mustPaginate(t, seq, oneColumn)
	if m.TotalPages() != 1 {
		t.Errorf("TotalPages = %d, want 1", m.TotalPages())
	}
	if s, e := m.BlockRange(0); s != 0 || e != 3 {
		t.Errorf("BlockRange(0) = %d,%d want 0,3", s, e)
	}
}

func TestPageBreakMovesToNextColumn(t *testing.T) {
	p := oneColumn
	p.Columns = 2
	seq := mustSeq(t, book.NewTitle("Book"), book.NewPageBreak(), book.NewParagraph("a"))
	m := mustPaginate(t, seq, p)
	if m.TotalPages() != 1 {
		t.Fatalf("TotalPages = %d, want 1", m.TotalPages())
	}
	cols := m.Page(0).Columns
	if len(cols[0].Spans) != 1 || cols[0].Spans[0].Block != 0 {
		t.Errorf("column 0 = %+v, want title only", cols[0].Spans)
	}
	if len(cols[1].Spans) != 1 || cols[1].Spans[0].Block != 2 {
		t.Errorf("column 1 = %+v, want paragraph", cols[1].Spans)
	}
}

func TestChapterStartsNewPage(t *testing.T) {
	p := oneColumn
	p.Columns = 2
	seq := mustSeq(t, book.NewParagraph("a"), book.NewChapter("Chapter 2"), book.NewParagraph("b"))
	m := mustPaginate(t, seq, p)
	if m.TotalPages() != 2 {
		t.Fatalf("TotalPages = %d, want 2", m.TotalPages())
	}
	if got := m.Boundary(1).Block; got != 1 {
		t.Errorf("page 1 starts at block %d, want 1", got)
	}
}

func TestChapterAtEmptyColumnDoesNotBreak(t *testing.T) {
	p := oneColumn
	p.Columns = 2
	seq := mustSeq(t,
		book.NewParagraph("a"),
		book.NewPageBreak(),
		book.NewChapter("Chapter 2"),
		book.NewParagraph("b"),
	)
	m := mustPaginate(t, seq, p)
	if m.TotalPages() != 1 {
		t.Fatalf("TotalPages = %d, want 1", m.TotalPages())
	}
	if got := m.Page(0).Columns[1].Spans[0].Block; got != 2 {
		t.Errorf("column 1 starts with block %d, want chapter 2", got)
	}
}

func TestTocEntriesDoNotBreak(t *testing.T) {
	seq, err := book.NewBuilder().
		SetTitle("Book").
		Chapter("Chapter 1").Paragraph("a").
		Chapter("Chapter 2").Paragraph("b").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	m := mustPaginate(t, seq, oneColumn)
	// front matter; chapter 1; chapter 2
	if m.TotalPages() != 3 {
		t.Fatalf("TotalPages = %d, want 3", m.TotalPages())
	}
	if s, e := m.BlockRange(0); s != 0 || e != 5 {
		t.Errorf("front matter range = %d,%d want 0,5", s, e)
	}
}

func TestOverflowMovesToNextColumn(t *testing.T) {
	p := Params{ColumnWidth: 400, FontSize: 16, LinesPerColumn: 2, Columns: 2}
	var blocks []book.Block
	for range 10 {
		blocks = append(blocks, book.NewParagraph("line"))
	}
	m := mustPaginate(t, mustSeq(t, blocks...), p)
	if m.TotalPages() != 3 {
		t.Fatalf("TotalPages = %d, want 3", m.TotalPages())
	}
	for pg, want := range []int{0, 4, 8} {
		if got := m.Boundary(pg).Block; got != want {
			t.Errorf("page %d starts at %d, want %d", pg, got, want)
		}
	}
}

func TestOversizeHeadingOverflows(t *testing.T) {
	p := Params{ColumnWidth: 400, FontSize: 16, LinesPerColumn: 2, Columns: 1}
	seq := mustSeq(t, book.NewChapter("Chapter"), book.NewParagraph("a"))
	m := mustPaginate(t, seq, p)
	if m.TotalPages() != 2 {
		t.Fatalf("TotalPages = %d, want 2", m.TotalPages())
	}
	if got := m.Page(0).Columns[0].Lines; got <= 2 {
		t.Errorf("heading lines = %d, want overflow past 2", got)
	}
}

func TestSplitSpansMatchWrap(t *testing.T) {
	p := Params{ColumnWidth: 200, FontSize: 16, LinesPerColumn: 3, Columns: 2}
	seq := mustSeq(t, book.NewParagraph(strings.Repeat("lorem ipsum dolor sit amet ", 40)))
	m := mustPaginate(t, seq, p)
	if m.TotalPages() < 2 {
		t.Fatalf("TotalPages = %d, want a split paragraph", m.TotalPages())
	}
	prevTo := 0
	for pg := range m.TotalPages() {
		for _, c := range m.Page(pg).Columns {
			for _, s := range c.Spans {
				if s.From != prevTo {
					t.Errorf("span starts at %d, previous ended at %d", s.From, prevTo)
				}
				prevTo = s.To
				if got := len(Wrap(seq.At(0), s.From, s.To, p)); got != s.Lines {
					t.Errorf("Wrap gives %d lines, span has %d", got, s.Lines)
				}
			}
		}
	}
	if prevTo != seq.RuneLen(0) {
		t.Errorf("spans end at %d, want %d", prevTo, seq.RuneLen(0))
	}
}

func sampleBook(t *testing.T) *book.Sequence {
	t.Helper()
	b := book.NewBuilder().SetTitle("Sample")
	for ch := range 4 {
		b.Chapter("Chapter " + string(rune('A'+ch)))
		for i := range 12 {
			b.Paragraph(strings.Repeat("text ", 10+i*7))
		}
	}
	seq, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return seq
}

func TestPaginateIsIdempotent(t *testing.T) {
	seq := sampleBook(t)
	p := Params{ColumnWidth: 320, ColumnHeight: 600, FontSize: 15, Columns: 2}
	a := mustPaginate(t, seq, p)
	b := mustPaginate(t, seq, p)
	if !reflect.DeepEqual(a, b) {
		t.Error("two passes with identical inputs differ")
	}
}

func TestRangesAreContiguous(t *testing.T) {
	seq := sampleBook(t)
	for _, p := range []Params{
		{ColumnWidth: 800, FontSize: 16, LinesPerColumn: 20, Columns: 1},
		{ColumnWidth: 400, FontSize: 16, LinesPerColumn: 20, Columns: 1},
		{ColumnWidth: 250, FontSize: 22, LinesPerColumn: 6, Columns: 2},
	} {
		m := mustPaginate(t, seq, p)
		if s, _ := m.BlockRange(0); s != 0 {
			t.Errorf("%v: first range starts at %d", p, s)
		}
		if _, e := m.BlockRange(m.TotalPages() - 1); e != seq.Len() {
			t.Errorf("%v: last range ends at %d, want %d", p, e, seq.Len())
		}
		for pg := 0; pg+1 < m.TotalPages(); pg++ {
			_, end := m.BlockRange(pg)
			next, _ := m.BlockRange(pg + 1)
			shared := 0
			if m.Boundary(pg+1).Offset > 0 {
				shared = 1
			}
			if end != next+shared {
				t.Errorf("%v: page %d ends at %d, page %d starts at %d", p, pg, end, pg+1, next)
			}
		}
		for i := range seq.Len() {
			s, e := m.BlockRange(m.PageContaining(i))
			if i < s || i >= e {
				t.Errorf("%v: block %d not in range [%d,%d) of its page", p, i, s, e)
			}
		}
	}
}

func TestPageContainingSentinel(t *testing.T) {
	seq := sampleBook(t)
	m := mustPaginate(t, seq, oneColumn)
	if got := m.PageContaining(seq.Len()); got != m.TotalPages()-1 {
		t.Errorf("PageContaining(end) = %d, want last page %d", got, m.TotalPages()-1)
	}
	if got := m.PageContaining(-5); got != 0 {
		t.Errorf("PageContaining(-5) = %d, want 0", got)
	}
}

func TestNarrowerColumnsNeedMorePages(t *testing.T) {
	seq := sampleBook(t)
	wide := mustPaginate(t, seq, Params{ColumnWidth: 800, FontSize: 16, LinesPerColumn: 20, Columns: 1})
	narrow := mustPaginate(t, seq, Params{ColumnWidth: 400, FontSize: 16, LinesPerColumn: 20, Columns: 1})
	if narrow.TotalPages() < wide.TotalPages() {
		t.Errorf("narrow %d pages < wide %d pages", narrow.TotalPages(), wide.TotalPages())
	}
}

func TestEngineCachesByParams(t *testing.T) {
	e := NewEngine(sampleBook(t), nil)
	a, err := e.Paginate(oneColumn)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := e.Paginate(oneColumn)
	if a != b {
		t.Error("equal params should reuse the page map")
	}
	p := oneColumn
	p.FontSize = 20
	c, _ := e.Paginate(p)
	if c == a {
		t.Error("changed params should rebuild the page map")
	}
	if _, err := e.Paginate(Params{}); err == nil {
		t.Error("invalid params should fail")
	}
	if again, _ := e.Paginate(p); again != c {
		t.Error("failed pagination must not replace the last map")
	}
}
