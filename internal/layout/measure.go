package layout

import (
	"math"
	"strings"

	"github.com/metcalfc/folio/internal/book"
)

// Font scale factors for emphasised blocks.
const (
	TitleScale  = 1.5
	LargerScale = 1.25
)

// Scale returns the font scale the renderer is expected to apply to b.
func Scale(b book.Block) float64 {
	switch {
	case b.Kind() == book.Title:
		return TitleScale
	case b.Emphasis() == book.Larger:
		return LargerScale
	}
	return 1
}

// BlockLines returns how many base lines b occupies in a column. Headings
// are measured at their scaled size and followed by one blank line; page
// breaks take no room.
func BlockLines(b book.Block, p Params) int {
	switch b.Kind() {
	case book.PageBreak:
		return 0
	case book.Paragraph, book.TocEntry:
		return EstimateLines(b.Text(), p.FontSize, p.ColumnWidth)
	}
	s := Scale(b)
	n := EstimateLines(b.Text(), p.FontSize*s, p.ColumnWidth)
	return int(math.Ceil(float64(n)*s)) + 1
}

// Wrap breaks the runes [from, to) of b's text into display lines using the
// same estimate pagination used. from must be a line start returned by
// LineStarts for the block, which holds for every Span in a PageMap.
func Wrap(b book.Block, from, to int, p Params) []string {
	runes := []rune(b.Text())
	to = min(max(to, from), len(runes))
	from = min(from, to)
	seg := runes[from:to]

	fs := p.FontSize
	if b.Kind() != book.Paragraph && b.Kind() != book.TocEntry {
		fs *= Scale(b)
	}
	starts := wrap(seg, CharsPerLine(fs, p.ColumnWidth))
	lines := make([]string, len(starts))
	for i, s := range starts {
		e := len(seg)
		if i+1 < len(starts) {
			e = starts[i+1]
		}
		lines[i] = strings.TrimSpace(string(seg[s:e]))
	}
	return lines
}
