package main

import (
	"fmt"
	"slices"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/layout"
	"github.com/metcalfc/folio/internal/session"
)

// textLine is one display line of a column. Padding lines have Block -1.
type textLine struct {
	Text  string
	Block int
	Kind  book.Kind
}

// columnLines turns the spans of col into display lines, padding each span
// to the number of base lines pagination reserved for it.
func columnLines(seq *book.Sequence, col layout.Column, p layout.Params) []textLine {
	var out []textLine
	for _, sp := range col.Spans {
		b := seq.At(sp.Block)
		if b.Kind() == book.PageBreak {
			continue
		}
		lines := layout.Wrap(b, sp.From, sp.To, p)
		for i := range sp.Lines {
			if i < len(lines) {
				out = append(out, textLine{Text: lines[i], Block: sp.Block, Kind: b.Kind()})
				continue
			}
			out = append(out, textLine{Block: -1})
		}
	}
	return out
}

// bookTitle returns the title block text, if the book has one.
func bookTitle(seq *book.Sequence) string {
	if seq != nil && seq.Len() > 0 && seq.At(0).Kind() == book.Title {
		return seq.At(0).Text()
	}
	return ""
}

// tocEntries lists the TOC entry blocks visible on the current page.
func tocEntries(seq *book.Sequence, v session.View) []int {
	var out []int
	for _, col := range v.Layout.Columns {
		for _, sp := range col.Spans {
			if seq.At(sp.Block).Kind() == book.TocEntry {
				out = append(out, sp.Block)
			}
		}
	}
	return out
}

// nextEntry cycles through entries starting after cur.
func nextEntry(entries []int, cur int) int {
	if len(entries) == 0 {
		return -1
	}
	i := slices.Index(entries, cur)
	return entries[(i+1)%len(entries)]
}

func statusText(title string, v session.View) string {
	if v.Empty() {
		return "(empty book)"
	}
	s := fmt.Sprintf("page %d/%d  %.0f%%", v.Page+1, v.TotalPages, v.Position.Percent)
	if v.Position.Finished {
		s += "  read"
	}
	switch {
	case title != "" && v.ChapterTitle != "":
		return title + " | " + v.ChapterTitle + " | " + s
	case v.ChapterTitle != "":
		return v.ChapterTitle + " | " + s
	case title != "":
		return title + " | " + s
	}
	return s
}
