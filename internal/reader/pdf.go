package reader

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"rsc.io/pdf"

	"github.com/metcalfc/folio/internal/book"
)

// PDFFormat implements Format for PDF files with a text layer. Scanned
// pages without text contribute nothing.
type PDFFormat struct{}

func init() {
	Register(&PDFFormat{})
}

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{".pdf"} }

// Parse rebuilds lines from positioned text runs and joins them into
// paragraphs. A paragraph ends at a vertical gap wider than a line or at a
// page end after terminal punctuation.
func (f *PDFFormat) Parse(filename string, b *book.Builder, log *zap.Logger) (seq *book.Sequence, err error) {
	// the pdf package panics on malformed files
	defer func() {
		if r := recover(); r != nil {
			seq, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	doc, err := pdf.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	b.SetTitle(titleFromName(filename))
	pb := &pdfBuilder{b: b}
	total := doc.NumPage()
	for i := 1; i <= total; i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			log.Warn("Skipping null pdf page", zap.Int("page", i))
			continue
		}
		pb.page(p.Content().Text)
	}
	pb.flush()
	return b.Build()
}

type pdfBuilder struct {
	b    *book.Builder
	para []string
}

type pdfLine struct {
	text     string
	y        float64
	fontSize float64
}

func (pb *pdfBuilder) page(runs []pdf.Text) {
	lines := groupLines(runs)
	for i, ln := range lines {
		if i > 0 && math.Abs(lines[i-1].y-ln.y) > 1.8*ln.fontSize {
			pb.flush()
		}
		if book.LooksLikeChapter(ln.text) {
			pb.flush()
			pb.b.Chapter(ln.text)
			continue
		}
		pb.para = append(pb.para, ln.text)
	}
	if n := len(pb.para); n > 0 && endsSentence(pb.para[n-1]) {
		pb.flush()
	}
}

func (pb *pdfBuilder) flush() {
	if len(pb.para) == 0 {
		return
	}
	pb.b.Paragraph(joinLines(pb.para))
	pb.para = pb.para[:0]
}

// joinLines joins wrapped lines, undoing end-of-line hyphenation.
func joinLines(lines []string) string {
	var out strings.Builder
	for i, ln := range lines {
		if i > 0 {
			prev := lines[i-1]
			if !hyphenated(prev) {
				out.WriteByte(' ')
			}
		}
		if i < len(lines)-1 && hyphenated(ln) {
			ln = strings.TrimSuffix(ln, "-")
		}
		out.WriteString(ln)
	}
	return out.String()
}

func hyphenated(line string) bool {
	rest, ok := strings.CutSuffix(line, "-")
	if !ok || rest == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(rest)
	return unicode.IsLetter(r)
}

// groupLines merges text runs that share a baseline. Runs are taken in
// content stream order, which is reading order for most producers.
func groupLines(runs []pdf.Text) []pdfLine {
	var lines []pdfLine
	var cur strings.Builder
	var last pdf.Text
	started := false
	emit := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			lines = append(lines, pdfLine{text: t, y: last.Y, fontSize: math.Max(last.FontSize, 1)})
		}
		cur.Reset()
	}
	for _, r := range runs {
		if started {
			tol := math.Max(last.FontSize, 1) / 2
			switch {
			case math.Abs(r.Y-last.Y) > tol:
				emit()
			case r.X-(last.X+last.W) > 0.2*math.Max(r.FontSize, 1):
				cur.WriteByte(' ')
			}
		}
		cur.WriteString(r.S)
		last, started = r, true
	}
	if started {
		emit()
	}
	return lines
}

func endsSentence(s string) bool {
	s = strings.TrimRight(s, "\"'»”)")
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?") || strings.HasSuffix(s, "…")
}
