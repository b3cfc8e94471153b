package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/metcalfc/folio/internal/book"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }

// Parse walks the spine in reading order. Every spine item the NCX names
// opens with a chapter heading; items the NCX does not know fall back to
// their own h1-h3 headings.
func (f *EPUBFormat) Parse(filename string, b *book.Builder, log *zap.Logger) (*book.Sequence, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}
	defer rc.Close()

	if len(rc.Rootfiles) == 0 {
		return nil, errors.New("no rootfiles found in epub")
	}
	pkg := rc.Rootfiles[0]

	if t := strings.TrimSpace(pkg.Metadata.Title); t != "" {
		b.SetTitle(t)
	} else {
		b.SetTitle(titleFromName(filename))
	}

	titles := buildTOCHrefMap(pkg, log)
	for _, ref := range pkg.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		data, err := readItem(ref.Item)
		if err != nil {
			log.Warn("Skipping unreadable spine item", zap.String("href", ref.Item.HREF), zap.Error(err))
			continue
		}
		if err := extractBlocks(data, titleFor(titles, ref.Item.HREF), b); err != nil {
			log.Warn("Skipping malformed spine item", zap.String("href", ref.Item.HREF), zap.Error(err))
		}
	}
	return b.Build()
}

func readItem(item *epub.Item) ([]byte, error) {
	r, err := item.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// extractBlocks appends the content of one XHTML document to b. When
// chapter is set it becomes the heading of the document and a leading
// heading repeating it is dropped.
func extractBlocks(data []byte, chapter string, b *book.Builder) error {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	w := &blockWalker{b: b, fallback: chapter == ""}
	if chapter != "" {
		b.Chapter(chapter)
		w.dup = book.Clean(chapter)
	}
	w.walk(doc)
	w.flush()
	return nil
}

type blockWalker struct {
	b        *book.Builder
	text     strings.Builder
	dup      string
	fallback bool
}

func (w *blockWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style:
			return
		case atom.Br, atom.Hr:
			w.flush()
			return
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			w.flush()
			w.heading(n)
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		w.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.flush()
	}
}

func (w *blockWalker) heading(n *html.Node) {
	text := book.Clean(nodeText(n))
	if text == "" || w.repeatsChapter(text) {
		return
	}
	if w.fallback && n.DataAtom != atom.H4 && n.DataAtom != atom.H5 && n.DataAtom != atom.H6 {
		w.b.Chapter(text)
		return
	}
	w.b.Line(text)
}

func (w *blockWalker) flush() {
	text := book.Clean(w.text.String())
	w.text.Reset()
	if text == "" || w.repeatsChapter(text) {
		return
	}
	w.b.Line(text)
}

// repeatsChapter reports whether text is the first content of the document
// and only repeats its chapter heading. Only the first block is checked.
func (w *blockWalker) repeatsChapter(text string) bool {
	dup := w.dup
	w.dup = ""
	return dup != "" && strings.EqualFold(dup, text)
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Blockquote, atom.Pre, atom.Section,
		atom.Article, atom.Aside, atom.Td, atom.Th, atom.Tr, atom.Dt, atom.Dd,
		atom.Figcaption, atom.Header, atom.Footer, atom.Body:
		return true
	}
	return false
}

func nodeText(n *html.Node) string {
	var out strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			out.WriteString(n.Data)
		case n.DataAtom == atom.Br:
			out.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out.String()
}
