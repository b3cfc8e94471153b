// Package book holds the content block model: the flat, ordered sequence of
// structural units a parsed book is reduced to before pagination.
package book

import "fmt"

// Kind is the structural role of a block.
type Kind int

const (
	Paragraph Kind = iota
	Title
	ChapterHeading
	TocHeading
	TocEntry
	PageBreak
)

func (k Kind) String() string {
	switch k {
	case Paragraph:
		return "paragraph"
	case Title:
		return "title"
	case ChapterHeading:
		return "chapter"
	case TocHeading:
		return "toc-heading"
	case TocEntry:
		return "toc-entry"
	case PageBreak:
		return "page-break"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Emphasis is a semantic style hint. Pixel values are resolved by the
// renderer from the user's display settings.
type Emphasis int

const (
	Normal Emphasis = iota
	Bold
	Larger
)

func (e Emphasis) String() string {
	switch e {
	case Normal:
		return "normal"
	case Bold:
		return "bold"
	case Larger:
		return "larger"
	}
	return fmt.Sprintf("emphasis(%d)", int(e))
}

// Block is one paginatable unit. The zero value is an empty paragraph.
type Block struct {
	kind     Kind
	text     string
	emphasis Emphasis
	target   int
}

func NewTitle(text string) Block {
	return Block{kind: Title, text: text, emphasis: Larger}
}

func NewChapter(text string) Block {
	return Block{kind: ChapterHeading, text: text, emphasis: Larger}
}

func NewTocHeading(text string) Block {
	return Block{kind: TocHeading, text: text, emphasis: Bold}
}

// NewTocEntry creates a table of contents line pointing at the block index
// of the chapter heading it names.
func NewTocEntry(text string, target int) Block {
	return Block{kind: TocEntry, text: text, target: target}
}

func NewPageBreak() Block {
	return Block{kind: PageBreak}
}

func NewParagraph(text string) Block {
	return Block{kind: Paragraph, text: text}
}

func (b Block) Kind() Kind         { return b.kind }
func (b Block) Text() string       { return b.text }
func (b Block) Emphasis() Emphasis { return b.emphasis }

// Target returns the chapter index a TOC entry points at. ok is false for
// every other kind.
func (b Block) Target() (index int, ok bool) {
	if b.kind != TocEntry {
		return 0, false
	}
	return b.target, true
}

func (b Block) String() string {
	if t, ok := b.Target(); ok {
		return fmt.Sprintf("%s(->%d) %q", b.kind, t, b.text)
	}
	return fmt.Sprintf("%s %q", b.kind, b.text)
}
