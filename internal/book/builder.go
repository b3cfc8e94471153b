package book

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DefaultTocHeading is the heading text of the generated table of contents.
const DefaultTocHeading = "Contents"

// MaxHeadingLen bounds the rune length of a line that may be taken for a
// chapter heading.
const MaxHeadingLen = 80

var chapterRegex = regexp.MustCompile(`(?i)^(глава|chapter|часть|part)\s`)

// LooksLikeChapter reports whether a line of plain text reads as a chapter
// heading ("Chapter 3", "Глава 1", ...).
func LooksLikeChapter(text string) bool {
	text = strings.TrimSpace(text)
	return utf8.RuneCountInString(text) <= MaxHeadingLen && chapterRegex.MatchString(text)
}

// Builder collects parsed content in reading order and produces a Sequence
// with the front matter laid out the way the paginator expects: title,
// generated table of contents, an explicit break, then the body.
type Builder struct {
	title      string
	tocHeading string
	body       []Block
	chapters   int
}

func NewBuilder() *Builder {
	return &Builder{tocHeading: DefaultTocHeading}
}

// Clean normalises text to NFC and collapses all whitespace runs to a single
// space.
func Clean(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

func (b *Builder) SetTitle(text string) *Builder {
	b.title = Clean(text)
	return b
}

func (b *Builder) HasTitle() bool {
	return b.title != ""
}

func (b *Builder) SetTocHeading(text string) *Builder {
	if t := Clean(text); t != "" {
		b.tocHeading = t
	}
	return b
}

// Chapter appends a chapter heading. Empty headings are dropped.
func (b *Builder) Chapter(text string) *Builder {
	if t := Clean(text); t != "" {
		b.body = append(b.body, NewChapter(t))
		b.chapters++
	}
	return b
}

// Paragraph appends a body paragraph. Empty paragraphs are dropped.
func (b *Builder) Paragraph(text string) *Builder {
	if t := Clean(text); t != "" {
		b.body = append(b.body, NewParagraph(t))
	}
	return b
}

// Line appends text as a chapter heading when it looks like one and as a
// paragraph otherwise.
func (b *Builder) Line(text string) *Builder {
	if LooksLikeChapter(text) {
		return b.Chapter(text)
	}
	return b.Paragraph(text)
}

// BodyLen returns the number of body blocks collected so far.
func (b *Builder) BodyLen() int {
	return len(b.body)
}

func (b *Builder) Build() (*Sequence, error) {
	var front []Block
	if b.title != "" {
		front = append(front, NewTitle(b.title))
	}

	tocEntries := 0
	if b.chapters > 0 {
		tocEntries = b.chapters
		front = append(front, NewTocHeading(b.tocHeading))
	}
	bodyStart := len(front) + tocEntries
	if len(front) > 0 && len(b.body) > 0 {
		bodyStart++
	}
	if tocEntries > 0 {
		for i, blk := range b.body {
			if blk.kind == ChapterHeading {
				front = append(front, NewTocEntry(blk.text, bodyStart+i))
			}
		}
	}
	if len(front) > 0 && len(b.body) > 0 {
		front = append(front, NewPageBreak())
	}

	blocks := make([]Block, 0, len(front)+len(b.body))
	blocks = append(blocks, front...)
	blocks = append(blocks, b.body...)
	return NewSequence(blocks)
}
