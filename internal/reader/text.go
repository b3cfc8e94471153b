package reader

import (
	"bufio"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
)

const maxLine = 1 << 20

// TextFormat implements Format for plain text. It is also the fallback for
// unknown extensions.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{".txt", ".text"} }

func (f *TextFormat) Parse(filename string, b *book.Builder, log *zap.Logger) (*book.Sequence, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	b.SetTitle(titleFromName(filename))
	if err := scanParagraphs(file, b, nil); err != nil {
		return nil, err
	}
	return b.Build()
}

// scanParagraphs feeds blank-line separated paragraphs into b. A line that
// reads as a chapter heading always stands on its own. When heading is not
// nil it gets the first chance at every line: ok reports that the line was
// consumed and a non-empty chapter becomes a chapter heading.
func scanParagraphs(r io.Reader, b *book.Builder, heading func(line string) (chapter string, ok bool)) error {
	var para []string
	flush := func() {
		if len(para) > 0 {
			b.Paragraph(strings.Join(para, " "))
			para = para[:0]
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		if heading != nil {
			if chapter, ok := heading(line); ok {
				if chapter != "" {
					flush()
					b.Chapter(chapter)
				}
				continue
			}
		}
		switch {
		case book.LooksLikeChapter(line):
			flush()
			b.Chapter(line)
		default:
			para = append(para, line)
		}
	}
	flush()
	return scanner.Err()
}
