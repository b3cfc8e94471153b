package reader

import (
	"bufio"
	"bytes"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+?)(?:\s+#+)?\s*$`)

// Parse turns headers into chapter headings and everything else into
// paragraphs. A document that opens with its only level one header uses
// it as the book title.
func (f *MarkdownFormat) Parse(filename string, b *book.Builder, log *zap.Logger) (*book.Sequence, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	title := leadingTitle(data)
	if title != "" {
		b.SetTitle(title)
	} else {
		b.SetTitle(titleFromName(filename))
	}

	skip := title != ""
	err = scanParagraphs(bytes.NewReader(data), b, func(line string) (string, bool) {
		match := headerRegex.FindStringSubmatch(line)
		if match == nil {
			skip = false
			return "", false
		}
		if skip {
			skip = false
			return "", true
		}
		return strings.TrimSpace(match[2]), true
	})
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// leadingTitle returns the text of the first line when it is the only
// level one header of the document.
func leadingTitle(data []byte) string {
	var title string
	h1, first := 0, true
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		match := headerRegex.FindStringSubmatch(line)
		if match != nil && len(match[1]) == 1 {
			h1++
			if first {
				title = match[2]
			}
		}
		first = false
	}
	if h1 != 1 {
		return ""
	}
	return title
}
