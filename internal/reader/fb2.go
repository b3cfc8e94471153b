package reader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/metcalfc/folio/internal/book"
)

// FB2Format implements Format for FictionBook 2 files.
type FB2Format struct{}

func init() {
	Register(&FB2Format{})
}

func (f *FB2Format) Name() string         { return "FB2" }
func (f *FB2Format) Extensions() []string { return []string{".fb2"} }

// Parse reads the book title from title-info and flattens the main body:
// every section title becomes a chapter heading and every paragraph a body
// paragraph, in document order. Notes bodies are skipped.
func (f *FB2Format) Parse(filename string, b *book.Builder, log *zap.Logger) (*book.Sequence, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc := etree.NewDocument()
	// old FB2s are often not well-formed and use legacy encodings
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    true,
	}
	if _, err := doc.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("unable to read FB2: %w", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, errors.New("document has no root element")
	}
	if root.Tag != "FictionBook" {
		return nil, fmt.Errorf("unexpected root element %q", root.Tag)
	}

	if el := root.FindElement("./description/title-info/book-title"); el != nil {
		b.SetTitle(el.Text())
	}
	if !b.HasTitle() {
		b.SetTitle(titleFromName(filename))
	}

	bodies := 0
	for _, body := range root.SelectElements("body") {
		if name := body.SelectAttrValue("name", ""); name != "" && bodies > 0 {
			log.Debug("Skipping secondary body", zap.String("name", name))
			continue
		}
		bodies++
		for _, child := range body.ChildElements() {
			switch child.Tag {
			case "section":
				parseSection(child, b, log)
			case "epigraph":
				parseParagraphs(child, b)
			case "title", "image":
			default:
				log.Debug("Unexpected tag in body, ignoring", zap.String("tag", child.Tag))
			}
		}
	}
	if bodies == 0 {
		return nil, errors.New("FB2 has no body")
	}
	return b.Build()
}

func parseSection(el *etree.Element, b *book.Builder, log *zap.Logger) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "title":
			b.Chapter(joinParagraphs(child))
		case "section":
			parseSection(child, b, log)
		case "p", "subtitle", "text-author":
			b.Paragraph(elementText(child))
		case "poem", "cite", "epigraph", "annotation":
			parseParagraphs(child, b)
		case "table":
			for _, row := range child.SelectElements("tr") {
				var cells []string
				for _, cell := range row.ChildElements() {
					cells = append(cells, elementText(cell))
				}
				b.Paragraph(strings.Join(cells, " "))
			}
		case "empty-line", "image":
		default:
			log.Debug("Unexpected tag in section, ignoring", zap.String("tag", child.Tag))
		}
	}
}

// parseParagraphs emits every paragraph-like descendant of el.
func parseParagraphs(el *etree.Element, b *book.Builder) {
	for _, child := range el.ChildElements() {
		switch child.Tag {
		case "p", "v", "subtitle", "text-author":
			b.Paragraph(elementText(child))
		default:
			parseParagraphs(child, b)
		}
	}
}

// joinParagraphs flattens a multi-paragraph title into one line.
func joinParagraphs(el *etree.Element) string {
	var parts []string
	for _, p := range el.SelectElements("p") {
		if t := book.Clean(elementText(p)); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return elementText(el)
	}
	return strings.Join(parts, ". ")
}

// elementText returns all character data below el, inline markup removed.
func elementText(el *etree.Element) string {
	var out strings.Builder
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, tok := range e.Child {
			switch t := tok.(type) {
			case *etree.CharData:
				out.WriteString(t.Data)
			case *etree.Element:
				walk(t)
			}
		}
	}
	walk(el)
	return out.String()
}
