package reader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/metcalfc/folio/internal/book"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const contentOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Test Book</dc:title>
    <dc:language>en</dc:language>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="c1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="c2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="c3" href="notes.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="c1"/>
    <itemref idref="c2"/>
    <itemref idref="c3"/>
  </spine>
</package>`

const tocNCX = `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="n1" playOrder="1">
      <navLabel><text>The Beginning</text></navLabel>
      <content src="ch1.xhtml"/>
      <navPoint id="n1a" playOrder="2">
        <navLabel><text>A Subsection</text></navLabel>
        <content src="ch1.xhtml#sub"/>
      </navPoint>
    </navPoint>
    <navPoint id="n2" playOrder="3">
      <navLabel><text>The Middle</text></navLabel>
      <content src="ch2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

const ch1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Ignored</title><style>p { margin: 0 }</style></head>
<body>
  <h1>The Beginning</h1>
  <p>This is the <b>first</b> paragraph.</p>
  <p>
    This is the second paragraph
    with a newline.
  </p>
  <div>Some <span>nested</span> text.<p>Inner block.</p></div>
</body>
</html>`

const ch2 = `<html><body><p>Middle text.</p></body></html>`

const notes = `<html><body><h2>Notes</h2><p>A note.</p><h5>small heading</h5></body></html>`

func buildEPUB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	files := []struct{ name, body string }{
		{"mimetype", "application/epub+zip"},
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", contentOPF},
		{"OEBPS/toc.ncx", tocNCX},
		{"OEBPS/ch1.xhtml", ch1},
		{"OEBPS/ch2.xhtml", ch2},
		{"OEBPS/notes.xhtml", notes},
	}
	for _, file := range files {
		w, err := zw.Create(file.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(file.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEPUBParse(t *testing.T) {
	seq, err := Parse(buildEPUB(t), Options{}, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []struct {
		kind book.Kind
		text string
	}{
		{book.Title, "The Test Book"},
		{book.TocHeading, book.DefaultTocHeading},
		{book.TocEntry, "The Beginning"},
		{book.TocEntry, "The Middle"},
		{book.TocEntry, "Notes"},
		{book.PageBreak, ""},
		{book.ChapterHeading, "The Beginning"},
		{book.Paragraph, "This is the first paragraph."},
		{book.Paragraph, "This is the second paragraph with a newline."},
		{book.Paragraph, "Some nested text."},
		{book.Paragraph, "Inner block."},
		{book.ChapterHeading, "The Middle"},
		{book.Paragraph, "Middle text."},
		{book.ChapterHeading, "Notes"},
		{book.Paragraph, "A note."},
		{book.Paragraph, "small heading"},
	}
	if seq.Len() != len(want) {
		for i, b := range seq.All() {
			t.Logf("%d: %s", i, b)
		}
		t.Fatalf("got %d blocks, want %d", seq.Len(), len(want))
	}
	for i, w := range want {
		b := seq.At(i)
		if b.Kind() != w.kind || b.Text() != w.text {
			t.Errorf("block %d = %s %q, want %s %q", i, b.Kind(), b.Text(), w.kind, w.text)
		}
	}
	if target, _ := seq.At(3).Target(); target != 11 {
		t.Errorf("toc entry target = %d, want 11", target)
	}
}

func TestExtractBlocksDropsRepeatedHeading(t *testing.T) {
	b := book.NewBuilder()
	doc := `<html><body><p class="title">CHAPTER ONE</p><p>Text.</p><p>Chapter One</p></body></html>`
	if err := extractBlocks([]byte(doc), "Chapter One", b); err != nil {
		t.Fatal(err)
	}
	seq, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	// only the leading repeat is dropped; later text is kept even when it
	// matches
	if got := kinds(seq); got != "Hee|CpC" {
		t.Errorf("kinds = %q", got)
	}
}

func TestEPUBSherlock(t *testing.T) {
	// Skip if SherlockHolmes.epub doesn't exist
	epubPath := "../../SherlockHolmes.epub"
	if _, err := os.Stat(epubPath); os.IsNotExist(err) {
		t.Skip("SherlockHolmes.epub not found, skipping test")
	}

	seq, err := Parse(epubPath, Options{}, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(seq.Chapters()) == 0 {
		t.Error("Expected chapters")
	}
	t.Logf("Found %d blocks, %d chapters", seq.Len(), len(seq.Chapters()))
	for i, idx := range seq.Chapters() {
		t.Logf("%d. %s (block %d)", i+1, seq.At(idx).Text(), idx)
	}
}
