package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
)

// Format parses one file format into a block sequence. Parse feeds the
// book content into b and returns b.Build().
type Format interface {
	Name() string
	Extensions() []string
	Parse(filename string, b *book.Builder, log *zap.Logger) (*book.Sequence, error)
}

// Options tune how every format builds its sequence.
type Options struct {
	// TocHeading replaces book.DefaultTocHeading when not empty.
	TocHeading string
}

func (o Options) builder() *book.Builder {
	b := book.NewBuilder()
	if o.TocHeading != "" {
		b.SetTocHeading(o.TocHeading)
	}
	return b
}

var registry []Format

// Register adds a format parser to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// lookup finds the registered format for a file extension.
func lookup(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return nil
}

// Parse reads a book using the format registered for its extension. Files
// with an unknown extension are read as plain text when they are valid
// UTF-8. Every error is a *ParseError.
func Parse(filename string, opts Options, log *zap.Logger) (*book.Sequence, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if _, err := os.Stat(filename); err != nil {
		return nil, &ParseError{Kind: IOFailure, Path: filename, Err: err}
	}

	f := lookup(filename)
	if f == nil {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, &ParseError{Kind: IOFailure, Path: filename, Err: err}
		}
		if !utf8.Valid(data) {
			return nil, &ParseError{Kind: Unsupported, Path: filename,
				Err: fmt.Errorf("extension %q is not registered", filepath.Ext(filename))}
		}
		f = &TextFormat{}
	}

	log = log.With(zap.String("format", f.Name()))
	seq, err := f.Parse(filename, opts.builder(), log)
	if err != nil {
		return nil, classify(filename, err)
	}
	log.Debug("Parsed book", zap.String("file", filename), zap.Int("blocks", seq.Len()), zap.Int("chapters", len(seq.Chapters())))
	return seq, nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// titleFromName derives a display title from a file name.
func titleFromName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
