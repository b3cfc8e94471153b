package reader

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrUnsupportedFormat is matched by every ParseError of kind Unsupported.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrorKind classifies why a book could not be parsed.
type ErrorKind int

const (
	Unsupported ErrorKind = iota
	Corrupt
	IOFailure
)

func (k ErrorKind) String() string {
	switch k {
	case Unsupported:
		return "unsupported-format"
	case Corrupt:
		return "corrupt-structure"
	case IOFailure:
		return "io-failure"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseError is returned by Parse for any file that did not produce a
// sequence.
type ParseError struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool {
	return target == ErrUnsupportedFormat && e.Kind == Unsupported
}

// classify wraps a format error. File system errors are IO failures,
// anything else means the content could not be understood.
func classify(path string, err error) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		return err
	}
	kind := Corrupt
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		kind = IOFailure
	}
	return &ParseError{Kind: kind, Path: path, Err: err}
}
