package book

import (
	"errors"
	"fmt"
	"iter"
	"unicode/utf8"
)

var ErrInvalidSequence = errors.New("invalid block sequence")

// Sequence is the immutable, ordered list of blocks for one opened book.
// Indices into it are the addressing scheme used by pagination and
// persisted positions.
type Sequence struct {
	blocks   []Block
	chapters []int
	toc      int
}

// NewSequence validates blocks and takes a private copy of them.
func NewSequence(blocks []Block) (*Sequence, error) {
	s := &Sequence{
		blocks: make([]Block, len(blocks)),
		toc:    -1,
	}
	copy(s.blocks, blocks)

	for i, b := range s.blocks {
		switch b.kind {
		case Title:
			if i != 0 {
				return nil, fmt.Errorf("%w: title at index %d", ErrInvalidSequence, i)
			}
		case PageBreak:
			if b.text != "" {
				return nil, fmt.Errorf("%w: page break with text at index %d", ErrInvalidSequence, i)
			}
		case TocHeading:
			if s.toc < 0 {
				s.toc = i
			}
		case ChapterHeading:
			s.chapters = append(s.chapters, i)
		}
	}
	for i, b := range s.blocks {
		t, ok := b.Target()
		if !ok {
			continue
		}
		if t <= i || t >= len(s.blocks) {
			return nil, fmt.Errorf("%w: toc entry %d points at %d", ErrInvalidSequence, i, t)
		}
		if s.blocks[t].kind != ChapterHeading {
			return nil, fmt.Errorf("%w: toc entry %d points at %s", ErrInvalidSequence, i, s.blocks[t].kind)
		}
	}
	return s, nil
}

// Len returns the number of blocks. A nil sequence is empty.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.blocks)
}

func (s *Sequence) At(i int) Block {
	return s.blocks[i]
}

// All iterates blocks in document order.
func (s *Sequence) All() iter.Seq2[int, Block] {
	return func(yield func(int, Block) bool) {
		if s == nil {
			return
		}
		for i, b := range s.blocks {
			if !yield(i, b) {
				return
			}
		}
	}
}

// Chapters returns the indices of chapter headings in document order.
func (s *Sequence) Chapters() []int {
	if s == nil {
		return nil
	}
	return append([]int(nil), s.chapters...)
}

// TocHeading returns the index of the table of contents heading, or -1.
func (s *Sequence) TocHeading() int {
	if s == nil {
		return -1
	}
	return s.toc
}

// RuneLen returns the length of block i's text in runes.
func (s *Sequence) RuneLen(i int) int {
	return utf8.RuneCountInString(s.blocks[i].text)
}

// ChapterAt returns the position in Chapters() of the last chapter heading
// at or before block i, or -1 when i precedes the first chapter.
func (s *Sequence) ChapterAt(i int) int {
	ch := -1
	for n, c := range s.chapters {
		if c > i {
			break
		}
		ch = n
	}
	return ch
}
