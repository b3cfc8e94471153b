package session

import (
	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/layout"
	"github.com/metcalfc/folio/internal/position"
)

// View is a snapshot of what the renderer needs for the current page.
type View struct {
	State      State
	Book       string
	Page       int
	TotalPages int
	// Start and End are the block range of the page.
	Start, End int
	Layout     layout.Page
	Params     layout.Params
	Position   position.Position
	// Chapter is the index into the sequence's chapter list, or -1.
	Chapter      int
	ChapterTitle string
}

// Empty reports whether the open book has nothing to show.
func (v View) Empty() bool {
	return v.State != Closed && v.TotalPages == 0
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{State: c.state, Params: c.params, Chapter: -1}
	if c.state == Closed {
		return v
	}
	v.Book = c.bookID
	v.Page = c.page
	v.TotalPages = c.pages.TotalPages()
	v.Start, v.End = c.pages.BlockRange(c.page)
	v.Layout = c.pages.Page(c.page)
	v.Position = c.encodeLocked()

	seq := c.engine.Sequence()
	if ch := seq.ChapterAt(c.anchor.Block); ch >= 0 {
		v.Chapter = ch
		v.ChapterTitle = seq.At(seq.Chapters()[ch]).Text()
	}
	return v
}

// Sequence returns the open book's blocks, or nil when closed.
func (c *Controller) Sequence() *book.Sequence {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil
	}
	return c.engine.Sequence()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Params() layout.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// Position returns the encoded position of the current anchor. It is the
// zero Position when no book is open.
func (c *Controller) Position() position.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return position.Position{}
	}
	return c.encodeLocked()
}
