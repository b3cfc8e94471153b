// Package session drives one open book: it keeps the page map in step with
// the viewport and font, answers navigation commands and persists the
// reading position.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/layout"
	"github.com/metcalfc/folio/internal/position"
	"github.com/metcalfc/folio/internal/state"
)

// DefaultAutosave is the autosave interval used when none is configured.
const DefaultAutosave = 5 * time.Second

var (
	ErrClosed   = errors.New("no book is open")
	ErrNotSaved = errors.New("reading position not saved")
)

// State of the controller. Navigating and Reflowing are only observable
// from inside the controller while a command runs.
type State int

const (
	Closed State = iota
	Paginated
	Navigating
	Reflowing
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Paginated:
		return "paginated"
	case Navigating:
		return "navigating"
	case Reflowing:
		return "reflowing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// PositionStore is the reading history collaborator.
type PositionStore interface {
	LoadPosition(user, book string) (position.Position, bool, error)
	SavePosition(user, book string, pos position.Position, finished bool) error
}

// BookmarkStore is optional; bookmark commands fail without one.
type BookmarkStore interface {
	AddBookmark(user, book, label string, pos position.Position) (state.Bookmark, error)
	Bookmarks(user, book string) ([]state.Bookmark, error)
}

type Config struct {
	User      string
	Positions PositionStore
	Bookmarks BookmarkStore
	// Scheduler runs autosave; nil disables it.
	Scheduler Scheduler
	Autosave  time.Duration
	// Threshold is the fraction of blocks after which a book counts as
	// read. Zero means position.DefaultThreshold.
	Threshold float64
	Log       *zap.Logger
}

// Controller is safe for concurrent use; autosave ticks arrive on the
// scheduler's goroutine.
type Controller struct {
	cfg Config
	log *zap.Logger

	mu     sync.Mutex
	state  State
	params layout.Params
	bookID string
	engine *layout.Engine
	pages  *layout.PageMap
	page   int
	// anchor is the pointer navigation last moved to. Reflows resolve it
	// again so repeated resizes do not drift backwards, unless that would
	// lose the block at the top of the visible page.
	anchor       layout.Boundary
	markedRead   bool
	lastSaved    position.Position
	saved        bool
	generation   uint64
	stopAutosave func()
}

// New returns a closed controller that will lay books out with params.
func New(params layout.Params, cfg Config) *Controller {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = position.DefaultThreshold
	}
	if cfg.Autosave <= 0 {
		cfg.Autosave = DefaultAutosave
	}
	c := &Controller{cfg: cfg, log: cfg.Log}
	c.params = c.sanitize(params)
	return c
}

func (c *Controller) sanitize(p layout.Params) layout.Params {
	if err := p.Validate(); err != nil {
		q := p.Clamp()
		c.log.Warn("Layout parameters clamped", zap.Error(err), zap.Stringer("params", q))
		return q
	}
	return p
}

// Open starts a session for seq, replacing any open book. The saved
// position is restored when the store has one; a failing store means the
// book opens at the start.
func (c *Controller) Open(bookID string, seq *book.Sequence) error {
	c.mu.Lock()
	prevStop, prevErr := c.closeLocked()

	engine := layout.NewEngine(seq, c.log)
	pages, err := engine.Paginate(c.params)
	if err != nil {
		c.mu.Unlock()
		runStop(prevStop)
		return err
	}
	c.engine, c.pages, c.bookID = engine, pages, bookID
	c.anchor, c.page = layout.Boundary{}, 0
	c.markedRead, c.saved = false, false

	if c.cfg.Positions != nil {
		pos, ok, err := c.cfg.Positions.LoadPosition(c.cfg.User, bookID)
		switch {
		case err != nil:
			c.log.Warn("Unable to load reading position, starting from the beginning", zap.Error(err))
		case ok:
			b, o := position.Resolve(pos, seq, pages, c.log)
			c.anchor = layout.Boundary{Block: b, Offset: o}
			c.page = pages.PageAt(b, o)
		}
	}
	c.state = Paginated
	c.generation++
	gen := c.generation
	c.log.Info("Book opened",
		zap.String("book", bookID),
		zap.Int("blocks", seq.Len()),
		zap.Int("pages", pages.TotalPages()),
		zap.Int("page", c.page))
	c.mu.Unlock()

	runStop(prevStop)
	if prevErr != nil {
		c.log.Warn("Previous book position not saved", zap.Error(prevErr))
	}

	if c.cfg.Scheduler != nil {
		stop, err := c.cfg.Scheduler.Every(c.cfg.Autosave, func() { c.autosave(gen) })
		if err != nil {
			c.log.Warn("Autosave disabled", zap.Error(err))
			return nil
		}
		c.mu.Lock()
		if c.generation == gen && c.state != Closed {
			c.stopAutosave = stop
			stop = nil
		}
		c.mu.Unlock()
		runStop(stop)
	}
	return nil
}

// Close persists the position and discards the session. The session is
// closed even when saving fails; the error wraps ErrNotSaved.
func (c *Controller) Close() error {
	c.mu.Lock()
	stop, err := c.closeLocked()
	c.mu.Unlock()
	runStop(stop)
	return err
}

func (c *Controller) closeLocked() (func(), error) {
	if c.state == Closed {
		return nil, nil
	}
	err := c.saveLocked(true)
	stop := c.stopAutosave
	c.stopAutosave = nil
	c.generation++
	c.state = Closed
	c.engine, c.pages = nil, nil
	c.bookID = ""
	c.page = 0
	c.anchor = layout.Boundary{}
	c.log.Debug("Book closed")
	return stop, err
}

func runStop(stop func()) {
	if stop != nil {
		stop()
	}
}

// SaveNow persists the current position.
func (c *Controller) SaveNow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrClosed
	}
	return c.saveLocked(true)
}

func (c *Controller) autosave(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || c.state == Closed {
		return
	}
	if err := c.saveLocked(false); err != nil {
		c.log.Debug("Autosave failed", zap.Error(err))
	}
}

func (c *Controller) saveLocked(force bool) error {
	if c.cfg.Positions == nil || c.pages.BlockCount() == 0 {
		return nil
	}
	pos := c.encodeLocked()
	if !force && c.saved && pos == c.lastSaved {
		return nil
	}
	if err := c.cfg.Positions.SavePosition(c.cfg.User, c.bookID, pos, pos.Finished); err != nil {
		c.log.Warn("Unable to save reading position", zap.String("book", c.bookID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNotSaved, err)
	}
	c.lastSaved, c.saved = pos, true
	return nil
}

func (c *Controller) encodeLocked() position.Position {
	pos := position.Encode(c.anchor.Block, c.anchor.Offset, c.pages, c.cfg.Threshold)
	pos.Finished = pos.Finished || c.markedRead
	return pos
}

// OnResize re-paginates for a new viewport, keeping the reader's place.
// Invalid sizes are clamped to the minimums rather than rejected.
func (c *Controller) OnResize(p layout.Params) {
	c.reflow(p)
}

// OnFontChange re-paginates for a new font size, keeping the reader's
// place.
func (c *Controller) OnFontChange(p layout.Params) {
	c.reflow(p)
}

func (c *Controller) reflow(p layout.Params) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p = c.sanitize(p)
	if c.state == Closed {
		c.params = p
		return
	}
	if p == c.params {
		return
	}
	c.state = Reflowing
	pages, err := c.engine.Paginate(p)
	if err != nil {
		c.log.Error("Reflow failed", zap.Error(err))
		c.state = Paginated
		return
	}
	old := c.page
	top := c.pages.Boundary(c.page)
	c.params, c.pages = p, pages
	c.page = pages.PageAt(c.anchor.Block, c.anchor.Offset)
	if start, end := pages.BlockRange(c.page); top.Block < start || top.Block >= end {
		c.page = pages.PageAt(top.Block, top.Offset)
		c.anchor = top
	}
	c.state = Paginated
	c.log.Debug("Reflowed",
		zap.Stringer("params", p),
		zap.Int("pages", pages.TotalPages()),
		zap.Int("from", old),
		zap.Int("to", c.page))
}

// navigate runs fn with the controller in the Navigating state and returns
// the resulting page. It is a no-op on a closed controller or an empty book.
func (c *Controller) navigate(fn func()) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed || c.pages.TotalPages() == 0 {
		return 0
	}
	c.state = Navigating
	fn()
	c.state = Paginated
	return c.page
}

func (c *Controller) toPageLocked(p int) {
	p = min(max(p, 0), c.pages.TotalPages()-1)
	if p == c.page {
		return
	}
	c.page = p
	c.anchor = c.pages.Boundary(p)
}

func (c *Controller) toBlockLocked(block, offset int) {
	n := c.pages.BlockCount()
	block = min(max(block, 0), n-1)
	c.anchor = layout.Boundary{Block: block, Offset: max(offset, 0)}
	c.page = c.pages.PageAt(block, c.anchor.Offset)
}

// GotoPage moves to page p, clamped to the valid range.
func (c *Controller) GotoPage(p int) int {
	return c.navigate(func() { c.toPageLocked(p) })
}

// GotoBlock moves to the page containing block i, clamped to the valid
// range.
func (c *Controller) GotoBlock(i int) int {
	return c.navigate(func() { c.toBlockLocked(i, 0) })
}

func (c *Controller) NextPage() int {
	return c.navigate(func() { c.toPageLocked(c.page + 1) })
}

func (c *Controller) PrevPage() int {
	return c.navigate(func() { c.toPageLocked(c.page - 1) })
}

func (c *Controller) FirstPage() int {
	return c.navigate(func() { c.toPageLocked(0) })
}

func (c *Controller) LastPage() int {
	return c.navigate(func() { c.toPageLocked(c.pages.TotalPages() - 1) })
}

// GotoChapter moves to the n-th chapter heading (0-based, clamped).
func (c *Controller) GotoChapter(n int) int {
	return c.navigate(func() {
		chapters := c.engine.Sequence().Chapters()
		if len(chapters) == 0 {
			return
		}
		n = min(max(n, 0), len(chapters)-1)
		c.toBlockLocked(chapters[n], 0)
	})
}

// NextChapter moves to the chapter after the one being read.
func (c *Controller) NextChapter() int {
	return c.navigate(func() {
		seq := c.engine.Sequence()
		chapters := seq.Chapters()
		next := seq.ChapterAt(c.anchor.Block) + 1
		if next < len(chapters) {
			c.toBlockLocked(chapters[next], 0)
		}
	})
}

// PrevChapter moves to the start of the current chapter, or to the previous
// chapter when already on the page where the current one starts.
func (c *Controller) PrevChapter() int {
	return c.navigate(func() {
		seq := c.engine.Sequence()
		chapters := seq.Chapters()
		cur := seq.ChapterAt(c.anchor.Block)
		if cur < 0 {
			return
		}
		if c.pages.PageContaining(chapters[cur]) < c.page {
			c.toBlockLocked(chapters[cur], 0)
		} else if cur > 0 {
			c.toBlockLocked(chapters[cur-1], 0)
		}
	})
}

// GotoContents moves to the table of contents, or the first page when the
// book has none.
func (c *Controller) GotoContents() int {
	return c.navigate(func() {
		if toc := c.engine.Sequence().TocHeading(); toc >= 0 {
			c.toBlockLocked(toc, 0)
			return
		}
		c.toPageLocked(0)
	})
}

// GotoTocEntry follows the table of contents entry at block i. It reports
// false when i is not a TOC entry.
func (c *Controller) GotoTocEntry(i int) (int, bool) {
	ok := false
	page := c.navigate(func() {
		seq := c.engine.Sequence()
		if i < 0 || i >= seq.Len() {
			return
		}
		target, isEntry := seq.At(i).Target()
		if !isEntry {
			return
		}
		ok = true
		c.toBlockLocked(target, 0)
	})
	return page, ok
}

// MarkRead forces the finished flag on (or back to derived) for the open
// book.
func (c *Controller) MarkRead(read bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markedRead = read
}

func (c *Controller) AddBookmark(label string) (state.Bookmark, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return state.Bookmark{}, ErrClosed
	}
	if c.cfg.Bookmarks == nil {
		return state.Bookmark{}, errors.New("bookmarks are not available")
	}
	if label == "" {
		label = fmt.Sprintf("Page %d", c.page+1)
	}
	return c.cfg.Bookmarks.AddBookmark(c.cfg.User, c.bookID, label, c.encodeLocked())
}

func (c *Controller) Bookmarks() ([]state.Bookmark, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return nil, ErrClosed
	}
	if c.cfg.Bookmarks == nil {
		return nil, nil
	}
	return c.cfg.Bookmarks.Bookmarks(c.cfg.User, c.bookID)
}

// GotoBookmark moves to a saved bookmark of the open book.
func (c *Controller) GotoBookmark(bm state.Bookmark) int {
	return c.navigate(func() {
		b, o := position.Resolve(bm.Position, c.engine.Sequence(), c.pages, c.log)
		c.toBlockLocked(b, o)
	})
}
