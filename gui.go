//go:build gui

package main

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/book"
	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/layout"
)

const consoleWhileReading = true

// Initial window size; the page area is smaller by the status and controls
// rows.
const (
	windowWidth  = 800
	windowHeight = 600
	chromeHeight = 80
)

type gui struct {
	r *reading
	w fyne.Window

	page     *fyne.Container
	status   *widget.Label
	controls *widget.Label

	title      string
	selected   int
	markedRead bool
	message    string
}

func newGUI(r *reading, w fyne.Window) *gui {
	g := &gui{
		r:        r,
		w:        w,
		page:     container.NewWithoutLayout(),
		status:   widget.NewLabel(""),
		controls: widget.NewLabel("←/→: page  N/P: chapter  T: contents  TAB/ENTER: entry  +/-: font  1/2: columns  B: bookmark  F: read  F11: fullscreen  Q: quit"),
		title:    bookTitle(r.ctl.Sequence()),
		selected: -1,
	}
	g.status.Alignment = fyne.TextAlignCenter
	g.controls.Alignment = fyne.TextAlignCenter
	return g
}

func (g *gui) colors() (bg, fg color.Color) {
	bg, fg = color.White, color.Black
	if c, err := display.ParseColor(g.r.display.Background); err == nil {
		bg = c
	}
	if c, err := display.ParseColor(g.r.display.Foreground); err == nil {
		fg = c
	}
	return bg, fg
}

// refresh redraws the current page from the controller's view.
func (g *gui) refresh() {
	v := g.r.ctl.View()
	seq := g.r.ctl.Sequence()
	bg, fg := g.colors()

	objects := []fyne.CanvasObject{}
	back := canvas.NewRectangle(bg)
	back.Resize(g.page.Size())
	objects = append(objects, back)

	if seq != nil && !v.Empty() {
		p := v.Params
		lineHeight := float32(p.FontSize * layout.LineSpacing)
		for i, col := range v.Layout.Columns {
			x := float32(layout.ColumnPadding/2 + float64(i)*(p.ColumnWidth+display.ColumnGap))
			var y float32
			for _, sp := range col.Spans {
				b := seq.At(sp.Block)
				if b.Kind() == book.PageBreak {
					continue
				}
				top := y
				scale := float32(1)
				if b.Kind() != book.Paragraph && b.Kind() != book.TocEntry {
					scale = float32(layout.Scale(b))
				}
				for _, line := range layout.Wrap(b, sp.From, sp.To, p) {
					t := canvas.NewText(line, fg)
					t.TextSize = float32(p.FontSize) * scale
					t.TextStyle.Bold = b.Kind() != book.Paragraph && b.Kind() != book.TocEntry
					t.TextStyle.Italic = b.Kind() == book.TocEntry && sp.Block != g.selected
					if sp.Block == g.selected {
						t.Color = color.NRGBA{R: 0xff, A: 0xff}
					}
					t.Move(fyne.NewPos(x, y))
					objects = append(objects, t)
					y += lineHeight * scale
				}
				y = top + lineHeight*float32(sp.Lines)
			}
		}
	}
	g.page.Objects = objects
	g.page.Refresh()

	status := statusText(g.title, v) + fmt.Sprintf("  font %.0f", g.r.display.FontSize)
	if g.message != "" {
		status += "  [" + g.message + "]"
	}
	g.status.SetText(status)
}

func (g *gui) navigate(fn func()) {
	before := g.r.ctl.View().Page
	g.message = ""
	fn()
	if g.r.ctl.View().Page != before {
		g.selected = -1
	}
	g.refresh()
}

func (g *gui) typedKey(ev *fyne.KeyEvent) {
	ctl := g.r.ctl
	switch ev.Name {
	case fyne.KeyRight, fyne.KeyPageDown, fyne.KeySpace:
		g.navigate(func() { ctl.NextPage() })
	case fyne.KeyLeft, fyne.KeyPageUp:
		g.navigate(func() { ctl.PrevPage() })
	case fyne.KeyHome:
		g.navigate(func() { ctl.FirstPage() })
	case fyne.KeyEnd:
		g.navigate(func() { ctl.LastPage() })
	case fyne.KeyTab:
		g.selected = nextEntry(tocEntries(ctl.Sequence(), ctl.View()), g.selected)
		g.refresh()
	case fyne.KeyReturn, fyne.KeyEnter:
		if g.selected >= 0 {
			g.navigate(func() { ctl.GotoTocEntry(g.selected) })
		}
	case fyne.KeyF11:
		g.w.SetFullScreen(!g.w.FullScreen())
	}
}

func (g *gui) typedRune(r rune) {
	ctl := g.r.ctl
	switch r {
	case 'n', 'N':
		g.navigate(func() { ctl.NextChapter() })
	case 'p', 'P':
		g.navigate(func() { ctl.PrevChapter() })
	case 't', 'T':
		g.navigate(func() { ctl.GotoContents() })
	case '+', '=':
		g.r.zoom(1)
		g.refresh()
	case '-':
		g.r.zoom(-1)
		g.refresh()
	case '1':
		g.r.setColumns(1)
		g.refresh()
	case '2':
		g.r.setColumns(2)
		g.refresh()
	case 'b':
		if bm, err := ctl.AddBookmark(""); err != nil {
			g.message = err.Error()
		} else {
			g.message = "bookmark added: " + bm.Label
		}
		g.refresh()
	case 'B':
		g.navigate(func() {
			label, err := g.r.cycleBookmark()
			switch {
			case err != nil:
				g.message = err.Error()
			case label == "":
				g.message = "no bookmarks"
			default:
				g.message = label
			}
		})
	case 'f', 'F':
		g.markedRead = !g.markedRead
		ctl.MarkRead(g.markedRead)
		if err := ctl.SaveNow(); err != nil {
			g.message = err.Error()
		}
		g.refresh()
	case 'q', 'Q':
		fyne.CurrentApp().Quit()
	}
}

func readBook(ctx context.Context, cmd *cli.Command) (err error) {
	file, err := bookArg(ctx, cmd)
	if err != nil {
		return err
	}
	env := envFromContext(ctx)

	r, err := openReading(env, file, windowWidth, windowHeight-chromeHeight)
	if err != nil {
		return err
	}
	defer func() {
		if er := r.close(); er != nil {
			err = fmt.Errorf("unable to close book: %w", er)
		}
	}()

	a := app.New()
	title := config.AppName
	if t := bookTitle(r.ctl.Sequence()); t != "" {
		title += " - " + t
	}
	w := a.NewWindow(title)
	g := newGUI(r, w)

	w.Canvas().SetOnTypedKey(g.typedKey)
	w.Canvas().SetOnTypedRune(g.typedRune)
	w.SetContent(container.NewBorder(g.status, g.controls, nil, nil, g.page))
	w.Resize(fyne.NewSize(windowWidth, windowHeight))

	done := make(chan struct{})
	var closeOnce sync.Once
	w.SetOnClosed(func() {
		closeOnce.Do(func() { close(done) })
	})

	if env.cfgFile != "" {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := config.Watch(wctx, env.cfgFile, env.log, func(c *config.Config) {
			fyne.Do(func() {
				r.reconfigure(c)
				g.refresh()
			})
		}); err != nil {
			env.log.Warn("Configuration changes will not be picked up", zap.Error(err))
		}
	}

	// Handle window resize - re-paginate for the new page area
	go func() {
		var last fyne.Size
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				fyne.Do(a.Quit)
				return
			case <-time.After(100 * time.Millisecond):
				fyne.Do(func() {
					size := g.page.Size()
					if size.Width > 0 && size.Height > 0 && size != last {
						last = size
						r.resize(float64(size.Width), float64(size.Height))
						g.refresh()
					}
				})
			}
		}
	}()

	w.ShowAndRun()
	closeOnce.Do(func() { close(done) })
	return nil
}
