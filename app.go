package main

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/config"
	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/layout"
	"github.com/metcalfc/folio/internal/reader"
	"github.com/metcalfc/folio/internal/session"
	"github.com/metcalfc/folio/internal/state"
)

// Font size limits for interactive zoom.
const (
	fontStep    = 2.0
	maxFontSize = 96.0
)

// reading is one open book together with the storage and display settings
// the front ends share.
type reading struct {
	env   *localEnv
	store state.Store
	books *reader.Cache
	ctl   *session.Controller

	file    string
	bookID  string
	display display.Settings
	columns int
	// last viewport in pixels
	width, height float64
}

// openReading wires storage, the book cache and a session controller and
// opens file for a viewport of width x height pixels.
func openReading(env *localEnv, file string, width, height float64) (*reading, error) {
	cfg := env.cfg
	store, err := state.Open(cfg.Storage.Driver, cfg.Storage.DSN, env.log)
	if err != nil {
		return nil, fmt.Errorf("unable to open storage: %w", err)
	}

	ds := cfg.Display
	if saved, ok, err := store.LoadDisplay(cfg.Storage.User); err != nil {
		env.log.Warn("Unable to load display settings, using configured", zap.Error(err))
	} else if ok {
		if err := saved.Validate(); err != nil {
			env.log.Warn("Ignoring stored display settings", zap.Error(err))
		} else {
			ds = saved
		}
	}

	r := &reading{
		env:     env,
		store:   store,
		books:   reader.NewCache(cfg.Reader.CacheTTL, reader.Options{TocHeading: cfg.Reader.TocHeading}, env.log),
		file:    file,
		display: ds,
		columns: cfg.Reader.Columns,
		width:   width,
		height:  height,
	}

	var sched session.Scheduler
	if cfg.Reader.Autosave > 0 {
		sched = session.CronScheduler{Log: env.log}
	}
	r.ctl = session.New(r.params(), session.Config{
		User:      cfg.Storage.User,
		Positions: store,
		Bookmarks: store,
		Scheduler: sched,
		Autosave:  cfg.Reader.Autosave,
		Threshold: cfg.Reader.Threshold,
		Log:       env.log.Named("session"),
	})

	id, seq, err := r.books.Load(file)
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to load '%s': %w", file, err), store.Close())
	}
	if err := r.ctl.Open(id, seq); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to open '%s': %w", file, err), store.Close())
	}
	r.bookID = id
	return r, nil
}

func (r *reading) params() layout.Params {
	return r.display.Params(r.width, r.height, r.columns)
}

func (r *reading) resize(width, height float64) {
	r.width, r.height = width, height
	r.ctl.OnResize(r.params())
}

// zoom changes the font size by steps of fontStep and persists it.
func (r *reading) zoom(steps int) {
	px := r.display.FontSize + float64(steps)*fontStep
	px = min(max(px, layout.MinFontSize), maxFontSize)
	if px == r.display.FontSize {
		return
	}
	r.display = r.display.WithFontSize(px)
	r.ctl.OnFontChange(r.params())
	r.saveDisplay()
}

func (r *reading) setColumns(n int) {
	n = min(max(n, 1), layout.MaxColumns)
	if n == r.columns {
		return
	}
	r.columns = n
	r.ctl.OnResize(r.params())
}

// reconfigure applies a reloaded configuration file. Values from the file
// replace whatever was changed interactively.
func (r *reading) reconfigure(cfg *config.Config) {
	r.env.log.Info("Configuration reloaded", zap.String("file", r.env.cfgFile))
	r.display = cfg.Display
	r.columns = cfg.Reader.Columns
	r.ctl.OnFontChange(r.params())
	r.saveDisplay()
}

func (r *reading) saveDisplay() {
	if err := r.store.SaveDisplay(r.env.cfg.Storage.User, r.display); err != nil {
		r.env.log.Warn("Unable to save display settings", zap.Error(err))
	}
}

// cycleBookmark moves to the first bookmark past the current position,
// wrapping around. It returns the bookmark label or "" when there are none.
func (r *reading) cycleBookmark() (string, error) {
	marks, err := r.ctl.Bookmarks()
	if err != nil || len(marks) == 0 {
		return "", err
	}
	slices.SortFunc(marks, func(a, b state.Bookmark) int {
		return cmp.Or(cmp.Compare(a.Position.Block, b.Position.Block), cmp.Compare(a.Position.Offset, b.Position.Offset))
	})
	cur := r.ctl.Position()
	next := marks[0]
	for _, bm := range marks {
		if bm.Position.Block > cur.Block || (bm.Position.Block == cur.Block && bm.Position.Offset > cur.Offset) {
			next = bm
			break
		}
	}
	r.ctl.GotoBookmark(next)
	return next.Label, nil
}

// close saves the position and releases storage.
func (r *reading) close() (err error) {
	if er := r.ctl.Close(); er != nil {
		err = multierr.Append(err, er)
	}
	if er := r.store.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close storage: %w", er))
	}
	return err
}
