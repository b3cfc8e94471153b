package state

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/position"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Bookmark is a saved place in a book.
type Bookmark struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Position position.Position `json:"position"`
	Created  time.Time         `json:"created"`
}

// Store persists reading history, bookmarks and display settings per user.
type Store interface {
	LoadPosition(user, book string) (position.Position, bool, error)
	SavePosition(user, book string, pos position.Position, finished bool) error

	AddBookmark(user, book, label string, pos position.Position) (Bookmark, error)
	Bookmarks(user, book string) ([]Bookmark, error)
	DeleteBookmark(user, id string) error

	LoadDisplay(user string) (display.Settings, bool, error)
	SaveDisplay(user string, s display.Settings) error

	Close() error
}

// Open returns the store for driver: "json" (dsn is the file path, empty for
// the default location), "sqlite" (dsn is the database file, empty for the
// default location) or "postgres" (dsn is a connection string).
func Open(driver, dsn string, log *zap.Logger) (Store, error) {
	switch driver {
	case "", "json":
		if dsn == "" {
			dsn = filepath.Join(StateDir(), stateFileName)
		}
		return OpenJSON(dsn)
	case "sqlite":
		if dsn == "" {
			dsn = filepath.Join(StateDir(), "folio.db")
		}
		return OpenSQL("sqlite", dsn, log)
	case "postgres":
		return OpenSQL("postgres", dsn, log)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
