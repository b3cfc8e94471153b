package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/position"
)

// SQLStore keeps reading history, bookmarks and display settings in SQLite
// or PostgreSQL. Queries are written with '?' placeholders and rebound for
// PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
	log    *zap.Logger
}

// OpenSQL opens (or creates) the database and applies migrations.
func OpenSQL(driver, dsn string, log *zap.Logger) (*SQLStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch driver {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite only supports one writer
		conn.SetMaxOpenConns(1)
	}

	s := &SQLStore{db: conn, driver: driver, log: log}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("Storage opened", zap.String("driver", driver))
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS reading_history (
			user_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			block INTEGER NOT NULL DEFAULT 0,
			char_offset INTEGER NOT NULL DEFAULT 0,
			page INTEGER NOT NULL DEFAULT 0,
			percent REAL NOT NULL DEFAULT 0,
			last_read_position TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT FALSE,
			last_read_date TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, book_id)
		)`,
		`CREATE TABLE IF NOT EXISTS display_settings (
			user_id TEXT PRIMARY KEY,
			background TEXT NOT NULL,
			foreground TEXT NOT NULL,
			font_family TEXT NOT NULL,
			font_size REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			book_id TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			block INTEGER NOT NULL,
			char_offset INTEGER NOT NULL DEFAULT 0,
			page INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookmarks_book ON bookmarks(user_id, book_id)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// rebind turns '?' placeholders into $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) LoadPosition(user, book string) (position.Position, bool, error) {
	var pos position.Position
	var stored string
	err := s.db.QueryRow(s.rebind(
		`SELECT block, char_offset, page, percent, is_read, last_read_position
		FROM reading_history WHERE user_id = ? AND book_id = ?`), user, book,
	).Scan(&pos.Block, &pos.Offset, &pos.Page, &pos.Percent, &pos.Finished, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return position.Position{}, false, nil
	}
	if err != nil {
		return position.Position{}, false, fmt.Errorf("load position: %w", err)
	}
	if stored != "" && stored != pos.String() {
		// rows written by older clients may only carry the text form
		p, err := position.Parse(stored)
		if err != nil {
			s.log.Warn("Ignoring malformed stored position", zap.String("position", stored))
		} else {
			pos.Block, pos.Offset = p.Block, p.Offset
			if p.IsCoarse() {
				pos.Page = p.Page
			}
		}
	}
	return pos, true, nil
}

func (s *SQLStore) SavePosition(user, book string, pos position.Position, finished bool) error {
	_, err := s.db.Exec(s.rebind(
		`INSERT INTO reading_history
			(user_id, book_id, block, char_offset, page, percent, last_read_position, is_read, last_read_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, book_id) DO UPDATE SET
			block = excluded.block,
			char_offset = excluded.char_offset,
			page = excluded.page,
			percent = excluded.percent,
			last_read_position = excluded.last_read_position,
			is_read = excluded.is_read,
			last_read_date = excluded.last_read_date`),
		user, book, pos.Block, pos.Offset, pos.Page, pos.Percent, pos.String(), finished,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

func (s *SQLStore) AddBookmark(user, book, label string, pos position.Position) (Bookmark, error) {
	bm := Bookmark{ID: uuid.NewString(), Label: label, Position: pos, Created: time.Now().UTC().Truncate(time.Second)}
	_, err := s.db.Exec(s.rebind(
		`INSERT INTO bookmarks (id, user_id, book_id, label, block, char_offset, page, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		bm.ID, user, book, label, pos.Block, pos.Offset, pos.Page, bm.Created.Format(time.RFC3339),
	)
	if err != nil {
		return Bookmark{}, fmt.Errorf("add bookmark: %w", err)
	}
	return bm, nil
}

func (s *SQLStore) Bookmarks(user, book string) ([]Bookmark, error) {
	rows, err := s.db.Query(s.rebind(
		`SELECT id, label, block, char_offset, page, created_at
		FROM bookmarks WHERE user_id = ? AND book_id = ?
		ORDER BY created_at, block, char_offset`), user, book)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var bm Bookmark
		var created string
		if err := rows.Scan(&bm.ID, &bm.Label, &bm.Position.Block, &bm.Position.Offset, &bm.Position.Page, &created); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bm.Created, _ = time.Parse(time.RFC3339, created)
		out = append(out, bm)
	}
	return out, rows.Err()
}

func (s *SQLStore) DeleteBookmark(user, id string) error {
	_, err := s.db.Exec(s.rebind(`DELETE FROM bookmarks WHERE user_id = ? AND id = ?`), user, id)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

func (s *SQLStore) LoadDisplay(user string) (display.Settings, bool, error) {
	var ds display.Settings
	err := s.db.QueryRow(s.rebind(
		`SELECT background, foreground, font_family, font_size
		FROM display_settings WHERE user_id = ?`), user,
	).Scan(&ds.Background, &ds.Foreground, &ds.FontFamily, &ds.FontSize)
	if errors.Is(err, sql.ErrNoRows) {
		return display.Settings{}, false, nil
	}
	if err != nil {
		return display.Settings{}, false, fmt.Errorf("load display settings: %w", err)
	}
	return ds, true, nil
}

func (s *SQLStore) SaveDisplay(user string, ds display.Settings) error {
	_, err := s.db.Exec(s.rebind(
		`INSERT INTO display_settings (user_id, background, foreground, font_family, font_size)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			background = excluded.background,
			foreground = excluded.foreground,
			font_family = excluded.font_family,
			font_size = excluded.font_size`),
		user, ds.Background, ds.Foreground, ds.FontFamily, ds.FontSize,
	)
	if err != nil {
		return fmt.Errorf("save display settings: %w", err)
	}
	return nil
}
