package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/position"
)

const (
	stateFileName = "reading_positions.json"
	hashBytes     = 8192 // First 8KB for content hash
)

// ReadingState is the saved progress for one user and book.
type ReadingState struct {
	Position position.Position `json:"position"`
	Finished bool              `json:"finished"`
	Updated  time.Time         `json:"updated"`
}

type stateFile struct {
	Positions map[string]ReadingState     `json:"positions"`
	Bookmarks map[string][]Bookmark       `json:"bookmarks,omitempty"`
	Display   map[string]display.Settings `json:"display,omitempty"`
}

// StateStore keeps everything in a single JSON file.
type StateStore struct {
	path string
	data stateFile
	mu   sync.RWMutex
}

// NewStateStore creates or loads state from XDG_STATE_HOME/folio/
func NewStateStore() (*StateStore, error) {
	return OpenJSON(filepath.Join(StateDir(), stateFileName))
}

// OpenJSON creates or loads the JSON store at path. An unreadable file is
// not fatal: the store starts empty and overwrites it on the next save.
func OpenJSON(path string) (*StateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	store := &StateStore{path: path}
	if err := store.load(); err != nil {
		store.data = stateFile{}
	}
	store.init()
	return store, nil
}

func (s *StateStore) init() {
	if s.data.Positions == nil {
		s.data.Positions = make(map[string]ReadingState)
	}
	if s.data.Bookmarks == nil {
		s.data.Bookmarks = make(map[string][]Bookmark)
	}
	if s.data.Display == nil {
		s.data.Display = make(map[string]display.Settings)
	}
}

// StateDir returns XDG_STATE_HOME/folio or ~/.local/state/folio
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "folio")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "folio")
}

// ComputeHash generates content hash for file identity
func ComputeHash(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, hashBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	hash := sha256.Sum256(buf[:n])
	return hex.EncodeToString(hash[:16]), nil // First 16 bytes = 32 hex chars
}

func key(user, book string) string {
	return user + "/" + book
}

// LoadPosition returns the saved position; ok is false when none exists.
func (s *StateStore) LoadPosition(user, book string) (pos position.Position, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data.Positions[key(user, book)]
	return st.Position, ok, nil
}

func (s *StateStore) SavePosition(user, book string, pos position.Position, finished bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Positions[key(user, book)] = ReadingState{Position: pos, Finished: finished, Updated: time.Now().UTC()}
	return s.save()
}

// Finished reports the stored finished flag.
func (s *StateStore) Finished(user, book string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Positions[key(user, book)].Finished
}

// Clear removes saved position and bookmarks for a book
func (s *StateStore) Clear(user, book string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.Positions, key(user, book))
	delete(s.data.Bookmarks, key(user, book))
	return s.save()
}

func (s *StateStore) AddBookmark(user, book, label string, pos position.Position) (Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bm := Bookmark{ID: uuid.NewString(), Label: label, Position: pos, Created: time.Now().UTC()}
	k := key(user, book)
	s.data.Bookmarks[k] = append(s.data.Bookmarks[k], bm)
	return bm, s.save()
}

func (s *StateStore) Bookmarks(user, book string) ([]Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data.Bookmarks[key(user, book)]), nil
}

func (s *StateStore) DeleteBookmark(user, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := user + "/"
	for k, list := range s.data.Bookmarks {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		s.data.Bookmarks[k] = slices.DeleteFunc(list, func(b Bookmark) bool { return b.ID == id })
	}
	return s.save()
}

func (s *StateStore) LoadDisplay(user string) (display.Settings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.data.Display[user]
	return ds, ok, nil
}

func (s *StateStore) SaveDisplay(user string, ds display.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Display[user] = ds
	return s.save()
}

func (s *StateStore) Close() error { return nil }

func (s *StateStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &s.data)
}

func (s *StateStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
