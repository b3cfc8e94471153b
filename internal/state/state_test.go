package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/metcalfc/folio/internal/display"
	"github.com/metcalfc/folio/internal/position"
)

func TestComputeHash(t *testing.T) {
	// Create temp file with known content
	tmpDir := t.TempDir()
	file1 := filepath.Join(tmpDir, "test1.txt")
	file2 := filepath.Join(tmpDir, "test2.txt")
	file3 := filepath.Join(tmpDir, "test1_copy.txt")

	os.WriteFile(file1, []byte("Hello, World!"), 0644)
	os.WriteFile(file2, []byte("Different content"), 0644)
	os.WriteFile(file3, []byte("Hello, World!"), 0644) // Same as file1

	hash1, err := ComputeHash(file1)
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}

	hash2, err := ComputeHash(file2)
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}

	hash3, err := ComputeHash(file3)
	if err != nil {
		t.Fatalf("ComputeHash failed: %v", err)
	}

	// Same content = same hash
	if hash1 != hash3 {
		t.Errorf("Same content should produce same hash: %s != %s", hash1, hash3)
	}

	// Different content = different hash
	if hash1 == hash2 {
		t.Errorf("Different content should produce different hash")
	}

	// Hash should be 32 hex chars
	if len(hash1) != 32 {
		t.Errorf("Hash should be 32 chars, got %d", len(hash1))
	}
}

func TestComputeHashSmallFile(t *testing.T) {
	tmpDir := t.TempDir()
	smallFile := filepath.Join(tmpDir, "small.txt")
	os.WriteFile(smallFile, []byte("tiny"), 0644)

	hash, err := ComputeHash(smallFile)
	if err != nil {
		t.Fatalf("ComputeHash failed on small file: %v", err)
	}

	if len(hash) != 32 {
		t.Errorf("Hash should be 32 chars even for small files, got %d", len(hash))
	}
}

func TestStateStoreUsesXDG(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)

	store, err := NewStateStore()
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}
	if err := store.SavePosition("u", "b", position.Position{Block: 3}, false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "folio", stateFileName)); err != nil {
		t.Errorf("state file not written under XDG_STATE_HOME: %v", err)
	}
}

func TestStateStorePersistence(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmpDir)

	testHash := "abcdef1234567890abcdef1234567890"
	want := position.Position{Block: 42, Offset: 7, Page: 3, Percent: 12.5}

	// Create store and set position
	store1, err := NewStateStore()
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}
	store1.SavePosition("alice", testHash, want, true)

	// Create new store instance - should load persisted data
	store2, err := NewStateStore()
	if err != nil {
		t.Fatalf("NewStateStore failed: %v", err)
	}

	got, ok, err := store2.LoadPosition("alice", testHash)
	if err != nil || !ok {
		t.Fatalf("LoadPosition = %v, %v", ok, err)
	}
	if got != want {
		t.Errorf("Expected %+v from persisted state, got %+v", want, got)
	}
	if !store2.Finished("alice", testHash) {
		t.Error("finished flag not persisted")
	}

	if err := store2.Clear("alice", testHash); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := store2.LoadPosition("alice", testHash); ok {
		t.Error("Expected no position after clear")
	}
}

func TestStateStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	os.WriteFile(path, []byte("{not json"), 0644)

	store, err := OpenJSON(path)
	if err != nil {
		t.Fatalf("corrupt state should not be fatal: %v", err)
	}
	if _, ok, _ := store.LoadPosition("u", "b"); ok {
		t.Error("corrupt state should start empty")
	}
	if err := store.SavePosition("u", "b", position.Position{Block: 1}, false); err != nil {
		t.Errorf("save over corrupt file: %v", err)
	}
}

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	js, err := Open("json", filepath.Join(dir, "state.json"), nil)
	if err != nil {
		t.Fatal(err)
	}
	db, err := Open("sqlite", filepath.Join(dir, "db", "folio.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		js.Close()
		db.Close()
	})
	return map[string]Store{"json": js, "sqlite": db}
}

func TestStorePositions(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.LoadPosition("alice", "book"); ok || err != nil {
				t.Fatalf("unknown book: ok=%v err=%v", ok, err)
			}

			first := position.Position{Block: 10, Offset: 5, Page: 2, Percent: 10}
			if err := s.SavePosition("alice", "book", first, false); err != nil {
				t.Fatal(err)
			}
			later := position.Position{Block: 95, Page: 20, Percent: 95, Finished: true}
			if err := s.SavePosition("alice", "book", later, true); err != nil {
				t.Fatal(err)
			}
			got, ok, err := s.LoadPosition("alice", "book")
			if err != nil || !ok {
				t.Fatalf("LoadPosition: ok=%v err=%v", ok, err)
			}
			if got != later {
				t.Errorf("got %+v, want %+v", got, later)
			}

			if _, ok, _ := s.LoadPosition("bob", "book"); ok {
				t.Error("positions must be per user")
			}
		})
	}
}

func TestStoreCoarsePosition(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.SavePosition("u", "b", position.Coarse(12), false); err != nil {
				t.Fatal(err)
			}
			got, _, err := s.LoadPosition("u", "b")
			if err != nil {
				t.Fatal(err)
			}
			if !got.IsCoarse() || got.Page != 12 {
				t.Errorf("got %+v, want coarse page 12", got)
			}
		})
	}
}

func TestStoreBookmarks(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			a, err := s.AddBookmark("u", "b", "start", position.Position{Block: 1})
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.AddBookmark("u", "b", "later", position.Position{Block: 9, Offset: 4, Page: 3}); err != nil {
				t.Fatal(err)
			}
			s.AddBookmark("u", "other", "elsewhere", position.Position{Block: 2})

			list, err := s.Bookmarks("u", "b")
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 2 {
				t.Fatalf("got %d bookmarks, want 2", len(list))
			}
			if list[1].Label != "later" || list[1].Position.Block != 9 || list[1].Position.Offset != 4 {
				t.Errorf("second bookmark = %+v", list[1])
			}
			if a.ID == "" || a.ID == list[1].ID {
				t.Errorf("bookmark ids not unique: %q %q", a.ID, list[1].ID)
			}

			if err := s.DeleteBookmark("u", a.ID); err != nil {
				t.Fatal(err)
			}
			list, _ = s.Bookmarks("u", "b")
			if len(list) != 1 || list[0].Label != "later" {
				t.Errorf("after delete: %+v", list)
			}
		})
	}
}

func TestStoreDisplay(t *testing.T) {
	for name, s := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, _ := s.LoadDisplay("u"); ok {
				t.Error("no settings expected yet")
			}
			want := display.Default().WithColors("sepia", "#5b4636").WithFontSize(18)
			if err := s.SaveDisplay("u", want); err != nil {
				t.Fatal(err)
			}
			if err := s.SaveDisplay("u", want.WithFontSize(20)); err != nil {
				t.Fatal(err)
			}
			got, ok, err := s.LoadDisplay("u")
			if err != nil || !ok {
				t.Fatalf("LoadDisplay: ok=%v err=%v", ok, err)
			}
			if got != want.WithFontSize(20) {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "", nil); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("rebind = %q", got)
	}
	lite := &SQLStore{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite rebind = %q", got)
	}
}

func TestSQLitePragmas(t *testing.T) {
	s, err := OpenSQL("sqlite", filepath.Join(t.TempDir(), "folio.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var timeout int
	if err := s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatal(err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
}
