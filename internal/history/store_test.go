package history

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	store, err := Open(path, quietLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	store.now = func() time.Time { return time.Date(2026, 3, 4, 9, 8, 7, 0, time.UTC) }
	return store, path
}

func TestAddPrependsAndPersists(t *testing.T) {
	t.Parallel()

	store, path := openStore(t)
	if err := store.Add("raw one", "one", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := store.Add("raw two", "two", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	recent := store.Recent(5)
	if len(recent) != 2 || recent[0].OptimizedText != "two" || recent[1].OptimizedText != "one" {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].Time != "2026-03-04 09:08:07" || recent[0].ID == "" || recent[0].ID == recent[1].ID {
		t.Fatalf("unexpected record metadata: %+v", recent[0])
	}

	reopened, err := Open(path, quietLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if all := reopened.All(); len(all) != 2 || all[0].ASRText != "raw two" {
		t.Fatalf("history not persisted: %+v", all)
	}
}

func TestAddTruncatesToMaxRecords(t *testing.T) {
	t.Parallel()

	store, _ := openStore(t)
	for i := 0; i < MaxRecords+3; i++ {
		if err := store.Add(fmt.Sprintf("raw %d", i), fmt.Sprintf("text %d", i), ""); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}
	all := store.All()
	if len(all) != MaxRecords {
		t.Fatalf("expected %d records, got %d", MaxRecords, len(all))
	}
	if all[0].OptimizedText != fmt.Sprintf("text %d", MaxRecords+2) {
		t.Fatalf("newest record not first: %+v", all[0])
	}
}

func TestUpdateLastTranslation(t *testing.T) {
	t.Parallel()

	store, _ := openStore(t)
	if err := store.UpdateLastTranslation("hola"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}

	_ = store.Add("a", "first", "")
	_ = store.Add("b", "second", "")
	if err := store.UpdateLastTranslation("zweite"); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	all := store.All()
	if all[0].TranslatedText != "zweite" || all[1].TranslatedText != "" {
		t.Fatalf("translation applied to wrong record: %+v", all)
	}
}

func TestRecentBounds(t *testing.T) {
	t.Parallel()

	store, _ := openStore(t)
	_ = store.Add("a", "a", "")
	if got := store.Recent(0); got != nil {
		t.Fatalf("expected nil for zero count, got %+v", got)
	}
	if got := store.Recent(10); len(got) != 1 {
		t.Fatalf("expected one record, got %+v", got)
	}
}

func TestOpenToleratesCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("[{"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	store, err := Open(path, quietLogger())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if len(store.All()) != 0 {
		t.Fatalf("expected empty history")
	}
	if err := store.Add("x", "y", ""); err != nil {
		t.Fatalf("add after corrupt load failed: %v", err)
	}
}

func TestClearEmptiesFile(t *testing.T) {
	t.Parallel()

	store, path := openStore(t)
	_ = store.Add("a", "a", "")
	if err := store.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(raw) != "[]" {
		t.Fatalf("unexpected file contents: %q", raw)
	}
}
