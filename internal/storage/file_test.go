package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "datenbriefd/pkg/logx"
)

func TestFileStoreLoadMissing(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "time.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	_, err = st.Load(t.Context())
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("Load error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreLoadInvalidDocument(t *testing.T) {
	t.Parallel()
	for _, doc := range []string{"", "[1,2]", "null", "{broken"} {
		path := filepath.Join(t.TempDir(), "time.json")
		if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
		st, _ := Open(Config{Driver: "file", Path: path}, logx.Nop())
		_, err := st.Load(t.Context())
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Load(%q) error = %v, want *ParseError", doc, err)
		}
	}
}

func TestFileStoreSaveFormat(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "state", "time.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}

	next := time.Date(2019, 9, 29, 11, 13, 56, 692549889, time.UTC)
	if err := st.Save(t.Context(), map[string]Entry{"test": {Next: next, Reminder: 20}}); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"test\": {\n    \"next\": \"2019-09-29T11:13:56.692549889+00:00\",\n    \"reminder\": 20\n  }\n}\n"
	if string(got) != want {
		t.Fatalf("file content:\n%s\nwant:\n%s", got, want)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("temporary file left behind: %v", err)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "time.json")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	testRoundTrip(t, st)
}

func TestClosedStore(t *testing.T) {
	t.Parallel()
	st, _ := Open(Config{Path: filepath.Join(t.TempDir(), "time.json")}, logx.Nop())
	_ = st.Close()
	if err := st.Save(t.Context(), nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("Save after Close = %v, want ErrClosed", err)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "mongo"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("expected error for postgres without dsn")
	}
}

// testRoundTrip checks that every saved entry is loaded and merged back
// unchanged, and that a second save replaces the first.
func testRoundTrip(t *testing.T, st Store) {
	t.Helper()
	ctx := t.Context()
	entries := map[string]Entry{
		"acme":   {Next: time.Date(2025, 2, 3, 4, 5, 6, 7, time.UTC), Reminder: 3},
		"globex": {Next: time.Date(2030, 12, 31, 23, 59, 59, 0, time.UTC), Reminder: 0},
	}
	if err := st.Save(ctx, entries); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	snap, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	reg := mustRegistry(t, time.Now(), "acme", "globex")
	if rep := Merge(reg, snap, logx.Nop()); len(rep.Errors) != 0 || len(rep.Merged) != 2 {
		t.Fatalf("unexpected merge report: %+v", rep)
	}
	for name, want := range SnapshotOf(reg) {
		if got := entries[name]; !got.Next.Equal(want.Next) || got.Reminder != want.Reminder {
			t.Fatalf("%s: round trip = %+v, want %+v", name, want, got)
		}
	}

	if err := st.Save(ctx, map[string]Entry{"acme": entries["acme"]}); err != nil {
		t.Fatalf("second Save error: %v", err)
	}
	snap, err = st.Load(ctx)
	if err != nil {
		t.Fatalf("second Load error: %v", err)
	}
	if _, ok := snap["globex"]; ok || len(snap) != 1 {
		t.Fatalf("Save must replace the whole timetable, got %v", snap)
	}
}
