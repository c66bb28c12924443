package cache

import (
	"path/filepath"
	"testing"
	"time"

	"snakr/internal/core/errors"
	"snakr/internal/engine/parser"
)

func openTestStore(t *testing.T, entries int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "cache.db")
	store, err := Open(path, entries)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestStore_PutGet(t *testing.T) {
	store, _ := openTestStore(t, 8)
	imports := []parser.RawImport{
		{Name: "os", Line: 1},
		{Name: "b", From: "pkg", IsFrom: true, Level: 1, Line: 2, Conditional: true},
	}
	key := parser.CacheKey([]byte("import os\n"))

	if _, ok := store.Get(key); ok {
		t.Fatal("empty store must miss")
	}
	store.Put(key, imports)

	got, ok := store.Get(key)
	if !ok || len(got) != 2 || got[1].Level != 1 || !got[1].Conditional {
		t.Fatalf("Get() = %+v, %v", got, ok)
	}
	if n, err := store.Len(); err != nil || n != 1 {
		t.Errorf("Len() = %d, %v", n, err)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	store, path := openTestStore(t, 1)
	store.Put("k1", []parser.RawImport{{Name: "a", Line: 1}})
	store.Put("k2", nil)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := reopened.Get("k1")
	if !ok || len(got) != 1 || got[0].Name != "a" {
		t.Fatalf("expected k1 from disk, got %+v, %v", got, ok)
	}
	empty, ok := reopened.Get("k2")
	if !ok || len(empty) != 0 {
		t.Fatalf("an empty import list is still a hit, got %+v, %v", empty, ok)
	}
}

func TestStore_Prune(t *testing.T) {
	store, _ := openTestStore(t, 4)
	store.Put("current", nil)
	if _, err := store.db.Exec(`INSERT INTO parse_results (content_hash, extractor_version, imports_json) VALUES ('old', 0, '[]')`); err != nil {
		t.Fatal(err)
	}
	removed, err := store.Prune()
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned row, got %d", removed)
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir(), 1); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected a validation error for a directory path, got %v", err)
	}
	if _, err := Open("  ", 1); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected a validation error for an empty path, got %v", err)
	}
}

func TestStore_MissIsNotAnError(t *testing.T) {
	store, _ := openTestStore(t, 1)
	if _, ok := store.Get("absent"); ok {
		t.Fatal("expected a miss")
	}
	n, err := store.Len()
	if err != nil || n != 0 {
		t.Fatalf("Len() = %d, %v", n, err)
	}
}

func TestEnsureSchemaRejectsNewerVersion(t *testing.T) {
	store, _ := openTestStore(t, 1)
	if _, err := store.db.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	if err := EnsureSchema(store.db); !errors.IsCode(err, errors.CodeNotSupported) {
		t.Fatalf("expected NOT_SUPPORTED, got %v", err)
	}
}

func TestStore_Runs(t *testing.T) {
	store, _ := openTestStore(t, 1)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second"} {
		err := store.RecordRun(Run{
			ID:        id,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Roots:     []string{"/src", "/lib"},
			Modules:   10 + i,
			Cycles:    i,
			Duration:  1500 * time.Millisecond,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.RecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != "second" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Modules != 11 || len(runs[0].Roots) != 2 || runs[0].Duration != 1500*time.Millisecond {
		t.Errorf("run fields not round-tripped: %+v", runs[0])
	}
}
