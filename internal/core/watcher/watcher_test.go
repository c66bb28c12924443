// # internal/core/watcher/watcher_test.go
package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[oops"}, nil, func([]string) {}); err == nil {
		t.Fatal("expected an error for a malformed directory pattern")
	}
}

func waitFor(t *testing.T, ch <-chan []string, want string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, []string{"__pycache__"}, []string{"skip_*.py"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	unit := filepath.Join(tmpDir, "app.py")
	if err := os.WriteFile(unit, []byte("import os\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, unit)

	for _, name := range []string{"notes.txt", "skip_me.py"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changed:
		t.Errorf("excluded files triggered a change: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	// A new package directory is watched and its existing units reported.
	pkg := filepath.Join(tmpDir, "pkg")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	nested := filepath.Join(pkg, "__init__.py")
	if err := os.WriteFile(nested, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested)
}

func TestShouldExcludeFile(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, []string{"conftest.py"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	cases := map[string]bool{
		"/src/a.py":        false,
		"/src/A.PY":        false,
		"/src/conftest.py": true,
		"/src/a.pyc":       true,
		"/src/README.md":   true,
	}
	for path, want := range cases {
		if got := w.shouldExcludeFile(path); got != want {
			t.Errorf("shouldExcludeFile(%s) = %v, want %v", path, got, want)
		}
	}
}
