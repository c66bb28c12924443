package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snakr/internal/data/discovery"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_RebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	pkg := filepath.Join(root, "app")
	require.NoError(t, os.MkdirAll(pkg, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "__init__.py"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "a.py"), []byte("import os\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkg, "b.py"), nil, 0o644))

	walker, err := discovery.NewWalker([]string{root}, discovery.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan *BuildResult, 4)
	done := make(chan error, 1)
	go func() {
		done <- NewBuilder(nil, nil, Options{}).Watch(ctx, walker, WatchConfig{Debounce: 20 * time.Millisecond}, func(res *BuildResult, err error) {
			if err != nil {
				return
			}
			select {
			case results <- res:
			default:
			}
		})
	}()

	// The watcher registers asynchronously, so keep touching the file until
	// a rebuild reports the new edge.
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case res := <-results:
			if !edgeSet(res.Analysis)["app.a>app.b@1"] {
				continue
			}
			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("Watch did not return after cancel")
			}
			return
		case <-tick.C:
			require.NoError(t, os.WriteFile(filepath.Join(pkg, "a.py"), []byte("from . import b\n"), 0o644))
		case err := <-done:
			t.Fatalf("Watch returned early: %v", err)
		case <-deadline:
			t.Fatal("no rebuild observed after editing a.py")
		}
	}
}

func TestWatch_StopsWithContext(t *testing.T) {
	walker, err := discovery.NewWalker([]string{t.TempDir()}, discovery.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = NewBuilder(nil, nil, Options{}).Watch(ctx, walker, WatchConfig{Debounce: 10 * time.Millisecond}, func(*BuildResult, error) {
		called = true
	})
	assert.NoError(t, err)
	assert.False(t, called)
}
