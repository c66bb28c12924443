package app

import (
	"context"
	"log/slog"
	"time"

	"snakr/internal/core/watcher"
)

type WatchConfig struct {
	Debounce     time.Duration
	ExcludeDirs  []string
	ExcludeFiles []string
}

// RootedSource is a UnitSource backed by directories that can be watched.
type RootedSource interface {
	UnitSource
	Roots() []string
}

// Watch rebuilds source after every batch of .py changes and hands each
// result to onBuild. Changes that arrive during a rebuild coalesce into one
// follow-up rebuild. Watch returns when ctx is done.
func (b *Builder) Watch(ctx context.Context, source RootedSource, cfg WatchConfig, onBuild func(*BuildResult, error)) error {
	trigger := make(chan []string, 1)
	w, err := watcher.NewWatcher(cfg.Debounce, cfg.ExcludeDirs, cfg.ExcludeFiles, func(paths []string) {
		select {
		case trigger <- paths:
		default:
			// a rebuild is already queued and will see these files too
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(source.Roots()); err != nil {
		return err
	}
	slog.Info("watching for changes", "roots", source.Roots(), "debounce", cfg.Debounce)

	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-trigger:
			first := ""
			if len(paths) > 0 {
				first = paths[0]
			}
			slog.Info("change detected, rebuilding", "files", len(paths), "first", first)
			res, err := b.Build(ctx, source)
			if ctx.Err() != nil {
				return nil
			}
			onBuild(res, err)
		}
	}
}
