// # internal/data/discovery/discovery.go
package discovery

import (
	"context"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"snakr/internal/core/errors"
	"snakr/internal/engine/qname"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"
)

// Unit is one discovered source unit. Text is read lazily so that listing
// units stays cheap.
type Unit struct {
	Path      string
	Module    qname.Name
	IsPackage bool

	text []byte
}

// NewUnit builds an in-memory unit with no backing file.
func NewUnit(module qname.Name, isPackage bool, text []byte) Unit {
	if text == nil {
		text = []byte{}
	}
	return Unit{Module: module, IsPackage: isPackage, text: text}
}

// Read returns the unit's text.
func (u Unit) Read() ([]byte, error) {
	if u.text != nil {
		return u.text, nil
	}
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read source unit"), errors.CtxPath, u.Path)
	}
	return data, nil
}

type Options struct {
	ExcludeDirs  []string
	ExcludeFiles []string
	Gitignore    bool
}

// Walker lists Python units beneath a set of roots. Each call to Units walks
// the filesystem again, so the sequence is restartable.
type Walker struct {
	roots     []string
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
	gitignore bool
}

func NewWalker(roots []string, opts Options) (*Walker, error) {
	w := &Walker{gitignore: opts.Gitignore}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "resolve root"), errors.CtxPath, r)
		}
		w.roots = append(w.roots, abs)
	}
	sort.Strings(w.roots)

	for _, p := range opts.ExcludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Newf(errors.CodeValidationError, "invalid exclude dir pattern %q: %v", p, err)
		}
		w.dirGlobs = append(w.dirGlobs, g)
	}
	for _, p := range opts.ExcludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Newf(errors.CodeValidationError, "invalid exclude file pattern %q: %v", p, err)
		}
		w.fileGlobs = append(w.fileGlobs, g)
	}
	return w, nil
}

func (w *Walker) Roots() []string { return append([]string(nil), w.roots...) }

// Units yields every importable .py file. A walk error is yielded once and
// ends that root's walk; the remaining roots are still visited.
func (w *Walker) Units(ctx context.Context) iter.Seq2[Unit, error] {
	return func(yield func(Unit, error) bool) {
		for _, root := range w.roots {
			if !w.walkRoot(ctx, root, yield) {
				return
			}
		}
	}
}

func (w *Walker) walkRoot(ctx context.Context, root string, yield func(Unit, error) bool) bool {
	matcher := w.loadGitignore(root)
	prefix := PackagePrefix(root)
	stopped := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		base := filepath.Base(path)
		rel, _ := filepath.Rel(root, path)
		if d.IsDir() {
			if path == root {
				return nil
			}
			for _, g := range w.dirGlobs {
				if g.Match(base) {
					return filepath.SkipDir
				}
			}
			if matcher != nil && matcher.MatchesPath(filepath.ToSlash(rel)+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if filepath.Ext(path) != pythonExt {
			return nil
		}
		for _, g := range w.fileGlobs {
			if g.Match(base) {
				return nil
			}
		}
		if matcher != nil && matcher.MatchesPath(filepath.ToSlash(rel)) {
			return nil
		}

		name, isPackage, ok := moduleName(root, prefix, path)
		if !ok {
			slog.Debug("skipping unimportable file", "path", path)
			return nil
		}
		if !yield(Unit{Path: path, Module: name, IsPackage: isPackage}, nil) {
			stopped = true
			return filepath.SkipAll
		}
		return nil
	})

	if stopped || ctx.Err() != nil {
		return false
	}
	if err != nil {
		return yield(Unit{Path: root}, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk root"), errors.CtxPath, root))
	}
	return true
}

func (w *Walker) loadGitignore(root string) *ignore.GitIgnore {
	if !w.gitignore {
		return nil
	}
	path := filepath.Join(root, ".gitignore")
	if !fileExists(path) {
		return nil
	}
	matcher, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		slog.Warn("ignoring unreadable .gitignore", "path", path, "error", err)
		return nil
	}
	return matcher
}

// MemorySource serves a fixed list of units, mostly for tests and for
// callers that already hold unit text.
type MemorySource []Unit

func (m MemorySource) Units(ctx context.Context) iter.Seq2[Unit, error] {
	return func(yield func(Unit, error) bool) {
		for _, u := range m {
			if ctx.Err() != nil {
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}
