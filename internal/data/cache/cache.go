// # internal/data/cache/cache.go
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"snakr/internal/core/errors"
	"snakr/internal/engine/parser"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

// ExtractorVersion is bumped whenever RawImport extraction changes, which
// retires every stored row.
const ExtractorVersion = 1

// Store is a two-level parse cache: an in-memory LRU in front of a sqlite
// table. It satisfies parser.Cache.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex // serialises writes
	hot  *lru.Cache[string, []parser.RawImport]
}

func Open(path string, entries int) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "cache path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "cache path is a directory, expected file"), errors.CtxPath, cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "create cache directory"), errors.CtxPath, dir)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open sqlite cache"), errors.CtxPath, cleanPath)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "ping sqlite cache"), errors.CtxPath, cleanPath)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "initialize sqlite schema"), errors.CtxPath, cleanPath)
	}

	if entries <= 0 {
		entries = 1024
	}
	hot, err := lru.New[string, []parser.RawImport](entries)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.CodeInternal, "create memory cache")
	}

	return &Store{path: cleanPath, db: db, hot: hot}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get looks in memory first and promotes database hits.
func (s *Store) Get(key string) ([]parser.RawImport, bool) {
	if imports, ok := s.hot.Get(key); ok {
		return imports, true
	}

	var payload string
	err := s.db.QueryRow(
		`SELECT imports_json FROM parse_results WHERE content_hash = ? AND extractor_version = ?`,
		key, ExtractorVersion,
	).Scan(&payload)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Debug("parse cache lookup failed", "key", key, "error", err)
		}
		return nil, false
	}

	var imports []parser.RawImport
	if err := json.Unmarshal([]byte(payload), &imports); err != nil {
		slog.Warn("discarding corrupt parse cache row", "key", key, "error", err)
		return nil, false
	}
	s.hot.Add(key, imports)
	return imports, true
}

// Put stores imports under key. Failures are logged, never returned: the
// cache is an optimisation.
func (s *Store) Put(key string, imports []parser.RawImport) {
	if imports == nil {
		imports = []parser.RawImport{}
	}
	s.hot.Add(key, imports)

	payload, err := json.Marshal(imports)
	if err != nil {
		slog.Warn("encode parse cache row", "key", key, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO parse_results (content_hash, extractor_version, imports_json) VALUES (?, ?, ?)`,
		key, ExtractorVersion, string(payload),
	)
	if err != nil {
		slog.Warn("write parse cache row", "key", key, "error", err)
	}
}

// Len counts stored rows for the current extractor version.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM parse_results WHERE extractor_version = ?`, ExtractorVersion).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "count parse cache rows")
	}
	return n, nil
}

// Prune drops rows written by older extractors.
func (s *Store) Prune() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`DELETE FROM parse_results WHERE extractor_version <> ?`, ExtractorVersion)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeInternal, "prune parse cache")
	}
	return res.RowsAffected()
}
