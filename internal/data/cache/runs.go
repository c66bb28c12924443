package cache

import (
	"strings"
	"time"

	"snakr/internal/core/errors"
)

// Run is one recorded build.
type Run struct {
	ID          string
	Timestamp   time.Time
	Roots       []string
	Modules     int
	Internal    int
	Edges       int
	Cycles      int
	Unresolved  int
	ParseErrors int
	Duration    time.Duration
}

func (s *Store) RecordRun(r Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
INSERT OR REPLACE INTO runs (
  run_id, ts_utc, roots, module_count, internal_count, edge_count,
  cycle_count, unresolved_count, parse_error_count, duration_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		strings.Join(r.Roots, "\n"),
		r.Modules, r.Internal, r.Edges, r.Cycles, r.Unresolved, r.ParseErrors,
		r.Duration.Milliseconds(),
	)
	if err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "record run"), "run_id", r.ID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
SELECT run_id, ts_utc, roots, module_count, internal_count, edge_count,
       cycle_count, unresolved_count, parse_error_count, duration_ms
FROM runs ORDER BY ts_utc DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "query runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			ts, roots  string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &ts, &roots, &r.Modules, &r.Internal, &r.Edges,
			&r.Cycles, &r.Unresolved, &r.ParseErrors, &durationMS); err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "scan run")
		}
		r.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		if roots != "" {
			r.Roots = strings.Split(roots, "\n")
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
