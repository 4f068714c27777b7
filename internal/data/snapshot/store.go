// Package snapshot persists frozen build graphs in SQLite so later runs can
// query or diff them without re-parsing the crate.
package snapshot

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"semgraph/internal/core/errors"
	"semgraph/internal/engine/graph"
	"semgraph/internal/engine/parser"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Build is the summary row stored for every saved graph.
type Build struct {
	ID            string
	Crate         string
	Fingerprint   string
	Timestamp     time.Time
	Modules       int
	Functions     int
	CallEdges     int
	Diagnostics   int
	UnusedImports int
}

// EdgeKey identifies an edge irrespective of where it was written.
type EdgeKey struct {
	From string
	To   string
	Kind graph.EdgeKind
}

type EdgeDiff struct {
	Added   []EdgeKey
	Removed []EdgeKey
}

func (d EdgeDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "snapshot path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "snapshot path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite snapshots %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite snapshots %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Save writes g in a single transaction. A build ID can only be saved once.
func (s *Store) Save(ctx context.Context, g *graph.Graph, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ts.IsZero() {
		ts = time.Now()
	}
	stats := g.Stats()

	return s.withRetry(ctx, "save build", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM builds WHERE build_id = ?`, g.BuildID()).Scan(&exists); err != nil {
			return err
		}
		if exists > 0 {
			return errors.Newf(errors.CodeConflict, "build %s is already stored", g.BuildID())
		}

		if _, err := tx.ExecContext(ctx, `
INSERT INTO builds (
  build_id, crate, fingerprint, ts_utc, module_count, function_count,
  call_edge_count, diagnostic_count, unused_import_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			g.BuildID(), g.Crate(), g.FingerprintHex(), ts.UTC().Format(time.RFC3339Nano),
			stats.Modules, stats.Functions, stats.CallEdges, stats.Diagnostics, stats.UnusedImports,
		); err != nil {
			return err
		}

		declStmt, err := tx.PrepareContext(ctx, `
INSERT INTO declarations (build_id, path, name, kind, module, target, file, line, col)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer declStmt.Close()
		for _, d := range g.Declarations() {
			if _, err := declStmt.ExecContext(ctx, g.BuildID(), d.Path, d.Name, string(d.Kind), d.Module, d.Target,
				d.Location.File, d.Location.Line, d.Location.Column); err != nil {
				return err
			}
		}

		edgeStmt, err := tx.PrepareContext(ctx, `
INSERT INTO edges (build_id, seq, from_path, to_path, kind, file, line, col)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer edgeStmt.Close()
		for i, e := range g.Edges() {
			if _, err := edgeStmt.ExecContext(ctx, g.BuildID(), i, e.From, e.To, string(e.Kind),
				e.Location.File, e.Location.Line, e.Location.Column); err != nil {
				return err
			}
		}

		diagStmt, err := tx.PrepareContext(ctx, `
INSERT INTO diagnostics (build_id, seq, code, module, subject, message, file, line, col)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer diagStmt.Close()
		for i, d := range g.Diagnostics() {
			if _, err := diagStmt.ExecContext(ctx, g.BuildID(), i, string(d.Code), d.Module, d.Subject, d.Message,
				d.Location.File, d.Location.Line, d.Location.Column); err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

// Latest returns the most recent build stored for crate.
func (s *Store) Latest(ctx context.Context, crate string) (Build, error) {
	builds, err := s.Builds(ctx, crate, 1)
	if err != nil {
		return Build{}, err
	}
	if len(builds) == 0 {
		return Build{}, errors.Newf(errors.CodeNotFound, "no stored builds for crate %q", crate)
	}
	return builds[0], nil
}

// Builds lists stored builds for crate, newest first. limit <= 0 lists all.
func (s *Store) Builds(ctx context.Context, crate string, limit int) ([]Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT build_id, crate, fingerprint, ts_utc, module_count, function_count,
  call_edge_count, diagnostic_count, unused_import_count
FROM builds WHERE crate = ? ORDER BY ts_utc DESC, rowid DESC`
	args := []any{crate}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var out []Build
	err := s.withRetry(ctx, "load builds", func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				b     Build
				tsRaw string
			)
			if err := rows.Scan(&b.ID, &b.Crate, &b.Fingerprint, &tsRaw, &b.Modules, &b.Functions,
				&b.CallEdges, &b.Diagnostics, &b.UnusedImports); err != nil {
				return fmt.Errorf("scan build row: %w", err)
			}
			ts, err := time.Parse(time.RFC3339Nano, tsRaw)
			if err != nil {
				return fmt.Errorf("parse build timestamp %q: %w", tsRaw, err)
			}
			b.Timestamp = ts.UTC()
			out = append(out, b)
		}
		return rows.Err()
	})
	return out, err
}

// Edges returns the stored edges of a build in their original order.
func (s *Store) Edges(ctx context.Context, buildID string) ([]graph.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []graph.Edge
	err := s.withRetry(ctx, "load edges", func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, `
SELECT from_path, to_path, kind, file, line, col
FROM edges WHERE build_id = ? ORDER BY seq`, buildID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				e    graph.Edge
				kind string
			)
			if err := rows.Scan(&e.From, &e.To, &kind, &e.Location.File, &e.Location.Line, &e.Location.Column); err != nil {
				return fmt.Errorf("scan edge row: %w", err)
			}
			e.Kind = graph.EdgeKind(kind)
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) Declarations(ctx context.Context, buildID string) ([]graph.Declaration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []graph.Declaration
	err := s.withRetry(ctx, "load declarations", func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, `
SELECT path, name, kind, module, target, file, line, col
FROM declarations WHERE build_id = ? ORDER BY path`, buildID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				d    graph.Declaration
				kind string
				loc  parser.Location
			)
			if err := rows.Scan(&d.Path, &d.Name, &kind, &d.Module, &d.Target, &loc.File, &loc.Line, &loc.Column); err != nil {
				return fmt.Errorf("scan declaration row: %w", err)
			}
			d.Kind = graph.DeclKind(kind)
			d.Location = loc
			out = append(out, d)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) Diagnostics(ctx context.Context, buildID string) ([]graph.Diagnostic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []graph.Diagnostic
	err := s.withRetry(ctx, "load diagnostics", func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx, `
SELECT code, module, subject, message, file, line, col
FROM diagnostics WHERE build_id = ? ORDER BY seq`, buildID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				d    graph.Diagnostic
				code string
			)
			if err := rows.Scan(&code, &d.Module, &d.Subject, &d.Message, &d.Location.File, &d.Location.Line, &d.Location.Column); err != nil {
				return fmt.Errorf("scan diagnostic row: %w", err)
			}
			d.Code = errors.ErrorCode(code)
			out = append(out, d)
		}
		return rows.Err()
	})
	return out, err
}

// DiffEdges reports the distinct edges present in newID but not oldID
// (Added) and the reverse (Removed), sorted.
func (s *Store) DiffEdges(ctx context.Context, oldID, newID string) (EdgeDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const except = `
SELECT from_path, to_path, kind FROM edges WHERE build_id = ?
EXCEPT
SELECT from_path, to_path, kind FROM edges WHERE build_id = ?
ORDER BY 1, 2, 3`

	var diff EdgeDiff
	err := s.withRetry(ctx, "diff edges", func() error {
		added, err := s.edgeKeys(ctx, except, newID, oldID)
		if err != nil {
			return err
		}
		removed, err := s.edgeKeys(ctx, except, oldID, newID)
		if err != nil {
			return err
		}
		diff = EdgeDiff{Added: added, Removed: removed}
		return nil
	})
	return diff, err
}

func (s *Store) edgeKeys(ctx context.Context, query string, args ...any) ([]EdgeKey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EdgeKey
	for rows.Next() {
		var (
			k    EdgeKey
			kind string
		)
		if err := rows.Scan(&k.From, &k.To, &kind); err != nil {
			return nil, fmt.Errorf("scan edge key: %w", err)
		}
		k.Kind = graph.EdgeKind(kind)
		out = append(out, k)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep builds of crate and returns how many
// builds were removed.
func (s *Store) Prune(ctx context.Context, crate string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry(ctx, "prune builds", func() error {
		res, err := s.db.ExecContext(ctx, `
DELETE FROM builds WHERE crate = ? AND build_id NOT IN (
  SELECT build_id FROM builds WHERE crate = ? ORDER BY ts_utc DESC, rowid DESC LIMIT ?
)`, crate, crate, keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var de *errors.DomainError
		if stderrors.As(err, &de) {
			return err
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.CodeCanceled, op)
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// IsCorruptError reports whether err indicates an unreadable database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || stderrors.Is(err, os.ErrInvalid)
}
