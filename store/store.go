// Package store persists named hash trees and their digests in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"

	"github.com/chazu/hashalg/algebra"
	"github.com/chazu/hashalg/algebra/notation"
)

var (
	// ErrNotFound indicates no record has the requested name.
	ErrNotFound = errors.New("record not found")

	// ErrDigestMismatch indicates a stored digest no longer matches the
	// digest of its stored expression.
	ErrDigestMismatch = errors.New("digest mismatch")
)

var log = commonlog.GetLogger("hashalg.store")

// Record is one named tree with its digest and fingerprint.
type Record struct {
	ID          string   `cbor:"id"`
	Name        string   `cbor:"name"`
	Expr        string   `cbor:"expr"`
	Fingerprint [32]byte `cbor:"fingerprint"`
	Digest      int64    `cbor:"digest"`
	CreatedAt   int64    `cbor:"created_at"` // unix nanoseconds
}

// Tree parses the record's expression.
func (r Record) Tree() (algebra.Hash, error) {
	return notation.Parse(r.Expr)
}

// Store is a SQLite-backed digest store.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// Open opens (creating if needed) the store at path. Use ":memory:" for a
// throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS digests (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		expr        TEXT NOT NULL,
		fingerprint BLOB NOT NULL,
		digest      INTEGER NOT NULL,
		created_at  INTEGER NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened digest store %s", path)
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores h under name, replacing any previous tree with that name.
// Malformed (cyclic) trees are rejected.
func (s *Store) Put(ctx context.Context, name string, h algebra.Hash) (Record, error) {
	if err := algebra.Check(h); err != nil {
		return Record{}, fmt.Errorf("putting %q: %w", name, err)
	}
	rec := Record{
		ID:          uuid.NewString(),
		Name:        name,
		Expr:        algebra.Format(h),
		Fingerprint: algebra.Fingerprint(h),
		Digest:      algebra.Digest(h),
		CreatedAt:   s.now().UnixNano(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := upsert(ctx, s.db, rec); err != nil {
		return Record{}, fmt.Errorf("putting %q: %w", name, err)
	}
	log.Infof("stored %s digest=%d", name, rec.Digest)
	return s.Get(ctx, name)
}

// Get returns the record stored under name.
func (s *Store) Get(ctx context.Context, name string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, expr, fingerprint, digest, created_at FROM digests WHERE name = ?", name)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Record{}, fmt.Errorf("querying %q: %w", name, err)
	}
	return rec, nil
}

// List returns every record ordered by name.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, expr, fingerprint, digest, created_at FROM digests ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes the record stored under name.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "DELETE FROM digests WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Verify recomputes the digest and fingerprint of the named record from its
// stored expression. It returns an error wrapping ErrDigestMismatch when
// either has drifted, e.g. after the label digest function changed.
func (s *Store) Verify(ctx context.Context, name string) error {
	rec, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return verifyRecord(rec)
}

func verifyRecord(rec Record) error {
	h, err := rec.Tree()
	if err != nil {
		return fmt.Errorf("record %q: %w", rec.Name, err)
	}
	if got := algebra.Digest(h); got != rec.Digest {
		return fmt.Errorf("%w: %s: stored %d, computed %d", ErrDigestMismatch, rec.Name, rec.Digest, got)
	}
	if algebra.Fingerprint(h) != rec.Fingerprint {
		return fmt.Errorf("%w: %s: fingerprint changed", ErrDigestMismatch, rec.Name)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsert(ctx context.Context, db execer, rec Record) error {
	_, err := db.ExecContext(ctx, `INSERT INTO digests (id, name, expr, fingerprint, digest, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			expr = excluded.expr,
			fingerprint = excluded.fingerprint,
			digest = excluded.digest,
			created_at = excluded.created_at`,
		rec.ID, rec.Name, rec.Expr, rec.Fingerprint[:], rec.Digest, rec.CreatedAt)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec Record
		fp  []byte
	)
	if err := sc.Scan(&rec.ID, &rec.Name, &rec.Expr, &fp, &rec.Digest, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if len(fp) != len(rec.Fingerprint) {
		return Record{}, fmt.Errorf("fingerprint of %q has %d bytes", rec.Name, len(fp))
	}
	copy(rec.Fingerprint[:], fp)
	return rec, nil
}
