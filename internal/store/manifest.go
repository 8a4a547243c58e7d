package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/seaweed-cluster/internal/domain"
)

// Entry is one manifest row: a committed artifact.
type Entry struct {
	Key       Key
	Path      string
	Checksum  string
	SizeBytes int64
	Rows      int
	CreatedAt time.Time
}

// Manifest is the SQLite index of committed artifacts.
type Manifest struct {
	db    *sql.DB
	clock clockwork.Clock
}

// OpenManifest opens or creates the manifest database at path and applies
// migrations. The pool is limited to one connection so concurrent units
// serialize their commits instead of failing with SQLITE_BUSY.
func OpenManifest(ctx context.Context, path string, clock clockwork.Clock, logger *slog.Logger) (*Manifest, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create manifest dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrate(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate manifest: %w", err)
	}
	return &Manifest{db: db, clock: clock}, nil
}

// Close closes the database.
func (m *Manifest) Close() error { return m.db.Close() }

// Lookup returns the manifest row for key, or false when none exists.
func (m *Manifest) Lookup(ctx context.Context, key Key) (Entry, bool, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT path, checksum, size_bytes, row_count, created_at
		FROM artifacts
		WHERE scenario = ? AND scope = ? AND parameter = ? AND stage = ? AND version = ? AND fingerprint = ?`,
		key.Scenario, key.Scope, string(key.Parameter), string(key.Stage), key.Version, key.Fingerprint)

	e := Entry{Key: key}
	var created string
	err := row.Scan(&e.Path, &e.Checksum, &e.SizeBytes, &e.Rows, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Entry{}, false, fmt.Errorf("parse created_at of %s: %w", key, err)
	}
	return e, true, nil
}

// Commit records all entries in a single transaction, replacing rows with
// the same key. CreatedAt is set from the manifest clock.
func (m *Manifest) Commit(ctx context.Context, entries []Entry) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := m.clock.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		k := e.Key
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO artifacts
				(scenario, scope, parameter, stage, version, fingerprint, path, checksum, size_bytes, row_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			k.Scenario, k.Scope, string(k.Parameter), string(k.Stage), k.Version, k.Fingerprint,
			e.Path, e.Checksum, e.SizeBytes, e.Rows, now); err != nil {
			return fmt.Errorf("insert %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit manifest: %w", err)
	}
	return nil
}

// Stale lists committed artifacts of a unit and stage whose version or
// fingerprint differs from current. They are kept on disk but never served.
func (m *Manifest) Stale(ctx context.Context, current Key) ([]Entry, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT parameter, version, fingerprint, path, checksum, size_bytes, row_count, created_at
		FROM artifacts
		WHERE scenario = ? AND scope = ? AND stage = ? AND NOT (version = ? AND fingerprint = ?)
		ORDER BY parameter, created_at`,
		current.Scenario, current.Scope, string(current.Stage), current.Version, current.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("list stale artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		e := Entry{Key: Key{Scenario: current.Scenario, Scope: current.Scope, Stage: current.Stage}}
		var param, created string
		if err := rows.Scan(&param, &e.Key.Version, &e.Key.Fingerprint, &e.Path, &e.Checksum, &e.SizeBytes, &e.Rows, &created); err != nil {
			return nil, fmt.Errorf("scan stale artifact: %w", err)
		}
		e.Key.Parameter = domain.Parameter(param)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
