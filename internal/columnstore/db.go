// Package columnstore is groundeffect's columnar store: a single SQLite database
// file combining row storage, FTS5 BM25 indices, and sqlite-vec vector
// indices for emails and calendar events, realizing the "columnar
// database" named in spec.md §6.1 without an Arrow/LanceDB dependency (see
// DESIGN.md for why: no production-quality Go LanceDB binding exists, and
// the teacher's own mcp/tools/files package already solves this exact
// shape of problem with SQLite + FTS5 + sqlite-vec).
package columnstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

func init() {
	sqlitevec.Auto()
}

// EmbeddingDimension is the fixed vector width every embedding column
// uses; the embedding provider pads/truncates to this width (spec.md §3.2).
const EmbeddingDimension = 768

// Store wraps the single *sql.DB connection backing groundeffect's
// columnar database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and ensures
// its schema — row tables, FTS5 virtual tables + sync triggers, and vec0
// virtual tables — exists.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, geerrors.Config("failed to create data directory: " + err.Error())
		}
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on", path))
	if err != nil {
		return nil, geerrors.Database(err)
	}
	// A single writer connection avoids SQLITE_BUSY under WAL without
	// needing a busy_timeout retry loop, matching the teacher's internal/db
	// convention of one *sql.DB per process.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RefreshTables exists for interface parity with spec.md §4.4's
// cooperative cross-process visibility protocol. A single *sql.DB
// connection pool already observes a WAL-mode writer's commits without any
// explicit refresh, so this is a documented no-op rather than a deleted
// requirement.
func (s *Store) RefreshTables(ctx context.Context) error {
	return nil
}
