package columnstore

import (
	"context"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// BM25Match is one FTS5 hit: the row id and its bm25() rank (lower is a
// better match, matching SQLite FTS5's convention).
type BM25Match struct {
	ID   string
	Rank float64
}

// SearchEmailsBM25 runs an FTS5 MATCH query against emails_fts, joined back
// to emails for extraWhere/extraArgs (an already-parameterized filter
// fragment over emails' columns, or "" for no extra filter), grounded on
// the teacher's files_fts query pattern (db.go's ListFiles).
func (s *Store) SearchEmailsBM25(ctx context.Context, query string, limit int, extraWhere string, extraArgs []any) ([]BM25Match, error) {
	return s.searchBM25(ctx, "emails_fts", "emails", query, limit, extraWhere, extraArgs)
}

// SearchEventsBM25 runs an FTS5 MATCH query against events_fts.
func (s *Store) SearchEventsBM25(ctx context.Context, query string, limit int, extraWhere string, extraArgs []any) ([]BM25Match, error) {
	return s.searchBM25(ctx, "events_fts", "events", query, limit, extraWhere, extraArgs)
}

func (s *Store) searchBM25(ctx context.Context, ftsTable, rowTable, query string, limit int, extraWhere string, extraArgs []any) ([]BM25Match, error) {
	if limit <= 0 {
		limit = 10
	}

	sqlQuery := `SELECT f.id, bm25(` + ftsTable + `) AS rank FROM ` + ftsTable + ` f WHERE ` + ftsTable + ` MATCH ?`
	args := []any{query}
	if extraWhere != "" {
		sqlQuery += ` AND f.id IN (SELECT id FROM ` + rowTable + ` WHERE ` + extraWhere + `)`
		args = append(args, extraArgs...)
	}
	sqlQuery += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	var out []BM25Match
	for rows.Next() {
		var m BM25Match
		if err := rows.Scan(&m.ID, &m.Rank); err != nil {
			return nil, geerrors.Database(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
