package columnstore

import (
	"context"
	"encoding/json"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// VectorMatch is one nearest-neighbor hit: the row id and its cosine/L2
// distance from the query embedding (lower is closer).
type VectorMatch struct {
	ID       string
	Distance float64
}

// SearchEmailVectors runs a KNN query against email_vectors, grounded on
// the teacher's VectorSearch pattern: JSON-serialize the query embedding
// and bind it to a MATCH clause against the vec0 virtual table. extraWhere
// is an already-parameterized filter fragment over emails' columns, or ""
// for no extra filter.
func (s *Store) SearchEmailVectors(ctx context.Context, embedding []float32, limit int, extraWhere string, extraArgs []any) ([]VectorMatch, error) {
	return s.searchVectors(ctx, "email_vectors", "emails", embedding, limit, extraWhere, extraArgs)
}

// SearchEventVectors runs a KNN query against event_vectors.
func (s *Store) SearchEventVectors(ctx context.Context, embedding []float32, limit int, extraWhere string, extraArgs []any) ([]VectorMatch, error) {
	return s.searchVectors(ctx, "event_vectors", "events", embedding, limit, extraWhere, extraArgs)
}

func (s *Store) searchVectors(ctx context.Context, vecTable, rowTable string, embedding []float32, limit int, extraWhere string, extraArgs []any) ([]VectorMatch, error) {
	if limit <= 0 {
		limit = 10
	}
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return nil, geerrors.Internal(err)
	}

	query := `SELECT v.id, v.distance FROM ` + vecTable + ` v WHERE v.embedding MATCH ?`
	args := []any{string(embeddingJSON)}
	if extraWhere != "" {
		query += ` AND v.id IN (SELECT id FROM ` + rowTable + ` WHERE ` + extraWhere + `)`
		args = append(args, extraArgs...)
	}
	query += ` ORDER BY v.distance LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	var out []VectorMatch
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, geerrors.Database(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
