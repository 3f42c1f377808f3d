// Package search is groundeffect's hybrid BM25 + vector search engine,
// grounded on original_source's search/mod.rs RRF fusion algorithm.
package search

// SearchOptions controls which rows a search considers and how the two
// ranking branches are weighted, per spec.md §4.6.
type SearchOptions struct {
	Accounts       []string // empty => all accounts
	Limit          int
	Folder         string // email only; empty => no filter
	From           string // substring match on from_email OR from_name
	To             string // substring match on serialized recipient list
	DateFrom       *int64 // seconds since epoch, inclusive
	DateTo         *int64 // seconds since epoch, inclusive
	HasAttachment  *bool  // nil => no filter
	BM25Weight     float64
	VectorWeight   float64
}

// defaultLimit matches spec.md's "reasonable default" framing for an
// unset limit.
const defaultLimit = 20

func (o SearchOptions) limitOrDefault() int {
	if o.Limit > 0 {
		return o.Limit
	}
	return defaultLimit
}

func (o SearchOptions) weightsOrDefault() (bm25, vector float64) {
	bm25, vector = o.BM25Weight, o.VectorWeight
	if bm25 == 0 && vector == 0 {
		return 1.0, 1.0
	}
	return bm25, vector
}

// IsWildcard reports whether query should bypass both ranking branches and
// fall through to list_recent, per spec.md §4.6's fast path.
func IsWildcard(query string) bool {
	return query == "" || query == "*"
}
