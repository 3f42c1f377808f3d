package search

import (
	"context"
	"sync"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/embedding"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
)

// EmailHit is one ranked email search result.
type EmailHit struct {
	Email   *models.Message
	Score   float64
	Summary string
}

// CalendarHit is one ranked calendar search result.
type CalendarHit struct {
	Event   *models.CalendarEvent
	Score   float64
	Summary string
}

// SearchResponse wraps a page of ranked hits.
type SearchResponse[T any] struct {
	Hits  []T
	Total int
}

// Engine runs hybrid BM25 + vector search over the columnar store.
type Engine struct {
	store    *columnstore.Store
	embedder embedding.Provider
}

// New builds an Engine over store, embedding queries via embedder.
func New(store *columnstore.Store, embedder embedding.Provider) *Engine {
	return &Engine{store: store, embedder: embedder}
}

// SearchEmails runs the hybrid search algorithm (spec.md §4.6) over
// emails. Empty/wildcard queries bypass both branches and fall through to
// ListRecent.
func (e *Engine) SearchEmails(ctx context.Context, query string, opts SearchOptions) (*SearchResponse[EmailHit], error) {
	limit := opts.limitOrDefault()

	if IsWildcard(query) {
		var accountFilter *string
		if len(opts.Accounts) == 1 {
			accountFilter = &opts.Accounts[0]
		}
		rows, err := e.store.ListRecent(ctx, accountFilter, limit)
		if err != nil {
			return nil, err
		}
		hits := make([]EmailHit, len(rows))
		for i, m := range rows {
			hits[i] = EmailHit{Email: m, Summary: m.MarkdownSummary()}
		}
		return &SearchResponse[EmailHit]{Hits: hits, Total: len(hits)}, nil
	}

	whereClause, whereArgs := buildEmailFilter(opts)
	bm25Weight, vectorWeight := opts.weightsOrDefault()

	var wg sync.WaitGroup
	var bm25Matches []columnstore.BM25Match
	var vectorMatches []columnstore.VectorMatch

	wg.Add(1)
	go func() {
		defer wg.Done()
		matches, err := e.store.SearchEmailsBM25(ctx, query, 2*limit, whereClause, whereArgs)
		if err != nil {
			logger.Warn("bm25 search branch failed", "error", err)
			return
		}
		bm25Matches = matches
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if e.embedder == nil {
			return
		}
		vec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			logger.Warn("query embedding failed, vector branch skipped", "error", err)
			return
		}
		matches, err := e.store.SearchEmailVectors(ctx, vec, 2*limit, whereClause, whereArgs)
		if err != nil {
			logger.Warn("vector search branch failed", "error", err)
			return
		}
		vectorMatches = matches
	}()

	wg.Wait()

	bm25Ranks := toBM25Ranks(bm25Matches)
	vectorRanks := toVectorRanks(vectorMatches)
	order, scores := rrfFuse(bm25Ranks, vectorRanks, bm25Weight, vectorWeight)
	if len(order) > limit {
		order = order[:limit]
	}

	hits := make([]EmailHit, 0, len(order))
	for _, id := range order {
		m, err := e.store.GetEmail(ctx, id)
		if err != nil || m == nil {
			continue
		}
		hits = append(hits, EmailHit{Email: m, Score: scores[id], Summary: m.MarkdownSummary()})
	}
	return &SearchResponse[EmailHit]{Hits: hits, Total: len(hits)}, nil
}

// SearchCalendar is SearchEmails' structural twin over events.
func (e *Engine) SearchCalendar(ctx context.Context, query string, opts SearchOptions) (*SearchResponse[CalendarHit], error) {
	limit := opts.limitOrDefault()

	if IsWildcard(query) {
		return &SearchResponse[CalendarHit]{}, nil
	}

	whereClause, whereArgs := buildEventFilter(opts)
	bm25Weight, vectorWeight := opts.weightsOrDefault()

	var wg sync.WaitGroup
	var bm25Matches []columnstore.BM25Match
	var vectorMatches []columnstore.VectorMatch

	wg.Add(1)
	go func() {
		defer wg.Done()
		matches, err := e.store.SearchEventsBM25(ctx, query, 2*limit, whereClause, whereArgs)
		if err != nil {
			logger.Warn("bm25 calendar search branch failed", "error", err)
			return
		}
		bm25Matches = matches
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if e.embedder == nil {
			return
		}
		vec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			logger.Warn("query embedding failed, vector branch skipped", "error", err)
			return
		}
		matches, err := e.store.SearchEventVectors(ctx, vec, 2*limit, whereClause, whereArgs)
		if err != nil {
			logger.Warn("vector calendar search branch failed", "error", err)
			return
		}
		vectorMatches = matches
	}()

	wg.Wait()

	bm25Ranks := toBM25Ranks(bm25Matches)
	vectorRanks := toVectorRanks(vectorMatches)
	order, scores := rrfFuse(bm25Ranks, vectorRanks, bm25Weight, vectorWeight)
	if len(order) > limit {
		order = order[:limit]
	}

	hits := make([]CalendarHit, 0, len(order))
	for _, id := range order {
		ev, err := e.store.GetEvent(ctx, id)
		if err != nil || ev == nil {
			continue
		}
		hits = append(hits, CalendarHit{Event: ev, Score: scores[id], Summary: ev.MarkdownSummary()})
	}
	return &SearchResponse[CalendarHit]{Hits: hits, Total: len(hits)}, nil
}

func toBM25Ranks(matches []columnstore.BM25Match) []rankedID {
	out := make([]rankedID, len(matches))
	for i, m := range matches {
		out[i] = rankedID{ID: m.ID, Rank: i + 1}
	}
	return out
}

func toVectorRanks(matches []columnstore.VectorMatch) []rankedID {
	out := make([]rankedID, len(matches))
	for i, m := range matches {
		out[i] = rankedID{ID: m.ID, Rank: i + 1}
	}
	return out
}
