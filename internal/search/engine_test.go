package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/models"
)

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	v[0] = 1
	return v, nil
}
func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = f.Embed(ctx, texts[i])
	}
	return out, nil
}
func (f fakeEmbedder) Dimension() int { return f.dim }

func openTestEngine(t *testing.T) (*Engine, *columnstore.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := columnstore.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, fakeEmbedder{dim: columnstore.EmbeddingDimension}), store
}

func TestSearchEmailsWildcardCallsListRecent(t *testing.T) {
	eng, store := openTestEngine(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	m := &models.Message{
		ID: "acct1:<m1>", AccountID: "acct1", MessageIDHeader: "<m1>",
		Folder: "INBOX", From: models.Address{Email: "a@example.com"},
		Subject: "hi", Date: now, BodyPlain: "body", SyncedAt: now,
	}
	if err := store.UpsertEmail(ctx, m); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}

	resp, err := eng.SearchEmails(ctx, "", SearchOptions{})
	if err != nil {
		t.Fatalf("SearchEmails: %v", err)
	}
	if len(resp.Hits) != 1 {
		t.Fatalf("expected 1 hit from wildcard search, got %d", len(resp.Hits))
	}
}

func TestSearchEmailsHybridFindsBM25Match(t *testing.T) {
	eng, store := openTestEngine(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	m := &models.Message{
		ID: "acct1:<m1>", AccountID: "acct1", MessageIDHeader: "<m1>",
		Folder: "INBOX", From: models.Address{Email: "a@example.com"},
		Subject: "quarterly budget review", Date: now,
		BodyPlain: "please review the attached budget", SyncedAt: now,
	}
	if err := store.UpsertEmail(ctx, m); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}

	resp, err := eng.SearchEmails(ctx, "budget", SearchOptions{Limit: 5})
	if err != nil {
		t.Fatalf("SearchEmails: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].Email.ID != m.ID {
		t.Fatalf("expected 1 hit on %q, got %+v", m.ID, resp.Hits)
	}
	if resp.Hits[0].Summary == "" {
		t.Fatal("expected non-empty markdown summary")
	}
}
