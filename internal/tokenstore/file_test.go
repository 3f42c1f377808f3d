package tokenstore

import (
	"testing"

	"github.com/jamiequint/groundeffect/internal/models"
)

func TestSanitizeAndDesanitizeAccountIDRoundTrip(t *testing.T) {
	email := "alice.smith@example.com"
	sanitized := sanitizeAccountID(email)
	if sanitized != "alice_smith_at_example_com" {
		t.Fatalf("unexpected sanitized form: %q", sanitized)
	}
	got, ok := desanitizeAccountID(sanitized)
	if !ok {
		t.Fatalf("expected desanitization to succeed")
	}
	if got != email {
		t.Fatalf("expected round-trip to recover %q, got %q", email, got)
	}
}

func TestDesanitizeAccountIDRejectsMalformed(t *testing.T) {
	if _, ok := desanitizeAccountID("nomarkerhere"); ok {
		t.Fatalf("expected desanitization to fail without an _at_ marker")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := t.Context()

	tok := &models.TokenBundle{AccessToken: "a", RefreshToken: "r", ExpiresAt: 123, Scopes: []string{"email"}}
	if err := store.Put(ctx, "alice@example.com", tok); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.AccessToken != "a" || got.RefreshToken != "r" {
		t.Fatalf("unexpected round-tripped token: %+v", got)
	}

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != "alice@example.com" {
		t.Fatalf("unexpected account list: %v", accounts)
	}

	if err := store.Delete(ctx, "alice@example.com"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	got, err = store.Get(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil token after delete, got %+v", got)
	}
}

func TestFileStoreEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "a-test-secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := t.Context()

	tok := &models.TokenBundle{AccessToken: "a", RefreshToken: "r", ExpiresAt: 123}
	if err := store.Put(ctx, "bob@example.com", tok); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	got, err := store.Get(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil || got.AccessToken != "a" {
		t.Fatalf("unexpected round-tripped token: %+v", got)
	}
}
