package models

import (
	"errors"
	"strings"
	"testing"
)

func TestEmbeddingBodyExcerptKeepsShortBodyUnchanged(t *testing.T) {
	body := "short body"
	if got := EmbeddingBodyExcerpt(body); got != body {
		t.Fatalf("expected unchanged body, got %q", got)
	}
}

func TestEmbeddingBodyExcerptTruncatesLongBody(t *testing.T) {
	long := strings.Repeat("a", searchableBodyMaxChars+5000)
	excerpt := EmbeddingBodyExcerpt(long)
	if got := len([]rune(excerpt)); got > searchableBodyMaxChars {
		t.Fatalf("excerpt too long: %d runes", got)
	}
	if !strings.Contains(excerpt, "[truncated]") {
		t.Fatalf("expected truncation marker in excerpt")
	}
}

func TestBodyResolutionPrefersPlainText(t *testing.T) {
	body := BodyForIndexingAndDisplay("Plain body", "<p>HTML body should not win</p>", nil)
	if body != "Plain body" {
		t.Fatalf("expected plain body to win, got %q", body)
	}
}

func TestBodyResolutionUsesHTMLWhenPlainMissing(t *testing.T) {
	html := `<h1>Hello</h1><p>See <a href="https://example.com">example</a></p>`
	converter := func(h string) (string, error) {
		return "Hello\n\nSee [example](https://example.com)", nil
	}
	body := BodyForIndexingAndDisplay("", html, converter)
	if !strings.Contains(body, "Hello") || !strings.Contains(body, "https://example.com") {
		t.Fatalf("expected converted markdown body, got %q", body)
	}
}

func TestBodyResolutionStripsControlChars(t *testing.T) {
	body := BodyForIndexingAndDisplay("hello world", "", nil)
	if body != "helloworld" {
		t.Fatalf("expected control chars stripped, got %q", body)
	}
}

func TestBodyResolutionDegradesWhenConverterMissing(t *testing.T) {
	body := BodyForIndexingAndDisplay("", "<p>hi</p>", nil)
	if body != "" {
		t.Fatalf("expected empty body when no converter is injected, got %q", body)
	}
}

func TestBodyResolutionHandlesConverterError(t *testing.T) {
	converter := func(h string) (string, error) { return "", errors.New("boom") }
	body := BodyForIndexingAndDisplay("", "<p>hi</p>", converter)
	if body != "" {
		t.Fatalf("expected empty body on converter error, got %q", body)
	}
}

func TestStableMessageIDFallback(t *testing.T) {
	id := StableMessageID("alice@example.com", "", 42)
	if id != "alice@example.com:<42@unknown>" {
		t.Fatalf("unexpected fallback id: %q", id)
	}
}

func TestStableMessageIDFromHeader(t *testing.T) {
	id := StableMessageID("alice@example.com", "<abc123@mail.example.com>", 42)
	if id != "alice@example.com:<abc123@mail.example.com>" {
		t.Fatalf("unexpected id: %q", id)
	}
}

func TestSearchableTextIncludesAttachments(t *testing.T) {
	m := &Message{
		Subject:     "Invoice",
		From:        Address{Name: "Billing", Email: "billing@example.com"},
		BodyPlain:   "Please see attached invoice.",
		Attachments: []Attachment{{Filename: "invoice.pdf"}},
	}
	text := m.SearchableText(nil)
	if !strings.Contains(text, "Invoice") || !strings.Contains(text, "invoice.pdf") {
		t.Fatalf("expected subject and attachment filename in searchable text, got %q", text)
	}
}
