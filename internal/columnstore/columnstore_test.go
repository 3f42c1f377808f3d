package columnstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamiequint/groundeffect/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "groundeffect.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMessage(accountID, messageID string) *models.Message {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Message{
		ID:              accountID + ":" + messageID,
		AccountID:       accountID,
		MessageIDHeader: messageID,
		GmailMessageID:  1234,
		GmailThreadID:   5678,
		UID:             1,
		Folder:          "INBOX",
		Labels:          []string{"INBOX", "IMPORTANT"},
		From:            models.Address{Name: "Alice", Email: "alice@example.com"},
		To:              []models.Address{{Email: "bob@example.com"}},
		Subject:         "hello world",
		Date:            now,
		BodyPlain:       "hello there, this is the body",
		Snippet:         "hello there",
		SyncedAt:        now,
		RawSize:         1024,
	}
}

func TestUpsertAndGetEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := sampleMessage("acct1", "<abc@mail.gmail.com>")
	m.Embedding = make([]float32, EmbeddingDimension)
	m.Embedding[0] = 0.5

	if err := s.UpsertEmail(ctx, m); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}

	got, err := s.GetEmail(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetEmail: %v", err)
	}
	if got == nil {
		t.Fatal("expected email, got nil")
	}
	if got.Subject != m.Subject || got.From.Email != m.From.Email {
		t.Fatalf("round-tripped email mismatch: %+v", got)
	}
	if len(got.Labels) != 2 {
		t.Fatalf("expected 2 labels, got %v", got.Labels)
	}

	// Re-upsert with a changed subject; should replace, not duplicate.
	m.Subject = "updated subject"
	if err := s.UpsertEmail(ctx, m); err != nil {
		t.Fatalf("second UpsertEmail: %v", err)
	}
	count, err := s.CountEmails(ctx, nil)
	if err != nil {
		t.Fatalf("CountEmails: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 email after re-upsert, got %d", count)
	}
	got, _ = s.GetEmail(ctx, m.ID)
	if got.Subject != "updated subject" {
		t.Fatalf("expected updated subject, got %q", got.Subject)
	}
}

func TestGetEmailNotFound(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetEmail(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetEmail: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing email, got %+v", got)
	}
}

func TestListRecentOrdersByDateDesc(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"m1", "m2", "m3"} {
		m := sampleMessage("acct1", id)
		m.Date = base.Add(time.Duration(i) * time.Hour)
		if err := s.UpsertEmail(ctx, m); err != nil {
			t.Fatalf("UpsertEmail %s: %v", id, err)
		}
	}

	got, err := s.ListRecent(ctx, nil, 10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 emails, got %d", len(got))
	}
	if got[0].MessageIDHeader != "m3" {
		t.Fatalf("expected most recent first, got %q", got[0].MessageIDHeader)
	}
}

func sampleEvent(accountID, googleEventID string) *models.CalendarEvent {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.CalendarEvent{
		AccountID:     accountID,
		GoogleEventID: googleEventID,
		ICalUID:       googleEventID + "@google.com",
		Etag:          "etag-1",
		Summary:       "Team sync",
		Start:         models.EventTime{DateTime: now},
		End:           models.EventTime{DateTime: now.Add(time.Hour)},
		Timezone:      "UTC",
		Status:        models.EventConfirmed,
		Transparency:  models.TransparencyOpaque,
		CalendarID:    "primary",
		SyncedAt:      now,
	}
}

func TestUpsertEventsDedupesByGoogleEventID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := sampleEvent("acct1", "evt-1")
	if err := s.UpsertEvents(ctx, []*models.CalendarEvent{e}); err != nil {
		t.Fatalf("UpsertEvents: %v", err)
	}

	e2 := sampleEvent("acct1", "evt-1")
	e2.Summary = "Rescheduled sync"
	e2.Etag = "etag-2"
	if err := s.UpsertEvents(ctx, []*models.CalendarEvent{e2}); err != nil {
		t.Fatalf("second UpsertEvents: %v", err)
	}

	count, err := s.CountEvents(ctx, nil)
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event after re-upsert, got %d", count)
	}

	got, err := s.GetEvent(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if got.Summary != "Rescheduled sync" {
		t.Fatalf("expected rescheduled summary, got %q", got.Summary)
	}

	etags, err := s.GetEventEtags(ctx, "acct1")
	if err != nil {
		t.Fatalf("GetEventEtags: %v", err)
	}
	if etags["evt-1"] != "etag-2" {
		t.Fatalf("expected etag-2, got %q", etags["evt-1"])
	}
}

func TestAccountRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := &models.Account{
		ID:      "alice@example.com",
		Alias:   "work",
		Name:    "Alice Example",
		Status:  models.AccountActive,
		AddedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.UpsertAccount(ctx, a); err != nil {
		t.Fatalf("UpsertAccount: %v", err)
	}

	got, err := s.GetAccount(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got == nil || got.Alias != "work" {
		t.Fatalf("unexpected account: %+v", got)
	}

	a.Status = models.AccountNeedsReauth
	if err := s.UpsertAccount(ctx, a); err != nil {
		t.Fatalf("re-upsert account: %v", err)
	}
	got, _ = s.GetAccount(ctx, a.ID)
	if got.Status != models.AccountNeedsReauth {
		t.Fatalf("expected status to update, got %q", got.Status)
	}

	accounts, err := s.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
}

func TestDeleteAccountDataRemovesEmailsAndEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertEmail(ctx, sampleMessage("acct1", "<m1>")); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}
	if err := s.UpsertEvents(ctx, []*models.CalendarEvent{sampleEvent("acct1", "evt-1")}); err != nil {
		t.Fatalf("UpsertEvents: %v", err)
	}

	emailsRemoved, eventsRemoved, err := s.DeleteAccountData(ctx, "acct1")
	if err != nil {
		t.Fatalf("DeleteAccountData: %v", err)
	}
	if emailsRemoved != 1 || eventsRemoved != 1 {
		t.Fatalf("expected 1 email and 1 event removed, got %d/%d", emailsRemoved, eventsRemoved)
	}

	count, _ := s.CountEmails(ctx, nil)
	if count != 0 {
		t.Fatalf("expected 0 emails left, got %d", count)
	}
}

func TestSearchEmailsBM25(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := sampleMessage("acct1", "<m1>")
	m.Subject = "quarterly budget review"
	m.BodyPlain = "please review the attached budget spreadsheet"
	if err := s.UpsertEmail(ctx, m); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}

	matches, err := s.SearchEmailsBM25(ctx, "budget", 10, "", nil)
	if err != nil {
		t.Fatalf("SearchEmailsBM25: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != m.ID {
		t.Fatalf("expected 1 match on %q, got %+v", m.ID, matches)
	}
}

func TestSearchEmailVectors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m := sampleMessage("acct1", "<m1>")
	m.Embedding = make([]float32, EmbeddingDimension)
	m.Embedding[0] = 1.0
	if err := s.UpsertEmail(ctx, m); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}

	query := make([]float32, EmbeddingDimension)
	query[0] = 1.0
	matches, err := s.SearchEmailVectors(ctx, query, 5, "", nil)
	if err != nil {
		t.Fatalf("SearchEmailVectors: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != m.ID {
		t.Fatalf("expected 1 vector match on %q, got %+v", m.ID, matches)
	}
}
