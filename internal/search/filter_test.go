package search

import "testing"

func TestBuildEmailFilterCombinesPredicates(t *testing.T) {
	hasAttachment := true
	dateFrom := int64(1000)
	opts := SearchOptions{
		Accounts:      []string{"a@example.com", "b@example.com"},
		Folder:        "INBOX",
		From:          "alice",
		HasAttachment: &hasAttachment,
		DateFrom:      &dateFrom,
	}

	where, args := buildEmailFilter(opts)
	if where == "" {
		t.Fatal("expected non-empty filter clause")
	}
	wantArgs := 2 /* accounts */ + 1 /* folder */ + 2 /* from like x2 */ + 1 /* date_from */
	if len(args) != wantArgs {
		t.Fatalf("expected %d args, got %d: %v", wantArgs, len(args), args)
	}
}

func TestBuildEmailFilterEmptyWhenNoPredicates(t *testing.T) {
	where, args := buildEmailFilter(SearchOptions{})
	if where != "" || args != nil {
		t.Fatalf("expected empty filter, got where=%q args=%v", where, args)
	}
}
