package models

import (
	"strings"
	"testing"
)

func TestCalendarEventSearchableTextDoublesSummary(t *testing.T) {
	e := &CalendarEvent{
		Summary:  "Team sync",
		Location: "Room 5",
		Attendees: []Attendee{
			{Name: "Ada Lovelace"},
			{Email: "bob@example.com"},
		},
	}
	text := e.SearchableText()
	if want := "Team sync. Team sync. "; text[:len(want)] != want {
		t.Fatalf("expected summary doubled at start, got %q", text)
	}
	if !strings.Contains(text, "Room 5") || !strings.Contains(text, "Ada Lovelace") || !strings.Contains(text, "bob@example.com") {
		t.Fatalf("expected location and attendees present, got %q", text)
	}
}
