package calsync

import (
	"testing"

	"google.golang.org/api/calendar/v3"
)

func TestParseEventAllDay(t *testing.T) {
	evt := &calendar.Event{
		Id:      "abc123",
		Summary: "Offsite",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{Date: "2026-08-01"},
		End:     &calendar.EventDateTime{Date: "2026-08-02"},
	}

	e := ParseEvent("acct1", "", "primary", evt)
	if !e.Start.AllDay || !e.End.AllDay {
		t.Fatal("expected all-day event")
	}
	if e.GoogleEventID != "abc123" {
		t.Fatalf("GoogleEventID = %q", e.GoogleEventID)
	}
	if e.CalendarID != "primary" {
		t.Fatalf("CalendarID = %q", e.CalendarID)
	}
}

func TestParseEventTimed(t *testing.T) {
	evt := &calendar.Event{
		Id:      "def456",
		Summary: "1:1",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: "2026-08-01T10:00:00-07:00"},
		End:     &calendar.EventDateTime{DateTime: "2026-08-01T10:30:00-07:00"},
		Attendees: []*calendar.EventAttendee{
			{Email: "a@example.com", ResponseStatus: "accepted"},
		},
	}

	e := ParseEvent("acct1", "alias", "primary", evt)
	if e.Start.AllDay {
		t.Fatal("expected timed event, not all-day")
	}
	if len(e.Attendees) != 1 || e.Attendees[0].Email != "a@example.com" {
		t.Fatalf("attendees = %+v", e.Attendees)
	}
}

func TestIsTombstoneDetectsCancelled(t *testing.T) {
	if !IsTombstone(&calendar.Event{Status: "cancelled"}) {
		t.Fatal("expected cancelled event to be a tombstone")
	}
	if IsTombstone(&calendar.Event{Status: "confirmed"}) {
		t.Fatal("expected confirmed event to not be a tombstone")
	}
}
