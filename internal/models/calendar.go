package models

import (
	"fmt"
	"strings"
	"time"
)

// EventTime is either a specific UTC datetime or an all-day date.
type EventTime struct {
	DateTime time.Time // valid when !AllDay
	Date     time.Time // valid when AllDay (truncated to the day)
	AllDay   bool
}

// AsDate returns the date component regardless of which variant is set.
func (t EventTime) AsDate() time.Time {
	if t.AllDay {
		return t.Date
	}
	return t.DateTime
}

// EventStatus mirrors the Google Calendar status enum.
type EventStatus string

const (
	EventConfirmed EventStatus = "confirmed"
	EventTentative EventStatus = "tentative"
	EventCancelled EventStatus = "cancelled"
)

// Transparency is the free/busy transparency of an event.
type Transparency string

const (
	TransparencyOpaque      Transparency = "opaque" // blocks time (busy)
	TransparencyTransparent Transparency = "transparent"
)

// AttendeeStatus is an attendee's RSVP status.
type AttendeeStatus string

const (
	AttendeeNeedsAction AttendeeStatus = "needsAction"
	AttendeeDeclined    AttendeeStatus = "declined"
	AttendeeTentative   AttendeeStatus = "tentative"
	AttendeeAccepted    AttendeeStatus = "accepted"
)

// Attendee is one participant on a calendar event.
type Attendee struct {
	Email          string
	Name           string
	ResponseStatus AttendeeStatus // empty when not reported
	Optional       bool
}

// ReminderMethod is the delivery channel for a reminder.
type ReminderMethod string

const (
	ReminderPopup ReminderMethod = "popup"
	ReminderEmail ReminderMethod = "email"
)

// Reminder is one override reminder on an event.
type Reminder struct {
	Method  ReminderMethod
	Minutes int32
}

// CalendarEvent is one event from a remote calendar.
//
// Primary key: "{AccountID}:{GoogleEventID}", recomputed by the store on
// every upsert, so a re-synced event keeps the same row id (ids are not
// regenerated per sync); deduplication across syncs is by (AccountID,
// GoogleEventID).
type CalendarEvent struct {
	ID           string
	AccountID    string
	AccountAlias string

	GoogleEventID string
	ICalUID       string
	Etag          string

	Summary     string
	Description string
	Location    string

	Start    EventTime
	End      EventTime
	Timezone string
	AllDay   bool

	RecurrenceRule string
	RecurrenceID   string

	Organizer *Attendee
	Attendees []Attendee

	Status       EventStatus
	Transparency Transparency
	Reminders    []Reminder

	Embedding []float32

	CalendarID string
	SyncedAt   time.Time
}

// SearchableText builds the canonical text used to compute e's embedding.
func (e *CalendarEvent) SearchableText() string {
	var b strings.Builder
	b.WriteString(e.Summary)
	b.WriteString(". ")
	b.WriteString(e.Summary)
	b.WriteString(". ")
	if e.Description != "" {
		b.WriteString(e.Description)
		b.WriteString(". ")
	}
	if e.Location != "" {
		b.WriteString("Location: ")
		b.WriteString(e.Location)
		b.WriteString(". ")
	}
	if len(e.Attendees) > 0 {
		b.WriteString("Attendees: ")
		for _, a := range e.Attendees {
			if a.Name != "" {
				b.WriteString(a.Name)
			} else {
				b.WriteString(a.Email)
			}
			b.WriteString(", ")
		}
	}
	return b.String()
}

// MarkdownSummary renders a short markdown summary for LLM consumption.
func (e *CalendarEvent) MarkdownSummary() string {
	accountDisplay := e.AccountID
	if e.AccountAlias != "" {
		accountDisplay = fmt.Sprintf("%s (%s)", e.AccountID, e.AccountAlias)
	}

	var timeStr string
	switch {
	case e.Start.AllDay && e.End.AllDay && e.Start.Date.Equal(e.End.Date):
		timeStr = fmt.Sprintf("%s (all day)", e.Start.Date.Format("Jan 02, 2006"))
	case e.Start.AllDay && e.End.AllDay:
		timeStr = fmt.Sprintf("%s - %s (all day)", e.Start.Date.Format("Jan 02, 2006"), e.End.Date.Format("Jan 02, 2006"))
	case !e.Start.AllDay && !e.End.AllDay:
		if sameDate(e.Start.DateTime, e.End.DateTime) {
			timeStr = fmt.Sprintf("%s %s - %s", e.Start.DateTime.Format("Jan 02, 2006"), e.Start.DateTime.Format("03:04 PM"), e.End.DateTime.Format("03:04 PM"))
		} else {
			timeStr = fmt.Sprintf("%s - %s", e.Start.DateTime.Format("Jan 02, 2006 03:04 PM"), e.End.DateTime.Format("Jan 02, 2006 03:04 PM"))
		}
	default:
		timeStr = "Time TBD"
	}

	summary := fmt.Sprintf("**Account:** %s\n**Event:** %s\n**When:** %s", accountDisplay, e.Summary, timeStr)
	if e.Location != "" {
		summary += fmt.Sprintf("\n**Where:** %s", e.Location)
	}
	if e.Description != "" {
		desc := e.Description
		runes := []rune(desc)
		if len(runes) > 200 {
			desc = string(runes[:200]) + "..."
		}
		summary += "\n\n" + desc
	}
	return summary
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Calendar is a container for events, belonging to one account.
type Calendar struct {
	ID          string
	AccountID   string
	Name        string
	Description string
	Primary     bool
	Color       string
	Timezone    string
}
