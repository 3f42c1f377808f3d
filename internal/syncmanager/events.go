// Package syncmanager orchestrates per-account sync state, the IMAP/
// Calendar workers, and the event bus that downstream consumers (the
// sync-progress writer, reactive incremental-sync triggers) drain,
// grounded on original_source's sync/mod.rs SyncManager.
package syncmanager

import "time"

// EventKind tags a SyncEvent's variant, mirroring spec.md §4.9's
// SyncEvent enum (Rust uses a tagged union; Go models it as one struct
// with a Kind discriminant rather than an interface, since every
// consumer switches on Kind anyway).
type EventKind string

const (
	EventNewEmail      EventKind = "new_email"
	EventEmailUpdated  EventKind = "email_updated"
	EventEmailDeleted  EventKind = "email_deleted"
	EventNewEvent      EventKind = "new_event"
	EventEventUpdated  EventKind = "event_updated"
	EventEventDeleted  EventKind = "event_deleted"
	EventSyncStarted   EventKind = "sync_started"
	EventSyncCompleted EventKind = "sync_completed"
	EventSyncError     EventKind = "sync_error"
	EventAuthRequired  EventKind = "auth_required"
)

// SyncKind distinguishes which subsystem a sync pass covers.
type SyncKind string

const (
	SyncKindEmail    SyncKind = "email"
	SyncKindCalendar SyncKind = "calendar"
)

// SyncEvent is one entry on the event bus.
type SyncEvent struct {
	Kind      EventKind
	AccountID string
	At        time.Time

	// Populated per Kind:
	EmailID   string   // NewEmail/EmailUpdated/EmailDeleted
	EventID   string   // NewEvent/EventUpdated/EventDeleted
	SyncKind  SyncKind // SyncStarted/SyncCompleted
	Count     int      // SyncCompleted
	ErrorText string   // SyncError
}
