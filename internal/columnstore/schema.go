package columnstore

import (
	"context"
	"fmt"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// EnsureSchema creates every table, FTS5 virtual table, sync trigger, and
// vec0 virtual table if not already present — called unconditionally from
// Open, the same way the teacher's internal/db.New() calls migrate()
// unconditionally.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			alias TEXT,
			display_name TEXT NOT NULL,
			added_at INTEGER NOT NULL,
			last_sync_email INTEGER,
			last_sync_calendar INTEGER,
			status TEXT NOT NULL,
			sync_since_floor INTEGER,
			oldest_email_synced INTEGER,
			oldest_event_synced INTEGER,
			ingest_attachments INTEGER NOT NULL DEFAULT 0,
			estimated_total_emails INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS emails (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			account_alias TEXT,
			message_id TEXT NOT NULL,
			gmail_message_id INTEGER NOT NULL,
			gmail_thread_id INTEGER NOT NULL,
			uid INTEGER NOT NULL,
			in_reply_to TEXT,
			"references" TEXT,
			folder TEXT NOT NULL,
			labels TEXT,
			flags TEXT,
			from_email TEXT NOT NULL,
			from_name TEXT,
			to_addrs TEXT,
			cc_addrs TEXT,
			bcc_addrs TEXT,
			subject TEXT NOT NULL,
			date INTEGER NOT NULL,
			body_plain TEXT NOT NULL,
			body_html TEXT,
			snippet TEXT NOT NULL,
			attachments TEXT,
			synced_at INTEGER NOT NULL,
			raw_size INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_account ON emails(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_date ON emails(date)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_thread ON emails(gmail_thread_id)`,

		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL,
			account_alias TEXT,
			google_event_id TEXT NOT NULL,
			ical_uid TEXT NOT NULL,
			etag TEXT NOT NULL,
			summary TEXT NOT NULL,
			description TEXT,
			location TEXT,
			start_at INTEGER NOT NULL,
			end_at INTEGER NOT NULL,
			timezone TEXT NOT NULL,
			all_day INTEGER NOT NULL,
			recurrence_rule TEXT,
			recurrence_id TEXT,
			organizer TEXT,
			attendees TEXT,
			status TEXT NOT NULL,
			transparency TEXT NOT NULL,
			reminders TEXT,
			calendar_id TEXT NOT NULL,
			synced_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_account ON events(account_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_events_google_id ON events(account_id, google_event_id)`,

		// BM25 surfaces, grounded on the teacher's files_fts pattern.
		`CREATE VIRTUAL TABLE IF NOT EXISTS emails_fts USING fts5(
			id UNINDEXED, subject, body_plain
		)`,
		`CREATE TRIGGER IF NOT EXISTS emails_fts_insert AFTER INSERT ON emails BEGIN
			INSERT INTO emails_fts(rowid, id, subject, body_plain)
			VALUES (new.rowid, new.id, new.subject, new.body_plain);
		END`,
		`CREATE TRIGGER IF NOT EXISTS emails_fts_delete AFTER DELETE ON emails BEGIN
			INSERT INTO emails_fts(emails_fts, rowid, id, subject, body_plain)
			VALUES ('delete', old.rowid, old.id, old.subject, old.body_plain);
		END`,
		`CREATE TRIGGER IF NOT EXISTS emails_fts_update AFTER UPDATE ON emails BEGIN
			INSERT INTO emails_fts(emails_fts, rowid, id, subject, body_plain)
			VALUES ('delete', old.rowid, old.id, old.subject, old.body_plain);
			INSERT INTO emails_fts(rowid, id, subject, body_plain)
			VALUES (new.rowid, new.id, new.subject, new.body_plain);
		END`,

		`CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
			id UNINDEXED, summary, description
		)`,
		`CREATE TRIGGER IF NOT EXISTS events_fts_insert AFTER INSERT ON events BEGIN
			INSERT INTO events_fts(rowid, id, summary, description)
			VALUES (new.rowid, new.id, new.summary, new.description);
		END`,
		`CREATE TRIGGER IF NOT EXISTS events_fts_delete AFTER DELETE ON events BEGIN
			INSERT INTO events_fts(events_fts, rowid, id, summary, description)
			VALUES ('delete', old.rowid, old.id, old.summary, old.description);
		END`,
		`CREATE TRIGGER IF NOT EXISTS events_fts_update AFTER UPDATE ON events BEGIN
			INSERT INTO events_fts(events_fts, rowid, id, summary, description)
			VALUES ('delete', old.rowid, old.id, old.summary, old.description);
			INSERT INTO events_fts(rowid, id, summary, description)
			VALUES (new.rowid, new.id, new.summary, new.description);
		END`,

		// Vector ANN surfaces, grounded on the teacher's file_embeddings
		// vec0 table, generalized to TEXT primary keys (stable content ids
		// rather than integer row ids).
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS email_vectors USING vec0(
			id TEXT PRIMARY KEY,
			embedding FLOAT[%d]
		)`, EmbeddingDimension),
		fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS event_vectors USING vec0(
			id TEXT PRIMARY KEY,
			embedding FLOAT[%d]
		)`, EmbeddingDimension),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return geerrors.Database(fmt.Errorf("schema statement failed: %w\n%s", err, stmt))
		}
	}
	return nil
}
