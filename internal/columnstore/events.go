package columnstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/models"
)

// stableEventID computes the content-derived id events are keyed by so that
// repeated syncs of the same (account, google event) upsert in place instead
// of accumulating duplicate rows — the calendar-side equivalent of
// models.StableMessageID.
func stableEventID(accountID, googleEventID string) string {
	return accountID + ":" + googleEventID
}

// UpsertEvents writes each event's row, FTS, and vector entries inside a
// single transaction, per spec.md §4.4. Each event's id is recomputed from
// (AccountID, GoogleEventID) so repeated syncs of the same remote event
// replace the same row rather than duplicating it.
func (s *Store) UpsertEvents(ctx context.Context, events []*models.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return geerrors.Database(err)
	}
	defer tx.Rollback()

	for _, e := range events {
		e.ID = stableEventID(e.AccountID, e.GoogleEventID)

		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, e.ID); err != nil {
			return geerrors.Database(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_vectors WHERE id = ?`, e.ID); err != nil {
			return geerrors.Database(err)
		}

		attendees, _ := json.Marshal(e.Attendees)
		reminders, _ := json.Marshal(e.Reminders)
		var organizer string
		if e.Organizer != nil {
			b, _ := json.Marshal(e.Organizer)
			organizer = string(b)
		}

		startAt := e.Start.AsDate().Unix()
		endAt := e.End.AsDate().Unix()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (
				id, account_id, account_alias, google_event_id, ical_uid, etag,
				summary, description, location, start_at, end_at, timezone, all_day,
				recurrence_rule, recurrence_id, organizer, attendees, status,
				transparency, reminders, calendar_id, synced_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.AccountID, e.AccountAlias, e.GoogleEventID, e.ICalUID, e.Etag,
			e.Summary, e.Description, e.Location, startAt, endAt, e.Timezone, e.AllDay,
			e.RecurrenceRule, e.RecurrenceID, organizer, string(attendees), string(e.Status),
			string(e.Transparency), string(reminders), e.CalendarID, e.SyncedAt.Unix(),
		)
		if err != nil {
			return geerrors.Database(err)
		}

		if len(e.Embedding) > 0 {
			vecJSON, err := json.Marshal(e.Embedding)
			if err != nil {
				return geerrors.Internal(err)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO event_vectors (id, embedding) VALUES (?, ?)`, e.ID, string(vecJSON)); err != nil {
				return geerrors.Database(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return geerrors.Database(err)
	}
	return nil
}

// DeleteEvent removes the event identified by (accountID, googleEventID)
// and its vector row, used to propagate Calendar API tombstones
// (cancelled/deleted events) into the store.
func (s *Store) DeleteEvent(ctx context.Context, accountID, googleEventID string) error {
	id := stableEventID(accountID, googleEventID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return geerrors.Database(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return geerrors.Database(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_vectors WHERE id = ?`, id); err != nil {
		return geerrors.Database(err)
	}
	if err := tx.Commit(); err != nil {
		return geerrors.Database(err)
	}
	return nil
}

// GetEvent returns the event with id, or (nil, nil) if not found.
func (s *Store) GetEvent(ctx context.Context, id string) (*models.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, eventSelectColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, geerrors.Database(err)
	}
	return e, nil
}

// CountEvents returns the number of stored events, optionally scoped to one
// account.
func (s *Store) CountEvents(ctx context.Context, accountID *string) (int64, error) {
	query := `SELECT COUNT(*) FROM events`
	var args []any
	if accountID != nil {
		query += ` WHERE account_id = ?`
		args = append(args, *accountID)
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, geerrors.Database(err)
	}
	return count, nil
}

// GetEventEtags returns a map of google_event_id -> etag for every event
// stored for accountID. The calendar sync does not consult it: every
// fetched event is re-embedded and upserted whether or not its etag changed.
func (s *Store) GetEventEtags(ctx context.Context, accountID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT google_event_id, etag FROM events WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	etags := make(map[string]string)
	for rows.Next() {
		var googleEventID, etag string
		if err := rows.Scan(&googleEventID, &etag); err != nil {
			return nil, geerrors.Database(err)
		}
		etags[googleEventID] = etag
	}
	return etags, rows.Err()
}

const eventSelectColumns = `SELECT
	id, account_id, account_alias, google_event_id, ical_uid, etag,
	summary, description, location, start_at, end_at, timezone, all_day,
	recurrence_rule, recurrence_id, organizer, attendees, status,
	transparency, reminders, calendar_id, synced_at`

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	var e models.CalendarEvent
	var accountAlias, description, location, recurrenceRule, recurrenceID sql.NullString
	var organizerJSON, attendeesJSON, remindersJSON sql.NullString
	var status, transparency string
	var startAt, endAt, syncedAt int64
	var allDay bool

	err := row.Scan(
		&e.ID, &e.AccountID, &accountAlias, &e.GoogleEventID, &e.ICalUID, &e.Etag,
		&e.Summary, &description, &location, &startAt, &endAt, &e.Timezone, &allDay,
		&recurrenceRule, &recurrenceID, &organizerJSON, &attendeesJSON, &status,
		&transparency, &remindersJSON, &e.CalendarID, &syncedAt,
	)
	if err != nil {
		return nil, err
	}

	e.AccountAlias = accountAlias.String
	e.Description = description.String
	e.Location = location.String
	e.RecurrenceRule = recurrenceRule.String
	e.RecurrenceID = recurrenceID.String
	e.Status = models.EventStatus(status)
	e.Transparency = models.Transparency(transparency)
	e.AllDay = allDay
	e.SyncedAt = unixToTime(syncedAt)

	if allDay {
		e.Start = models.EventTime{AllDay: true, Date: unixToTime(startAt)}
		e.End = models.EventTime{AllDay: true, Date: unixToTime(endAt)}
	} else {
		e.Start = models.EventTime{DateTime: unixToTime(startAt)}
		e.End = models.EventTime{DateTime: unixToTime(endAt)}
	}

	if organizerJSON.String != "" {
		var o models.Attendee
		if err := json.Unmarshal([]byte(organizerJSON.String), &o); err == nil {
			e.Organizer = &o
		}
	}
	_ = json.Unmarshal([]byte(attendeesJSON.String), &e.Attendees)
	_ = json.Unmarshal([]byte(remindersJSON.String), &e.Reminders)

	return &e, nil
}
