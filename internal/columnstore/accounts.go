package columnstore

import (
	"context"
	"database/sql"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/models"
)

// UpsertAccount inserts or replaces a's row.
func (s *Store) UpsertAccount(ctx context.Context, a *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, alias, display_name, added_at, last_sync_email, last_sync_calendar,
			status, sync_since_floor, oldest_email_synced, oldest_event_synced,
			ingest_attachments, estimated_total_emails
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			alias = excluded.alias,
			display_name = excluded.display_name,
			last_sync_email = excluded.last_sync_email,
			last_sync_calendar = excluded.last_sync_calendar,
			status = excluded.status,
			sync_since_floor = excluded.sync_since_floor,
			oldest_email_synced = excluded.oldest_email_synced,
			oldest_event_synced = excluded.oldest_event_synced,
			ingest_attachments = excluded.ingest_attachments,
			estimated_total_emails = excluded.estimated_total_emails`,
		a.ID, a.Alias, a.Name, a.AddedAt.Unix(), nullableUnix(a.LastSyncEmail), nullableUnix(a.LastSyncCalendar),
		string(a.Status), nullableUnix(a.SyncSinceFloor), nullableUnix(a.OldestEmailSynced), nullableUnix(a.OldestEventSynced),
		a.IngestAttachments, a.EstimatedTotal,
	)
	if err != nil {
		return geerrors.Database(err)
	}
	return nil
}

// GetAccount returns the account with id, or (nil, nil) if not found.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, accountSelectColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, geerrors.Database(err)
	}
	return a, nil
}

// ListAccounts returns every stored account.
func (s *Store) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	rows, err := s.db.QueryContext(ctx, accountSelectColumns+` FROM accounts ORDER BY added_at ASC`)
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	var out []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, geerrors.Database(err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAccount removes accountID's row from accounts only, leaving any
// already-synced emails/events untouched; callers that want a full wipe
// should call DeleteAccountData too.
func (s *Store) DeleteAccount(ctx context.Context, accountID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID); err != nil {
		return geerrors.Database(err)
	}
	return nil
}

// DeleteAccountData removes every email and event belonging to accountID,
// deleting their vector rows explicitly and their FTS entries via the
// AFTER DELETE triggers, returning
// how many of each were removed.
func (s *Store) DeleteAccountData(ctx context.Context, accountID string) (emailsRemoved, eventsRemoved int64, err error) {
	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return 0, 0, geerrors.Database(txErr)
	}
	defer tx.Rollback()

	emailIDs, err := queryIDs(ctx, tx, `SELECT id FROM emails WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, 0, geerrors.Database(err)
	}
	eventIDs, err := queryIDs(ctx, tx, `SELECT id FROM events WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, 0, geerrors.Database(err)
	}

	for _, id := range emailIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM email_vectors WHERE id = ?`, id); err != nil {
			return 0, 0, geerrors.Database(err)
		}
	}
	for _, id := range eventIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_vectors WHERE id = ?`, id); err != nil {
			return 0, 0, geerrors.Database(err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM emails WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, 0, geerrors.Database(err)
	}
	emailsRemoved, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM events WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, 0, geerrors.Database(err)
	}
	eventsRemoved, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, geerrors.Database(err)
	}
	return emailsRemoved, eventsRemoved, nil
}

// ResetEmailSync deletes every email (and its vector row) belonging to
// accountID and clears last_sync_email/oldest_email_synced on the account
// row, so a subsequent sync re-ingests from scratch with the same stable
// ids (spec.md §8 scenario 6). Calendar data is untouched.
func (s *Store) ResetEmailSync(ctx context.Context, accountID string) (emailsRemoved int64, err error) {
	tx, txErr := s.db.BeginTx(ctx, nil)
	if txErr != nil {
		return 0, geerrors.Database(txErr)
	}
	defer tx.Rollback()

	emailIDs, err := queryIDs(ctx, tx, `SELECT id FROM emails WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, geerrors.Database(err)
	}
	for _, id := range emailIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM email_vectors WHERE id = ?`, id); err != nil {
			return 0, geerrors.Database(err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM emails WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, geerrors.Database(err)
	}
	emailsRemoved, _ = res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET last_sync_email = NULL, oldest_email_synced = NULL WHERE id = ?`, accountID); err != nil {
		return 0, geerrors.Database(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, geerrors.Database(err)
	}
	return emailsRemoved, nil
}

func queryIDs(ctx context.Context, tx *sql.Tx, query, arg string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const accountSelectColumns = `SELECT
	id, alias, display_name, added_at, last_sync_email, last_sync_calendar,
	status, sync_since_floor, oldest_email_synced, oldest_event_synced,
	ingest_attachments, estimated_total_emails`

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var alias sql.NullString
	var addedAt int64
	var lastSyncEmail, lastSyncCalendar, syncSinceFloor, oldestEmail, oldestEvent sql.NullInt64
	var status string
	var estimatedTotal sql.NullInt64

	err := row.Scan(
		&a.ID, &alias, &a.Name, &addedAt, &lastSyncEmail, &lastSyncCalendar,
		&status, &syncSinceFloor, &oldestEmail, &oldestEvent,
		&a.IngestAttachments, &estimatedTotal,
	)
	if err != nil {
		return nil, err
	}

	a.Alias = alias.String
	a.AddedAt = unixToTime(addedAt)
	a.Status = models.AccountStatus(status)
	a.LastSyncEmail = unixToTimePtr(lastSyncEmail)
	a.LastSyncCalendar = unixToTimePtr(lastSyncCalendar)
	a.SyncSinceFloor = unixToTimePtr(syncSinceFloor)
	a.OldestEmailSynced = unixToTimePtr(oldestEmail)
	a.OldestEventSynced = unixToTimePtr(oldestEvent)
	a.EstimatedTotal = estimatedTotal.Int64

	return &a, nil
}
