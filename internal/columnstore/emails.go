package columnstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/models"
)

// UpsertEmail writes m's row, FTS, and vector entries inside a single
// transaction. A single upsert is equivalent to "DELETE WHERE id = ?;
// INSERT ..." — the delete is best-effort (a miss doesn't fail the
// upsert), per spec.md §4.4.
func (s *Store) UpsertEmail(ctx context.Context, m *models.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return geerrors.Database(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM emails WHERE id = ?`, m.ID); err != nil {
		return geerrors.Database(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM email_vectors WHERE id = ?`, m.ID); err != nil {
		return geerrors.Database(err)
	}

	refs, _ := json.Marshal(m.References)
	labels, _ := json.Marshal(m.Labels)
	flags, _ := json.Marshal(m.Flags)
	to, _ := json.Marshal(m.To)
	cc, _ := json.Marshal(m.CC)
	bcc, _ := json.Marshal(m.BCC)
	attachments, _ := json.Marshal(m.Attachments)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emails (
			id, account_id, account_alias, message_id, gmail_message_id, gmail_thread_id, uid,
			in_reply_to, "references", folder, labels, flags,
			from_email, from_name, to_addrs, cc_addrs, bcc_addrs, subject, date,
			body_plain, body_html, snippet, attachments, synced_at, raw_size
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.AccountID, m.AccountAlias, m.MessageIDHeader, m.GmailMessageID, m.GmailThreadID, m.UID,
		m.InReplyTo, string(refs), m.Folder, string(labels), string(flags),
		m.From.Email, m.From.Name, string(to), string(cc), string(bcc), m.Subject, m.Date.Unix(),
		m.BodyPlain, m.BodyHTML, m.Snippet, string(attachments), m.SyncedAt.Unix(), m.RawSize,
	)
	if err != nil {
		return geerrors.Database(err)
	}

	if len(m.Embedding) > 0 {
		vecJSON, err := json.Marshal(m.Embedding)
		if err != nil {
			return geerrors.Internal(err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO email_vectors (id, embedding) VALUES (?, ?)`, m.ID, string(vecJSON)); err != nil {
			return geerrors.Database(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return geerrors.Database(err)
	}
	return nil
}

// GetEmail returns the email with id, or (nil, nil) if not found.
func (s *Store) GetEmail(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx, emailSelectColumns+` FROM emails WHERE id = ?`, id)
	m, err := scanEmail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, geerrors.Database(err)
	}
	return m, nil
}

// ListRecent returns up to limit emails, optionally filtered to one
// account, most recent first. Pushing ORDER BY/LIMIT into SQL rather than
// sorting in memory is an equivalent-result improvement over spec.md's
// literal wording, not a semantic change.
func (s *Store) ListRecent(ctx context.Context, accountID *string, limit int) ([]*models.Message, error) {
	query := emailSelectColumns + ` FROM emails`
	var args []any
	if accountID != nil {
		query += ` WHERE account_id = ?`
		args = append(args, *accountID)
	}
	query += ` ORDER BY date DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, geerrors.Database(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetThread returns every email sharing gmailThreadID within accountID,
// oldest first, used by the get_thread tool.
func (s *Store) GetThread(ctx context.Context, accountID string, gmailThreadID uint64) ([]*models.Message, error) {
	query := emailSelectColumns + ` FROM emails WHERE account_id = ? AND gmail_thread_id = ? ORDER BY date ASC`
	rows, err := s.db.QueryContext(ctx, query, accountID, gmailThreadID)
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanEmail(rows)
		if err != nil {
			return nil, geerrors.Database(err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountEmails returns the number of stored emails, optionally scoped to
// one account.
func (s *Store) CountEmails(ctx context.Context, accountID *string) (int64, error) {
	query := `SELECT COUNT(*) FROM emails`
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

const emailSelectColumns = `SELECT
	id, account_id, account_alias, message_id, gmail_message_id, gmail_thread_id, uid,
	in_reply_to, "references", folder, labels, flags,
	from_email, from_name, to_addrs, cc_addrs, bcc_addrs, subject, date,
	body_plain, body_html, snippet, attachments, synced_at, raw_size`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (*models.Message, error) {
	var m models.Message
	var accountAlias, inReplyTo, references, labels, flags sql.NullString
	var fromName, toJSON, ccJSON, bccJSON, bodyHTML, attachmentsJSON sql.NullString
	var dateUnix, syncedUnix int64

	err := row.Scan(
		&m.ID, &m.AccountID, &accountAlias, &m.MessageIDHeader, &m.GmailMessageID, &m.GmailThreadID, &m.UID,
		&inReplyTo, &references, &m.Folder, &labels, &flags,
		&m.From.Email, &fromName, &toJSON, &ccJSON, &bccJSON, &m.Subject, &dateUnix,
		&m.BodyPlain, &bodyHTML, &m.Snippet, &attachmentsJSON, &syncedUnix, &m.RawSize,
	)
	if err != nil {
		return nil, err
	}

	m.AccountAlias = accountAlias.String
	m.InReplyTo = inReplyTo.String
	m.From.Name = fromName.String
	m.BodyHTML = bodyHTML.String
	m.Date = unixToTime(dateUnix)
	m.SyncedAt = unixToTime(syncedUnix)

	_ = json.Unmarshal([]byte(references.String), &m.References)
	_ = json.Unmarshal([]byte(labels.String), &m.Labels)
	_ = json.Unmarshal([]byte(flags.String), &m.Flags)
	_ = json.Unmarshal([]byte(toJSON.String), &m.To)
	_ = json.Unmarshal([]byte(ccJSON.String), &m.CC)
	_ = json.Unmarshal([]byte(bccJSON.String), &m.BCC)
	_ = json.Unmarshal([]byte(attachmentsJSON.String), &m.Attachments)

	return &m, nil
}
