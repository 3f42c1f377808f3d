package tokenstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
)

const defaultTableName = "groundeffect_tokens"

// postgresBackend is a byte-for-byte port of original_source's
// PostgresTokenProvider: tokens are JSON-marshalled, AES-256-GCM encrypted,
// and stored in a single table. NewPostgresStore runs in single-tenant mode
// (PK=email) and ensureTable creates only that layout. The user_id-scoped
// queries used after WithUserID expect an existing table with a user_id
// column and a unique (user_id, email) key, which this package does not
// create.
type postgresBackend struct {
	db        *sql.DB
	crypter   *crypter
	tableName string
	userID    string // empty in single-tenant mode
}

// NewPostgresStore connects to Postgres, ensures the tokens table exists,
// and returns a cached TokenStore backed by it.
func NewPostgresStore(dsn, encryptionSecret, tableName string) (TokenStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, geerrors.Config("failed to connect to database: " + err.Error())
	}
	db.SetMaxOpenConns(5)

	c, err := newCrypter(encryptionSecret)
	if err != nil {
		return nil, err
	}
	if tableName == "" {
		tableName = defaultTableName
	}

	pb := &postgresBackend{db: db, crypter: c, tableName: tableName}
	if err := pb.ensureTable(context.Background()); err != nil {
		return nil, err
	}
	logger.Info("postgres token provider initialized", "table", tableName)
	return newCachedStore(pb), nil
}

// WithUserID scopes every subsequent query to a single tenant, for
// multi-tenant deployments sharing one table across users.
func (p *postgresBackend) WithUserID(userID string) *postgresBackend {
	p.userID = userID
	return p
}

func (p *postgresBackend) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			email VARCHAR(255) PRIMARY KEY,
			encrypted_tokens BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, p.tableName)
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return geerrors.Config("failed to create tokens table: " + err.Error())
	}
	return nil
}

func (p *postgresBackend) rawGet(ctx context.Context, accountID string) (*models.TokenBundle, error) {
	var encrypted []byte
	var err error
	if p.userID != "" {
		query := fmt.Sprintf("SELECT encrypted_tokens FROM %s WHERE user_id = $1 AND email = $2", p.tableName)
		err = p.db.QueryRowContext(ctx, query, p.userID, accountID).Scan(&encrypted)
	} else {
		query := fmt.Sprintf("SELECT encrypted_tokens FROM %s WHERE email = $1", p.tableName)
		err = p.db.QueryRowContext(ctx, query, accountID).Scan(&encrypted)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, geerrors.Database(err)
	}

	plaintext, err := p.crypter.decrypt(encrypted)
	if err != nil {
		return nil, err
	}
	var tok models.TokenBundle
	if err := json.Unmarshal(plaintext, &tok); err != nil {
		return nil, geerrors.Internal(err)
	}
	return &tok, nil
}

func (p *postgresBackend) rawPut(ctx context.Context, accountID string, t *models.TokenBundle) error {
	plaintext, err := json.Marshal(t)
	if err != nil {
		return geerrors.Internal(err)
	}
	encrypted, err := p.crypter.encrypt(plaintext)
	if err != nil {
		return err
	}

	if p.userID != "" {
		query := fmt.Sprintf(`
			INSERT INTO %s (user_id, email, encrypted_tokens, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (user_id, email) DO UPDATE SET
				encrypted_tokens = EXCLUDED.encrypted_tokens,
				updated_at = NOW()`, p.tableName)
		_, err = p.db.ExecContext(ctx, query, p.userID, accountID, encrypted)
	} else {
		query := fmt.Sprintf(`
			INSERT INTO %s (email, encrypted_tokens, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (email) DO UPDATE SET
				encrypted_tokens = EXCLUDED.encrypted_tokens,
				updated_at = NOW()`, p.tableName)
		_, err = p.db.ExecContext(ctx, query, accountID, encrypted)
	}
	if err != nil {
		return geerrors.Database(err)
	}
	return nil
}

func (p *postgresBackend) rawDelete(ctx context.Context, accountID string) error {
	var err error
	if p.userID != "" {
		query := fmt.Sprintf("DELETE FROM %s WHERE user_id = $1 AND email = $2", p.tableName)
		_, err = p.db.ExecContext(ctx, query, p.userID, accountID)
	} else {
		query := fmt.Sprintf("DELETE FROM %s WHERE email = $1", p.tableName)
		_, err = p.db.ExecContext(ctx, query, accountID)
	}
	if err != nil {
		return geerrors.Database(err)
	}
	return nil
}

func (p *postgresBackend) rawListAccounts(ctx context.Context) ([]string, error) {
	var rows *sql.Rows
	var err error
	if p.userID != "" {
		query := fmt.Sprintf("SELECT email FROM %s WHERE user_id = $1", p.tableName)
		rows, err = p.db.QueryContext(ctx, query, p.userID)
	} else {
		query := fmt.Sprintf("SELECT email FROM %s", p.tableName)
		rows, err = p.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, geerrors.Database(err)
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, geerrors.Database(err)
		}
		accounts = append(accounts, email)
	}
	return accounts, rows.Err()
}
