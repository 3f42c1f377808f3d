// Package tokenstore is the pluggable OAuth token storage layer: a local
// encrypted file backend, a remote encrypted Postgres backend, and a
// Fernet-compatible backend for interoperability with an existing
// Python-side store, all behind one TokenStore interface.
package tokenstore

import (
	"context"

	"github.com/jamiequint/groundeffect/internal/config"
	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/models"
)

// TokenStore is the Go analogue of the Rust TokenProvider trait: a
// thread-safe token storage backend used across the daemon's background
// sync loops.
type TokenStore interface {
	Get(ctx context.Context, accountID string) (*models.TokenBundle, error)
	Put(ctx context.Context, accountID string, t *models.TokenBundle) error
	Delete(ctx context.Context, accountID string) error
	UpdateAccessToken(ctx context.Context, accountID, accessToken string, expiresAt int64) error
	HasTokens(ctx context.Context, accountID string) (bool, error)
	ListAccounts(ctx context.Context) ([]string, error)
}

// updateAccessTokenDefault implements TokenStore.UpdateAccessToken in terms
// of Get+Put, mirroring the Rust trait's default method, for backends that
// don't have a cheaper partial-update path.
func updateAccessTokenDefault(ctx context.Context, s TokenStore, accountID, accessToken string, expiresAt int64) error {
	tok, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if tok == nil {
		return geerrors.Internal(errNoExistingTokens(accountID))
	}
	tok.AccessToken = accessToken
	tok.ExpiresAt = expiresAt
	return s.Put(ctx, accountID, tok)
}

type noExistingTokensError struct{ accountID string }

func (e *noExistingTokensError) Error() string {
	return "no existing tokens to update for " + e.accountID
}

func errNoExistingTokens(accountID string) error {
	return &noExistingTokensError{accountID: accountID}
}

// New constructs a TokenStore from configuration, switching on
// cfg.Backend, mirroring original_source's create_token_provider factory.
func New(cfg config.TokenStoreConfig, dataDir string) (TokenStore, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(dataDir, cfg.EncryptionSecret)
	case "postgres":
		if cfg.DSN == "" {
			return nil, geerrors.Config("token_store.dsn is required for the postgres backend")
		}
		if cfg.EncryptionSecret == "" {
			return nil, geerrors.Config("token_store.encryption_secret is required for the postgres backend")
		}
		return NewPostgresStore(cfg.DSN, cfg.EncryptionSecret, "")
	case "fernet":
		if cfg.EncryptionSecret == "" {
			return nil, geerrors.Config("token_store.encryption_secret is required for the fernet backend")
		}
		return NewFernetStore(dataDir, cfg.EncryptionSecret)
	default:
		return nil, geerrors.Config("unknown token_store.backend: " + cfg.Backend)
	}
}
