package tokenstore

import (
	"context"
	"sync"

	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
)

// cachedStore wraps a backing TokenStore with an in-memory cache, ported
// from original_source's keychain.rs TOKEN_CACHE: Get is cache-first with
// backing-store fallback and cache population on miss; Put always updates
// the cache but only writes through to the backing store when the refresh
// token actually changed, to minimize backend round-trips (keychain
// prompts, in the original; Postgres/file writes, here).
type cachedStore struct {
	mu      sync.RWMutex
	cache   map[string]*models.TokenBundle
	backing backend
}

// backend is the subset of TokenStore a cachedStore wraps; kept separate
// from the public TokenStore interface so file/postgres/fernet backends
// implement just the raw storage operations and get caching for free.
type backend interface {
	rawGet(ctx context.Context, accountID string) (*models.TokenBundle, error)
	rawPut(ctx context.Context, accountID string, t *models.TokenBundle) error
	rawDelete(ctx context.Context, accountID string) error
	rawListAccounts(ctx context.Context) ([]string, error)
}

func newCachedStore(b backend) *cachedStore {
	return &cachedStore{cache: make(map[string]*models.TokenBundle), backing: b}
}

func (c *cachedStore) Get(ctx context.Context, accountID string) (*models.TokenBundle, error) {
	c.mu.RLock()
	if tok, ok := c.cache[accountID]; ok {
		c.mu.RUnlock()
		logger.Debug("token cache hit", "account", accountID)
		cp := *tok
		return &cp, nil
	}
	c.mu.RUnlock()

	tok, err := c.backing.rawGet(ctx, accountID)
	if err != nil || tok == nil {
		return tok, err
	}

	c.mu.Lock()
	c.cache[accountID] = tok
	c.mu.Unlock()
	return tok, nil
}

func (c *cachedStore) Put(ctx context.Context, accountID string, t *models.TokenBundle) error {
	c.mu.Lock()
	cached, ok := c.cache[accountID]
	needsWrite := !ok || cached.RefreshToken != t.RefreshToken
	c.cache[accountID] = t
	c.mu.Unlock()

	if !needsWrite {
		logger.Debug("token stored (cache only, refresh token unchanged)", "account", accountID)
		return nil
	}
	logger.Debug("token stored (backing store updated)", "account", accountID)
	return c.backing.rawPut(ctx, accountID, t)
}

func (c *cachedStore) Delete(ctx context.Context, accountID string) error {
	c.mu.Lock()
	delete(c.cache, accountID)
	c.mu.Unlock()
	return c.backing.rawDelete(ctx, accountID)
}

func (c *cachedStore) UpdateAccessToken(ctx context.Context, accountID, accessToken string, expiresAt int64) error {
	return updateAccessTokenDefault(ctx, c, accountID, accessToken, expiresAt)
}

func (c *cachedStore) HasTokens(ctx context.Context, accountID string) (bool, error) {
	tok, err := c.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	return tok != nil, nil
}

func (c *cachedStore) ListAccounts(ctx context.Context) ([]string, error) {
	return c.backing.rawListAccounts(ctx)
}
