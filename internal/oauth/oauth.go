// Package oauth is the OAuth 2.0 authorization-code coordinator for Google
// accounts: authorization URL construction, code exchange, refresh, and
// the raw XOAUTH2 SASL string format (the IMAP sync worker authenticates
// through go-sasl's XOAUTH2 client instead).
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/tokenstore"
)

// Scopes is the fixed scope set every groundeffect account authorizes:
// full Gmail IMAP access, send, full Calendar access, and basic profile.
var Scopes = []string{
	"https://mail.google.com/",
	"https://www.googleapis.com/auth/gmail.send",
	"https://www.googleapis.com/auth/calendar",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ClientConfig holds the OAuth client credentials for the daemon process,
// loaded once at startup.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string // default "http://127.0.0.1:8085/oauth/callback"
}

// LoadClientConfig resolves OAuth client credentials the same way
// original_source's oauth.rs does: GROUNDEFFECT_CLIENT_ID/SECRET first (plus
// legacy alias names), falling back to shell-style exports in ~/.secrets.
func LoadClientConfig() ClientConfig {
	cfg := ClientConfig{RedirectURI: "http://127.0.0.1:8085/oauth/callback"}

	for _, name := range []string{"GROUNDEFFECT_CLIENT_ID", "GROUNDEFFECT_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID"} {
		if v := os.Getenv(name); v != "" {
			cfg.ClientID = v
			break
		}
	}
	for _, name := range []string{"GROUNDEFFECT_CLIENT_SECRET", "GROUNDEFFECT_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"} {
		if v := os.Getenv(name); v != "" {
			cfg.ClientSecret = v
			break
		}
	}
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		return cfg
	}

	if home, err := os.UserHomeDir(); err == nil {
		if data, err := os.ReadFile(filepath.Join(home, ".secrets")); err == nil {
			id, secret := parseSecretsFile(string(data))
			if id != "" {
				cfg.ClientID = id
			}
			if secret != "" {
				cfg.ClientSecret = secret
			}
		}
	}
	return cfg
}

func parseSecretsFile(contents string) (clientID, clientSecret string) {
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "export ")
		if !ok {
			continue
		}
		key, value, ok := strings.Cut(rest, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		switch key {
		case "GROUNDEFFECT_CLIENT_ID", "GROUNDEFFECT_GOOGLE_CLIENT_ID":
			clientID = value
		case "GROUNDEFFECT_CLIENT_SECRET", "GROUNDEFFECT_GOOGLE_CLIENT_SECRET":
			clientSecret = value
		}
	}
	return clientID, clientSecret
}

// UserInfo is the subset of Google's userinfo response groundeffect needs
// to identify the authenticated account.
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// Coordinator wraps a TokenStore and the oauth2 client, handling the
// authorization-code flow and refresh-on-use for every configured account.
type Coordinator struct {
	cfg    ClientConfig
	store  tokenstore.TokenStore
	oauth2 *oauth2.Config
	http   *http.Client
}

// New builds a Coordinator from client credentials and a token store.
func New(cfg ClientConfig, store tokenstore.TokenStore) *Coordinator {
	return &Coordinator{
		cfg:   cfg,
		store: store,
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       Scopes,
		},
		http: http.DefaultClient,
	}
}

// AuthorizationURL builds the Google consent-screen URL for state, always
// requesting offline access and forcing the consent prompt so a refresh
// token is returned even on re-authorization.
func (c *Coordinator) AuthorizationURL(state string) string {
	return c.oauth2.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// ExchangeCode exchanges an authorization code for tokens and fetches the
// account's user info. Returns an error if Google does not return a
// refresh token (first-time consent only).
func (c *Coordinator) ExchangeCode(ctx context.Context, code string) (*models.TokenBundle, *UserInfo, error) {
	logger.Info("exchanging authorization code for tokens")
	tok, err := c.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, nil, geerrors.Network(err)
	}
	if tok.RefreshToken == "" {
		return nil, nil, geerrors.Internal(errNoRefreshToken{})
	}

	bundle := &models.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
		Scopes:       Scopes,
	}

	info, err := c.fetchUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("authenticated", "email", info.Email)
	return bundle, info, nil
}

func (c *Coordinator) fetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return nil, geerrors.Internal(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, geerrors.Network(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, geerrors.Network(fmt.Errorf("userinfo request failed: %d - %s", resp.StatusCode, body))
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, geerrors.Internal(err)
	}
	return &info, nil
}

// SaveTokens persists bundle for accountID, used by add_account after
// ExchangeCode succeeds (the exchange itself is side-effect-free so callers
// can validate the userinfo response before committing anything).
func (c *Coordinator) SaveTokens(ctx context.Context, accountID string, bundle *models.TokenBundle) error {
	return c.store.Put(ctx, accountID, bundle)
}

// Refresh exchanges the account's stored refresh token for a new access
// token, keeping the old refresh token if Google doesn't reissue one, and
// persists the result exactly once on success.
func (c *Coordinator) Refresh(ctx context.Context, accountID string) (*models.TokenBundle, error) {
	current, err := c.store.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, geerrors.TokenExpired(accountID)
	}

	src := c.oauth2.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, geerrors.TokenRefreshFailed(accountID, err.Error())
	}

	refreshToken := current.RefreshToken
	if tok.RefreshToken != "" {
		refreshToken = tok.RefreshToken
	}
	updated := &models.TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    tok.Expiry.Unix(),
		Scopes:       current.Scopes,
	}

	if err := c.store.Put(ctx, accountID, updated); err != nil {
		return nil, err
	}
	logger.Info("refreshed access token", "account", accountID)
	return updated, nil
}

// GetValidToken returns a usable access token for accountID, refreshing
// synchronously when the cached token is expiring. Concurrent callers may
// race into redundant refreshes; spec.md permits this rather than adding
// cross-process coordination for a single-user daemon.
func (c *Coordinator) GetValidToken(ctx context.Context, accountID string) (string, error) {
	tok, err := c.store.Get(ctx, accountID)
	if err != nil {
		return "", err
	}
	if tok == nil {
		return "", geerrors.TokenExpired(accountID)
	}
	if !tok.IsExpiring(time.Now()) {
		return tok.AccessToken, nil
	}

	refreshed, err := c.Refresh(ctx, accountID)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// GenerateXOAUTH2 builds the raw (not base64-encoded) XOAUTH2 SASL
// initial-response string; the IMAP client layer base64-encodes it.
func GenerateXOAUTH2(email, accessToken string) string {
	return "user=" + email + "\x01auth=Bearer " + accessToken + "\x01\x01"
}

type errNoRefreshToken struct{}

func (errNoRefreshToken) Error() string { return "no refresh token in token exchange response" }
