package tokenstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/fernet/fernet-go"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/models"
)

// fernetBackend stores one Fernet-encrypted blob per account, for
// interoperability with an existing Python-side token store that already
// speaks the Fernet wire format (cryptography.fernet), per spec.md §4.2.
type fernetBackend struct {
	dir string
	key *fernet.Key
}

// NewFernetStore builds a cached TokenStore backed by Fernet-encrypted
// files on the local filesystem. secret must be a URL-safe base64-encoded
// 32-byte Fernet key, matching whatever the Python side was configured with.
func NewFernetStore(dataDir, secret string) (TokenStore, error) {
	key, err := fernet.DecodeKey(secret)
	if err != nil {
		return nil, geerrors.Config("invalid fernet key: " + err.Error())
	}
	dir := filepath.Join(dataDir, "tokens-fernet")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, geerrors.Config("failed to create token directory: " + err.Error())
	}
	return newCachedStore(&fernetBackend{dir: dir, key: key}), nil
}

func (f *fernetBackend) path(accountID string) string {
	return filepath.Join(f.dir, sanitizeAccountID(accountID)+".fernet")
}

func (f *fernetBackend) rawGet(_ context.Context, accountID string) (*models.TokenBundle, error) {
	data, err := os.ReadFile(f.path(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, geerrors.Internal(err)
	}
	plaintext := fernet.VerifyAndDecrypt(data, 0, []*fernet.Key{f.key})
	if plaintext == nil {
		return nil, geerrors.Internal(errFernetDecrypt{})
	}
	var tok models.TokenBundle
	if err := json.Unmarshal(plaintext, &tok); err != nil {
		return nil, geerrors.Internal(err)
	}
	return &tok, nil
}

func (f *fernetBackend) rawPut(_ context.Context, accountID string, t *models.TokenBundle) error {
	plaintext, err := json.Marshal(t)
	if err != nil {
		return geerrors.Internal(err)
	}
	token, err := fernet.EncryptAndSign(plaintext, f.key)
	if err != nil {
		return geerrors.Internal(err)
	}
	tmp := f.path(accountID) + ".tmp"
	if err := os.WriteFile(tmp, token, 0600); err != nil {
		return geerrors.Internal(err)
	}
	if err := os.Rename(tmp, f.path(accountID)); err != nil {
		return geerrors.Internal(err)
	}
	return nil
}

func (f *fernetBackend) rawDelete(_ context.Context, accountID string) error {
	if err := os.Remove(f.path(accountID)); err != nil && !os.IsNotExist(err) {
		return geerrors.Internal(err)
	}
	return nil
}

func (f *fernetBackend) rawListAccounts(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, geerrors.Internal(err)
	}
	var accounts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".fernet") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".fernet")
		if email, ok := desanitizeAccountID(stem); ok {
			accounts = append(accounts, email)
		}
	}
	return accounts, nil
}

type errFernetDecrypt struct{}

func (errFernetDecrypt) Error() string { return "fernet: decryption failed" }
