package tokenstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/models"
)

// fileBackend stores one JSON blob per account under
// <data_dir>/tokens/<sanitized_email>.json, optionally AES-256-GCM
// encrypted when an encryption secret is configured, grounded on
// original_source's token_provider/file.rs filename-sanitization scheme
// (local_at_domain_tld.json).
type fileBackend struct {
	dir     string
	crypter *crypter // nil when encryption is disabled
}

// NewFileStore builds a cached TokenStore backed by the local filesystem.
func NewFileStore(dataDir, encryptionSecret string) (TokenStore, error) {
	dir := filepath.Join(dataDir, "tokens")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, geerrors.Config("failed to create token directory: " + err.Error())
	}
	var c *crypter
	if encryptionSecret != "" {
		var err error
		c, err = newCrypter(encryptionSecret)
		if err != nil {
			return nil, err
		}
	}
	return newCachedStore(&fileBackend{dir: dir, crypter: c}), nil
}

// sanitizeAccountID turns an email address into a filesystem-safe stem:
// "name@domain.tld" -> "name_at_domain_tld".
func sanitizeAccountID(accountID string) string {
	s := strings.ReplaceAll(accountID, "@", "_at_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}

// desanitizeAccountID reverses sanitizeAccountID: the local part keeps its
// underscores, only the domain's dots are restored.
func desanitizeAccountID(stem string) (string, bool) {
	atPos := strings.Index(stem, "_at_")
	if atPos < 0 {
		return "", false
	}
	local := stem[:atPos]
	domain := strings.ReplaceAll(stem[atPos+4:], "_", ".")
	return local + "@" + domain, true
}

func (f *fileBackend) path(accountID string) string {
	return filepath.Join(f.dir, sanitizeAccountID(accountID)+".json")
}

func (f *fileBackend) rawGet(_ context.Context, accountID string) (*models.TokenBundle, error) {
	data, err := os.ReadFile(f.path(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, geerrors.Internal(err)
	}
	if f.crypter != nil {
		data, err = f.crypter.decrypt(data)
		if err != nil {
			return nil, err
		}
	}
	var tok models.TokenBundle
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, geerrors.Internal(err)
	}
	return &tok, nil
}

func (f *fileBackend) rawPut(_ context.Context, accountID string, t *models.TokenBundle) error {
	data, err := json.Marshal(t)
	if err != nil {
		return geerrors.Internal(err)
	}
	if f.crypter != nil {
		data, err = f.crypter.encrypt(data)
		if err != nil {
			return err
		}
	}
	tmp := f.path(accountID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return geerrors.Internal(err)
	}
	if err := os.Rename(tmp, f.path(accountID)); err != nil {
		return geerrors.Internal(err)
	}
	return nil
}

func (f *fileBackend) rawDelete(_ context.Context, accountID string) error {
	if err := os.Remove(f.path(accountID)); err != nil && !os.IsNotExist(err) {
		return geerrors.Internal(err)
	}
	return nil
}

func (f *fileBackend) rawListAccounts(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, geerrors.Internal(err)
	}
	var accounts []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), ".json")
		if email, ok := desanitizeAccountID(stem); ok {
			accounts = append(accounts, email)
		}
	}
	return accounts, nil
}
