// Package config loads groundeffect's configuration from
// ~/.config/groundeffect/config.toml with environment variable overrides,
// following the load/override idiom of the teacher's internal/config
// package but decoding TOML instead of JSON.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds groundeffect's daemon configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Sync       SyncConfig       `toml:"sync"`
	Search     SearchConfig     `toml:"search"`
	Accounts   []AccountConfig  `toml:"accounts"`
	TokenStore TokenStoreConfig `toml:"token_store"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	LogLevel string `toml:"log_level"` // debug|info|warn|error, default "info"
	LogFile  string `toml:"log_file"`  // empty disables file rotation
	DataDir  string `toml:"data_dir"`  // default ~/.local/share/groundeffect
}

// SyncConfig holds sync-engine tunables.
type SyncConfig struct {
	EmailIdleEnabled         bool    `toml:"email_idle_enabled"`
	EmailPollIntervalSecs    int     `toml:"email_poll_interval_secs"`
	CalendarPollIntervalSecs int     `toml:"calendar_poll_interval_secs"`
	MaxConcurrentFetches     int     `toml:"max_concurrent_fetches"`
	AttachmentMaxSizeMB      int     `toml:"attachment_max_size_mb"`
	RateLimitPerSecond       float64 `toml:"rate_limit_per_second"`
	InitialSyncWindowDays    int     `toml:"initial_sync_window_days"`
}

// SearchConfig holds the hybrid search engine's tunables.
type SearchConfig struct {
	EmbeddingModel     string  `toml:"embedding_model"`
	RemoteEmbeddingURL string  `toml:"remote_embedding_url"`
	BM25Weight         float64 `toml:"bm25_weight"`
	VectorWeight       float64 `toml:"vector_weight"`
}

// AccountConfig declares one configured Google account.
type AccountConfig struct {
	ID                string `toml:"id"`
	Alias             string `toml:"alias"`
	IngestAttachments bool   `toml:"ingest_attachments"`
	SyncSinceFloor    string `toml:"sync_since_floor"` // RFC3339 date, optional
}

// TokenStoreConfig selects and configures the token store backend.
type TokenStoreConfig struct {
	Backend          string `toml:"backend"` // "file" | "postgres" | "fernet"
	DSN              string `toml:"dsn"`
	EncryptionSecret string `toml:"encryption_secret"`
}

func defaults() Config {
	return Config{
		General: GeneralConfig{LogLevel: "info"},
		Sync: SyncConfig{
			EmailIdleEnabled:         true,
			EmailPollIntervalSecs:    300,
			CalendarPollIntervalSecs: 300,
			MaxConcurrentFetches:     4,
			AttachmentMaxSizeMB:      25,
			RateLimitPerSecond:       5,
			InitialSyncWindowDays:    30,
		},
		Search: SearchConfig{
			BM25Weight:   1.0,
			VectorWeight: 1.0,
		},
		TokenStore: TokenStoreConfig{Backend: "file"},
	}
}

// Load reads configuration from the config file, then applies environment
// variable overrides. Config file locations checked in order:
//  1. GROUNDEFFECT_CONFIG env var (if set)
//  2. ~/.config/groundeffect/config.toml
//
// A missing file is not an error.
func Load() Config {
	cfg := defaults()

	configPath := os.Getenv("GROUNDEFFECT_CONFIG")
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("failed to get home directory for config", "error", err)
			applyEnvOverrides(&cfg)
			applyDataDirDefault(&cfg, "")
			return cfg
		}
		configPath = filepath.Join(home, ".config", "groundeffect", "config.toml")
	}

	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("failed to parse config file", "path", configPath, "error", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDataDirDefault(&cfg, configPath)
	return cfg
}

func applyDataDirDefault(cfg *Config, configPath string) {
	if cfg.General.DataDir != "" {
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		cfg.General.DataDir = ".groundeffect"
		return
	}
	cfg.General.DataDir = filepath.Join(home, ".local", "share", "groundeffect")
}

// applyEnvOverrides applies GROUNDEFFECT_* environment variable overrides.
// Env vars take precedence over config file values.
func applyEnvOverrides(cfg *Config) {
	if os.Getenv("GROUNDEFFECT_DEBUG") == "1" {
		cfg.General.LogLevel = "debug"
	}
	if dir := os.Getenv("GROUNDEFFECT_DATA_DIR"); dir != "" {
		cfg.General.DataDir = dir
	}
	if dsn := os.Getenv("GROUNDEFFECT_TOKEN_STORE_DSN"); dsn != "" {
		cfg.TokenStore.DSN = dsn
	}
	if secret := os.Getenv("GROUNDEFFECT_TOKEN_ENCRYPTION_SECRET"); secret != "" {
		cfg.TokenStore.EncryptionSecret = secret
	}
	if rate := os.Getenv("GROUNDEFFECT_RATE_LIMIT_PER_SECOND"); rate != "" {
		if v, err := strconv.ParseFloat(rate, 64); err == nil {
			cfg.Sync.RateLimitPerSecond = v
		}
	}
}

// DBPath returns the path to the columnar store's SQLite file.
func (c *Config) DBPath() string {
	return filepath.Join(c.General.DataDir, "groundeffect.db")
}

// Validate reports a *geerrors-flavored error for config that cannot be
// used to start the daemon. Kept dependency-free (returns plain error) so
// config stays a leaf package other packages can import without cycles.
func (c *Config) Validate() error {
	switch c.TokenStore.Backend {
	case "file", "postgres", "fernet":
	default:
		return fmt.Errorf("config: unknown token_store.backend %q", c.TokenStore.Backend)
	}
	if c.TokenStore.Backend == "postgres" && c.TokenStore.DSN == "" {
		return fmt.Errorf("config: token_store.dsn is required for backend %q", c.TokenStore.Backend)
	}
	if c.Sync.RateLimitPerSecond <= 0 {
		return fmt.Errorf("config: sync.rate_limit_per_second must be positive")
	}
	return nil
}
