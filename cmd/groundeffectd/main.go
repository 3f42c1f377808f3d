// Command groundeffectd is groundeffect's daemon entry point: it wires
// every core component in the order spec.md §9 names, starts the
// background IMAP IDLE / calendar poll loops, and serves the JSON-RPC
// tool interface over stdin/stdout. Signal handling and the PID file
// follow the teacher's cmd/acp-server/main.go idiom.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/config"
	"github.com/jamiequint/groundeffect/internal/embedding"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/oauth"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
	"github.com/jamiequint/groundeffect/internal/rpc"
	"github.com/jamiequint/groundeffect/internal/search"
	"github.com/jamiequint/groundeffect/internal/statuspush"
	"github.com/jamiequint/groundeffect/internal/syncmanager"
	"github.com/jamiequint/groundeffect/internal/tokenstore"
)

// statusPushAddr is the local address the admin status WebSocket listens
// on; groundeffect-ctl's get-sync-status --watch dials it directly.
const statusPushAddr = "127.0.0.1:8086"

func main() {
	noIdle := flag.Bool("no-idle", false, "disable IMAP IDLE even if configured (poll only)")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	if err := logger.Init(logger.Config{LogFile: cfg.General.LogFile, Level: cfg.General.LogLevel, JSON: true, Component: "groundeffectd"}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data directory", "dir", cfg.General.DataDir, "error", err)
	}

	pidPath, err := writePIDFile(cfg.General.DataDir)
	if err != nil {
		logger.Fatal("failed to write PID file", "error", err)
	}
	defer os.Remove(pidPath)

	tokens, err := tokenstore.New(cfg.TokenStore, cfg.General.DataDir)
	if err != nil {
		logger.Fatal("failed to initialize token store", "error", err)
	}

	coordinator := oauth.New(oauth.LoadClientConfig(), tokens)
	limiter := ratelimit.New(cfg.Sync.RateLimitPerSecond)

	store, err := columnstore.Open(context.Background(), cfg.DBPath())
	if err != nil {
		logger.Fatal("failed to open columnar store", "path", cfg.DBPath(), "error", err)
	}
	defer store.Close()

	embedder := buildEmbeddingProvider(cfg.Search)
	engine := search.New(store, embedder)
	manager := syncmanager.New(store, coordinator, embedder, limiter)

	ctx, cancel := context.WithCancel(context.Background())

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		logger.Fatal("failed to list accounts", "error", err)
	}
	logger.Info("starting groundeffectd", "accounts", len(accounts), "data_dir", cfg.General.DataDir)

	for _, account := range accounts {
		account := account
		if account.Status != models.AccountActive {
			continue
		}
		if err := manager.InitAccount(ctx, account); err != nil {
			logger.Warn("account needs re-authorization", "account", account.ID, "error", err)
			continue
		}
		if cfg.Sync.EmailIdleEnabled && !*noIdle {
			go func() {
				if err := manager.StartIdleForAccount(ctx, account); err != nil && ctx.Err() == nil {
					logger.Warn("IMAP IDLE loop ended", "account", account.ID, "error", err)
				}
			}()
		}
	}

	go runPollLoop(ctx, manager, store, time.Duration(cfg.Sync.EmailPollIntervalSecs)*time.Second, syncmanager.SyncKindEmail)
	go runPollLoop(ctx, manager, store, time.Duration(cfg.Sync.CalendarPollIntervalSecs)*time.Second, syncmanager.SyncKindCalendar)

	pushSrv := statuspush.New(manager, 2*time.Second)
	go func() {
		if err := pushSrv.ListenAndServe(ctx, statusPushAddr); err != nil {
			logger.Warn("status push server stopped", "error", err)
		}
	}()

	shutdown := make(chan struct{})
	rpcSvc := rpc.New(rpc.Deps{
		Store:       store,
		Coordinator: coordinator,
		Engine:      engine,
		Manager:     manager,
		Limiter:     limiter,
		RequestShutdown: func() {
			select {
			case <-shutdown:
			default:
				close(shutdown)
			}
		},
	})

	// The stdin/stdout JSON-RPC transport is an optional attached
	// interface: when groundeffectd is launched detached (no real stdin,
	// e.g. via "groundeffect-ctl start-daemon"), Serve sees an immediate
	// EOF and returns. That must not tear down the background sync loops,
	// which are the daemon's real job per spec.md §1 ("a long-running
	// background sync process" distinct from "a request-response server").
	go func() {
		if err := rpcSvc.Serve(ctx, os.Stdin, os.Stdout); err != nil {
			logger.Warn("JSON-RPC transport ended with an error", "error", err)
		} else {
			logger.Info("JSON-RPC transport closed (stdin EOF); sync loops keep running")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig)
	case <-shutdown:
		logger.Info("shutdown requested via stop_daemon")
	}

	cancel()
	time.Sleep(200 * time.Millisecond)
}

// runPollLoop triggers an incremental sync of kind for every active
// account on a fixed interval, the IDLE-disabled/broken fallback per
// spec.md §4.9.
func runPollLoop(ctx context.Context, manager *syncmanager.Manager, store *columnstore.Store, interval time.Duration, kind syncmanager.SyncKind) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			accounts, err := store.ListAccounts(ctx)
			if err != nil {
				logger.Warn("poll loop: failed to list accounts", "kind", kind, "error", err)
				continue
			}
			manager.TriggerSync(ctx, accounts, kind)
		}
	}
}

// buildEmbeddingProvider wires the Embedding Provider per spec.md §5.5: a
// remote backend when search.remote_embedding_url is configured, a local
// backend around the injected model-loader contract otherwise, combined
// through HybridProvider so a remote outage degrades to local rather than
// failing the whole query.
func buildEmbeddingProvider(cfg config.SearchConfig) embedding.Provider {
	var remote *embedding.RemoteProvider
	if cfg.RemoteEmbeddingURL != "" {
		remote = embedding.NewRemote(cfg.RemoteEmbeddingURL, columnstore.EmbeddingDimension, nil)
	}

	local := embedding.NewLocal(unconfiguredModel, columnstore.EmbeddingDimension)
	return embedding.NewHybrid(remote, local, columnstore.EmbeddingDimension)
}

// unconfiguredModel is the local embedding backend's model function until
// an actual model loader is wired in; the loader itself is an injected
// out-of-scope collaborator per spec.md §1; only its ModelFunc contract is
// exercised here.
func unconfiguredModel(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("no local embedding model loader configured")
}

// writePIDFile writes the running process's PID to <dataDir>/daemon.pid,
// refusing to start if an existing PID file names a still-running process.
func writePIDFile(dataDir string) (string, error) {
	path := dataDir + "/daemon.pid"
	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(string(data)); err == nil && processAlive(pid) {
			return "", fmt.Errorf("groundeffectd already running with pid %d (%s)", pid, path)
		}
	}
	return path, os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
