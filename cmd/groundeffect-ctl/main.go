// Command groundeffect-ctl is the admin CLI: add/remove/list accounts,
// reset-sync, get-sync-status, and daemon start/stop via the PID file.
// Grounded on the teacher's cmd/diane-ctl/main.go command structure (a
// plain os.Args[1] switch, no cobra) but, unlike diane-ctl, talks to the
// shared SQLite store directly for one-shot commands rather than an
// always-on API client — groundeffectd's stdin/stdout JSON-RPC transport
// is occupied by its MCP-style caller, not available for admin use.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/config"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/oauth"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
	"github.com/jamiequint/groundeffect/internal/syncmanager"
	"github.com/jamiequint/groundeffect/internal/tokenstore"
)

// statusPushAddr matches groundeffectd's admin status WebSocket address.
const statusPushAddr = "127.0.0.1:8086"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()
	args := os.Args[2:]

	switch os.Args[1] {
	case "add-account":
		cmdAddAccount(cfg)
	case "list-accounts":
		cmdListAccounts(cfg)
	case "remove-account":
		cmdRemoveAccount(cfg, args)
	case "reset-sync":
		cmdResetSync(cfg, args)
	case "get-sync-status":
		cmdSyncStatus(cfg, args)
	case "start-daemon":
		cmdStartDaemon(cfg)
	case "stop-daemon":
		cmdStopDaemon(cfg)
	case "daemon-status":
		cmdDaemonStatus(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: groundeffect-ctl <command> [args]

Commands:
  add-account                 authorize and ingest a new Google account
  list-accounts                list configured accounts
  remove-account <id>          remove an account and all its synced data
  reset-sync <id> --confirm    delete an account's synced emails and re-sync from scratch
  get-sync-status [id] [--watch]   show per-account sync status, optionally streaming
  start-daemon                  launch groundeffectd in the background
  stop-daemon                   signal the running groundeffectd to shut down
  daemon-status                  report whether groundeffectd is running`)
}

func openStore(cfg config.Config) *columnstore.Store {
	store, err := columnstore.Open(context.Background(), cfg.DBPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open columnar store: %v\n", err)
		os.Exit(1)
	}
	return store
}

func cmdListAccounts(cfg config.Config) {
	store := openStore(cfg)
	defer store.Close()

	accounts, err := store.ListAccounts(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(accounts) == 0 {
		fmt.Println("no accounts configured")
		return
	}
	for _, a := range accounts {
		fmt.Printf("%-30s %-12s alias=%q added=%s\n", a.ID, a.Status, a.Alias, a.AddedAt.Format(time.RFC3339))
	}
}

func cmdAddAccount(cfg config.Config) {
	ctx := context.Background()

	tokens, err := tokenstore.New(cfg.TokenStore, cfg.General.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	coordinator := oauth.New(oauth.LoadClientConfig(), tokens)

	state, err := randomState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Open this URL in a browser to authorize groundeffect:")
	fmt.Println(coordinator.AuthorizationURL(state))

	code, err := oauth.AwaitCallback(ctx, state)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: authorization failed: %v\n", err)
		os.Exit(1)
	}

	bundle, info, err := coordinator.ExchangeCode(ctx, code)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: token exchange failed: %v\n", err)
		os.Exit(1)
	}
	if err := coordinator.SaveTokens(ctx, info.Email, bundle); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save tokens: %v\n", err)
		os.Exit(1)
	}

	store := openStore(cfg)
	defer store.Close()

	account := &models.Account{ID: info.Email, Name: info.Name, Status: models.AccountActive, AddedAt: time.Now()}
	if err := store.UpsertAccount(ctx, account); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save account: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Account %s added. Running initial sync (this may take a while)...\n", info.Email)

	limiter := ratelimit.New(cfg.Sync.RateLimitPerSecond)
	manager := syncmanager.New(store, coordinator, nil, limiter)
	if err := manager.InitialSync(ctx, account); err != nil {
		fmt.Fprintf(os.Stderr, "Error: initial sync failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Initial sync complete.")
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func cmdRemoveAccount(cfg config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: groundeffect-ctl remove-account <id>")
		os.Exit(1)
	}
	accountID := args[0]

	store := openStore(cfg)
	defer store.Close()
	ctx := context.Background()

	if _, _, err := store.DeleteAccountData(ctx, accountID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := store.DeleteAccount(ctx, accountID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	tokens, err := tokenstore.New(cfg.TokenStore, cfg.General.DataDir)
	if err == nil {
		_ = tokens.Delete(ctx, accountID)
	}
	fmt.Printf("Account %s removed.\n", accountID)
}

func cmdResetSync(cfg config.Config, args []string) {
	positional, flags := splitBoolFlags(args, "confirm")
	if len(positional) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: groundeffect-ctl reset-sync <id> --confirm")
		os.Exit(1)
	}
	if !flags["confirm"] {
		fmt.Fprintln(os.Stderr, "Error: reset-sync requires --confirm")
		os.Exit(1)
	}
	accountID := positional[0]

	store := openStore(cfg)
	defer store.Close()

	removed, err := store.ResetEmailSync(context.Background(), accountID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d emails for %s; next sync will re-ingest from scratch.\n", removed, accountID)
}

func cmdSyncStatus(cfg config.Config, args []string) {
	positional, flags := splitBoolFlags(args, "watch")
	var filter string
	if len(positional) > 0 {
		filter = positional[0]
	}

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+statusPushAddr+"/ws/status", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "groundeffectd not reachable; showing counts from the columnar store only")
		printStoreCounts(cfg, filter)
		return
	}
	defer conn.Close()

	for {
		var snap syncmanager.ProgressSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			return
		}
		printSnapshot(snap, filter)
		if !flags["watch"] {
			return
		}
	}
}

// splitBoolFlags separates "--name" boolean flags (matched against
// knownFlags) from positional arguments, without relying on the stdlib
// flag package's "flags before positional args" ordering rule.
func splitBoolFlags(args []string, knownFlags ...string) (positional []string, flags map[string]bool) {
	flags = make(map[string]bool, len(knownFlags))
	known := make(map[string]bool, len(knownFlags))
	for _, f := range knownFlags {
		known[f] = true
	}
	for _, a := range args {
		name, ok := strings.CutPrefix(a, "--")
		if !ok {
			name, ok = strings.CutPrefix(a, "-")
		}
		if ok && known[name] {
			flags[name] = true
			continue
		}
		positional = append(positional, a)
	}
	return positional, flags
}

func printSnapshot(snap syncmanager.ProgressSnapshot, filter string) {
	data, _ := json.MarshalIndent(snap, "", "  ")
	if filter == "" {
		fmt.Println(string(data))
		return
	}
	if acct, ok := snap.Accounts[filter]; ok {
		out, _ := json.MarshalIndent(acct, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Printf("no status known for %s yet\n", filter)
	}
}

func printStoreCounts(cfg config.Config, filter string) {
	store := openStore(cfg)
	defer store.Close()
	ctx := context.Background()

	accounts, err := store.ListAccounts(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	for _, a := range accounts {
		if filter != "" && a.ID != filter {
			continue
		}
		emails, _ := store.CountEmails(ctx, &a.ID)
		events, _ := store.CountEvents(ctx, &a.ID)
		fmt.Printf("%s: %d emails, %d events, last_sync_email=%v last_sync_calendar=%v\n",
			a.ID, emails, events, a.LastSyncEmail, a.LastSyncCalendar)
	}
}

func cmdStartDaemon(cfg config.Config) {
	pidPath := filepath.Join(cfg.General.DataDir, "daemon.pid")
	if pid, ok := readPID(pidPath); ok && processAlive(pid) {
		fmt.Printf("groundeffectd already running (pid %d)\n", pid)
		return
	}

	binPath, err := exec.LookPath("groundeffectd")
	if err != nil {
		if self, selfErr := os.Executable(); selfErr == nil {
			binPath = filepath.Join(filepath.Dir(self), "groundeffectd")
		} else {
			binPath = "groundeffectd"
		}
	}

	cmd := exec.Command(binPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to start groundeffectd: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("groundeffectd started (pid %d)\n", cmd.Process.Pid)
}

func cmdStopDaemon(cfg config.Config) {
	pidPath := filepath.Join(cfg.General.DataDir, "daemon.pid")
	pid, ok := readPID(pidPath)
	if !ok || !processAlive(pid) {
		fmt.Println("groundeffectd is not running")
		return
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to signal pid %d: %v\n", pid, err)
		os.Exit(1)
	}
	fmt.Printf("sent SIGTERM to groundeffectd (pid %d)\n", pid)
}

func cmdDaemonStatus(cfg config.Config) {
	pidPath := filepath.Join(cfg.General.DataDir, "daemon.pid")
	pid, ok := readPID(pidPath)
	if !ok || !processAlive(pid) {
		fmt.Println("groundeffectd is not running")
		return
	}
	fmt.Printf("groundeffectd is running (pid %d)\n", pid)
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
