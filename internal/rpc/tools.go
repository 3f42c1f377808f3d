package rpc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jamiequint/groundeffect/internal/calsync"
	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/geerrors"
	"github.com/jamiequint/groundeffect/internal/logger"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/oauth"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
	"github.com/jamiequint/groundeffect/internal/search"
	"github.com/jamiequint/groundeffect/internal/syncmanager"
)

// Deps are the components the daemon wires in at startup (spec.md §9's
// fixed initialization order: Config → Token Store → OAuth Coordinator →
// Rate Limiter → Columnar Store → Embedding Provider → Search Engine →
// Sync Manager → JSON-RPC adapter — this struct is the last link).
type Deps struct {
	Store       *columnstore.Store
	Coordinator *oauth.Coordinator
	Engine      *search.Engine
	Manager     *syncmanager.Manager
	Limiter     *ratelimit.Limiter

	// RequestShutdown is called by the stop_daemon tool to begin graceful
	// shutdown; nil means stop_daemon is unsupported in this process (e.g.
	// a test harness without a real daemon loop).
	RequestShutdown func()
}

// New builds a Service with every tool from spec.md §6.4 wired to deps.
func New(deps Deps) *Service {
	s := &Service{deps: deps, startedAt: time.Now()}
	s.handlers = map[string]ToolHandler{
		"list_accounts":      s.listAccounts,
		"add_account":        s.addAccount,
		"search_emails":      s.searchEmails,
		"list_recent_emails": s.listRecentEmails,
		"get_email":          s.getEmail,
		"get_thread":         s.getThread,
		"search_calendar":    s.searchCalendar,
		"get_event":          s.getEvent,
		"create_event":       s.createEvent,
		"get_sync_status":    s.getSyncStatus,
		"reset_sync":         s.resetSync,
		"extend_sync_range":  s.extendSyncRange,
		"start_daemon":       s.startDaemon,
		"stop_daemon":        s.stopDaemon,
		"get_daemon_status":  s.getDaemonStatus,
	}
	return s
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func (s *Service) listAccounts(ctx context.Context, args map[string]any) (any, error) {
	accounts, err := s.deps.Store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, map[string]any{
			"id":     a.ID,
			"alias":  a.Alias,
			"name":   a.Name,
			"status": string(a.Status),
		})
	}
	return map[string]any{"accounts": out}, nil
}

func newOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", geerrors.Internal(err)
	}
	return hex.EncodeToString(b), nil
}

// addAccount runs the full authorization-code flow end to end (spec.md
// §6.3/§8 scenario 1): builds the consent URL, logs it for the operator
// to open, blocks for the local callback, exchanges the code, persists
// the token bundle, writes the account row, and kicks off its initial
// sync in the background.
func (s *Service) addAccount(ctx context.Context, args map[string]any) (any, error) {
	alias := stringArg(args, "alias")

	state, err := newOAuthState()
	if err != nil {
		return nil, err
	}

	authURL := s.deps.Coordinator.AuthorizationURL(state)
	logger.Info("add_account: open this URL to authorize", "url", authURL)

	code, err := oauth.AwaitCallback(ctx, state)
	if err != nil {
		return nil, err
	}

	bundle, info, err := s.deps.Coordinator.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.deps.Coordinator.SaveTokens(ctx, info.Email, bundle); err != nil {
		return nil, err
	}

	account := &models.Account{
		ID:      info.Email,
		Alias:   alias,
		Name:    info.Name,
		Status:  models.AccountActive,
		AddedAt: time.Now().UTC(),
	}
	if err := s.deps.Store.UpsertAccount(ctx, account); err != nil {
		return nil, err
	}

	go func() {
		bgCtx := context.Background()
		if err := s.deps.Manager.InitialSync(bgCtx, account); err != nil {
			logger.Warn("initial sync failed", "account", account.ID, "error", err)
		}
	}()

	return map[string]any{"success": true, "account_id": account.ID, "alias": account.Alias}, nil
}

func searchOptionsFromArgs(args map[string]any) search.SearchOptions {
	opts := search.SearchOptions{
		Limit:      intArg(args, "limit", 0),
		Folder:     stringArg(args, "folder"),
		From:       stringArg(args, "from"),
		To:         stringArg(args, "to"),
		BM25Weight: 0,
		VectorWeight: 0,
	}
	if accts, ok := args["accounts"].([]any); ok {
		for _, a := range accts {
			if str, ok := a.(string); ok {
				opts.Accounts = append(opts.Accounts, str)
			}
		}
	}
	if v, ok := args["has_attachment"].(bool); ok {
		opts.HasAttachment = &v
	}
	return opts
}

func (s *Service) searchEmails(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	opts := searchOptionsFromArgs(args)
	started := time.Now()
	resp, err := s.deps.Engine.SearchEmails(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	hits := make([]map[string]any, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, map[string]any{
			"id":      h.Email.ID,
			"subject": h.Email.Subject,
			"summary": h.Summary,
			"score":   h.Score,
		})
	}
	return map[string]any{"hits": hits, "total": resp.Total, "search_time_ms": time.Since(started).Milliseconds()}, nil
}

func (s *Service) listRecentEmails(ctx context.Context, args map[string]any) (any, error) {
	limit := intArg(args, "limit", 20)
	var accountFilter *string
	if acct := stringArg(args, "account"); acct != "" {
		accountFilter = &acct
	}
	emails, err := s.deps.Store.ListRecent(ctx, accountFilter, limit)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(emails))
	for _, m := range emails {
		out = append(out, map[string]any{"id": m.ID, "subject": m.Subject, "date": m.Date, "snippet": m.Snippet})
	}
	return map[string]any{"emails": out}, nil
}

func (s *Service) getEmail(ctx context.Context, args map[string]any) (any, error) {
	id := stringArg(args, "id")
	m, err := s.deps.Store.GetEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, geerrors.EmailNotFound(id)
	}
	return m, nil
}

func (s *Service) getThread(ctx context.Context, args map[string]any) (any, error) {
	accountID := stringArg(args, "account")
	threadID := stringArg(args, "thread_id")
	var gmailThreadID uint64
	if _, err := fmt.Sscanf(threadID, "%d", &gmailThreadID); err != nil {
		return nil, geerrors.InvalidRequest("thread_id must be numeric")
	}
	messages, err := s.deps.Store.GetThread(ctx, accountID, gmailThreadID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, geerrors.ResourceNotFound(threadID)
	}
	return map[string]any{"messages": messages}, nil
}

func (s *Service) searchCalendar(ctx context.Context, args map[string]any) (any, error) {
	query := stringArg(args, "query")
	opts := searchOptionsFromArgs(args)
	started := time.Now()
	resp, err := s.deps.Engine.SearchCalendar(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	hits := make([]map[string]any, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		hits = append(hits, map[string]any{
			"id":      h.Event.ID,
			"summary": h.Event.Summary,
			"score":   h.Score,
		})
	}
	return map[string]any{"hits": hits, "total": resp.Total, "search_time_ms": time.Since(started).Milliseconds()}, nil
}

func (s *Service) getEvent(ctx context.Context, args map[string]any) (any, error) {
	id := stringArg(args, "id")
	e, err := s.deps.Store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, geerrors.EventNotFound(id)
	}
	return e, nil
}

// createEvent inserts a new Google Calendar event through the same
// account's Calendar API client rather than writing directly to the
// store, so the new event round-trips through a subsequent sync like any
// server-created one.
func (s *Service) createEvent(ctx context.Context, args map[string]any) (any, error) {
	accountID := stringArg(args, "account")
	calendarID := stringArg(args, "calendar_id")
	summary := stringArg(args, "summary")
	if accountID == "" || summary == "" {
		return nil, geerrors.InvalidRequest("account and summary are required")
	}

	client, err := calsync.NewClient(ctx, accountID, s.deps.Coordinator, s.deps.Limiter)
	if err != nil {
		return nil, err
	}

	raw := &gcalEvent{Summary: summary}
	start := stringArg(args, "start")
	end := stringArg(args, "end")
	raw.Start, raw.End = start, end

	created, err := client.CreateEvent(ctx, calendarID, raw.toAPI())
	if err != nil {
		return nil, err
	}
	event := calsync.ParseEvent(accountID, "", calendarID, created)
	if err := s.deps.Store.UpsertEvents(ctx, []*models.CalendarEvent{event}); err != nil {
		return nil, err
	}
	return map[string]any{"id": event.ID, "google_event_id": event.GoogleEventID}, nil
}

func (s *Service) getSyncStatus(ctx context.Context, args map[string]any) (any, error) {
	accountID := stringArg(args, "account")
	if accountID == "" {
		accounts, err := s.deps.Store.ListAccounts(ctx)
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(accounts))
		for _, a := range accounts {
			out[a.ID] = s.syncStatusFor(ctx, a.ID)
		}
		return map[string]any{"accounts": out}, nil
	}
	return s.syncStatusFor(ctx, accountID), nil
}

func (s *Service) syncStatusFor(ctx context.Context, accountID string) map[string]any {
	st := s.deps.Manager.State(accountID)
	emailCount, _ := s.deps.Store.CountEmails(ctx, &accountID)
	eventCount, _ := s.deps.Store.CountEvents(ctx, &accountID)
	out := map[string]any{"email_count": emailCount, "event_count": eventCount}
	if st != nil {
		out["is_syncing"] = st.IsSyncing
		out["last_sync_email"] = st.LastSyncEmail
		out["last_sync_calendar"] = st.LastSyncCalendar
		out["last_error"] = st.LastError
		out["initial_sync_phase"] = string(st.InitialSync.Phase)
	}
	return out
}

// resetSync requires an explicit confirm=true (spec.md §8 scenario 6):
// a destructive bulk delete is never one flag away from an accidental
// tool call.
func (s *Service) resetSync(ctx context.Context, args map[string]any) (any, error) {
	accountID := stringArg(args, "account")
	if accountID == "" {
		return nil, geerrors.InvalidRequest("account is required")
	}
	if !boolArg(args, "confirm") {
		return nil, geerrors.InvalidRequest("reset_sync requires confirm=true")
	}
	removed, err := s.deps.Store.ResetEmailSync(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"emails_removed": removed}, nil
}

func (s *Service) extendSyncRange(ctx context.Context, args map[string]any) (any, error) {
	accountID := stringArg(args, "account")
	floorStr := stringArg(args, "since")
	if accountID == "" || floorStr == "" {
		return nil, geerrors.InvalidRequest("account and since are required")
	}
	since, err := time.Parse(time.RFC3339, floorStr)
	if err != nil {
		return nil, geerrors.InvalidRequest("since must be RFC3339")
	}
	account, err := s.deps.Store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, geerrors.AccountNotFound(accountID)
	}
	count, err := s.deps.Manager.ExtendSync(ctx, account, since)
	if err != nil {
		return nil, err
	}
	return map[string]any{"emails_ingested": count}, nil
}

// startDaemon is a no-op success response: by the time a JSON-RPC call can
// reach this process, the daemon is already running. The tool exists so a
// client that always calls start_daemon before using the others doesn't
// need special-case handling for "already started".
func (s *Service) startDaemon(ctx context.Context, args map[string]any) (any, error) {
	return map[string]any{"running": true}, nil
}

func (s *Service) stopDaemon(ctx context.Context, args map[string]any) (any, error) {
	if s.deps.RequestShutdown == nil {
		return nil, geerrors.InvalidRequest("stop_daemon is not supported in this process")
	}
	go s.deps.RequestShutdown()
	return map[string]any{"stopping": true}, nil
}

func (s *Service) getDaemonStatus(ctx context.Context, args map[string]any) (any, error) {
	return map[string]any{"running": true, "uptime_seconds": time.Since(s.startedAt).Seconds()}, nil
}

// toolSchemas returns the minimal tools/list descriptor set, grounded on
// diane's listTools()'s map[string]interface{} shape. Each descriptor
// carries only the tool's name; no input schema (argument names or types)
// is included.
func (s *Service) toolSchemas() []map[string]any {
	names := []string{
		"list_accounts", "add_account", "search_emails", "list_recent_emails",
		"get_email", "get_thread", "search_calendar", "get_event", "create_event",
		"get_sync_status", "reset_sync", "extend_sync_range",
		"start_daemon", "stop_daemon", "get_daemon_status",
	}
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]any{"name": name})
	}
	return out
}
