package rpc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/models"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
	"github.com/jamiequint/groundeffect/internal/search"
	"github.com/jamiequint/groundeffect/internal/syncmanager"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	store, err := columnstore.Open(context.Background(), filepath.Join(dir, "ge.db"))
	if err != nil {
		t.Fatalf("columnstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := search.New(store, nil)
	manager := syncmanager.New(store, nil, nil, ratelimit.New(10))
	return New(Deps{Store: store, Engine: engine, Manager: manager, Limiter: ratelimit.New(10)})
}

func TestHandleRequestUnknownMethod(t *testing.T) {
	s := newTestService(t)
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "bogus"})
	if resp.Error == nil || resp.Error.MachineTag != "TOOL_NOT_FOUND" {
		t.Fatalf("resp = %+v, want TOOL_NOT_FOUND", resp)
	}
}

func TestHandleRequestToolsCallUnknownTool(t *testing.T) {
	s := newTestService(t)
	params, _ := json.Marshal(toolCallParams{Name: "nonexistent_tool"})
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.MachineTag != "TOOL_NOT_FOUND" {
		t.Fatalf("resp = %+v, want TOOL_NOT_FOUND", resp)
	}
}

func TestHandleRequestListAccountsEmpty(t *testing.T) {
	s := newTestService(t)
	params, _ := json.Marshal(toolCallParams{Name: "list_accounts"})
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("result type = %T", resp.Result)
	}
	accounts, _ := result["accounts"].([]map[string]any)
	if len(accounts) != 0 {
		t.Fatalf("accounts = %v, want empty", accounts)
	}
}

func TestHandleRequestGetEmailNotFound(t *testing.T) {
	s := newTestService(t)
	params, _ := json.Marshal(toolCallParams{Name: "get_email", Arguments: map[string]any{"id": "missing"}})
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.MachineTag != "EMAIL_NOT_FOUND" {
		t.Fatalf("resp = %+v, want EMAIL_NOT_FOUND", resp)
	}
}

func TestHandleRequestResetSyncRequiresConfirm(t *testing.T) {
	s := newTestService(t)
	params, _ := json.Marshal(toolCallParams{Name: "reset_sync", Arguments: map[string]any{"account": "a@example.com"}})
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "tools/call", Params: params})
	if resp.Error == nil || resp.Error.MachineTag != "INVALID_REQUEST" {
		t.Fatalf("resp = %+v, want INVALID_REQUEST", resp)
	}
}

func TestHandleRequestListRecentEmailsAfterUpsert(t *testing.T) {
	s := newTestService(t)
	msg := &models.Message{
		ID: "a@example.com:msg1", AccountID: "a@example.com",
		MessageIDHeader: "msg1", Subject: "hello", Date: time.Now(),
	}
	if err := s.deps.Store.UpsertEmail(context.Background(), msg); err != nil {
		t.Fatalf("UpsertEmail: %v", err)
	}

	params, _ := json.Marshal(toolCallParams{Name: "list_recent_emails", Arguments: map[string]any{"limit": float64(10)}})
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "tools/call", Params: params})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result := resp.Result.(map[string]any)
	emails := result["emails"].([]map[string]any)
	if len(emails) != 1 || emails[0]["id"] != msg.ID {
		t.Fatalf("emails = %+v", emails)
	}
}

func TestHandleRequestInitialize(t *testing.T) {
	s := newTestService(t)
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "initialize"})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleRequestToolsList(t *testing.T) {
	s := newTestService(t)
	resp := s.HandleRequest(context.Background(), Request{ID: 1, Method: "tools/list"})
	result := resp.Result.(map[string]any)
	tools := result["tools"].([]map[string]any)
	if len(tools) != 15 {
		t.Fatalf("tool count = %d, want 15", len(tools))
	}
}
