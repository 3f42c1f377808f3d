package statuspush

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
	"github.com/jamiequint/groundeffect/internal/syncmanager"
)

func TestHandlerStreamsSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := columnstore.Open(context.Background(), filepath.Join(dir, "ge.db"))
	if err != nil {
		t.Fatalf("columnstore.Open: %v", err)
	}
	defer store.Close()

	manager := syncmanager.New(store, nil, nil, ratelimit.New(10))
	srv := New(manager, 20*time.Millisecond)

	ts := httptest.NewServer(http.HandlerFunc(srv.Handler))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap syncmanager.ProgressSnapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if snap.Accounts == nil {
		t.Fatalf("expected an (empty) accounts map, got nil")
	}
}
