package syncmanager

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jamiequint/groundeffect/internal/columnstore"
	"github.com/jamiequint/groundeffect/internal/ratelimit"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()
	store, err := columnstore.Open(context.Background(), filepath.Join(dir, "ge.db"))
	if err != nil {
		t.Fatalf("columnstore.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, nil, nil, ratelimit.New(10))
}

func TestManagerStateForCreatesOnFirstAccess(t *testing.T) {
	m := newTestManager(t)
	if st := m.State("missing@example.com"); st != nil {
		t.Fatalf("State for unknown account = %+v, want nil", st)
	}
	st := m.stateFor("a@example.com")
	if st.InitialSync.Phase != PhaseNotStarted {
		t.Fatalf("phase = %q, want not_started", st.InitialSync.Phase)
	}
	if got := m.State("a@example.com"); got == nil {
		t.Fatal("State should return the state created by stateFor")
	}
}

func TestManagerPublishDropsWhenBusFull(t *testing.T) {
	m := newTestManager(t)
	for i := 0; i < eventBusCapacity; i++ {
		m.publish(SyncEvent{Kind: EventNewEmail, AccountID: "a"})
	}
	// One more publish should not block even though the channel is full.
	m.publish(SyncEvent{Kind: EventNewEmail, AccountID: "a"})
	if len(m.events) != eventBusCapacity {
		t.Fatalf("events len = %d, want %d", len(m.events), eventBusCapacity)
	}
}

func TestManagerWriteProgressIsAtomicAndReadable(t *testing.T) {
	m := newTestManager(t)
	st := m.stateFor("a@example.com")
	st.EmailCount = 5

	dir := t.TempDir()
	path := filepath.Join(dir, "sync_progress.json")
	if err := m.WriteProgress(path); err != nil {
		t.Fatalf("WriteProgress: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var snap ProgressSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if snap.Accounts["a@example.com"].EmailCount != 5 {
		t.Fatalf("email count = %d, want 5", snap.Accounts["a@example.com"].EmailCount)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "sync_progress.json" {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}
