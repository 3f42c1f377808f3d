package syncmanager

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// ProgressSnapshot is the JSON shape written to sync_progress.json (spec.md
// §6.1, "rewritten atomically") and streamed over the admin status socket.
type ProgressSnapshot struct {
	GeneratedAt time.Time                  `json:"generated_at"`
	Accounts    map[string]AccountSnapshot `json:"accounts"`
}

type AccountSnapshot struct {
	IsSyncing        bool       `json:"is_syncing"`
	LastSyncEmail    *time.Time `json:"last_sync_email,omitempty"`
	LastSyncCalendar *time.Time `json:"last_sync_calendar,omitempty"`
	EmailCount       int64      `json:"email_count"`
	EventCount       int64      `json:"event_count"`
	LastError        string     `json:"last_error,omitempty"`
	Phase            string     `json:"initial_sync_phase"`
	EmailsIngested   int64      `json:"initial_sync_emails_ingested"`
	EventsIngested   int64      `json:"initial_sync_events_ingested"`
	ETASeconds       float64    `json:"initial_sync_eta_seconds,omitempty"`
}

// Snapshot returns a point-in-time copy of every known account's sync
// state, used both by WriteProgress and by the admin status push server.
func (m *Manager) Snapshot() ProgressSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := ProgressSnapshot{GeneratedAt: time.Now(), Accounts: make(map[string]AccountSnapshot, len(m.states))}
	for id, st := range m.states {
		eta := st.InitialSync.ETA()
		snap.Accounts[id] = AccountSnapshot{
			IsSyncing:        st.IsSyncing,
			LastSyncEmail:    st.LastSyncEmail,
			LastSyncCalendar: st.LastSyncCalendar,
			EmailCount:       st.EmailCount,
			EventCount:       st.EventCount,
			LastError:        st.LastError,
			Phase:            string(st.InitialSync.Phase),
			EmailsIngested:   st.InitialSync.EmailsIngested,
			EventsIngested:   st.InitialSync.EventsIngested,
			ETASeconds:       eta.Seconds(),
		}
	}
	return snap
}

// WriteProgress snapshots every known account's sync state to path,
// writing to a temp file in the same directory and renaming over the
// destination so readers (the admin CLI, a crashed-daemon recovery path)
// never observe a partially written file.
func (m *Manager) WriteProgress(path string) error {
	snap := m.Snapshot()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return geerrors.Internal(err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".sync_progress-*.tmp")
	if err != nil {
		return geerrors.Internal(err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return geerrors.Internal(err)
	}
	if err := tmp.Close(); err != nil {
		return geerrors.Internal(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return geerrors.Internal(err)
	}
	return nil
}
