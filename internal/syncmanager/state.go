package syncmanager

import "time"

// InitialSyncPhase names where a first-time backfill currently stands.
type InitialSyncPhase string

const (
	PhaseNotStarted InitialSyncPhase = "not_started"
	PhaseEmail      InitialSyncPhase = "email"
	PhaseCalendar   InitialSyncPhase = "calendar"
	PhaseDone       InitialSyncPhase = "done"
)

// InitialSyncProgress reports backfill throughput for the admin surface
// and get_sync_status, per spec.md §4.9.
type InitialSyncProgress struct {
	Phase          InitialSyncPhase
	EmailsIngested int64
	EventsIngested int64
	StartedAt      time.Time
	LastProgressAt time.Time
	EstimatedTotal int64
}

// throughputPerMin returns ingested-per-minute for the phase currently in
// progress, used to derive an ETA.
func (p *InitialSyncProgress) throughputPerMin(ingested int64) float64 {
	elapsed := time.Since(p.StartedAt).Minutes()
	if elapsed <= 0 {
		return 0
	}
	return float64(ingested) / elapsed
}

// ETA estimates time remaining for the in-progress phase, or zero if there
// isn't enough data yet to estimate.
func (p *InitialSyncProgress) ETA() time.Duration {
	var ingested int64
	switch p.Phase {
	case PhaseEmail:
		ingested = p.EmailsIngested
	case PhaseCalendar:
		ingested = p.EventsIngested
	default:
		return 0
	}
	rate := p.throughputPerMin(ingested)
	if rate <= 0 || p.EstimatedTotal <= ingested {
		return 0
	}
	remaining := float64(p.EstimatedTotal - ingested)
	return time.Duration(remaining/rate) * time.Minute
}

// AccountSyncState is the live, in-memory sync status for one account,
// read by get_sync_status and updated by the orchestration methods in
// manager.go.
type AccountSyncState struct {
	IsSyncing        bool
	LastSyncEmail    *time.Time
	LastSyncCalendar *time.Time
	EmailCount       int64
	EventCount       int64
	LastError        string

	InitialSync InitialSyncProgress
}

func newAccountSyncState() *AccountSyncState {
	return &AccountSyncState{InitialSync: InitialSyncProgress{Phase: PhaseNotStarted}}
}
