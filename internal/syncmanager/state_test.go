package syncmanager

import (
	"testing"
	"time"
)

func TestInitialSyncProgressETAZeroWithoutData(t *testing.T) {
	p := &InitialSyncProgress{Phase: PhaseEmail, StartedAt: time.Now(), EstimatedTotal: 1000}
	if eta := p.ETA(); eta != 0 {
		t.Fatalf("ETA = %v, want 0 with no progress yet", eta)
	}
}

func TestInitialSyncProgressETAEstimatesRemaining(t *testing.T) {
	p := &InitialSyncProgress{
		Phase:          PhaseEmail,
		StartedAt:      time.Now().Add(-10 * time.Minute),
		EmailsIngested: 100,
		EstimatedTotal: 200,
	}
	eta := p.ETA()
	if eta <= 0 {
		t.Fatalf("ETA = %v, want positive estimate", eta)
	}
}

func TestInitialSyncProgressETADoneWhenPhaseNotTracked(t *testing.T) {
	p := &InitialSyncProgress{Phase: PhaseDone, StartedAt: time.Now().Add(-time.Hour)}
	if eta := p.ETA(); eta != 0 {
		t.Fatalf("ETA = %v, want 0 once phase is done", eta)
	}
}
