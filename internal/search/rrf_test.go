package search

import "testing"

func TestRRFFuseHandComputed(t *testing.T) {
	// bm25 branch: A rank 1, B rank 2
	// vector branch: B rank 1, C rank 2
	// weights: bm25=1.0, vector=0.5
	bm25 := []rankedID{{ID: "A", Rank: 1}, {ID: "B", Rank: 2}}
	vector := []rankedID{{ID: "B", Rank: 1}, {ID: "C", Rank: 2}}

	order, scores := rrfFuse(bm25, vector, 1.0, 0.5)

	wantA := 1.0 / (60 + 1)
	wantB := 1.0/(60+2) + 0.5/(60+1)
	wantC := 0.5 / (60 + 2)

	const eps = 1e-9
	if abs(scores["A"]-wantA) > eps {
		t.Fatalf("A score = %v, want %v", scores["A"], wantA)
	}
	if abs(scores["B"]-wantB) > eps {
		t.Fatalf("B score = %v, want %v", scores["B"], wantB)
	}
	if abs(scores["C"]-wantC) > eps {
		t.Fatalf("C score = %v, want %v", scores["C"], wantC)
	}

	// B has the highest fused score (appears first in both branches).
	if order[0] != "B" {
		t.Fatalf("expected B to rank first, got order %v", order)
	}
}

func TestRRFFuseEmptyBranches(t *testing.T) {
	order, scores := rrfFuse(nil, nil, 1.0, 1.0)
	if len(order) != 0 || len(scores) != 0 {
		t.Fatalf("expected empty fusion result, got order=%v scores=%v", order, scores)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
