package search

import "sort"

// rrfK is the Reciprocal Rank Fusion rank-damping constant (spec.md §4.6
// step 3 / §8's monotonicity law).
const rrfK = 60.0

// rankedID is one entry in a single branch's ranked result list.
type rankedID struct {
	ID   string
	Rank int // 1-indexed
}

// rrfFuse combines ranked results from two branches (bm25Ranks,
// vectorRanks), each weighted, into a single descending-score ordering of
// ids plus each id's fused score. The fusion math doesn't depend on the
// row shape, so callers batch-fetch full rows afterward.
func rrfFuse(bm25Ranks, vectorRanks []rankedID, bm25Weight, vectorWeight float64) (order []string, scores map[string]float64) {
	scores = make(map[string]float64)
	order = make([]string, 0, len(bm25Ranks)+len(vectorRanks))

	add := func(ranks []rankedID, weight float64) {
		for _, r := range ranks {
			if _, seen := scores[r.ID]; !seen {
				order = append(order, r.ID)
			}
			scores[r.ID] += weight / (rrfK + float64(r.Rank))
		}
	}
	add(bm25Ranks, bm25Weight)
	add(vectorRanks, vectorWeight)

	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})
	return order, scores
}
