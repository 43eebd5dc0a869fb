package assignments

import (
	"sort"

	"github.com/luismarin-dev/ordena-backend/pkg/storefront"
)

// mergeCandidates folds the per-filter fetch results into one candidate list:
// duplicates collapse onto their first occurrence, orders without a resolvable
// identifier are dropped, and the remainder is sorted oldest-first. Zero
// timestamps sort oldest so unparseable orders are not starved.
func mergeCandidates(pages [][]storefront.Order) []CandidateOrder {
	seen := make(map[string]struct{})
	var candidates []CandidateOrder
	for _, page := range pages {
		for _, order := range page {
			id := order.ResolvedID()
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			candidates = append(candidates, newCandidate(order, 0))
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PlacedAt.Before(candidates[j].PlacedAt)
	})
	for i := range candidates {
		candidates[i].FetchIndex = i
	}
	return candidates
}

// rankCandidates drops already-claimed orders and re-orders the rest with a
// composite key: priority-registry rank first, fetch order second. Orders
// absent from the registry rank last while keeping FIFO among themselves.
func rankCandidates(candidates []CandidateOrder, ranks map[string]int, claimed map[string]struct{}) []CandidateOrder {
	eligible := make([]CandidateOrder, 0, len(candidates))
	for _, candidate := range candidates {
		if _, taken := claimed[candidate.OrderID]; taken {
			continue
		}
		eligible = append(eligible, candidate)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		ri, iFlagged := ranks[eligible[i].OrderID]
		rj, jFlagged := ranks[eligible[j].OrderID]
		switch {
		case iFlagged && jFlagged:
			return ri < rj
		case iFlagged != jFlagged:
			return iFlagged
		default:
			return eligible[i].FetchIndex < eligible[j].FetchIndex
		}
	})
	return eligible
}
