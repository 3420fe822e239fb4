package domain

import "sort"

// DiversityCandidate is a scored item considered by RerankForDiversity.
type DiversityCandidate struct {
	ProblemID  string
	CategoryID string
	Score      float64
}

// RerankForDiversity orders candidates by score, keeps the top 2*limit and then greedily selects
// limit of them. The first pick is always the best scored; each later pick is the candidate within
// the next lookahead unselected ones that maximizes
//
//	score*(1-diversity) + diversity*dissimilarity
//
// where dissimilarity is the share of already selected items from a different category.
// With diversity 0 the top limit candidates are returned in score order.
func RerankForDiversity(
	candidates []DiversityCandidate,
	limit int,
	diversity float64,
	lookahead int,
) []DiversityCandidate {
	if limit <= 0 || len(candidates) == 0 {
		return nil
	}

	pool := make([]DiversityCandidate, len(candidates))
	copy(pool, candidates)
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return pool[i].ProblemID < pool[j].ProblemID
	})

	if len(pool) > 2*limit {
		pool = pool[:2*limit]
	}

	if diversity <= 0 {
		if len(pool) > limit {
			pool = pool[:limit]
		}
		return pool
	}
	if lookahead < 1 {
		lookahead = 1
	}

	selected := make([]DiversityCandidate, 0, limit)
	selected = append(selected, pool[0])
	remaining := pool[1:]
	categoryCounts := map[string]int{pool[0].CategoryID: 1}

	for len(selected) < limit && len(remaining) > 0 {
		window := min(lookahead, len(remaining))

		bestIdx := 0
		bestValue := -1.0
		for i := 0; i < window; i++ {
			c := remaining[i]
			dissimilarity := 1 - float64(categoryCounts[c.CategoryID])/float64(len(selected))
			value := c.Score*(1-diversity) + diversity*dissimilarity
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}

		pick := remaining[bestIdx]
		selected = append(selected, pick)
		categoryCounts[pick.CategoryID]++
		remaining = append(remaining[:bestIdx:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}
