package retrieval

import "sort"

// RankedItem is one entry of a retriever's ranked output list, in rank
// order starting at the most relevant.
type RankedItem struct {
	Key   string
	Score float64
}

// fuse combines two already-ranked lists via Reciprocal Rank Fusion (spec
// §4.9 step 2): rank i (1-based) in a list with weight w contributes
// w/(rrfK+i) to that key's fused score; a key absent from a list
// contributes nothing from it. Ties break by key ascending for
// determinism (spec §8 "Fusion tie-break").
func fuse(lexical, semantic []RankedItem, rrfK float64, lexicalWeight, semanticWeight float64) []RankedItem {
	scores := make(map[string]float64)
	order := make([]string, 0, len(lexical)+len(semantic))

	add := func(items []RankedItem, weight float64) {
		for i, item := range items {
			rank := float64(i + 1)
			if _, seen := scores[item.Key]; !seen {
				order = append(order, item.Key)
			}
			scores[item.Key] += weight / (rrfK + rank)
		}
	}
	add(lexical, lexicalWeight)
	add(semantic, semanticWeight)

	fused := make([]RankedItem, 0, len(order))
	for _, key := range order {
		fused = append(fused, RankedItem{Key: key, Score: scores[key]})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return fused[i].Key < fused[j].Key
	})

	return fused
}
