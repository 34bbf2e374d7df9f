package biz

import (
	"sort"

	"github.com/kart-io/evidence-x/internal/model"
	"github.com/kart-io/evidence-x/internal/pkg/textutil"
)

// Rank scores every chunk in pool against query and returns the topK best,
// highest first. Ties keep pool order. topK below 1 is treated as 1; the
// result has min(topK, len(pool)) items.
//
// Chunks with a zero vector, or a vector whose dimension differs from the
// query, score -1.
func Rank(query []float32, pool []model.EmbeddedChunk, topK int) []model.EvidenceItem {
	if topK < 1 {
		topK = 1
	}

	scores := make([]float64, len(pool))
	order := make([]int, len(pool))
	for i := range pool {
		scores[i] = textutil.CosineSimilarity(query, pool[i].Vector)
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	n := min(topK, len(pool))
	items := make([]model.EvidenceItem, n)
	for rank, idx := range order[:n] {
		items[rank] = model.EvidenceItem{
			Rank:  rank + 1,
			Chunk: pool[idx].Chunk,
			Score: scores[idx],
		}
	}
	return items
}
