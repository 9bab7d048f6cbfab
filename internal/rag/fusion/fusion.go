// Package fusion combines lexical and vector result lists into one hybrid ranking.
package fusion

import (
	"sort"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

const (
	DefaultBM25Weight   = 0.5
	DefaultVectorWeight = 0.5
	DefaultTopK         = 8
)

// Merge normalizes each list by its own max score, unions hits by id and ranks them by
// wBM25*normBM25 + wVec*normVec. Ties keep first-seen order (bm25 list first).
// The inputs are not modified.
func Merge(bm25, vec []domain.RetrievalHit, wBM25, wVec float64, topK int) []domain.MergedResult {
	if topK <= 0 {
		return []domain.MergedResult{}
	}
	maxB := maxScore(bm25)
	maxV := maxScore(vec)

	type entry struct {
		res   domain.MergedResult
		normB float64
		normV float64
	}
	byID := make(map[string]*entry, len(bm25)+len(vec))
	order := make([]string, 0, len(bm25)+len(vec))

	get := func(h domain.RetrievalHit) *entry {
		e, ok := byID[h.ID]
		if !ok {
			e = &entry{res: domain.MergedResult{ID: h.ID, Payload: h.Payload}}
			byID[h.ID] = e
			order = append(order, h.ID)
		}
		return e
	}
	for _, h := range bm25 {
		e := get(h)
		e.res.BM25Score = h.Score
		e.normB = h.Score / maxB
	}
	for _, h := range vec {
		e := get(h)
		e.res.VectorScore = h.Score
		e.normV = h.Score / maxV
	}

	out := make([]domain.MergedResult, 0, len(order))
	for _, id := range order {
		e := byID[id]
		e.res.HybridScore = wBM25*e.normB + wVec*e.normV
		out = append(out, e.res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].HybridScore > out[j].HybridScore
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// maxScore treats an empty list or a zero max as 1 so normalization never divides by zero.
func maxScore(hits []domain.RetrievalHit) float64 {
	m := 0.0
	for _, h := range hits {
		if h.Score > m {
			m = h.Score
		}
	}
	if m == 0 {
		return 1
	}
	return m
}
