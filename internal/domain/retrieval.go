package domain

import "sort"

// RetrievalHit is one result from a single retrieval list.
type RetrievalHit struct {
	ID      string       `json:"id"`
	Score   float64      `json:"score"`
	Payload ChunkPayload `json:"payload"`
}

// TopHits orders hits by descending score (ties by id) and keeps at most k.
func TopHits(hits []RetrievalHit, k int) []RetrievalHit {
	if k <= 0 {
		return []RetrievalHit{}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// MergedResult is a hybrid-ranked result with both raw scores preserved.
type MergedResult struct {
	ID          string       `json:"id"`
	Payload     ChunkPayload `json:"payload"`
	BM25Score   float64      `json:"bm25_score"`
	VectorScore float64      `json:"vector_score"`
	HybridScore float64      `json:"hybrid_score"`
}

// Citation references a context block by its 1-based position in the prompt.
type Citation struct {
	Ref     int    `json:"ref"`
	ID      string `json:"id"`
	Source  string `json:"source"`
	DocID   string `json:"doc_id"`
	ChunkID string `json:"chunk_id"`
}

// Timings are per-stage latencies of a RAG request in milliseconds.
type Timings struct {
	EmbedMs    int64 `json:"embed_ms"`
	RetrieveMs int64 `json:"retrieve_ms"`
	GenerateMs int64 `json:"generate_ms"`
	TotalMs    int64 `json:"total_ms"`
}
