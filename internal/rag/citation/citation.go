// Package citation finds which numbered context blocks a generated answer refers to.
package citation

import (
	"regexp"
	"strconv"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

var refPattern = regexp.MustCompile(`\[(\d+)\]`)

// ExtractUsedRefs returns the set of integers n appearing as "[n]" in text.
func ExtractUsedRefs(text string) map[int]struct{} {
	out := map[int]struct{}{}
	for _, m := range refPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		out[n] = struct{}{}
	}
	return out
}

// FromResults numbers results 1..N in ranked order.
func FromResults(results []domain.MergedResult) []domain.Citation {
	out := make([]domain.Citation, 0, len(results))
	for i, r := range results {
		out = append(out, domain.Citation{
			Ref:     i + 1,
			ID:      r.ID,
			Source:  r.Payload.Source,
			DocID:   r.Payload.DocID,
			ChunkID: r.Payload.ChunkID,
		})
	}
	return out
}

// FilterUsed keeps the citations whose ref is in used, preserving order.
// Refs outside the available range are ignored.
func FilterUsed(all []domain.Citation, used map[int]struct{}) []domain.Citation {
	out := make([]domain.Citation, 0, len(used))
	for _, c := range all {
		if _, ok := used[c.Ref]; ok {
			out = append(out, c)
		}
	}
	return out
}
