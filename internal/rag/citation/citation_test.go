package citation

import (
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

func TestExtractUsedRefs(t *testing.T) {
	cases := []struct {
		name string
		text string
		want []int
	}{
		{"simple", "Notice is 30 days [1].", []int{1}},
		{"multiple and repeated", "See [2] and [3], also [2].", []int{2, 3}},
		{"malformed ignored", "[a] [ 1] [1.5] [-2] [] [", nil},
		{"adjacent", "[1][4]", []int{1, 4}},
		{"none", "I don't know based on the provided documents.", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractUsedRefs(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("size: want=%d got=%d (%v)", len(tc.want), len(got), got)
			}
			for _, n := range tc.want {
				if _, ok := got[n]; !ok {
					t.Fatalf("missing ref %d in %v", n, got)
				}
			}
		})
	}
}

func TestFilterUsedKeepsRankOrder(t *testing.T) {
	results := []domain.MergedResult{
		{ID: "t:d:c1", Payload: domain.ChunkPayload{DocID: "d", ChunkID: "c1", Source: "a.txt"}},
		{ID: "t:d:c2", Payload: domain.ChunkPayload{DocID: "d", ChunkID: "c2", Source: "a.txt"}},
		{ID: "t:d:c3", Payload: domain.ChunkPayload{DocID: "d", ChunkID: "c3", Source: "a.txt"}},
	}
	all := FromResults(results)
	if all[2].Ref != 3 || all[2].ChunkID != "c3" {
		t.Fatalf("FromResults: got=%+v", all[2])
	}
	used := ExtractUsedRefs("answer [3] then [1] and [9]")
	got := FilterUsed(all, used)
	if len(got) != 2 || got[0].Ref != 1 || got[1].Ref != 3 {
		t.Fatalf("FilterUsed: got=%+v", got)
	}
}
