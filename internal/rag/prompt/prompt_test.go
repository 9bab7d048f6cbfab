package prompt

import (
	"strings"
	"testing"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

func results() []domain.MergedResult {
	return []domain.MergedResult{
		{ID: "t:d1:c2", Payload: domain.ChunkPayload{Source: "contract.pdf", DocID: "d1", ChunkID: "c2", Text: "Notice period is 30 days."}},
		{ID: "t:d1:c1", Payload: domain.ChunkPayload{Source: "contract.pdf", DocID: "d1", ChunkID: "c1", Text: "Termination requires notice."}},
	}
}

func TestGroundedNumbersBlocksInOrder(t *testing.T) {
	p := Grounded("What is the notice period?", results())
	first := strings.Index(p, "[1] source= contract.pdf doc_id= d1 chunk_id= c2 chunk_text= Notice period is 30 days.")
	second := strings.Index(p, "[2] source= contract.pdf doc_id= d1 chunk_id= c1 chunk_text= Termination requires notice.")
	if first < 0 || second < 0 || second < first {
		t.Fatalf("blocks missing or out of order:\n%s", p)
	}
	for _, want := range []string{
		"Answer ONLY using the provided context",
		"say you don't know and do not cite",
		"Cite sources using [1], [2], etc.",
		"User question:\nWhat is the notice period?",
	} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(p, "Answer:\n") {
		t.Fatalf("prompt should end with Answer:")
	}
}

func TestSummaryPrompts(t *testing.T) {
	doc := DocumentSummary("full text here")
	for _, want := range []string{"Executive summary (4-6 lines)", "Key bullets (8-12 bullets)", "Do not invent facts", "full text here"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document summary missing %q", want)
		}
	}

	part := PartialSummary("section body", 2, 3)
	if !strings.Contains(part, "part 2 of 3") || !strings.Contains(part, "section body") {
		t.Fatalf("partial prompt:\n%s", part)
	}

	reduce := ReduceSummary([]string{"alpha", "  beta  "})
	if !strings.Contains(reduce, "--- Part 1 ---\nalpha") || !strings.Contains(reduce, "--- Part 2 ---\nbeta") {
		t.Fatalf("reduce prompt:\n%s", reduce)
	}
	if !strings.Contains(reduce, "Do not invent facts") {
		t.Fatalf("reduce prompt must forbid invention")
	}

	guided := QueryGuidedSummary("Summarize termination terms", results())
	if !strings.Contains(guided, "User instruction:\nSummarize termination terms") ||
		!strings.Contains(guided, "say you don't know") ||
		!strings.Contains(guided, "[2] source= contract.pdf") {
		t.Fatalf("query guided prompt:\n%s", guided)
	}
}
