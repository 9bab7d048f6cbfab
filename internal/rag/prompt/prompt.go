// Package prompt renders the generation prompts for grounded answers and summaries.
package prompt

import (
	"fmt"
	"strings"

	"github.com/yungbote/rag-orchestrator/internal/domain"
)

// NoAnswer is returned without calling the generator when retrieval finds nothing.
const NoAnswer = "I don't know based on the provided documents."

// ContextBlocks numbers results 1..N in the order given.
func ContextBlocks(results []domain.MergedResult) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		p := r.Payload
		blocks = append(blocks, fmt.Sprintf(
			"[%d] source= %s doc_id= %s chunk_id= %s chunk_text= %s",
			i+1, p.Source, p.DocID, p.ChunkID, p.Text,
		))
	}
	return strings.Join(blocks, "\n\n")
}

// Grounded builds the question-answering prompt over ranked results.
func Grounded(query string, results []domain.MergedResult) string {
	var b strings.Builder
	b.WriteString("You are a careful assistant. Answer ONLY using the provided context.\n")
	b.WriteString("If the answer is not in the context, say you don't know and do not cite.\n")
	b.WriteString("Only cite when you actually used that chunk. Cite sources using [1], [2], etc.\n\n")
	b.WriteString("User question:\n")
	b.WriteString(query)
	b.WriteString("\n\nContext:\n")
	b.WriteString(ContextBlocks(results))
	b.WriteString("\n\nAnswer:\n")
	return b.String()
}

// DocumentSummary asks for a summary of a whole document that fits in one prompt.
func DocumentSummary(docText string) string {
	var b strings.Builder
	b.WriteString("You are a careful assistant.\n")
	b.WriteString("Task: Write a summary of the full document.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use ONLY the provided document text.\n")
	b.WriteString("- Do not invent facts.\n")
	b.WriteString("- Output format:\n")
	b.WriteString("  1) Executive summary (4-6 lines)\n")
	b.WriteString("  2) Key bullets (8-12 bullets)\n\n")
	b.WriteString("Document Text:\n")
	b.WriteString(docText)
	b.WriteString("\n\nSummary:\n")
	return b.String()
}

// PartialSummary is the map step for one section of a long document.
func PartialSummary(section string, part, total int) string {
	var b strings.Builder
	b.WriteString("You are a careful assistant.\n")
	fmt.Fprintf(&b, "Task: Summarize part %d of %d of a longer document.\n", part, total)
	b.WriteString("Rules:\n")
	b.WriteString("- Use ONLY the provided text.\n")
	b.WriteString("- Do not invent facts.\n")
	b.WriteString("- Keep names, numbers, dates and obligations exactly as written.\n")
	b.WriteString("- Output 5-10 concise bullets.\n\n")
	b.WriteString("Text:\n")
	b.WriteString(section)
	b.WriteString("\n\nPartial summary:\n")
	return b.String()
}

// ReduceSummary combines partial summaries into the final document summary.
func ReduceSummary(partials []string) string {
	var b strings.Builder
	b.WriteString("You are a careful assistant.\n")
	b.WriteString("Task: Combine the partial summaries below into one summary of the full document.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use ONLY the partial summaries.\n")
	b.WriteString("- Do not invent facts and do not repeat points.\n")
	b.WriteString("- Output format:\n")
	b.WriteString("  1) Executive summary (4-6 lines)\n")
	b.WriteString("  2) Key bullets (8-12 bullets)\n\n")
	b.WriteString("Partial summaries:\n")
	for i, p := range partials {
		fmt.Fprintf(&b, "\n--- Part %d ---\n%s\n", i+1, strings.TrimSpace(p))
	}
	b.WriteString("\nSummary:\n")
	return b.String()
}

// QueryGuidedSummary follows a user instruction over retrieved context.
func QueryGuidedSummary(instruction string, results []domain.MergedResult) string {
	var b strings.Builder
	b.WriteString("You are a careful assistant.\n")
	b.WriteString("Task: Write a summary according to the user's instruction.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use ONLY the provided context.\n")
	b.WriteString("- If the requested summary cannot be produced from the context, say you don't know and do not cite.\n")
	b.WriteString("- Cite sources using [1], [2], etc.\n\n")
	b.WriteString("User instruction:\n")
	b.WriteString(instruction)
	b.WriteString("\n\nContext:\n")
	b.WriteString(ContextBlocks(results))
	b.WriteString("\n\nSummary:\n")
	return b.String()
}
