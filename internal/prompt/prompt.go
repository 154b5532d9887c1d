package prompt

import (
	"fmt"
	"strings"

	"tutortron-rag/internal/models"
)

// ContextPassages caps how many retrieved passages feed the prompt. It is
// deliberately independent of the retrieval top_k: retrieval casts a wide
// net, the prompt stays focused.
const ContextPassages = 3

// Assemble merges the top retrieved passages into a bounded context window
// and fills the fixed instruction template. The joined context is truncated
// to maxContextChars by dropping whole passages from the tail, never by
// cutting mid-passage, so the generator is never fed a broken sentence.
func Assemble(question string, results []models.RetrievalResult, maxContextChars int) models.Prompt {
	passages := make([]string, 0, ContextPassages)
	for i, res := range results {
		if i >= ContextPassages {
			break
		}
		passages = append(passages, res.Chunk.Text)
	}

	joined := strings.Join(passages, models.ContextSeparator)
	for maxContextChars > 0 && len(joined) > maxContextChars && len(passages) > 1 {
		passages = passages[:len(passages)-1]
		joined = strings.Join(passages, models.ContextSeparator)
	}

	return models.Prompt{
		Question: question,
		Context:  joined,
		Text:     fmt.Sprintf(models.PromptTemplate, joined, question),
	}
}
