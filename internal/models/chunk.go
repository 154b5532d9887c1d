package models

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// Chunk is a bounded contiguous passage of a source document, the unit of
// indexing and retrieval. The ID is the hash of the normalized chunk text,
// so re-ingesting identical content is an upsert, not a duplicate insert.
type Chunk struct {
	ID            string
	Text          string
	Source        string
	SequenceIndex int
	CreatedAt     time.Time
}

// NewChunk builds a chunk with its content-addressed id.
func NewChunk(text, source string, sequenceIndex int) Chunk {
	text = strings.TrimSpace(text)
	return Chunk{
		ID:            HashContent(text),
		Text:          text,
		Source:        source,
		SequenceIndex: sequenceIndex,
		CreatedAt:     time.Now().UTC(),
	}
}

// HashContent returns the deterministic id for a piece of chunk text.
func HashContent(text string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// RetrievalResult is one scored passage from a query. RerankScore is set
// only when cross-encoder reranking was applied.
type RetrievalResult struct {
	Chunk       Chunk
	Similarity  float32
	RerankScore *float64
}

// Prompt is the composed input for the generator. It is never persisted.
type Prompt struct {
	Question string
	Context  string
	Text     string
}

// PromptResponse is the answer returned by the query path.
type PromptResponse struct {
	Query   string
	Source  string
	Content string
}
