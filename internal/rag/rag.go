package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"tutortron-rag/internal/chunker"
	"tutortron-rag/internal/config"
	"tutortron-rag/internal/extract"
	"tutortron-rag/internal/models"
	"tutortron-rag/internal/prompt"
	"tutortron-rag/internal/retriever"
)

// Embedder maps text to vectors via the external embedding model.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Index persists chunk vectors and answers similarity searches.
type Index interface {
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]models.RetrievalResult, error)
}

// Generator produces the final answer for an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, p models.Prompt) (string, error)
}

// query states, logged as each query progresses. A failed query is not
// resumable; it restarts from embedding.
const (
	stateEmbedding  = "EMBEDDING"
	stateRetrieving = "RETRIEVING"
	stateReranking  = "RERANKING"
	stateAssembling = "ASSEMBLING"
	stateGenerating = "GENERATING"
	stateDone       = "DONE"
	stateFailed     = "FAILED"
)

// RAG wires the ingestion and query pipelines. All collaborators are
// injected once at process start; nothing is created implicitly
// mid-request.
type RAG struct {
	embedder  Embedder
	index     Index
	retriever *retriever.Retriever
	generator Generator
	cfg       *config.RAGConfig
}

func New(embedder Embedder, index Index, ret *retriever.Retriever, generator Generator, cfg *config.RAGConfig) *RAG {
	return &RAG{embedder: embedder, index: index, retriever: ret, generator: generator, cfg: cfg}
}

// IngestFile extracts, chunks, embeds and indexes one document.
// Returns the number of chunks indexed. A failure leaves already-upserted
// chunks in place (per-chunk content hashing makes re-ingestion safe) but
// is always reported, never hidden.
func (r *RAG) IngestFile(ctx context.Context, path, source string) (int, error) {
	text, err := extract.Text(path)
	if err != nil {
		return 0, err
	}
	return r.IngestText(ctx, text, source)
}

// IngestText runs the ingestion pipeline over already-extracted text.
func (r *RAG) IngestText(ctx context.Context, text, source string) (int, error) {
	pieces := chunker.Split(text, chunker.Options{
		MaxChars:     r.cfg.ChunkSize,
		OverlapChars: r.cfg.ChunkOverlap,
		MinChars:     r.cfg.MinChunkChars,
	})
	if len(pieces) == 0 {
		return 0, models.ErrNoTextExtracted
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.NewChunk(piece, source, i)
	}

	vectors, err := r.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return 0, err
	}

	if err := r.index.Upsert(ctx, chunks, vectors); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrSearchService, err)
	}

	log.Info().Str("source", source).Int("chunks", len(chunks)).Msg("Indexed document")
	return len(chunks), nil
}

// QueryRequest carries one question through the query pipeline.
type QueryRequest struct {
	Question  string
	Threshold float32
	TopK      int
	Rerank    bool
}

// Query answers a question from the indexed corpus. Typed errors let the
// caller distinguish an empty corpus, an irrelevant best match, and
// external service failures.
func (r *RAG) Query(ctx context.Context, req QueryRequest) (*models.PromptResponse, error) {
	if req.TopK <= 0 {
		req.TopK = r.cfg.TopK
	}

	logState(req.Question, stateEmbedding)
	vector, err := r.embedder.EmbedQuery(ctx, req.Question)
	if err != nil {
		logState(req.Question, stateFailed)
		return nil, err
	}

	logState(req.Question, stateRetrieving)
	results, err := r.retriever.Retrieve(ctx, vector, req.Question, retriever.Params{
		TopK:      req.TopK,
		Threshold: req.Threshold,
		Rerank:    req.Rerank,
	})
	if err != nil {
		logState(req.Question, stateFailed)
		return nil, err
	}

	logState(req.Question, stateAssembling)
	p := prompt.Assemble(req.Question, results, r.cfg.MaxContextChars)

	logState(req.Question, stateGenerating)
	answer, err := r.generator.Generate(ctx, p)
	if err != nil {
		logState(req.Question, stateFailed)
		return nil, err
	}

	logState(req.Question, stateDone)
	return &models.PromptResponse{
		Query:   req.Question,
		Source:  results[0].Chunk.Source,
		Content: answer,
	}, nil
}

func logState(question, state string) {
	q := question
	if len(q) > 80 {
		q = q[:80]
	}
	log.Debug().Str("state", state).Str("question", q).Msg("Query state")
}
