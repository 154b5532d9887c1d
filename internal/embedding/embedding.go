package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms/openai"

	"tutortron-rag/internal/config"
	"tutortron-rag/internal/models"
)

// Client embeds text through an OpenAI-compatible embeddings endpoint.
// Construct once at process start and inject into the pipeline.
type Client struct {
	llm       *openai.LLM
	batchSize int
}

// NewClient creates a new embedder from the embed_llm config section.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.ResolvedKey(), "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Client{llm: llm, batchSize: batchSize}, nil
}

// EmbedBatch maps texts to vectors, same length and order as the input.
// The input is split into fixed-size batches to respect payload limits;
// batches are issued sequentially and concatenated in batch order. Any
// batch failure aborts the whole call so callers never index a document
// with vectors missing for some chunks.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		batchVectors, err := c.llm.CreateEmbedding(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d: %v", models.ErrEmbeddingService, start/c.batchSize+1, err)
		}
		if len(batchVectors) != len(batch) {
			return nil, fmt.Errorf("%w: batch %d returned %d vectors for %d texts",
				models.ErrEmbeddingService, start/c.batchSize+1, len(batchVectors), len(batch))
		}
		vectors = append(vectors, batchVectors...)
		log.Debug().Int("batch", start/c.batchSize+1).Int("size", len(batch)).Msg("Embedded batch")
	}
	return vectors, nil
}

// EmbedQuery embeds a single question for retrieval.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrEmbeddingService, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 vector, got %d", models.ErrEmbeddingService, len(vectors))
	}
	return vectors[0], nil
}
