package rag

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutortron-rag/internal/chromemdb"
	"tutortron-rag/internal/config"
	"tutortron-rag/internal/models"
	"tutortron-rag/internal/retriever"
)

// stubEmbedder returns fixed vectors: documents embed along the x axis,
// so a query vector at a chosen angle produces a known best similarity.
type stubEmbedder struct {
	queryVector []float32
	failAtBatch int
	batches     int
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	s.batches++
	if s.failAtBatch > 0 && s.batches >= s.failAtBatch {
		return nil, models.ErrEmbeddingService
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.queryVector == nil {
		return []float32{1, 0}, nil
	}
	return s.queryVector, nil
}

type stubGenerator struct {
	answer string
	err    error
	calls  int
}

func (s *stubGenerator) Generate(_ context.Context, _ models.Prompt) (string, error) {
	s.calls++
	return s.answer, s.err
}

func testConfig() *config.RAGConfig {
	return &config.RAGConfig{
		ChunkSize:           200,
		ChunkOverlap:        0,
		MinChunkChars:       10,
		SimilarityThreshold: 0.25,
		TopK:                8,
		MaxContextChars:     6000,
	}
}

func newPipeline(t *testing.T, embedder *stubEmbedder, generator *stubGenerator) (*RAG, *chromemdb.Store) {
	t.Helper()
	store, err := chromemdb.NewStore(&config.VectorStoreConfig{Collection: "test_docs", InMemory: true})
	require.NoError(t, err)
	ret := retriever.New(store, nil)
	return New(embedder, store, ret, generator, testConfig()), store
}

func TestQuery_EmptyCorpus(t *testing.T) {
	pipeline, _ := newPipeline(t, &stubEmbedder{}, &stubGenerator{answer: "unused"})

	_, err := pipeline.Query(context.Background(), QueryRequest{Question: "anything?", Threshold: 0.25})

	assert.ErrorIs(t, err, models.ErrEmptyCorpus)
}

func TestQuery_BelowThresholdIsDistinctFromEmptyCorpus(t *testing.T) {
	// query vector at cos 0.4 to the indexed documents
	angled := []float32{0.4, float32(math.Sqrt(1 - 0.4*0.4))}
	embedder := &stubEmbedder{queryVector: angled}
	pipeline, _ := newPipeline(t, embedder, &stubGenerator{answer: "unused"})

	_, err := pipeline.IngestText(context.Background(), "Office hours are on Tuesday afternoons in room 204.", "syllabus.pdf")
	require.NoError(t, err)

	_, err = pipeline.Query(context.Background(), QueryRequest{Question: "what about dinosaurs?", Threshold: 0.9})

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrBelowThreshold)
	assert.NotErrorIs(t, err, models.ErrEmptyCorpus)

	var thresholdErr *models.ThresholdError
	require.ErrorAs(t, err, &thresholdErr)
	assert.InDelta(t, 0.4, thresholdErr.BestScore, 1e-3)
}

func TestQuery_AnswersFromContext(t *testing.T) {
	generator := &stubGenerator{answer: "Office hours are Tuesday afternoons."}
	pipeline, _ := newPipeline(t, &stubEmbedder{}, generator)

	_, err := pipeline.IngestText(context.Background(), "Office hours are on Tuesday afternoons in room 204.", "syllabus.pdf")
	require.NoError(t, err)

	resp, err := pipeline.Query(context.Background(), QueryRequest{Question: "when are office hours?", Threshold: 0.25})

	require.NoError(t, err)
	assert.Equal(t, "Office hours are Tuesday afternoons.", resp.Content)
	assert.Equal(t, "syllabus.pdf", resp.Source)
	assert.Equal(t, 1, generator.calls)
}

func TestQuery_GenerationFailureSurfacesTypedError(t *testing.T) {
	generator := &stubGenerator{err: models.ErrGenerationService}
	pipeline, _ := newPipeline(t, &stubEmbedder{}, generator)

	_, err := pipeline.IngestText(context.Background(), "Office hours are on Tuesday afternoons in room 204.", "syllabus.pdf")
	require.NoError(t, err)

	_, err = pipeline.Query(context.Background(), QueryRequest{Question: "when?", Threshold: 0.25})

	assert.ErrorIs(t, err, models.ErrGenerationService)
}

func TestIngestText_Idempotent(t *testing.T) {
	pipeline, store := newPipeline(t, &stubEmbedder{}, &stubGenerator{})
	text := "The midterm covers chapters one through four.\n\nThe final covers everything."

	first, err := pipeline.IngestText(context.Background(), text, "schedule.pdf")
	require.NoError(t, err)
	countAfterFirst := store.Count()

	second, err := pipeline.IngestText(context.Background(), text, "schedule.pdf")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, countAfterFirst, store.Count())
}

func TestIngestText_EmbeddingFailureIndexesNothing(t *testing.T) {
	embedder := &stubEmbedder{failAtBatch: 1}
	pipeline, store := newPipeline(t, embedder, &stubGenerator{})

	_, err := pipeline.IngestText(context.Background(), "Some content that would have been indexed.", "doc.pdf")

	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrEmbeddingService)
	assert.Equal(t, 0, store.Count())
}

func TestIngestText_EmptyDocument(t *testing.T) {
	pipeline, _ := newPipeline(t, &stubEmbedder{}, &stubGenerator{})

	_, err := pipeline.IngestText(context.Background(), "   ", "empty.pdf")

	assert.ErrorIs(t, err, models.ErrNoTextExtracted)
}

func TestIngestFile_MissingFile(t *testing.T) {
	pipeline, _ := newPipeline(t, &stubEmbedder{}, &stubGenerator{})

	_, err := pipeline.IngestFile(context.Background(), "/nonexistent/file.txt", "file.txt")

	assert.Error(t, err)
}

func TestQuery_FailedQueryRestartsCleanly(t *testing.T) {
	embedder := &stubEmbedder{}
	generator := &stubGenerator{answer: "ok", err: errors.New("transient")}
	pipeline, _ := newPipeline(t, embedder, generator)

	_, err := pipeline.IngestText(context.Background(), "Office hours are on Tuesday afternoons in room 204.", "syllabus.pdf")
	require.NoError(t, err)

	_, err = pipeline.Query(context.Background(), QueryRequest{Question: "when?", Threshold: 0.25})
	require.Error(t, err)

	// no retained state: a fresh query runs the whole pipeline again
	generator.err = nil
	resp, err := pipeline.Query(context.Background(), QueryRequest{Question: "when?", Threshold: 0.25})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, 2, generator.calls)
}
