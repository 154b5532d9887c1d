package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"tutortron-rag/internal/models"
)

// Index is the nearest-neighbour search the retriever drives.
type Index interface {
	Search(ctx context.Context, vector []float32, topK int) ([]models.RetrievalResult, error)
}

// Scorer is a cross-encoder scoring service for (question, passage) pairs.
type Scorer interface {
	Available() bool
	Score(ctx context.Context, question string, passages []string) ([]float64, error)
}

// Params tune one retrieval call.
type Params struct {
	TopK      int
	Threshold float32
	Rerank    bool
}

// Retriever turns a question vector into a ranked, threshold-gated,
// optionally reranked set of supporting passages.
type Retriever struct {
	index  Index
	scorer Scorer
}

func New(index Index, scorer Scorer) *Retriever {
	return &Retriever{index: index, scorer: scorer}
}

// Retrieve queries the index for the nearest neighbours and applies the
// similarity gate. ErrEmptyCorpus means nothing is indexed at all; a
// ThresholdError means the best candidate was not relevant enough. With
// reranking on, candidates are re-sorted by cross-encoder score with ties
// keeping their similarity order; reranker failure degrades to similarity
// order and never fails the query.
func (r *Retriever) Retrieve(ctx context.Context, vector []float32, question string, p Params) ([]models.RetrievalResult, error) {
	results, err := r.index.Search(ctx, vector, p.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrSearchService, err)
	}

	if len(results) == 0 {
		return nil, models.ErrEmptyCorpus
	}

	best := results[0].Similarity
	if best < p.Threshold {
		log.Info().Float32("best", best).Float32("threshold", p.Threshold).Msg("Best match below similarity threshold")
		return nil, &models.ThresholdError{BestScore: best}
	}

	if p.Rerank {
		results = r.rerank(ctx, question, results)
	}
	return results, nil
}

// rerank scores every candidate against the question and re-sorts
// descending. The result set is never changed, only its order.
func (r *Retriever) rerank(ctx context.Context, question string, results []models.RetrievalResult) []models.RetrievalResult {
	if r.scorer == nil || !r.scorer.Available() {
		log.Debug().Msg("Reranker unavailable, keeping similarity order")
		return results
	}

	passages := make([]string, len(results))
	for i, res := range results {
		passages[i] = res.Chunk.Text
	}
	scores, err := r.scorer.Score(ctx, question, passages)
	if err != nil {
		log.Warn().Err(err).Msg("Reranking failed, keeping similarity order")
		return results
	}

	for i := range results {
		score := scores[i]
		results[i].RerankScore = &score
	}
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].RerankScore > *results[j].RerankScore
	})
	return results
}
