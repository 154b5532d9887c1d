package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration means credentials or required settings are missing.
	// It is fatal at startup and never reaches the query path.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbeddingService is returned when the external embedding call
	// fails or returns a mismatched vector count for a batch.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService is returned when the external completion call fails.
	ErrGenerationService = errors.New("generation service error")

	// ErrSearchService is returned when the vector index cannot be queried.
	ErrSearchService = errors.New("vector search error")

	// ErrNoTextExtracted means the ingested document had no extractable content.
	ErrNoTextExtracted = errors.New("no text extracted from document")

	// ErrEmptyCorpus means the index holds no documents at all.
	ErrEmptyCorpus = errors.New("no documents in corpus")

	// ErrBelowThreshold means the best match scored below the similarity
	// threshold. Distinct from ErrEmptyCorpus so the user can tell
	// "nothing is indexed" apart from "nothing relevant was found".
	ErrBelowThreshold = errors.New("best match below similarity threshold")
)

// ThresholdError carries the best similarity score that failed the gate.
type ThresholdError struct {
	BestScore float32
}

func (e *ThresholdError) Error() string {
	return fmt.Sprintf("best similarity score %.3f is below threshold", e.BestScore)
}

func (e *ThresholdError) Unwrap() error { return ErrBelowThreshold }
