package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"

	"tutortron-rag/internal/config"
	"tutortron-rag/internal/models"
)

// Store drives the chromem-go vector database. Chunk content hashes are
// used as document ids, so re-ingesting identical content is an upsert,
// not a duplicate insert. Construct once at process start and inject.
type Store struct {
	db   *chromem.DB
	name string

	mu         sync.Mutex
	collection *chromem.Collection
}

func NewStore(cfg *config.VectorStoreConfig) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %v", err)
		}
	}
	return &Store{db: db, name: cfg.Collection}, nil
}

// handle lazily creates the collection on first use, never per call.
// Vectors are supplied precomputed, so no embedding function is attached.
func (s *Store) handle() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection != nil {
		return s.collection, nil
	}
	c, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}
	s.collection = c
	return c, nil
}

// CollectionExists reports whether the named collection has been created.
func (s *Store) CollectionExists(name string) bool {
	return s.db.GetCollection(name, nil) != nil
}

// Upsert stores one point per chunk under its content-hash id.
func (s *Store) Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	c, err := s.handle()
	if err != nil {
		return err
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				"source":         chunk.Source,
				"sequence_index": strconv.Itoa(chunk.SequenceIndex),
				"created_at":     chunk.CreatedAt.Format(time.RFC3339),
			},
		}
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search returns the topK nearest neighbours by cosine similarity,
// descending. An empty collection yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]models.RetrievalResult, error) {
	c, err := s.handle()
	if err != nil {
		return nil, err
	}

	count := c.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	if topK <= 0 {
		topK = 1
	}

	found, err := c.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	results := make([]models.RetrievalResult, 0, len(found))
	for _, r := range found {
		chunk := models.Chunk{
			ID:     r.ID,
			Text:   r.Content,
			Source: r.Metadata["source"],
		}
		if idx, err := strconv.Atoi(r.Metadata["sequence_index"]); err == nil {
			chunk.SequenceIndex = idx
		}
		if created, err := time.Parse(time.RFC3339, r.Metadata["created_at"]); err == nil {
			chunk.CreatedAt = created
		}
		results = append(results, models.RetrievalResult{Chunk: chunk, Similarity: r.Similarity})
	}
	return results, nil
}

// Count reports how many points the collection holds.
func (s *Store) Count() int {
	c, err := s.handle()
	if err != nil {
		return 0
	}
	return c.Count()
}

// Reset drops every point in the collection. Destructive: only invoked as
// an explicit administrative operation, never as a startup side effect.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	// recreated lazily on next use
	s.collection = nil
	return nil
}
