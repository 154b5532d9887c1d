package reranker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutortron-rag/internal/config"
)

func TestAvailable(t *testing.T) {
	assert.False(t, NewClient(&config.RerankerConfig{}).Available())
	assert.True(t, NewClient(&config.RerankerConfig{Endpoint: "http://localhost:9000/rerank"}).Available())
}

func TestScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string      `json:"model"`
			Pairs [][2]string `json:"pairs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "cross-encoder/ms-marco-MiniLM-L-6-v2", req.Model)

		scores := make([]float64, len(req.Pairs))
		for i, pair := range req.Pairs {
			assert.Equal(t, "what is covered in week one", pair[0])
			scores[i] = float64(len(pair[1]))
		}
		json.NewEncoder(w).Encode(map[string]any{"scores": scores})
	}))
	defer srv.Close()

	client := NewClient(&config.RerankerConfig{Endpoint: srv.URL, Model: "cross-encoder/ms-marco-MiniLM-L-6-v2"})

	scores, err := client.Score(context.Background(), "what is covered in week one", []string{"short", "a longer passage"})

	require.NoError(t, err)
	assert.Equal(t, []float64{5, 16}, scores)
}

func TestScore_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"scores": []float64{0.4}})
	}))
	defer srv.Close()

	client := NewClient(&config.RerankerConfig{Endpoint: srv.URL})

	_, err := client.Score(context.Background(), "q", []string{"a", "b"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 passages")
}

func TestScore_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&config.RerankerConfig{Endpoint: srv.URL})

	_, err := client.Score(context.Background(), "q", []string{"a"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestScore_NoPassages(t *testing.T) {
	client := NewClient(&config.RerankerConfig{Endpoint: "http://localhost:9"})

	scores, err := client.Score(context.Background(), "q", nil)

	require.NoError(t, err)
	assert.Nil(t, scores)
}
