package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tutortron-rag/internal/config"
)

// Client scores (question, passage) pairs with an external cross-encoder
// service. The cross-encoder sees both texts together, making it a
// precision refinement over the small candidate set the similarity search
// already produced; it is too expensive to run over the whole corpus.
type Client struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

func NewClient(cfg *config.RerankerConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Available reports whether a rerank service is configured. When it is
// not, the retriever keeps similarity order.
func (c *Client) Available() bool {
	return c != nil && c.endpoint != ""
}

// Score returns one relevance score per passage, in input order.
func (c *Client) Score(ctx context.Context, question string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}

	pairs := make([][2]string, len(passages))
	for i, passage := range passages {
		pairs[i] = [2]string{question, passage}
	}
	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"pairs": pairs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker returned status %d: %s", resp.StatusCode, string(msg))
	}

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	if len(result.Scores) != len(passages) {
		return nil, fmt.Errorf("reranker returned %d scores for %d passages", len(result.Scores), len(passages))
	}
	return result.Scores, nil
}
