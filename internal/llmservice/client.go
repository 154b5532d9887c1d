package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"tutortron-rag/internal/config"
	"tutortron-rag/internal/models"
)

// Client sends assembled prompts to an OpenAI-compatible completion
// endpoint. Output length is capped and the temperature kept low: answers
// should stick to the supplied context, not get creative. Failures are
// never retried; the caller surfaces them as an apology message.
type Client struct {
	llm         *openai.LLM
	temperature float64
	maxTokens   int
}

// NewClient creates a generator from the infer_llm config section.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.ResolvedKey(), "Bearer ")),
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrConfiguration, err)
	}
	return &Client{llm: llm, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens}, nil
}

// Generate runs a single completion call for the assembled prompt.
func (c *Client) Generate(ctx context.Context, p models.Prompt) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextContent{Text: models.SystemMessage}},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: p.Text}},
		},
	}

	res, err := c.llm.GenerateContent(ctx, messages,
		llms.WithTemperature(c.temperature),
		llms.WithMaxTokens(c.maxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}
	if len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", models.ErrGenerationService)
	}
	return res.Choices[0].Content, nil
}
