package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tutortron-rag/internal/models"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm"`
	InferLLM    LLMConfig         `yaml:"infer_llm"`
	Reranker    RerankerConfig    `yaml:"reranker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database"`
	RAG         RAGConfig         `yaml:"rag"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	KeyEnv      string  `yaml:"key_env"`
	Model       string  `yaml:"model"`
	BatchSize   int     `yaml:"batch_size"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// ResolvedKey returns the credential from the config file, or from the
// environment variable named by key_env when the inline key is empty.
func (c *LLMConfig) ResolvedKey() string {
	if c.Key != "" {
		return c.Key
	}
	if c.KeyEnv != "" {
		return os.Getenv(c.KeyEnv)
	}
	return ""
}

type RerankerConfig struct {
	Endpoint    string `yaml:"endpoint"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type VectorStoreConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize           int     `yaml:"chunk_size"`
	ChunkOverlap        int     `yaml:"chunk_overlap"`
	MinChunkChars       int     `yaml:"min_chunk_chars"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	TopK                int     `yaml:"top_k"`
	MaxContextChars     int     `yaml:"max_context_chars"`
	Rerank              bool    `yaml:"rerank"`
}

const (
	defaultChunkSize       = 800
	defaultChunkOverlap    = 100
	defaultMinChunkChars   = 50
	defaultThreshold       = 0.25
	defaultTopK            = 8
	defaultMaxContextChars = 6000
	defaultBatchSize       = 8
	defaultTemperature     = 0.3
	defaultMaxTokens       = 1000
	defaultMaxUploadMB     = 16
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.MinChunkChars == 0 {
		cfg.RAG.MinChunkChars = defaultMinChunkChars
	}
	if cfg.RAG.SimilarityThreshold == 0 {
		cfg.RAG.SimilarityThreshold = defaultThreshold
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.MaxContextChars == 0 {
		cfg.RAG.MaxContextChars = defaultMaxContextChars
	}
	if cfg.EmbedLLM.BatchSize == 0 {
		cfg.EmbedLLM.BatchSize = defaultBatchSize
	}
	if cfg.InferLLM.Temperature == 0 {
		cfg.InferLLM.Temperature = defaultTemperature
	}
	if cfg.InferLLM.MaxTokens == 0 {
		cfg.InferLLM.MaxTokens = defaultMaxTokens
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5001
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "uploads"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = defaultMaxUploadMB
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = "ai_ta_docs"
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = "./chromemdb"
	}
	if cfg.Reranker.TimeoutSecs == 0 {
		cfg.Reranker.TimeoutSecs = 30
	}
}

// Validate fails fast on missing credentials so configuration problems
// never reach the query path.
func (cfg *Config) Validate() error {
	if cfg.EmbedLLM.ResolvedKey() == "" {
		return fmt.Errorf("%w: embed_llm key missing (set key or key_env)", models.ErrConfiguration)
	}
	if cfg.EmbedLLM.Model == "" {
		return fmt.Errorf("%w: embed_llm model missing", models.ErrConfiguration)
	}
	if cfg.InferLLM.ResolvedKey() == "" {
		return fmt.Errorf("%w: infer_llm key missing (set key or key_env)", models.ErrConfiguration)
	}
	if cfg.InferLLM.Model == "" {
		return fmt.Errorf("%w: infer_llm model missing", models.ErrConfiguration)
	}
	return nil
}
