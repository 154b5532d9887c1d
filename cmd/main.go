package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tutortron-rag/internal/chatstore"
	"tutortron-rag/internal/chromemdb"
	"tutortron-rag/internal/config"
	"tutortron-rag/internal/embedding"
	"tutortron-rag/internal/llmservice"
	"tutortron-rag/internal/moderation"
	"tutortron-rag/internal/rag"
	"tutortron-rag/internal/reranker"
	"tutortron-rag/internal/retriever"
	"tutortron-rag/internal/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	configPath := flag.String("config", "./configs/config.yaml", "Path to the config file")
	serve := flag.Bool("serve", false, "Start the HTTP server")
	filePath := flag.String("file", "", "Path to a document file to ingest")
	source := flag.String("source", "", "Source name to index the document under (defaults to the file name)")
	query := flag.String("query", "", "Question to answer from the indexed corpus")
	rerank := flag.Bool("rerank", false, "Rerank retrieved chunks with the cross-encoder")
	reset := flag.Bool("reset", false, "Clear all indexed documents")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	ctx := context.Background()

	store, err := chromemdb.NewStore(&cfg.VectorStore)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}

	if *reset {
		if err := store.Reset(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error clearing documents")
		}
		log.Info().Msg("Cleared all documents")
		return
	}

	embedder, err := embedding.NewClient(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	generator, err := llmservice.NewClient(&cfg.InferLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	var scorer retriever.Scorer
	if rr := reranker.NewClient(&cfg.Reranker); rr.Available() {
		scorer = rr
	}

	pipeline := rag.New(embedder, store, retriever.New(store, scorer), generator, &cfg.RAG)

	switch {
	case *serve:
		runServer(ctx, cfg, pipeline, store)
	case *filePath != "":
		ingestFile(ctx, pipeline, *filePath, *source)
	case *query != "":
		answerQuery(ctx, cfg, pipeline, *query, *rerank)
	default:
		log.Fatal().Msg("Provide -serve, -file or -query")
	}
}

func runServer(ctx context.Context, cfg *config.Config, pipeline *rag.RAG, store *chromemdb.Store) {
	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Error creating upload directory")
	}

	var chats *chatstore.Store
	if cfg.Database.DSN != "" {
		sqldb, err := chatstore.ConnectDB(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}
		chats = chatstore.NewStore(sqldb, cfg.Database.Debug)
		defer chats.Close()
		if err := chats.Init(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error initializing chat tables")
		}
	} else {
		log.Warn().Msg("No database DSN configured, chat history disabled")
	}

	srv := server.New(&cfg.Server, &cfg.RAG, pipeline, store, chats, moderation.NewHeuristic(nil))
	if err := srv.Run(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func ingestFile(ctx context.Context, pipeline *rag.RAG, filePath, source string) {
	if source == "" {
		source = filepath.Base(filePath)
	}
	chunks, err := pipeline.IngestFile(ctx, filePath, source)
	if err != nil {
		log.Fatal().Err(err).Str("file", filePath).Msg("Error ingesting document")
	}
	log.Info().Str("source", source).Int("chunks", chunks).Msg("Document indexed")
}

func answerQuery(ctx context.Context, cfg *config.Config, pipeline *rag.RAG, query string, rerank bool) {
	response, err := pipeline.Query(ctx, rag.QueryRequest{
		Question:  query,
		Threshold: float32(cfg.RAG.SimilarityThreshold),
		Rerank:    rerank || cfg.RAG.Rerank,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Source)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", response.Content)
}
