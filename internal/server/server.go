package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"tutortron-rag/internal/chatstore"
	"tutortron-rag/internal/config"
	"tutortron-rag/internal/helper"
	"tutortron-rag/internal/models"
	"tutortron-rag/internal/moderation"
	"tutortron-rag/internal/rag"
)

// Pipeline is the ingestion and query surface the handlers need.
type Pipeline interface {
	IngestFile(ctx context.Context, path, source string) (int, error)
	Query(ctx context.Context, req rag.QueryRequest) (*models.PromptResponse, error)
}

// Index exposes the vector store operations the handlers need.
type Index interface {
	Count() int
	Reset(ctx context.Context) error
}

var allowedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".pptx":     true,
	".xlsx":     true,
	".ods":      true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

type Server struct {
	cfg        *config.ServerConfig
	ragCfg     *config.RAGConfig
	pipeline   Pipeline
	index      Index
	chats      *chatstore.Store // nil when no database is configured
	classifier moderation.Classifier
}

func New(cfg *config.ServerConfig, ragCfg *config.RAGConfig, pipeline Pipeline, index Index, chats *chatstore.Store, classifier moderation.Classifier) *Server {
	return &Server{
		cfg:        cfg,
		ragCfg:     ragCfg,
		pipeline:   pipeline,
		index:      index,
		chats:      chats,
		classifier: classifier,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), corsMiddleware())
	r.MaxMultipartMemory = s.cfg.MaxUploadMB << 20

	r.GET("/health", s.handleHealth)
	r.POST("/upload", s.handleUpload)
	r.POST("/chat", s.handleChat)
	r.POST("/clear-documents", s.handleClearDocuments)

	if s.chats != nil {
		r.GET("/chats", s.handleListChats)
		r.GET("/chats/:id", s.handleGetChat)
		r.PUT("/chats/:id/title", s.handleUpdateChatTitle)
		r.DELETE("/chats/:id", s.handleDeleteChat)
		r.GET("/admin/flagged", s.handleFlaggedContent)
		r.GET("/admin/statistics", s.handleStatistics)
	}

	return r
}

func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	log.Info().Str("addr", addr).Msg("Starting server")
	return s.Router().Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"documents": s.index.Count(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB<<20)

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported file type: %s", ext)})
		return
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process upload"})
		return
	}
	dst := filepath.Join(s.cfg.UploadDir, id+ext)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		log.Error().Err(err).Str("file", file.Filename).Msg("Failed to save upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}
	defer os.Remove(dst)

	chunks, err := s.pipeline.IngestFile(c.Request.Context(), dst, file.Filename)
	if err != nil {
		log.Error().Err(err).Str("file", file.Filename).Msg("Ingestion failed")
		if errors.Is(err, models.ErrNoTextExtracted) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no text could be extracted from the file"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Successfully processed %s", file.Filename),
		"chunks":  chunks,
	})
}

type chatRequest struct {
	Message   string `json:"message" binding:"required"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	flagged, flagReason := false, ""
	if s.classifier != nil {
		flagged, flagReason = s.classifier.Classify(req.Message)
		if flagged {
			log.Warn().Str("reason", flagReason).Msg("Flagged chat message")
		}
	}

	chatID := req.SessionID
	if s.chats != nil && req.UserID != "" {
		ctx := c.Request.Context()
		id, err := s.chats.CreateChat(ctx, req.SessionID, req.UserID, truncateTitle(req.Message))
		if err != nil {
			log.Error().Err(err).Msg("Failed to create chat")
		} else {
			chatID = id
			if err := s.chats.AddMessage(ctx, chatID, "user", req.Message, flagged, flagReason); err != nil {
				log.Error().Err(err).Msg("Failed to store user message")
			}
			if flagged {
				if err := s.chats.FlagChat(ctx, chatID, flagReason); err != nil {
					log.Error().Err(err).Msg("Failed to flag chat")
				}
			}
		}
	}

	resp, err := s.pipeline.Query(c.Request.Context(), rag.QueryRequest{
		Question:  req.Message,
		Threshold: float32(s.ragCfg.SimilarityThreshold),
		Rerank:    s.ragCfg.Rerank,
	})

	answer := answerFor(resp, err)

	if s.chats != nil && chatID != "" && !helper.IsTempID(chatID) {
		if err := s.chats.AddMessage(c.Request.Context(), chatID, "assistant", answer, false, ""); err != nil {
			log.Error().Err(err).Msg("Failed to store assistant message")
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"response":  answer,
		"sessionId": chatID,
		"flagged":   flagged,
	})
}

// answerFor maps pipeline outcomes to the message shown to the student.
// Degraded outcomes still produce a normal reply; raw errors never
// reach the client.
func answerFor(resp *models.PromptResponse, err error) string {
	if err == nil {
		return resp.Content
	}

	var thresholdErr *models.ThresholdError
	switch {
	case errors.Is(err, models.ErrEmptyCorpus):
		return models.MsgEmptyCorpus
	case errors.As(err, &thresholdErr):
		return fmt.Sprintf(models.MsgBelowThreshold, thresholdErr.BestScore)
	case errors.Is(err, models.ErrConfiguration):
		return models.MsgNotConfigured
	case errors.Is(err, models.ErrEmbeddingService):
		return models.MsgEmbeddingFailed
	case errors.Is(err, models.ErrSearchService):
		return models.MsgSearchFailed
	default:
		log.Error().Err(err).Msg("Query failed")
		return models.MsgGenerationFailed
	}
}

func truncateTitle(message string) string {
	const maxTitle = 50
	if len(message) <= maxTitle {
		return message
	}
	return message[:maxTitle] + "..."
}

func (s *Server) handleClearDocuments(c *gin.Context) {
	if err := s.index.Reset(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear documents")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All documents cleared"})
}

func (s *Server) handleListChats(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId is required"})
		return
	}
	chats, err := s.chats.GetUserChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list chats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (s *Server) handleGetChat(c *gin.Context) {
	chat, err := s.chats.GetChatWithMessages(c.Request.Context(), c.Param("id"))
	if errors.Is(err, chatstore.ErrChatNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	c.JSON(http.StatusOK, chat)
}

func (s *Server) handleUpdateChatTitle(c *gin.Context) {
	var body struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	err := s.chats.UpdateChatTitle(c.Request.Context(), c.Param("id"), body.Title)
	if errors.Is(err, chatstore.ErrChatNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "title updated"})
}

func (s *Server) handleDeleteChat(c *gin.Context) {
	err := s.chats.DeleteChat(c.Request.Context(), c.Param("id"))
	if errors.Is(err, chatstore.ErrChatNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete chat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "chat deleted"})
}

func (s *Server) handleFlaggedContent(c *gin.Context) {
	chats, err := s.chats.GetFlaggedContent(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load flagged content"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flagged": chats})
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.chats.GetStatistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
