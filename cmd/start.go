/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/contract-analyzer/config"
	"github.com/tieubaoca/contract-analyzer/database"
	"github.com/tieubaoca/contract-analyzer/handler"
	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/service"
)

// startServerCmd represents the startServer command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the analysis server",
	Long:  `Starts the HTTP server that accepts contract uploads, runs the compliance pipeline and answers chat questions`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgFile, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		logg, err := logger.New(cfg.LogMode)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		ctx := context.Background()

		aiService, err := newAIService(ctx, cfg)
		if err != nil {
			logg.Fatal("failed to initialize AI provider", "provider", cfg.LLM.Provider, "error", err)
		}

		jobRepo, sessionRepo, err := newRepositories(ctx, cfg)
		if err != nil {
			logg.Fatal("failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
		}

		chunker, err := service.NewPageChunker(cfg.Chunking.PagesPerChunk, cfg.Chunking.OverlapPages)
		if err != nil {
			logg.Fatal("invalid chunking configuration", "error", err)
		}

		pdfService := service.NewPDFService()
		retriever := service.NewBM25Retriever()
		verifier := service.NewQuoteVerifier()
		analyzer := service.NewComplianceAnalyzer(aiService, logg)

		processor := service.NewJobProcessor(
			pdfService,
			chunker,
			retriever,
			analyzer,
			verifier,
			jobRepo,
			logg,
			cfg.Retrieval.TopK,
			cfg.Processing.MaxConcurrentJobs,
		)
		chatService := service.NewChatService(aiService, retriever, verifier, cfg.Retrieval.TopK, logg)
		wsService := service.NewWebSocketService(jobRepo, logg)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		uploadHandler := handler.NewUploadHandler(jobRepo, processor, cfg.MaxUploadSizeBytes(), logg)
		jobHandler := handler.NewJobHandler(jobRepo)
		chatHandler := handler.NewChatHandler(chatService, jobRepo, sessionRepo, logg)
		wsHandler := handler.NewWebSocketHandler(wsService)

		// Setup Gin router
		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		apiV1 := router.Group("/api/v1")
		{
			apiV1.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{"status": "ok"})
			})
			apiV1.POST("/upload", uploadHandler.UploadContractHandler)
			apiV1.GET("/status/:id", jobHandler.GetJobStatusHandler)
			apiV1.GET("/result/:id", jobHandler.GetJobResultHandler)
			apiV1.GET("/ws/jobs/:id", wsHandler.WatchJobHandler)
			apiV1.GET("/requirements", jobHandler.ListRequirementsHandler)
			apiV1.POST("/chat/start", chatHandler.StartChatHandler)
			apiV1.POST("/chat/message", chatHandler.SendMessageHandler)
		}

		logg.Info("starting server", "port", cfg.Port, "provider", cfg.LLM.Provider, "storage", cfg.Storage.Backend)
		if err := router.Run(":" + cfg.Port); err != nil {
			logg.Fatal("server error", "error", err)
		}
	},
}

func newAIService(ctx context.Context, cfg *config.Config) (service.AIService, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	switch cfg.LLM.Provider {
	case "openai":
		return service.NewOpenAIService(cfg.LLM.BaseURL, cfg.LLM.OpenAIAPIKey, cfg.LLM.Model, timeout), nil
	case "gemini":
		return service.NewGeminiService(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.Model, timeout)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

func newRepositories(ctx context.Context, cfg *config.Config) (repository.JobRepo, repository.SessionRepo, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return repository.NewMemoryJobRepo(), repository.NewMemorySessionRepo(), nil
	case "mongo":
		client, err := database.NewMongoClient(ctx, cfg.Storage.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		db := client.Database(cfg.Storage.Database)
		return repository.NewMongoJobRepo(db), repository.NewMongoSessionRepo(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func init() {
	rootCmd.AddCommand(startServerCmd)
}
