/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/contract-analyzer/config"
	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/service"
	"github.com/tieubaoca/contract-analyzer/types"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a contract PDF from the command line",
	Long:  `Runs the full compliance pipeline against a local PDF and prints the results as JSON, without starting the HTTP server`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgFile, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		if filePath == "" {
			log.Fatal("--file is required")
		}

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

		chunker, err := service.NewPageChunker(cfg.Chunking.PagesPerChunk, cfg.Chunking.OverlapPages)
		if err != nil {
			logg.Fatal("invalid chunking configuration", "error", err)
		}

		raw, err := os.ReadFile(filePath)
		if err != nil {
			logg.Fatal("failed to read file", "file", filePath, "error", err)
		}

		jobRepo := repository.NewMemoryJobRepo()
		processor := service.NewJobProcessor(
			service.NewPDFService(),
			chunker,
			service.NewBM25Retriever(),
			service.NewComplianceAnalyzer(aiService, logg),
			service.NewQuoteVerifier(),
			jobRepo,
			logg,
			cfg.Retrieval.TopK,
			cfg.Processing.MaxConcurrentJobs,
		)

		job := types.NewJob(uuid.NewString(), filepath.Base(filePath), len(raw))
		if err := jobRepo.Save(ctx, job); err != nil {
			logg.Fatal("failed to register job", "error", err)
		}

		processor.Run(ctx, job.JobID, raw)

		job, err = jobRepo.Get(ctx, job.JobID)
		if err != nil {
			logg.Fatal("failed to load job", "error", err)
		}
		if job.Status == types.JobFailed {
			logg.Fatal("analysis failed", "error", job.ErrorMessage)
		}

		out, err := json.MarshalIndent(types.JobResultResponse{
			JobID:       job.JobID,
			Filename:    job.Filename,
			Status:      job.Status,
			Results:     job.Results,
			CompletedAt: job.CompletedAt,
			NeedsOCR:    job.Document.NeedsOCR(),
			TimingsMs:   job.TimingsMs,
		}, "", "  ")
		if err != nil {
			logg.Fatal("failed to encode results", "error", err)
		}
		fmt.Println(string(out))
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("file", "f", "", "Path to the PDF to analyze")
}
