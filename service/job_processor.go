package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/types"
)

// Progress split: parse and chunk consume a fixed initial 20%, the remaining
// 80% advances once per completed requirement. A slow generation call is
// visible only through the stage label, never through a progress tick.
const (
	progressParsing   = 5
	progressParsed    = 10
	progressChunking  = 15
	progressChunked   = 20
	progressRemaining = 80
	completedStage    = "Completed"
)

// JobProcessor drives one job through parse -> chunk -> per-requirement
// {retrieve -> analyze -> verify}. Stages run strictly in order; the
// requirement loop runs one iteration at a time because generation is a
// scarce resource and a failure must map 1:1 to a single requirement.
type JobProcessor struct {
	parser    DocumentParser
	chunker   *PageChunker
	retriever *BM25Retriever
	analyzer  *ComplianceAnalyzer
	verifier  *QuoteVerifier
	jobs      repository.JobRepo
	log       *logger.Logger
	topK      int
	sem       *semaphore.Weighted
}

func NewJobProcessor(
	parser DocumentParser,
	chunker *PageChunker,
	retriever *BM25Retriever,
	analyzer *ComplianceAnalyzer,
	verifier *QuoteVerifier,
	jobs repository.JobRepo,
	log *logger.Logger,
	topK int,
	maxConcurrentJobs int64,
) *JobProcessor {
	if maxConcurrentJobs < 1 {
		maxConcurrentJobs = 1
	}
	if topK < 1 {
		topK = 5
	}
	return &JobProcessor{
		parser:    parser,
		chunker:   chunker,
		retriever: retriever,
		analyzer:  analyzer,
		verifier:  verifier,
		jobs:      jobs,
		log:       log,
		topK:      topK,
		sem:       semaphore.NewWeighted(maxConcurrentJobs),
	}
}

// Submit schedules a job off the request path. Fire and forget: every
// outcome is communicated through the job record. The semaphore caps how
// many pipelines run at once.
func (p *JobProcessor) Submit(jobID string, raw []byte) {
	go func() {
		ctx := context.Background()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		p.Run(ctx, jobID, raw)
	}()
}

// Run processes a job end to end, mutating its record as the only output
// channel. Any unrecovered stage failure moves the job to FAILED; a partial
// result set is never marked COMPLETED.
func (p *JobProcessor) Run(ctx context.Context, jobID string, raw []byte) {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		p.log.Error("job not found", "job_id", jobID, "error", err)
		return
	}

	log := p.log.With("job_id", jobID)
	start := time.Now()
	timings := make(map[string]int64)

	job.UpdateStatus(types.JobProcessing, "")
	p.update(ctx, job)
	log.Info("started processing", "filename", job.Filename)

	// Stage 1: parse.
	job.UpdateProgress(progressParsing, "Parsing PDF")
	p.update(ctx, job)

	parseStart := time.Now()
	document, err := p.parser.Parse(ctx, raw, job.Filename)
	timings["parse_ms"] = time.Since(parseStart).Milliseconds()
	if err != nil {
		p.fail(ctx, job, log, err)
		return
	}

	job.Document = document
	job.UpdateProgress(progressParsed, "")
	p.update(ctx, job)

	if document.NeedsOCR() {
		// Proceed anyway; results will carry low confidence.
		log.Warn("document may need OCR", "avg_chars_per_page", document.Metadata["avg_chars_per_page"])
	}

	// Stage 2: chunk.
	job.UpdateProgress(progressChunking, "Chunking document")
	p.update(ctx, job)

	chunkStart := time.Now()
	chunks := p.chunker.Chunk(document)
	timings["chunk_ms"] = time.Since(chunkStart).Milliseconds()

	job.Chunks = chunks
	job.UpdateProgress(progressChunked, "")
	p.update(ctx, job)
	log.Info("chunked document", "chunks", len(chunks))

	// Stage 3: the requirement loop.
	reqIDs := RequirementIDs()
	progressPerRequirement := progressRemaining / len(reqIDs)

	var retrieveTotal, llmTotal, validateTotal int64
	for i, reqID := range reqIDs {
		stage := fmt.Sprintf("Analyzing requirement %d/%d", i+1, len(reqIDs))
		job.UpdateProgress(progressChunked+i*progressPerRequirement, stage)
		p.update(ctx, job)
		log.Info("processing requirement", "requirement", reqID, "index", i+1)

		retrieveStart := time.Now()
		evidence := p.retriever.Retrieve(reqID, chunks, p.topK)
		retrieveTotal += time.Since(retrieveStart).Milliseconds()

		// The stage label stays put through the slow generation call.
		llmStart := time.Now()
		result, err := p.analyzer.Analyze(ctx, reqID, evidence)
		llmTotal += time.Since(llmStart).Milliseconds()
		if err != nil {
			p.fail(ctx, job, log, err)
			return
		}

		validateStart := time.Now()
		err = p.verifier.VerifyResult(&result, evidence)
		validateTotal += time.Since(validateStart).Milliseconds()
		if err != nil {
			// An unverified result cannot be trusted; fatal to the job.
			p.fail(ctx, job, log, err)
			return
		}

		job.AddResult(result)
		job.UpdateProgress(progressChunked+(i+1)*progressPerRequirement, "")
		p.update(ctx, job)
	}

	timings["retrieve_total_ms"] = retrieveTotal
	timings["llm_total_ms"] = llmTotal
	timings["validate_total_ms"] = validateTotal
	timings["total_ms"] = time.Since(start).Milliseconds()
	job.TimingsMs = timings

	job.UpdateStatus(types.JobCompleted, "")
	job.Stage = completedStage
	p.update(ctx, job)
	log.Info("completed", "results", len(job.Results), "total_ms", timings["total_ms"])
}

func (p *JobProcessor) update(ctx context.Context, job *types.Job) {
	if err := p.jobs.Update(ctx, job); err != nil {
		p.log.Error("failed to update job record", "job_id", job.JobID, "error", err)
	}
}

// fail moves the job to its terminal FAILED state with a message safe to
// show callers.
func (p *JobProcessor) fail(ctx context.Context, job *types.Job, log *logger.Logger, cause error) {
	log.Error("job failed", "error", cause)
	job.UpdateStatus(types.JobFailed, fmt.Sprintf("Processing failed: %s", cause))
	p.update(ctx, job)
}
