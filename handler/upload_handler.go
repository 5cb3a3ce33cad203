package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/service"
	"github.com/tieubaoca/contract-analyzer/types"
)

type UploadHandler struct {
	jobs      repository.JobRepo
	processor *service.JobProcessor
	maxSize   int64
	log       *logger.Logger
}

func NewUploadHandler(jobs repository.JobRepo, processor *service.JobProcessor, maxSize int64, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		jobs:      jobs,
		processor: processor,
		maxSize:   maxSize,
		log:       log,
	}
}

// UploadContractHandler accepts a PDF, registers a pending job and schedules
// the analysis pipeline off the request path. The response carries only the
// job id; callers poll for progress.
func (h *UploadHandler) UploadContractHandler(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid file",
		})
		return
	}
	defer file.Close()

	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Only PDF files are supported",
		})
		return
	}

	if header.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, types.DataResponse{
			Status:  false,
			Message: "File too large",
		})
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Failed to read file",
		})
		return
	}

	job := types.NewJob(uuid.NewString(), header.Filename, len(raw))
	if err := h.jobs.Save(c.Request.Context(), job); err != nil {
		h.log.Error("failed to save job", "error", err)
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Failed to create job",
		})
		return
	}

	h.processor.Submit(job.JobID, raw)
	h.log.Info("job accepted", "job_id", job.JobID, "filename", header.Filename, "size", header.Size)

	c.JSON(http.StatusAccepted, types.DataResponse{
		Status: true,
		Data: types.UploadResponse{
			JobID:  job.JobID,
			Status: job.Status,
		},
	})
}
