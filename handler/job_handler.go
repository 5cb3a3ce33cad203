package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/service"
	"github.com/tieubaoca/contract-analyzer/types"
)

type JobHandler struct {
	jobs repository.JobRepo
}

func NewJobHandler(jobs repository.JobRepo) *JobHandler {
	return &JobHandler{jobs: jobs}
}

func (h *JobHandler) GetJobStatusHandler(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.JobStatusResponse{
			JobID:        job.JobID,
			Status:       job.Status,
			Progress:     job.Progress,
			Stage:        job.Stage,
			CreatedAt:    job.CreatedAt,
			UpdatedAt:    job.UpdatedAt,
			ErrorMessage: job.ErrorMessage,
			TimingsMs:    job.TimingsMs,
		},
	})
}

// GetJobResultHandler returns the full result set for a finished job. A job
// still in flight reports its progress instead, never a partial result set.
func (h *JobHandler) GetJobResultHandler(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	switch job.Status {
	case types.JobFailed:
		message := job.ErrorMessage
		if message == "" {
			message = "Unknown error"
		}
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Job failed: " + message,
		})
	case types.JobCompleted:
		needsOCR := false
		if job.Document != nil {
			needsOCR = job.Document.NeedsOCR()
		}
		c.JSON(http.StatusOK, types.DataResponse{
			Status: true,
			Data: types.JobResultResponse{
				JobID:       job.JobID,
				Filename:    job.Filename,
				Status:      job.Status,
				Results:     job.Results,
				CompletedAt: job.CompletedAt,
				NeedsOCR:    needsOCR,
				TimingsMs:   job.TimingsMs,
			},
		})
	default:
		c.JSON(http.StatusTooEarly, types.DataResponse{
			Status:  false,
			Message: fmt.Sprintf("Job is still %s. Current progress: %d%%", job.Status, job.Progress),
			Data: types.JobStatusResponse{
				JobID:     job.JobID,
				Status:    job.Status,
				Progress:  job.Progress,
				Stage:     job.Stage,
				CreatedAt: job.CreatedAt,
				UpdatedAt: job.UpdatedAt,
			},
		})
	}
}

func (h *JobHandler) ListRequirementsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   service.RequirementIDs(),
	})
}

func (h *JobHandler) loadJob(c *gin.Context) (*types.Job, bool) {
	jobID := c.Param("id")
	job, err := h.jobs.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.DataResponse{
				Status:  false,
				Message: "Job not found",
			})
		} else {
			c.JSON(http.StatusInternalServerError, types.DataResponse{
				Status:  false,
				Message: "Failed to load job",
			})
		}
		return nil, false
	}
	return job, true
}
