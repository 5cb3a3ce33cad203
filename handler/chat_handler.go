package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/service"
	"github.com/tieubaoca/contract-analyzer/types"
)

type ChatHandler struct {
	chat     *service.ChatService
	jobs     repository.JobRepo
	sessions repository.SessionRepo
	log      *logger.Logger
}

func NewChatHandler(chat *service.ChatService, jobs repository.JobRepo, sessions repository.SessionRepo, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		jobs:     jobs,
		sessions: sessions,
		log:      log,
	}
}

// StartChatHandler opens a session against a completed job.
func (h *ChatHandler) StartChatHandler(c *gin.Context) {
	var req types.ChatStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), req.JobID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "Job not found",
		})
		return
	}
	if job.Status != types.JobCompleted {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Job analysis is not completed yet",
		})
		return
	}

	session := types.NewChatSession(uuid.NewString(), job.JobID)
	if err := h.sessions.Save(c.Request.Context(), session); err != nil {
		h.log.Error("failed to save chat session", "error", err)
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Failed to create chat session",
		})
		return
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data: types.ChatStartResponse{
			SessionID: session.SessionID,
			JobID:     session.JobID,
		},
	})
}

// SendMessageHandler answers one question in an existing session. The answer
// is generated against the job's own chunk set; history is the conversation
// before this message.
func (h *ChatHandler) SendMessageHandler(c *gin.Context) {
	var req types.ChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, types.DataResponse{
			Status:  false,
			Message: "Invalid request body",
		})
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.DataResponse{
				Status:  false,
				Message: "Chat session not found",
			})
		} else {
			c.JSON(http.StatusInternalServerError, types.DataResponse{
				Status:  false,
				Message: "Failed to load chat session",
			})
		}
		return
	}

	job, err := h.jobs.Get(c.Request.Context(), session.JobID)
	if err != nil || job.Document == nil || len(job.Chunks) == 0 {
		c.JSON(http.StatusNotFound, types.DataResponse{
			Status:  false,
			Message: "Job data not available for chat",
		})
		return
	}

	answer, err := h.chat.Answer(c.Request.Context(), session, req.Message, job.Chunks)
	if err != nil {
		h.log.Error("chat answer failed", "session_id", session.SessionID, "error", err)
		c.JSON(http.StatusInternalServerError, types.DataResponse{
			Status:  false,
			Message: "Failed to generate chat response",
		})
		return
	}

	session.AddMessage("user", req.Message)
	session.AddMessage("assistant", answer.Answer)
	if err := h.sessions.Update(c.Request.Context(), session); err != nil {
		h.log.Error("failed to update chat session", "session_id", session.SessionID, "error", err)
	}

	c.JSON(http.StatusOK, types.DataResponse{
		Status: true,
		Data:   answer,
	})
}
