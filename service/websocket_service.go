package service

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/types"
)

const progressPollInterval = time.Second

// WebSocketService pushes job progress to connected clients so they do not
// have to poll the status endpoint. One connection watches one job.
type WebSocketService struct {
	jobs     repository.JobRepo
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWebSocketService(jobs repository.JobRepo, log *logger.Logger) *WebSocketService {
	return &WebSocketService{
		jobs: jobs,
		log:  log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

// WatchJob upgrades the connection and streams status snapshots until the
// job reaches a terminal state or the client goes away.
func (s *WebSocketService) WatchJob(w http.ResponseWriter, r *http.Request, jobID string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump only exists to notice the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.log.Warn("websocket read error", "job_id", jobID, "error", err)
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	var lastProgress = -1
	var lastStatus types.JobStatus
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			job, err := s.jobs.Get(ctx, jobID)
			if err != nil {
				conn.WriteJSON(types.DataResponse{
					Status:  false,
					Message: "Job not found",
				})
				return
			}
			if job.Progress == lastProgress && job.Status == lastStatus {
				continue
			}
			lastProgress = job.Progress
			lastStatus = job.Status

			snapshot := types.JobStatusResponse{
				JobID:        job.JobID,
				Status:       job.Status,
				Progress:     job.Progress,
				Stage:        job.Stage,
				CreatedAt:    job.CreatedAt,
				UpdatedAt:    job.UpdatedAt,
				ErrorMessage: job.ErrorMessage,
				TimingsMs:    job.TimingsMs,
			}
			if err := conn.WriteJSON(types.DataResponse{Status: true, Data: snapshot}); err != nil {
				return
			}
			if job.Status.Terminal() {
				return
			}
		}
	}
}
