package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tieubaoca/contract-analyzer/logger"
	"github.com/tieubaoca/contract-analyzer/repository"
	"github.com/tieubaoca/contract-analyzer/types"
)

func testLogger() *logger.Logger {
	return logger.NewNop()
}

func newJobRouter(jobs repository.JobRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewJobHandler(jobs)
	router := gin.New()
	router.GET("/status/:id", h.GetJobStatusHandler)
	router.GET("/result/:id", h.GetJobResultHandler)
	router.GET("/requirements", h.ListRequirementsHandler)
	return router
}

func TestGetJobStatus(t *testing.T) {
	jobs := repository.NewMemoryJobRepo()
	job := types.NewJob("job-1", "contract.pdf", 100)
	job.UpdateStatus(types.JobProcessing, "")
	job.UpdateProgress(36, "Analyzing requirement 1/5")
	require.NoError(t, jobs.Save(context.Background(), job))

	router := newJobRouter(jobs)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status/job-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status bool                    `json:"status"`
		Data   types.JobStatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Status)
	assert.Equal(t, "job-1", body.Data.JobID)
	assert.Equal(t, types.JobProcessing, body.Data.Status)
	assert.Equal(t, 36, body.Data.Progress)
	assert.Equal(t, "Analyzing requirement 1/5", body.Data.Stage)
}

func TestGetJobStatusNotFound(t *testing.T) {
	router := newJobRouter(repository.NewMemoryJobRepo())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status/ghost", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJobResultCompleted(t *testing.T) {
	jobs := repository.NewMemoryJobRepo()
	job := types.NewJob("job-1", "contract.pdf", 100)
	job.AddResult(types.Result{ComplianceLevel: types.FullyCompliant, Confidence: 90})
	job.UpdateStatus(types.JobCompleted, "")
	require.NoError(t, jobs.Save(context.Background(), job))

	router := newJobRouter(jobs)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/result/job-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status bool                    `json:"status"`
		Data   types.JobResultResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Status)
	require.Len(t, body.Data.Results, 1)
	assert.Equal(t, types.FullyCompliant, body.Data.Results[0].ComplianceLevel)
}

func TestGetJobResultStillProcessing(t *testing.T) {
	jobs := repository.NewMemoryJobRepo()
	job := types.NewJob("job-1", "contract.pdf", 100)
	job.UpdateStatus(types.JobProcessing, "")
	job.UpdateProgress(52, "Analyzing requirement 3/5")
	require.NoError(t, jobs.Save(context.Background(), job))

	router := newJobRouter(jobs)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/result/job-1", nil)
	router.ServeHTTP(w, req)

	// Progress, never partial results.
	require.Equal(t, http.StatusTooEarly, w.Code)
	assert.NotContains(t, w.Body.String(), "results")
	assert.Contains(t, w.Body.String(), "\"progress\":52")
	assert.Contains(t, w.Body.String(), "Job is still processing. Current progress: 52%")
}

func TestGetJobResultFailed(t *testing.T) {
	jobs := repository.NewMemoryJobRepo()
	job := types.NewJob("job-1", "broken.pdf", 100)
	job.UpdateStatus(types.JobFailed, "Processing failed: malformed PDF structure")
	require.NoError(t, jobs.Save(context.Background(), job))

	router := newJobRouter(jobs)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/result/job-1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Status  bool   `json:"status"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, "Job failed: Processing failed: malformed PDF structure", body.Message)
}

func TestListRequirements(t *testing.T) {
	router := newJobRouter(repository.NewMemoryJobRepo())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/requirements", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{
		"password_management",
		"it_asset_management",
		"security_training",
		"tls_encryption",
		"authn_authz",
	}, body.Data)
}

func TestStartChatRequiresCompletedJob(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jobs := repository.NewMemoryJobRepo()
	sessions := repository.NewMemorySessionRepo()

	job := types.NewJob("job-1", "contract.pdf", 100)
	job.UpdateStatus(types.JobProcessing, "")
	require.NoError(t, jobs.Save(context.Background(), job))

	h := NewChatHandler(nil, jobs, sessions, testLogger())
	router := gin.New()
	router.POST("/chat/start", h.StartChatHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/start", strings.NewReader(`{"job_id":"job-1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartChatCreatesSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jobs := repository.NewMemoryJobRepo()
	sessions := repository.NewMemorySessionRepo()

	job := types.NewJob("job-1", "contract.pdf", 100)
	job.UpdateStatus(types.JobCompleted, "")
	require.NoError(t, jobs.Save(context.Background(), job))

	h := NewChatHandler(nil, jobs, sessions, testLogger())
	router := gin.New()
	router.POST("/chat/start", h.StartChatHandler)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/start", strings.NewReader(`{"job_id":"job-1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data types.ChatStartResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.SessionID)
	assert.Equal(t, "job-1", body.Data.JobID)

	_, err := sessions.Get(context.Background(), body.Data.SessionID)
	assert.NoError(t, err)
}
