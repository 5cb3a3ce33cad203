package types

import "time"

// DataResponse is the envelope every handler writes.
type DataResponse struct {
	Status  bool        `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type UploadResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status"`
}

type JobStatusResponse struct {
	JobID        string           `json:"job_id"`
	Status       JobStatus        `json:"status"`
	Progress     int              `json:"progress"`
	Stage        string           `json:"stage,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	ErrorMessage string           `json:"error_message,omitempty"`
	TimingsMs    map[string]int64 `json:"timings_ms,omitempty"`
}

type JobResultResponse struct {
	JobID       string           `json:"job_id"`
	Filename    string           `json:"filename"`
	Status      JobStatus        `json:"status"`
	Results     []Result         `json:"results"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	NeedsOCR    bool             `json:"needs_ocr"`
	TimingsMs   map[string]int64 `json:"timings_ms,omitempty"`
}

type ChatStartResponse struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
}
