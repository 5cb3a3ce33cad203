package types

type ChatStartRequest struct {
	JobID string `json:"job_id"`
}

type ChatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}
