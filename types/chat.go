package types

import "time"

// Message represents a single message in a conversation.
type Message struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// ChatSession is an ordered message history tied to a completed job. The job
// id is a lookup key only; the session never embeds job data.
type ChatSession struct {
	SessionID string    `json:"session_id" bson:"session_id"`
	JobID     string    `json:"job_id" bson:"job_id"`
	Messages  []Message `json:"messages" bson:"messages"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewChatSession creates an empty session for a job.
func NewChatSession(sessionID, jobID string) *ChatSession {
	now := time.Now().UTC()
	return &ChatSession{
		SessionID: sessionID,
		JobID:     jobID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends one turn to the history.
func (s *ChatSession) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy safe to read while the original keeps changing.
func (s *ChatSession) Clone() *ChatSession {
	c := *s
	if s.Messages != nil {
		c.Messages = append([]Message(nil), s.Messages...)
	}
	return &c
}

// ChatAnswer is the outcome of one chat turn: the answer text, the quotes
// that survived verification and a heuristic confidence.
type ChatAnswer struct {
	Answer         string  `json:"answer"`
	RelevantQuotes []Quote `json:"relevant_quotes"`
	Confidence     int     `json:"confidence"`
}
