package types

import "time"

// JobStatus is the job state machine: PENDING -> PROCESSING ->
// {COMPLETED, FAILED}. The terminal states are mutually exclusive.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is one of the two end states.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job tracks one analysis run. A job exclusively owns its document, chunks
// and results; only the job's own pipeline goroutine mutates the record.
type Job struct {
	JobID       string     `json:"job_id" bson:"job_id"`
	Status      JobStatus  `json:"status" bson:"status"`
	Progress    int        `json:"progress" bson:"progress"`
	Stage       string     `json:"stage" bson:"stage"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`

	Filename      string `json:"filename" bson:"filename"`
	FileSizeBytes int    `json:"file_size_bytes" bson:"file_size_bytes"`

	Document *Document `json:"document,omitempty" bson:"document,omitempty"`
	Chunks   []Chunk   `json:"chunks,omitempty" bson:"chunks,omitempty"`
	Results  []Result  `json:"results" bson:"results"`

	TimingsMs map[string]int64 `json:"timings_ms,omitempty" bson:"timings_ms,omitempty"`

	ErrorMessage string `json:"error_message,omitempty" bson:"error_message,omitempty"`
}

// NewJob returns a pending job with zero progress.
func NewJob(jobID, filename string, fileSize int) *Job {
	now := time.Now().UTC()
	return &Job{
		JobID:         jobID,
		Status:        JobPending,
		Progress:      0,
		CreatedAt:     now,
		UpdatedAt:     now,
		Filename:      filename,
		FileSizeBytes: fileSize,
	}
}

// UpdateProgress clamps progress into [0,100] and overwrites the stage label
// when one is given. Stage labels are held steady through long sub-steps by
// passing the empty string.
func (j *Job) UpdateProgress(progress int, stage string) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	if stage != "" {
		j.Stage = stage
	}
	j.UpdatedAt = time.Now().UTC()
}

// UpdateStatus moves the job through the state machine. Completion forces
// progress to 100; failure records the error message.
func (j *Job) UpdateStatus(status JobStatus, errorMessage string) {
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	switch status {
	case JobCompleted:
		now := time.Now().UTC()
		j.CompletedAt = &now
		j.Progress = 100
	case JobFailed:
		j.ErrorMessage = errorMessage
	}
}

// Clone returns a copy that is safe to read while the original keeps
// changing. Slices and maps are copied; the parsed document is shared because
// it is written once and never mutated afterwards.
func (j *Job) Clone() *Job {
	c := *j
	if j.CompletedAt != nil {
		at := *j.CompletedAt
		c.CompletedAt = &at
	}
	if j.Chunks != nil {
		c.Chunks = append([]Chunk(nil), j.Chunks...)
	}
	if j.Results != nil {
		c.Results = append([]Result(nil), j.Results...)
	}
	if j.TimingsMs != nil {
		c.TimingsMs = make(map[string]int64, len(j.TimingsMs))
		for k, v := range j.TimingsMs {
			c.TimingsMs[k] = v
		}
	}
	return &c
}

// AddResult appends one requirement's result.
func (j *Job) AddResult(r Result) {
	j.Results = append(j.Results, r)
	j.UpdatedAt = time.Now().UTC()
}
