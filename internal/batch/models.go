package batch

import "github.com/pitabwire/frame/data"

// Job statuses, in the order a job normally moves through them.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusError      = "error"
	StatusSkipped    = "skipped"
)

// Job is one batch transcription request tracked through its lifecycle.
type Job struct {
	data.BaseModel

	RequestID          string `gorm:"type:varchar(50);not null;uniqueIndex:idx_jobs_request" json:"request_id"`
	SessionID          string `gorm:"type:varchar(50);index:idx_jobs_session"                json:"session_id,omitempty"`
	Bucket             string `gorm:"type:varchar(255)"                                      json:"bucket,omitempty"`
	ObjectName         string `gorm:"type:varchar(1024)"                                     json:"object_name,omitempty"`
	Status             string `gorm:"type:varchar(20);not null;index:idx_jobs_status"        json:"status"`
	Message            string `gorm:"type:text"                                              json:"message,omitempty"`
	Language           string `gorm:"type:varchar(16)"                                       json:"language,omitempty"`
	TranscriptLocation string `gorm:"type:varchar(1024)"                                     json:"transcript_location,omitempty"`
	ErrorDetails       string `gorm:"type:text"                                              json:"error_details,omitempty"`
	ProcessingMs       int64  `gorm:"default:0"                                              json:"processing_ms"`
}

func (Job) TableName() string { return "transcription_jobs" }
