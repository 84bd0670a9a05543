package events

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of event flowing through the system.
type EventType string

const (
	SessionStarted EventType = "session.started"
	SessionClosed  EventType = "session.closed"
	SpeechPartial  EventType = "speech.partial"
	SpeechFinal    EventType = "speech.final"
	BatchAccepted  EventType = "batch.accepted"
	BatchCompleted EventType = "batch.completed"
	BatchFailed    EventType = "batch.failed"
	SystemError    EventType = "error"
)

// Envelope is the standard event wrapper published to the event bus.
type Envelope struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Source    string            `json:"source"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Data      json.RawMessage   `json:"data"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SessionStartedData is the payload for session.started events.
type SessionStartedData struct {
	Profile  string `json:"profile,omitempty"`
	Language string `json:"language"`
}

// SessionClosedData is the payload for session.closed events.
type SessionClosedData struct {
	Reason     string `json:"reason"`
	DurationMs int64  `json:"duration_ms"`
	Segments   int    `json:"segments"`
}

// SpeechData is the payload for speech.partial and speech.final events.
type SpeechData struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments int    `json:"segments"`
}

// BatchJobData is the payload for batch.* events.
type BatchJobData struct {
	RequestID          string `json:"request_id"`
	Bucket             string `json:"bucket,omitempty"`
	ObjectName         string `json:"object_name,omitempty"`
	SessionID          string `json:"session_id,omitempty"`
	Status             string `json:"status"`
	TranscriptLocation string `json:"transcript_location,omitempty"`
	Error              string `json:"error,omitempty"`
}
