package asr

import "context"

// Segment is a timed span of recognized speech. Timestamps are in seconds
// relative to the start of the audio handed to the engine.
type Segment struct {
	Text    string
	Start   float64
	End     float64
	Speaker string
}

// Result is the output of one transcription call.
type Result struct {
	Text     string
	Language string
	Segments []Segment
}

// Options carries per-call transcription parameters.
type Options struct {
	Language   string
	SampleRate int
	BeamSize   int
}

// ModelInfo describes an available model for a backend.
type ModelInfo struct {
	ID          string
	DisplayName string
	IsDefault   bool
}

// Engine transcribes one span of 16-bit little-endian mono PCM audio per
// call. Engines are not required to be safe for concurrent calls; the
// Gateway schedules access.
type Engine interface {
	Transcribe(ctx context.Context, pcm []byte, opts Options) (Result, error)
	Models() []ModelInfo
	Close() error
}
