package asr

import "fmt"

// TranscriptionFailure reports a failed inference call. The window's audio
// is considered lost; the caller continues with the next window.
type TranscriptionFailure struct {
	Err error
}

func (e *TranscriptionFailure) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionFailure) Unwrap() error { return e.Err }

// ResourceInitFailure reports that the speech capability could not be
// initialized. It is fatal for serving sessions and surfaces through the
// health endpoint rather than per-session.
type ResourceInitFailure struct {
	Backend string
	Err     error
}

func (e *ResourceInitFailure) Error() string {
	return fmt.Sprintf("ASR backend %q failed to initialize: %v", e.Backend, e.Err)
}

func (e *ResourceInitFailure) Unwrap() error { return e.Err }
