package stream

import (
	"strings"
	"time"
)

// State is a session lifecycle state.
type State int

const (
	StateConnecting State = iota
	StateActive
	StateFinalizing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateFinalizing:
		return "finalizing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var validTransitions = map[State]map[State]bool{
	StateConnecting: {StateActive: true, StateClosed: true},
	StateActive:     {StateFinalizing: true, StateClosed: true},
	StateFinalizing: {StateClosed: true},
}

// Session is one live connection's transcription context: lifecycle state,
// the audio buffer, sequence counters and the accumulated transcript.
// All fields are mutated by the single controller goroutine driving the
// session; only the registry's own map is shared.
type Session struct {
	ID        string
	CreatedAt time.Time
	Language  string
	Profile   string

	state     State
	seq       int
	segmentID int
	texts     []string
	buffer    *Buffer
}

// State reports the current lifecycle state.
func (s *Session) State() State { return s.state }

// Transition moves the session to the given state, rejecting moves the
// lifecycle does not allow.
func (s *Session) Transition(to State) error {
	if !validTransitions[s.state][to] {
		return &InvalidStateError{Op: "transition to " + to.String(), State: s.state}
	}
	s.state = to
	return nil
}

// PushAudio feeds one frame into the session buffer. Audio is only
// accepted while the session is active.
func (s *Session) PushAudio(frame []byte) (*Window, error) {
	if s.state != StateActive {
		return nil, &InvalidStateError{Op: "push", State: s.state}
	}
	return s.buffer.Push(frame)
}

// Flush drains the remaining buffered audio as the final window. Valid
// only while finalizing.
func (s *Session) Flush() (*Window, error) {
	if s.state != StateFinalizing {
		return nil, &InvalidStateError{Op: "flush", State: s.state}
	}
	return s.buffer.Flush()
}

// NextSequence returns the next result frame sequence number, starting
// at zero.
func (s *Session) NextSequence() int {
	n := s.seq
	s.seq++
	return n
}

// NextSegmentID returns the next transcript segment id, starting at zero.
func (s *Session) NextSegmentID() int {
	n := s.segmentID
	s.segmentID++
	return n
}

// AppendText accumulates recognized text into the running transcript.
func (s *Session) AppendText(text string) {
	text = strings.TrimSpace(text)
	if text != "" {
		s.texts = append(s.texts, text)
	}
}

// Transcript returns the full accumulated transcript.
func (s *Session) Transcript() string {
	return strings.Join(s.texts, " ")
}
