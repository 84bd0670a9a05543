package stream

import (
	"errors"
	"testing"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	r := NewRegistry()
	return r.Create(BufferConfig{SampleRate: 16000}, "en", "")
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestSession(t)
	if s.State() != StateConnecting {
		t.Fatalf("new session state = %s, want connecting", s.State())
	}

	steps := []State{StateActive, StateFinalizing, StateClosed}
	for _, to := range steps {
		if err := s.Transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
}

func TestSessionIllegalTransitions(t *testing.T) {
	cases := []struct {
		name string
		from State
		to   State
	}{
		{"connecting to finalizing", StateConnecting, StateFinalizing},
		{"finalizing to active", StateFinalizing, StateActive},
		{"closed to active", StateClosed, StateActive},
		{"closed to closed", StateClosed, StateClosed},
		{"active to connecting", StateActive, StateConnecting},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSession(t)
			s.state = tc.from
			err := s.Transition(tc.to)
			var ise *InvalidStateError
			if !errors.As(err, &ise) {
				t.Fatalf("transition %s -> %s: got %v, want InvalidStateError", tc.from, tc.to, err)
			}
			if s.State() != tc.from {
				t.Errorf("failed transition mutated state to %s", s.State())
			}
		})
	}
}

func TestSessionRejectsAudioOutsideActive(t *testing.T) {
	for _, state := range []State{StateConnecting, StateFinalizing, StateClosed} {
		s := newTestSession(t)
		s.state = state
		_, err := s.PushAudio(make([]byte, 640))
		var ise *InvalidStateError
		if !errors.As(err, &ise) {
			t.Errorf("push in %s: got %v, want InvalidStateError", state, err)
		}
	}
}

func TestSessionCounters(t *testing.T) {
	s := newTestSession(t)

	for want := 0; want < 3; want++ {
		if got := s.NextSequence(); got != want {
			t.Errorf("sequence = %d, want %d", got, want)
		}
	}
	for want := 0; want < 3; want++ {
		if got := s.NextSegmentID(); got != want {
			t.Errorf("segment id = %d, want %d", got, want)
		}
	}

	s.AppendText("hello")
	s.AppendText("  world  ")
	s.AppendText("")
	if got := s.Transcript(); got != "hello world" {
		t.Errorf("transcript = %q, want %q", got, "hello world")
	}
}
