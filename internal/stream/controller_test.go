package stream

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/whisperlive/whisperlive/internal/asr"
	"github.com/whisperlive/whisperlive/internal/transcript"
)

type scriptedTransport struct {
	frames []*Frame
	idx    int
	writes []any
}

func (s *scriptedTransport) ReadFrame() (*Frame, error) {
	if s.idx >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.idx]
	s.idx++
	return f, nil
}

func (s *scriptedTransport) WriteJSON(v any) error {
	s.writes = append(s.writes, v)
	return nil
}

type funcTranscriber struct {
	fn func(ctx context.Context, pcm []byte, startOffset int64, opts asr.Options) ([]asr.Segment, error)
}

func (f *funcTranscriber) Transcribe(ctx context.Context, pcm []byte, startOffset int64, opts asr.Options) ([]asr.Segment, error) {
	return f.fn(ctx, pcm, startOffset, opts)
}

type memorySink struct {
	saved map[string]*transcript.Document
}

func (m *memorySink) Save(_ context.Context, key string, doc *transcript.Document) error {
	if m.saved == nil {
		m.saved = make(map[string]*transcript.Document)
	}
	m.saved[key] = doc
	return nil
}

// smallWindowConfig cuts one window per 320-sample frame.
func smallWindowConfig() BufferConfig {
	return BufferConfig{
		SampleRate:     16000,
		WindowDuration: 10 * time.Millisecond,
	}
}

func runController(t *testing.T, frames []*Frame, tr Transcriber) (*scriptedTransport, *memorySink, *Session, error) {
	t.Helper()
	registry := NewRegistry()
	session := registry.Create(smallWindowConfig(), "en", "")
	transport := &scriptedTransport{frames: frames}
	sink := &memorySink{}
	ctrl := NewController(session, registry, tr, transport, sink, nil, ControllerConfig{
		SampleRate: 16000,
		Language:   "en",
	})
	err := ctrl.Run(context.Background())
	if registry.Get(session.ID) != nil {
		t.Error("session still registered after Run")
	}
	return transport, sink, session, err
}

func TestControllerEmitsOrderedResults(t *testing.T) {
	calls := 0
	tr := &funcTranscriber{fn: func(_ context.Context, pcm []byte, startOffset int64, _ asr.Options) ([]asr.Segment, error) {
		if len(pcm) == 0 {
			return nil, nil
		}
		calls++
		start := float64(startOffset) / 16000
		return []asr.Segment{{Text: fmt.Sprintf("word%d", calls), Start: start, End: start + 0.02}}, nil
	}}

	frames := []*Frame{
		{Audio: silentFrame(320)},
		{Audio: silentFrame(320)},
		{Finalize: true},
	}
	transport, sink, session, err := runController(t, frames, tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(transport.writes) != 4 {
		t.Fatalf("got %d writes, want connected + 2 results + final", len(transport.writes))
	}

	connected, ok := transport.writes[0].(ConnectedFrame)
	if !ok || connected.Event != "connected" || connected.SessionID != session.ID {
		t.Fatalf("first write = %#v, want connected frame", transport.writes[0])
	}

	for i, w := range transport.writes[1:] {
		rf, ok := w.(ResultFrame)
		if !ok {
			t.Fatalf("write %d = %#v, want ResultFrame", i+1, w)
		}
		if rf.Sequence != i {
			t.Errorf("frame %d sequence = %d, want %d", i, rf.Sequence, i)
		}
		isLast := i == len(transport.writes[1:])-1
		if rf.IsFinal != isLast {
			t.Errorf("frame %d IsFinal = %v, want %v", i, rf.IsFinal, isLast)
		}
	}

	final := transport.writes[3].(ResultFrame)
	if final.Text != "word1 word2" {
		t.Errorf("final text = %q, want %q", final.Text, "word1 word2")
	}

	doc := sink.saved[transcript.SessionKey(session.ID)]
	if doc == nil {
		t.Fatal("transcript not persisted")
	}
	if len(doc.Segments) != 2 {
		t.Fatalf("persisted %d segments, want 2", len(doc.Segments))
	}
	for i, seg := range doc.Segments {
		if seg.ID != i {
			t.Errorf("segment %d has id %d, want contiguous ids", i, seg.ID)
		}
	}
	if session.State() != StateClosed {
		t.Errorf("session state = %s, want closed", session.State())
	}
}

func TestControllerAbsorbsTranscriptionFailure(t *testing.T) {
	calls := 0
	tr := &funcTranscriber{fn: func(_ context.Context, pcm []byte, _ int64, _ asr.Options) ([]asr.Segment, error) {
		if len(pcm) == 0 {
			return nil, nil
		}
		calls++
		if calls == 1 {
			return nil, &asr.TranscriptionFailure{Err: fmt.Errorf("model choked")}
		}
		return []asr.Segment{{Text: "ok"}}, nil
	}}

	frames := []*Frame{
		{Audio: silentFrame(320)},
		{Audio: silentFrame(320)},
		{Finalize: true},
	}
	transport, _, _, err := runController(t, frames, tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The failed window produces no frame; the stream continues.
	var results []ResultFrame
	for _, w := range transport.writes {
		if rf, ok := w.(ResultFrame); ok {
			results = append(results, rf)
		}
	}
	if len(results) != 2 {
		t.Fatalf("got %d result frames, want 2 (one dropped)", len(results))
	}
	if results[0].Sequence != 0 || results[1].Sequence != 1 {
		t.Errorf("sequences = %d,%d, want 0,1 with no gap", results[0].Sequence, results[1].Sequence)
	}
	last := results[len(results)-1]
	if !last.IsFinal {
		t.Error("last frame must be final")
	}
	if last.Text != "ok" {
		t.Errorf("final text = %q, want %q", last.Text, "ok")
	}
}

func TestControllerFinalizesOnDisconnect(t *testing.T) {
	tr := &funcTranscriber{fn: func(_ context.Context, pcm []byte, _ int64, _ asr.Options) ([]asr.Segment, error) {
		if len(pcm) == 0 {
			return nil, nil
		}
		return []asr.Segment{{Text: "tail"}}, nil
	}}

	// Three chunks below the window threshold, then the peer drops. All
	// buffered audio gets one final pass and the transcript is persisted.
	frames := []*Frame{
		{Audio: silentFrame(40)},
		{Audio: silentFrame(40)},
		{Audio: silentFrame(40)},
	}
	transport, sink, session, err := runController(t, frames, tr)
	if err != nil {
		t.Fatalf("Run after disconnect: %v", err)
	}

	var results []ResultFrame
	for _, w := range transport.writes {
		if rf, ok := w.(ResultFrame); ok {
			results = append(results, rf)
		}
	}
	if len(results) != 1 {
		t.Fatalf("got %d result frames, want exactly one final", len(results))
	}
	last := results[0]
	if !last.IsFinal {
		t.Fatalf("only frame not final: %#v", last)
	}
	if last.Text != "tail" {
		t.Errorf("final text = %q, want %q", last.Text, "tail")
	}
	if sink.saved[transcript.SessionKey(session.ID)] == nil {
		t.Error("transcript not persisted on disconnect")
	}
}

func TestControllerAlwaysSendsFinalFrame(t *testing.T) {
	tr := &funcTranscriber{fn: func(_ context.Context, pcm []byte, _ int64, _ asr.Options) ([]asr.Segment, error) {
		return nil, nil
	}}

	// Immediate finalize with no audio at all.
	frames := []*Frame{{Finalize: true}}
	transport, _, _, err := runController(t, frames, tr)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	last, ok := transport.writes[len(transport.writes)-1].(ResultFrame)
	if !ok {
		t.Fatalf("last write = %#v, want ResultFrame", transport.writes[len(transport.writes)-1])
	}
	if !last.IsFinal {
		t.Error("empty session must still emit a final frame")
	}
	if last.Sequence != 0 {
		t.Errorf("final sequence = %d, want 0", last.Sequence)
	}
}
