package stream

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

func silentFrame(samples int) []byte {
	return make([]byte, samples*2)
}

func loudFrame(samples int) []byte {
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(10000)))
	}
	return buf
}

func TestBufferCutsOnDuration(t *testing.T) {
	b := NewBuffer(BufferConfig{
		SampleRate:     16000,
		WindowDuration: 100 * time.Millisecond, // 1600 samples
	})

	// 20ms silent frames never trigger the silence cut because speech
	// never started; only the duration threshold applies.
	var window *Window
	for i := 0; i < 10; i++ {
		w, err := b.Push(silentFrame(320))
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		if w != nil {
			window = w
			break
		}
	}
	if window == nil {
		t.Fatal("expected a window after 100ms of audio")
	}
	if window.StartOffset != 0 {
		t.Errorf("start offset = %d, want 0", window.StartOffset)
	}
	if window.EndOffset != 1600 {
		t.Errorf("end offset = %d, want 1600", window.EndOffset)
	}
	if window.IsFinal {
		t.Error("duration-cut window must not be final")
	}
}

func TestBufferCutsOnSilenceGap(t *testing.T) {
	b := NewBuffer(BufferConfig{
		SampleRate:     16000,
		WindowDuration: 10 * time.Second,
		VAD: VADConfig{
			EnergyThreshold: 500,
			SpeechMinDur:    10 * time.Millisecond,
			SilenceMinDur:   50 * time.Millisecond,
		},
	})

	// 40ms of speech starts a run.
	for i := 0; i < 2; i++ {
		if w, err := b.Push(loudFrame(320)); err != nil || w != nil {
			t.Fatalf("speech push %d: window=%v err=%v", i, w, err)
		}
	}

	// 60ms of silence ends it and closes the window early.
	var window *Window
	for i := 0; i < 3; i++ {
		w, err := b.Push(silentFrame(320))
		if err != nil {
			t.Fatalf("silence push %d: %v", i, err)
		}
		if w != nil {
			window = w
			break
		}
	}
	if window == nil {
		t.Fatal("expected a silence-gap window")
	}
	if window.IsFinal {
		t.Error("silence-cut window must not be final")
	}
}

func TestBufferWindowsTileStream(t *testing.T) {
	b := NewBuffer(BufferConfig{
		SampleRate:     16000,
		WindowDuration: 50 * time.Millisecond, // 800 samples
	})

	var windows []*Window
	for i := 0; i < 25; i++ {
		w, err := b.Push(silentFrame(320))
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		if w != nil {
			windows = append(windows, w)
		}
	}
	final, err := b.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	windows = append(windows, final)

	var next int64
	for i, w := range windows {
		if w.StartOffset != next {
			t.Errorf("window %d starts at %d, want %d (no gaps, no overlaps)", i, w.StartOffset, next)
		}
		if got := int64(len(w.Samples) / 2); w.EndOffset-w.StartOffset != got {
			t.Errorf("window %d spans %d samples but holds %d", i, w.EndOffset-w.StartOffset, got)
		}
		next = w.EndOffset
	}
	if next != 25*320 {
		t.Errorf("windows cover %d samples, want %d", next, 25*320)
	}
	if !windows[len(windows)-1].IsFinal {
		t.Error("last window must be final")
	}
}

func TestBufferFlushEmpty(t *testing.T) {
	b := NewBuffer(BufferConfig{SampleRate: 16000})

	w, err := b.Flush()
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !w.IsFinal {
		t.Error("empty flush window must be final")
	}
	if len(w.Samples) != 0 {
		t.Errorf("empty flush returned %d bytes", len(w.Samples))
	}
}

func TestBufferPushAfterFlush(t *testing.T) {
	b := NewBuffer(BufferConfig{SampleRate: 16000})
	if _, err := b.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	_, err := b.Push(silentFrame(320))
	var ise *InvalidStateError
	if !errors.As(err, &ise) {
		t.Fatalf("push after flush: got %v, want InvalidStateError", err)
	}

	if _, err := b.Flush(); err == nil {
		t.Error("second flush should be rejected")
	}
}
