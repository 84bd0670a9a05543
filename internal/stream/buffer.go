package stream

import "time"

// Window is a contiguous span of buffered audio handed to inference as one
// unit. Offsets are sample indexes into the whole stream, so consecutive
// windows tile the stream with no gaps and no overlaps.
type Window struct {
	Samples     []byte
	StartOffset int64
	EndOffset   int64
	IsFinal     bool
}

// Duration reports the window length at the given sample rate.
func (w *Window) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := w.EndOffset - w.StartOffset
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// BufferConfig holds windowing parameters for one session's audio buffer.
type BufferConfig struct {
	SampleRate int
	// WindowDuration is the accumulation threshold that forces a window cut
	// regardless of voice activity.
	WindowDuration time.Duration
	VAD            VADConfig
}

// Buffer accumulates 16-bit mono PCM and cuts it into inference windows.
// A window closes when enough audio has accumulated or when the detector
// sees a long enough silence gap, whichever comes first. Not safe for
// concurrent use; each session's controller is the only writer.
type Buffer struct {
	sampleRate  int
	windowBytes int
	vad         *VAD
	pending     []byte
	mark        int64
	flushed     bool
}

func NewBuffer(cfg BufferConfig) *Buffer {
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	dur := cfg.WindowDuration
	if dur <= 0 {
		dur = 5 * time.Second
	}
	vadCfg := cfg.VAD
	vadCfg.SampleRate = sampleRate
	return &Buffer{
		sampleRate:  sampleRate,
		windowBytes: int(dur.Seconds() * float64(sampleRate) * 2),
		vad:         NewVAD(vadCfg),
	}
}

// Push appends one frame of audio and returns a closed window when the
// frame completed one, nil otherwise. Push after Flush is rejected.
func (b *Buffer) Push(frame []byte) (*Window, error) {
	if b.flushed {
		return nil, &InvalidStateError{Op: "push", State: StateFinalizing}
	}
	if len(frame) == 0 {
		return nil, nil
	}

	b.pending = append(b.pending, frame...)
	event := b.vad.ProcessFrame(frame)

	if len(b.pending) >= b.windowBytes || event == VADSpeechEnd {
		return b.cut(false), nil
	}
	return nil, nil
}

// Flush closes the buffer and returns whatever remains as the final
// window. The window is returned even when empty so the consumer can
// finish the stream unconditionally. A second Flush is rejected.
func (b *Buffer) Flush() (*Window, error) {
	if b.flushed {
		return nil, &InvalidStateError{Op: "flush", State: StateFinalizing}
	}
	b.flushed = true
	return b.cut(true), nil
}

// BufferedBytes reports how much audio is pending in the open window.
func (b *Buffer) BufferedBytes() int { return len(b.pending) }

func (b *Buffer) cut(final bool) *Window {
	samples := b.pending
	b.pending = nil
	start := b.mark
	end := start + int64(len(samples)/2)
	b.mark = end
	return &Window{
		Samples:     samples,
		StartOffset: start,
		EndOffset:   end,
		IsFinal:     final,
	}
}
