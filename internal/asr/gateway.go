package asr

import (
	"context"
	"strings"
	"time"

	"github.com/pitabwire/frame/workerpool"
)

// GatewayConfig holds scheduling parameters for the inference gateway.
type GatewayConfig struct {
	// Slots is the number of inference calls allowed in flight across all
	// sessions. 1 serializes every call through a single execution slot,
	// which is the safe default for a non-reentrant model capability and
	// an explicit throughput ceiling, not a bug.
	Slots int
	// Timeout bounds a single inference call. Zero disables the bound.
	Timeout    time.Duration
	SampleRate int
}

// Gateway wraps an Engine behind a non-blocking interface. It owns the
// shared-model scheduling policy and maps window-relative model timestamps
// into the session's absolute offset space.
type Gateway struct {
	engine     Engine
	pool       workerpool.WorkerPool
	slots      chan struct{}
	timeout    time.Duration
	sampleRate int
}

// NewGateway creates a gateway around the given engine. The worker pool
// keeps inference off the caller's goroutine; a nil pool falls back to
// plain goroutines.
func NewGateway(engine Engine, pool workerpool.WorkerPool, cfg GatewayConfig) *Gateway {
	slots := cfg.Slots
	if slots <= 0 {
		slots = 1
	}
	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &Gateway{
		engine:     engine,
		pool:       pool,
		slots:      make(chan struct{}, slots),
		timeout:    cfg.Timeout,
		sampleRate: sampleRate,
	}
}

type outcome struct {
	res Result
	err error
}

// Transcribe runs one inference pass over pcm and returns segments whose
// timestamps are absolute within the stream, offset by startOffset samples.
// The calling goroutine suspends until the result returns, but the model
// itself runs on the worker pool. Failed calls return an empty segment
// list and a TranscriptionFailure; the window is not retried.
func (g *Gateway) Transcribe(ctx context.Context, pcm []byte, startOffset int64, opts Options) ([]Segment, error) {
	if len(pcm) == 0 {
		return nil, nil
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = g.sampleRate
	}

	select {
	case g.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if g.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
	}

	ch := make(chan outcome, 1)
	run := func() {
		defer func() { <-g.slots }()
		defer cancel()
		res, err := g.engine.Transcribe(callCtx, pcm, opts)
		ch <- outcome{res: res, err: err}
	}

	if g.pool != nil {
		if err := g.pool.Submit(ctx, run); err != nil {
			<-g.slots
			cancel()
			return nil, &TranscriptionFailure{Err: err}
		}
	} else {
		go run()
	}

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, &TranscriptionFailure{Err: out.err}
		}
		return g.absoluteSegments(out.res, startOffset, len(pcm), opts.SampleRate), nil
	case <-callCtx.Done():
		if ctx.Err() != nil {
			// Caller is gone. The in-flight call finishes on its own and
			// its result is discarded.
			return nil, ctx.Err()
		}
		return nil, &TranscriptionFailure{Err: callCtx.Err()}
	}
}

func (g *Gateway) absoluteSegments(res Result, startOffset int64, pcmLen, sampleRate int) []Segment {
	base := float64(startOffset) / float64(sampleRate)
	segments := make([]Segment, 0, len(res.Segments))
	for _, s := range res.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Text:    text,
			Start:   base + s.Start,
			End:     base + s.End,
			Speaker: s.Speaker,
		})
	}
	if len(segments) == 0 && strings.TrimSpace(res.Text) != "" {
		// Engines without segment timing report one span for the window.
		segments = append(segments, Segment{
			Text:  strings.TrimSpace(res.Text),
			Start: base,
			End:   base + float64(pcmLen/2)/float64(sampleRate),
		})
	}
	return segments
}
