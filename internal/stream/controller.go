package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/whisperlive/whisperlive/internal/asr"
	"github.com/whisperlive/whisperlive/internal/transcript"
	"github.com/whisperlive/whisperlive/pkg/events"
)

// Frame is one inbound transport message: either a chunk of audio or a
// finalize request.
type Frame struct {
	Audio    []byte
	Finalize bool
}

// Transport is the bidirectional connection a controller drives. ReadFrame
// returns io.EOF when the peer disconnected, which finalizes the session
// gracefully.
type Transport interface {
	ReadFrame() (*Frame, error)
	WriteJSON(v any) error
}

// Transcriber is the inference capability the controller invokes once per
// window. Timestamps in returned segments are absolute within the stream.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, startOffset int64, opts asr.Options) ([]asr.Segment, error)
}

// TranscriptSink persists a finished session transcript.
type TranscriptSink interface {
	Save(ctx context.Context, key string, doc *transcript.Document) error
}

// ConnectedFrame is the first frame written on a new session.
type ConnectedFrame struct {
	Event     string `json:"event"`
	SessionID string `json:"session_id"`
}

// SegmentPayload is one transcript segment as emitted to the client.
type SegmentPayload struct {
	ID      int     `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// ResultFrame carries the outcome of one inference pass. Sequence numbers
// are strictly increasing per session; exactly one frame has IsFinal set
// and it is the last one.
type ResultFrame struct {
	SessionID string           `json:"session_id"`
	Sequence  int              `json:"sequence"`
	IsFinal   bool             `json:"is_final"`
	Text      string           `json:"text"`
	Segments  []SegmentPayload `json:"segments"`
	Language  string           `json:"language"`
}

// ControllerConfig carries per-session inference parameters.
type ControllerConfig struct {
	SampleRate int
	Language   string
	BeamSize   int
}

// Controller runs one session end to end: it reads frames from the
// transport, windows audio through the session buffer, issues at most one
// inference call at a time and emits results in order. Exactly one
// controller goroutine exists per session.
type Controller struct {
	session     *Session
	registry    *Registry
	transcriber Transcriber
	transport   Transport
	sink        TranscriptSink
	pub         *events.Publisher
	cfg         ControllerConfig

	emitted []transcript.Segment
}

func NewController(session *Session, registry *Registry, transcriber Transcriber, transport Transport, sink TranscriptSink, pub *events.Publisher, cfg ControllerConfig) *Controller {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Language == "" {
		cfg.Language = session.Language
	}
	return &Controller{
		session:     session,
		registry:    registry,
		transcriber: transcriber,
		transport:   transport,
		sink:        sink,
		pub:         pub,
		cfg:         cfg,
	}
}

// Run drives the session until the client finalizes, disconnects, or the
// context is cancelled. The session always ends closed and removed from
// the registry, and the client always receives a final frame if the
// transport still accepts writes.
func (c *Controller) Run(ctx context.Context) error {
	defer c.registry.Remove(c.session.ID)

	if err := c.transport.WriteJSON(ConnectedFrame{Event: "connected", SessionID: c.session.ID}); err != nil {
		c.close(ctx, "handshake failed")
		return err
	}
	if err := c.session.Transition(StateActive); err != nil {
		c.close(ctx, "activation failed")
		return err
	}
	c.publish(ctx, events.SessionStarted, events.SessionStartedData{
		Profile:  c.session.Profile,
		Language: c.cfg.Language,
	})

	reason := "finalize"
	var runErr error

loop:
	for {
		frame, err := c.transport.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				reason = "disconnect"
			} else {
				reason = "transport error"
				runErr = err
			}
			break
		}
		switch {
		case frame.Finalize:
			break loop
		case len(frame.Audio) > 0:
			window, err := c.session.PushAudio(frame.Audio)
			if err != nil {
				slog.WarnContext(ctx, "audio frame rejected",
					slog.String("session_id", c.session.ID),
					slog.String("error", err.Error()))
				continue
			}
			if window == nil {
				continue
			}
			if err := c.processWindow(ctx, window); err != nil {
				reason = "cancelled"
				runErr = err
				break loop
			}
		}
	}

	if err := c.finalize(ctx, reason); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// processWindow runs inference on one window and emits the result. Failed
// windows are dropped and the session continues; only context cancellation
// stops the loop.
func (c *Controller) processWindow(ctx context.Context, w *Window) error {
	segs, err := c.transcriber.Transcribe(ctx, w.Samples, w.StartOffset, c.options())
	if err != nil {
		var tf *asr.TranscriptionFailure
		if errors.As(err, &tf) {
			slog.WarnContext(ctx, "window transcription failed, continuing",
				slog.String("session_id", c.session.ID),
				slog.Int64("start_offset", w.StartOffset),
				slog.String("error", err.Error()))
			return nil
		}
		return err
	}
	c.emit(ctx, segs, w.IsFinal)
	return nil
}

// emit assigns segment ids, extends the running transcript and writes one
// result frame. Emission order matches window order because the controller
// is the only goroutine doing either.
func (c *Controller) emit(ctx context.Context, segs []asr.Segment, isFinal bool) {
	payload := make([]SegmentPayload, 0, len(segs))
	for _, s := range segs {
		id := c.session.NextSegmentID()
		payload = append(payload, SegmentPayload{
			ID:      id,
			Start:   s.Start,
			End:     s.End,
			Text:    s.Text,
			Speaker: s.Speaker,
		})
		c.emitted = append(c.emitted, transcript.Segment{
			ID:      id,
			Start:   s.Start,
			End:     s.End,
			Text:    s.Text,
			Speaker: s.Speaker,
		})
		c.session.AppendText(s.Text)
	}

	frame := ResultFrame{
		SessionID: c.session.ID,
		Sequence:  c.session.NextSequence(),
		IsFinal:   isFinal,
		Text:      c.session.Transcript(),
		Segments:  payload,
		Language:  c.cfg.Language,
	}
	if err := c.transport.WriteJSON(frame); err != nil {
		slog.WarnContext(ctx, "result frame write failed",
			slog.String("session_id", c.session.ID),
			slog.Int("sequence", frame.Sequence),
			slog.String("error", err.Error()))
	}
	if len(payload) > 0 && !isFinal {
		c.publish(ctx, events.SpeechPartial, events.SpeechData{
			Text:     frame.Text,
			Language: frame.Language,
			Segments: len(payload),
		})
	}
}

// finalize drains the buffer, runs the final inference pass, emits the
// final frame and persists the transcript. Runs on every teardown path.
func (c *Controller) finalize(ctx context.Context, reason string) error {
	if c.session.State() == StateActive {
		if err := c.session.Transition(StateFinalizing); err != nil {
			return err
		}
	}

	var finalSegs []asr.Segment
	if c.session.State() == StateFinalizing {
		window, err := c.session.Flush()
		if err == nil && ctx.Err() == nil && len(window.Samples) > 0 {
			segs, terr := c.transcriber.Transcribe(ctx, window.Samples, window.StartOffset, c.options())
			if terr != nil {
				slog.WarnContext(ctx, "final window transcription failed",
					slog.String("session_id", c.session.ID),
					slog.String("error", terr.Error()))
			} else {
				finalSegs = segs
			}
		}
	}

	// The final frame is sent unconditionally, even with no new segments,
	// so clients can rely on exactly one is_final frame per session.
	c.emit(ctx, finalSegs, true)

	if c.sink != nil {
		doc := &transcript.Document{
			Segments: c.emitted,
			Language: c.cfg.Language,
			Text:     c.session.Transcript(),
		}
		saveCtx := context.WithoutCancel(ctx)
		if err := c.sink.Save(saveCtx, transcript.SessionKey(c.session.ID), doc); err != nil {
			slog.ErrorContext(ctx, "transcript persist failed",
				slog.String("session_id", c.session.ID),
				slog.String("error", err.Error()))
		}
	}

	c.publish(ctx, events.SpeechFinal, events.SpeechData{
		Text:     c.session.Transcript(),
		Language: c.cfg.Language,
		Segments: len(c.emitted),
	})
	c.close(ctx, reason)
	return nil
}

func (c *Controller) close(ctx context.Context, reason string) {
	if c.session.State() != StateClosed {
		if err := c.session.Transition(StateClosed); err != nil {
			slog.WarnContext(ctx, "session close transition failed",
				slog.String("session_id", c.session.ID),
				slog.String("error", err.Error()))
			return
		}
	}
	c.publish(ctx, events.SessionClosed, events.SessionClosedData{
		Reason:     reason,
		DurationMs: time.Since(c.session.CreatedAt).Milliseconds(),
		Segments:   len(c.emitted),
	})
	slog.InfoContext(ctx, "session closed",
		slog.String("session_id", c.session.ID),
		slog.String("reason", reason),
		slog.Int("segments", len(c.emitted)))
}

func (c *Controller) options() asr.Options {
	return asr.Options{
		Language:   c.cfg.Language,
		SampleRate: c.cfg.SampleRate,
		BeamSize:   c.cfg.BeamSize,
	}
}

func (c *Controller) publish(ctx context.Context, eventType events.EventType, data any) {
	if c.pub == nil {
		return
	}
	if err := c.pub.Emit(ctx, eventType, c.session.ID, data); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			slog.String("session_id", c.session.ID),
			slog.String("event_type", string(eventType)),
			slog.String("error", err.Error()))
	}
}
