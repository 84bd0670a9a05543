package mock

import (
	"context"
	"fmt"

	"github.com/whisperlive/whisperlive/internal/asr"
)

func init() {
	asr.Register("mock", func(config map[string]string) (asr.Engine, error) {
		return &Engine{language: config["language"]}, nil
	})
}

// Engine is a development backend that reports one synthetic segment per
// call, sized from the audio it was given. Useful for exercising the
// streaming path without a model or API key.
type Engine struct {
	language string
	calls    int
}

func (e *Engine) Transcribe(_ context.Context, pcm []byte, opts asr.Options) (asr.Result, error) {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	e.calls++
	duration := float64(len(pcm)/2) / float64(sampleRate)
	text := fmt.Sprintf("mock transcription %d (%.2fs)", e.calls, duration)

	language := opts.Language
	if language == "" {
		language = e.language
	}

	return asr.Result{
		Text:     text,
		Language: language,
		Segments: []asr.Segment{{Text: text, Start: 0, End: duration}},
	}, nil
}

func (e *Engine) Models() []asr.ModelInfo {
	return []asr.ModelInfo{{ID: "mock", DisplayName: "Mock", IsDefault: true}}
}

func (e *Engine) Close() error { return nil }
