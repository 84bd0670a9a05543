package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/whisperlive/whisperlive/internal/asr"
	"github.com/whisperlive/whisperlive/internal/asr/backends/restutil"
)

func init() {
	asr.Register("openai", func(config map[string]string) (asr.Engine, error) {
		apiKey := config["openai_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("openai API key required (set openai_api_key in config)")
		}
		baseURL := config["openai_base_url"]
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := config["model"]
		if model == "" {
			model = "whisper-1"
		}
		return &Engine{apiKey: apiKey, baseURL: baseURL, model: model}, nil
	})
}

// Engine transcribes audio through the OpenAI-compatible transcription API.
type Engine struct {
	apiKey  string
	baseURL string
	model   string
}

type verboseResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe wraps the raw PCM as WAV and posts it to /audio/transcriptions
// with verbose_json output to recover per-segment timestamps.
func (e *Engine) Transcribe(ctx context.Context, pcm []byte, opts asr.Options) (asr.Result, error) {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	var wavBuf bytes.Buffer
	if err := writeWAVHeader(&wavBuf, len(pcm), sampleRate); err != nil {
		return asr.Result{}, fmt.Errorf("openai ASR: write WAV header: %w", err)
	}
	wavBuf.Write(pcm)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return asr.Result{}, fmt.Errorf("openai ASR: create form file: %w", err)
	}
	if _, err := part.Write(wavBuf.Bytes()); err != nil {
		return asr.Result{}, fmt.Errorf("openai ASR: write form file: %w", err)
	}
	_ = writer.WriteField("model", e.model)
	_ = writer.WriteField("response_format", "verbose_json")
	if opts.Language != "" {
		_ = writer.WriteField("language", opts.Language)
	}
	writer.Close()

	headers := map[string]string{
		"Authorization": "Bearer " + e.apiKey,
		"Content-Type":  writer.FormDataContentType(),
	}

	respBody, err := restutil.DoRaw(ctx, "POST", e.baseURL+"/audio/transcriptions", headers, &body)
	if err != nil {
		return asr.Result{}, fmt.Errorf("openai ASR: %w", err)
	}
	defer respBody.Close()

	var resp verboseResponse
	if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
		return asr.Result{}, fmt.Errorf("openai ASR decode: %w", err)
	}

	result := asr.Result{Text: resp.Text, Language: resp.Language}
	for _, s := range resp.Segments {
		result.Segments = append(result.Segments, asr.Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}
	return result, nil
}

func (e *Engine) Models() []asr.ModelInfo {
	return []asr.ModelInfo{
		{ID: "whisper-1", DisplayName: "Whisper 1", IsDefault: true},
	}
}

func (e *Engine) Close() error { return nil }
