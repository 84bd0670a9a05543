package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/whisperlive/whisperlive/internal/asr"
	"github.com/whisperlive/whisperlive/internal/asr/backends/restutil"
)

func init() {
	asr.Register("deepgram", func(config map[string]string) (asr.Engine, error) {
		apiKey := config["deepgram_api_key"]
		if apiKey == "" {
			apiKey = config["api_key"]
		}
		if apiKey == "" {
			return nil, fmt.Errorf("deepgram API key required (set deepgram_api_key in config)")
		}
		model := config["model"]
		if model == "" {
			model = "nova-2"
		}
		return &Engine{apiKey: apiKey, model: model}, nil
	})
}

// Engine transcribes audio through the Deepgram prerecorded API. Diarization
// is requested so segments carry speaker attribution.
type Engine struct {
	apiKey string
	model  string
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string `json:"transcript"`
				Words      []struct {
					Word    string  `json:"punctuated_word"`
					Plain   string  `json:"word"`
					Start   float64 `json:"start"`
					End     float64 `json:"end"`
					Speaker *int    `json:"speaker"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (e *Engine) Transcribe(ctx context.Context, pcm []byte, opts asr.Options) (asr.Result, error) {
	sampleRate := opts.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	params := url.Values{}
	params.Set("model", e.model)
	params.Set("diarize", "true")
	params.Set("punctuate", "true")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	} else {
		params.Set("detect_language", "true")
	}
	apiURL := "https://api.deepgram.com/v1/listen?" + params.Encode()

	headers := map[string]string{
		"Authorization": "Token " + e.apiKey,
		"Content-Type":  "audio/l16;rate=" + strconv.Itoa(sampleRate) + ";channels=1",
	}

	body, err := restutil.DoRaw(ctx, "POST", apiURL, headers, bytes.NewReader(pcm))
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram API: %w", err)
	}
	defer body.Close()

	var resp deepgramResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return asr.Result{}, fmt.Errorf("deepgram decode: %w", err)
	}

	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return asr.Result{}, nil
	}
	channel := resp.Results.Channels[0]
	alt := channel.Alternatives[0]

	result := asr.Result{
		Text:     alt.Transcript,
		Language: channel.DetectedLanguage,
	}
	if result.Language == "" {
		result.Language = opts.Language
	}

	// Group consecutive words by speaker into segments.
	var current *asr.Segment
	currentSpeaker := -1
	for _, w := range alt.Words {
		word := w.Word
		if word == "" {
			word = w.Plain
		}
		speaker := -1
		if w.Speaker != nil {
			speaker = *w.Speaker
		}
		if current == nil || speaker != currentSpeaker {
			if current != nil {
				result.Segments = append(result.Segments, *current)
			}
			seg := asr.Segment{Text: word, Start: w.Start, End: w.End}
			if speaker >= 0 {
				seg.Speaker = "speaker_" + strconv.Itoa(speaker)
			}
			current = &seg
			currentSpeaker = speaker
			continue
		}
		current.Text += " " + word
		current.End = w.End
	}
	if current != nil {
		result.Segments = append(result.Segments, *current)
	}

	return result, nil
}

func (e *Engine) Models() []asr.ModelInfo {
	return []asr.ModelInfo{
		{ID: "nova-2", DisplayName: "Nova 2", IsDefault: true},
		{ID: "nova-2-meeting", DisplayName: "Nova 2 Meeting"},
		{ID: "enhanced", DisplayName: "Enhanced"},
		{ID: "base", DisplayName: "Base"},
	}
}

func (e *Engine) Close() error { return nil }
