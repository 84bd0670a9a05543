package config

import (
	"time"

	"github.com/pitabwire/frame/config"
)

// ServiceConfig holds configuration for the transcription service.
type ServiceConfig struct {
	config.ConfigurationDefault

	Environment string `envDefault:"development" env:"ENVIRONMENT"`

	// Streaming
	SampleRate         int     `envDefault:"16000" env:"SAMPLE_RATE"`
	WindowDurationMs   int     `envDefault:"5000"  env:"WINDOW_DURATION_MS"`
	SilenceMinDurMs    int     `envDefault:"700"   env:"SILENCE_MIN_DUR_MS"`
	VADEnergyThreshold float64 `envDefault:"500"   env:"VAD_ENERGY_THRESHOLD"`

	// ASR capability
	ASRBackend     string `envDefault:"openai"                    env:"ASR_BACKEND"`
	ASRModel       string `envDefault:""                          env:"ASR_MODEL"`
	ASRConcurrency int    `envDefault:"1"                         env:"ASR_CONCURRENCY"`
	ASRTimeoutSec  int    `envDefault:"60"                        env:"ASR_TIMEOUT_SEC"`
	Language       string `envDefault:"ko"                        env:"LANGUAGE"`
	OpenAIAPIKey   string `envDefault:""                          env:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envDefault:"https://api.openai.com/v1" env:"OPENAI_BASE_URL"`
	DeepgramAPIKey string `envDefault:""                          env:"DEEPGRAM_API_KEY"`

	// Storage
	TranscriptBucketURL string `envDefault:"file://./transcripts?create_dir=true" env:"TRANSCRIPT_BUCKET_URL"`
	AudioBucketScheme   string `envDefault:"file://"                              env:"AUDIO_BUCKET_SCHEME"`

	// Batch results
	ResultCacheSize   int `envDefault:"1024" env:"RESULT_CACHE_SIZE"`
	ResultCacheTTLMin int `envDefault:"60"   env:"RESULT_CACHE_TTL_MIN"`

	// Transcription profiles
	ProfileDir string `envDefault:"./profiles" env:"PROFILE_DIR"`

	// Worker pool
	WorkerPoolCount    int `envDefault:"2"   env:"WORKER_POOL_COUNT"`
	WorkerPoolCapacity int `envDefault:"100" env:"WORKER_POOL_CAPACITY"`
}

// WindowDuration returns the streaming window threshold as a duration.
func (c *ServiceConfig) WindowDuration() time.Duration {
	return time.Duration(c.WindowDurationMs) * time.Millisecond
}

// SilenceMinDur returns the minimum silence gap that closes a window early.
func (c *ServiceConfig) SilenceMinDur() time.Duration {
	return time.Duration(c.SilenceMinDurMs) * time.Millisecond
}

// ASRTimeout returns the per-inference-call timeout. Zero disables it.
func (c *ServiceConfig) ASRTimeout() time.Duration {
	return time.Duration(c.ASRTimeoutSec) * time.Second
}

// ResultCacheTTL returns how long batch results stay cached in memory.
func (c *ServiceConfig) ResultCacheTTL() time.Duration {
	return time.Duration(c.ResultCacheTTLMin) * time.Minute
}

// BackendConfig builds the flat config map handed to ASR backend factories.
func (c *ServiceConfig) BackendConfig() map[string]string {
	return map[string]string{
		"model":            c.ASRModel,
		"language":         c.Language,
		"openai_api_key":   c.OpenAIAPIKey,
		"openai_base_url":  c.OpenAIBaseURL,
		"deepgram_api_key": c.DeepgramAPIKey,
	}
}
