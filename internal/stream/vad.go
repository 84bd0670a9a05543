package stream

import (
	"encoding/binary"
	"math"
	"time"
)

// VADConfig holds voice activity detection parameters.
type VADConfig struct {
	// EnergyThreshold is the RMS energy above which a frame counts as speech.
	EnergyThreshold float64
	// SpeechMinDur is the minimum run of speech frames before speech is
	// considered started.
	SpeechMinDur time.Duration
	// SilenceMinDur is the minimum run of silent frames before speech is
	// considered ended.
	SilenceMinDur time.Duration
	SampleRate    int
}

// DefaultVADConfig returns settings tuned for 16kHz speech.
func DefaultVADConfig() VADConfig {
	return VADConfig{
		EnergyThreshold: 500,
		SpeechMinDur:    200 * time.Millisecond,
		SilenceMinDur:   700 * time.Millisecond,
		SampleRate:      16000,
	}
}

// VADEvent marks a transition in speech activity.
type VADEvent int

const (
	VADNone VADEvent = iota
	VADSpeechStart
	VADSpeechEnd
)

// VAD is an energy-based voice activity detector. It tracks sample counts
// rather than frame counts, so callers may push frames of any size.
type VAD struct {
	cfg            VADConfig
	speaking       bool
	speechSamples  int
	silenceSamples int
}

func NewVAD(cfg VADConfig) *VAD {
	def := DefaultVADConfig()
	if cfg.EnergyThreshold <= 0 {
		cfg.EnergyThreshold = def.EnergyThreshold
	}
	if cfg.SpeechMinDur <= 0 {
		cfg.SpeechMinDur = def.SpeechMinDur
	}
	if cfg.SilenceMinDur <= 0 {
		cfg.SilenceMinDur = def.SilenceMinDur
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	return &VAD{cfg: cfg}
}

// ProcessFrame classifies one frame of 16-bit mono PCM and reports whether
// it completed a speech-start or speech-end transition.
func (v *VAD) ProcessFrame(pcm []byte) VADEvent {
	samples := len(pcm) / 2
	if samples == 0 {
		return VADNone
	}

	if rmsEnergy(pcm) >= v.cfg.EnergyThreshold {
		v.silenceSamples = 0
		if v.speaking {
			return VADNone
		}
		v.speechSamples += samples
		if v.durationOf(v.speechSamples) >= v.cfg.SpeechMinDur {
			v.speaking = true
			v.speechSamples = 0
			return VADSpeechStart
		}
		return VADNone
	}

	v.speechSamples = 0
	if !v.speaking {
		return VADNone
	}
	v.silenceSamples += samples
	if v.durationOf(v.silenceSamples) >= v.cfg.SilenceMinDur {
		v.speaking = false
		v.silenceSamples = 0
		return VADSpeechEnd
	}
	return VADNone
}

// IsSpeaking reports whether the detector currently considers the stream
// to be inside a speech run.
func (v *VAD) IsSpeaking() bool { return v.speaking }

// Reset clears all detector state.
func (v *VAD) Reset() {
	v.speaking = false
	v.speechSamples = 0
	v.silenceSamples = 0
}

func (v *VAD) durationOf(samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(v.cfg.SampleRate)
}

func rmsEnergy(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(samples))
}
